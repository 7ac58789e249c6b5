package deezer

// searchResponse is the JSON response from the Deezer track search endpoint.
type searchResponse struct {
	Data  []trackResult `json:"data"`
	Total int           `json:"total"`
	Next  string        `json:"next,omitempty"`
}

// trackResult is a single track entry from a Deezer search or track endpoint.
type trackResult struct {
	ID       int          `json:"id"`
	Title    string       `json:"title"`
	Link     string       `json:"link"`
	Duration int          `json:"duration"`
	ISRC     string       `json:"isrc,omitempty"`
	Preview  string       `json:"preview"`
	Artist   artistResult `json:"artist"`
	Album    albumResult  `json:"album"`
	Type     string       `json:"type"`
	// Error is set instead of track fields when a /track/isrc: lookup misses.
	Error *apiError `json:"error,omitempty"`
}

// artistResult is the artist object nested in a track.
type artistResult struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Link string `json:"link"`
}

// albumResult is the album object nested in a track.
type albumResult struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Cover       string `json:"cover"`
	CoverMedium string `json:"cover_medium"`
	CoverBig    string `json:"cover_big"`
	CoverXL     string `json:"cover_xl"`
	ReleaseDate string `json:"release_date"`
}

// apiError is Deezer's embedded error object, returned with HTTP 200.
type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
