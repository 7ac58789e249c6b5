package spotify

// Spotify Web API response types, narrowed to the track search surface.

// searchResponse is the top-level response from the search endpoint.
type searchResponse struct {
	Tracks trackPage `json:"tracks"`
}

// trackPage is a paginated list of tracks.
type trackPage struct {
	Items  []trackObject `json:"items"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// trackObject represents a Spotify track.
type trackObject struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	URI          string         `json:"uri"`
	DurationMS   int            `json:"duration_ms"`
	Explicit     bool           `json:"explicit"`
	Popularity   int            `json:"popularity"`
	PreviewURL   string         `json:"preview_url"`
	Artists      []artistObject `json:"artists"`
	Album        albumObject    `json:"album"`
	ExternalIDs  externalIDs    `json:"external_ids"`
	ExternalURLs externalURLs   `json:"external_urls"`
}

// artistObject represents a Spotify artist.
type artistObject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// albumObject represents a Spotify album.
type albumObject struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	ReleaseDate string        `json:"release_date"`
	Images      []imageObject `json:"images"`
}

// imageObject is an album artwork rendition.
type imageObject struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// externalIDs holds cross-catalog identifiers.
type externalIDs struct {
	ISRC string `json:"isrc"`
}

// externalURLs holds public web links.
type externalURLs struct {
	Spotify string `json:"spotify"`
}
