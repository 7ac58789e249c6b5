package musicbrainz

// MusicBrainz API response types.

// RecordingSearchResponse is the top-level response from the recording search endpoint.
type RecordingSearchResponse struct {
	Created    string        `json:"created"`
	Count      int           `json:"count"`
	Offset     int           `json:"offset"`
	Recordings []MBRecording `json:"recordings"`
}

// ISRCResponse is the response from the ISRC lookup endpoint.
type ISRCResponse struct {
	ISRC       string        `json:"isrc"`
	Recordings []MBRecording `json:"recordings"`
}

// MBRecording represents a MusicBrainz recording entity.
type MBRecording struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Score        int            `json:"score"`
	LengthMS     int            `json:"length"`
	Disambiguation string       `json:"disambiguation"`
	ArtistCredit []MBArtistCredit `json:"artist-credit"`
	Releases     []MBRelease    `json:"releases"`
	ISRCs        []string       `json:"isrcs"`
}

// MBArtistCredit is one credited artist on a recording.
type MBArtistCredit struct {
	Name       string    `json:"name"`
	JoinPhrase string    `json:"joinphrase"`
	Artist     *MBArtist `json:"artist,omitempty"`
}

// MBArtist represents a MusicBrainz artist entity.
type MBArtist struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SortName string `json:"sort-name"`
}

// MBRelease represents a release (album) a recording appears on.
type MBRelease struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Date   string `json:"date"`
	Status string `json:"status"`
}
