package plex

// Section is one library section from GET /library/sections.
type Section struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// Playlist is one entry of GET /playlists.
type Playlist struct {
	RatingKey    string `json:"ratingKey"`
	Title        string `json:"title"`
	PlaylistType string `json:"playlistType"`
	Smart        bool   `json:"smart"`
	LeafCount    int    `json:"leafCount"`
}

// Item is one track of GET /playlists/{ratingKey}/items.
type Item struct {
	RatingKey string `json:"ratingKey"`
	Title     string `json:"title"`
}

// UploadResult describes a finished upload. PlaylistID is empty when the server
// did not return an identifier.
type UploadResult struct {
	PlaylistID string
}

type sectionsResponse struct {
	MediaContainer struct {
		Directory []Section `json:"Directory"`
	} `json:"MediaContainer"`
}

type playlistsResponse struct {
	MediaContainer struct {
		Size     int        `json:"size"`
		Metadata []Playlist `json:"Metadata"`
	} `json:"MediaContainer"`
}

type itemsResponse struct {
	MediaContainer struct {
		Size     int    `json:"size"`
		Metadata []Item `json:"Metadata"`
	} `json:"MediaContainer"`
}
