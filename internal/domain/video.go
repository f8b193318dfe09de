package domain

// VideoDescriptor points at a stored video. Produced by the upload store,
// consumed read-only by the playback flow. URL is relative to the server origin.
type VideoDescriptor struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}
