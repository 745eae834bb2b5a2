package domain

// Entity is a catalog record lacking a representative image. It is immutable
// for the duration of one pipeline run; the catalog store owns it.
type Entity struct {
	ID         int64
	Category   string
	Brand      string
	Model      string
	Popularity int
}

// Candidate is an unvalidated image URL discovered from a source.
type Candidate struct {
	Source string
	URL    string
}

// ProcessedImage is a normalized image ready for upload.
type ProcessedImage struct {
	Bytes  []byte
	Format string
	Width  int
	Height int
}

// RunStats summarizes one batch run. Succeeded counts fresh acquisitions;
// cache hits are counted separately in ServedFromCache.
type RunStats struct {
	Processed       int `json:"processed"`
	Succeeded       int `json:"succeeded"`
	Failed          int `json:"failed"`
	ServedFromCache int `json:"served_from_cache"`
}
