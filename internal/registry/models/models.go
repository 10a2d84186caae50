package models

import "time"

// Record is one accepted identity: its face embedding and a reference to the
// stored source image.
type Record struct {
	ID        string    `json:"id"`
	Vector    []float64 `json:"vector"`
	ImageRef  string    `json:"image_ref"`
	CreatedAt time.Time `json:"created_at"`
}

// Image is the raw selfie written alongside an accepted record.
type Image struct {
	Data []byte
	// Ext is the file extension without a dot, e.g. "jpg".
	Ext string
}

// SearchResult is the best match for a query vector. Matched is true only when
// Score is strictly above the similarity threshold.
type SearchResult struct {
	Matched bool
	Score   float64
}
