package model

type PredictRequest struct {
	Batch Batch `json:"batch"`
}

type PredictResponse struct {
	Prediction Prediction `json:"prediction"`
	Loss       *float32   `json:"loss,omitempty"`
}

type GenerateRequest struct {
	Style []float32 `json:"style"`
	Steps int       `json:"steps"`
	Seed  int64     `json:"seed"`
}

type StyleInfo struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
}

type ErrorResponse struct {
	Error string `json:"detail"`
}

type GenerateResponse struct {
	Id          string      `json:"id"`
	Composition Composition `json:"composition"`
	// Chords counts each distinct chord started in the composition, keyed by
	// its dash separated MIDI notes.
	Chords map[string]int `json:"chords"`
}
