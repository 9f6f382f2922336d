package domain

import "time"

// Issue is a validation error found in a requirement.
type Issue struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
}

// Suggestion is a non-blocking improvement hint.
type Suggestion struct {
	Type           string `json:"type"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
}

// Validation is the outcome of checking one requirement.
type Validation struct {
	ID           string       `json:"id,omitempty"`
	OriginalText string       `json:"original_text"`
	IsValid      bool         `json:"is_valid"`
	Errors       []Issue      `json:"errors"`
	Suggestions  []Suggestion `json:"suggestions"`
}

// Record is a persisted validation.
type Record struct {
	ID           string     `json:"id"`
	IsFunctional bool       `json:"is_functional"`
	CreatedAt    time.Time  `json:"created_at"`
	Result       Validation `json:"result"`
}
