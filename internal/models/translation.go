package models

import "time"

// Translation is one dialect phrase rendered in standard English.
type Translation struct {
	ID               string    `json:"id"`
	SourceID         string    `json:"source_id,omitempty"`
	Dialect          string    `json:"dialect"`
	Translated       string    `json:"translated"`
	Provider         string    `json:"provider"`
	Initial          string    `json:"initial,omitempty"`
	Analysis         string    `json:"analysis,omitempty"`
	MeaningPreserved *bool     `json:"meaning_preserved,omitempty"`
	AudioKey         string    `json:"audio_key,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Reviewed reports whether the self-review loop ran.
func (t *Translation) Reviewed() bool {
	return t.Initial != "" || t.Analysis != ""
}
