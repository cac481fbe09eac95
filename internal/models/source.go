package models

import (
	"encoding/json"
	"time"
)

// Source is one piece of input media: an upload, a browser recording or a
// YouTube video.
type Source struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title,omitempty"`
	OriginalURL string    `json:"original_url,omitempty"`
	FilePath    string    `json:"file_path,omitempty"`
	Metadata    string    `json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Status      string    `json:"status"`
}

// Source types
const (
	SourceTypeUpload    = "upload"
	SourceTypeRecording = "recording"
	SourceTypeYouTube   = "youtube"
)

// Source statuses
const (
	SourceStatusPending    = "pending"
	SourceStatusProcessing = "processing"
	SourceStatusCompleted  = "completed"
	SourceStatusFailed     = "failed"
)

// ProcessingArtifact is an intermediate or final product of a source.
type ProcessingArtifact struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"source_id"`
	Type      string    `json:"type"`
	Content   string    `json:"content,omitempty"`
	Format    string    `json:"format,omitempty"`
	FilePath  string    `json:"file_path,omitempty"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Artifact types
const (
	ArtifactTypeTranscription = "transcription"
	ArtifactTypeTranslation   = "translation"
	ArtifactTypeAudio         = "audio"
)

// GetMetadata decodes the JSON metadata.
func (s *Source) GetMetadata() (map[string]any, error) {
	if s.Metadata == "" {
		return nil, nil
	}
	var m map[string]any
	err := json.Unmarshal([]byte(s.Metadata), &m)
	return m, err
}

// SetMetadata stores m as JSON.
func (s *Source) SetMetadata(m map[string]any) error {
	if m == nil {
		s.Metadata = ""
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	s.Metadata = string(data)
	return nil
}
