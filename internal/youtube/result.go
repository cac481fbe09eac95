package youtube

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CaptionEntry is one timed caption line.
type CaptionEntry struct {
	StartTime time.Duration `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Text      string        `json:"text"`
}

// EndTime returns when the entry stops showing.
func (e *CaptionEntry) EndTime() time.Duration {
	return e.StartTime + e.Duration
}

// CaptionResult holds a downloaded caption track.
type CaptionResult struct {
	LanguageCode string         `json:"language_code"`
	Entries      []CaptionEntry `json:"entries"`
}

// Transcript joins all entries into a single line of text.
func (r *CaptionResult) Transcript() string {
	parts := make([]string, 0, len(r.Entries))
	for _, entry := range r.Entries {
		parts = append(parts, strings.Join(strings.Fields(entry.Text), " "))
	}
	return strings.Join(parts, " ")
}

// FormatAsText prints one entry per line.
func (r *CaptionResult) FormatAsText() string {
	var sb strings.Builder
	for _, entry := range r.Entries {
		sb.WriteString(entry.Text)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

// FormatAsJSON prints the result as indented JSON.
func (r *CaptionResult) FormatAsJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// FormatAsSRT prints SubRip subtitles.
func (r *CaptionResult) FormatAsSRT() string {
	return r.formatCues("", ",")
}

// FormatAsVTT prints WebVTT subtitles.
func (r *CaptionResult) FormatAsVTT() string {
	return r.formatCues("WEBVTT\n\n", ".")
}

func (r *CaptionResult) formatCues(header, msSep string) string {
	var sb strings.Builder
	sb.WriteString(header)
	for i, entry := range r.Entries {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n",
			i+1,
			formatTimestamp(entry.StartTime, msSep),
			formatTimestamp(entry.EndTime(), msSep),
			entry.Text,
		)
	}
	return strings.TrimSpace(sb.String())
}

// formatTimestamp renders HH:MM:SS<sep>mmm.
func formatTimestamp(d time.Duration, msSep string) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	ms := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", h, m, s, msSep, ms)
}
