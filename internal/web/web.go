// Package web renders the browser front end. The pages are templ
// components; run `templ generate` after editing a .templ file.
package web

import (
	"embed"
	"strings"

	"patwa/internal/models"
)

//go:generate templ generate

// Static holds the front-end assets served under /static/.
//
//go:embed static
var Static embed.FS

// HomeData is what the home page shows besides the input forms.
type HomeData struct {
	Recent        []models.Translation
	SpeechEnabled bool
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
