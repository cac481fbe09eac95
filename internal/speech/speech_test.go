package speech

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"patwa/internal/config"
)

func TestOutputName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Mi glad fi see yuh.", "translated_mi_glad_fi_see_yuh.mp3"},
		{"  Wagwan?  ", "translated_wagwan.mp3"},
		{"a/b\\c", "translated_abc.mp3"},
		{"...", "translated_audio.mp3"},
		{strings.Repeat("x", 200), "translated_" + strings.Repeat("x", 80) + ".mp3"},
	}
	for _, tt := range tests {
		if got := OutputName(tt.in); got != tt.want {
			t.Errorf("OutputName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestElevenLabsSynthesize(t *testing.T) {
	var gotPath, gotKey, gotAccept string
	var gotBody elevenLabsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		gotAccept = r.Header.Get("Accept")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3fake-mp3"))
	}))
	defer srv.Close()

	e, err := NewElevenLabs("secret", "", "")
	if err != nil {
		t.Fatalf("NewElevenLabs() error = %v", err)
	}
	e = e.WithEndpoint(srv.URL + "/v1/")

	rc, err := e.Synthesize(context.Background(), "I am glad to see you.")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)

	if string(data) != "ID3fake-mp3" {
		t.Errorf("audio = %q", data)
	}
	if gotPath != "/v1/text-to-speech/"+ElevenLabsDefaultVoice {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("xi-api-key = %q", gotKey)
	}
	if gotAccept != ContentType {
		t.Errorf("Accept = %q", gotAccept)
	}
	if gotBody.ModelID != ElevenLabsDefaultModel || gotBody.Text != "I am glad to see you." {
		t.Errorf("body = %+v", gotBody)
	}
}

func TestElevenLabsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"quota_exceeded"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	e, _ := NewElevenLabs("secret", "voice", "model")
	e = e.WithEndpoint(srv.URL)

	if _, err := e.Synthesize(context.Background(), "   "); err != ErrEmptyText {
		t.Errorf("Synthesize(blank) error = %v, want ErrEmptyText", err)
	}
	_, err := e.Synthesize(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("Synthesize() error = %v, want status 401", err)
	}

	if _, err := NewElevenLabs("", "", ""); err == nil {
		t.Error("NewElevenLabs without key should fail")
	}
}

func TestOpenAISynthesize(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	o, err := NewOpenAI("k", srv.URL+"/v1", "")
	if err != nil {
		t.Fatalf("NewOpenAI() error = %v", err)
	}
	rc, err := o.Synthesize(context.Background(), "The party was great.")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "mp3-bytes" {
		t.Errorf("audio = %q", data)
	}
	if gotPath != "/v1/audio/speech" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestNew(t *testing.T) {
	s, err := New(config.SpeechConfig{Provider: "none"}, "")
	if err != nil || s != nil {
		t.Errorf("New(none) = %v, %v; want nil, nil", s, err)
	}
	if _, err := New(config.SpeechConfig{Provider: "polly"}, ""); err == nil {
		t.Error("New(polly) should fail")
	}
	s, err = New(config.SpeechConfig{Provider: "elevenlabs", ElevenLabsAPIKey: "k"}, "")
	if err != nil {
		t.Fatalf("New(elevenlabs) error = %v", err)
	}
	if s.Name() != "elevenlabs:"+ElevenLabsDefaultModel {
		t.Errorf("Name() = %q", s.Name())
	}
}
