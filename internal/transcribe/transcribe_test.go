package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patwa/internal/config"
	"patwa/internal/youtube"
)

type fakeTwelveLabs struct {
	mu          sync.Mutex
	indexes     map[string]string
	polls       int
	readyAfter  int
	failTask    bool
	uploadedAs  string
	uploadBytes string
	language    string
	generateReq map[string]any
}

func (f *fakeTwelveLabs) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/indexes", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			var data []map[string]string
			name := r.URL.Query().Get("index_name")
			if id, ok := f.indexes[name]; ok {
				data = append(data, map[string]string{"_id": id, "index_name": name})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
		case http.MethodPost:
			var req struct {
				Name   string       `json:"index_name"`
				Models []indexModel `json:"models"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "pegasus1", req.Models[0].Name)
			assert.Equal(t, []string{"visual", "audio"}, req.Models[0].Options)
			f.indexes[req.Name] = "idx-new"
			_ = json.NewEncoder(w).Encode(map[string]string{"_id": "idx-new"})
		}
	})
	mux.HandleFunc("/tasks", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("video_file")
		require.NoError(t, err)
		data, _ := io.ReadAll(file)

		f.mu.Lock()
		f.uploadedAs = header.Filename
		f.uploadBytes = string(data)
		f.language = r.FormValue("language")
		f.mu.Unlock()

		assert.NotEmpty(t, r.FormValue("index_id"))
		_ = json.NewEncoder(w).Encode(map[string]string{"_id": "task-1", "video_id": "vid-1"})
	})
	mux.HandleFunc("/tasks/task-1", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.polls++
		status := "indexing"
		if f.polls >= f.readyAfter {
			status = "ready"
			if f.failTask {
				status = "failed"
			}
		}
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"_id": "task-1", "video_id": "vid-1", "status": status})
	})
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.generateReq = req
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "gen-1", "data": "  Wagwan, mi soon come.  "})
	})
	return mux
}

func newTestTwelveLabs(t *testing.T, fake *fakeTwelveLabs) *TwelveLabs {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	tl, err := NewTwelveLabs(config.TranscriptionConfig{
		TwelveLabsAPIKey: "secret",
		IndexName:        "dialect-translator-videos",
		Language:         "en",
		PollInterval:     time.Millisecond,
	}, zerolog.Nop())
	require.NoError(t, err)
	return tl.WithEndpoint(srv.URL + "/")
}

func TestTwelveLabsTranscribeVideo(t *testing.T) {
	fake := &fakeTwelveLabs{indexes: map[string]string{"dialect-translator-videos": "idx-1"}, readyAfter: 3}
	tl := newTestTwelveLabs(t, fake)

	video := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(video, []byte("fake-mp4"), 0644))

	tr, err := tl.Transcribe(context.Background(), video)
	require.NoError(t, err)

	assert.Equal(t, "Wagwan, mi soon come.", tr.Text)
	assert.Equal(t, "twelvelabs", tr.Provider)
	assert.Equal(t, "clip.mp4", fake.uploadedAs)
	assert.Equal(t, "fake-mp4", fake.uploadBytes)
	assert.Equal(t, "en", fake.language)
	assert.Equal(t, 3, fake.polls)
	assert.Equal(t, TranscriptPrompt, fake.generateReq["prompt"])
	assert.Equal(t, 0.25, fake.generateReq["temperature"])
	assert.Equal(t, "vid-1", fake.generateReq["video_id"])
}

func TestTwelveLabsConvertsAudio(t *testing.T) {
	fake := &fakeTwelveLabs{indexes: map[string]string{}, readyAfter: 1}
	tl := newTestTwelveLabs(t, fake)

	var convertedFrom string
	tl.audioToVideo = func(ctx context.Context, in, out string) error {
		convertedFrom = in
		return os.WriteFile(out, []byte("converted"), 0644)
	}

	audio := filepath.Join(t.TempDir(), "voice note.mp3")
	require.NoError(t, os.WriteFile(audio, []byte("mp3"), 0644))

	_, err := tl.Transcribe(context.Background(), audio)
	require.NoError(t, err)

	assert.Equal(t, audio, convertedFrom)
	assert.Equal(t, "voice note.mp4", fake.uploadedAs)
	assert.Equal(t, "converted", fake.uploadBytes)
	assert.Equal(t, "idx-new", fake.indexes["dialect-translator-videos"])
}

func TestTwelveLabsIndexingFailed(t *testing.T) {
	fake := &fakeTwelveLabs{indexes: map[string]string{"dialect-translator-videos": "idx-1"}, readyAfter: 2, failTask: true}
	tl := newTestTwelveLabs(t, fake)

	video := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(video, []byte("x"), 0644))

	_, err := tl.Transcribe(context.Background(), video)
	assert.True(t, errors.Is(err, ErrIndexingFailed), "got %v", err)
}

func TestTwelveLabsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"code":"api_key_invalid","message":"The API key is invalid."}`)
	}))
	defer srv.Close()

	tl, err := NewTwelveLabs(config.TranscriptionConfig{TwelveLabsAPIKey: "bad"}, zerolog.Nop())
	require.NoError(t, err)
	tl = tl.WithEndpoint(srv.URL)

	_, err = tl.EnsureIndex(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "The API key is invalid.")
	assert.Contains(t, err.Error(), "401")

	_, err = NewTwelveLabs(config.TranscriptionConfig{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestTwelveLabsWaitCancelled(t *testing.T) {
	fake := &fakeTwelveLabs{indexes: map[string]string{}, readyAfter: 1 << 30}
	tl := newTestTwelveLabs(t, fake)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := tl.WaitForTask(ctx, "task-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func newWhisperServer(t *testing.T, body string) (*httptest.Server, *string) {
	t.Helper()
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotModel = r.FormValue("model")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &gotModel
}

func TestWhisperTranscribe(t *testing.T) {
	srv, model := newWhisperServer(t, `{
		"task": "transcribe", "language": "english", "duration": 2.5,
		"text": " Wagwan mi bredren ",
		"segments": [{"id": 0, "start": 0.0, "end": 1.2, "text": " Wagwan"}, {"id": 1, "start": 1.2, "end": 2.5, "text": " mi bredren"}]
	}`)

	w, err := NewWhisper("k", srv.URL+"/v1", "en")
	require.NoError(t, err)

	audio := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(audio, []byte("RIFF"), 0644))

	tr, err := w.Transcribe(context.Background(), audio)
	require.NoError(t, err)
	assert.Equal(t, "whisper-1", *model)
	assert.Equal(t, "Wagwan mi bredren", tr.Text)
	assert.Equal(t, "english", tr.Language)
	require.Len(t, tr.Segments, 2)
	assert.Equal(t, Segment{Start: 1.2, End: 2.5, Text: "mi bredren"}, tr.Segments[1])
}

func TestWhisperExtractsVideoAudio(t *testing.T) {
	srv, _ := newWhisperServer(t, `{"text": "", "segments": [{"start": 0, "end": 1, "text": "Mi soon come"}]}`)

	w, err := NewWhisper("k", srv.URL+"/v1", "")
	require.NoError(t, err)

	var extracted bool
	w.extractAudio = func(ctx context.Context, in, out string) error {
		extracted = true
		return os.WriteFile(out, []byte("RIFF"), 0644)
	}

	video := filepath.Join(t.TempDir(), "clip.webm")
	require.NoError(t, os.WriteFile(video, []byte("webm"), 0644))

	tr, err := w.Transcribe(context.Background(), video)
	require.NoError(t, err)
	assert.True(t, extracted)
	assert.Equal(t, "Mi soon come", tr.Text)
}

func TestWhisperEmpty(t *testing.T) {
	srv, _ := newWhisperServer(t, `{"text": "   "}`)
	w, err := NewWhisper("k", srv.URL+"/v1", "")
	require.NoError(t, err)

	audio := filepath.Join(t.TempDir(), "silence.wav")
	require.NoError(t, os.WriteFile(audio, []byte("RIFF"), 0644))

	_, err = w.Transcribe(context.Background(), audio)
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

type fakeCaptions struct {
	video  *youtube.VideoInfo
	result *youtube.CaptionResult
	lang   string
}

func (f *fakeCaptions) GetVideo(ctx context.Context, url string) (*youtube.VideoInfo, error) {
	return f.video, nil
}

func (f *fakeCaptions) FetchCaption(ctx context.Context, video *youtube.VideoInfo, lang string) (*youtube.CaptionResult, error) {
	f.lang = lang
	return f.result, nil
}

func TestCaptionsTranscribe(t *testing.T) {
	fake := &fakeCaptions{
		video: &youtube.VideoInfo{ID: "abc", Captions: []youtube.CaptionTrack{{LanguageCode: "en"}}},
		result: &youtube.CaptionResult{LanguageCode: "en", Entries: []youtube.CaptionEntry{
			{StartTime: 0, Duration: time.Second, Text: "Wagwan"},
			{StartTime: time.Second, Duration: 2 * time.Second, Text: "mi soon\ncome"},
		}},
	}
	c := &Captions{client: fake, lang: "en"}

	tr, err := c.Transcribe(context.Background(), "https://www.youtube.com/watch?v=abc")
	require.NoError(t, err)
	assert.Equal(t, "Wagwan mi soon come", tr.Text)
	assert.Equal(t, "youtube-captions", tr.Provider)
	assert.Equal(t, 3.0, tr.Segments[1].End)
	assert.Equal(t, "en", fake.lang)

	fake.video = &youtube.VideoInfo{ID: "nocap"}
	_, err = c.Transcribe(context.Background(), "nocap")
	assert.ErrorContains(t, err, "no captions")
}

func TestNew(t *testing.T) {
	tr, err := New(config.TranscriptionConfig{Provider: "twelvelabs", TwelveLabsAPIKey: "k"}, "", "", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "twelvelabs", tr.Name())

	tr, err = New(config.TranscriptionConfig{Provider: "whisper"}, "k", "", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "whisper", tr.Name())
	_, ok := tr.(AudioOnly)
	assert.True(t, ok, "whisper only needs the soundtrack")

	tr, err = New(config.TranscriptionConfig{Provider: "twelvelabs", TwelveLabsAPIKey: "k"}, "", "", zerolog.Nop())
	require.NoError(t, err)
	_, ok = tr.(AudioOnly)
	assert.False(t, ok, "twelvelabs looks at the picture")

	_, err = New(config.TranscriptionConfig{Provider: "vosk"}, "", "", zerolog.Nop())
	assert.Error(t, err)
}

func TestJoinSegments(t *testing.T) {
	got := joinSegments([]Segment{{Text: " a "}, {Text: ""}, {Text: "b"}})
	assert.Equal(t, "a b", strings.TrimSpace(got))
}
