package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"patwa/internal/config"
	"patwa/internal/media"
)

const (
	TwelveLabsEndpoint = "https://api.twelvelabs.io/v1.2"
	TranscriptPrompt   = "Generate a verbatim transcript for this video."
	transcriptTemp     = 0.25
)

// TwelveLabs transcribes by indexing a video with the Twelve Labs video
// understanding API and asking the generative model for a verbatim
// transcript.
type TwelveLabs struct {
	apiKey       string
	endpoint     string
	indexName    string
	language     string
	pollInterval time.Duration
	httpClient   *http.Client
	log          zerolog.Logger

	// audioToVideo wraps audio-only input in a video container.
	audioToVideo func(ctx context.Context, in, out string) error
}

// NewTwelveLabs creates a client from config.
func NewTwelveLabs(cfg config.TranscriptionConfig, log zerolog.Logger) (*TwelveLabs, error) {
	if cfg.TwelveLabsAPIKey == "" {
		return nil, fmt.Errorf("TWELVE_LABS_API_KEY is not set")
	}
	indexName := cfg.IndexName
	if indexName == "" {
		indexName = "dialect-translator-videos"
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 5 * time.Second
	}
	return &TwelveLabs{
		apiKey:       cfg.TwelveLabsAPIKey,
		endpoint:     TwelveLabsEndpoint,
		indexName:    indexName,
		language:     cfg.Language,
		pollInterval: poll,
		httpClient:   &http.Client{Timeout: 10 * time.Minute},
		log:          log,
		audioToVideo: media.AudioToVideo,
	}, nil
}

// WithEndpoint points the client at a different API base URL.
func (t *TwelveLabs) WithEndpoint(endpoint string) *TwelveLabs {
	cp := *t
	cp.endpoint = strings.TrimRight(endpoint, "/")
	return &cp
}

// Name implements Transcriber.
func (t *TwelveLabs) Name() string {
	return "twelvelabs"
}

// Task is an indexing task.
type Task struct {
	ID      string `json:"_id"`
	IndexID string `json:"index_id"`
	VideoID string `json:"video_id"`
	Status  string `json:"status"`
}

type index struct {
	ID   string `json:"_id"`
	Name string `json:"index_name"`
}

type indexModel struct {
	Name    string   `json:"model_name"`
	Options []string `json:"model_options"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (t *TwelveLabs) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, t.endpoint+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", t.apiKey)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twelve labs request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("twelve labs %s %s: status %d: %s", method, path, resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("twelve labs %s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (t *TwelveLabs) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return t.do(ctx, method, path, body, contentType, out)
}

// EnsureIndex returns the ID of the configured index, creating it with the
// pegasus model (visual and audio) when it does not exist.
func (t *TwelveLabs) EnsureIndex(ctx context.Context) (string, error) {
	var list struct {
		Data []index `json:"data"`
	}
	q := url.Values{"index_name": {t.indexName}}
	if err := t.doJSON(ctx, http.MethodGet, "/indexes?"+q.Encode(), nil, &list); err != nil {
		return "", fmt.Errorf("failed to list indexes: %w", err)
	}
	for _, idx := range list.Data {
		if idx.Name == t.indexName {
			return idx.ID, nil
		}
	}

	t.log.Info().Str("index", t.indexName).Msg("Creating index")
	req := struct {
		Name   string       `json:"index_name"`
		Models []indexModel `json:"models"`
	}{
		Name:   t.indexName,
		Models: []indexModel{{Name: "pegasus1", Options: []string{"visual", "audio"}}},
	}
	var created index
	if err := t.doJSON(ctx, http.MethodPost, "/indexes", req, &created); err != nil {
		return "", fmt.Errorf("failed to create index: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("failed to create index: empty id")
	}
	return created.ID, nil
}

// Upload creates an indexing task for a local video file.
func (t *TwelveLabs) Upload(ctx context.Context, indexID, path string) (*Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video: %w", err)
	}
	defer f.Close()

	// Stream the file instead of buffering it whole.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := func() error {
			if err := mw.WriteField("index_id", indexID); err != nil {
				return err
			}
			if t.language != "" {
				if err := mw.WriteField("language", t.language); err != nil {
					return err
				}
			}
			part, err := mw.CreateFormFile("video_file", filepath.Base(path))
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, f); err != nil {
				return err
			}
			return mw.Close()
		}()
		pw.CloseWithError(err)
	}()

	var task Task
	if err := t.do(ctx, http.MethodPost, "/tasks", pr, mw.FormDataContentType(), &task); err != nil {
		pr.CloseWithError(err)
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	if task.ID == "" {
		return nil, fmt.Errorf("failed to create task: empty id")
	}
	return &task, nil
}

// GetTask fetches the current state of a task.
func (t *TwelveLabs) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var task Task
	if err := t.doJSON(ctx, http.MethodGet, "/tasks/"+url.PathEscape(taskID), nil, &task); err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

// WaitForTask polls until the task is ready. A failed task returns
// ErrIndexingFailed.
func (t *TwelveLabs) WaitForTask(ctx context.Context, taskID string) (*Task, error) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		task, err := t.GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		t.log.Debug().Str("task_id", taskID).Str("status", task.Status).Msg("Task status")

		switch task.Status {
		case "ready":
			return task, nil
		case "failed":
			return task, fmt.Errorf("%w: task %s", ErrIndexingFailed, taskID)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// GenerateTranscript asks the model for a verbatim transcript of an
// indexed video.
func (t *TwelveLabs) GenerateTranscript(ctx context.Context, videoID string) (string, error) {
	req := struct {
		VideoID     string  `json:"video_id"`
		Prompt      string  `json:"prompt"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{videoID, TranscriptPrompt, transcriptTemp, false}

	var resp struct {
		ID   string `json:"id"`
		Data string `json:"data"`
	}
	if err := t.doJSON(ctx, http.MethodPost, "/generate", req, &resp); err != nil {
		return "", fmt.Errorf("failed to generate transcript: %w", err)
	}
	text := strings.TrimSpace(resp.Data)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}

// Transcribe implements Transcriber. Audio files are first converted to a
// black-screen video.
func (t *TwelveLabs) Transcribe(ctx context.Context, path string) (*Transcript, error) {
	videoPath := path
	if media.IsAudio(path) {
		tmpDir, err := os.MkdirTemp("", "patwa-twelvelabs-")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp dir: %w", err)
		}
		defer os.RemoveAll(tmpDir)

		videoPath = filepath.Join(tmpDir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+".mp4")
		if err := t.audioToVideo(ctx, path, videoPath); err != nil {
			return nil, fmt.Errorf("failed to convert audio to video: %w", err)
		}
	}

	indexID, err := t.EnsureIndex(ctx)
	if err != nil {
		return nil, err
	}

	task, err := t.Upload(ctx, indexID, videoPath)
	if err != nil {
		return nil, err
	}
	t.log.Info().Str("task_id", task.ID).Msg("Waiting for indexing")

	task, err = t.WaitForTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	text, err := t.GenerateTranscript(ctx, task.VideoID)
	if err != nil {
		return nil, err
	}

	return &Transcript{
		Text:     text,
		Language: t.language,
		Provider: t.Name(),
	}, nil
}
