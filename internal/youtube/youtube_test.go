package youtube

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

const format3XML = `<?xml version="1.0" encoding="utf-8" ?>
<timedtext format="3"><body>
<p t="0" d="1500"><s>Wagwan</s><s> mi bredren</s></p>
<p t="1500" d="500">   </p>
<p t="2000" d="2500">Mi soon come</p>
</body></timedtext>`

const legacyXML = `<?xml version="1.0" encoding="utf-8" ?>
<transcript>
<text start="0.5" dur="1.25">De ting sell off</text>
<text start="2" dur="1">She a real topanaris &amp;#39;</text>
</transcript>`

func TestParseCaptionXMLFormat3(t *testing.T) {
	result, err := parseCaptionXML([]byte(format3XML))
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)

	assert.Equal(t, "Wagwan mi bredren", result.Entries[0].Text)
	assert.Equal(t, 1500*time.Millisecond, result.Entries[0].EndTime())
	assert.Equal(t, "Mi soon come", result.Entries[1].Text)
	assert.Equal(t, 2*time.Second, result.Entries[1].StartTime)
	assert.Equal(t, "Wagwan mi bredren Mi soon come", result.Transcript())
}

func TestParseCaptionXMLLegacy(t *testing.T) {
	result, err := parseCaptionXML([]byte(legacyXML))
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)

	assert.Equal(t, 500*time.Millisecond, result.Entries[0].StartTime)
	assert.Equal(t, 1250*time.Millisecond, result.Entries[0].Duration)
	assert.Equal(t, "She a real topanaris '", result.Entries[1].Text)
}

func TestParseCaptionXMLErrors(t *testing.T) {
	_, err := parseCaptionXML([]byte("not xml"))
	assert.Error(t, err)

	_, err = parseCaptionXML([]byte("<html><body/></html>"))
	assert.ErrorContains(t, err, "unknown caption format")

	result, err := parseCaptionXML([]byte(`<timedtext><body></body></timedtext>`))
	require.NoError(t, err)
	assert.Empty(t, result.Entries)
	assert.NotNil(t, result.Entries)
}

func TestFindCaption(t *testing.T) {
	v := &VideoInfo{}
	assert.Nil(t, v.FindCaption("en"))
	assert.False(t, v.HasCaptions())

	v.Captions = []CaptionTrack{
		{LanguageCode: "es"},
		{LanguageCode: "en-GB"},
		{LanguageCode: "fr"},
	}
	assert.Equal(t, "fr", v.FindCaption("fr").LanguageCode)
	assert.Equal(t, "en-GB", v.FindCaption("en").LanguageCode)
	assert.Equal(t, "es", v.FindCaption("ja").LanguageCode)

	v.Captions = append(v.Captions, CaptionTrack{LanguageCode: "en"})
	assert.Equal(t, "en", v.FindCaption("en").LanguageCode)
}

func TestFormats(t *testing.T) {
	r := &CaptionResult{Entries: []CaptionEntry{
		{StartTime: 0, Duration: 1500 * time.Millisecond, Text: "Wagwan?"},
		{StartTime: time.Hour + 2*time.Minute + 3*time.Second + 40*time.Millisecond, Duration: time.Second, Text: "Mi soon come."},
	}}

	assert.Equal(t, "Wagwan?\nMi soon come.", r.FormatAsText())
	assert.Equal(t,
		"1\n00:00:00,000 --> 00:00:01,500\nWagwan?\n\n2\n01:02:03,040 --> 01:02:04,040\nMi soon come.",
		r.FormatAsSRT())
	assert.True(t, strings.HasPrefix(r.FormatAsVTT(), "WEBVTT\n\n1\n00:00:00.000 --> 00:00:01.500"))

	js, err := r.FormatAsJSON()
	require.NoError(t, err)
	assert.Contains(t, js, `"text": "Mi soon come."`)
}

func TestPickAudio(t *testing.T) {
	formats := []AudioFormat{
		{Itag: 251, MimeType: `audio/webm; codecs="opus"`, Bitrate: 160000, TrackID: "es.3", TrackName: "Spanish"},
		{Itag: 251, MimeType: `audio/webm; codecs="opus"`, Bitrate: 150000, TrackID: "en.4", TrackName: "English original", DefaultTrack: true},
		{Itag: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 128000, TrackID: "en.4", TrackName: "English original", DefaultTrack: true},
	}

	tests := []struct {
		name      string
		container string
		language  string
		wantItag  int
		wantTrack string
	}{
		{"default track wins", "", "", 251, "en.4"},
		{"container", "mp4", "", 140, "en.4"},
		{"language by id", "webm", "es", 251, "es.3"},
		{"language by name", "", "spanish", 251, "es.3"},
		{"unknown language takes best", "", "ja", 251, "es.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pickAudio(formats, tt.container, tt.language)
			require.NoError(t, err)
			assert.Equal(t, tt.wantItag, got.Itag)
			assert.Equal(t, tt.wantTrack, got.TrackID)
		})
	}

	_, err := pickAudio(nil, "", "")
	assert.ErrorIs(t, err, ErrNoAudio)
	_, err = pickAudio(formats[:2], "mp4", "")
	assert.ErrorIs(t, err, ErrNoAudio)

	plain := []AudioFormat{{Itag: 140, MimeType: "audio/mp4", Bitrate: 1}}
	got, err := pickAudio(plain, "", "")
	require.NoError(t, err)
	assert.Equal(t, 140, got.Itag)
}

func TestAudioFormatExtension(t *testing.T) {
	assert.Equal(t, ".m4a", AudioFormat{MimeType: "audio/mp4"}.Extension())
	assert.Equal(t, ".webm", AudioFormat{MimeType: "audio/webm"}.Extension())
	assert.Equal(t, ".audio", AudioFormat{MimeType: "audio/ogg"}.Extension())
}

func TestWriteStream(t *testing.T) {
	src := bytes.Repeat([]byte("a"), 70*1024)
	path := filepath.Join(t.TempDir(), "clip.m4a")
	var last int64

	err := writeStream(path, bytes.NewReader(src), int64(len(src)), func(written, total int64) {
		last = written
		assert.Equal(t, int64(len(src)), total)
	})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, len(src))
	assert.Equal(t, int64(len(src)), last)
	assert.NoFileExists(t, path+".part")

	broken := filepath.Join(t.TempDir(), "broken.m4a")
	err = writeStream(broken, io.MultiReader(bytes.NewReader(src), iotest.ErrReader(errors.New("reset"))), 0, nil)
	assert.Error(t, err)
	assert.NoFileExists(t, broken)
	assert.NoFileExists(t, broken+".part")
}

func TestDownloadAudioRequiresOutput(t *testing.T) {
	_, err := NewClient().DownloadAudio(context.Background(), "xxxxxxxxxxx", AudioRequest{})
	assert.ErrorContains(t, err, "output path")
}

func TestFetchCaptionByURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lang") == "missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, format3XML)
	}))
	defer srv.Close()

	c := NewClient()
	video := &VideoInfo{Captions: []CaptionTrack{{LanguageCode: "en", BaseURL: srv.URL + "/api/timedtext?lang=en"}}}

	result, err := c.FetchCaption(context.Background(), video, "en")
	require.NoError(t, err)
	assert.Equal(t, "en", result.LanguageCode)
	assert.Len(t, result.Entries, 2)

	_, err = c.FetchCaptionByURL(context.Background(), srv.URL+"/api/timedtext?lang=missing")
	assert.ErrorContains(t, err, "404")

	_, err = c.FetchCaption(context.Background(), &VideoInfo{}, "en")
	assert.ErrorContains(t, err, "no captions")
}

func newFakeDataAPI(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/search") && q.Get("type") == "channel":
			if q.Get("q") == "Nobody" {
				_, _ = io.WriteString(w, `{"items":[]}`)
				return
			}
			_, _ = io.WriteString(w, `{"items":[{"id":{"kind":"youtube#channel","channelId":"UC-`+q.Get("q")+`"}}]}`)
		case strings.HasSuffix(r.URL.Path, "/search") && q.Get("type") == "video":
			assert.Equal(t, "date", q.Get("order"))
			assert.Equal(t, "50", q.Get("maxResults"))
			_, _ = io.WriteString(w, `{"items":[{"id":{"videoId":"v1"}},{"id":{"videoId":"v2"}}]}`)
		case strings.HasSuffix(r.URL.Path, "/commentThreads"):
			if q.Get("videoId") == "v2" {
				w.WriteHeader(http.StatusForbidden)
				_, _ = io.WriteString(w, `{"error":{"code":403,"message":"commentsDisabled"}}`)
				return
			}
			_, _ = io.WriteString(w, `{"items":[
				{"snippet":{"topLevelComment":{"snippet":{"textOriginal":"Dis tune sweet bad"}}}},
				{"snippet":{"topLevelComment":{"snippet":{"textOriginal":"Big up yuhself"}}}}
			]}`)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestCommentHarvester(t *testing.T) {
	srv := newFakeDataAPI(t)
	defer srv.Close()

	ctx := context.Background()
	h, err := NewCommentHarvester(ctx, "key", zerolog.Nop(), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	id, err := h.ChannelID(ctx, "WhatYuhKnow")
	require.NoError(t, err)
	assert.Equal(t, "UC-WhatYuhKnow", id)

	_, err = h.ChannelID(ctx, "Nobody")
	assert.True(t, errors.Is(err, ErrChannelNotFound))

	comments, err := h.Harvest(ctx, []string{"WhatYuhKnow", "Nobody"})
	assert.Equal(t, []string{"Dis tune sweet bad", "Big up yuhself"}, comments)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "v2")
	assert.Contains(t, err.Error(), "Nobody")
}

func TestNewCommentHarvesterRequiresKey(t *testing.T) {
	_, err := NewCommentHarvester(context.Background(), "", zerolog.Nop())
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []string{"Wagwan", "Mi deh yah, \"cool\""}))
	assert.Equal(t, "Comment\nWagwan\n\"Mi deh yah, \"\"cool\"\"\"\n", buf.String())
}
