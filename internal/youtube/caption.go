package youtube

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"
)

// Caption XML comes in two shapes: format 3 (<timedtext><body><p t d>)
// with optional <s> word segments, and the legacy
// <transcript><text start dur> form with seconds.
type xmlTimedText struct {
	Paragraphs []xmlParagraph `xml:"body>p"`
}

type xmlParagraph struct {
	Start    int64        `xml:"t,attr"`
	Duration int64        `xml:"d,attr"`
	Segments []xmlSegment `xml:"s"`
	Content  string       `xml:",chardata"`
}

type xmlSegment struct {
	Text string `xml:",chardata"`
}

type xmlTranscript struct {
	Texts []xmlLegacyText `xml:"text"`
}

type xmlLegacyText struct {
	Start    float64 `xml:"start,attr"`
	Duration float64 `xml:"dur,attr"`
	Content  string  `xml:",chardata"`
}

// FetchCaption downloads the caption track closest to lang.
func (c *Client) FetchCaption(ctx context.Context, video *VideoInfo, lang string) (*CaptionResult, error) {
	track := video.FindCaption(lang)
	if track == nil {
		return nil, fmt.Errorf("no captions available")
	}

	result, err := c.FetchCaptionByURL(ctx, track.BaseURL)
	if err != nil {
		return nil, err
	}

	result.LanguageCode = track.LanguageCode
	return result, nil
}

// FetchCaptionByURL downloads and parses a caption track.
func (c *Client) FetchCaptionByURL(ctx context.Context, url string) (*CaptionResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return parseCaptionXML(body)
}

func parseCaptionXML(data []byte) (*CaptionResult, error) {
	var root struct {
		XMLName xml.Name
	}
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("XML parse failed: %w", err)
	}

	var entries []CaptionEntry
	switch root.XMLName.Local {
	case "timedtext":
		var doc xmlTimedText
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("XML parse failed: %w", err)
		}
		for _, p := range doc.Paragraphs {
			text := p.Content
			if len(p.Segments) > 0 {
				var sb strings.Builder
				for _, seg := range p.Segments {
					sb.WriteString(seg.Text)
				}
				text = sb.String()
			}
			entries = appendEntry(entries,
				time.Duration(p.Start)*time.Millisecond,
				time.Duration(p.Duration)*time.Millisecond,
				text)
		}
	case "transcript":
		var doc xmlTranscript
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("XML parse failed: %w", err)
		}
		for _, t := range doc.Texts {
			entries = appendEntry(entries,
				time.Duration(t.Start*float64(time.Second)),
				time.Duration(t.Duration*float64(time.Second)),
				t.Content)
		}
	default:
		return nil, fmt.Errorf("unknown caption format: <%s>", root.XMLName.Local)
	}

	if entries == nil {
		entries = []CaptionEntry{}
	}
	return &CaptionResult{Entries: entries}, nil
}

// appendEntry skips blank lines. Legacy captions double-escape entities.
func appendEntry(entries []CaptionEntry, start, dur time.Duration, text string) []CaptionEntry {
	text = strings.TrimSpace(html.UnescapeString(text))
	if text == "" {
		return entries
	}
	return append(entries, CaptionEntry{StartTime: start, Duration: dur, Text: text})
}
