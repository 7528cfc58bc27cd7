// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package content fetches full text for a bounded subset of sources and
// splits it into overlapping chunks for retrieval.
package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/pdiddy/research-pipeline/internal/httputil"
	"github.com/pdiddy/research-pipeline/pkg/types"
)

const (
	defaultMaxFetch        = 5
	defaultMaxContentBytes = 200 << 10
	defaultChunkSize       = 1500
	defaultChunkOverlap    = 200
)

// ChunkStore persists a source's chunks.
type ChunkStore interface {
	StoreChunks(ctx context.Context, sourceID string, chunks []types.ContentChunk) ([]string, error)
}

// Extractor is the content extraction stage.
type Extractor struct {
	client *http.Client
	cfg    types.ContentConfig
	store  ChunkStore
	logger *zap.Logger
}

// NewExtractor builds a content extractor.
func NewExtractor(cfg types.ContentConfig, store ChunkStore, logger *zap.Logger) *Extractor {
	return &Extractor{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		store:  store,
		logger: logger,
	}
}

// ProcessBatch fetches full text for at most MaxFetch sources, chunks
// it, and persists the chunks. A per-source fetch failure is logged and
// skipped. The returned slice mirrors the input with FullContent and
// ChunkIDs filled where extraction succeeded.
func (e *Extractor) ProcessBatch(ctx context.Context, sessionID string, sources []types.AcademicSource) []types.AcademicSource {
	maxFetch := e.cfg.MaxFetch
	if maxFetch <= 0 {
		maxFetch = defaultMaxFetch
	}

	out := make([]types.AcademicSource, len(sources))
	copy(out, sources)

	fetched := 0
	for i := range out {
		if fetched == maxFetch {
			break
		}
		src := &out[i]
		if src.URL == "" || src.ID == "" {
			continue
		}
		fetched++

		text, err := e.fetchText(ctx, src.URL)
		if err != nil {
			e.logger.Warn("content fetch failed, skipping source",
				zap.String("session_id", sessionID),
				zap.String("url", src.URL),
				zap.Error(err),
			)
			continue
		}
		if text == "" {
			continue
		}

		src.FullContent = text

		chunks := e.toChunks(src.ID, text)
		ids, err := e.store.StoreChunks(ctx, src.ID, chunks)
		if err != nil {
			e.logger.Warn("persisting chunks failed",
				zap.String("source_id", src.ID),
				zap.Error(err),
			)
			continue
		}
		src.ChunkIDs = ids
	}

	return out
}

// fetchText downloads a URL and extracts readable text. HTML is parsed
// with script and style elements stripped; plain text passes through.
// Other content types are skipped.
func (e *Extractor) fetchText(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", e.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, e.client, req, 0)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: HTTP %d", rawURL, resp.StatusCode)
	}

	maxBytes := e.cfg.MaxContentBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxContentBytes
	}
	body := io.LimitReader(resp.Body, int64(maxBytes))

	contentType := resp.Header.Get("Content-Type")
	switch {
	case strings.Contains(contentType, "text/html"):
		return htmlToText(body)
	case strings.Contains(contentType, "text/plain"):
		data, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("reading body: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return "", nil
	}
}

// htmlToText extracts the visible text of an HTML document.
func htmlToText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	doc.Find("script, style, noscript, nav, header, footer").Remove()

	var parts []string
	doc.Find("body").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			parts = append(parts, text)
		}
	})

	return strings.Join(strings.Fields(strings.Join(parts, " ")), " "), nil
}

// toChunks splits text into ContentChunks with configured size and
// overlap, offsets in runes.
func (e *Extractor) toChunks(sourceID, text string) []types.ContentChunk {
	pieces := Chunk(text, e.cfg.ChunkSize, e.cfg.ChunkOverlap)

	size := e.cfg.ChunkSize
	if size <= 0 {
		size = defaultChunkSize
	}
	overlap := e.cfg.ChunkOverlap
	if overlap < 0 || overlap >= size {
		overlap = defaultChunkOverlap
	}

	chunks := make([]types.ContentChunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = types.ContentChunk{
			SourceID: sourceID,
			Text:     piece,
			Offset:   i * (size - overlap),
		}
	}
	return chunks
}

// Chunk splits text into fixed-size rune windows with the given
// overlap. Size and overlap fall back to defaults when out of range.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = defaultChunkOverlap
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var pieces []string
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return pieces
}
