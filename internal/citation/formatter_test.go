// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/research-pipeline/internal/config"
	"github.com/pdiddy/research-pipeline/internal/llm"
	"github.com/pdiddy/research-pipeline/pkg/types"
)

type stubGenerator struct {
	text  string
	err   error
	calls int
}

func (s *stubGenerator) Generate(_ context.Context, _ llm.Request) (string, error) {
	s.calls++
	return s.text, s.err
}

type memCitationStore struct {
	stored map[types.Style][]types.Citation
}

func (m *memCitationStore) StoreCitations(_ context.Context, _ string, byStyle map[types.Style][]types.Citation) error {
	m.stored = byStyle
	return nil
}

func testFormatter(t *testing.T, gen llm.Generator, primaryStyle string) (*Formatter, *memCitationStore) {
	t.Helper()
	prompts, err := config.NewProvider(types.PipelineConfig{
		Citation: types.CitationConfig{PrimaryStyle: primaryStyle},
	})
	require.NoError(t, err)
	store := &memCitationStore{}
	return NewFormatter(gen, prompts, store, zap.NewNop()), store
}

func paperSource(id, url string) types.AcademicSource {
	return types.AcademicSource{
		ID: id, Title: "Surface Codes", URL: url,
		Authors: []string{"Jane Smith", "Bob Jones"}, PublicationYear: "2019",
		PublicationVenue: "Physical Review A", SourceType: types.SourceAcademicPaper,
	}
}

func webSource(id, url string) types.AcademicSource {
	return types.AcademicSource{
		ID: id, Title: "QEC Explained", URL: url,
		PublicationYear: "2021", SourceType: types.SourceWebPage,
	}
}

const modelJSON = `{"reference_list_entry": "Smith, J & Jones, B 2019, 'Surface Codes', Physical Review A.",
	"in_text_citation": {"information_prominent": "(Smith & Jones 2019)"}}`

func TestFormatModelPathPrimaryStyle(t *testing.T) {
	gen := &stubGenerator{text: modelJSON}
	f, store := testFormatter(t, gen, "harvard")

	byStyle, err := f.Format(context.Background(), "sess", []types.AcademicSource{
		paperSource("src-1", "https://a.example/paper"),
	})
	require.NoError(t, err)

	harvard := byStyle[types.StyleHarvard]
	require.Len(t, harvard, 1)
	assert.Equal(t, "(Smith & Jones 2019)", harvard[0].InText)
	assert.Contains(t, harvard[0].Formatted, "Surface Codes")

	// Non-primary styles are deterministic regardless of model success.
	for _, style := range []types.Style{types.StyleAPA, types.StyleMLA, types.StyleChicago} {
		require.Len(t, byStyle[style], 1, "style %s", style)
		assert.Contains(t, byStyle[style][0].Formatted, "https://a.example/paper")
	}

	assert.Equal(t, byStyle, store.stored)
}

func TestFormatExactlyOnePrimaryCitationPerSource(t *testing.T) {
	gen := &stubGenerator{text: modelJSON}
	f, _ := testFormatter(t, gen, "harvard")

	sources := []types.AcademicSource{
		paperSource("src-1", "https://a.example"),
		webSource("src-2", "https://b.example"),
		{ID: "src-3", Title: "", URL: "https://c.example"}, // not citable
		{ID: "src-4", Title: "No URL"},                     // not citable
	}

	byStyle, err := f.Format(context.Background(), "sess", sources)
	require.NoError(t, err)

	harvard := byStyle[types.StyleHarvard]
	require.Len(t, harvard, 2)
	seen := map[string]int{}
	for _, c := range harvard {
		seen[c.SourceID]++
	}
	assert.Equal(t, map[string]int{"src-1": 1, "src-2": 1}, seen)
}

func TestFormatFallbackOnModelFailure(t *testing.T) {
	tests := []struct {
		name string
		gen  *stubGenerator
	}{
		{"call error", &stubGenerator{err: errors.New("providers down")}},
		{"undecodable output", &stubGenerator{text: "sorry, cannot do that"}},
		{"missing fields", &stubGenerator{text: `{"reference_list_entry": ""}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := testFormatter(t, tt.gen, "harvard")
			src := webSource("src-1", "https://fallback.example/page")

			byStyle, err := f.Format(context.Background(), "sess", []types.AcademicSource{src})
			require.NoError(t, err)

			harvard := byStyle[types.StyleHarvard]
			require.Len(t, harvard, 1, "fallback must produce exactly one primary citation")
			assert.Contains(t, harvard[0].Formatted, "https://fallback.example/page",
				"fallback citation must contain the source URL verbatim")
		})
	}
}

func TestFormatNeverBothModelAndFallback(t *testing.T) {
	gen := &stubGenerator{text: modelJSON}
	f, _ := testFormatter(t, gen, "harvard")

	byStyle, err := f.Format(context.Background(), "sess", []types.AcademicSource{
		paperSource("src-1", "https://a.example"),
	})
	require.NoError(t, err)
	assert.Len(t, byStyle[types.StyleHarvard], 1)
	// The model path succeeded, so the stored entry is the model's.
	assert.Equal(t, "(Smith & Jones 2019)", byStyle[types.StyleHarvard][0].InText)
}

func TestFormatPrimaryStyleConfigurable(t *testing.T) {
	gen := &stubGenerator{text: modelJSON}
	f, _ := testFormatter(t, gen, "apa")

	byStyle, err := f.Format(context.Background(), "sess", []types.AcademicSource{
		paperSource("src-1", "https://a.example"),
	})
	require.NoError(t, err)

	// APA got the model output, Harvard got the template.
	assert.Equal(t, "(Smith & Jones 2019)", byStyle[types.StyleAPA][0].InText)
	assert.Contains(t, byStyle[types.StyleHarvard][0].Formatted, "https://a.example")
	assert.Equal(t, 1, gen.calls, "only the primary style goes through the model")
}

func TestFormatSkipsUnusableSources(t *testing.T) {
	gen := &stubGenerator{text: modelJSON}
	f, _ := testFormatter(t, gen, "harvard")

	byStyle, err := f.Format(context.Background(), "sess", []types.AcademicSource{
		{ID: "src-1", Title: "", URL: ""},
	})
	require.NoError(t, err)
	assert.Empty(t, byStyle)
	assert.Equal(t, 0, gen.calls)
}
