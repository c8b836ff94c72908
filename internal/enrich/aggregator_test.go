package enrich

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/abhisek/assessgen/internal/acquire"
	"github.com/abhisek/assessgen/internal/catalog"
	"github.com/abhisek/assessgen/internal/llm"
)

type fakeSource struct {
	byTopic map[string][]acquire.Snippet
	calls   int
	panics  bool
}

func (f *fakeSource) AcquireAll(_ context.Context, topics []string) [][]acquire.Snippet {
	f.calls++
	if f.panics {
		panic("search backend exploded")
	}
	out := make([][]acquire.Snippet, len(topics))
	for i, t := range topics {
		out[i] = f.byTopic[t]
	}
	return out
}

func TestEnrich_WebContent(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockJSON([]string{"Binary search trees", "Tree traversal"}),
		llm.MockJSON([]string{"Rotations", "Traversal orders"}),
		llm.MockText(`Here: ["Prove that an AVL tree of height h has at least F(h) nodes."]`),
	)
	source := &fakeSource{byTopic: map[string][]acquire.Snippet{
		"Binary search trees": {
			{
				URL: "https://en.wikipedia.org/wiki/BST", Title: "BST", Summary: "A BST keeps keys ordered.",
				Equations:    []string{"O(h)"},
				Applications: []string{"Database indexes", "Symbol tables", "Sets", "Maps", "Routers", "Compilers"},
			},
			{
				URL: "https://www.geeksforgeeks.org/bst", Summary: "Second summary is ignored.",
				Applications: []string{"database indexes", "File systems", "Caches", "Schedulers", "Games", "Search"},
			},
		},
		"Tree traversal": {{URL: "https://example.edu/empty"}},
	}}
	agg := NewAggregator(mock, source, catalog.Default(), nil)

	ec, err := agg.Enrich(context.Background(), "Design and analyze binary search trees")
	require.NoError(t, err)

	assert.Equal(t, []string{"Binary search trees", "Tree traversal"}, ec.KeyTopics)
	assert.Equal(t, "A BST keeps keys ordered.", ec.ConceptExplanations["Binary search trees"])
	assert.Contains(t, ec.ConceptExplanations["Tree traversal"], "Tree traversal is a foundational idea")
	assert.Equal(t, []EquationExample{{LaTeX: "O(h)", Description: "Binary search trees (BST)"}}, ec.EquationExamples)
	assert.Len(t, ec.RealWorldApplications, MaxApplications)
	assert.Equal(t, "Database indexes", ec.RealWorldApplications[0])
	assert.NotContains(t, ec.RealWorldApplications, "database indexes")
	assert.Equal(t, []string{"https://en.wikipedia.org/wiki/BST", "https://www.geeksforgeeks.org/bst"}, ec.Sources)
	assert.Equal(t, []string{"Rotations", "Traversal orders"}, ec.CommonlyTestedAreas)
	assert.Len(t, ec.UniversityLevelExamples, 1)
	assert.Equal(t, 6, ec.SuggestedBloomsLevel)
	assert.False(t, ec.Synthesized)
	assert.False(t, ec.Rederived)
	assert.Equal(t, 0, mock.Pending())
}

func TestEnrich_SynthesizesWhenNothingAcquired(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockText("not json"), // topics: fall back to rules
		llm.MockJSON(map[string]any{
			"conceptExplanations":   map[string]string{"Binary trees": "Trees with two children."},
			"realWorldApplications": []string{"Indexing"},
		}),
		llm.MockJSON([]string{"Rotations"}),
		llm.MockJSON([]string{"Explain AVL balancing."}),
	)
	source := &fakeSource{}
	agg := NewAggregator(mock, source, catalog.Default(), nil)

	ec, err := agg.Enrich(context.Background(),
		"Binary trees: insertion, deletion, traversal. Covers BST and AVL rotations.")
	require.NoError(t, err)

	assert.True(t, ec.Synthesized)
	assert.Equal(t, 1, source.calls)
	assert.Contains(t, ec.KeyTopics, "Binary trees")
	assert.Contains(t, ec.KeyTopics, "AVL rotations")
	assert.Equal(t, "Trees with two children.", ec.ConceptExplanations["Binary trees"])
	assert.Len(t, ec.ConceptExplanations, len(ec.KeyTopics))
	assert.Equal(t, []string{"Indexing"}, ec.RealWorldApplications)
	assert.Equal(t, 4, ec.SuggestedBloomsLevel)
}

func TestEnrich_NoProviderNoSource(t *testing.T) {
	agg := NewAggregator(nil, nil, catalog.Default(), nil)

	ec, err := agg.Enrich(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"Core Concepts"}, ec.KeyTopics)
	assert.True(t, ec.Synthesized)
	assert.NotEmpty(t, ec.RealWorldApplications)
	assert.LessOrEqual(t, len(ec.CommonlyTestedAreas), MaxTestedAreas)
	assert.LessOrEqual(t, len(ec.UniversityLevelExamples), MaxExampleStems)
	assert.Equal(t, 4, ec.SuggestedBloomsLevel)
}

func TestEnrich_RederivesAfterPanic(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	mock := llm.NewMockProvider(
		llm.MockJSON([]string{"Heaps and priority queues"}), // first attempt, before the panic
		llm.MockJSON([]string{"Binary heaps", "Heap sort"}), // re-derivation topics
		llm.MockJSON(map[string]any{
			"conceptExplanations": map[string]string{"Binary heaps": "Complete trees with the heap property."},
		}),
		llm.MockJSON([]string{"Heapify"}),
		llm.MockJSON([]string{"Analyze heap sort."}),
	)
	agg := NewAggregator(mock, &fakeSource{panics: true}, catalog.Default(), zap.New(core))

	ec, err := agg.Enrich(context.Background(), "Heaps")
	require.NoError(t, err)

	assert.True(t, ec.Rederived)
	assert.Equal(t, []string{"Binary heaps", "Heap sort"}, ec.KeyTopics)
	assert.Equal(t, "Complete trees with the heap property.", ec.ConceptExplanations["Binary heaps"])
	assert.Equal(t, []string{"Heapify"}, ec.CommonlyTestedAreas)
	assert.Equal(t, []string{"Analyze heap sort."}, ec.UniversityLevelExamples)

	entries := logs.FilterMessage("enrichment failed, re-deriving from the model alone").All()
	require.Len(t, entries, 1)
	assert.True(t, strings.Contains(entries[0].ContextMap()["error"].(string), "search backend exploded"))
}

func TestEnrich_RederiveWithoutProvider(t *testing.T) {
	agg := NewAggregator(nil, &fakeSource{panics: true}, catalog.Default(), nil)

	ec, err := agg.Enrich(context.Background(), "Heaps")
	require.NoError(t, err)
	assert.True(t, ec.Rederived)
	assert.Equal(t, []string{"Core Concepts"}, ec.KeyTopics)
}

func TestEnrich_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg := NewAggregator(nil, &fakeSource{}, catalog.Default(), nil)
	_, err := agg.Enrich(ctx, "Heaps")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPromptContext(t *testing.T) {
	ec := &EnrichedCurriculum{
		KeyTopics:             []string{"Heaps", "Tries"},
		ConceptExplanations:   map[string]string{"Heaps": "Priority structures.", "Tries": "Prefix trees."},
		EquationExamples:      []EquationExample{{LaTeX: "O(\\log n)", Description: "insert"}},
		RealWorldApplications: []string{"Schedulers"},
		CommonlyTestedAreas:   []string{"Heapify"},
		SuggestedBloomsLevel:  3,
	}
	got := ec.PromptContext()

	assert.Contains(t, got, "Key topics: Heaps, Tries")
	assert.True(t, strings.Index(got, "- Heaps: Priority structures.") < strings.Index(got, "- Tries: Prefix trees."))
	assert.Contains(t, got, "- O(\\log n) (insert)")
	assert.Contains(t, got, "Real-world applications:\n- Schedulers")
	assert.Contains(t, got, "Suggested Bloom's level: 3 (Apply)")
	assert.NotContains(t, got, "University-level example questions")
}
