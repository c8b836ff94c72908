package topics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/abhisek/assessgen/internal/catalog"
	"github.com/abhisek/assessgen/internal/llm"
)

func TestExtract_BinaryTreeScenario(t *testing.T) {
	e := NewExtractor(nil, catalog.Default(), nil)

	topics, tier := e.Extract(context.Background(),
		"Binary trees: insertion, deletion, traversal. Covers BST and AVL rotations.")

	assert.Equal(t, TierRules, tier)
	assert.Contains(t, topics, "Binary trees")
	assert.Contains(t, topics, "AVL rotations")
	assert.Equal(t, []string{"Binary trees", "insertion", "deletion", "BST", "AVL rotations"}, topics)
}

func TestExtract_NeverEmpty(t *testing.T) {
	e := NewExtractor(nil, catalog.Default(), nil)

	inputs := []string{"", "   ", "basics", "Concepts. Operations!", "1. 2. 3.", "https://example.com/syllabus"}
	for _, in := range inputs {
		topics, _ := e.Extract(context.Background(), in)
		require.NotEmpty(t, topics, "input %q", in)
		assert.LessOrEqual(t, len(topics), MaxTopics)
	}

	topics, tier := e.Extract(context.Background(), "")
	assert.Equal(t, TierTerminal, tier)
	assert.Equal(t, []string{"Core Concepts"}, topics)
}

func TestExtract_AITier(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockText("```json\n" + `["Binary search trees", "AVL", "Tree traversal", "Heap", "binary search trees", 42]` + "\n```"))
	e := NewExtractor(mock, catalog.Default(), nil)

	topics, tier := e.Extract(context.Background(), "Trees and heaps")

	assert.Equal(t, TierAI, tier)
	assert.Equal(t, []string{"Binary search trees", "Tree traversal", "Heap"}, topics)
	require.Equal(t, 1, mock.CallCount())
	assert.Contains(t, mock.LastUserMessage(), "Trees and heaps")
}

func TestExtract_AITierCapsAtEight(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockJSON([]string{
		"Topic one", "Topic two", "Topic three", "Topic four", "Topic five",
		"Topic six", "Topic seven", "Topic eight", "Topic nine", "Topic ten",
	}))
	e := NewExtractor(mock, nil, nil)

	topics, err := e.FromAI(context.Background(), "ten topics")
	require.NoError(t, err)
	assert.Len(t, topics, MaxTopics)
	assert.Equal(t, "Topic eight", topics[7])
}

func TestExtract_AIFailureFallsBackToRules(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	mock := llm.NewMockProvider(
		llm.MockText("Sorry, I can't do that."),
	)
	e := NewExtractor(mock, catalog.Default(), zap.New(core))

	topics, tier := e.Extract(context.Background(), "Graphs: BFS, DFS")

	assert.Equal(t, TierRules, tier)
	assert.Equal(t, []string{"Graphs", "BFS", "DFS"}, topics)
	assert.Equal(t, 1, logs.FilterMessage("ai topic extraction failed, falling back to rules").Len())
}

func TestExtract_AIShortTopicsOnlyFallsBack(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockJSON([]string{"BST", "AVL"}))
	e := NewExtractor(mock, catalog.Default(), nil)

	_, err := e.FromAI(context.Background(), "trees")
	assert.True(t, errors.Is(err, ErrNoTopics))
}

func TestExtract_TransportErrorFallsBack(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("down")}})
	e := NewExtractor(mock, catalog.Default(), nil)

	topics, tier := e.Extract(context.Background(), "Sorting, searching and recursion")
	assert.Equal(t, TierRules, tier)
	assert.Equal(t, []string{"Sorting", "searching", "recursion"}, topics)
}

func TestExtract_DomainTier(t *testing.T) {
	e := NewExtractor(nil, catalog.Default(), nil)

	text := "This unit walks through how a stack differs from a queue when both are built on a linked list in memory"
	topics, tier := e.Extract(context.Background(), text)

	assert.Equal(t, TierDomain, tier)
	assert.Equal(t, []string{"Linked List", "Stack", "Queue"}, topics)
}

func TestFromRules(t *testing.T) {
	e := NewExtractor(nil, catalog.Default(), nil)

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "numbered list",
			in:   "1. Linked lists\n2. Hash tables\n3) Graph search",
			want: []string{"Linked lists", "Hash tables", "Graph search"},
		},
		{
			name: "urls stripped",
			in:   "Dynamic programming (https://example.org/dp). Memoization",
			want: []string{"Dynamic programming", "Memoization"},
		},
		{
			name: "colon keeps two clauses",
			in:   "Sorting: quicksort, mergesort, heapsort, radix sort",
			want: []string{"Sorting", "quicksort", "mergesort"},
		},
		{
			name: "filler and generic terms",
			in:   "Introduction to compilers; basics; includes parsing and code generation",
			want: []string{"compilers", "parsing", "code generation"},
		},
		{
			name: "case-insensitive dedup",
			in:   "Recursion. recursion. RECURSION",
			want: []string{"Recursion"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.FromRules(tt.in))
		})
	}
}

func TestFromRules_CapsAtEight(t *testing.T) {
	e := NewExtractor(nil, catalog.Default(), nil)
	got := e.FromRules("Alpha, Beta, Gamma, Delta, Epsilon, Zeta, Theta, Iota, Kappa, Lambda")
	assert.Len(t, got, MaxTopics)
}

func TestFromDomains_NeedsTwoMatches(t *testing.T) {
	e := NewExtractor(nil, catalog.Default(), nil)

	assert.Empty(t, e.FromDomains("only a heap here"))
	assert.Equal(t, []string{"OSI Model", "TCP", "Routing"}, e.FromDomains("the osi model, tcp and routing"))
}

func TestFromDomains_WholeWords(t *testing.T) {
	e := NewExtractor(nil, catalog.Default(), nil)
	// "stacked" and "queued" must not count as stack/queue.
	assert.Empty(t, e.FromDomains("stacked boxes queued up"))
}
