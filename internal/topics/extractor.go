// Package topics turns a free-form curriculum description into a short,
// ordered list of concrete study topics.
package topics

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/abhisek/assessgen/internal/catalog"
	"github.com/abhisek/assessgen/internal/llm"
)

const (
	// MaxTopics bounds the result of every tier.
	MaxTopics = 8

	maxDomainTopics = 6
	minAITopicLen   = 4
	minRuleTopicLen = 3
	maxRuleWords    = 8
	minDomainHits   = 2
)

// Tier identifies which extraction strategy produced the topics.
type Tier string

const (
	TierAI       Tier = "ai"
	TierRules    Tier = "rules"
	TierDomain   Tier = "domain"
	TierTerminal Tier = "terminal"
)

// ErrNoTopics is returned by a tier that produced nothing usable.
var ErrNoTopics = errors.New("no usable topics")

const systemPrompt = `You are a university curriculum analyst.

Rules:
- Read the curriculum description and list the concrete study topics it covers.
- Return ONLY a JSON array of 5 to 8 strings. No prose, no code fences.
- Each topic is a short noun phrase (2 to 6 words) naming a specific concept, technique or structure.
- Do not return generic words such as "basics", "concepts" or "operations" on their own.
- Keep the order in which topics appear in the curriculum.`

var (
	numberingRe = regexp.MustCompile(`(?m)^\s*(?:\(?\d+[.)]|[a-zA-Z][.)]|[-*•·▪])\s+`)
	urlRe       = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s)\]]*[^\s)\].,;!?]`)
	sentenceRe  = regexp.MustCompile(`[.!?;\n]+`)
	andRe       = regexp.MustCompile(`(?i)\s+and\s+|\s*&\s*`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

type domainMatcher struct {
	name     string
	keywords []string
	patterns []*regexp.Regexp
}

// Extractor runs the tiered topic extraction. A nil provider disables the
// AI tier.
type Extractor struct {
	provider llm.Provider
	catalog  *catalog.Catalog
	logger   *zap.Logger
	domains  []domainMatcher
	fillers  []string
}

// NewExtractor creates an Extractor.
func NewExtractor(provider llm.Provider, cat *catalog.Catalog, logger *zap.Logger) *Extractor {
	if cat == nil {
		cat = catalog.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Extractor{
		provider: provider,
		catalog:  cat,
		logger:   logger,
	}

	for _, d := range cat.Domains {
		m := domainMatcher{name: d.Name}
		for _, kw := range d.Keywords {
			m.keywords = append(m.keywords, kw)
			m.patterns = append(m.patterns, wordPattern(kw))
		}
		e.domains = append(e.domains, m)
	}

	e.fillers = make([]string, len(cat.FillerPhrases))
	copy(e.fillers, cat.FillerPhrases)
	sort.SliceStable(e.fillers, func(i, j int) bool {
		return len(e.fillers[i]) > len(e.fillers[j])
	})

	return e
}

// Extract returns 1 to MaxTopics topics for the curriculum. It never fails:
// when every tier comes up empty the catalog's terminal topic is returned.
func (e *Extractor) Extract(ctx context.Context, curriculum string) ([]string, Tier) {
	text := strings.TrimSpace(curriculum)

	if text != "" && e.provider != nil {
		topics, err := e.FromAI(ctx, text)
		if err == nil {
			e.logger.Debug("topics extracted", zap.String("tier", string(TierAI)), zap.Strings("topics", topics))
			return topics, TierAI
		}
		e.logger.Info("ai topic extraction failed, falling back to rules", zap.Error(err))
	}

	if topics := e.FromRules(text); len(topics) > 0 {
		e.logger.Debug("topics extracted", zap.String("tier", string(TierRules)), zap.Strings("topics", topics))
		return topics, TierRules
	}

	if topics := e.FromDomains(text); len(topics) > 0 {
		e.logger.Debug("topics extracted", zap.String("tier", string(TierDomain)), zap.Strings("topics", topics))
		return topics, TierDomain
	}

	e.logger.Warn("no topics found, using terminal label", zap.String("topic", e.catalog.TerminalTopic))
	return []string{e.catalog.TerminalTopic}, TierTerminal
}

// FromAI asks the provider for a JSON array of topics. Topics shorter than
// four characters are rejected and the list is truncated to MaxTopics.
func (e *Extractor) FromAI(ctx context.Context, curriculum string) ([]string, error) {
	if e.provider == nil {
		return nil, &llm.ErrProviderUnavailable{}
	}

	ctx = llm.WithPurpose(ctx, llm.PurposeTopicExtract)
	req := llm.UserRequest(systemPrompt, "Curriculum:\n"+curriculum, 512, 0.2)

	res := llm.GenerateJSON(ctx, e.provider, req, llm.ShapeArray, nil)
	if !res.OK() {
		return nil, res.Err()
	}

	var items []any
	if err := res.Decode(&items); err != nil {
		return nil, err
	}

	var acc accumulator
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			continue
		}
		s = cleanCandidate(s)
		if len(s) < minAITopicLen {
			continue
		}
		if acc.add(s) == MaxTopics {
			break
		}
	}
	if len(acc.items) == 0 {
		return nil, fmt.Errorf("ai tier: %w", ErrNoTopics)
	}
	return acc.items, nil
}

// FromRules segments the curriculum text into candidate topics without any
// external calls.
func (e *Extractor) FromRules(curriculum string) []string {
	text := urlRe.ReplaceAllString(curriculum, " ")
	text = numberingRe.ReplaceAllString(text, "")

	var acc accumulator
	for _, seg := range sentenceRe.Split(text, -1) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}

		var candidates []string
		if head, tail, ok := strings.Cut(seg, ":"); ok {
			candidates = append(candidates, e.stripFiller(head))
			parts := strings.Split(tail, ",")
			if len(parts) > 2 {
				parts = parts[:2]
			}
			candidates = append(candidates, parts...)
		} else {
			for _, part := range strings.Split(e.stripFiller(seg), ",") {
				candidates = append(candidates, andRe.Split(part, -1)...)
			}
		}

		for _, c := range candidates {
			c = cleanCandidate(c)
			if !e.usableRuleTopic(c) {
				continue
			}
			if acc.add(c) == MaxTopics {
				return acc.items
			}
		}
	}
	return acc.items
}

// FromDomains matches the curriculum against the catalog's domain keyword
// sets. The domain with the most matches wins if it has at least two; its
// matched phrases are returned title-cased in catalog order.
func (e *Extractor) FromDomains(curriculum string) []string {
	text := strings.ToLower(curriculum)

	var best []string
	for _, d := range e.domains {
		var matched []string
		for i, p := range d.patterns {
			if p.MatchString(text) {
				matched = append(matched, d.keywords[i])
			}
		}
		if len(matched) >= minDomainHits && len(matched) > len(best) {
			best = matched
		}
	}

	if len(best) > maxDomainTopics {
		best = best[:maxDomainTopics]
	}
	caser := cases.Title(language.English)
	out := make([]string, 0, len(best))
	for _, kw := range best {
		out = append(out, titleCase(caser, kw))
	}
	return out
}

func (e *Extractor) stripFiller(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, f := range e.fillers {
		if lower == f {
			return ""
		}
		if strings.HasPrefix(lower, f+" ") {
			return strings.TrimSpace(s[len(f):])
		}
	}
	return s
}

func (e *Extractor) usableRuleTopic(s string) bool {
	if len(s) < minRuleTopicLen || e.catalog.IsGeneric(s) {
		return false
	}
	if len(strings.Fields(s)) > maxRuleWords {
		return false
	}
	return strings.IndexFunc(s, isLetter) >= 0
}

// titleCase capitalizes lower-case words and leaves acronyms alone.
func titleCase(caser cases.Caser, s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == strings.ToLower(w) {
			words[i] = caser.String(w)
		}
	}
	return strings.Join(words, " ")
}

// accumulator collects topics in order, dropping case-insensitive repeats.
type accumulator struct {
	items []string
	seen  map[string]bool
}

func (a *accumulator) add(s string) int {
	if a.seen == nil {
		a.seen = make(map[string]bool)
	}
	key := strings.ToLower(s)
	if !a.seen[key] {
		a.seen[key] = true
		a.items = append(a.items, s)
	}
	return len(a.items)
}

func cleanCandidate(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.Trim(s, " \t\"'`()[]{}-–—:,")
}

func wordPattern(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^\pL\pN])` + regexp.QuoteMeta(strings.ToLower(phrase)) + `(?:$|[^\pL\pN])`)
}

func isLetter(r rune) bool {
	return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || r > 127
}
