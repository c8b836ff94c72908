package questiongen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abhisek/assessgen/internal/catalog"
)

// PlanItem is the number of questions of one type.
type PlanItem struct {
	Type  QuestionType `json:"type"`
	Count int          `json:"count"`
}

// Plan is an ordered question type distribution.
type Plan []PlanItem

// Total is the number of questions the plan asks for.
func (p Plan) Total() int {
	n := 0
	for _, it := range p {
		n += it.Count
	}
	return n
}

// Slots expands the plan into one entry per question, in plan order.
func (p Plan) Slots() []QuestionType {
	out := make([]QuestionType, 0, p.Total())
	for _, it := range p {
		for range it.Count {
			out = append(out, it.Type)
		}
	}
	return out
}

// String renders the plan as "mcq=10 pseudo_mcq=5 ...".
func (p Plan) String() string {
	parts := make([]string, len(p))
	for i, it := range p {
		parts[i] = fmt.Sprintf("%s=%d", it.Type, it.Count)
	}
	return strings.Join(parts, " ")
}

// planFromSlots groups consecutive slots back into plan items.
func planFromSlots(slots []QuestionType) Plan {
	var p Plan
	for _, t := range slots {
		p = p.add(t, 1)
	}
	return p
}

// add merges count into the item for t, appending it if absent.
func (p Plan) add(t QuestionType, count int) Plan {
	if count <= 0 {
		return p
	}
	for i := range p {
		if p[i].Type == t {
			p[i].Count += count
			return p
		}
	}
	return append(p, PlanItem{Type: t, Count: count})
}

type categoryPattern struct {
	name     string
	keywords []string
	pattern  []PlanItem
}

// Planner maps a role or subject label to a Plan. It holds no mutable
// state and is safe for concurrent use.
type Planner struct {
	categories []categoryPattern
	fallback   categoryPattern
	baseTotal  int
}

// NewPlanner builds a Planner from the catalog's role categories.
func NewPlanner(cat *catalog.Catalog) (*Planner, error) {
	if cat == nil {
		cat = catalog.Default()
	}
	p := &Planner{baseTotal: cat.BaseTotal}
	for _, rc := range cat.RoleCategories {
		cp := categoryPattern{name: rc.Name}
		for _, kw := range rc.Keywords {
			cp.keywords = append(cp.keywords, normalizeLabel(kw))
		}
		for _, it := range rc.Pattern {
			t, ok := ParseType(it.Type)
			if !ok {
				return nil, fmt.Errorf("category %q: unknown question type %q", rc.Name, it.Type)
			}
			cp.pattern = append(cp.pattern, PlanItem{Type: t, Count: it.Count})
		}
		p.categories = append(p.categories, cp)
		if rc.Name == cat.DefaultCategory {
			p.fallback = cp
		}
	}
	return p, nil
}

// Category returns the name of the category label falls into.
func (p *Planner) Category(label string) string {
	return p.match(label).name
}

// Plan returns the distribution for label scaled to total questions. A
// non-positive total uses the catalog base total. Identical inputs always
// produce identical plans.
func (p *Planner) Plan(label string, total int) Plan {
	if total <= 0 {
		total = p.baseTotal
	}
	cat := p.match(label)
	counts := apportion(cat.pattern, p.baseTotal, total)

	var plan Plan
	for i, it := range cat.pattern {
		if it.Type == TypeAptitude {
			apt, reasoning := splitAptitude(counts[i])
			plan = plan.add(TypeAptitude, apt)
			plan = plan.add(TypeReasoning, reasoning)
			continue
		}
		plan = plan.add(it.Type, counts[i])
	}
	return plan
}

func (p *Planner) match(label string) categoryPattern {
	norm := normalizeLabel(label)
	if norm != "" {
		for _, c := range p.categories {
			for _, kw := range c.keywords {
				if kw != "" && strings.Contains(norm, kw) {
					return c
				}
			}
		}
	}
	return p.fallback
}

// splitAptitude divides an aptitude count between aptitude and reasoning;
// the odd unit goes to reasoning.
func splitAptitude(n int) (aptitude, reasoning int) {
	aptitude = n / 2
	return aptitude, n - aptitude
}

// apportion scales pattern counts from base to total with the largest
// remainder method, so the result always sums to total.
func apportion(pattern []PlanItem, base, total int) []int {
	counts := make([]int, len(pattern))
	if base <= 0 || len(pattern) == 0 {
		return counts
	}

	rems := make([]int, len(pattern))
	sum := 0
	for i, it := range pattern {
		n := it.Count * total
		counts[i] = n / base
		rems[i] = n % base
		sum += counts[i]
	}

	order := make([]int, len(pattern))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return rems[order[a]] > rems[order[b]] })

	for i := 0; sum < total; i = (i + 1) % len(order) {
		counts[order[i]]++
		sum++
	}
	return counts
}

func normalizeLabel(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("-", " ", "_", " ", "/", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
