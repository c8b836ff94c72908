package render

import (
	"fmt"
	"strings"

	"github.com/abhisek/assessgen/internal/llm"
	"github.com/abhisek/assessgen/internal/store"
)

const timeLayout = "2006-01-02 15:04:05"

func rule(n int) string {
	return Dim.Render(strings.Repeat("─", n))
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func okMark(ok bool) string {
	if ok {
		return Correct.Render("✓")
	}
	return Warning.Render("✗")
}

// LLMEvents renders recorded model calls, one per line.
func LLMEvents(events []store.LLMRequestEvent) string {
	if len(events) == 0 {
		return Dim.Render("No LLM events found.") + "\n"
	}
	var b strings.Builder
	b.WriteString(Heading.Render(fmt.Sprintf("%-5s  %-19s  %-16s  %-28s  %6s  %6s  %7s  %s",
		"ID", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")))
	b.WriteString("\n" + rule(104) + "\n")
	for _, e := range events {
		fmt.Fprintf(&b, "%-5d  %-19s  %-16s  %-28s  %6d  %6d  %7d  %s\n",
			e.ID,
			e.Timestamp.Local().Format(timeLayout),
			clip(e.Purpose, 16),
			clip(e.Model, 28),
			e.InputTokens,
			e.OutputTokens,
			e.LatencyMs,
			okMark(e.Success),
		)
	}
	return b.String()
}

// LLMEvent renders one model call with its full request and response.
func LLMEvent(e *store.LLMRequestEvent) string {
	var b strings.Builder
	field := func(name, value string) {
		fmt.Fprintf(&b, "%s %s\n", Label.Render(fmt.Sprintf("%-9s", name+":")), value)
	}
	field("ID", fmt.Sprint(e.ID))
	field("Sequence", fmt.Sprint(e.Sequence))
	field("Time", e.Timestamp.Local().Format(timeLayout))
	field("Provider", e.Provider)
	field("Model", e.Model)
	field("Purpose", e.Purpose)
	field("Tokens", fmt.Sprintf("%d in / %d out", e.InputTokens, e.OutputTokens))
	field("Latency", fmt.Sprintf("%dms", e.LatencyMs))
	field("Success", okMark(e.Success))
	if e.ErrorMessage != "" {
		field("Error", Warning.Render(e.ErrorMessage))
	}

	body := func(title, text string) {
		b.WriteString("\n" + Heading.Render(title) + "\n" + rule(60) + "\n")
		if text == "" {
			b.WriteString(Hint.Render("(not captured)") + "\n")
			return
		}
		b.WriteString(strings.TrimRight(text, "\n") + "\n")
	}
	body("REQUEST", e.RequestBody)
	body("RESPONSE", e.ResponseBody)
	return b.String()
}

// LLMUsage renders token usage per purpose and estimated cost per model.
func LLMUsage(purposes []store.LLMUsage, models []store.ModelUsage) string {
	if len(purposes) == 0 {
		return Dim.Render("No LLM usage recorded yet.") + "\n"
	}
	var b strings.Builder

	b.WriteString(Title.Render("Usage by purpose") + "\n")
	b.WriteString(Heading.Render(fmt.Sprintf("%-16s  %6s  %10s  %10s  %10s  %8s",
		"Purpose", "Calls", "Input", "Output", "Total", "Avg Ms")))
	b.WriteString("\n" + rule(72) + "\n")
	var calls, in, out int
	for _, u := range purposes {
		fmt.Fprintf(&b, "%-16s  %6d  %10d  %10d  %10d  %8d\n",
			clip(u.Purpose, 16), u.Calls, u.InputTokens, u.OutputTokens, u.InputTokens+u.OutputTokens, u.AvgLatencyMs)
		calls += u.Calls
		in += u.InputTokens
		out += u.OutputTokens
	}
	b.WriteString(rule(72) + "\n")
	fmt.Fprintf(&b, "%-16s  %6d  %10d  %10d  %10d\n", "TOTAL", calls, in, out, in+out)

	if len(models) == 0 {
		return b.String()
	}

	b.WriteString("\n" + Title.Render("Estimated cost (USD)") + "\n")
	b.WriteString(Heading.Render(fmt.Sprintf("%-32s  %6s  %10s  %10s  %10s",
		"Model", "Calls", "Input", "Output", "Cost")))
	b.WriteString("\n" + rule(76) + "\n")
	var total float64
	var unknown []string
	for _, m := range models {
		cost := "?"
		if c := llm.LookupCost(m.Model); c != nil {
			usd := c.Cost(m.InputTokens, m.OutputTokens)
			total += usd
			cost = formatUSD(usd)
		} else {
			unknown = append(unknown, m.Model)
		}
		fmt.Fprintf(&b, "%-32s  %6d  %10d  %10d  %10s\n",
			clip(m.Model, 32), m.Calls, m.InputTokens, m.OutputTokens, cost)
	}
	b.WriteString(rule(76) + "\n")
	label := "TOTAL"
	if len(unknown) > 0 {
		label = "TOTAL (partial)"
	}
	fmt.Fprintf(&b, "%-32s  %6s  %10s  %10s  %10s\n", label, "", "", "", formatUSD(total))
	if len(unknown) > 0 {
		b.WriteString("\n" + Hint.Render("Pricing unavailable for: "+strings.Join(unknown, ", ")) + "\n")
	}
	return b.String()
}

func formatUSD(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

// Assessments renders stored assessment headers, newest first.
func Assessments(recs []store.AssessmentRecord) string {
	if len(recs) == 0 {
		return Dim.Render("No assessments stored yet.") + "\n"
	}
	var b strings.Builder
	b.WriteString(Heading.Render(fmt.Sprintf("%-36s  %-19s  %-28s  %4s  %-10s  %s",
		"ID", "Created", "Title", "Qs", "Difficulty", "Types")))
	b.WriteString("\n" + rule(120) + "\n")
	for _, r := range recs {
		fmt.Fprintf(&b, "%-36s  %-19s  %-28s  %4d  %-10s  %s\n",
			r.ID,
			r.CreatedAt.Local().Format(timeLayout),
			clip(r.Title, 28),
			len(r.Questions),
			r.Difficulty,
			typeSummary(r.QuestionTypes),
		)
	}
	return b.String()
}

// typeSummary collapses a per-question type list into "mcq×3 descriptive×2"
// in first-seen order.
func typeSummary(types []string) string {
	counts := map[string]int{}
	var order []string
	for _, t := range types {
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}
	parts := make([]string, len(order))
	for i, t := range order {
		parts[i] = fmt.Sprintf("%s×%d", t, counts[t])
	}
	return strings.Join(parts, " ")
}
