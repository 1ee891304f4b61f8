// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/reply-coach/internal/evaluation"
	"github.com/jonathan/reply-coach/internal/pipeline"
	"github.com/jonathan/reply-coach/internal/strategy"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		for _, wrapped := range wrapLine(line, boxWidth-4) {
			fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, wrapped)
		}
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// wrapLine breaks a line at word boundaries to fit the box width.
func wrapLine(line string, width int) []string {
	if len(line) <= width {
		return []string{line}
	}

	var out []string
	words := strings.Fields(line)
	current := ""
	for _, w := range words {
		if current == "" {
			current = w
			continue
		}
		if len(current)+1+len(w) > width {
			out = append(out, current)
			current = w
			continue
		}
		current += " " + w
	}
	if current != "" {
		out = append(out, current)
	}
	if len(out) == 0 {
		out = []string{""}
	}

	// A single word longer than the box still has to fit
	for i, l := range out {
		if len(l) > width {
			out[i] = l[:width-3] + "..."
		}
	}
	return out
}

// PrintTags outputs the extracted tags and the subset that matched a
// strategy.
func (p *Printer) PrintTags(tags, matchedTags []string) {
	var sb strings.Builder
	if len(tags) == 0 {
		sb.WriteString("No tags extracted.")
	} else {
		sb.WriteString(fmt.Sprintf("Extracted: %s", strings.Join(tags, ", ")))
		if len(matchedTags) > 0 {
			sb.WriteString(fmt.Sprintf("\nMatched:   %s", strings.Join(matchedTags, ", ")))
		} else {
			sb.WriteString("\nMatched:   (none)")
		}
	}
	p.printBox("EXTRACTED TAGS", sb.String())
}

// PrintStrategies outputs the matched persuasion strategies.
func (p *Printer) PrintStrategies(strategies []strategy.Strategy) {
	if len(strategies) == 0 {
		p.printBox("MATCHED STRATEGIES", "No strategies matched this input.")
		return
	}

	var sb strings.Builder
	count := min(len(strategies), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("• %s\n", strategies[i].Title))
	}
	if len(strategies) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(strategies)-maxItemsToShow))
	}

	p.printBox("MATCHED STRATEGIES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRun outputs the full run: the reply (or clarification request) and
// the optional rebuttal and evaluation sections.
func (p *Printer) PrintRun(run *pipeline.Run) {
	if run == nil || run.Reply == nil {
		return
	}

	p.PrintTags(run.Tags, run.MatchedTags)
	p.PrintStrategies(run.MatchedStrategies)

	if run.Reply.NeedsClarification {
		p.printBox("CLARIFICATION NEEDED", run.Reply.FollowUpQuestion)
		return
	}

	var sb strings.Builder
	sb.WriteString(run.Reply.Message)
	if run.Reply.Explanation != "" {
		sb.WriteString("\n\nWhy: ")
		sb.WriteString(run.Reply.Explanation)
	}
	sb.WriteString(fmt.Sprintf("\n\nInput type: %s", run.Reply.InputType))
	p.printBox(fmt.Sprintf("SUGGESTED REPLY (v%d)", run.Version), sb.String())

	if run.Rebuttal != "" {
		p.printBox("LIKELY REBUTTAL", run.Rebuttal)
	}
	p.PrintEvaluation(run.Evaluation)
}

// PrintEvaluation outputs the evaluation section, including the failure
// marker when the stage did not produce a usable result.
func (p *Printer) PrintEvaluation(eval *evaluation.Result) {
	if eval == nil {
		return
	}
	if eval.Failed() {
		p.printBox("EVALUATION", "Evaluation failed; see logs.")
		return
	}

	var sb strings.Builder
	if eval.ConfidenceScore != nil {
		sb.WriteString(fmt.Sprintf("Confidence: %.1f / 10\n\n", *eval.ConfidenceScore))
	}
	sb.WriteString(eval.Justification)
	if eval.SuggestedImprovements != "" {
		sb.WriteString("\n\nImprovements: ")
		sb.WriteString(eval.SuggestedImprovements)
	}
	if eval.UltimateReply != "" {
		sb.WriteString("\n\nUltimate reply: ")
		sb.WriteString(eval.UltimateReply)
	}
	p.printBox("EVALUATION", sb.String())
}
