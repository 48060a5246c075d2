// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jonathan/luxury-studio/internal/types"
	"github.com/jonathan/luxury-studio/internal/workflow"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode.
// It is safe for concurrent use by runs sharing one writer.
type Printer struct {
	mu  sync.Mutex
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
	p.mu.Lock()
	defer p.mu.Unlock()

	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// OnProgress prints the record carried by a progress event, if any.
// It matches workflow.ProgressCallback.
func (p *Printer) OnProgress(event workflow.ProgressEvent) {
	switch content := event.Content.(type) {
	case *types.ProductSpecs:
		p.PrintProductSpecs(content)
	case *types.ScenePlan:
		p.PrintScenePlan(content)
	case *types.JudgeEvaluation:
		p.PrintJudgement(content)
	}
}

// PrintProductSpecs outputs the analyst's description of the product.
func (p *Printer) PrintProductSpecs(specs *types.ProductSpecs) {
	if specs == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Metal:    %s\n", specs.MetalType))
	sb.WriteString(fmt.Sprintf("Setting:  %s\n", specs.SettingStyle))
	sb.WriteString("\n")
	sb.WriteString("Main stone:\n")
	sb.WriteString(fmt.Sprintf("  • Cut:     %s\n", specs.MainStone.Cut))
	sb.WriteString(fmt.Sprintf("  • Color:   %s\n", specs.MainStone.Color))
	sb.WriteString(fmt.Sprintf("  • Clarity: %s\n", specs.MainStone.Clarity))
	if specs.MainStone.Carat != "" {
		sb.WriteString(fmt.Sprintf("  • Carat:   %s\n", specs.MainStone.Carat))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Imperfections: %s", specs.UniqueImperfections))

	p.printBox("PRODUCT ANALYSIS", sb.String())
}

// PrintScenePlan outputs the director's plan, including accumulated corrections.
func (p *Printer) PrintScenePlan(plan *types.ScenePlan) {
	if plan == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Prompt:   %s\n", plan.Prompt))
	sb.WriteString(fmt.Sprintf("Avoid:    %s\n", plan.NegativePrompt))
	sb.WriteString(fmt.Sprintf("Light:    %s, %s\n", plan.LightingMap.SourceDirection, plan.LightingMap.Temperature))
	x1, y1, x2, y2 := plan.BoundingBox()
	sb.WriteString(fmt.Sprintf("Placement: (%.0f, %.0f) - (%.0f, %.0f)", x1, y1, x2, y2))

	if len(plan.Corrections) > 0 {
		sb.WriteString(fmt.Sprintf("\n\nCorrections (%d):\n", len(plan.Corrections)))
		start := max(0, len(plan.Corrections)-maxItemsToShow)
		if start > 0 {
			sb.WriteString(fmt.Sprintf("  ... %d earlier\n", start))
		}
		for i := start; i < len(plan.Corrections); i++ {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, plan.Corrections[i]))
		}
	}

	p.printBox("SCENE PLAN", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintJudgement outputs one judge verdict.
func (p *Printer) PrintJudgement(eval *types.JudgeEvaluation) {
	if eval == nil {
		return
	}

	var sb strings.Builder
	if eval.Indeterminate {
		sb.WriteString("Score:    indeterminate\n")
	} else {
		sb.WriteString(fmt.Sprintf("Score:    %d/%d\n", eval.Score, types.ScoreMax))
	}
	if eval.Feedback != "" {
		sb.WriteString(fmt.Sprintf("Feedback: %s", eval.Feedback))
	}

	p.printBox("JUDGEMENT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintResult outputs the final outcome of a run with its attempt history.
func (p *Printer) PrintResult(record *types.ResultRecord) {
	if record == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("File:     %s\n", record.File))
	sb.WriteString(fmt.Sprintf("Outcome:  %s\n", record.Status))
	sb.WriteString(fmt.Sprintf("Score:    %d\n", record.Score()))
	sb.WriteString(fmt.Sprintf("Retries:  %d\n", record.Retries))
	if record.GenerationRef != "" {
		sb.WriteString(fmt.Sprintf("Image:    %s\n", record.GenerationRef))
	}
	if record.Error != "" {
		sb.WriteString(fmt.Sprintf("Error:    %s\n", record.Error))
	}

	if len(record.Attempts) > 0 {
		sb.WriteString("\nAttempts:\n")
		for _, a := range record.Attempts {
			switch {
			case a.Error != "":
				sb.WriteString(fmt.Sprintf("  #%d  error: %s\n", a.Number, a.Error))
			case a.Indeterminate:
				sb.WriteString(fmt.Sprintf("  #%d  indeterminate\n", a.Number))
			default:
				sb.WriteString(fmt.Sprintf("  #%d  %d\n", a.Number, a.Score))
			}
		}
	}

	p.printBox("RUN RESULT", strings.TrimSuffix(sb.String(), "\n"))
}
