package types

import (
	"fmt"
	"strings"
)

// ScenePlan is the staging, lighting and placement instruction set produced by the director.
// Corrections holds the ordered corrective notes accumulated across retries; the base
// Prompt itself is never rewritten in place.
type ScenePlan struct {
	Prompt             string      `json:"prompt" validate:"notblank"`
	NegativePrompt     string      `json:"negative_prompt" validate:"notblank"`
	LightingMap        LightingMap `json:"lighting_map" validate:"required"`
	InpaintCoordinates []float64   `json:"inpaint_coordinates" validate:"len=4"`
	Corrections        []string    `json:"corrections,omitempty"`
}

// LightingMap describes the key light of the scene.
type LightingMap struct {
	SourceDirection string `json:"source_direction" validate:"notblank"`
	Temperature     string `json:"temperature" validate:"notblank"`
}

// BoundingBox returns the inpaint target as (x1, y1, x2, y2).
// Missing coordinates are reported as zero.
func (p *ScenePlan) BoundingBox() (x1, y1, x2, y2 float64) {
	var c [4]float64
	copy(c[:], p.InpaintCoordinates)
	return c[0], c[1], c[2], c[3]
}

// RenderPrompt renders the base prompt followed by the numbered corrective notes.
func (p *ScenePlan) RenderPrompt() string {
	if len(p.Corrections) == 0 {
		return p.Prompt
	}

	var sb strings.Builder
	sb.WriteString(p.Prompt)
	sb.WriteString("\n\nRequired corrections from previous review:\n")
	for i, note := range p.Corrections {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, note))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// WithCorrection returns a copy of the plan with note appended to its corrections.
// The receiver is left untouched. Blank notes and notes already present are ignored.
func (p *ScenePlan) WithCorrection(note string) *ScenePlan {
	next := p.Clone()
	note = strings.TrimSpace(note)
	if note == "" {
		return next
	}
	for _, existing := range next.Corrections {
		if strings.EqualFold(existing, note) {
			return next
		}
	}
	next.Corrections = append(next.Corrections, note)
	return next
}

// Clone returns a deep copy of the plan.
func (p *ScenePlan) Clone() *ScenePlan {
	next := *p
	next.InpaintCoordinates = append([]float64(nil), p.InpaintCoordinates...)
	next.Corrections = append([]string(nil), p.Corrections...)
	return &next
}
