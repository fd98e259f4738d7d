package promptgen

import (
	"fmt"
	"regexp"
	"strings"

	"attest/domain/assessment"
	"attest/domain/registry"
	"attest/internal/errors"
)

var (
	// elementsHeader marks where the numbered design-element list begins in
	// a control's description. The "Document the following" prefix appears
	// in a subset of the taxonomy.
	elementsHeader = regexp.MustCompile(`(?i)(?:document the following )?design elements:`)

	numberedLine  = regexp.MustCompile(`^\s*\d+\.`)
	ordinalPrefix = regexp.MustCompile(`^\s*\d+\.\s*`)
	trailingQMark = regexp.MustCompile(`\?$`)
)

// ExtractSubQuestions pulls the numbered design-element labels out of a
// control description. Deterministic: the same description always yields
// the same ordered list.
func ExtractSubQuestions(description string) []string {
	loc := elementsHeader.FindStringIndex(description)
	if loc == nil {
		return nil
	}
	section := description[loc[1]:]

	var out []string
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimRight(line, "\r")
		if !numberedLine.MatchString(line) {
			continue
		}
		item := strings.TrimSpace(ordinalPrefix.ReplaceAllString(line, ""))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Assembler builds design-element prompts for a control. Pure: the same
// (domainID, registry, overrides) always produces the same prompt list.
type Assembler struct {
	registry  *registry.Registry
	overrides *registry.OverrideTable
}

// NewAssembler creates a prompt assembler
func NewAssembler(reg *registry.Registry, overrides *registry.OverrideTable) *Assembler {
	if overrides == nil {
		overrides = registry.NewOverrideTable(nil)
	}
	return &Assembler{registry: reg, overrides: overrides}
}

// BuildPrompts expands one control into its design-element prompts. When the
// description yields no numbered elements, exactly one prompt is generated
// from the bare question. A manual override for (domainID, index) replaces
// the synthesized prompt unconditionally.
func (a *Assembler) BuildPrompts(domainID string) ([]assessment.DesignElementPrompt, error) {
	entry, ok := a.registry.FindByID(domainID)
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("domain %s", domainID))
	}

	elements := ExtractSubQuestions(entry.QuestionDescription)
	baseQuestion := trailingQMark.ReplaceAllString(entry.Question, "")

	if len(elements) == 0 {
		fullPrompt := entry.Question
		if manual, ok := a.overrides.Lookup(domainID, "1"); ok {
			fullPrompt = manual
		}
		return []assessment.DesignElementPrompt{{
			DomainID:     domainID,
			ElementIndex: "1",
			Question:     entry.Question,
			FullPrompt:   fullPrompt,
			Label:        entry.Question,
		}}, nil
	}

	prompts := make([]assessment.DesignElementPrompt, 0, len(elements))
	for i, element := range elements {
		index := fmt.Sprintf("%d", i+1)
		fullPrompt := fmt.Sprintf("%s with following policy feature: %s", baseQuestion, element)
		if manual, ok := a.overrides.Lookup(domainID, index); ok {
			fullPrompt = manual
		}
		prompts = append(prompts, assessment.DesignElementPrompt{
			DomainID:     domainID,
			ElementIndex: index,
			Question:     entry.Question,
			FullPrompt:   fullPrompt,
			Label:        fmt.Sprintf("%s.%s-%s", domainID, index, element),
		})
	}
	return prompts, nil
}
