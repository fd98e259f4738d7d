package registry

import (
	_ "embed"
	"encoding/json"
	"strings"

	"attest/internal/errors"
)

//go:embed data/override_prompts.json
var overridePromptsJSON []byte

// Override replaces a synthesized design-element prompt with a manually
// curated one for a given (domain, element index) pair.
type Override struct {
	QuestionnaireName string `json:"Questionnaire_Name"`
	ID                string `json:"ID"`
	FinalPrompt       string `json:"Final_Prompt"`
}

type overrideKey struct {
	domainID string
	index    string
}

// OverrideTable is the immutable manual prompt table. When a lookup hits,
// the override wins unconditionally over the synthesized prompt.
type OverrideTable struct {
	byKey map[overrideKey]string
}

// LoadOverrides builds the override table from the embedded prompt list
func LoadOverrides() (*OverrideTable, error) {
	var overrides []Override
	if err := json.Unmarshal(overridePromptsJSON, &overrides); err != nil {
		return nil, errors.Wrap(err, "failed to parse embedded override prompts")
	}
	return NewOverrideTable(overrides), nil
}

// NewOverrideTable builds an override table from an explicit list. Entries
// missing a key or a final prompt are skipped; an empty table is valid.
func NewOverrideTable(overrides []Override) *OverrideTable {
	t := &OverrideTable{byKey: make(map[overrideKey]string, len(overrides))}
	for _, o := range overrides {
		domainID := strings.TrimSpace(o.QuestionnaireName)
		index := strings.TrimSpace(o.ID)
		if domainID == "" || index == "" || strings.TrimSpace(o.FinalPrompt) == "" {
			continue
		}
		t.byKey[overrideKey{domainID: domainID, index: index}] = o.FinalPrompt
	}
	return t
}

// Lookup returns the manual prompt for (domainID, elementIndex) if one exists
func (t *OverrideTable) Lookup(domainID, elementIndex string) (string, bool) {
	p, ok := t.byKey[overrideKey{domainID: domainID, index: elementIndex}]
	return p, ok
}

// Len returns the number of override entries
func (t *OverrideTable) Len() int {
	return len(t.byKey)
}
