package mapping

import (
	"fmt"

	"attest/domain/assessment"
	"attest/domain/registry"
	"attest/internal/logx"
)

// Mapper reconciles evidence folder names against the control taxonomy
type Mapper struct {
	registry *registry.Registry
	logger   *logx.Logger
}

// NewMapper creates a control mapper backed by the given registry
func NewMapper(reg *registry.Registry, logger *logx.Logger) *Mapper {
	if logger == nil {
		logger = logx.NewDefault()
	}
	return &Mapper{registry: reg, logger: logger}
}

// MapGroups maps each raw folder group to the controls its name matches.
// An unmatched folder produces a diagnostic and is dropped; it never fails
// the batch. ControlID takes the first matched domain in registry order,
// which keeps batch output reproducible.
func (m *Mapper) MapGroups(groups []assessment.FolderGroup) ([]assessment.ControlEvidenceGroup, []string) {
	var mapped []assessment.ControlEvidenceGroup
	var diagnostics []string

	for _, group := range groups {
		entries := m.registry.FindByNormalizedName(group.FolderName)
		if len(entries) == 0 {
			m.logger.Warn("[Mapper] could not map folder %q to any domain", group.FolderName)
			diagnostics = append(diagnostics, fmt.Sprintf("Unmapped folder: %s", group.FolderName))
			continue
		}

		domainIDs := make([]string, len(entries))
		for i, e := range entries {
			domainIDs[i] = e.DomainID
		}

		mapped = append(mapped, assessment.ControlEvidenceGroup{
			ControlID:   domainIDs[0],
			ControlName: group.FolderName,
			DomainIDs:   domainIDs,
			Evidence:    group.Files,
		})
		m.logger.Debug("[Mapper] folder %q -> %v (%d evidence files)",
			group.FolderName, domainIDs, len(group.Files))
	}

	return mapped, diagnostics
}
