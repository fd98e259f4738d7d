package app

import (
	"context"

	"attest/domain/assessment"
	"attest/domain/registry"
	"attest/internal/archive"
	"attest/internal/errors"
	"attest/internal/evaluate"
	"attest/internal/logx"
	"attest/internal/mapping"
	"attest/internal/promptgen"
	"attest/internal/questionnaire"
	"attest/ports"
)

// Outcome is the durable product of one assessment pass
type Outcome struct {
	Report        []assessment.ReportRow
	Diagnostics   []string
	TotalFiles    int
	TotalControls int
}

// AssessmentService runs the fixed pipeline shape over one uploaded
// archive: unzip, map folders to controls, filter against the optional
// questionnaire, expand prompts, evaluate sequentially, assemble the
// report.
type AssessmentService struct {
	registry   *registry.Registry
	decomposer *archive.Decomposer
	mapper     *mapping.Mapper
	filter     *questionnaire.Filter
	assembler  *promptgen.Assembler
	engine     *evaluate.Engine
	logger     *logx.Logger
}

// NewAssessmentService wires the pipeline components
func NewAssessmentService(reg *registry.Registry, overrides *registry.OverrideTable, client ports.LLMClient, systemPrompt string, logger *logx.Logger) *AssessmentService {
	if logger == nil {
		logger = logx.NewDefault()
	}
	return &AssessmentService{
		registry:   reg,
		decomposer: archive.NewDecomposer(logger),
		mapper:     mapping.NewMapper(reg, logger),
		filter:     questionnaire.NewFilter(logger),
		assembler:  promptgen.NewAssembler(reg, overrides),
		engine:     evaluate.NewEngine(client, systemPrompt, logger),
		logger:     logger,
	}
}

// Assess processes one archive end to end. Fatal failures (corrupt archive,
// nothing evaluable) abort with an error; recoverable conditions accumulate
// as diagnostics alongside a complete report.
func (s *AssessmentService) Assess(ctx context.Context, zipBytes []byte, onProgress evaluate.ProgressFunc) (*Outcome, error) {
	decomp, err := s.decomposer.Decompose(zipBytes)
	if err != nil {
		return nil, err
	}

	groups, mapDiags := s.mapper.MapGroups(decomp.Groups)
	diagnostics := append(decomp.Diagnostics, mapDiags...)

	var allowed map[string]struct{}
	if decomp.Questionnaire != nil {
		allowed = s.filter.AllowedDomainIDs(decomp.Questionnaire.Content)
	} else {
		s.logger.Info("[Assess] no questionnaire present, every mapped control is in scope")
	}

	tasks, taskDiags := s.buildTasks(groups, allowed)
	diagnostics = append(diagnostics, taskDiags...)

	if len(tasks) == 0 {
		return nil, errors.InvalidInput("no valid controls found to process after filtering")
	}

	results, evalErrors, err := s.engine.Run(ctx, tasks, onProgress)
	if err != nil {
		return nil, err
	}
	diagnostics = append(diagnostics, evalErrors...)

	mainQuestions := make(map[string]string, len(tasks))
	for _, task := range tasks {
		if entry, ok := s.registry.FindByID(task.ControlID); ok {
			mainQuestions[task.ControlID] = entry.Question
		}
	}

	return &Outcome{
		Report:        evaluate.BuildReport(tasks, results, mainQuestions),
		Diagnostics:   diagnostics,
		TotalFiles:    decomp.TotalFiles,
		TotalControls: len(tasks),
	}, nil
}

// buildTasks expands mapped groups into one evaluation task per in-scope
// domain. A group whose ids are all filtered out is excluded entirely; its
// evidence goes unused, which is not an error.
func (s *AssessmentService) buildTasks(groups []assessment.ControlEvidenceGroup, allowed map[string]struct{}) ([]assessment.ControlTask, []string) {
	var tasks []assessment.ControlTask
	var diagnostics []string

	for _, group := range groups {
		validIDs := questionnaire.Apply(group.DomainIDs, allowed)
		if len(validIDs) == 0 {
			s.logger.Info("[Assess] group %q excluded by questionnaire filter", group.ControlName)
			continue
		}
		for _, domainID := range validIDs {
			prompts, err := s.assembler.BuildPrompts(domainID)
			if err != nil {
				diagnostics = append(diagnostics, "Prompt assembly failed for "+domainID+": "+err.Error())
				continue
			}
			tasks = append(tasks, assessment.ControlTask{
				ControlID: domainID,
				Prompts:   prompts,
				Evidence:  group.Evidence,
			})
		}
	}
	return tasks, diagnostics
}

// ValidateArchive runs the structural dry-run over an archive without
// extracting evidence contents.
func (s *AssessmentService) ValidateArchive(zipBytes []byte) *archive.ValidationReport {
	return s.decomposer.Validate(zipBytes, func(folderName string) bool {
		return len(s.registry.FindByNormalizedName(folderName)) > 0
	})
}
