package evaluate

import (
	"context"
	"fmt"
	"time"

	"attest/domain/assessment"
	"attest/internal/logx"
	"attest/ports"
)

// ProgressFunc receives a snapshot after batch start and after every
// completed control. Callers own whatever state the snapshot feeds; the
// engine itself never writes shared state.
type ProgressFunc func(assessment.Progress)

// Engine drives the sequential LLM evaluation pass. Controls are processed
// strictly one at a time: that bounds concurrent load on the rate-limited
// boundary and gives callers monotonically increasing, attributable
// progress. Evidence preparation inside one control may fan out.
type Engine struct {
	client       ports.LLMClient
	systemPrompt string
	logger       *logx.Logger
}

// NewEngine creates an evaluation engine over an LLM boundary
func NewEngine(client ports.LLMClient, systemPrompt string, logger *logx.Logger) *Engine {
	if logger == nil {
		logger = logx.NewDefault()
	}
	return &Engine{client: client, systemPrompt: systemPrompt, logger: logger}
}

// Run evaluates every control task in order and returns one result per
// (control, design element) pair. A whole-control failure synthesizes error
// results for each of that control's elements; no element is ever left
// unaccounted. Cancellation is coarse-grained: the context is checked
// between controls, never mid-control.
func (e *Engine) Run(ctx context.Context, tasks []assessment.ControlTask, onProgress ProgressFunc) ([]assessment.EvaluationResult, []string, error) {
	if onProgress == nil {
		onProgress = func(assessment.Progress) {}
	}

	var results []assessment.EvaluationResult
	var batchErrors []string

	current := ""
	if len(tasks) > 0 {
		current = tasks[0].ControlID
	}
	onProgress(assessment.Progress{
		TotalControls:  len(tasks),
		CurrentControl: current,
		Status:         assessment.BatchProcessing,
	})

	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("[Engine] batch cancelled after %d/%d controls", i, len(tasks))
			return results, batchErrors, err
		}

		start := time.Now()
		e.logger.Info("[Engine] evaluating control %s (%d prompts, %d evidence files)",
			task.ControlID, len(task.Prompts), len(task.Evidence))

		controlResults, err := e.evaluateControl(ctx, task)
		if err != nil {
			e.logger.Error("[Engine] control %s failed: %v", task.ControlID, err)
			batchErrors = append(batchErrors, fmt.Sprintf("Control %s: %v", task.ControlID, err))
			controlResults = synthesizeErrorResults(task, err)
		}
		results = append(results, controlResults...)

		e.logger.Debug("[Engine] control %s done in %.2fs", task.ControlID, time.Since(start).Seconds())

		status := assessment.BatchProcessing
		next := task.ControlID
		if i == len(tasks)-1 {
			status = assessment.BatchCompleted
		} else {
			next = tasks[i+1].ControlID
		}
		onProgress(assessment.Progress{
			TotalControls:     len(tasks),
			CompletedControls: i + 1,
			CurrentControl:    next,
			Status:            status,
			Results:           results,
			Errors:            batchErrors,
		})
	}

	if len(tasks) == 0 {
		onProgress(assessment.Progress{Status: assessment.BatchCompleted})
	}
	return results, batchErrors, nil
}

// evaluateControl runs one batched LLM round-trip for a control. The
// round-trip is fully awaited before the caller moves to the next control.
func (e *Engine) evaluateControl(ctx context.Context, task assessment.ControlTask) ([]assessment.EvaluationResult, error) {
	attachments, err := prepareAttachments(ctx, task.Evidence)
	if err != nil {
		return nil, fmt.Errorf("evidence preparation: %w", err)
	}

	prompts := make([]string, len(task.Prompts))
	for i, p := range task.Prompts {
		prompts[i] = p.FullPrompt
	}

	answers, err := e.client.EvaluateControl(ctx, ports.ControlRequest{
		ControlID:    task.ControlID,
		SystemPrompt: e.systemPrompt,
		Prompts:      prompts,
		Attachments:  attachments,
	})
	if err != nil {
		return nil, err
	}

	results := make([]assessment.EvaluationResult, len(task.Prompts))
	for i, p := range task.Prompts {
		r := assessment.EvaluationResult{
			ControlID:       task.ControlID,
			DesignElementID: p.ElementIndex,
			Status:          assessment.StatusSuccess,
		}
		if i < len(answers) {
			r.RawAnswer = answers[i]
		} else {
			// The boundary returned fewer answers than prompts; the
			// shortfall must still yield rows downstream.
			r.Status = assessment.StatusError
			r.ErrorDetail = "no answer returned for design element"
		}
		results[i] = r
	}
	return results, nil
}

func synthesizeErrorResults(task assessment.ControlTask, cause error) []assessment.EvaluationResult {
	results := make([]assessment.EvaluationResult, len(task.Prompts))
	for i, p := range task.Prompts {
		results[i] = assessment.EvaluationResult{
			ControlID:       task.ControlID,
			DesignElementID: p.ElementIndex,
			Status:          assessment.StatusError,
			ErrorDetail:     cause.Error(),
		}
	}
	return results
}
