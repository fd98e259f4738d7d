package evaluate

import (
	"fmt"

	"attest/domain/assessment"
)

// Reserved sentinel summaries. Sentinel rows keep the raw uppercase
// answer values so failed rows stay structurally distinguishable from
// genuine model output.
const (
	summaryMissingResponse = "Missing response from LLM analysis."
	summaryEmptyResponse   = "API call failed or returned empty response."
	summaryEmptyArray      = "API call returned an empty array."
	summaryParseFailure    = "Failed to parse LLM response."
)

type resultKey struct {
	controlID string
	elementID string
}

// BuildReport assembles the final report: exactly one row per design
// element prompt, always, regardless of how many LLM calls failed. This is
// the core reliability invariant; a missing or unparseable result fills the
// row with sentinel values instead of dropping it.
func BuildReport(tasks []assessment.ControlTask, results []assessment.EvaluationResult, mainQuestions map[string]string) []assessment.ReportRow {
	byKey := make(map[resultKey]assessment.EvaluationResult, len(results))
	for _, r := range results {
		byKey[resultKey{r.ControlID, r.DesignElementID}] = r
	}

	var rows []assessment.ReportRow
	for _, task := range tasks {
		mainQuestion := mainQuestions[task.ControlID]
		if mainQuestion == "" {
			mainQuestion = "Unknown Question"
		}
		for _, prompt := range task.Prompts {
			result, found := byKey[resultKey{task.ControlID, prompt.ElementIndex}]
			rows = append(rows, buildRow(task.ControlID, prompt, result, found, mainQuestion))
		}
	}
	return rows
}

func buildRow(controlID string, prompt assessment.DesignElementPrompt, result assessment.EvaluationResult, found bool, mainQuestion string) assessment.ReportRow {
	row := assessment.ReportRow{
		ID:              fmt.Sprintf("%s-%s", controlID, prompt.ElementIndex),
		ControlID:       controlID,
		DesignElementID: prompt.ElementIndex,
		Question:        prompt.Question,
		SubQuestion:     prompt.Label,
		MainQuestion:    mainQuestion,
	}

	if !found {
		row.Status = string(assessment.StatusError)
		row.AnswerQuality = "NEEDS_REVIEW"
		row.Answer = "NO"
		row.Summary = summaryMissingResponse
		return row
	}

	parsed := ParseAnswer(result.RawAnswer)
	switch parsed.Kind {
	case AnswerEmpty:
		row.Status = string(assessment.StatusError)
		row.AnswerQuality = "NEEDS_REVIEW"
		row.Answer = "N/A"
		row.AnswerSource = "N/A"
		row.Summary = summaryEmptyResponse
		row.Reference = "N/A"

	case AnswerEmptyArray:
		row.Status = string(assessment.StatusError)
		row.AnswerQuality = "NEEDS_REVIEW"
		row.Answer = "N/A"
		row.AnswerSource = "N/A"
		row.Summary = summaryEmptyArray
		row.Reference = "N/A"

	case AnswerParseError:
		row.Status = string(assessment.StatusError)
		row.AnswerQuality = "NEEDS_REVIEW"
		row.Answer = "NO"
		row.AnswerSource = "N/A"
		row.Summary = summaryParseFailure
		row.Reference = "N/A"

	case AnswerOK:
		row.Status = string(result.Status)
		row.AnswerQuality = titleCaseOr(parsed.Object.AnswerQuality, "Needs_Review")
		row.Answer = titleCaseOr(parsed.Object.Answer, "No")
		row.AnswerSource = valueOr(parsed.Object.AnswerSource, "N/A")
		row.Summary = valueOr(parsed.Object.Summary, valueOr(parsed.Stripped, "N/A"))
		row.Reference = valueOr(parsed.Object.Reference, "N/A")
	}
	return row
}

func titleCaseOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return TitleCase(s)
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
