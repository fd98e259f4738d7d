package report

import (
	"html"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"attest/domain/assessment"
)

// RenderSummaryHTML converts one LLM-produced summary, which frequently
// arrives as Markdown, into HTML for the report view.
func RenderSummaryHTML(summary string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	return string(markdown.ToHTML([]byte(summary), p, renderer))
}

// RenderReportHTML produces a standalone HTML view of an assessment report.
// Questions and references are escaped; summaries go through the Markdown
// renderer.
func RenderReportHTML(rows []assessment.ReportRow) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>Assessment Report</title></head>\n<body>\n")
	sb.WriteString("<h1>Vendor Compliance Assessment Report</h1>\n<table border=\"1\" cellpadding=\"6\">\n")
	sb.WriteString("<tr><th>ID</th><th>Answer</th><th>Quality</th><th>Question</th><th>Summary</th><th>Reference</th></tr>\n")
	for _, row := range rows {
		sb.WriteString("<tr>")
		sb.WriteString("<td>" + html.EscapeString(row.ID) + "</td>")
		sb.WriteString("<td>" + html.EscapeString(row.Answer) + "</td>")
		sb.WriteString("<td>" + html.EscapeString(row.AnswerQuality) + "</td>")
		sb.WriteString("<td>" + html.EscapeString(row.Question) + "</td>")
		sb.WriteString("<td>" + RenderSummaryHTML(row.Summary) + "</td>")
		sb.WriteString("<td>" + html.EscapeString(row.Reference) + "</td>")
		sb.WriteString("</tr>\n")
	}
	sb.WriteString("</table>\n</body>\n</html>\n")
	return sb.String()
}
