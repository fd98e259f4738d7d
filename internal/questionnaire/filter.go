package questionnaire

import (
	"bytes"
	"strings"

	"github.com/xuri/excelize/v2"

	"attest/internal/errors"
	"attest/internal/logx"
)

// dataSheetName is the sheet the questionnaire contract expects; when it is
// absent the second sheet of the workbook is accepted instead.
const dataSheetName = "Data"

// Filter extracts the allow-list of domain identifiers from a companion
// questionnaire spreadsheet. Spreadsheet trouble disables the filter; it
// never aborts the pipeline, because the ZIP's folder mapping remains the
// primary signal.
type Filter struct {
	logger *logx.Logger
}

// NewFilter creates a questionnaire filter
func NewFilter(logger *logx.Logger) *Filter {
	if logger == nil {
		logger = logx.NewDefault()
	}
	return &Filter{logger: logger}
}

// AllowedDomainIDs parses the spreadsheet and returns the set of in-scope
// domain identifiers, or nil when no filter applies (unreadable workbook,
// missing sheet, or no usable identifier column).
func (f *Filter) AllowedDomainIDs(content []byte) map[string]struct{} {
	ids, err := f.extract(content)
	if err != nil {
		f.logger.Warn("[Questionnaire] filter disabled: %v", err)
		return nil
	}
	if len(ids) == 0 {
		f.logger.Warn("[Questionnaire] spreadsheet yielded no domain identifiers, filter disabled")
		return nil
	}
	f.logger.Info("[Questionnaire] allow-list extracted: %d domain ids", len(ids))
	return ids
}

func (f *Filter) extract(content []byte) (map[string]struct{}, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, errors.SpreadsheetError("failed to open questionnaire workbook", err)
	}
	defer wb.Close()

	sheet, err := pickSheet(wb)
	if err != nil {
		return nil, err
	}

	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, errors.SpreadsheetError("failed to read questionnaire rows", err)
	}
	if len(rows) < 2 {
		return nil, errors.SpreadsheetError("questionnaire sheet has no data rows", nil)
	}

	header := rows[0]
	idCol := columnIndex(header, "Domain_Id")
	nameCol := columnIndex(header, "Questionnaire Name")

	ids := make(map[string]struct{})
	for _, row := range rows[1:] {
		var id string
		switch {
		case idCol >= 0 && idCol < len(row):
			id = strings.TrimSpace(row[idCol])
		case nameCol >= 0 && nameCol < len(row):
			id = domainCodeFromName(row[nameCol])
		}
		if id != "" {
			ids[id] = struct{}{}
		}
	}
	if idCol < 0 && nameCol < 0 {
		return nil, errors.SpreadsheetError("questionnaire sheet lacks Domain_Id and Questionnaire Name columns", nil)
	}
	return ids, nil
}

// pickSheet prefers the literal "Data" sheet and falls back to the second
// sheet of the workbook, per the questionnaire contract.
func pickSheet(wb *excelize.File) (string, error) {
	sheets := wb.GetSheetList()
	for _, s := range sheets {
		if s == dataSheetName {
			return s, nil
		}
	}
	if len(sheets) >= 2 {
		return sheets[1], nil
	}
	return "", errors.SpreadsheetError("questionnaire workbook has no 'Data' sheet", nil)
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// domainCodeFromName derives a domain identifier from a questionnaire name
// by taking everything before the first hyphen. Names without a hyphen
// carry no derivable identifier.
func domainCodeFromName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || !strings.Contains(name, "-") {
		return ""
	}
	return strings.TrimSpace(strings.SplitN(name, "-", 2)[0])
}

// Apply intersects a group's domain ids against the allow-list. A nil
// allow-list means no filter; the ids pass through unchanged.
func Apply(domainIDs []string, allowed map[string]struct{}) []string {
	if allowed == nil {
		return domainIDs
	}
	var valid []string
	for _, id := range domainIDs {
		if _, ok := allowed[id]; ok {
			valid = append(valid, id)
		}
	}
	return valid
}
