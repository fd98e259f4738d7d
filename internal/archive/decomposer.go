package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"attest/domain/assessment"
	"attest/internal/errors"
	"attest/internal/logx"
)

// extractWorkers bounds the fan-out used when pulling file contents out of
// the archive. Grouping itself is merged single-threaded after the join.
const extractWorkers = 8

// Decomposition is the output of one pass over a ZIP byte stream: evidence
// files grouped by their immediate subfolder, the optional root-level
// questionnaire, and non-fatal diagnostics.
type Decomposition struct {
	Groups        []assessment.FolderGroup
	Questionnaire *assessment.QuestionnaireFile
	Diagnostics   []string
	TotalFiles    int
}

// Decomposer parses vendor evidence archives
type Decomposer struct {
	logger *logx.Logger
}

// NewDecomposer creates an archive decomposer
func NewDecomposer(logger *logx.Logger) *Decomposer {
	if logger == nil {
		logger = logx.NewDefault()
	}
	return &Decomposer{logger: logger}
}

// normalizePath collapses separators to forward slashes and trims the path
func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimSpace(p)
}

// splitPath returns the non-empty components of a normalized path
func splitPath(p string) []string {
	parts := strings.Split(normalizePath(p), "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// isExcelFile reports whether a file has an Excel-family extension
func isExcelFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".xlsx", ".xls", ".xlsm":
		return true
	}
	return false
}

// MimeTypeFor maps a file name to the transport MIME type used for evidence
func MimeTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

// detectRootFolder returns the single top-level directory name iff every
// entry in the archive lives beneath it. Anything else (flat archive,
// multiple top-level components) means no root folder.
func detectRootFolder(files []*zip.File) string {
	first := ""
	hasDir := false
	for _, f := range files {
		parts := splitPath(f.Name)
		if len(parts) == 0 {
			continue
		}
		if first == "" {
			first = parts[0]
		} else if parts[0] != first {
			return ""
		}
		if f.FileInfo().IsDir() && len(parts) == 1 {
			hasDir = true
		}
		if len(parts) > 1 {
			hasDir = true
		}
	}
	if first == "" || !hasDir {
		return ""
	}
	return first
}

// effectiveParts strips the detected root folder off a path's components
func effectiveParts(parts []string, rootFolder string) []string {
	if rootFolder != "" && len(parts) > 0 && parts[0] == rootFolder {
		return parts[1:]
	}
	return parts
}

// isQuestionnaireCandidate reports whether a file entry sits at the
// effective root and carries an Excel-family extension. Classification is
// positional: an Excel file inside a subfolder is evidence, never a
// questionnaire.
func isQuestionnaireCandidate(f *zip.File, rootFolder string) bool {
	if f.FileInfo().IsDir() || !isExcelFile(f.Name) {
		return false
	}
	return len(effectiveParts(splitPath(f.Name), rootFolder)) == 1
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return data, nil
}

// Decompose parses a ZIP byte buffer into evidence folder groups and an
// optional questionnaire file. A corrupt archive is fatal; an unreadable
// individual entry or an empty subfolder is not.
func (d *Decomposer) Decompose(buf []byte) (*Decomposition, error) {
	zr, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, errors.ArchiveCorrupt(err)
	}

	result := &Decomposition{}

	rootFolder := detectRootFolder(zr.File)
	d.logger.Debug("[Decomposer] root folder: %q", rootFolder)

	// Questionnaire detection runs over entries in archive order: the first
	// root-level Excel file wins, later candidates are surfaced as
	// diagnostics rather than silently ignored.
	var questionnaireEntry *zip.File
	for _, f := range zr.File {
		if !isQuestionnaireCandidate(f, rootFolder) {
			continue
		}
		if questionnaireEntry == nil {
			questionnaireEntry = f
			d.logger.Info("[Decomposer] questionnaire candidate: %s", f.Name)
			continue
		}
		result.Diagnostics = append(result.Diagnostics,
			fmt.Sprintf("Additional questionnaire candidate ignored: %s", f.Name))
	}
	if questionnaireEntry != nil {
		content, err := readEntry(questionnaireEntry)
		if err != nil {
			result.Diagnostics = append(result.Diagnostics,
				fmt.Sprintf("Failed to extract questionnaire %s: %v", questionnaireEntry.Name, err))
		} else {
			name := splitPath(questionnaireEntry.Name)
			result.Questionnaire = &assessment.QuestionnaireFile{
				Name:    name[len(name)-1],
				Content: content,
			}
		}
	} else {
		d.logger.Info("[Decomposer] no questionnaire file found at root level")
	}

	// Evidence candidates: every non-directory entry strictly inside a
	// subfolder one level below the effective root. Files nested deeper
	// collapse into their nearest top-level subfolder group.
	type candidate struct {
		file   *zip.File
		folder string
		name   string
	}
	var candidates []candidate
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		parts := effectiveParts(splitPath(f.Name), rootFolder)
		if len(parts) < 2 {
			continue
		}
		candidates = append(candidates, candidate{
			file:   f,
			folder: parts[0],
			name:   parts[len(parts)-1],
		})
	}

	// Extraction fans out; the grouping map is written only after the join.
	extracted := make([]assessment.EvidenceFile, len(candidates))
	failed := make([]string, len(candidates))
	var g errgroup.Group
	g.SetLimit(extractWorkers)
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			content, err := readEntry(c.file)
			if err != nil {
				failed[i] = fmt.Sprintf("Failed to extract %s: %v", c.file.Name, err)
				return nil
			}
			extracted[i] = assessment.EvidenceFile{
				Name:      c.name,
				MimeType:  MimeTypeFor(c.name),
				SizeBytes: len(content),
				Content:   content,
			}
			return nil
		})
	}
	_ = g.Wait()

	grouped := make(map[string][]assessment.EvidenceFile)
	var order []string
	for i, c := range candidates {
		if failed[i] != "" {
			result.Diagnostics = append(result.Diagnostics, failed[i])
			continue
		}
		if _, seen := grouped[c.folder]; !seen {
			order = append(order, c.folder)
		}
		grouped[c.folder] = append(grouped[c.folder], extracted[i])
	}

	for _, folder := range order {
		files := grouped[folder]
		result.Groups = append(result.Groups, assessment.FolderGroup{
			FolderName: folder,
			Files:      files,
		})
		result.TotalFiles += len(files)
		d.logger.Debug("[Decomposer] group %q: %d files", folder, len(files))
	}

	d.logger.Info("[Decomposer] decomposed archive: %d groups, %d files, %d diagnostics",
		len(result.Groups), result.TotalFiles, len(result.Diagnostics))
	return result, nil
}

// FileClassification describes one Excel file found during validation
type FileClassification struct {
	Path            string `json:"path"`
	IsQuestionnaire bool   `json:"isQuestionnaire"`
}

// ValidationReport is the output of a dry-run structure check: which folders
// will not map to a control, and how Excel files will be classified, without
// extracting any file contents.
type ValidationReport struct {
	IsValid         bool                 `json:"isValid"`
	Errors          []string             `json:"errors"`
	UnmappedFolders []string             `json:"unmappedFolders"`
	ExcelFiles      []FileClassification `json:"excelFiles"`
}

// Validate inspects archive structure without extracting contents. Unmapped
// folders are warnings, not validity failures; only an unreadable archive
// invalidates the upload.
func (d *Decomposer) Validate(buf []byte, knownName func(folderName string) bool) *ValidationReport {
	report := &ValidationReport{IsValid: true}

	zr, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		report.IsValid = false
		report.Errors = append(report.Errors, "Failed to read or parse the ZIP file. It may be corrupted.")
		return report
	}

	rootFolder := detectRootFolder(zr.File)
	sawQuestionnaire := false
	foldersWithContent := make(map[string]struct{})

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if isExcelFile(f.Name) {
			isQ := isQuestionnaireCandidate(f, rootFolder) && !sawQuestionnaire
			if isQ {
				sawQuestionnaire = true
			}
			report.ExcelFiles = append(report.ExcelFiles, FileClassification{
				Path:            normalizePath(f.Name),
				IsQuestionnaire: isQ,
			})
		}
		parts := effectiveParts(splitPath(f.Name), rootFolder)
		if len(parts) >= 2 {
			foldersWithContent[parts[0]] = struct{}{}
		}
	}

	for folder := range foldersWithContent {
		if !knownName(folder) {
			report.UnmappedFolders = append(report.UnmappedFolders, folder)
		}
	}
	sort.Strings(report.UnmappedFolders)

	if len(report.UnmappedFolders) > 0 {
		d.logger.Warn("[Decomposer] unmapped folders found: %s", strings.Join(report.UnmappedFolders, ", "))
	}
	return report
}
