package archive

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func buildZip(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		if strings.HasSuffix(name, "/") {
			if _, err := zw.Create(name); err != nil {
				t.Fatalf("create dir %s: %v", name, err)
			}
			continue
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write(content); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func groupByName(t *testing.T, d *Decomposition, folder string) []string {
	t.Helper()
	for _, g := range d.Groups {
		if g.FolderName == folder {
			names := make([]string, len(g.Files))
			for i, f := range g.Files {
				names[i] = f.Name
			}
			return names
		}
	}
	t.Fatalf("group %q not found in %+v", folder, d.Groups)
	return nil
}

func TestDecomposeWithRootFolder(t *testing.T) {
	buf := buildZip(t, map[string][]byte{
		"Vendor/Questionnaire.xlsx":               []byte("xlsx"),
		"Vendor/Business Continuity/bcp.pdf":      []byte("pdf"),
		"Vendor/Business Continuity/test-log.txt": []byte("log"),
		"Vendor/Physical Security/badge.png":      []byte("png"),
	})

	d := NewDecomposer(nil)
	result, err := d.Decompose(buf)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}

	if result.Questionnaire == nil || result.Questionnaire.Name != "Questionnaire.xlsx" {
		t.Fatalf("questionnaire not detected under root folder: %+v", result.Questionnaire)
	}
	if len(result.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(result.Groups))
	}
	if result.TotalFiles != 3 {
		t.Fatalf("expected 3 evidence files, got %d", result.TotalFiles)
	}

	names := groupByName(t, result, "Business Continuity")
	if len(names) != 2 {
		t.Fatalf("wrong group contents: %v", names)
	}
}

func TestDecomposeFlatArchive(t *testing.T) {
	buf := buildZip(t, map[string][]byte{
		"Responses.xlsx":        []byte("xlsx"),
		"Encryption/policy.pdf": []byte("pdf"),
	})

	result, err := NewDecomposer(nil).Decompose(buf)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	if result.Questionnaire == nil {
		t.Fatal("root-level Excel should be the questionnaire in a flat archive")
	}
	if len(result.Groups) != 1 || result.Groups[0].FolderName != "Encryption" {
		t.Fatalf("wrong groups: %+v", result.Groups)
	}
}

func TestDecomposeNestedFilesCollapseToTopFolder(t *testing.T) {
	buf := buildZip(t, map[string][]byte{
		"Vendor/Encryption/2025/q1/rotation.pdf": []byte("pdf"),
		"Vendor/Encryption/keys.txt":             []byte("txt"),
	})

	result, err := NewDecomposer(nil).Decompose(buf)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	if len(result.Groups) != 1 {
		t.Fatalf("nested paths should collapse into one group, got %+v", result.Groups)
	}
	names := groupByName(t, result, "Encryption")
	if len(names) != 2 {
		t.Fatalf("expected both files in the group, got %v", names)
	}
	for _, n := range names {
		if strings.Contains(n, "/") {
			t.Fatalf("file name should be the leaf, got %q", n)
		}
	}
}

func TestDecomposeExcelInSubfolderIsEvidence(t *testing.T) {
	buf := buildZip(t, map[string][]byte{
		"Vendor/Encryption/inventory.xlsx": []byte("xlsx"),
	})

	result, err := NewDecomposer(nil).Decompose(buf)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	if result.Questionnaire != nil {
		t.Fatalf("nested Excel must not be the questionnaire: %+v", result.Questionnaire)
	}
	names := groupByName(t, result, "Encryption")
	if len(names) != 1 || names[0] != "inventory.xlsx" {
		t.Fatalf("nested Excel should be evidence: %v", names)
	}
}

func TestDecomposeMultipleQuestionnaireCandidates(t *testing.T) {
	// Entries are written in map order, so build the zip by hand to fix the
	// archive order.
	var raw bytes.Buffer
	zw := zip.NewWriter(&raw)
	for _, name := range []string{"Vendor/First.xlsx", "Vendor/Second.xlsx", "Vendor/IAM/users.pdf"} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		w.Write([]byte("x"))
	}
	zw.Close()

	result, err := NewDecomposer(nil).Decompose(raw.Bytes())
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	if result.Questionnaire == nil || result.Questionnaire.Name != "First.xlsx" {
		t.Fatalf("first candidate in archive order should win: %+v", result.Questionnaire)
	}
	found := false
	for _, diag := range result.Diagnostics {
		if strings.Contains(diag, "Second.xlsx") && strings.Contains(diag, "Additional questionnaire candidate ignored") {
			found = true
		}
	}
	if !found {
		t.Fatalf("ignored candidate should be a diagnostic: %v", result.Diagnostics)
	}
}

func TestDecomposeCorruptArchiveIsFatal(t *testing.T) {
	if _, err := NewDecomposer(nil).Decompose([]byte("definitely not a zip")); err == nil {
		t.Fatal("expected error for corrupt archive")
	}
}

func TestDecomposeEmptyFolderOmitted(t *testing.T) {
	buf := buildZip(t, map[string][]byte{
		"Vendor/Empty Folder/":    nil,
		"Vendor/Encryption/k.pdf": []byte("pdf"),
	})

	result, err := NewDecomposer(nil).Decompose(buf)
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	if len(result.Groups) != 1 || result.Groups[0].FolderName != "Encryption" {
		t.Fatalf("empty folder should not produce a group: %+v", result.Groups)
	}
}

func TestDecomposeBackslashPaths(t *testing.T) {
	var raw bytes.Buffer
	zw := zip.NewWriter(&raw)
	w, err := zw.Create(`Vendor\Encryption\policy.pdf`)
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	w.Write([]byte("pdf"))
	zw.Close()

	result, err := NewDecomposer(nil).Decompose(raw.Bytes())
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	names := groupByName(t, result, "Encryption")
	if len(names) != 1 || names[0] != "policy.pdf" {
		t.Fatalf("backslash separators should normalize: %v", names)
	}
}

func TestMimeTypeFor(t *testing.T) {
	cases := map[string]string{
		"a.pdf":  "application/pdf",
		"b.JPG":  "image/jpeg",
		"c.jpeg": "image/jpeg",
		"d.png":  "image/png",
		"e.txt":  "text/plain",
		"f.bin":  "application/octet-stream",
	}
	for name, want := range cases {
		if got := MimeTypeFor(name); got != want {
			t.Fatalf("MimeTypeFor(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	buf := buildZip(t, map[string][]byte{
		"Vendor/Questionnaire.xlsx":  []byte("xlsx"),
		"Vendor/Encryption/k.pdf":    []byte("pdf"),
		"Vendor/Mystery Folder/x.md": []byte("md"),
	})

	known := func(folder string) bool { return folder == "Encryption" }
	report := NewDecomposer(nil).Validate(buf, known)

	if !report.IsValid {
		t.Fatalf("structurally sound archive should be valid: %+v", report)
	}
	if len(report.UnmappedFolders) != 1 || report.UnmappedFolders[0] != "Mystery Folder" {
		t.Fatalf("wrong unmapped folders: %v", report.UnmappedFolders)
	}
	if len(report.ExcelFiles) != 1 || !report.ExcelFiles[0].IsQuestionnaire {
		t.Fatalf("wrong excel classification: %+v", report.ExcelFiles)
	}
}

func TestValidateCorruptArchive(t *testing.T) {
	report := NewDecomposer(nil).Validate([]byte("junk"), func(string) bool { return true })
	if report.IsValid {
		t.Fatal("corrupt archive must be invalid")
	}
	if len(report.Errors) == 0 {
		t.Fatal("corrupt archive should carry an error message")
	}
}
