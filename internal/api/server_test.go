package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"attest/app"
	"attest/domain/assessment"
	"attest/domain/registry"
	"attest/internal/jobs"
	"attest/models"
	"attest/ports"
)

type memoryRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*models.Job
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{jobs: make(map[uuid.UUID]*models.Job)}
}

func (r *memoryRepo) Create(ctx context.Context, job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *job
	r.jobs[job.UUID] = &copied
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s not found", id)
	}
	copied := *job
	return &copied, nil
}

func (r *memoryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Job
	for _, job := range r.jobs {
		if job.UserID == userID {
			copied := *job
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memoryRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id].Status = status
	return nil
}

func (r *memoryRepo) Complete(ctx context.Context, id uuid.UUID, result models.JobResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id].Status = models.JobCompleted
	r.jobs[id].Result = &result
	return nil
}

func (r *memoryRepo) Fail(ctx context.Context, id uuid.UUID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id].Status = models.JobFailed
	r.jobs[id].Result = &models.JobResult{Error: message}
	return nil
}

type stubLLMClient struct{}

func (stubLLMClient) EvaluateControl(ctx context.Context, req ports.ControlRequest) ([]string, error) {
	answers := make([]string, len(req.Prompts))
	for i := range answers {
		answers[i] = `{"Answer":"YES","Summary":"ok"}`
	}
	return answers, nil
}

func testServer(t *testing.T) (*Server, *memoryRepo) {
	t.Helper()
	reg, err := registry.NewFromEntries([]registry.Entry{
		{DomainID: "ENC-001", DomainName: "Encryption", Question: "Is data encrypted?"},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	service := app.NewAssessmentService(reg, nil, stubLLMClient{}, "system", nil)
	repo := newMemoryRepo()
	board := jobs.NewProgressBoard()
	worker := jobs.NewWorker(service, repo, board, nil)
	return NewServer(service, worker, repo, board, nil), repo
}

func testZipBase64(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("Vendor/Encryption/policy.pdf")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	w.Write([]byte("pdf"))
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateJobRunsToCompletion(t *testing.T) {
	server, repo := testServer(t)

	rec := doJSON(t, server.Handler(), http.MethodPost, "/api/jobs", map[string]string{
		"userId":      "u1",
		"userName":    "User One",
		"zipFileName": "upload.zip",
		"zipFile":     testZipBase64(t),
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		JobUUID uuid.UUID `json:"jobUUID"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	// Processing happens on a background goroutine; poll the repo.
	deadline := time.Now().Add(5 * time.Second)
	for {
		job, err := repo.Get(context.Background(), resp.JobUUID)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if job.Status == models.JobCompleted {
			if job.Result == nil || len(job.Result.Report) != 1 {
				t.Fatalf("completed job has no report: %+v", job.Result)
			}
			break
		}
		if job.Status == models.JobFailed {
			t.Fatalf("job failed: %+v", job.Result)
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not complete in time, status=%s", job.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCreateJobMissingFields(t *testing.T) {
	server, _ := testServer(t)
	rec := doJSON(t, server.Handler(), http.MethodPost, "/api/jobs", map[string]string{
		"userId": "u1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateJobBadBase64(t *testing.T) {
	server, _ := testServer(t)
	rec := doJSON(t, server.Handler(), http.MethodPost, "/api/jobs", map[string]string{
		"userId":   "u1",
		"userName": "User One",
		"zipFile":  "!!! not base64 !!!",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestJobStatusNotFound(t *testing.T) {
	server, _ := testServer(t)

	rec := doJSON(t, server.Handler(), http.MethodGet, "/api/jobs/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = doJSON(t, server.Handler(), http.MethodGet, "/api/jobs/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", rec.Code)
	}
}

func TestJobReportConflictBeforeCompletion(t *testing.T) {
	server, repo := testServer(t)

	job := models.NewJob("u1", "User One", "upload.zip", 10)
	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := doJSON(t, server.Handler(), http.MethodGet, "/api/jobs/"+job.UUID.String()+"/report", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for pending job, got %d", rec.Code)
	}
}

func TestJobReportAfterCompletion(t *testing.T) {
	server, repo := testServer(t)

	job := models.NewJob("u1", "User One", "upload.zip", 10)
	repo.Create(context.Background(), job)
	repo.Complete(context.Background(), job.UUID, models.JobResult{
		Report: []assessment.ReportRow{
			{ID: "ENC-001-1", ControlID: "ENC-001", Status: "success", Answer: "Yes", Summary: "ok"},
		},
		Diagnostics: []string{"Unmapped folder: Misc"},
	})

	rec := doJSON(t, server.Handler(), http.MethodGet, "/api/jobs/"+job.UUID.String()+"/report", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Unmapped folder: Misc") {
		t.Fatalf("diagnostics missing from report payload: %s", rec.Body.String())
	}

	htmlRec := doJSON(t, server.Handler(), http.MethodGet, "/api/jobs/"+job.UUID.String()+"/report.html", nil)
	if htmlRec.Code != http.StatusOK {
		t.Fatalf("expected 200 for html report, got %d", htmlRec.Code)
	}
	if ct := htmlRec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("wrong content type: %q", ct)
	}
}

func TestListJobsRequiresUser(t *testing.T) {
	server, repo := testServer(t)

	rec := doJSON(t, server.Handler(), http.MethodGet, "/api/jobs", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without userId, got %d", rec.Code)
	}

	repo.Create(context.Background(), models.NewJob("u1", "User One", "a.zip", 1))
	repo.Create(context.Background(), models.NewJob("u2", "User Two", "b.zip", 1))

	rec = doJSON(t, server.Handler(), http.MethodGet, "/api/jobs?userId=u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 {
		t.Fatalf("expected 1 job for u1, got %d", resp.Total)
	}
}

func TestValidateEndpoint(t *testing.T) {
	server, _ := testServer(t)

	rec := doJSON(t, server.Handler(), http.MethodPost, "/api/validate", map[string]string{
		"zipFile": testZipBase64(t),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report struct {
		IsValid         bool     `json:"isValid"`
		UnmappedFolders []string `json:"unmappedFolders"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !report.IsValid || len(report.UnmappedFolders) != 0 {
		t.Fatalf("unexpected validation report: %+v", report)
	}

	rec = doJSON(t, server.Handler(), http.MethodPost, "/api/validate", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without zipFile, got %d", rec.Code)
	}
}

func TestDecodeZipPayloadDataURL(t *testing.T) {
	raw := []byte{0x50, 0x4b, 0x03, 0x04}
	encoded := base64.StdEncoding.EncodeToString(raw)

	got, err := decodeZipPayload("data:application/zip;base64," + encoded)
	if err != nil {
		t.Fatalf("data URL decode failed: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("wrong bytes: %v", got)
	}

	got, err = decodeZipPayload(encoded)
	if err != nil || !bytes.Equal(got, raw) {
		t.Fatalf("bare base64 decode failed: %v %v", got, err)
	}
}
