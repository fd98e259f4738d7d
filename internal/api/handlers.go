package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"attest/domain/assessment"
	"attest/internal/report"
	"attest/models"
)

type createJobRequest struct {
	UserID      string `json:"userId"`
	UserName    string `json:"userName"`
	ZipFileName string `json:"zipFileName"`
	ZipFile     string `json:"zipFile"` // base64, optionally a data URL
}

type jobStatusResponse struct {
	Job      *models.Job          `json:"job"`
	Progress *assessment.Progress `json:"progress,omitempty"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.UserName == "" || req.ZipFile == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	zipBytes, err := decodeZipPayload(req.ZipFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid zip payload: "+err.Error())
		return
	}

	job := models.NewJob(req.UserID, req.UserName, req.ZipFileName, len(zipBytes))
	if err := s.repo.Create(r.Context(), job); err != nil {
		s.logger.Error("[API] failed to create job: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	// Processing outlives the upload request; the caller polls status.
	go s.worker.Process(context.Background(), job.UUID, zipBytes)

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message": "Job created successfully",
		"jobUUID": job.UUID,
		"status":  job.Status,
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	jobList, err := s.repo.ListByUser(r.Context(), userID, 50)
	if err != nil {
		s.logger.Error("[API] failed to list jobs: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobList,
		"total": len(jobList),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.fetchJob(w, r)
	if !ok {
		return
	}
	resp := jobStatusResponse{Job: job}
	if p, found := s.progress.Get(job.UUID); found {
		resp.Progress = &p
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleJobReport(w http.ResponseWriter, r *http.Request) {
	job, ok := s.fetchJob(w, r)
	if !ok {
		return
	}
	if job.Status != models.JobCompleted || job.Result == nil {
		writeError(w, http.StatusConflict, "job has no report yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"report":      job.Result.Report,
		"diagnostics": job.Result.Diagnostics,
	})
}

func (s *Server) handleJobReportHTML(w http.ResponseWriter, r *http.Request) {
	job, ok := s.fetchJob(w, r)
	if !ok {
		return
	}
	if job.Status != models.JobCompleted || job.Result == nil {
		writeError(w, http.StatusConflict, "job has no report yet")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(report.RenderReportHTML(job.Result.Report)))
}

func (s *Server) handleValidateArchive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ZipFile string `json:"zipFile"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ZipFile == "" {
		writeError(w, http.StatusBadRequest, "zipFile is required")
		return
	}
	zipBytes, err := decodeZipPayload(req.ZipFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid zip payload: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.service.ValidateArchive(zipBytes))
}

func (s *Server) fetchJob(w http.ResponseWriter, r *http.Request) (*models.Job, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return nil, false
	}
	job, err := s.repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return nil, false
	}
	return job, true
}

// decodeZipPayload accepts both a bare base64 string and a data URL
func decodeZipPayload(payload string) ([]byte, error) {
	if idx := strings.Index(payload, ","); idx >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+1:]
	}
	return base64.StdEncoding.DecodeString(payload)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
