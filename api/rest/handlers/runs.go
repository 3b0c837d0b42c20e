package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"edgeml-orchestrator/core/models"
	"edgeml-orchestrator/core/pipeline"
	"edgeml-orchestrator/core/repository"
	"edgeml-orchestrator/core/spec"

	"github.com/gorilla/mux"
)

// RunHandler handles deployment-run HTTP requests
type RunHandler struct {
	runRepo   *repository.RunRepository
	eventRepo *repository.EventRepository
	runner    *pipeline.Runner
	defaults  spec.Defaults
}

// NewRunHandler creates a new run handler
func NewRunHandler(
	runRepo *repository.RunRepository,
	eventRepo *repository.EventRepository,
	runner *pipeline.Runner,
	defaults spec.Defaults,
) *RunHandler {
	return &RunHandler{
		runRepo:   runRepo,
		eventRepo: eventRepo,
		runner:    runner,
		defaults:  defaults,
	}
}

// LaunchRunRequest represents the request to launch a deployment run
type LaunchRunRequest struct {
	Name     string `json:"name"`
	SpecYAML string `json:"spec_yaml"`
}

// LaunchRunResponse represents the response after launching a run
type LaunchRunResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// LaunchRun handles POST /v1/runs
func (h *RunHandler) LaunchRun(w http.ResponseWriter, r *http.Request) {
	var req LaunchRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	deploySpec, err := spec.ParseDeploymentSpec(req.SpecYAML, h.defaults)
	if err != nil {
		http.Error(w, "Invalid deployment spec: "+err.Error(), http.StatusBadRequest)
		return
	}

	run := &models.Run{
		Name:              req.Name,
		Status:            models.RunStatusPending,
		ModelPackageGroup: deploySpec.ModelPackageGroup,
		ModelName:         deploySpec.ModelName,
		SpecYAML:          req.SpecYAML,
	}

	if err := h.runRepo.CreateRun(run); err != nil {
		http.Error(w, "Failed to create run: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Capture the response before handing the run to the worker: the
	// runner mutates it as stages progress.
	resp := LaunchRunResponse{
		ID:        run.ID,
		Status:    string(run.Status),
		CreatedAt: run.CreatedAt,
	}

	// Stages block on remote jobs for minutes; run them off the request.
	go func() {
		if err := h.runner.Execute(context.Background(), run, deploySpec); err != nil {
			log.Printf("Run %s failed: %v", run.ID, err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// RunResponse represents a run in API responses
type RunResponse struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Status              string     `json:"status"`
	ModelPackageGroup   string     `json:"model_package_group"`
	ModelName           string     `json:"model_name"`
	ModelVersion        int64      `json:"model_version,omitempty"`
	ModelArtifactURI    string     `json:"model_artifact_uri,omitempty"`
	CompilationJobName  string     `json:"compilation_job_name,omitempty"`
	CompiledArtifactURI string     `json:"compiled_artifact_uri,omitempty"`
	PackagingJobName    string     `json:"packaging_job_name,omitempty"`
	PackagedArtifactURI string     `json:"packaged_artifact_uri,omitempty"`
	FleetJobID          string     `json:"fleet_job_id,omitempty"`
	FailedStage         string     `json:"failed_stage,omitempty"`
	FailureReason       string     `json:"failure_reason,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
}

func runResponse(run *models.Run) RunResponse {
	return RunResponse{
		ID:                  run.ID,
		Name:                run.Name,
		Status:              string(run.Status),
		ModelPackageGroup:   run.ModelPackageGroup,
		ModelName:           run.ModelName,
		ModelVersion:        run.ModelVersion,
		ModelArtifactURI:    run.ModelArtifactURI,
		CompilationJobName:  run.CompilationJobName,
		CompiledArtifactURI: run.CompiledArtifactURI,
		PackagingJobName:    run.PackagingJobName,
		PackagedArtifactURI: run.PackagedArtifactURI,
		FleetJobID:          run.FleetJobID,
		FailedStage:         string(run.FailedStage),
		FailureReason:       run.FailureReason,
		CreatedAt:           run.CreatedAt,
		UpdatedAt:           run.UpdatedAt,
		CompletedAt:         run.CompletedAt,
	}
}

// GetRun handles GET /v1/runs/{id}
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	runID := vars["id"]

	run, err := h.runRepo.GetRun(runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to fetch run: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runResponse(run))
}

// ListRuns handles GET /v1/runs
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	var status *models.RunStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := models.RunStatus(s)
		status = &st
	}

	runs, err := h.runRepo.ListRuns(status, 100)
	if err != nil {
		http.Error(w, "Failed to list runs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, runResponse(run))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetRunEvents handles GET /v1/runs/{id}/events
func (h *RunHandler) GetRunEvents(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	runID := vars["id"]

	events, err := h.eventRepo.GetRunEvents(runID, 100)
	if err != nil {
		http.Error(w, "Failed to fetch events: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}
