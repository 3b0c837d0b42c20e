package handlers

import (
	"encoding/json"
	"net/http"

	"edgeml-orchestrator/storage"
)

// DatasetHandler handles dataset staging HTTP requests
type DatasetHandler struct {
	stager *storage.DatasetStager
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(stager *storage.DatasetStager) *DatasetHandler {
	return &DatasetHandler{stager: stager}
}

// StageDatasetRequest represents the request to stage a dataset
type StageDatasetRequest struct {
	Name     string `json:"name"`
	LocalDir string `json:"local_dir"`
}

// StageDatasetResponse represents the response after staging
type StageDatasetResponse struct {
	DatasetURI string `json:"dataset_uri"`
}

// StageDataset handles POST /v1/datasets. It uploads a prepared
// class-labeled image folder from the server host to the training bucket.
func (h *DatasetHandler) StageDataset(w http.ResponseWriter, r *http.Request) {
	var req StageDatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.LocalDir == "" {
		http.Error(w, "name and local_dir are required", http.StatusBadRequest)
		return
	}

	uri, err := h.stager.StageDataset(r.Context(), req.Name, req.LocalDir)
	if err != nil {
		http.Error(w, "Failed to stage dataset: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(StageDatasetResponse{DatasetURI: uri})
}
