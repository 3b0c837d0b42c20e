package routes

import (
	"edgeml-orchestrator/api/rest/handlers"
	"edgeml-orchestrator/core/pipeline"
	"edgeml-orchestrator/core/repository"
	"edgeml-orchestrator/core/spec"
	"edgeml-orchestrator/storage"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *mux.Router, db *repository.DB, runner *pipeline.Runner, stager *storage.DatasetStager, defaults spec.Defaults) {
	runRepo := repository.NewRunRepository(db)
	eventRepo := repository.NewEventRepository(db)
	runHandler := handlers.NewRunHandler(runRepo, eventRepo, runner, defaults)
	datasetHandler := handlers.NewDatasetHandler(stager)

	api := r.PathPrefix("/v1").Subrouter()

	// Run endpoints
	api.HandleFunc("/runs", runHandler.LaunchRun).Methods("POST")
	api.HandleFunc("/runs/{id}", runHandler.GetRun).Methods("GET")
	api.HandleFunc("/runs", runHandler.ListRuns).Methods("GET")
	api.HandleFunc("/runs/{id}/events", runHandler.GetRunEvents).Methods("GET")

	// Dataset endpoints
	api.HandleFunc("/datasets", datasetHandler.StageDataset).Methods("POST")
}
