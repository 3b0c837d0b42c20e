package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"edgeml-orchestrator/api/rest/routes"
	"edgeml-orchestrator/config"
	"edgeml-orchestrator/core/deploy"
	"edgeml-orchestrator/core/fleet"
	"edgeml-orchestrator/core/pipeline"
	"edgeml-orchestrator/core/registry"
	"edgeml-orchestrator/core/repository"
	"edgeml-orchestrator/core/spec"
	"edgeml-orchestrator/providers/aws"
	"edgeml-orchestrator/storage"

	"github.com/gorilla/mux"
)

func main() {
	cfg := config.Load()

	// Initialize database
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Database connected successfully")

	// Initialize AWS client
	ctx := context.Background()
	awsClient, err := aws.NewClient(ctx, cfg.AWSRegion)
	if err != nil {
		log.Fatalf("Failed to initialize AWS client: %v", err)
	}

	pollCfg := deploy.PollConfig{
		Initial: cfg.PollInitialInterval,
		Max:     cfg.PollMaxInterval,
		Timeout: cfg.PollTimeout,
	}

	// Initialize pipeline stages
	trigger := pipeline.NewTrigger(awsClient.SageMaker, cfg.PipelineName, pollCfg)
	resolver := registry.NewResolver(awsClient.SageMaker)
	compiler := deploy.NewCompiler(awsClient.SageMaker, cfg.ExecutionRoleARN, pollCfg)
	packager := deploy.NewPackager(awsClient.SageMaker, cfg.ExecutionRoleARN, pollCfg)
	dispatcher := fleet.NewDispatcher(awsClient.IoT)

	// Initialize repositories
	runRepo := repository.NewRunRepository(db)

	// Initialize runner
	runner := pipeline.NewRunner(trigger, resolver, compiler, packager, dispatcher, runRepo)

	// Initialize dataset stager
	stager := storage.NewDatasetStager(awsClient.Uploader, cfg.ArtifactBucket, cfg.DatasetPrefix)

	// Setup routes
	r := mux.NewRouter()
	routes.SetupRoutes(r, db, runner, stager, spec.Defaults{
		ModelPackageGroup: cfg.ModelPackageGroup,
		FleetTargetARN:    cfg.FleetTargetARN,
	})

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Start server
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Starting server on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := server.Shutdown(context.Background()); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
