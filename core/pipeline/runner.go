package pipeline

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"edgeml-orchestrator/core/deploy"
	"edgeml-orchestrator/core/fleet"
	"edgeml-orchestrator/core/models"
)

// StageError attributes a run failure to its originating stage
type StageError struct {
	Stage models.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// TrainingTrigger starts a training pipeline execution and blocks until
// it reaches terminal success.
type TrainingTrigger interface {
	Start(ctx context.Context, params TrainingParams) (string, error)
	Wait(ctx context.Context, executionARN string) error
}

// ModelResolver returns the latest approved model version of a package group
type ModelResolver interface {
	LatestApproved(ctx context.Context, packageGroup string) (*models.ModelVersion, error)
}

// CompilerStage submits a compilation job and blocks until terminal status
type CompilerStage interface {
	Run(ctx context.Context, req deploy.CompileRequest) (*models.CompilationJob, error)
}

// PackagerStage submits a packaging job and blocks until terminal status
type PackagerStage interface {
	Run(ctx context.Context, req deploy.PackageRequest) (*models.PackagingJob, error)
}

// FleetDispatcher publishes the new-model job to the device group
type FleetDispatcher interface {
	Dispatch(ctx context.Context, req fleet.DispatchRequest) (*models.FleetJob, error)
}

// RunStore persists runs and their status transitions
type RunStore interface {
	UpdateRunStatus(runID string, fromStatus, toStatus models.RunStatus, reason string, meta map[string]interface{}) error
	SaveRun(run *models.Run) error
}

// Runner executes one deployment run: train, resolve the approved model,
// compile it for the edge target, package it, and dispatch it to the
// device fleet. Stages run strictly in order; each one blocks until its
// remote job is terminal, and any failure aborts the chain. There are no
// retries and no rollback.
type Runner struct {
	trigger    TrainingTrigger
	resolver   ModelResolver
	compiler   CompilerStage
	packager   PackagerStage
	dispatcher FleetDispatcher
	store      RunStore
}

// NewRunner creates a new deployment runner
func NewRunner(
	trigger TrainingTrigger,
	resolver ModelResolver,
	compiler CompilerStage,
	packager PackagerStage,
	dispatcher FleetDispatcher,
	store RunStore,
) *Runner {
	return &Runner{
		trigger:    trigger,
		resolver:   resolver,
		compiler:   compiler,
		packager:   packager,
		dispatcher: dispatcher,
		store:      store,
	}
}

// Execute drives the run through every stage. The run must already be
// persisted; Execute updates it as stages progress.
func (r *Runner) Execute(ctx context.Context, run *models.Run, spec *models.DeploymentSpec) error {
	log.Printf("Run %s: starting deployment of %s", run.ID, spec.ModelName)

	if spec.Training != nil {
		r.enterStage(run, models.StageTraining, "training_started")

		arn, err := r.trigger.Start(ctx, TrainingParams{
			InputDataURI:      spec.Training.InputDataURI,
			InstanceType:      spec.Training.InstanceType,
			ApprovalStatus:    spec.Training.ApprovalStatus,
			PackageGroup:      spec.ModelPackageGroup,
			ImageSize:         spec.Training.ImageSize,
			AugmentationCount: spec.Training.AugmentationCount,
		})
		if err != nil {
			return r.fail(run, models.StageTraining, err)
		}
		run.PipelineExecutionARN = arn
		r.save(run)

		if err := r.trigger.Wait(ctx, arn); err != nil {
			return r.fail(run, models.StageTraining, err)
		}
	}

	r.enterStage(run, models.StageResolve, "resolving_model")
	model, err := r.resolver.LatestApproved(ctx, spec.ModelPackageGroup)
	if err != nil {
		return r.fail(run, models.StageResolve, err)
	}
	run.ModelVersion = model.Version
	run.ModelArtifactURI = model.ArtifactURI
	r.save(run)
	log.Printf("Run %s: resolved %s version %d (%s)", run.ID, spec.ModelPackageGroup, model.Version, model.ArtifactURI)

	r.enterStage(run, models.StageCompilation, "compilation_started")
	compiled, err := r.compiler.Run(ctx, deploy.CompileRequest{
		JobPrefix:         spec.ModelName,
		ModelArtifactURI:  model.ArtifactURI,
		DataInputConfig:   spec.Compilation.DataInputConfig,
		Framework:         spec.Compilation.Framework,
		TargetOS:          spec.Compilation.TargetOS,
		TargetArch:        spec.Compilation.TargetArch,
		OutputLocation:    spec.Compilation.OutputURI,
		MaxRuntimeSeconds: spec.Compilation.MaxRuntimeSeconds,
	})
	if err != nil {
		return r.fail(run, models.StageCompilation, err)
	}
	run.CompilationJobName = compiled.Name
	run.CompiledArtifactURI = compiled.OutputArtifactURI
	r.save(run)

	r.enterStage(run, models.StagePackaging, "packaging_started")
	packaged, err := r.packager.Run(ctx, deploy.PackageRequest{
		JobPrefix:          spec.ModelName,
		CompilationJobName: compiled.Name,
		ModelName:          spec.ModelName,
		ModelVersion:       strconv.FormatInt(model.Version, 10),
		OutputLocation:     spec.Packaging.OutputURI,
	})
	if err != nil {
		return r.fail(run, models.StagePackaging, err)
	}
	run.PackagingJobName = packaged.Name
	run.PackagedArtifactURI = packaged.PackagedURI
	r.save(run)

	r.enterStage(run, models.StageDispatch, "dispatch_started")
	fleetJob, err := r.dispatcher.Dispatch(ctx, fleet.DispatchRequest{
		TargetARN:    spec.Fleet.TargetARN,
		ModelName:    spec.ModelName,
		ModelVersion: model.Version,
		PackagedURI:  packaged.PackagedURI,
	})
	if err != nil {
		return r.fail(run, models.StageDispatch, err)
	}
	run.FleetJobID = fleetJob.ID

	now := time.Now()
	run.CompletedAt = &now
	r.save(run)
	r.transition(run, models.RunStatusCompleted, "run_completed", nil)

	log.Printf("Run %s: completed, fleet job %s", run.ID, fleetJob.ID)
	return nil
}

func (r *Runner) enterStage(run *models.Run, stage models.Stage, reason string) {
	r.transition(run, models.StatusFor(stage), reason, nil)
}

func (r *Runner) fail(run *models.Run, stage models.Stage, err error) error {
	run.FailedStage = stage
	run.FailureReason = err.Error()
	r.save(run)
	r.transition(run, models.RunStatusFailed, string(stage)+"_failed", map[string]interface{}{
		"error": err.Error(),
	})

	stageErr := &StageError{Stage: stage, Err: err}
	log.Printf("Run %s: %v", run.ID, stageErr)
	return stageErr
}

func (r *Runner) transition(run *models.Run, to models.RunStatus, reason string, meta map[string]interface{}) {
	from := run.Status
	run.Status = to
	if err := r.store.UpdateRunStatus(run.ID, from, to, reason, meta); err != nil {
		log.Printf("Run %s: failed to record status %s: %v", run.ID, to, err)
	}
}

func (r *Runner) save(run *models.Run) {
	if err := r.store.SaveRun(run); err != nil {
		log.Printf("Run %s: failed to save: %v", run.ID, err)
	}
}
