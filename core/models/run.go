package models

import "time"

// Run represents one edge-deployment run through the pipeline
type Run struct {
	ID     string
	Name   string
	Status RunStatus

	// Training pipeline stage
	PipelineName         string
	PipelineExecutionARN string

	// Resolved model
	ModelPackageGroup string
	ModelName         string
	ModelVersion      int64
	ModelArtifactURI  string

	// Compilation stage
	CompilationJobName  string
	CompiledArtifactURI string

	// Packaging stage
	PackagingJobName    string
	PackagedArtifactURI string

	// Fleet dispatch stage
	FleetJobID string

	// Failure attribution
	FailedStage   Stage
	FailureReason string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time

	SpecYAML string // Original spec for replay/debug
}

// RunStatus represents the current status of a deployment run
type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusTraining   RunStatus = "training"
	RunStatusResolving  RunStatus = "resolving"
	RunStatusCompiling  RunStatus = "compiling"
	RunStatusPackaging  RunStatus = "packaging"
	RunStatusDispatched RunStatus = "dispatched"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// Stage identifies a pipeline stage for failure attribution
type Stage string

const (
	StageTraining    Stage = "training"
	StageResolve     Stage = "resolve"
	StageCompilation Stage = "compilation"
	StagePackaging   Stage = "packaging"
	StageDispatch    Stage = "dispatch"
)

// StatusFor returns the run status a run enters when the given stage starts
func StatusFor(stage Stage) RunStatus {
	switch stage {
	case StageTraining:
		return RunStatusTraining
	case StageResolve:
		return RunStatusResolving
	case StageCompilation:
		return RunStatusCompiling
	case StagePackaging:
		return RunStatusPackaging
	case StageDispatch:
		return RunStatusDispatched
	}
	return RunStatusPending
}
