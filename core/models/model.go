package models

// ModelVersion represents one versioned entry in a model package group
type ModelVersion struct {
	PackageGroup   string
	Version        int64
	ARN            string
	ArtifactURI    string // s3:// location of the trained model artifact
	ApprovalStatus string
}

// CompilationJob represents a remote hardware-target compilation task
type CompilationJob struct {
	Name              string
	InputArtifactURI  string
	DataInputConfig   string // input tensor shape, framework-specific JSON
	Framework         string
	TargetOS          string
	TargetArch        string
	OutputLocation    string
	MaxRuntimeSeconds int32
	Status            string
	OutputArtifactURI string
}

// PackagingJob represents a remote edge-packaging task
type PackagingJob struct {
	Name               string
	CompilationJobName string
	ModelName          string
	ModelVersion       string
	OutputLocation     string
	Status             string
	PackagedURI        string
}

// FleetJob represents a fire-and-forget job dispatched to a device group.
// No lifecycle is tracked locally beyond submission.
type FleetJob struct {
	ID        string
	TargetARN string
	Document  string
}
