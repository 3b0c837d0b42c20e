package models

// DeploymentSpec is a fully-parsed deployment request: what to train (or
// which approved model to pick up), how to compile and package it, and
// which device group receives it.
type DeploymentSpec struct {
	ModelName         string
	ModelPackageGroup string

	Training    *TrainingSpec // nil: skip training, deploy latest approved
	Compilation CompilationSpec
	Packaging   PackagingSpec
	Fleet       FleetSpec
}

// TrainingSpec parameterizes one training pipeline execution
type TrainingSpec struct {
	InputDataURI      string
	InstanceType      string
	ApprovalStatus    string
	ImageSize         int
	AugmentationCount int
}

// CompilationSpec parameterizes the hardware-target compilation stage
type CompilationSpec struct {
	Framework         string
	DataInputConfig   string
	TargetOS          string
	TargetArch        string
	OutputURI         string
	MaxRuntimeSeconds int32
}

// PackagingSpec parameterizes the edge packaging stage
type PackagingSpec struct {
	OutputURI string
}

// FleetSpec names the device group that receives the packaged model
type FleetSpec struct {
	TargetARN string
}
