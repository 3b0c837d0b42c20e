package spec

import (
	"fmt"

	"edgeml-orchestrator/core/models"

	"gopkg.in/yaml.v3"
)

// DeploymentSpec represents the YAML deployment specification
type DeploymentSpec struct {
	Deployment DeploymentSpecBody `yaml:"deployment"`
}

// DeploymentSpecBody represents the deployment section of the spec
type DeploymentSpecBody struct {
	ModelName         string          `yaml:"model_name"`
	ModelPackageGroup string          `yaml:"model_package_group"`
	Training          *SpecTraining   `yaml:"training,omitempty"`
	Compilation       SpecCompilation `yaml:"compilation"`
	Packaging         SpecPackaging   `yaml:"packaging"`
	Fleet             SpecFleet       `yaml:"fleet"`
}

// SpecTraining represents the training pipeline parameters. When the
// section is absent, the run deploys the latest approved model instead
// of training a new one.
type SpecTraining struct {
	InputDataURI      string `yaml:"input_data_uri"`
	InstanceType      string `yaml:"instance_type"`
	ApprovalStatus    string `yaml:"approval_status"`
	ImageSize         int    `yaml:"image_size"`
	AugmentationCount int    `yaml:"augmentation_count"`
}

// SpecCompilation represents the compilation target
type SpecCompilation struct {
	Framework         string `yaml:"framework"`
	DataInputConfig   string `yaml:"data_input_config"`
	TargetOS          string `yaml:"target_os"`
	TargetArch        string `yaml:"target_arch"`
	OutputURI         string `yaml:"output_uri"`
	MaxRuntimeSeconds int32  `yaml:"max_runtime_seconds"`
}

// SpecPackaging represents the packaging output
type SpecPackaging struct {
	OutputURI string `yaml:"output_uri"`
}

// SpecFleet represents the dispatch target
type SpecFleet struct {
	TargetARN string `yaml:"target_arn"`
}

// Defaults supplies fallbacks for spec fields that operators configure
// once per project rather than per deployment document.
type Defaults struct {
	ModelPackageGroup string
	FleetTargetARN    string
}

// ParseDeploymentSpec parses a YAML deployment specification. Fields
// present in the document win over the supplied defaults.
func ParseDeploymentSpec(specYAML string, defaults Defaults) (*models.DeploymentSpec, error) {
	var s DeploymentSpec
	if err := yaml.Unmarshal([]byte(specYAML), &s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	body := s.Deployment
	if body.ModelPackageGroup == "" {
		body.ModelPackageGroup = defaults.ModelPackageGroup
	}
	if body.Fleet.TargetARN == "" {
		body.Fleet.TargetARN = defaults.FleetTargetARN
	}

	if body.ModelName == "" {
		return nil, fmt.Errorf("deployment.model_name is required")
	}
	if body.ModelPackageGroup == "" {
		return nil, fmt.Errorf("deployment.model_package_group is required")
	}
	if body.Fleet.TargetARN == "" {
		return nil, fmt.Errorf("deployment.fleet.target_arn is required")
	}

	out := &models.DeploymentSpec{
		ModelName:         body.ModelName,
		ModelPackageGroup: body.ModelPackageGroup,
		Compilation: models.CompilationSpec{
			Framework:         body.Compilation.Framework,
			DataInputConfig:   body.Compilation.DataInputConfig,
			TargetOS:          body.Compilation.TargetOS,
			TargetArch:        body.Compilation.TargetArch,
			OutputURI:         body.Compilation.OutputURI,
			MaxRuntimeSeconds: body.Compilation.MaxRuntimeSeconds,
		},
		Packaging: models.PackagingSpec{
			OutputURI: body.Packaging.OutputURI,
		},
		Fleet: models.FleetSpec{
			TargetARN: body.Fleet.TargetARN,
		},
	}

	if body.Training != nil {
		training := &models.TrainingSpec{
			InputDataURI:      body.Training.InputDataURI,
			InstanceType:      body.Training.InstanceType,
			ApprovalStatus:    body.Training.ApprovalStatus,
			ImageSize:         body.Training.ImageSize,
			AugmentationCount: body.Training.AugmentationCount,
		}
		if training.InstanceType == "" {
			training.InstanceType = "ml.m5.xlarge"
		}
		if training.ApprovalStatus == "" {
			training.ApprovalStatus = "PendingManualApproval"
		}
		if training.ImageSize == 0 {
			training.ImageSize = 400
		}
		out.Training = training
	}

	// Set defaults
	if out.Compilation.Framework == "" {
		out.Compilation.Framework = "KERAS"
	}
	if out.Compilation.TargetOS == "" {
		out.Compilation.TargetOS = "LINUX"
	}
	if out.Compilation.TargetArch == "" {
		out.Compilation.TargetArch = "ARM64"
	}
	if out.Compilation.MaxRuntimeSeconds == 0 {
		out.Compilation.MaxRuntimeSeconds = 900
	}

	return out, nil
}
