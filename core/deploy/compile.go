package deploy

import (
	"context"
	"fmt"
	"log"

	"edgeml-orchestrator/core/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
)

// CompilationAPI is the subset of the SageMaker client used by the
// compilation stage.
type CompilationAPI interface {
	CreateCompilationJob(ctx context.Context, params *sagemaker.CreateCompilationJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateCompilationJobOutput, error)
	DescribeCompilationJob(ctx context.Context, params *sagemaker.DescribeCompilationJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeCompilationJobOutput, error)
}

// CompileRequest describes one hardware-target compilation submission
type CompileRequest struct {
	JobPrefix         string
	ModelArtifactURI  string
	DataInputConfig   string // input tensor shape, e.g. {"input_1":[1,400,400,3]}
	Framework         string // source framework, e.g. "KERAS", "TFLITE"
	TargetOS          string // e.g. "LINUX"
	TargetArch        string // e.g. "ARM64", "X86_64"
	OutputLocation    string // s3:// prefix for the compiled artifact
	MaxRuntimeSeconds int32
}

// Compiler submits compilation jobs and blocks until they reach a
// terminal status.
type Compiler struct {
	api     CompilationAPI
	roleARN string
	names   NameGenerator
	poll    PollConfig
}

// NewCompiler creates a new compilation stage
func NewCompiler(api CompilationAPI, roleARN string, poll PollConfig) *Compiler {
	return &Compiler{
		api:     api,
		roleARN: roleARN,
		names:   NameGenerator{},
		poll:    poll,
	}
}

// Run submits the compilation job and polls until it leaves the
// starting/in-progress states. On success it returns the job populated
// with the compiled artifact URI; any other terminal state is an error.
func (c *Compiler) Run(ctx context.Context, req CompileRequest) (*models.CompilationJob, error) {
	prefix := req.JobPrefix
	if prefix == "" {
		prefix = "compile"
	}
	jobName := c.names.JobName(prefix)

	_, err := c.api.CreateCompilationJob(ctx, &sagemaker.CreateCompilationJobInput{
		CompilationJobName: aws.String(jobName),
		RoleArn:            aws.String(c.roleARN),
		InputConfig: &types.InputConfig{
			S3Uri:           aws.String(req.ModelArtifactURI),
			DataInputConfig: aws.String(req.DataInputConfig),
			Framework:       types.Framework(req.Framework),
		},
		OutputConfig: &types.OutputConfig{
			S3OutputLocation: aws.String(req.OutputLocation),
			TargetPlatform: &types.TargetPlatform{
				Os:   types.TargetPlatformOs(req.TargetOS),
				Arch: types.TargetPlatformArch(req.TargetArch),
			},
		},
		StoppingCondition: &types.StoppingCondition{
			MaxRuntimeInSeconds: aws.Int32(req.MaxRuntimeSeconds),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("submit compilation job %s: %w", jobName, err)
	}

	log.Printf("Compilation job %s submitted", jobName)

	job := &models.CompilationJob{
		Name:              jobName,
		InputArtifactURI:  req.ModelArtifactURI,
		DataInputConfig:   req.DataInputConfig,
		Framework:         req.Framework,
		TargetOS:          req.TargetOS,
		TargetArch:        req.TargetArch,
		OutputLocation:    req.OutputLocation,
		MaxRuntimeSeconds: req.MaxRuntimeSeconds,
	}

	err = Poll(ctx, c.poll, func(ctx context.Context) (bool, error) {
		out, err := c.api.DescribeCompilationJob(ctx, &sagemaker.DescribeCompilationJobInput{
			CompilationJobName: aws.String(jobName),
		})
		if err != nil {
			return false, fmt.Errorf("describe compilation job %s: %w", jobName, err)
		}

		job.Status = string(out.CompilationJobStatus)
		switch out.CompilationJobStatus {
		case types.CompilationJobStatusStarting, types.CompilationJobStatusInprogress:
			log.Printf("Compilation job %s: %s", jobName, out.CompilationJobStatus)
			return false, nil
		case types.CompilationJobStatusCompleted:
			if out.ModelArtifacts == nil || out.ModelArtifacts.S3ModelArtifacts == nil {
				return false, fmt.Errorf("compilation job %s completed without artifact location", jobName)
			}
			job.OutputArtifactURI = aws.ToString(out.ModelArtifacts.S3ModelArtifacts)
			return true, nil
		default:
			return false, fmt.Errorf("compilation job %s ended with status %s: %s",
				jobName, out.CompilationJobStatus, aws.ToString(out.FailureReason))
		}
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Compilation job %s completed: %s", jobName, job.OutputArtifactURI)
	return job, nil
}
