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

// PackagingAPI is the subset of the SageMaker client used by the edge
// packaging stage.
type PackagingAPI interface {
	CreateEdgePackagingJob(ctx context.Context, params *sagemaker.CreateEdgePackagingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEdgePackagingJobOutput, error)
	DescribeEdgePackagingJob(ctx context.Context, params *sagemaker.DescribeEdgePackagingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeEdgePackagingJobOutput, error)
}

// PackageRequest describes one edge-packaging submission. It references
// the compilation job by name.
type PackageRequest struct {
	JobPrefix          string
	CompilationJobName string
	ModelName          string
	ModelVersion       string
	OutputLocation     string // s3:// prefix for the packaged artifact
}

// Packager submits edge packaging jobs and blocks until they reach a
// terminal status.
type Packager struct {
	api     PackagingAPI
	roleARN string
	names   NameGenerator
	poll    PollConfig
}

// NewPackager creates a new packaging stage
func NewPackager(api PackagingAPI, roleARN string, poll PollConfig) *Packager {
	return &Packager{
		api:     api,
		roleARN: roleARN,
		names:   NameGenerator{},
		poll:    poll,
	}
}

// Run submits the packaging job and polls until terminal status. On
// success it returns the job populated with the packaged artifact URI.
func (p *Packager) Run(ctx context.Context, req PackageRequest) (*models.PackagingJob, error) {
	prefix := req.JobPrefix
	if prefix == "" {
		prefix = "package"
	}
	jobName := p.names.JobName(prefix)

	_, err := p.api.CreateEdgePackagingJob(ctx, &sagemaker.CreateEdgePackagingJobInput{
		EdgePackagingJobName: aws.String(jobName),
		CompilationJobName:   aws.String(req.CompilationJobName),
		ModelName:            aws.String(req.ModelName),
		ModelVersion:         aws.String(req.ModelVersion),
		RoleArn:              aws.String(p.roleARN),
		OutputConfig: &types.EdgeOutputConfig{
			S3OutputLocation: aws.String(req.OutputLocation),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("submit packaging job %s: %w", jobName, err)
	}

	log.Printf("Packaging job %s submitted (compilation job %s)", jobName, req.CompilationJobName)

	job := &models.PackagingJob{
		Name:               jobName,
		CompilationJobName: req.CompilationJobName,
		ModelName:          req.ModelName,
		ModelVersion:       req.ModelVersion,
		OutputLocation:     req.OutputLocation,
	}

	err = Poll(ctx, p.poll, func(ctx context.Context) (bool, error) {
		out, err := p.api.DescribeEdgePackagingJob(ctx, &sagemaker.DescribeEdgePackagingJobInput{
			EdgePackagingJobName: aws.String(jobName),
		})
		if err != nil {
			return false, fmt.Errorf("describe packaging job %s: %w", jobName, err)
		}

		job.Status = string(out.EdgePackagingJobStatus)
		switch out.EdgePackagingJobStatus {
		case types.EdgePackagingJobStatusStarting, types.EdgePackagingJobStatusInProgress:
			log.Printf("Packaging job %s: %s", jobName, out.EdgePackagingJobStatus)
			return false, nil
		case types.EdgePackagingJobStatusCompleted:
			if out.ModelArtifact == nil {
				return false, fmt.Errorf("packaging job %s completed without artifact location", jobName)
			}
			job.PackagedURI = aws.ToString(out.ModelArtifact)
			return true, nil
		default:
			return false, fmt.Errorf("packaging job %s ended with status %s: %s",
				jobName, out.EdgePackagingJobStatus, aws.ToString(out.EdgePackagingJobStatusMessage))
		}
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Packaging job %s completed: %s", jobName, job.PackagedURI)
	return job, nil
}
