package pipeline

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"edgeml-orchestrator/core/deploy"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/google/uuid"
)

// PipelineAPI is the subset of the SageMaker client used to run the
// training pipeline.
type PipelineAPI interface {
	StartPipelineExecution(ctx context.Context, params *sagemaker.StartPipelineExecutionInput, optFns ...func(*sagemaker.Options)) (*sagemaker.StartPipelineExecutionOutput, error)
	DescribePipelineExecution(ctx context.Context, params *sagemaker.DescribePipelineExecutionInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribePipelineExecutionOutput, error)
}

// TrainingParams are the parameters passed to the training pipeline
type TrainingParams struct {
	InputDataURI      string
	InstanceType      string
	ApprovalStatus    string // initial model approval status, e.g. "PendingManualApproval"
	PackageGroup      string
	ImageSize         int
	AugmentationCount int
}

// Trigger starts training pipeline executions and exposes their status
type Trigger struct {
	api          PipelineAPI
	pipelineName string
	poll         deploy.PollConfig
}

// NewTrigger creates a new pipeline trigger
func NewTrigger(api PipelineAPI, pipelineName string, poll deploy.PollConfig) *Trigger {
	return &Trigger{
		api:          api,
		pipelineName: pipelineName,
		poll:         poll,
	}
}

// Start launches one pipeline execution and returns its ARN as a handle
// for status inspection.
func (t *Trigger) Start(ctx context.Context, params TrainingParams) (string, error) {
	out, err := t.api.StartPipelineExecution(ctx, &sagemaker.StartPipelineExecutionInput{
		PipelineName:       aws.String(t.pipelineName),
		ClientRequestToken: aws.String(uuid.New().String()),
		PipelineParameters: []types.Parameter{
			{Name: aws.String("InputDataUri"), Value: aws.String(params.InputDataURI)},
			{Name: aws.String("TrainingInstanceType"), Value: aws.String(params.InstanceType)},
			{Name: aws.String("ModelApprovalStatus"), Value: aws.String(params.ApprovalStatus)},
			{Name: aws.String("ModelPackageGroupName"), Value: aws.String(params.PackageGroup)},
			{Name: aws.String("TargetImageSize"), Value: aws.String(strconv.Itoa(params.ImageSize))},
			{Name: aws.String("AnomalyAugmentationCount"), Value: aws.String(strconv.Itoa(params.AugmentationCount))},
		},
	})
	if err != nil {
		return "", fmt.Errorf("start pipeline %s: %w", t.pipelineName, err)
	}

	arn := aws.ToString(out.PipelineExecutionArn)
	log.Printf("Pipeline %s execution started: %s", t.pipelineName, arn)
	return arn, nil
}

// Wait blocks until the execution reaches a terminal status. Terminal
// non-success is an error.
func (t *Trigger) Wait(ctx context.Context, executionARN string) error {
	return deploy.Poll(ctx, t.poll, func(ctx context.Context) (bool, error) {
		out, err := t.api.DescribePipelineExecution(ctx, &sagemaker.DescribePipelineExecutionInput{
			PipelineExecutionArn: aws.String(executionARN),
		})
		if err != nil {
			return false, fmt.Errorf("describe pipeline execution %s: %w", executionARN, err)
		}

		switch out.PipelineExecutionStatus {
		case types.PipelineExecutionStatusExecuting, types.PipelineExecutionStatusStopping:
			log.Printf("Pipeline execution %s: %s", executionARN, out.PipelineExecutionStatus)
			return false, nil
		case types.PipelineExecutionStatusSucceeded:
			return true, nil
		default:
			return false, fmt.Errorf("pipeline execution %s ended with status %s: %s",
				executionARN, out.PipelineExecutionStatus, aws.ToString(out.FailureReason))
		}
	})
}
