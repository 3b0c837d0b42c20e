package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"edgeml-orchestrator/core/deploy"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
)

type fakePipelineAPI struct {
	started  []*sagemaker.StartPipelineExecutionInput
	statuses []types.PipelineExecutionStatus
	describe int
	reason   string
}

func (f *fakePipelineAPI) StartPipelineExecution(_ context.Context, params *sagemaker.StartPipelineExecutionInput, _ ...func(*sagemaker.Options)) (*sagemaker.StartPipelineExecutionOutput, error) {
	f.started = append(f.started, params)
	return &sagemaker.StartPipelineExecutionOutput{
		PipelineExecutionArn: aws.String("arn:aws:sagemaker:us-east-1:123456789012:pipeline/train/execution/abc"),
	}, nil
}

func (f *fakePipelineAPI) DescribePipelineExecution(_ context.Context, params *sagemaker.DescribePipelineExecutionInput, _ ...func(*sagemaker.Options)) (*sagemaker.DescribePipelineExecutionOutput, error) {
	status := f.statuses[f.describe]
	if f.describe < len(f.statuses)-1 {
		f.describe++
	}

	out := &sagemaker.DescribePipelineExecutionOutput{
		PipelineExecutionArn:    params.PipelineExecutionArn,
		PipelineExecutionStatus: status,
	}
	if f.reason != "" {
		out.FailureReason = aws.String(f.reason)
	}
	return out, nil
}

func fastPoll() deploy.PollConfig {
	return deploy.PollConfig{Initial: time.Millisecond, Max: time.Millisecond, Timeout: time.Second}
}

func TestTriggerStart_ParameterMapping(t *testing.T) {
	api := &fakePipelineAPI{}
	trigger := NewTrigger(api, "defect-detection-train", fastPoll())

	arn, err := trigger.Start(context.Background(), TrainingParams{
		InputDataURI:      "s3://artifacts/datasets/defects",
		InstanceType:      "ml.m5.xlarge",
		ApprovalStatus:    "PendingManualApproval",
		PackageGroup:      "defect-detection",
		ImageSize:         400,
		AugmentationCount: 5,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if arn == "" {
		t.Fatal("empty execution arn")
	}

	started := api.started[0]
	if got := aws.ToString(started.PipelineName); got != "defect-detection-train" {
		t.Errorf("PipelineName = %q", got)
	}
	if aws.ToString(started.ClientRequestToken) == "" {
		t.Error("ClientRequestToken not set")
	}

	params := map[string]string{}
	for _, p := range started.PipelineParameters {
		params[aws.ToString(p.Name)] = aws.ToString(p.Value)
	}
	want := map[string]string{
		"InputDataUri":             "s3://artifacts/datasets/defects",
		"TrainingInstanceType":     "ml.m5.xlarge",
		"ModelApprovalStatus":      "PendingManualApproval",
		"ModelPackageGroupName":    "defect-detection",
		"TargetImageSize":          "400",
		"AnomalyAugmentationCount": "5",
	}
	for name, value := range want {
		if params[name] != value {
			t.Errorf("parameter %s = %q, want %q", name, params[name], value)
		}
	}
}

func TestTriggerWait_Succeeds(t *testing.T) {
	api := &fakePipelineAPI{
		statuses: []types.PipelineExecutionStatus{
			types.PipelineExecutionStatusExecuting,
			types.PipelineExecutionStatusSucceeded,
		},
	}
	trigger := NewTrigger(api, "defect-detection-train", fastPoll())

	if err := trigger.Wait(context.Background(), "arn:execution"); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestTriggerWait_FailureSurfacesReason(t *testing.T) {
	api := &fakePipelineAPI{
		statuses: []types.PipelineExecutionStatus{
			types.PipelineExecutionStatusExecuting,
			types.PipelineExecutionStatusFailed,
		},
		reason: "training step exhausted retries",
	}
	trigger := NewTrigger(api, "defect-detection-train", fastPoll())

	err := trigger.Wait(context.Background(), "arn:execution")
	if err == nil || !strings.Contains(err.Error(), "exhausted retries") {
		t.Errorf("err = %v, want failure reason", err)
	}
}
