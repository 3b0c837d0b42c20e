package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"edgeml-orchestrator/core/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/iot/types"
	"github.com/google/uuid"
)

// FleetAPI is the subset of the IoT client used by the dispatch stage
type FleetAPI interface {
	CreateJob(ctx context.Context, params *iot.CreateJobInput, optFns ...func(*iot.Options)) (*iot.CreateJobOutput, error)
}

// JobDocument is the payload delivered to every device in the target
// group. Devices fetch the packaged model from the given bucket/key and
// install it.
type JobDocument struct {
	Type               string `json:"type"`
	ModelVersion       string `json:"model_version"`
	ModelName          string `json:"model_name"`
	ModelPackageBucket string `json:"model_package_bucket"`
	ModelPackageKey    string `json:"model_package_key"`
}

// DispatchRequest describes one fleet-wide model rollout
type DispatchRequest struct {
	TargetARN    string // device group (thing group) ARN
	ModelName    string
	ModelVersion int64
	PackagedURI  string // s3:// location of the packaged artifact
}

// Dispatcher publishes new-model jobs to device groups. Jobs use
// snapshot targeting: they apply to the devices in the group at dispatch
// time, not to devices added later.
type Dispatcher struct {
	api FleetAPI
}

// NewDispatcher creates a new fleet dispatcher
func NewDispatcher(api FleetAPI) *Dispatcher {
	return &Dispatcher{api: api}
}

// Dispatch submits the new-model job. Fire-and-forget: only the job id
// is returned, no lifecycle is tracked locally.
func (d *Dispatcher) Dispatch(ctx context.Context, req DispatchRequest) (*models.FleetJob, error) {
	bucket, key, err := SplitS3URI(req.PackagedURI)
	if err != nil {
		return nil, fmt.Errorf("packaged artifact uri: %w", err)
	}

	doc, err := json.Marshal(JobDocument{
		Type:               "new_model",
		ModelVersion:       strconv.FormatInt(req.ModelVersion, 10),
		ModelName:          req.ModelName,
		ModelPackageBucket: bucket,
		ModelPackageKey:    key,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal job document: %w", err)
	}

	jobID := "new-model-" + uuid.New().String()
	_, err = d.api.CreateJob(ctx, &iot.CreateJobInput{
		JobId:           aws.String(jobID),
		Targets:         []string{req.TargetARN},
		Document:        aws.String(string(doc)),
		TargetSelection: types.TargetSelectionSnapshot,
	})
	if err != nil {
		return nil, fmt.Errorf("create fleet job %s: %w", jobID, err)
	}

	log.Printf("Fleet job %s dispatched to %s (model %s v%d)", jobID, req.TargetARN, req.ModelName, req.ModelVersion)

	return &models.FleetJob{
		ID:        jobID,
		TargetARN: req.TargetARN,
		Document:  string(doc),
	}, nil
}

// SplitS3URI splits "s3://bucket/key..." into bucket and key
func SplitS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed s3 uri: %q", uri)
	}
	return bucket, key, nil
}
