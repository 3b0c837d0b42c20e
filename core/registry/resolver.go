package registry

import (
	"context"
	"errors"
	"fmt"

	"edgeml-orchestrator/core/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
)

// ErrNoApprovedModel is returned when a model package group contains no
// approved versions.
var ErrNoApprovedModel = errors.New("no approved model version in package group")

// RegistryAPI is the subset of the SageMaker client used by the resolver
type RegistryAPI interface {
	ListModelPackages(ctx context.Context, params *sagemaker.ListModelPackagesInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListModelPackagesOutput, error)
	DescribeModelPackage(ctx context.Context, params *sagemaker.DescribeModelPackageInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeModelPackageOutput, error)
}

// Resolver looks up approved model versions in the model registry
type Resolver struct {
	api RegistryAPI
}

// NewResolver creates a new model resolver
func NewResolver(api RegistryAPI) *Resolver {
	return &Resolver{api: api}
}

// LatestApproved returns the highest-version approved entry in the given
// model package group, with its artifact location. Returns
// ErrNoApprovedModel when the group has no approved versions.
func (r *Resolver) LatestApproved(ctx context.Context, packageGroup string) (*models.ModelVersion, error) {
	var latest *types.ModelPackageSummary

	input := &sagemaker.ListModelPackagesInput{
		ModelPackageGroupName: aws.String(packageGroup),
		ModelApprovalStatus:   types.ModelApprovalStatusApproved,
		MaxResults:            aws.Int32(100),
	}

	for {
		out, err := r.api.ListModelPackages(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("list model packages for %s: %w", packageGroup, err)
		}

		for i := range out.ModelPackageSummaryList {
			summary := &out.ModelPackageSummaryList[i]
			// The approval filter is re-checked here: the stage must never
			// ship an unapproved version, whatever the listing returns.
			if summary.ModelApprovalStatus != types.ModelApprovalStatusApproved {
				continue
			}
			if latest == nil || aws.ToInt32(summary.ModelPackageVersion) > aws.ToInt32(latest.ModelPackageVersion) {
				latest = summary
			}
		}

		if out.NextToken == nil {
			break
		}
		input.NextToken = out.NextToken
	}

	if latest == nil {
		return nil, fmt.Errorf("package group %s: %w", packageGroup, ErrNoApprovedModel)
	}

	desc, err := r.api.DescribeModelPackage(ctx, &sagemaker.DescribeModelPackageInput{
		ModelPackageName: latest.ModelPackageArn,
	})
	if err != nil {
		return nil, fmt.Errorf("describe model package %s: %w", aws.ToString(latest.ModelPackageArn), err)
	}

	artifactURI, err := artifactLocation(desc)
	if err != nil {
		return nil, fmt.Errorf("model package %s: %w", aws.ToString(latest.ModelPackageArn), err)
	}

	return &models.ModelVersion{
		PackageGroup:   packageGroup,
		Version:        int64(aws.ToInt32(latest.ModelPackageVersion)),
		ARN:            aws.ToString(latest.ModelPackageArn),
		ArtifactURI:    artifactURI,
		ApprovalStatus: string(latest.ModelApprovalStatus),
	}, nil
}

func artifactLocation(desc *sagemaker.DescribeModelPackageOutput) (string, error) {
	if desc.InferenceSpecification == nil || len(desc.InferenceSpecification.Containers) == 0 {
		return "", errors.New("no inference containers in model package")
	}
	uri := aws.ToString(desc.InferenceSpecification.Containers[0].ModelDataUrl)
	if uri == "" {
		return "", errors.New("model package container has no model data url")
	}
	return uri, nil
}
