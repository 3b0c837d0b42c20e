package storage

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// UploadAPI is the subset of the s3 transfer manager used by the stager
type UploadAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// DatasetStager uploads a prepared image dataset to the training bucket.
// The local layout is the one the training pipeline consumes: class
// folders (normal/, anomalous/) and paired image/mask folders.
type DatasetStager struct {
	uploader UploadAPI
	bucket   string
	prefix   string
}

// NewDatasetStager creates a new dataset stager
func NewDatasetStager(uploader UploadAPI, bucket, prefix string) *DatasetStager {
	return &DatasetStager{
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
	}
}

// StageDataset uploads every file under localDir, preserving the folder
// layout under <prefix>/<datasetName>/. Returns the s3:// URI of the
// dataset root.
func (s *DatasetStager) StageDataset(ctx context.Context, datasetName, localDir string) (string, error) {
	uploaded := 0
	classCounts := map[string]int{}

	err := filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}

		file, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("open %s: %w", p, err)
		}
		defer file.Close()

		key := DatasetKey(s.prefix, datasetName, relPath)
		_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Body:   file,
		})
		if err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}

		uploaded++
		if class := ClassOf(relPath); class != "" {
			classCounts[class]++
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	rootURI := fmt.Sprintf("s3://%s/%s", s.bucket, DatasetKey(s.prefix, datasetName, ""))
	log.Printf("Staged dataset %s: %d files uploaded to %s (classes: %v)", datasetName, uploaded, rootURI, classCounts)
	return rootURI, nil
}

// DatasetKey builds the object key for one dataset file
func DatasetKey(prefix, datasetName, relPath string) string {
	return path.Join(prefix, datasetName, filepath.ToSlash(relPath))
}

// ClassOf reports the class label of a dataset file from its folder,
// e.g. "normal/img_001.png" -> "normal". Files outside a class folder
// have no label.
func ClassOf(relPath string) string {
	relPath = filepath.ToSlash(relPath)
	dir, _, found := strings.Cut(relPath, "/")
	if !found {
		return ""
	}
	return dir
}
