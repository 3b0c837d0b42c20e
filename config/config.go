package config

import (
	"os"
	"time"
)

// Config holds the application configuration
type Config struct {
	// Database
	DatabaseURL string

	// Server
	ServerPort string

	// AWS
	AWSRegion string

	// Training pipeline
	PipelineName      string
	ModelPackageGroup string
	ExecutionRoleARN  string

	// Object storage
	ArtifactBucket string
	DatasetPrefix  string

	// Device fleet
	FleetTargetARN string

	// Stage polling
	PollInitialInterval time.Duration
	PollMaxInterval     time.Duration
	PollTimeout         time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost/edgeml_orchestrator?sslmode=disable"),
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		AWSRegion:   getEnv("AWS_REGION", "us-east-1"),

		PipelineName:      getEnv("PIPELINE_NAME", "defect-detection-train"),
		ModelPackageGroup: getEnv("MODEL_PACKAGE_GROUP", "defect-detection"),
		ExecutionRoleARN:  getEnv("EXECUTION_ROLE_ARN", ""),

		ArtifactBucket: getEnv("ARTIFACT_BUCKET", ""),
		DatasetPrefix:  getEnv("DATASET_PREFIX", "datasets"),

		FleetTargetARN: getEnv("FLEET_TARGET_ARN", ""),

		PollInitialInterval: getDurationEnv("POLL_INITIAL_INTERVAL", 10*time.Second),
		PollMaxInterval:     getDurationEnv("POLL_MAX_INTERVAL", 60*time.Second),
		PollTimeout:         getDurationEnv("POLL_TIMEOUT", 45*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
