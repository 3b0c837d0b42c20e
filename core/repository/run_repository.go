package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"edgeml-orchestrator/core/models"

	"github.com/google/uuid"
)

// RunRepository handles database operations for deployment runs
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// CreateRun creates a new run in the database
func (r *RunRepository) CreateRun(run *models.Run) error {
	query := `
		INSERT INTO runs (
			id, name, status, pipeline_name, model_package_group, model_name,
			spec_yaml, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	runID := uuid.New()
	if run.ID != "" {
		var err error
		runID, err = uuid.Parse(run.ID)
		if err != nil {
			return err
		}
	}

	now := time.Now()
	_, err := r.db.Exec(query,
		runID,
		run.Name,
		run.Status,
		run.PipelineName,
		run.ModelPackageGroup,
		run.ModelName,
		run.SpecYAML,
		now,
		now,
	)
	if err != nil {
		return err
	}

	run.ID = runID.String()
	run.CreatedAt = now

	// Create initial event
	return r.CreateRunEvent(run.ID, nil, run.Status, "run_created", nil)
}

// SaveRun persists the mutable stage fields of a run
func (r *RunRepository) SaveRun(run *models.Run) error {
	query := `
		UPDATE runs SET
			pipeline_execution_arn = $1,
			model_version = $2,
			model_artifact_uri = $3,
			compilation_job_name = $4,
			compiled_artifact_uri = $5,
			packaging_job_name = $6,
			packaged_artifact_uri = $7,
			fleet_job_id = $8,
			failed_stage = $9,
			failure_reason = $10,
			completed_at = $11,
			updated_at = NOW()
		WHERE id = $12
	`

	_, err := r.db.Exec(query,
		run.PipelineExecutionARN,
		run.ModelVersion,
		run.ModelArtifactURI,
		run.CompilationJobName,
		run.CompiledArtifactURI,
		run.PackagingJobName,
		run.PackagedArtifactURI,
		run.FleetJobID,
		run.FailedStage,
		run.FailureReason,
		run.CompletedAt,
		run.ID,
	)
	return err
}

// GetRun retrieves a run by ID
func (r *RunRepository) GetRun(id string) (*models.Run, error) {
	query := `
		SELECT id, name, status, pipeline_name, pipeline_execution_arn,
			model_package_group, model_name, model_version, model_artifact_uri,
			compilation_job_name, compiled_artifact_uri,
			packaging_job_name, packaged_artifact_uri, fleet_job_id,
			failed_stage, failure_reason, spec_yaml,
			created_at, updated_at, completed_at
		FROM runs
		WHERE id = $1
	`

	var run models.Run
	var pipelineExecutionARN sql.NullString
	var modelVersion sql.NullInt64
	var modelArtifactURI sql.NullString
	var compilationJobName sql.NullString
	var compiledArtifactURI sql.NullString
	var packagingJobName sql.NullString
	var packagedArtifactURI sql.NullString
	var fleetJobID sql.NullString
	var failedStage sql.NullString
	var failureReason sql.NullString
	var completedAt sql.NullTime

	err := r.db.QueryRow(query, id).Scan(
		&run.ID,
		&run.Name,
		&run.Status,
		&run.PipelineName,
		&pipelineExecutionARN,
		&run.ModelPackageGroup,
		&run.ModelName,
		&modelVersion,
		&modelArtifactURI,
		&compilationJobName,
		&compiledArtifactURI,
		&packagingJobName,
		&packagedArtifactURI,
		&fleetJobID,
		&failedStage,
		&failureReason,
		&run.SpecYAML,
		&run.CreatedAt,
		&run.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	run.PipelineExecutionARN = pipelineExecutionARN.String
	run.ModelVersion = modelVersion.Int64
	run.ModelArtifactURI = modelArtifactURI.String
	run.CompilationJobName = compilationJobName.String
	run.CompiledArtifactURI = compiledArtifactURI.String
	run.PackagingJobName = packagingJobName.String
	run.PackagedArtifactURI = packagedArtifactURI.String
	run.FleetJobID = fleetJobID.String
	run.FailedStage = models.Stage(failedStage.String)
	run.FailureReason = failureReason.String
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	return &run, nil
}

// ListRuns retrieves runs, newest first
func (r *RunRepository) ListRuns(status *models.RunStatus, limit int) ([]*models.Run, error) {
	query := `
		SELECT id, name, status, model_package_group, model_name, model_version,
			fleet_job_id, failed_stage, failure_reason, created_at, updated_at
		FROM runs
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	var statusArg interface{}
	if status != nil {
		statusArg = string(*status)
	}

	rows, err := r.db.Query(query, statusArg, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		var run models.Run
		var modelVersion sql.NullInt64
		var fleetJobID sql.NullString
		var failedStage sql.NullString
		var failureReason sql.NullString

		err := rows.Scan(
			&run.ID,
			&run.Name,
			&run.Status,
			&run.ModelPackageGroup,
			&run.ModelName,
			&modelVersion,
			&fleetJobID,
			&failedStage,
			&failureReason,
			&run.CreatedAt,
			&run.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		run.ModelVersion = modelVersion.Int64
		run.FleetJobID = fleetJobID.String
		run.FailedStage = models.Stage(failedStage.String)
		run.FailureReason = failureReason.String
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// UpdateRunStatus updates a run's status and records the transition event
func (r *RunRepository) UpdateRunStatus(runID string, fromStatus, toStatus models.RunStatus, reason string, meta map[string]interface{}) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	updateQuery := `UPDATE runs SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err = tx.Exec(updateQuery, toStatus, runID)
	if err != nil {
		return err
	}

	err = r.createRunEventTx(tx, runID, &fromStatus, toStatus, reason, meta)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// CreateRunEvent creates a run event
func (r *RunRepository) CreateRunEvent(runID string, fromStatus *models.RunStatus, toStatus models.RunStatus, reason string, meta map[string]interface{}) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = r.createRunEventTx(tx, runID, fromStatus, toStatus, reason, meta)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *RunRepository) createRunEventTx(tx *sql.Tx, runID string, fromStatus *models.RunStatus, toStatus models.RunStatus, reason string, meta map[string]interface{}) error {
	query := `
		INSERT INTO run_events (run_id, at, from_status, to_status, reason, meta_json)
		VALUES ($1, NOW(), $2, $3, $4, $5)
	`

	var from interface{}
	if fromStatus != nil {
		from = string(*fromStatus)
	}

	metaJSON := "{}"
	if meta != nil {
		if data, err := json.Marshal(meta); err == nil {
			metaJSON = string(data)
		}
	}

	_, err := tx.Exec(query, runID, from, toStatus, reason, metaJSON)
	return err
}
