package pipeline

import (
	"context"
	"errors"
	"testing"

	"edgeml-orchestrator/core/deploy"
	"edgeml-orchestrator/core/fleet"
	"edgeml-orchestrator/core/models"
)

type fakeTrigger struct {
	started   []TrainingParams
	startErr  error
	waitErr   error
	waited    []string
	execution string
}

func (f *fakeTrigger) Start(_ context.Context, params TrainingParams) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.started = append(f.started, params)
	if f.execution == "" {
		f.execution = "arn:aws:sagemaker:us-east-1:123456789012:pipeline/train/execution/abc"
	}
	return f.execution, nil
}

func (f *fakeTrigger) Wait(_ context.Context, arn string) error {
	f.waited = append(f.waited, arn)
	return f.waitErr
}

type fakeResolver struct {
	model *models.ModelVersion
	err   error
	calls int
}

func (f *fakeResolver) LatestApproved(_ context.Context, packageGroup string) (*models.ModelVersion, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.model, nil
}

type fakeCompiler struct {
	reqs []deploy.CompileRequest
	job  *models.CompilationJob
	err  error
}

func (f *fakeCompiler) Run(_ context.Context, req deploy.CompileRequest) (*models.CompilationJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.reqs = append(f.reqs, req)
	return f.job, nil
}

type fakePackager struct {
	reqs []deploy.PackageRequest
	job  *models.PackagingJob
	err  error
}

func (f *fakePackager) Run(_ context.Context, req deploy.PackageRequest) (*models.PackagingJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.reqs = append(f.reqs, req)
	return f.job, nil
}

type fakeDispatcher struct {
	reqs []fleet.DispatchRequest
	job  *models.FleetJob
	err  error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req fleet.DispatchRequest) (*models.FleetJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.reqs = append(f.reqs, req)
	return f.job, nil
}

type memStore struct {
	statuses []models.RunStatus
	saved    int
}

func (m *memStore) UpdateRunStatus(runID string, fromStatus, toStatus models.RunStatus, reason string, meta map[string]interface{}) error {
	m.statuses = append(m.statuses, toStatus)
	return nil
}

func (m *memStore) SaveRun(run *models.Run) error {
	m.saved++
	return nil
}

type harness struct {
	trigger    *fakeTrigger
	resolver   *fakeResolver
	compiler   *fakeCompiler
	packager   *fakePackager
	dispatcher *fakeDispatcher
	store      *memStore
	runner     *Runner
}

func newHarness() *harness {
	h := &harness{
		trigger: &fakeTrigger{},
		resolver: &fakeResolver{
			model: &models.ModelVersion{
				PackageGroup: "defect-detection",
				Version:      2,
				ArtifactURI:  "s3://models/v2/model.tar.gz",
			},
		},
		compiler: &fakeCompiler{
			job: &models.CompilationJob{
				Name:              "defect-detect-20260314-093000-a1b2c3d4",
				OutputArtifactURI: "s3://artifacts/compiled/model.tar.gz",
			},
		},
		packager: &fakePackager{
			job: &models.PackagingJob{
				Name:        "defect-detect-20260314-093005-e5f6a7b8",
				PackagedURI: "s3://artifacts/packaged/defect-detect-2.tar.gz",
			},
		},
		dispatcher: &fakeDispatcher{
			job: &models.FleetJob{ID: "new-model-xyz"},
		},
		store: &memStore{},
	}
	h.runner = NewRunner(h.trigger, h.resolver, h.compiler, h.packager, h.dispatcher, h.store)
	return h
}

func testSpec(withTraining bool) *models.DeploymentSpec {
	s := &models.DeploymentSpec{
		ModelName:         "defect-detect",
		ModelPackageGroup: "defect-detection",
		Compilation: models.CompilationSpec{
			Framework:         "KERAS",
			DataInputConfig:   `{"input_1":[1,400,400,3]}`,
			TargetOS:          "LINUX",
			TargetArch:        "ARM64",
			OutputURI:         "s3://artifacts/compiled",
			MaxRuntimeSeconds: 900,
		},
		Packaging: models.PackagingSpec{OutputURI: "s3://artifacts/packaged"},
		Fleet:     models.FleetSpec{TargetARN: "arn:aws:iot:us-east-1:123456789012:thinggroup/defect-fleet"},
	}
	if withTraining {
		s.Training = &models.TrainingSpec{
			InputDataURI:      "s3://artifacts/datasets/defects",
			InstanceType:      "ml.m5.xlarge",
			ApprovalStatus:    "PendingManualApproval",
			ImageSize:         400,
			AugmentationCount: 5,
		}
	}
	return s
}

func TestExecute_FullRun(t *testing.T) {
	h := newHarness()
	run := &models.Run{ID: "r1", Status: models.RunStatusPending}

	if err := h.runner.Execute(context.Background(), run, testSpec(true)); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(h.trigger.started) != 1 {
		t.Fatalf("training started %d times, want 1", len(h.trigger.started))
	}
	if h.trigger.started[0].PackageGroup != "defect-detection" {
		t.Errorf("training package group = %q", h.trigger.started[0].PackageGroup)
	}
	if len(h.dispatcher.reqs) != 1 {
		t.Fatalf("dispatch called %d times, want 1", len(h.dispatcher.reqs))
	}

	if run.Status != models.RunStatusCompleted {
		t.Errorf("Status = %q, want completed", run.Status)
	}
	if run.ModelVersion != 2 {
		t.Errorf("ModelVersion = %d, want 2", run.ModelVersion)
	}
	if run.CompiledArtifactURI != "s3://artifacts/compiled/model.tar.gz" {
		t.Errorf("CompiledArtifactURI = %q", run.CompiledArtifactURI)
	}
	if run.FleetJobID != "new-model-xyz" {
		t.Errorf("FleetJobID = %q", run.FleetJobID)
	}
	if run.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}

	// The packaging request must reference the compilation job by name.
	if got := h.packager.reqs[0].CompilationJobName; got != "defect-detect-20260314-093000-a1b2c3d4" {
		t.Errorf("packaging references compilation job %q", got)
	}
	// The dispatch request must carry the packaged artifact, not the compiled one.
	if got := h.dispatcher.reqs[0].PackagedURI; got != "s3://artifacts/packaged/defect-detect-2.tar.gz" {
		t.Errorf("dispatch packaged uri = %q", got)
	}
}

func TestExecute_NoTrainingSection(t *testing.T) {
	h := newHarness()
	run := &models.Run{ID: "r1", Status: models.RunStatusPending}

	if err := h.runner.Execute(context.Background(), run, testSpec(false)); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(h.trigger.started) != 0 {
		t.Errorf("training started %d times, want 0", len(h.trigger.started))
	}
	if len(h.dispatcher.reqs) != 1 {
		t.Errorf("dispatch called %d times, want 1", len(h.dispatcher.reqs))
	}
}

func TestExecute_CompilationFailureBlocksPackagingAndDispatch(t *testing.T) {
	h := newHarness()
	h.compiler.err = errors.New("compilation job ended with status FAILED")
	run := &models.Run{ID: "r1", Status: models.RunStatusPending}

	err := h.runner.Execute(context.Background(), run, testSpec(false))
	if err == nil {
		t.Fatal("expected error")
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != models.StageCompilation {
		t.Errorf("err = %v, want StageError tagged compilation", err)
	}

	if len(h.packager.reqs) != 0 {
		t.Errorf("packaging submitted after failed compilation: %d requests", len(h.packager.reqs))
	}
	if len(h.dispatcher.reqs) != 0 {
		t.Errorf("dispatch ran after failed compilation: %d requests", len(h.dispatcher.reqs))
	}
	if run.Status != models.RunStatusFailed || run.FailedStage != models.StageCompilation {
		t.Errorf("run = %q/%q, want failed/compilation", run.Status, run.FailedStage)
	}
}

func TestExecute_PackagingFailureBlocksDispatch(t *testing.T) {
	h := newHarness()
	h.packager.err = errors.New("packaging job ended with status FAILED")
	run := &models.Run{ID: "r1", Status: models.RunStatusPending}

	err := h.runner.Execute(context.Background(), run, testSpec(false))
	if err == nil {
		t.Fatal("expected error")
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != models.StagePackaging {
		t.Errorf("err = %v, want StageError tagged packaging", err)
	}
	if len(h.dispatcher.reqs) != 0 {
		t.Errorf("dispatch ran after failed packaging: %d requests", len(h.dispatcher.reqs))
	}
}

func TestExecute_ResolveFailureBlocksCompilation(t *testing.T) {
	h := newHarness()
	h.resolver.err = errors.New("no approved model version in package group")
	run := &models.Run{ID: "r1", Status: models.RunStatusPending}

	err := h.runner.Execute(context.Background(), run, testSpec(false))
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != models.StageResolve {
		t.Errorf("err = %v, want StageError tagged resolve", err)
	}
	if len(h.compiler.reqs) != 0 {
		t.Errorf("compilation submitted after failed resolve: %d requests", len(h.compiler.reqs))
	}
}

func TestExecute_TrainingFailureBlocksEverything(t *testing.T) {
	h := newHarness()
	h.trigger.waitErr = errors.New("pipeline execution ended with status Failed")
	run := &models.Run{ID: "r1", Status: models.RunStatusPending}

	err := h.runner.Execute(context.Background(), run, testSpec(true))
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != models.StageTraining {
		t.Errorf("err = %v, want StageError tagged training", err)
	}
	if h.resolver.calls != 0 {
		t.Errorf("resolver called %d times after failed training, want 0", h.resolver.calls)
	}
}

func TestExecute_StatusTransitions(t *testing.T) {
	h := newHarness()
	run := &models.Run{ID: "r1", Status: models.RunStatusPending}

	if err := h.runner.Execute(context.Background(), run, testSpec(true)); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []models.RunStatus{
		models.RunStatusTraining,
		models.RunStatusResolving,
		models.RunStatusCompiling,
		models.RunStatusPackaging,
		models.RunStatusDispatched,
		models.RunStatusCompleted,
	}
	if len(h.store.statuses) != len(want) {
		t.Fatalf("recorded %d transitions (%v), want %d", len(h.store.statuses), h.store.statuses, len(want))
	}
	for i, s := range want {
		if h.store.statuses[i] != s {
			t.Errorf("transition %d = %q, want %q", i, h.store.statuses[i], s)
		}
	}
}
