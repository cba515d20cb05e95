package executor

import (
	"context"
	"errors"
	"testing"

	"greenlight/internal/production"
	"greenlight/internal/render"
	"greenlight/internal/services"
	"greenlight/internal/testsupport"
)

type stubRenderer struct {
	result *render.Result
	err    error
	calls  int
}

func (s *stubRenderer) Render(ctx context.Context, req render.Request, progress func(render.ProgressUpdate)) (*render.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func successRenderer() *stubRenderer {
	return &stubRenderer{result: &render.Result{Response: &render.Response{
		Status:        render.StatusSuccess,
		OutputPath:    "/renders/out.mp4",
		DurationMs:    3200,
		EngineName:    "primary",
		EngineVersion: "2.1.0",
	}}}
}

func newTestExecutor(t *testing.T, renderer Renderer, flags RunConfig) (*Executor, *production.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	exec := New(store, renderer, cfg, nil)
	exec.resolveFlags = func() RunConfig { return flags }
	return exec, store
}

func blockingFlags() RunConfig {
	return RunConfig{PipelineEnabled: true, GatesBlocking: true, RenderEngine: "primary"}
}

func enqueue(t *testing.T, store *production.Store, briefID string) *production.ExecutionLog {
	t.Helper()
	log, err := store.EnqueueExecution(context.Background(), briefID)
	if err != nil {
		t.Fatalf("EnqueueExecution: %v", err)
	}
	return log
}

func TestProcessCompletedLogIsNoOp(t *testing.T) {
	renderer := successRenderer()
	exec, store := newTestExecutor(t, renderer, blockingFlags())
	ctx := context.Background()

	testsupport.NewMaster(t, store, "BRF-700")
	log := enqueue(t, store, "BRF-700")
	log.Status = production.ExecutionCompleted
	log.DurationMs = 5000
	if err := store.UpdateExecution(ctx, log); err != nil {
		t.Fatalf("UpdateExecution: %v", err)
	}

	outcome, err := exec.Process(ctx, log.ID)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome.Status != production.ExecutionCompleted {
		t.Fatalf("expected completed, got %s", outcome.Status)
	}
	if outcome.DurationMs != 0 {
		t.Fatalf("redelivered completed job must report zero duration, got %d", outcome.DurationMs)
	}
	if renderer.calls != 0 {
		t.Fatal("redelivered completed job must not touch the render engine")
	}
}

func TestProcessPipelineDisabledCompletesWithoutWork(t *testing.T) {
	renderer := successRenderer()
	flags := blockingFlags()
	flags.PipelineEnabled = false
	exec, store := newTestExecutor(t, renderer, flags)
	ctx := context.Background()

	testsupport.NewMaster(t, store, "BRF-701")
	log := enqueue(t, store, "BRF-701")

	outcome, err := exec.Process(ctx, log.ID)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome.Status != production.ExecutionCompleted {
		t.Fatalf("expected completed no-op, got %s", outcome.Status)
	}
	if renderer.calls != 0 {
		t.Fatal("disabled pipeline must not render")
	}

	fetched, err := store.GetExecution(ctx, log.ID)
	if err != nil {
		t.Fatalf("GetExecution: %v", err)
	}
	if fetched.Status != production.ExecutionCompleted || fetched.ErrorMessage == "" {
		t.Fatalf("expected completed log with explanation, got %#v", fetched)
	}
	if fetched.FeatureFlags["pipeline_enabled"] != "false" {
		t.Fatalf("expected flag snapshot, got %#v", fetched.FeatureFlags)
	}
}

func TestProductionWriteBackSurvivesCompletionFlipFailure(t *testing.T) {
	renderer := successRenderer()
	exec, store := newTestExecutor(t, renderer, blockingFlags())
	ctx := context.Background()

	testsupport.NewMaster(t, store, "BRF-712")
	log := enqueue(t, store, "BRF-712")

	// Fail only the write that flips the log to completed. Everything up to
	// and including the production write-back must already be durable.
	flipErr := errors.New("database is locked")
	exec.updateExecution = func(ctx context.Context, log *production.ExecutionLog) error {
		if log.Status == production.ExecutionCompleted {
			return flipErr
		}
		return store.UpdateExecution(ctx, log)
	}

	_, err := exec.Process(ctx, log.ID)
	if err == nil {
		t.Fatal("expected completion flip failure to propagate")
	}
	if !services.Retryable(err) {
		t.Fatalf("completion flip failure must be retryable, got %v", err)
	}

	p, err := store.GetProduction(ctx, "BRF-712")
	if err != nil {
		t.Fatalf("GetProduction: %v", err)
	}
	if len(p.GateResults) == 0 || p.QualityScore == nil {
		t.Fatalf("governance outputs must be written before the completed flip, got %#v", p)
	}
	if p.Status != production.StatusReadyForPublish {
		t.Fatalf("expected ready_for_publish production, got %s", p.Status)
	}

	fetched, err := store.GetExecution(ctx, log.ID)
	if err != nil {
		t.Fatalf("GetExecution: %v", err)
	}
	if fetched.Status != production.ExecutionProcessing {
		t.Fatalf("log must stay processing for the retry, got %s", fetched.Status)
	}

	// The redelivered attempt replays and completes.
	exec.updateExecution = store.UpdateExecution
	outcome, err := exec.Process(ctx, log.ID)
	if err != nil {
		t.Fatalf("Process retry: %v", err)
	}
	if outcome.Status != production.ExecutionCompleted {
		t.Fatalf("expected completed retry, got %s (%s)", outcome.Status, outcome.ErrorMessage)
	}
}

func TestProcessHappyPath(t *testing.T) {
	renderer := successRenderer()
	exec, store := newTestExecutor(t, renderer, blockingFlags())
	ctx := context.Background()

	testsupport.NewMaster(t, store, "BRF-702")
	log := enqueue(t, store, "BRF-702")

	outcome, err := exec.Process(ctx, log.ID)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome.Status != production.ExecutionCompleted {
		t.Fatalf("expected completed, got %s (%s)", outcome.Status, outcome.ErrorMessage)
	}
	if outcome.CanPublish == nil || !*outcome.CanPublish {
		t.Fatalf("clean master must be publishable, got %v", outcome.CanPublish)
	}
	// Safety and visual warn at zero, costing 5 each.
	if outcome.QualityScore == nil || *outcome.QualityScore != 90 {
		t.Fatalf("expected quality score 90, got %v", outcome.QualityScore)
	}

	fetched, err := store.GetExecution(ctx, log.ID)
	if err != nil {
		t.Fatalf("GetExecution: %v", err)
	}
	if fetched.Status != production.ExecutionCompleted {
		t.Fatalf("expected completed log, got %s", fetched.Status)
	}
	if fetched.RenderStatus != render.StatusSuccess || fetched.RenderOutputPath != "/renders/out.mp4" {
		t.Fatalf("render fields not persisted: %#v", fetched)
	}
	if len(fetched.GateResults) == 0 || fetched.ArtefactCheck == nil || !fetched.ArtefactCheck.CanProceed {
		t.Fatalf("gate and artefact results not persisted: %#v", fetched)
	}
	if fetched.FeatureFlags["gates_blocking"] != "true" {
		t.Fatalf("expected flag snapshot, got %#v", fetched.FeatureFlags)
	}

	master, err := store.GetProduction(ctx, "BRF-702")
	if err != nil {
		t.Fatalf("GetProduction: %v", err)
	}
	if master.QualityScore == nil || *master.QualityScore != 90 || len(master.GateResults) == 0 {
		t.Fatalf("governance outputs not written back: %#v", master)
	}
	if master.Status != production.StatusReadyForPublish {
		t.Fatalf("expected ready_for_publish, got %s", master.Status)
	}
}

func TestProcessMissingArtefactsIsTerminal(t *testing.T) {
	renderer := successRenderer()
	exec, store := newTestExecutor(t, renderer, blockingFlags())
	ctx := context.Background()

	master := testsupport.NewMaster(t, store, "BRF-703")
	master.ClaimTable = nil
	master.EvidencePack = nil
	if err := store.UpdateProduction(ctx, master); err != nil {
		t.Fatalf("UpdateProduction: %v", err)
	}
	log := enqueue(t, store, "BRF-703")

	outcome, err := exec.Process(ctx, log.ID)
	if err != nil {
		t.Fatalf("missing artefacts must be terminal, not an error: %v", err)
	}
	if outcome.Status != production.ExecutionFailed {
		t.Fatalf("expected failed, got %s", outcome.Status)
	}
	if outcome.CanPublish == nil || *outcome.CanPublish {
		t.Fatalf("expected canPublish=false, got %v", outcome.CanPublish)
	}
	if renderer.calls != 0 {
		t.Fatal("incomplete artefacts must not reach the render engine")
	}

	fetched, err := store.GetExecution(ctx, log.ID)
	if err != nil {
		t.Fatalf("GetExecution: %v", err)
	}
	if fetched.Status != production.ExecutionFailed || fetched.Retryable {
		t.Fatalf("expected terminal non-retryable failure, got %#v", fetched)
	}
	if fetched.ArtefactCheck == nil || len(fetched.ArtefactCheck.Missing) != 2 {
		t.Fatalf("expected recorded missing artefacts, got %#v", fetched.ArtefactCheck)
	}
}

func TestProcessRetryableRenderFailurePropagates(t *testing.T) {
	renderer := &stubRenderer{result: &render.Result{Response: &render.Response{
		Status:       render.StatusFailed,
		ErrorCode:    "ENGINE_TIMEOUT",
		ErrorMessage: "composition timed out",
		Retryable:    true,
		EngineName:   "primary",
	}}}
	exec, store := newTestExecutor(t, renderer, blockingFlags())
	ctx := context.Background()

	testsupport.NewMaster(t, store, "BRF-704")
	log := enqueue(t, store, "BRF-704")

	_, err := exec.Process(ctx, log.ID)
	if err == nil {
		t.Fatal("retryable render failure must propagate to the queue")
	}
	if !services.Retryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}

	fetched, gerr := store.GetExecution(ctx, log.ID)
	if gerr != nil {
		t.Fatalf("GetExecution: %v", gerr)
	}
	if fetched.Status != production.ExecutionProcessing {
		t.Fatalf("log must stay processing for retry, got %s", fetched.Status)
	}
	if fetched.RenderStatus != render.StatusFailed || !fetched.Retryable || fetched.RenderErrorCode != "ENGINE_TIMEOUT" {
		t.Fatalf("partial render state not persisted: %#v", fetched)
	}
}

func TestProcessNonRetryableRenderFailureIsTerminal(t *testing.T) {
	renderer := &stubRenderer{result: &render.Result{Response: &render.Response{
		Status:       render.StatusFailed,
		ErrorCode:    "COMPOSITION_NOT_FOUND",
		ErrorMessage: "unknown composition",
		Retryable:    false,
	}}}
	exec, store := newTestExecutor(t, renderer, blockingFlags())
	ctx := context.Background()

	testsupport.NewMaster(t, store, "BRF-705")
	log := enqueue(t, store, "BRF-705")

	outcome, err := exec.Process(ctx, log.ID)
	if err != nil {
		t.Fatalf("non-retryable failure must not propagate: %v", err)
	}
	if outcome.Status != production.ExecutionFailed {
		t.Fatalf("expected failed, got %s", outcome.Status)
	}

	fetched, gerr := store.GetExecution(ctx, log.ID)
	if gerr != nil {
		t.Fatalf("GetExecution: %v", gerr)
	}
	if fetched.Status != production.ExecutionFailed || fetched.Retryable {
		t.Fatalf("expected terminal failure, got %#v", fetched)
	}
}

func TestProcessRendererInfrastructureErrorPropagates(t *testing.T) {
	renderer := &stubRenderer{err: errors.New("renderctl binary not found")}
	exec, store := newTestExecutor(t, renderer, blockingFlags())
	ctx := context.Background()

	testsupport.NewMaster(t, store, "BRF-706")
	log := enqueue(t, store, "BRF-706")

	_, err := exec.Process(ctx, log.ID)
	if err == nil {
		t.Fatal("expected propagated error")
	}
	if !services.Retryable(err) {
		t.Fatalf("infrastructure failure must be retryable, got %v", err)
	}

	fetched, gerr := store.GetExecution(ctx, log.ID)
	if gerr != nil {
		t.Fatalf("GetExecution: %v", gerr)
	}
	if fetched.RenderStatus != render.StatusFailed || !fetched.Retryable {
		t.Fatalf("expected persisted retryable render state, got %#v", fetched)
	}
}

func TestProcessObserveOnlyWithholdsDecision(t *testing.T) {
	renderer := successRenderer()
	flags := blockingFlags()
	flags.GatesBlocking = false
	exec, store := newTestExecutor(t, renderer, flags)
	ctx := context.Background()

	// Remove the approval so final_qa fails; in observe-only mode the run
	// still completes and the decision is withheld.
	master := testsupport.NewMaster(t, store, "BRF-707")
	master.ApprovalRecord = &production.ApprovalRecord{BriefID: master.BriefID}
	if err := store.UpdateProduction(ctx, master); err != nil {
		t.Fatalf("UpdateProduction: %v", err)
	}
	log := enqueue(t, store, "BRF-707")

	outcome, err := exec.Process(ctx, log.ID)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome.Status != production.ExecutionCompleted {
		t.Fatalf("expected completed, got %s (%s)", outcome.Status, outcome.ErrorMessage)
	}
	if outcome.CanPublish != nil {
		t.Fatalf("observe-only mode must withhold the decision, got %v", *outcome.CanPublish)
	}

	fetched, gerr := store.GetExecution(ctx, log.ID)
	if gerr != nil {
		t.Fatalf("GetExecution: %v", gerr)
	}
	if fetched.CanPublish != nil {
		t.Fatalf("persisted decision must be null, got %v", *fetched.CanPublish)
	}
	if len(fetched.GateResults) == 0 {
		t.Fatal("gate verdicts must still be computed and logged")
	}

	refetched, perr := store.GetProduction(ctx, master.BriefID)
	if perr != nil {
		t.Fatalf("GetProduction: %v", perr)
	}
	if refetched.Status != production.StatusQA {
		t.Fatalf("observe-only run must park production in qa, got %s", refetched.Status)
	}
}

func TestProcessMissingExecutionLog(t *testing.T) {
	exec, _ := newTestExecutor(t, successRenderer(), blockingFlags())
	if _, err := exec.Process(context.Background(), 9999); err == nil {
		t.Fatal("expected error for unknown execution id")
	} else if services.Retryable(err) {
		t.Fatalf("missing log is not retryable, got %v", err)
	}
}

func TestRunConfigSnapshotRoundTrip(t *testing.T) {
	flags := RunConfig{PipelineEnabled: true, GatesBlocking: false, RenderEngine: "canary", CanaryDailyQuota: 3, CanaryTimeoutSec: 120}
	snapshot := flags.Snapshot()
	if snapshot["pipeline_enabled"] != "true" || snapshot["gates_blocking"] != "false" {
		t.Fatalf("bad boolean snapshot: %#v", snapshot)
	}
	if snapshot["render_engine"] != "canary" || snapshot["canary_daily_quota"] != "3" {
		t.Fatalf("bad value snapshot: %#v", snapshot)
	}
}

func TestResolveRunConfigEnvOverrides(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	t.Setenv(EnvPipelineEnabled, "false")
	t.Setenv(EnvGatesBlocking, "0")
	t.Setenv(EnvRenderEngine, "canary")

	flags := ResolveRunConfig(cfg)
	if flags.PipelineEnabled || flags.GatesBlocking {
		t.Fatalf("environment must override config, got %#v", flags)
	}
	if flags.RenderEngine != "canary" {
		t.Fatalf("expected canary engine, got %s", flags.RenderEngine)
	}
}
