package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"portraitlab/internal/domain"
	"portraitlab/internal/domain/jsoncfg"
	"portraitlab/internal/evaluate"
	"portraitlab/internal/evolve"
	"portraitlab/internal/infra"
	"portraitlab/internal/providers/image"
)

// errStopped signals a cooperative stop request inside the run loop.
var errStopped = errors.New("engine: stop requested")

// ControllerOptions wires one Controller for one run.
type ControllerOptions struct {
	Run       *domain.IterationRun
	Store     domain.RunStore
	Photos    domain.PhotoStore
	Blobs     domain.BlobStore
	Generator image.Generator
	Evaluator evaluate.Evaluator
	Strategy  evolve.Strategy
	Logger    *infra.Logger
}

// Controller owns the iteration loop of exactly one run: per round it evolves
// the prompt pool, schedules generation batches, evaluates the output, and
// carries the best prompts forward. Pause, resume, and stop apply at
// iteration boundaries; in-flight chunk calls settle first.
type Controller struct {
	run       *domain.IterationRun
	cfg       jsoncfg.RunConfig
	store     domain.RunStore
	photos    domain.PhotoStore
	blobs     domain.BlobStore
	generator image.Generator
	evaluator evaluate.Evaluator
	strategy  evolve.Strategy
	logger    infra.Logger

	photoData map[string]image.Source
	styleRefs map[string][]image.Source

	mu             sync.Mutex
	cond           *sync.Cond
	active         bool
	paused         bool
	pauseRequested bool
	stopRequested  bool

	completed int
	failed    int
}

// NewController validates the run config and prepares a controller. Photo
// loading is deferred to Run so construction stays cheap.
func NewController(opts ControllerOptions) (*Controller, error) {
	if opts.Run == nil {
		return nil, fmt.Errorf("controller requires a run")
	}
	cfg := opts.Run.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	var logger infra.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	c := &Controller{
		run:       opts.Run,
		cfg:       cfg,
		store:     opts.Store,
		photos:    opts.Photos,
		blobs:     opts.Blobs,
		generator: opts.Generator,
		evaluator: opts.Evaluator,
		strategy:  opts.Strategy,
		logger:    logger,
	}
	c.cond = sync.NewCond(&c.mu)
	return c, nil
}

// Pause requests a pause at the next iteration boundary.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return fmt.Errorf("pause: run %s is not running", c.run.ID)
	}
	c.pauseRequested = true
	return nil
}

// Resume wakes a paused run.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pauseRequested && !c.paused {
		return fmt.Errorf("resume run %s: %w", c.run.ID, domain.ErrRunNotPaused)
	}
	c.pauseRequested = false
	c.cond.Broadcast()
	return nil
}

// Stop finishes the run early with status completed. Safe to call in any
// state.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopRequested = true
	c.cond.Broadcast()
}

// Run drives the iteration loop until completion, stop, failure, or context
// cancellation. A second concurrent Run on the same controller is rejected.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return fmt.Errorf("run %s: %w", c.run.ID, domain.ErrRunActive)
	}
	c.active = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.active = false
		c.mu.Unlock()
	}()

	// Wake a paused loop when the context dies.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.cond.Broadcast()
		case <-done:
		}
	}()

	if err := c.loadPhotos(ctx); err != nil {
		return c.fail(ctx, 0, "load photos", err)
	}
	if err := c.setStatus(ctx, domain.RunRunning, ""); err != nil {
		return err
	}
	c.logger.Info().
		Str("run_id", c.run.ID).
		Str("provider", c.cfg.Provider).
		Int("total_iterations", c.cfg.TotalIterations).
		Msg("engine: run started")

	pool := c.seedPool()
	for iteration := 1; iteration <= c.cfg.TotalIterations; iteration++ {
		if err := c.checkpoint(ctx); err != nil {
			if errors.Is(err, errStopped) {
				return c.finish(ctx, "stopped early")
			}
			return c.fail(ctx, iteration, "cancelled", err)
		}

		c.run.CurrentIteration = iteration
		if err := c.persistProgress(ctx, iteration, 0); err != nil {
			return c.fail(ctx, iteration, "persist progress", err)
		}

		prompts := pool
		if iteration > 1 {
			next, err := c.strategy.NextPrompts(ctx, pool, iteration)
			if err != nil {
				return c.fail(ctx, iteration, "evolve prompts", err)
			}
			prompts = next
		}

		jobs := c.buildJobs(iteration, prompts)
		results := RunBatches(ctx, jobs, c.cfg.BatchSize, time.Duration(c.cfg.InterBatchDelayMS)*time.Millisecond, c.generate, func(chunk int) {
			// Mid-round progress is telemetry; a write failure must not
			// abort the chunk.
			if err := c.persistProgress(ctx, iteration, chunk); err != nil {
				c.logger.Warn().
					Err(err).
					Str("run_id", c.run.ID).
					Int("iteration", iteration).
					Msg("engine: persist batch progress")
			}
		})
		if err := c.store.InsertResults(ctx, results); err != nil {
			return c.fail(ctx, iteration, "persist results", err)
		}
		c.countResults(results)

		evaluations, err := c.evaluator.Evaluate(ctx, results)
		if err != nil && !errors.Is(err, context.Canceled) {
			return c.fail(ctx, iteration, "evaluate", err)
		}
		if len(evaluations) > 0 {
			if err := c.store.InsertEvaluations(ctx, evaluations); err != nil {
				return c.fail(ctx, iteration, "persist evaluations", err)
			}
			for _, evaluation := range evaluations {
				evaluationsScored.WithLabelValues(evaluation.Strategy).Inc()
			}
		}
		if err := c.persistProgress(ctx, iteration, 0); err != nil {
			return c.fail(ctx, iteration, "persist progress", err)
		}
		iterationsTotal.Inc()

		selected := SelectTopPrompts(results, evaluations, c.cfg.KeepTopPercent)
		if len(selected) == 0 {
			c.logger.Warn().
				Str("run_id", c.run.ID).
				Int("iteration", iteration).
				Msg("engine: no scored results, falling back to seed prompts")
			selected = c.seedPool()
		}
		pool = selected

		if c.cfg.Evaluation.Strategy == jsoncfg.EvaluationManual && c.cfg.Evaluation.AutoPause {
			c.mu.Lock()
			c.pauseRequested = true
			c.mu.Unlock()
			// Park right here so the final iteration pauses too instead
			// of completing with pending scores.
			if err := c.checkpoint(ctx); err != nil {
				if errors.Is(err, errStopped) {
					return c.finish(ctx, "stopped early")
				}
				return c.fail(ctx, iteration, "cancelled", err)
			}
		}

		if iteration < c.cfg.TotalIterations && c.cfg.InterRoundDelayMS > 0 {
			select {
			case <-time.After(time.Duration(c.cfg.InterRoundDelayMS) * time.Millisecond):
			case <-ctx.Done():
			}
		}
	}
	return c.finish(ctx, "")
}

// checkpoint blocks while a pause is requested and reports stop or
// cancellation. Status transitions are persisted as they happen.
func (c *Controller) checkpoint(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.stopRequested {
			return errStopped
		}
		if !c.pauseRequested {
			if c.paused {
				c.paused = false
				if err := c.setStatus(ctx, domain.RunRunning, ""); err != nil {
					return err
				}
				c.logger.Info().Str("run_id", c.run.ID).Msg("engine: run resumed")
			}
			return nil
		}
		if !c.paused {
			c.paused = true
			if err := c.setStatus(ctx, domain.RunPaused, ""); err != nil {
				return err
			}
			c.logger.Info().Str("run_id", c.run.ID).Msg("engine: run paused")
		}
		c.cond.Wait()
	}
}

func (c *Controller) generate(ctx context.Context, job domain.GenerationJob) domain.GeneratedResult {
	result := domain.GeneratedResult{
		ID:         uuid.NewString(),
		Job:        job,
		PromptUsed: job.Prompt,
		CreatedAt:  time.Now().UTC(),
	}
	opts := image.Options{
		Background:      domain.BackgroundMode(c.cfg.Background),
		Size:            c.imageSize(),
		StyleReferences: c.styleRefs[job.StyleGroup],
		RequestID:       result.ID,
	}

	started := time.Now()
	img, err := c.generator.Generate(ctx, c.photoData[job.SourcePhotoID], job.Prompt, opts)
	generationDuration.WithLabelValues(job.Provider).Observe(time.Since(started).Seconds())
	if err != nil {
		result.Status = domain.ResultFailed
		result.ErrorDetail = err.Error()
		generationResults.WithLabelValues(job.Provider, string(domain.ResultFailed)).Inc()
		c.logger.Warn().
			Str("run_id", job.RunID).
			Int("iteration", job.Iteration).
			Str("photo_id", job.SourcePhotoID).
			Err(err).
			Msg("engine: generation job failed")
		return result
	}

	key := fmt.Sprintf("runs/%s/iter%02d/%s%s", job.RunID, job.Iteration, result.ID, blobExt(img.MIME))
	blobKey, err := c.blobs.Write(ctx, key, img.Data)
	if err != nil {
		result.Status = domain.ResultFailed
		result.ErrorDetail = fmt.Sprintf("store image: %v", err)
		generationResults.WithLabelValues(job.Provider, string(domain.ResultFailed)).Inc()
		return result
	}
	result.BlobKey = blobKey
	result.MIME = img.MIME
	result.Status = domain.ResultSucceeded
	generationResults.WithLabelValues(job.Provider, string(domain.ResultSucceeded)).Inc()
	return result
}

// buildJobs pairs photos with prompts. Direct edit crosses every photo with
// every prompt; style transfer crosses photos with style groups and assigns
// prompts round-robin; synthesis without photos emits one job per prompt.
func (c *Controller) buildJobs(iteration int, prompts []string) []domain.GenerationJob {
	base := domain.GenerationJob{
		RunID:      c.run.ID,
		Iteration:  iteration,
		Size:       c.imageSize(),
		Background: domain.BackgroundMode(c.cfg.Background),
		Provider:   c.cfg.Provider,
	}

	var jobs []domain.GenerationJob
	switch {
	case c.cfg.StyleTransfer():
		for _, photoID := range c.cfg.PhotoIDs {
			for i, group := range c.cfg.StyleGroups {
				job := base
				job.SourcePhotoID = photoID
				job.StyleGroup = group.Name
				job.Prompt = prompts[i%len(prompts)]
				jobs = append(jobs, job)
			}
		}
	case len(c.cfg.PhotoIDs) == 0:
		for _, prompt := range prompts {
			job := base
			job.Prompt = prompt
			jobs = append(jobs, job)
		}
	default:
		for _, photoID := range c.cfg.PhotoIDs {
			for _, prompt := range prompts {
				job := base
				job.SourcePhotoID = photoID
				job.Prompt = prompt
				jobs = append(jobs, job)
			}
		}
	}
	return jobs
}

// loadPhotos fetches every source photo and style reference once up front so
// a missing photo fails the run before any provider call.
func (c *Controller) loadPhotos(ctx context.Context) error {
	c.photoData = make(map[string]image.Source, len(c.cfg.PhotoIDs))
	for _, photoID := range c.cfg.PhotoIDs {
		data, mime, err := c.photos.FetchPhoto(ctx, photoID)
		if err != nil {
			return fmt.Errorf("photo %s: %w", photoID, err)
		}
		c.photoData[photoID] = image.Source{Data: data, MIME: mime}
	}
	c.styleRefs = make(map[string][]image.Source, len(c.cfg.StyleGroups))
	for _, group := range c.cfg.StyleGroups {
		refs := make([]image.Source, 0, len(group.ReferencePhotoIDs))
		for _, photoID := range group.ReferencePhotoIDs {
			data, mime, err := c.photos.FetchPhoto(ctx, photoID)
			if err != nil {
				return fmt.Errorf("style reference %s: %w", photoID, err)
			}
			refs = append(refs, image.Source{Data: data, MIME: mime})
		}
		c.styleRefs[group.Name] = refs
	}
	return nil
}

func blobExt(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

func (c *Controller) seedPool() []string {
	if len(c.cfg.SeedPrompts) > 0 {
		return c.cfg.SeedPrompts
	}
	return evolve.DefaultSeedPrompts
}

func (c *Controller) imageSize() domain.ImageSize {
	if c.cfg.Size == "" {
		return domain.ImageSizeSquare
	}
	return domain.ImageSize(c.cfg.Size)
}

func (c *Controller) countResults(results []domain.GeneratedResult) {
	for _, result := range results {
		if result.Failed() {
			c.failed++
		} else {
			c.completed++
		}
	}
}

func (c *Controller) persistProgress(ctx context.Context, iteration, batch int) error {
	return c.store.UpdateRunProgress(ctx, domain.Progress{
		RunID:            c.run.ID,
		CurrentIteration: iteration,
		TotalIterations:  c.cfg.TotalIterations,
		Completed:        c.completed,
		Failed:           c.failed,
		CurrentBatch:     batch,
	})
}

func (c *Controller) setStatus(ctx context.Context, status domain.RunStatus, errMsg string) error {
	c.run.Status = status
	c.run.ErrorMessage = errMsg
	return c.store.UpdateRunStatus(ctx, c.run.ID, status, errMsg)
}

func (c *Controller) finish(ctx context.Context, note string) error {
	now := time.Now().UTC()
	c.run.CompletedAt = &now
	runsFinished.WithLabelValues(string(domain.RunCompleted)).Inc()
	c.logger.Info().
		Str("run_id", c.run.ID).
		Int("completed", c.completed).
		Int("failed", c.failed).
		Str("note", note).
		Msg("engine: run completed")
	return c.setStatus(ctx, domain.RunCompleted, "")
}

func (c *Controller) fail(_ context.Context, iteration int, step string, cause error) error {
	msg := fmt.Sprintf("iteration %d: %s: %v", iteration, step, cause)
	runsFinished.WithLabelValues(string(domain.RunFailed)).Inc()
	c.logger.Error().
		Str("run_id", c.run.ID).
		Int("iteration", iteration).
		Str("step", step).
		Err(cause).
		Msg("engine: run failed")

	// The loop context may already be cancelled; the terminal status still
	// needs to land.
	persistCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.setStatus(persistCtx, domain.RunFailed, msg); err != nil {
		c.logger.Error().Err(err).Str("run_id", c.run.ID).Msg("engine: persist failed status")
	}
	return fmt.Errorf("run %s failed: %s: %w", c.run.ID, step, cause)
}
