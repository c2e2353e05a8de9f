package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"portraitlab/internal/adapter/repo"
	"portraitlab/internal/domain"
	"portraitlab/internal/domain/jsoncfg"
	"portraitlab/internal/engine"
	"portraitlab/internal/evaluate"
	"portraitlab/internal/evolve"
	"portraitlab/internal/infra"
	"portraitlab/internal/infra/credentials"
	"portraitlab/internal/providers/genai"
	"portraitlab/internal/providers/image"
	"portraitlab/internal/providers/qwen"
	"portraitlab/internal/queue"
	"portraitlab/internal/storage"
)

const (
	dequeueTimeout = 5 * time.Second
	signalTimeout  = 2 * time.Second
	claimBackoff   = 2 * time.Second
)

type runWorker struct {
	logger infra.Logger
	cfg    *infra.Config
	runs   *repo.RunRepositoryPG
	queue  *queue.Queue
	creds  *credentials.Store
	blobs  *storage.FileStore
	photos *storage.PhotoStore
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()
	runner := infra.NewSQLRunner(pool, logger)

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: redis connection failed")
	}
	defer rdb.Close()

	blobs, err := storage.NewFileStore(absPath(cfg.StoragePath))
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}
	photos, err := storage.NewPhotoStore(absPath(cfg.PhotoPath))
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure photo store")
	}

	w := &runWorker{
		logger: logger,
		cfg:    cfg,
		runs:   repo.NewRunRepository(runner),
		queue:  queue.New(rdb, logger),
		creds:  credentials.NewStore(runner),
		blobs:  blobs,
		photos: photos,
	}

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

// Run claims queued runs until the context dies. The database claim is the
// source of truth; the Redis queue only wakes the loop so an idle worker
// reacts immediately instead of on the next poll.
func (w *runWorker) Run(ctx context.Context) error {
	w.logger.Info().Msg("worker: started")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		run, err := w.runs.ClaimQueuedRun(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				w.waitForWork(ctx)
				continue
			}
			w.logger.Error().Err(err).Msg("worker: claim run failed")
			sleep(ctx, claimBackoff)
			continue
		}

		w.handleRun(ctx, run)
	}
}

func (w *runWorker) waitForWork(ctx context.Context) {
	if _, err := w.queue.Dequeue(ctx, dequeueTimeout); err != nil && !errors.Is(err, queue.ErrEmpty) && ctx.Err() == nil {
		w.logger.Warn().Err(err).Msg("worker: queue wait failed")
		sleep(ctx, claimBackoff)
	}
}

func (w *runWorker) handleRun(ctx context.Context, run *domain.IterationRun) {
	w.logger.Info().
		Str("run_id", run.ID).
		Str("provider", run.Config.Provider).
		Msg("worker: claimed run")

	controller, err := w.buildController(ctx, run)
	if err != nil {
		w.logger.Error().Err(err).Str("run_id", run.ID).Msg("worker: run setup failed")
		if updateErr := w.runs.UpdateRunStatus(ctx, run.ID, domain.RunFailed, fmt.Sprintf("setup: %v", err)); updateErr != nil {
			w.logger.Error().Err(updateErr).Str("run_id", run.ID).Msg("worker: persist setup failure")
		}
		return
	}

	done := make(chan struct{})
	go w.relaySignals(ctx, run.ID, controller, done)

	if err := controller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Error().Err(err).Str("run_id", run.ID).Msg("worker: run failed")
	}
	close(done)

	if err := w.queue.Clear(context.WithoutCancel(ctx), run.ID); err != nil {
		w.logger.Warn().Err(err).Str("run_id", run.ID).Msg("worker: clear signals")
	}
}

// relaySignals forwards pause/resume/stop commands from the API to the
// controller while the run is active.
func (w *runWorker) relaySignals(ctx context.Context, runID string, controller *engine.Controller, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		default:
		}

		signal, err := w.queue.NextSignal(ctx, runID, signalTimeout)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) || ctx.Err() != nil {
				continue
			}
			w.logger.Warn().Err(err).Str("run_id", runID).Msg("worker: signal wait failed")
			sleep(ctx, claimBackoff)
			continue
		}

		switch signal {
		case queue.SignalPause:
			if err := controller.Pause(); err != nil {
				w.logger.Warn().Err(err).Str("run_id", runID).Msg("worker: pause rejected")
			}
		case queue.SignalResume:
			if err := controller.Resume(); err != nil {
				w.logger.Warn().Err(err).Str("run_id", runID).Msg("worker: resume rejected")
			}
		case queue.SignalStop:
			controller.Stop()
		}
	}
}

func (w *runWorker) buildController(ctx context.Context, run *domain.IterationRun) (*engine.Controller, error) {
	httpClient := &http.Client{Timeout: 120 * time.Second}

	geminiClient, err := genai.NewClient(genai.Options{
		APIKey:     w.resolveKey(ctx, w.cfg.GeminiAPIKey, w.creds.GeminiAPIKey),
		BaseURL:    w.cfg.GeminiBaseURL,
		Model:      w.cfg.GeminiModel,
		JudgeModel: w.cfg.GeminiJudgeModel,
		HTTPClient: httpClient,
		Logger:     &w.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("configure gemini client: %w", err)
	}
	qwenClient, err := qwen.NewClient(qwen.Options{
		APIKey:     w.resolveKey(ctx, w.cfg.QwenAPIKey, w.creds.QwenAPIKey),
		BaseURL:    w.cfg.QwenBaseURL,
		Model:      w.cfg.QwenModel,
		HTTPClient: httpClient,
		Logger:     &w.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("configure qwen client: %w", err)
	}

	generator, err := image.NewGenerator(run.Config, image.Backends{
		Gemini: geminiClient,
		Qwen:   qwenClient,
	})
	if err != nil {
		return nil, fmt.Errorf("configure generator: %w", err)
	}

	judge, err := w.buildJudge(ctx, run, geminiClient)
	if err != nil {
		return nil, err
	}
	evaluator, err := evaluate.NewEvaluator(run.Config.Evaluation, evaluate.RubricOptions{
		Judge:  judge,
		Blobs:  w.blobs,
		Photos: w.photos,
		Delay:  time.Duration(run.Config.EvaluatorDelayMS) * time.Millisecond,
		Logger: &w.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("configure evaluator: %w", err)
	}

	strategy, err := evolve.NewStrategy(run.Config.Evolution, evolve.NewGeminiRefiner(geminiClient), &w.logger)
	if err != nil {
		return nil, fmt.Errorf("configure evolution strategy: %w", err)
	}

	return engine.NewController(engine.ControllerOptions{
		Run:       run,
		Store:     w.runs,
		Photos:    w.photos,
		Blobs:     w.blobs,
		Generator: generator,
		Evaluator: evaluator,
		Strategy:  strategy,
		Logger:    &w.logger,
	})
}

func (w *runWorker) buildJudge(ctx context.Context, run *domain.IterationRun, geminiClient *genai.Client) (evaluate.Judge, error) {
	if run.Config.Evaluation.Strategy == jsoncfg.EvaluationManual {
		return nil, nil
	}
	switch run.Config.Evaluation.Judge {
	case "openai":
		key := w.resolveKey(ctx, w.cfg.OpenAIAPIKey, w.creds.OpenAIAPIKey)
		judge, err := evaluate.NewOpenAIJudge(evaluate.OpenAIJudgeConfig{APIKey: key, Model: w.cfg.OpenAIModel})
		if err != nil {
			return nil, fmt.Errorf("configure openai judge: %w", err)
		}
		return judge, nil
	default:
		if !geminiClient.HasCredentials() {
			return nil, fmt.Errorf("gemini judge: %w", domain.ErrMissingCredential)
		}
		return evaluate.NewGeminiJudge(geminiClient), nil
	}
}

// resolveKey prefers the environment and falls back to the database so keys
// can be rotated through the API without a redeploy.
func (w *runWorker) resolveKey(ctx context.Context, envKey string, fromStore func(context.Context) (string, error)) string {
	if key := strings.TrimSpace(envKey); key != "" {
		return key
	}
	key, err := fromStore(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Msg("worker: credential store lookup failed")
		return ""
	}
	return key
}

func absPath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
