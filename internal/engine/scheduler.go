package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"portraitlab/internal/domain"
)

// GenerateFunc executes one provider call for a job and always returns a
// result; failures surface as status=failed results, never as errors.
type GenerateFunc func(ctx context.Context, job domain.GenerationJob) domain.GeneratedResult

// RunBatches executes jobs in consecutive chunks of at most batchSize. All
// calls within a chunk run concurrently and results land at the index of
// their job, so output order always equals input order regardless of
// completion order. A full join barrier separates chunks, followed by the
// inter-batch delay except after the last chunk. The concurrency bound is
// exactly batchSize. onChunk, when non-nil, is called with the 1-based chunk
// index before that chunk's calls are issued.
func RunBatches(ctx context.Context, jobs []domain.GenerationJob, batchSize int, delay time.Duration, call GenerateFunc, onChunk func(chunk int)) []domain.GeneratedResult {
	if batchSize < 1 {
		batchSize = 1
	}
	results := make([]domain.GeneratedResult, len(jobs))
	chunk := 0
	for start := 0; start < len(jobs); start += batchSize {
		chunk++
		if onChunk != nil {
			onChunk(chunk)
		}
		end := start + batchSize
		if end > len(jobs) {
			end = len(jobs)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				results[idx] = call(ctx, jobs[idx])
			}(i)
		}
		wg.Wait()

		if end < len(jobs) && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				// Cancellation between chunks: remaining jobs fail fast.
				for i := end; i < len(jobs); i++ {
					results[i] = domain.GeneratedResult{
						ID:          uuid.NewString(),
						Job:         jobs[i],
						PromptUsed:  jobs[i].Prompt,
						Status:      domain.ResultFailed,
						ErrorDetail: ctx.Err().Error(),
						CreatedAt:   time.Now().UTC(),
					}
				}
				return results
			}
		}
	}
	return results
}
