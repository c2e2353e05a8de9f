package domain

import "time"

// BackgroundMode controls how the provider treats the area around the subject.
type BackgroundMode string

const (
	BackgroundOpaque      BackgroundMode = "opaque"
	BackgroundTransparent BackgroundMode = "transparent"
)

// ImageSize enumerates the output dimensions supported across providers.
type ImageSize string

const (
	ImageSizeSquare    ImageSize = "1024x1024"
	ImageSizePortrait  ImageSize = "1024x1536"
	ImageSizeLandscape ImageSize = "1536x1024"
)

// GenerationJob is one (source photo, prompt, config) triple destined for a
// single provider call. Jobs are immutable once built; the scheduler never
// rewrites them.
type GenerationJob struct {
	RunID         string
	Iteration     int
	SourcePhotoID string
	Prompt        string
	Size          ImageSize
	Background    BackgroundMode
	Provider      string
	StyleGroup    string
}

// ResultStatus enumerates terminal states of one generation call.
type ResultStatus string

const (
	ResultSucceeded ResultStatus = "success"
	ResultFailed    ResultStatus = "failed"
)

// GeneratedResult records the outcome of one provider call. It is created once
// by the scheduler and never mutated afterwards; an Evaluation is attached
// post-hoc under a separate record.
type GeneratedResult struct {
	ID          string
	Job         GenerationJob
	BlobKey     string
	MIME        string
	PromptUsed  string
	Status      ResultStatus
	ErrorDetail string
	CreatedAt   time.Time
}

// Failed reports whether the provider call behind this result did not produce
// a usable image.
func (r GeneratedResult) Failed() bool {
	return r.Status == ResultFailed
}
