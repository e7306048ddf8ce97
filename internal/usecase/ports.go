package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/eslsoft/storyquest/internal/entity"
)

// ModelKind selects which backend model serves a request.
type ModelKind string

const (
	ModelText   ModelKind = "text"
	ModelVision ModelKind = "vision"
)

// ChatRequest is a single prompt sent to the AI backend.
type ChatRequest struct {
	Model    ModelKind
	Prompt   string
	ImageURL string
}

// TextGenerator is the AI backend used for recognition and content generation.
type TextGenerator interface {
	Complete(ctx context.Context, req ChatRequest) (RawResponse, error)
}

// SpeechCoreType picks the evaluation granularity.
type SpeechCoreType string

const (
	SpeechCoreWord      SpeechCoreType = "en.word.score"
	SpeechCoreSentence  SpeechCoreType = "en.snt.score"
	SpeechCoreParagraph SpeechCoreType = "en.pred.score"
)

// SpeechRequest carries a recording and the text it should match.
type SpeechRequest struct {
	AudioBase64   string
	ReferenceText string
	CoreType      SpeechCoreType
}

// SpeechScore is the evaluator's verdict. TotalScore is on a 0..100 scale.
type SpeechScore struct {
	Text       string
	TotalScore float64
}

// SpeechEvaluator scores a spoken recording against reference text.
type SpeechEvaluator interface {
	Evaluate(ctx context.Context, req SpeechRequest) (SpeechScore, error)
}

// ErrLeaseLost reports that a guard lease expired or was taken over.
var ErrLeaseLost = errors.New("generation lease lost")

// Lease is a held generation guard.
type Lease interface {
	// Extend pushes the expiry ttl into the future. It returns ErrLeaseLost
	// once another holder owns the key.
	Extend(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

// GenerationGuard provides mutual exclusion for content generation per task.
// Acquire returns entity.ErrGenerationInProgress when the key is already held.
type GenerationGuard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// TaskEvent announces a task status change or pipeline step.
type TaskEvent struct {
	TaskID     string            `json:"taskId"`
	UserID     string            `json:"userId"`
	Status     entity.TaskStatus `json:"status"`
	Stage      string            `json:"stage,omitempty"`
	GroupIndex *int              `json:"groupIndex,omitempty"`
	Error      string            `json:"error,omitempty"`
	At         time.Time         `json:"at"`
}

// TaskEventPublisher fans task events out to interested clients.
type TaskEventPublisher interface {
	PublishTaskEvent(ctx context.Context, event TaskEvent) error
}
