package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/entity"
	"github.com/eslsoft/storyquest/internal/repository"
)

// SubmitResult is the persisted attempt plus the judge's signals.
type SubmitResult struct {
	Attempt  *entity.ChallengeAttempt
	Judgment Judgment
	// Speech is set when the response was scored from raw audio.
	Speech *SpeechScore
}

// ChallengeUsecase judges learner submissions and reports progress.
type ChallengeUsecase interface {
	Submit(ctx context.Context, actor entity.Actor, taskID, cardID string, resp entity.ChallengeResponse) (*SubmitResult, error)
	EvaluateSpeech(ctx context.Context, audioBase64, referenceText string, coreType SpeechCoreType) (SpeechScore, error)
	GroupProgress(ctx context.Context, actor entity.Actor, taskID string, groupIndex int) (entity.GroupProgress, error)
	TaskProgress(ctx context.Context, actor entity.Actor, taskID string) (entity.TaskProgress, error)
}

type challengeUsecase struct {
	tasks    repository.TaskRepository
	cards    repository.CardRepository
	attempts repository.AttemptRepository
	speech   SpeechEvaluator
	log      logrus.FieldLogger
	clock    func() time.Time
	newID    func() string
}

func NewChallengeUsecase(
	tasks repository.TaskRepository,
	cards repository.CardRepository,
	attempts repository.AttemptRepository,
	speech SpeechEvaluator,
	logger logrus.FieldLogger,
) ChallengeUsecase {
	return &challengeUsecase{
		tasks:    tasks,
		cards:    cards,
		attempts: attempts,
		speech:   speech,
		log:      logger,
		clock:    time.Now,
		newID:    uuid.NewString,
	}
}

func (u *challengeUsecase) Submit(ctx context.Context, actor entity.Actor, taskID, cardID string, resp entity.ChallengeResponse) (*SubmitResult, error) {
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	task, err := u.tasks.GetByID(ctx, actor.UserID, taskID)
	if err != nil {
		return nil, err
	}
	card, err := u.cards.GetByID(ctx, task.ID, cardID)
	if err != nil {
		return nil, err
	}
	if card.CardType != resp.Type {
		return nil, fmt.Errorf("%w: %s response for %s card", entity.ErrInvalidResponse, resp.Type, card.CardType)
	}

	result := &SubmitResult{}
	if resp.Type == entity.CardTypeReading && resp.MatchPercentage == nil {
		score, err := u.EvaluateSpeech(ctx, resp.AudioBase64, referenceText(card), coreTypeFor(referenceText(card)))
		if err != nil {
			return nil, err
		}
		match := math.Min(math.Max(score.TotalScore/100, 0), 1)
		resp.MatchPercentage = &match
		if resp.SpokenText == "" {
			resp.SpokenText = score.Text
		}
		result.Speech = &score
	}

	prior, err := u.attempts.ListByCard(ctx, actor.UserID, card.ID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	judgment := Judge(*card, prior, resp)

	resp.AudioBase64 = ""
	attempt, err := u.attempts.Create(ctx, &entity.ChallengeAttempt{
		ID:            u.newID(),
		CardID:        card.ID,
		TaskID:        task.ID,
		UserID:        actor.UserID,
		Passed:        judgment.Passed,
		Score:         judgment.Score,
		Response:      resp,
		AttemptNumber: judgment.AttemptNumber,
		CreatedAt:     u.clock().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("store attempt: %w", err)
	}

	u.log.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"card_id":   card.ID,
		"attempt":   judgment.AttemptNumber,
		"passed":    judgment.Passed,
		"score":     judgment.Score,
		"downgrade": judgment.ShouldDowngrade,
	}).Debug("challenge attempt judged")

	result.Attempt = attempt
	result.Judgment = judgment
	return result, nil
}

func referenceText(card *entity.ChallengeCard) string {
	if text := strings.TrimSpace(card.Content.ReadingText); text != "" {
		return text
	}
	return card.TargetWord
}

func coreTypeFor(text string) SpeechCoreType {
	switch n := len(strings.Fields(text)); {
	case n <= 1:
		return SpeechCoreWord
	case strings.Count(text, ".")+strings.Count(text, "!")+strings.Count(text, "?") > 1:
		return SpeechCoreParagraph
	default:
		return SpeechCoreSentence
	}
}

func (u *challengeUsecase) EvaluateSpeech(ctx context.Context, audioBase64, text string, coreType SpeechCoreType) (SpeechScore, error) {
	audioBase64 = strings.TrimSpace(audioBase64)
	text = strings.TrimSpace(text)
	if audioBase64 == "" || text == "" {
		return SpeechScore{}, entity.ErrInvalidResponse
	}
	if coreType == "" {
		coreType = SpeechCoreSentence
	}
	if u.speech == nil {
		return SpeechScore{}, fmt.Errorf("%w: evaluator not configured", entity.ErrSpeechEvaluation)
	}
	score, err := u.speech.Evaluate(ctx, SpeechRequest{AudioBase64: audioBase64, ReferenceText: text, CoreType: coreType})
	if err != nil {
		if errors.Is(err, entity.ErrSpeechEvaluation) {
			return SpeechScore{}, err
		}
		return SpeechScore{}, fmt.Errorf("%w: %w", entity.ErrSpeechEvaluation, err)
	}
	return score, nil
}

func (u *challengeUsecase) GroupProgress(ctx context.Context, actor entity.Actor, taskID string, groupIndex int) (entity.GroupProgress, error) {
	task, err := u.tasks.GetByID(ctx, actor.UserID, taskID)
	if err != nil {
		return entity.GroupProgress{}, err
	}
	if _, ok := task.Group(groupIndex); !ok {
		return entity.GroupProgress{}, entity.ErrInvalidGroupIndex
	}
	cards, err := u.cards.ListByGroup(ctx, task.ID, groupIndex)
	if err != nil {
		return entity.GroupProgress{}, fmt.Errorf("list cards: %w", err)
	}
	attempts, err := u.attempts.ListByTask(ctx, actor.UserID, task.ID)
	if err != nil {
		return entity.GroupProgress{}, fmt.Errorf("list attempts: %w", err)
	}
	return AggregateProgress(groupIndex, cards, attempts), nil
}

func (u *challengeUsecase) TaskProgress(ctx context.Context, actor entity.Actor, taskID string) (entity.TaskProgress, error) {
	task, err := u.tasks.GetByID(ctx, actor.UserID, taskID)
	if err != nil {
		return entity.TaskProgress{}, err
	}
	cards, err := u.cards.ListByTask(ctx, task.ID)
	if err != nil {
		return entity.TaskProgress{}, fmt.Errorf("list cards: %w", err)
	}
	attempts, err := u.attempts.ListByTask(ctx, actor.UserID, task.ID)
	if err != nil {
		return entity.TaskProgress{}, fmt.Errorf("list attempts: %w", err)
	}
	return AggregateTaskProgress(task, cards, attempts), nil
}
