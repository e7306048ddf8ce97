package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/eslsoft/storyquest/internal/entity"
	"github.com/eslsoft/storyquest/internal/repository"
)

const (
	_defaultPageSize = int32(20)
	_maxPageSize     = int32(100)

	_defaultGenerationLockTTL = 10 * time.Minute
)

// Pipeline stages reported in task events.
const (
	StageStarted   = "started"
	StageStory     = "story"
	StageCards     = "cards"
	StageCompleted = "completed"
	StageFailed    = "failed"
)

// RecognitionInput is the source a task's words are recognised from.
// Images win over text when both are present.
type RecognitionInput struct {
	Text      string
	ImageURLs []string
}

// GenerateResult reports the outcome of a generation run. Domain failures
// are carried in Err rather than returned.
type GenerateResult struct {
	Success        bool
	Err            error
	CreditsCharged int
}

// TaskUsecaseOptions tunes pricing and the generation guard.
type TaskUsecaseOptions struct {
	Costs             CreditCosts
	GenerationLockTTL time.Duration
}

// TaskUsecase drives a task from word capture to generated content.
type TaskUsecase interface {
	CreateTask(ctx context.Context, actor entity.Actor, title, grade string) (*entity.Task, error)
	RecognizeWords(ctx context.Context, actor entity.Actor, taskID string, input RecognitionInput) ([]entity.RecognizedWord, error)
	RecognizePreview(ctx context.Context, imageURL string) ([]entity.RecognizedWord, error)
	ConfirmWords(ctx context.Context, actor entity.Actor, taskID string, words []entity.ConfirmedWord) ([]entity.WordGroup, error)
	UpdateGroups(ctx context.Context, actor entity.Actor, taskID string, groups []entity.WordGroup) ([]entity.WordGroup, error)
	GenerateContent(ctx context.Context, actor entity.Actor, taskID string) GenerateResult
	ListTasks(ctx context.Context, actor entity.Actor, query *repository.ListTaskQuery) ([]entity.Task, int64, error)
	GetTaskDetail(ctx context.Context, actor entity.Actor, taskID string) (*entity.TaskDetail, error)
	CompleteTask(ctx context.Context, actor entity.Actor, taskID string) (*entity.Task, error)
}

type taskUsecase struct {
	tasks     repository.TaskRepository
	stories   repository.StoryRepository
	cards     repository.CardRepository
	attempts  repository.AttemptRepository
	generator ContentGenerator
	gate      CreditGate
	guard     GenerationGuard
	events    TaskEventPublisher
	costs     CreditCosts
	lockTTL   time.Duration
	log       logrus.FieldLogger
	tracer    trace.Tracer
	clock     func() time.Time
	newID     func() string
}

func NewTaskUsecase(
	tasks repository.TaskRepository,
	stories repository.StoryRepository,
	cards repository.CardRepository,
	attempts repository.AttemptRepository,
	generator ContentGenerator,
	gate CreditGate,
	guard GenerationGuard,
	events TaskEventPublisher,
	opts TaskUsecaseOptions,
	logger logrus.FieldLogger,
) TaskUsecase {
	if opts.GenerationLockTTL <= 0 {
		opts.GenerationLockTTL = _defaultGenerationLockTTL
	}
	return &taskUsecase{
		tasks:     tasks,
		stories:   stories,
		cards:     cards,
		attempts:  attempts,
		generator: generator,
		gate:      gate,
		guard:     guard,
		events:    events,
		costs:     opts.Costs,
		lockTTL:   opts.GenerationLockTTL,
		log:       logger,
		tracer:    otel.Tracer("github.com/eslsoft/storyquest/internal/usecase"),
		clock:     time.Now,
		newID:     uuid.NewString,
	}
}

func (u *taskUsecase) CreateTask(ctx context.Context, actor entity.Actor, title, grade string) (*entity.Task, error) {
	title, err := entity.NormalizeTaskTitle(title)
	if err != nil {
		return nil, err
	}
	g, err := entity.ParseGrade(grade)
	if err != nil {
		return nil, err
	}
	now := u.clock().UTC()
	return u.tasks.Create(ctx, &entity.Task{
		ID:        u.newID(),
		UserID:    actor.UserID,
		Title:     title,
		Grade:     g,
		Status:    entity.TaskStatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (u *taskUsecase) RecognizeWords(ctx context.Context, actor entity.Actor, taskID string, input RecognitionInput) ([]entity.RecognizedWord, error) {
	task, err := u.tasks.GetByID(ctx, actor.UserID, taskID)
	if err != nil {
		return nil, err
	}
	if !task.Status.CanTransition(entity.TaskStatusUploaded) {
		return nil, entity.ErrInvalidTaskStatus
	}

	images := lo.Compact(lo.Map(input.ImageURLs, func(s string, _ int) string { return strings.TrimSpace(s) }))
	text := strings.TrimSpace(input.Text)
	if len(images) == 0 && text == "" {
		return nil, entity.ErrNoWordsProvided
	}

	var words []entity.RecognizedWord
	err = u.gate.Run(ctx, actor, u.costs.Recognition, "word recognition", func(ctx context.Context) error {
		if len(images) == 0 {
			words, err = u.generator.RecognizeFromText(ctx, text)
			return err
		}
		for _, url := range images {
			found, err := u.generator.RecognizeFromImage(ctx, url)
			if err != nil {
				return err
			}
			words = append(words, found...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	words = lo.UniqBy(words, func(w entity.RecognizedWord) string { return strings.ToLower(w.Word) })
	if err := u.tasks.UpdateRecognizedWords(ctx, task.ID, words, images); err != nil {
		return nil, fmt.Errorf("store recognized words: %w", err)
	}
	return words, nil
}

func (u *taskUsecase) RecognizePreview(ctx context.Context, imageURL string) ([]entity.RecognizedWord, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return nil, entity.ErrNoWordsProvided
	}
	return u.generator.RecognizeFromImage(ctx, imageURL)
}

func (u *taskUsecase) ConfirmWords(ctx context.Context, actor entity.Actor, taskID string, words []entity.ConfirmedWord) ([]entity.WordGroup, error) {
	task, err := u.tasks.GetByID(ctx, actor.UserID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != entity.TaskStatusUploaded && task.Status != entity.TaskStatusConfirmed {
		return nil, entity.ErrInvalidTaskStatus
	}

	confirmed := make([]entity.ConfirmedWord, 0, len(words))
	for _, w := range words {
		if n := w.Normalize(); n.Word != "" {
			confirmed = append(confirmed, n)
		}
	}
	if len(confirmed) == 0 {
		return nil, entity.ErrNoConfirmedWords
	}

	groups := GroupWords(confirmed)
	if err := u.tasks.UpdateWords(ctx, task.ID, confirmed, groups, entity.TaskStatusConfirmed); err != nil {
		return nil, fmt.Errorf("store confirmed words: %w", err)
	}
	return groups, nil
}

func (u *taskUsecase) UpdateGroups(ctx context.Context, actor entity.Actor, taskID string, groups []entity.WordGroup) ([]entity.WordGroup, error) {
	task, err := u.tasks.GetByID(ctx, actor.UserID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != entity.TaskStatusConfirmed {
		return nil, entity.ErrInvalidTaskStatus
	}

	normalized := make([]entity.WordGroup, len(groups))
	for i, g := range groups {
		normalized[i] = entity.WordGroup{
			GroupIndex: g.GroupIndex,
			Words:      lo.Map(g.Words, func(w entity.ConfirmedWord, _ int) entity.ConfirmedWord { return w.Normalize() }),
		}
	}
	flat, err := ValidateGroups(task.ConfirmedWords, normalized)
	if err != nil {
		return nil, err
	}
	if err := u.tasks.UpdateWords(ctx, task.ID, flat, normalized, entity.TaskStatusConfirmed); err != nil {
		return nil, fmt.Errorf("store word groups: %w", err)
	}
	return normalized, nil
}

func (u *taskUsecase) GenerateContent(ctx context.Context, actor entity.Actor, taskID string) GenerateResult {
	ctx, span := u.tracer.Start(ctx, "TaskUsecase.GenerateContent", trace.WithAttributes(
		attribute.String("task.id", taskID),
		attribute.Bool("actor.guest", actor.IsGuest),
	))
	defer span.End()

	res := u.generate(ctx, actor, taskID)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}
	span.SetAttributes(attribute.Int("credits.charged", res.CreditsCharged))
	return res
}

func (u *taskUsecase) generate(ctx context.Context, actor entity.Actor, taskID string) GenerateResult {
	task, err := u.tasks.GetByID(ctx, actor.UserID, taskID)
	if err != nil {
		return GenerateResult{Err: err}
	}
	if len(task.WordGroups) == 0 {
		return GenerateResult{Err: entity.ErrNoWordGroups}
	}
	// generating is accepted too so a run interrupted by a crash can be retried
	// once its guard has expired.
	if task.Status != entity.TaskStatusConfirmed && task.Status != entity.TaskStatusGenerating {
		return GenerateResult{Err: entity.ErrInvalidTaskStatus}
	}

	lease, err := u.guard.Acquire(ctx, "generate:"+task.ID, u.lockTTL)
	if err != nil {
		return GenerateResult{Err: err}
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			u.log.WithError(err).WithField("task_id", task.ID).Warn("release generation guard")
		}
	}()

	groups := append([]entity.WordGroup(nil), task.WordGroups...)
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].GroupIndex < groups[j].GroupIndex })

	total := len(groups) * u.costs.PerGroup()
	if err := u.gate.Check(ctx, actor, total); err != nil {
		return GenerateResult{Err: err}
	}

	if err := u.tasks.UpdateStatus(ctx, task.ID, entity.TaskStatusGenerating); err != nil {
		return GenerateResult{Err: fmt.Errorf("mark generating: %w", err)}
	}
	u.publish(ctx, task, entity.TaskStatusGenerating, StageStarted, nil, nil)

	logger := u.log.WithFields(logrus.Fields{"task_id": task.ID, "groups": len(groups), "guest": actor.IsGuest})
	charged := 0
	for _, group := range groups {
		if err := lease.Extend(ctx, u.lockTTL); err != nil {
			if errors.Is(err, ErrLeaseLost) {
				// Another run owns the task now; leave its status alone.
				logger.WithField("group_index", group.GroupIndex).Warn("generation lease lost, aborting run")
				return GenerateResult{Err: fmt.Errorf("%w: %w", entity.ErrGenerationInProgress, err), CreditsCharged: charged}
			}
			logger.WithError(err).Warn("extend generation lease")
		}
		n, err := u.generateGroup(ctx, actor, task, group)
		charged += n
		if err != nil {
			logger.WithError(err).WithField("group_index", group.GroupIndex).Error("content generation failed")
			u.rollback(ctx, task, group.GroupIndex, err)
			return GenerateResult{Err: err, CreditsCharged: charged}
		}
	}

	if err := u.tasks.CompleteGeneration(ctx, task.ID, task.CreditsUsed+charged); err != nil {
		u.rollback(ctx, task, -1, err)
		return GenerateResult{Err: fmt.Errorf("finish generation: %w", err), CreditsCharged: charged}
	}
	u.publish(ctx, task, entity.TaskStatusReady, StageCompleted, nil, nil)
	logger.WithField("credits", charged).Info("content generated")
	return GenerateResult{Success: true, CreditsCharged: charged}
}

// generateGroup produces one group's story and cards and returns the credits debited.
func (u *taskUsecase) generateGroup(ctx context.Context, actor entity.Actor, task *entity.Task, group entity.WordGroup) (int, error) {
	ctx, span := u.tracer.Start(ctx, "TaskUsecase.generateGroup", trace.WithAttributes(
		attribute.Int("group.index", group.GroupIndex),
		attribute.Int("group.words", len(group.Words)),
	))
	defer span.End()

	charged := 0
	index := group.GroupIndex
	u.publish(ctx, task, entity.TaskStatusGenerating, StageStory, &index, nil)

	parsed, err := u.generator.GenerateStory(ctx, group.Words, task.Grade, group.GroupIndex)
	if err != nil {
		return charged, err
	}
	story, err := u.stories.Create(ctx, &entity.Story{
		ID:               u.newID(),
		TaskID:           task.ID,
		GroupIndex:       group.GroupIndex,
		Words:            group.WordTexts(),
		Content:          parsed.Story,
		ContentZh:        parsed.StoryZh,
		HighlightedWords: parsed.HighlightedWords,
		CreatedAt:        u.clock().UTC(),
	})
	if err != nil {
		return charged, fmt.Errorf("store story: %w", err)
	}
	if err := u.gate.Charge(ctx, actor, u.costs.Story, fmt.Sprintf("story generation (group %d)", group.GroupIndex+1)); err != nil {
		return charged, err
	}
	if !actor.IsGuest {
		charged += u.costs.Story
	}

	u.publish(ctx, task, entity.TaskStatusGenerating, StageCards, &index, nil)
	generated, err := u.generator.GenerateChallengeCards(ctx, group.Words, parsed.Story, task.Grade)
	if err != nil {
		return charged, err
	}
	for i, c := range generated {
		if _, err := u.cards.Create(ctx, &entity.ChallengeCard{
			ID:         u.newID(),
			StoryID:    story.ID,
			TaskID:     task.ID,
			GroupIndex: group.GroupIndex,
			CardIndex:  i,
			CardType:   c.CardType,
			SubType:    c.SubType,
			TargetWord: c.TargetWord,
			Content:    c.Content,
			CreatedAt:  u.clock().UTC(),
		}); err != nil {
			return charged, fmt.Errorf("store card %d: %w", i, err)
		}
	}
	if err := u.gate.Charge(ctx, actor, u.costs.Cards, fmt.Sprintf("challenge cards (group %d)", group.GroupIndex+1)); err != nil {
		return charged, err
	}
	if !actor.IsGuest {
		charged += u.costs.Cards
	}
	return charged, nil
}

// rollback returns the task to confirmed. It runs detached from ctx so a
// cancelled request still leaves the task retryable.
func (u *taskUsecase) rollback(ctx context.Context, task *entity.Task, groupIndex int, cause error) {
	ctx = context.WithoutCancel(ctx)
	if err := u.tasks.UpdateStatus(ctx, task.ID, entity.TaskStatusConfirmed); err != nil {
		u.log.WithError(err).WithField("task_id", task.ID).Error("roll back task status")
	}
	var index *int
	if groupIndex >= 0 {
		index = &groupIndex
	}
	u.publish(ctx, task, entity.TaskStatusConfirmed, StageFailed, index, cause)
}

func (u *taskUsecase) publish(ctx context.Context, task *entity.Task, status entity.TaskStatus, stage string, groupIndex *int, cause error) {
	if u.events == nil {
		return
	}
	ev := TaskEvent{
		TaskID:     task.ID,
		UserID:     task.UserID,
		Status:     status,
		Stage:      stage,
		GroupIndex: groupIndex,
		At:         u.clock().UTC(),
	}
	if cause != nil {
		ev.Error = cause.Error()
	}
	if err := u.events.PublishTaskEvent(ctx, ev); err != nil {
		u.log.WithError(err).WithFields(logrus.Fields{"task_id": task.ID, "stage": stage}).Warn("publish task event")
	}
}

func (u *taskUsecase) ListTasks(ctx context.Context, actor entity.Actor, query *repository.ListTaskQuery) ([]entity.Task, int64, error) {
	q := repository.ListTaskQuery{}
	if query != nil {
		q = *query
	}
	q.UserID = actor.UserID
	if q.PageSize <= 0 {
		q.PageSize = _defaultPageSize
	}
	if q.PageSize > _maxPageSize {
		q.PageSize = _maxPageSize
	}
	if q.PageNo <= 0 {
		q.PageNo = 1
	}
	return u.tasks.List(ctx, &q)
}

func (u *taskUsecase) GetTaskDetail(ctx context.Context, actor entity.Actor, taskID string) (*entity.TaskDetail, error) {
	task, err := u.tasks.GetByID(ctx, actor.UserID, taskID)
	if err != nil {
		return nil, err
	}
	stories, err := u.stories.ListByTask(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	cards, err := u.cards.ListByTask(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	attempts, err := u.attempts.ListByTask(ctx, actor.UserID, task.ID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return &entity.TaskDetail{Task: task, Stories: stories, Cards: cards, Attempts: attempts}, nil
}

// CompleteTask moves a ready task to completed once every group is passed.
func (u *taskUsecase) CompleteTask(ctx context.Context, actor entity.Actor, taskID string) (*entity.Task, error) {
	task, err := u.tasks.GetByID(ctx, actor.UserID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status == entity.TaskStatusCompleted {
		return task, nil
	}
	if !task.Status.CanTransition(entity.TaskStatusCompleted) {
		return nil, entity.ErrInvalidTaskStatus
	}
	cards, err := u.cards.ListByTask(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	attempts, err := u.attempts.ListByTask(ctx, actor.UserID, task.ID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	if !AggregateTaskProgress(task, cards, attempts).AllPassed {
		return nil, errors.Join(entity.ErrInvalidTaskStatus, errors.New("not every group is passed"))
	}
	if err := u.tasks.UpdateStatus(ctx, task.ID, entity.TaskStatusCompleted); err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}
	task.Status = entity.TaskStatusCompleted
	task.UpdatedAt = u.clock().UTC()
	return task, nil
}
