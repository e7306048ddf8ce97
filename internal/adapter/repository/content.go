package repository

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/entity"
	"github.com/eslsoft/storyquest/internal/repository"
)

const (
	storiesTable  = "stories"
	cardsTable    = "challenge_cards"
	attemptsTable = "challenge_attempts"
)

var (
	storyColumns = []string{
		"id", "task_id", "group_index", "words", "content", "content_zh", "highlighted_words", "created_at",
	}
	cardColumns = []string{
		"id", "story_id", "task_id", "group_index", "card_index",
		"card_type", "sub_type", "target_word", "content", "created_at",
	}
	attemptColumns = []string{
		"id", "card_id", "task_id", "user_id", "passed", "score", "response", "attempt_number", "created_at",
	}
)

type StoryRepository struct{ store }

// NewStoryRepository constructs a story repository.
func NewStoryRepository(drv *entsql.Driver, logger logrus.FieldLogger) repository.StoryRepository {
	return &StoryRepository{store: newStore(drv, logger)}
}

func (r *StoryRepository) Create(ctx context.Context, story *entity.Story) (*entity.Story, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	words, err := marshalJSON(story.Words)
	if err != nil {
		return nil, err
	}
	highlighted, err := marshalJSON(story.HighlightedWords)
	if err != nil {
		return nil, err
	}
	insert := r.builder().Insert(storiesTable).
		Columns(storyColumns...).
		Values(story.ID, story.TaskID, story.GroupIndex, words, story.Content, story.ContentZh, highlighted, story.CreatedAt.UTC())
	if _, err := r.exec(ctx, r.db, insert); err != nil {
		return nil, fmt.Errorf("create story: %w", translateError(err))
	}
	out := *story
	return &out, nil
}

func (r *StoryRepository) ListByTask(ctx context.Context, taskID string) ([]entity.Story, error) {
	sel := r.builder().Select(storyColumns...).
		From(entsql.Table(storiesTable)).
		Where(entsql.EQ("task_id", taskID)).
		OrderBy("group_index", "created_at")
	rows, err := r.query(ctx, r.db, sel)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer rows.Close()

	var stories []entity.Story
	for rows.Next() {
		var (
			story              entity.Story
			words, highlighted []byte
		)
		if err := rows.Scan(&story.ID, &story.TaskID, &story.GroupIndex, &words, &story.Content, &story.ContentZh, &highlighted, &story.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		if err := unmarshalJSON(words, &story.Words); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(highlighted, &story.HighlightedWords); err != nil {
			return nil, err
		}
		stories = append(stories, story)
	}
	return stories, rows.Err()
}

type CardRepository struct{ store }

// NewCardRepository constructs a challenge card repository.
func NewCardRepository(drv *entsql.Driver, logger logrus.FieldLogger) repository.CardRepository {
	return &CardRepository{store: newStore(drv, logger)}
}

func (r *CardRepository) Create(ctx context.Context, card *entity.ChallengeCard) (*entity.ChallengeCard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := marshalJSON(card.Content)
	if err != nil {
		return nil, err
	}
	insert := r.builder().Insert(cardsTable).
		Columns(cardColumns...).
		Values(
			card.ID, card.StoryID, card.TaskID, card.GroupIndex, card.CardIndex,
			string(card.CardType), string(card.SubType), card.TargetWord, content, card.CreatedAt.UTC(),
		)
	if _, err := r.exec(ctx, r.db, insert); err != nil {
		return nil, fmt.Errorf("create card: %w", translateError(err))
	}
	out := *card
	return &out, nil
}

func (r *CardRepository) GetByID(ctx context.Context, taskID, id string) (*entity.ChallengeCard, error) {
	cards, err := r.list(ctx, entsql.And(entsql.EQ("task_id", taskID), entsql.EQ("id", id)))
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, entity.ErrCardNotFound
	}
	return &cards[0], nil
}

func (r *CardRepository) ListByTask(ctx context.Context, taskID string) ([]entity.ChallengeCard, error) {
	return r.list(ctx, entsql.EQ("task_id", taskID))
}

func (r *CardRepository) ListByGroup(ctx context.Context, taskID string, groupIndex int) ([]entity.ChallengeCard, error) {
	return r.list(ctx, entsql.And(entsql.EQ("task_id", taskID), entsql.EQ("group_index", groupIndex)))
}

func (r *CardRepository) list(ctx context.Context, where *entsql.Predicate) ([]entity.ChallengeCard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel := r.builder().Select(cardColumns...).
		From(entsql.Table(cardsTable)).
		Where(where).
		OrderBy("group_index", "card_index")
	rows, err := r.query(ctx, r.db, sel)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []entity.ChallengeCard
	for rows.Next() {
		var (
			card              entity.ChallengeCard
			cardType, subType string
			content           []byte
		)
		if err := rows.Scan(
			&card.ID, &card.StoryID, &card.TaskID, &card.GroupIndex, &card.CardIndex,
			&cardType, &subType, &card.TargetWord, &content, &card.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		card.CardType = entity.CardType(cardType)
		card.SubType = entity.SubType(subType)
		if err := unmarshalJSON(content, &card.Content); err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

type AttemptRepository struct{ store }

// NewAttemptRepository constructs an append-only attempt repository.
func NewAttemptRepository(drv *entsql.Driver, logger logrus.FieldLogger) repository.AttemptRepository {
	return &AttemptRepository{store: newStore(drv, logger)}
}

func (r *AttemptRepository) Create(ctx context.Context, attempt *entity.ChallengeAttempt) (*entity.ChallengeAttempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp := attempt.Response
	resp.AudioBase64 = ""
	response, err := marshalJSON(resp)
	if err != nil {
		return nil, err
	}
	insert := r.builder().Insert(attemptsTable).
		Columns(attemptColumns...).
		Values(
			attempt.ID, attempt.CardID, attempt.TaskID, attempt.UserID, attempt.Passed,
			attempt.Score, response, attempt.AttemptNumber, attempt.CreatedAt.UTC(),
		)
	if _, err := r.exec(ctx, r.db, insert); err != nil {
		return nil, fmt.Errorf("create attempt: %w", translateError(err))
	}
	out := *attempt
	out.Response = resp
	return &out, nil
}

func (r *AttemptRepository) ListByCard(ctx context.Context, userID, cardID string) ([]entity.ChallengeAttempt, error) {
	return r.list(ctx, entsql.And(entsql.EQ("user_id", userID), entsql.EQ("card_id", cardID)))
}

func (r *AttemptRepository) ListByTask(ctx context.Context, userID, taskID string) ([]entity.ChallengeAttempt, error) {
	return r.list(ctx, entsql.And(entsql.EQ("user_id", userID), entsql.EQ("task_id", taskID)))
}

func (r *AttemptRepository) list(ctx context.Context, where *entsql.Predicate) ([]entity.ChallengeAttempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel := r.builder().Select(attemptColumns...).
		From(entsql.Table(attemptsTable)).
		Where(where).
		OrderBy("created_at", "attempt_number")
	rows, err := r.query(ctx, r.db, sel)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []entity.ChallengeAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func scanAttempt(row rowScanner) (entity.ChallengeAttempt, error) {
	var (
		a        entity.ChallengeAttempt
		response []byte
	)
	if err := row.Scan(&a.ID, &a.CardID, &a.TaskID, &a.UserID, &a.Passed, &a.Score, &response, &a.AttemptNumber, &a.CreatedAt); err != nil {
		return a, fmt.Errorf("scan attempt: %w", err)
	}
	if err := unmarshalJSON(response, &a.Response); err != nil {
		return a, err
	}
	return a, nil
}
