package repository

import (
	"context"

	"github.com/eslsoft/storyquest/internal/entity"
)

// StoryRepository persists generated stories.
type StoryRepository interface {
	Create(ctx context.Context, story *entity.Story) (*entity.Story, error)
	ListByTask(ctx context.Context, taskID string) ([]entity.Story, error)
}

// CardRepository persists challenge cards.
type CardRepository interface {
	Create(ctx context.Context, card *entity.ChallengeCard) (*entity.ChallengeCard, error)
	GetByID(ctx context.Context, taskID, id string) (*entity.ChallengeCard, error)
	ListByTask(ctx context.Context, taskID string) ([]entity.ChallengeCard, error)
	ListByGroup(ctx context.Context, taskID string, groupIndex int) ([]entity.ChallengeCard, error)
}

// AttemptRepository appends and reads challenge attempts. Attempts are never updated.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *entity.ChallengeAttempt) (*entity.ChallengeAttempt, error)
	ListByCard(ctx context.Context, userID, cardID string) ([]entity.ChallengeAttempt, error)
	ListByTask(ctx context.Context, userID, taskID string) ([]entity.ChallengeAttempt, error)
}
