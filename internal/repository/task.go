package repository

import (
	"context"

	"github.com/eslsoft/storyquest/internal/entity"
)

// ListTaskQuery holds parameters for listing a user's tasks.
type ListTaskQuery struct {
	Pagination
	FilterOrder

	UserID string
}

// TaskRepository persists tasks. Lookups are always scoped to the owner so a
// missing task and a foreign task are indistinguishable.
type TaskRepository interface {
	Create(ctx context.Context, task *entity.Task) (*entity.Task, error)
	GetByID(ctx context.Context, userID, id string) (*entity.Task, error)
	List(ctx context.Context, query *ListTaskQuery) ([]entity.Task, int64, error)
	UpdateStatus(ctx context.Context, id string, status entity.TaskStatus) error
	UpdateRecognizedWords(ctx context.Context, id string, words []entity.RecognizedWord, imageURLs []string) error
	UpdateWords(ctx context.Context, id string, confirmed []entity.ConfirmedWord, groups []entity.WordGroup, status entity.TaskStatus) error
	UpdateGroups(ctx context.Context, id string, groups []entity.WordGroup) error
	CompleteGeneration(ctx context.Context, id string, creditsUsed int) error
}
