package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/entity"
	"github.com/eslsoft/storyquest/internal/repository"
	"github.com/eslsoft/storyquest/pkg/filterexpr"
)

const tasksTable = "tasks"

var taskColumns = []string{
	"id", "user_id", "title", "grade", "status",
	"image_urls", "recognized_words", "confirmed_words", "word_groups",
	"credits_used", "created_at", "updated_at",
}

type TaskRepository struct {
	store
	clock func() time.Time
}

// NewTaskRepository constructs a task repository on top of an ent SQL driver.
func NewTaskRepository(drv *entsql.Driver, logger logrus.FieldLogger) repository.TaskRepository {
	return &TaskRepository{store: newStore(drv, logger), clock: time.Now}
}

func (r *TaskRepository) Create(ctx context.Context, task *entity.Task) (*entity.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	imageURLs, err := marshalJSON(lo.Ternary(task.ImageURLs == nil, []string{}, task.ImageURLs))
	if err != nil {
		return nil, err
	}
	recognized, err := marshalJSON(lo.Ternary(task.RecognizedWords == nil, []entity.RecognizedWord{}, task.RecognizedWords))
	if err != nil {
		return nil, err
	}
	confirmed, err := marshalJSON(lo.Ternary(task.ConfirmedWords == nil, []entity.ConfirmedWord{}, task.ConfirmedWords))
	if err != nil {
		return nil, err
	}
	groups, err := marshalJSON(lo.Ternary(task.WordGroups == nil, []entity.WordGroup{}, task.WordGroups))
	if err != nil {
		return nil, err
	}

	insert := r.builder().Insert(tasksTable).
		Columns(taskColumns...).
		Values(
			task.ID, task.UserID, task.Title, string(task.Grade), string(task.Status),
			imageURLs, recognized, confirmed, groups,
			task.CreditsUsed, task.CreatedAt.UTC(), task.UpdatedAt.UTC(),
		)
	if _, err := r.exec(ctx, r.db, insert); err != nil {
		return nil, fmt.Errorf("create task: %w", translateError(err))
	}
	return r.GetByID(ctx, task.UserID, task.ID)
}

func (r *TaskRepository) GetByID(ctx context.Context, userID, id string) (*entity.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel := r.builder().Select(taskColumns...).
		From(entsql.Table(tasksTable)).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("user_id", userID)))
	task, err := scanTask(r.queryRow(ctx, r.db, sel))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (r *TaskRepository) List(ctx context.Context, query *repository.ListTaskQuery) ([]entity.Task, int64, error) {
	q, err := filterexpr.Parse(query, listTasksSchema)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", entity.ErrInvalidFilter, err)
	}

	var total int64
	count := r.builder().Select(entsql.Count("*")).
		From(entsql.Table(tasksTable)).
		Where(taskListPredicate(query.UserID, q.Conditions))
	if err := r.queryRow(ctx, r.db, count).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	sel := r.builder().Select(taskColumns...).
		From(entsql.Table(tasksTable)).
		Where(taskListPredicate(query.UserID, q.Conditions))
	applyOrdering(sel, listTasksSchema.Order, q.Order)
	if query.PageSize > 0 {
		sel.Limit(int(query.PageSize))
	}
	if offset := query.Offset(); offset > 0 {
		sel.Offset(int(offset))
	}

	rows, err := r.query(ctx, r.db, sel)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []entity.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, total, nil
}

func taskListPredicate(userID string, conds []filterexpr.Condition) *entsql.Predicate {
	preds := []*entsql.Predicate{entsql.EQ("user_id", userID)}
	for _, c := range conds {
		preds = append(preds, conditionPredicate(c))
	}
	return entsql.And(preds...)
}

func (r *TaskRepository) update(ctx context.Context, id string, set func(u *entsql.UpdateBuilder)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	upd := r.builder().Update(tasksTable).
		Set("updated_at", r.clock().UTC()).
		Where(entsql.EQ("id", id))
	set(upd)
	ok, err := r.affected(ctx, r.db, upd)
	if err != nil {
		return fmt.Errorf("update task: %w", translateError(err))
	}
	if !ok {
		return entity.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) UpdateStatus(ctx context.Context, id string, status entity.TaskStatus) error {
	return r.update(ctx, id, func(u *entsql.UpdateBuilder) {
		u.Set("status", string(status))
	})
}

func (r *TaskRepository) UpdateRecognizedWords(ctx context.Context, id string, words []entity.RecognizedWord, imageURLs []string) error {
	recognized, err := marshalJSON(lo.Ternary(words == nil, []entity.RecognizedWord{}, words))
	if err != nil {
		return err
	}
	images, err := marshalJSON(lo.Ternary(imageURLs == nil, []string{}, imageURLs))
	if err != nil {
		return err
	}
	return r.update(ctx, id, func(u *entsql.UpdateBuilder) {
		u.Set("recognized_words", recognized).Set("image_urls", images)
	})
}

func (r *TaskRepository) UpdateWords(ctx context.Context, id string, confirmed []entity.ConfirmedWord, groups []entity.WordGroup, status entity.TaskStatus) error {
	words, err := marshalJSON(lo.Ternary(confirmed == nil, []entity.ConfirmedWord{}, confirmed))
	if err != nil {
		return err
	}
	grouped, err := marshalJSON(lo.Ternary(groups == nil, []entity.WordGroup{}, groups))
	if err != nil {
		return err
	}
	return r.update(ctx, id, func(u *entsql.UpdateBuilder) {
		u.Set("confirmed_words", words).Set("word_groups", grouped).Set("status", string(status))
	})
}

func (r *TaskRepository) UpdateGroups(ctx context.Context, id string, groups []entity.WordGroup) error {
	grouped, err := marshalJSON(lo.Ternary(groups == nil, []entity.WordGroup{}, groups))
	if err != nil {
		return err
	}
	return r.update(ctx, id, func(u *entsql.UpdateBuilder) {
		u.Set("word_groups", grouped)
	})
}

func (r *TaskRepository) CompleteGeneration(ctx context.Context, id string, creditsUsed int) error {
	return r.update(ctx, id, func(u *entsql.UpdateBuilder) {
		u.Set("status", string(entity.TaskStatusReady)).Set("credits_used", creditsUsed)
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*entity.Task, error) {
	var (
		task                                  entity.Task
		grade, status                         string
		images, recognized, confirmed, groups []byte
	)
	if err := row.Scan(
		&task.ID, &task.UserID, &task.Title, &grade, &status,
		&images, &recognized, &confirmed, &groups,
		&task.CreditsUsed, &task.CreatedAt, &task.UpdatedAt,
	); err != nil {
		return nil, err
	}
	task.Grade = entity.Grade(grade)
	task.Status = entity.TaskStatus(status)
	if err := unmarshalJSON(images, &task.ImageURLs); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(recognized, &task.RecognizedWords); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(confirmed, &task.ConfirmedWords); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(groups, &task.WordGroups); err != nil {
		return nil, err
	}
	return &task, nil
}
