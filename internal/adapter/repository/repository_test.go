package repository

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/entity"
	"github.com/eslsoft/storyquest/internal/infrastructure/database"
	"github.com/eslsoft/storyquest/internal/repository"
)

func requireSQLite(t *testing.T) {
	t.Helper()
	db, err := sql.Open("sqlite3", "file::memory:?cache=shared")
	if err != nil {
		t.Skipf("sqlite driver not available: %v", err)
		return
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		t.Skipf("skipping sqlite-dependent tests: %v", err)
	}
}

func openTestDriver(t *testing.T) *entsql.Driver {
	t.Helper()
	requireSQLite(t)

	dsn := "file:" + filepath.Join(t.TempDir(), "storyquest.db") + "?_fk=1"
	drv, cleanup, err := database.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(cleanup)
	if err := database.Migrate(context.Background(), drv); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return drv
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func seedTask(t *testing.T, repo repository.TaskRepository, id, userID, title string, status entity.TaskStatus, createdAt time.Time) *entity.Task {
	t.Helper()
	task, err := repo.Create(context.Background(), &entity.Task{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Grade:     entity.Grade3,
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	})
	if err != nil {
		t.Fatalf("create task %s: %v", id, err)
	}
	return task
}

func TestTaskRepositoryLifecycle(t *testing.T) {
	drv := openTestDriver(t)
	repo := NewTaskRepository(drv, quietLogger())
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	created := seedTask(t, repo, "t1", "u1", "Zoo animals", entity.TaskStatusUploaded, base)
	if created.Status != entity.TaskStatusUploaded || !created.CreatedAt.Equal(base) {
		t.Fatalf("unexpected created task %+v", created)
	}
	if created.WordGroups == nil || len(created.WordGroups) != 0 {
		t.Fatalf("empty groups should round-trip as an empty slice, got %#v", created.WordGroups)
	}

	if _, err := repo.GetByID(ctx, "u2", "t1"); !errors.Is(err, entity.ErrTaskNotFound) {
		t.Fatalf("foreign lookup should look missing, got %v", err)
	}
	if _, err := repo.Create(ctx, &entity.Task{ID: "t1", UserID: "u1", Title: "dup", Grade: entity.Grade1, Status: entity.TaskStatusUploaded}); !errors.Is(err, entity.ErrDuplicateRecord) {
		t.Fatalf("expected ErrDuplicateRecord, got %v", err)
	}

	recognized := []entity.RecognizedWord{{Word: "lion", Meaning: "狮子", PartOfSpeech: "noun"}}
	if err := repo.UpdateRecognizedWords(ctx, "t1", recognized, []string{"https://img/1.png"}); err != nil {
		t.Fatalf("UpdateRecognizedWords: %v", err)
	}
	confirmed := []entity.ConfirmedWord{{Word: "lion", Meaning: "狮子", PartOfSpeech: entity.PartOfSpeechNoun}}
	groups := []entity.WordGroup{{GroupIndex: 0, Words: confirmed}}
	if err := repo.UpdateWords(ctx, "t1", confirmed, groups, entity.TaskStatusConfirmed); err != nil {
		t.Fatalf("UpdateWords: %v", err)
	}
	if err := repo.CompleteGeneration(ctx, "t1", 8); err != nil {
		t.Fatalf("CompleteGeneration: %v", err)
	}

	got, err := repo.GetByID(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != entity.TaskStatusReady || got.CreditsUsed != 8 {
		t.Fatalf("unexpected status/credits %s/%d", got.Status, got.CreditsUsed)
	}
	if len(got.ImageURLs) != 1 || got.RecognizedWords[0].Meaning != "狮子" {
		t.Fatalf("recognition payload lost: %+v", got)
	}
	if len(got.WordGroups) != 1 || got.WordGroups[0].Words[0].PartOfSpeech != entity.PartOfSpeechNoun {
		t.Fatalf("groups lost: %+v", got.WordGroups)
	}

	if err := repo.UpdateStatus(ctx, "missing", entity.TaskStatusReady); !errors.Is(err, entity.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestTaskRepositoryListFiltersAndOrders(t *testing.T) {
	drv := openTestDriver(t)
	repo := NewTaskRepository(drv, quietLogger())
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	seedTask(t, repo, "a", "u1", "Apples", entity.TaskStatusReady, base)
	seedTask(t, repo, "b", "u1", "Bananas", entity.TaskStatusUploaded, base.Add(time.Hour))
	seedTask(t, repo, "c", "u1", "Apricots", entity.TaskStatusReady, base.Add(2*time.Hour))
	seedTask(t, repo, "d", "u2", "Apples too", entity.TaskStatusReady, base.Add(3*time.Hour))

	list := func(filter, orderBy string, pageNo, pageSize int32) ([]string, int64) {
		t.Helper()
		tasks, total, err := repo.List(ctx, &repository.ListTaskQuery{
			Pagination:  repository.Pagination{PageNo: pageNo, PageSize: pageSize},
			FilterOrder: repository.FilterOrder{Filter: filter, OrderBy: orderBy},
			UserID:      "u1",
		})
		if err != nil {
			t.Fatalf("List(%q, %q): %v", filter, orderBy, err)
		}
		ids := make([]string, len(tasks))
		for i, task := range tasks {
			ids[i] = task.ID
		}
		return ids, total
	}

	ids, total := list("", "", 1, 2)
	if total != 3 || len(ids) != 2 || ids[0] != "c" || ids[1] != "b" {
		t.Fatalf("default order should be newest first: %v (total %d)", ids, total)
	}
	ids, _ = list("", "", 2, 2)
	if len(ids) != 1 || ids[0] != "a" {
		t.Fatalf("second page mismatch: %v", ids)
	}

	ids, total = list("status == 'ready' && title.startsWith('Ap')", "title asc", 1, 10)
	if total != 2 || len(ids) != 2 || ids[0] != "a" || ids[1] != "c" {
		t.Fatalf("filtered list mismatch: %v (total %d)", ids, total)
	}

	ids, _ = list("created_at >= timestamp('2025-03-01T09:00:00Z')", "created_at asc", 1, 10)
	if len(ids) != 2 || ids[0] != "b" {
		t.Fatalf("time filter mismatch: %v", ids)
	}

	_, _, err := repo.List(ctx, &repository.ListTaskQuery{
		FilterOrder: repository.FilterOrder{Filter: "status == 'archived'"},
		UserID:      "u1",
	})
	if !errors.Is(err, entity.ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
}

func TestContentRepositories(t *testing.T) {
	drv := openTestDriver(t)
	ctx := context.Background()
	logger := quietLogger()
	tasks := NewTaskRepository(drv, logger)
	stories := NewStoryRepository(drv, logger)
	cards := NewCardRepository(drv, logger)
	attempts := NewAttemptRepository(drv, logger)
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	seedTask(t, tasks, "t1", "u1", "Zoo", entity.TaskStatusGenerating, now)
	if _, err := stories.Create(ctx, &entity.Story{
		ID: "s1", TaskID: "t1", GroupIndex: 0, Words: []string{"lion"},
		Content: "The lion sleeps.", HighlightedWords: map[string][]int{"lion": {4}}, CreatedAt: now,
	}); err != nil {
		t.Fatalf("create story: %v", err)
	}

	correct := 1
	for i, c := range []entity.ChallengeCard{
		{ID: "c2", CardIndex: 1, CardType: entity.CardTypeChoice, SubType: entity.SubTypeImageChoice, TargetWord: "lion",
			Content: entity.CardContent{Question: "Which one?", CorrectOptionIndex: &correct}},
		{ID: "c1", CardIndex: 0, CardType: entity.CardTypeReading, SubType: entity.SubTypeFollowReading, TargetWord: "sleep",
			Content: entity.CardContent{ReadingText: "The lion sleeps."}},
	} {
		c.StoryID, c.TaskID, c.CreatedAt = "s1", "t1", now.Add(time.Duration(i)*time.Second)
		if _, err := cards.Create(ctx, &c); err != nil {
			t.Fatalf("create card %s: %v", c.ID, err)
		}
	}

	listed, err := cards.ListByGroup(ctx, "t1", 0)
	if err != nil {
		t.Fatalf("ListByGroup: %v", err)
	}
	if len(listed) != 2 || listed[0].ID != "c1" || listed[1].Content.CorrectOptionIndex == nil || *listed[1].Content.CorrectOptionIndex != 1 {
		t.Fatalf("cards should be ordered by card index: %+v", listed)
	}
	if _, err := cards.GetByID(ctx, "other", "c1"); !errors.Is(err, entity.ErrCardNotFound) {
		t.Fatalf("card from another task should be missing, got %v", err)
	}

	match := 0.9
	stored, err := attempts.Create(ctx, &entity.ChallengeAttempt{
		ID: "a1", CardID: "c1", TaskID: "t1", UserID: "u1", Passed: true, Score: 90, AttemptNumber: 1, CreatedAt: now,
		Response: entity.ChallengeResponse{Type: entity.CardTypeReading, MatchPercentage: &match, AudioBase64: "UklGRg=="},
	})
	if err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	if stored.Response.AudioBase64 != "" {
		t.Fatalf("audio must not be persisted")
	}
	byCard, err := attempts.ListByCard(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("ListByCard: %v", err)
	}
	if len(byCard) != 1 || !byCard[0].Passed || byCard[0].Response.MatchPercentage == nil || *byCard[0].Response.MatchPercentage != 0.9 {
		t.Fatalf("unexpected attempts %+v", byCard)
	}
	if other, _ := attempts.ListByTask(ctx, "u2", "t1"); len(other) != 0 {
		t.Fatalf("attempts must be scoped to the user, got %d", len(other))
	}

	storyList, err := stories.ListByTask(ctx, "t1")
	if err != nil {
		t.Fatalf("ListByTask: %v", err)
	}
	if len(storyList) != 1 || storyList[0].HighlightedWords["lion"][0] != 4 {
		t.Fatalf("unexpected stories %+v", storyList)
	}
}

func TestCreditLedger(t *testing.T) {
	drv := openTestDriver(t)
	ctx := context.Background()
	repo := NewCreditRepository(drv, quietLogger())

	if err := repo.Grant(ctx, "u1", 10, "welcome"); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if err := repo.ConsumeCredits(ctx, "u1", 8, "story generation (group 1)"); err != nil {
		t.Fatalf("ConsumeCredits: %v", err)
	}
	if err := repo.ConsumeCredits(ctx, "u1", 5, "story generation (group 2)"); !errors.Is(err, entity.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if balance, _ := repo.Balance(ctx, "u1"); balance != 2 {
		t.Fatalf("expected balance 2, got %d", balance)
	}
	if ok, _ := repo.HasEnoughCredits(ctx, "u1", 3); ok {
		t.Fatalf("3 credits should not be affordable")
	}
	if balance, err := repo.Balance(ctx, "nobody"); err != nil || balance != 0 {
		t.Fatalf("unknown users have no credits, got %d, %v", balance, err)
	}

	var entries int
	if err := drv.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM credit_transactions WHERE user_id = ?", "u1").Scan(&entries); err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if entries != 2 {
		t.Fatalf("failed debit must not be recorded, got %d entries", entries)
	}

	if err := repo.EnsureGuest(ctx, "guest_abc"); err != nil {
		t.Fatalf("EnsureGuest: %v", err)
	}
	if err := repo.EnsureGuest(ctx, "guest_abc"); err != nil {
		t.Fatalf("EnsureGuest should be idempotent: %v", err)
	}
	if ok, _ := repo.Exists(ctx, "guest_abc"); !ok {
		t.Fatalf("guest row should exist")
	}
	if err := repo.Grant(ctx, "u2", 1, "welcome"); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	ids, err := repo.ListRegisteredIDs(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListRegisteredIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "u1" || ids[1] != "u2" {
		t.Fatalf("guests must be excluded: %v", ids)
	}
	if ids, _ := repo.ListRegisteredIDs(ctx, "u1", 10); len(ids) != 1 || ids[0] != "u2" {
		t.Fatalf("cursor should skip past u1: %v", ids)
	}

	granter := NewLedgerCreditGranter(repo, quietLogger())
	res, err := granter.GrantMany(ctx, []string{"u1", "u2"}, 50, "scheduled distribution: 50 credits")
	if err != nil || res.Processed != 2 || res.Failed != 0 {
		t.Fatalf("unexpected grant result %+v, %v", res, err)
	}
	if balance, _ := repo.Balance(ctx, "u1"); balance != 52 {
		t.Fatalf("expected 52 after distribution, got %d", balance)
	}
}
