package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eslsoft/storyquest/internal/entity"
	"github.com/eslsoft/storyquest/internal/repository"
)

type fakeTaskRepo struct {
	mu       sync.RWMutex
	items    map[string]*entity.Task
	statuses []entity.TaskStatus
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{items: make(map[string]*entity.Task)}
}

func cloneTask(t *entity.Task) *entity.Task {
	if t == nil {
		return nil
	}
	out := *t
	out.ImageURLs = append([]string(nil), t.ImageURLs...)
	out.RecognizedWords = append([]entity.RecognizedWord(nil), t.RecognizedWords...)
	out.ConfirmedWords = append([]entity.ConfirmedWord(nil), t.ConfirmedWords...)
	out.WordGroups = make([]entity.WordGroup, len(t.WordGroups))
	for i, g := range t.WordGroups {
		out.WordGroups[i] = entity.WordGroup{GroupIndex: g.GroupIndex, Words: append([]entity.ConfirmedWord(nil), g.Words...)}
	}
	return &out
}

func (r *fakeTaskRepo) put(t *entity.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[t.ID] = cloneTask(t)
}

func (r *fakeTaskRepo) get(id string) *entity.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneTask(r.items[id])
}

func (r *fakeTaskRepo) Create(ctx context.Context, task *entity.Task) (*entity.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[task.ID]; ok {
		return nil, entity.ErrDuplicateRecord
	}
	r.items[task.ID] = cloneTask(task)
	return cloneTask(task), nil
}

func (r *fakeTaskRepo) GetByID(ctx context.Context, userID, id string) (*entity.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok || item.UserID != userID {
		return nil, entity.ErrTaskNotFound
	}
	return cloneTask(item), nil
}

func (r *fakeTaskRepo) List(ctx context.Context, query *repository.ListTaskQuery) ([]entity.Task, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []entity.Task
	for _, item := range r.items {
		if item.UserID == query.UserID {
			matched = append(matched, *cloneTask(item))
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := int64(len(matched))
	start := int(query.Offset())
	if start > len(matched) {
		start = len(matched)
	}
	end := start + int(query.PageSize)
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *fakeTaskRepo) update(id string, fn func(t *entity.Task)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return entity.ErrTaskNotFound
	}
	fn(item)
	return nil
}

func (r *fakeTaskRepo) UpdateStatus(ctx context.Context, id string, status entity.TaskStatus) error {
	return r.update(id, func(t *entity.Task) {
		t.Status = status
		r.statuses = append(r.statuses, status)
	})
}

func (r *fakeTaskRepo) UpdateRecognizedWords(ctx context.Context, id string, words []entity.RecognizedWord, imageURLs []string) error {
	return r.update(id, func(t *entity.Task) {
		t.RecognizedWords = append([]entity.RecognizedWord(nil), words...)
		t.ImageURLs = append([]string(nil), imageURLs...)
	})
}

func (r *fakeTaskRepo) UpdateWords(ctx context.Context, id string, confirmed []entity.ConfirmedWord, groups []entity.WordGroup, status entity.TaskStatus) error {
	return r.update(id, func(t *entity.Task) {
		t.ConfirmedWords = append([]entity.ConfirmedWord(nil), confirmed...)
		t.WordGroups = cloneTask(&entity.Task{WordGroups: groups}).WordGroups
		t.Status = status
		r.statuses = append(r.statuses, status)
	})
}

func (r *fakeTaskRepo) UpdateGroups(ctx context.Context, id string, groups []entity.WordGroup) error {
	return r.update(id, func(t *entity.Task) {
		t.WordGroups = cloneTask(&entity.Task{WordGroups: groups}).WordGroups
	})
}

func (r *fakeTaskRepo) CompleteGeneration(ctx context.Context, id string, creditsUsed int) error {
	return r.update(id, func(t *entity.Task) {
		t.Status = entity.TaskStatusReady
		t.CreditsUsed = creditsUsed
		r.statuses = append(r.statuses, entity.TaskStatusReady)
	})
}

type fakeStoryRepo struct {
	mu    sync.RWMutex
	items []entity.Story
}

func (r *fakeStoryRepo) Create(ctx context.Context, story *entity.Story) (*entity.Story, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, *story)
	out := *story
	return &out, nil
}

func (r *fakeStoryRepo) ListByTask(ctx context.Context, taskID string) ([]entity.Story, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.Story
	for _, s := range r.items {
		if s.TaskID == taskID {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeCardRepo struct {
	mu    sync.RWMutex
	items []entity.ChallengeCard
}

func (r *fakeCardRepo) Create(ctx context.Context, card *entity.ChallengeCard) (*entity.ChallengeCard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, *card)
	out := *card
	return &out, nil
}

func (r *fakeCardRepo) GetByID(ctx context.Context, taskID, id string) (*entity.ChallengeCard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.items {
		if c.ID == id && c.TaskID == taskID {
			out := c
			return &out, nil
		}
	}
	return nil, entity.ErrCardNotFound
}

func (r *fakeCardRepo) ListByTask(ctx context.Context, taskID string) ([]entity.ChallengeCard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.ChallengeCard
	for _, c := range r.items {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCardRepo) ListByGroup(ctx context.Context, taskID string, groupIndex int) ([]entity.ChallengeCard, error) {
	all, _ := r.ListByTask(ctx, taskID)
	var out []entity.ChallengeCard
	for _, c := range all {
		if c.GroupIndex == groupIndex {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeAttemptRepo struct {
	mu    sync.RWMutex
	items []entity.ChallengeAttempt
}

func (r *fakeAttemptRepo) Create(ctx context.Context, attempt *entity.ChallengeAttempt) (*entity.ChallengeAttempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, *attempt)
	out := *attempt
	return &out, nil
}

func (r *fakeAttemptRepo) ListByCard(ctx context.Context, userID, cardID string) ([]entity.ChallengeAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.ChallengeAttempt
	for _, a := range r.items {
		if a.UserID == userID && a.CardID == cardID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) ListByTask(ctx context.Context, userID, taskID string) ([]entity.ChallengeAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.ChallengeAttempt
	for _, a := range r.items {
		if a.UserID == userID && a.TaskID == taskID {
			out = append(out, a)
		}
	}
	return out, nil
}

type ledgerEntry struct {
	UserID      string
	Amount      int
	Description string
}

type fakeLedger struct {
	mu       sync.Mutex
	balances map[string]int
	consumed []ledgerEntry
	granted  []ledgerEntry
	checks   int
}

func newFakeLedger(balances map[string]int) *fakeLedger {
	if balances == nil {
		balances = make(map[string]int)
	}
	return &fakeLedger{balances: balances}
}

func (l *fakeLedger) Balance(ctx context.Context, userID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID], nil
}

func (l *fakeLedger) HasEnoughCredits(ctx context.Context, userID string, amount int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checks++
	return l.balances[userID] >= amount, nil
}

func (l *fakeLedger) ConsumeCredits(ctx context.Context, userID string, amount int, description string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[userID] < amount {
		return entity.ErrInsufficientCredits
	}
	l.balances[userID] -= amount
	l.consumed = append(l.consumed, ledgerEntry{UserID: userID, Amount: amount, Description: description})
	return nil
}

func (l *fakeLedger) Grant(ctx context.Context, userID string, amount int, description string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] += amount
	l.granted = append(l.granted, ledgerEntry{UserID: userID, Amount: amount, Description: description})
	return nil
}

func (l *fakeLedger) totalConsumed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, e := range l.consumed {
		total += e.Amount
	}
	return total
}

type fakeGuard struct {
	mu      sync.Mutex
	held    map[string]bool
	extends int

	// loseAfter makes Extend fail once it has succeeded that many times.
	loseAfter int
}

func newFakeGuard() *fakeGuard { return &fakeGuard{held: make(map[string]bool), loseAfter: -1} }

func (g *fakeGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[key] {
		return nil, entity.ErrGenerationInProgress
	}
	g.held[key] = true
	return &fakeLease{guard: g, key: key}, nil
}

func (g *fakeGuard) extendCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.extends
}

type fakeLease struct {
	guard *fakeGuard
	key   string
}

func (l *fakeLease) Extend(ctx context.Context, ttl time.Duration) error {
	g := l.guard
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.held[l.key] || (g.loseAfter >= 0 && g.extends >= g.loseAfter) {
		return ErrLeaseLost
	}
	g.extends++
	return nil
}

func (l *fakeLease) Release(context.Context) error {
	l.guard.mu.Lock()
	defer l.guard.mu.Unlock()
	delete(l.guard.held, l.key)
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []TaskEvent
}

func (e *fakeEvents) PublishTaskEvent(ctx context.Context, event TaskEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *fakeEvents) stages() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.Stage
	}
	return out
}

type fakeSpeech struct {
	score SpeechScore
	err   error
	reqs  []SpeechRequest
}

func (s *fakeSpeech) Evaluate(ctx context.Context, req SpeechRequest) (SpeechScore, error) {
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return SpeechScore{}, s.err
	}
	return s.score, nil
}
