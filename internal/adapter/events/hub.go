package events

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/usecase"
)

const _subscriberBuffer = 32

// Hub fans task events out to subscribers in this process.
type Hub struct {
	mu   sync.RWMutex
	subs map[uint64]*subscriber
	next uint64
	log  logrus.FieldLogger
}

type subscriber struct {
	userID string
	taskID string
	ch     chan usecase.TaskEvent
}

var _ usecase.TaskEventPublisher = (*Hub)(nil)

func NewHub(logger logrus.FieldLogger) *Hub {
	return &Hub{subs: make(map[uint64]*subscriber), log: logger.WithField("component", "event_hub")}
}

// PublishTaskEvent delivers locally. It never blocks on slow subscribers.
func (h *Hub) PublishTaskEvent(_ context.Context, event usecase.TaskEvent) error {
	h.Deliver(event)
	return nil
}

func (h *Hub) Deliver(event usecase.TaskEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if s.userID != event.UserID || (s.taskID != "" && s.taskID != event.TaskID) {
			continue
		}
		select {
		case s.ch <- event:
		default:
			h.log.WithFields(logrus.Fields{"task_id": event.TaskID, "user_id": event.UserID}).Warn("dropping task event for slow subscriber")
		}
	}
}

// Subscribe registers interest in one user's events, optionally narrowed to a
// task. The returned cancel closes the channel.
func (h *Hub) Subscribe(userID, taskID string) (<-chan usecase.TaskEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	s := &subscriber{userID: userID, taskID: taskID, ch: make(chan usecase.TaskEvent, _subscriberBuffer)}
	h.subs[id] = s

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(s.ch)
		})
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
