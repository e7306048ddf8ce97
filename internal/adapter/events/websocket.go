package events

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/adapter/actor"
	"github.com/eslsoft/storyquest/internal/entity"
	"github.com/eslsoft/storyquest/internal/infrastructure/config"
	"github.com/eslsoft/storyquest/internal/infrastructure/metrics"
	"github.com/eslsoft/storyquest/internal/usecase"
)

const (
	_writeWait  = 10 * time.Second
	_pongWait   = 60 * time.Second
	_pingPeriod = 30 * time.Second
)

type taskReader interface {
	GetTaskDetail(ctx context.Context, actor entity.Actor, taskID string) (*entity.TaskDetail, error)
}

// WebSocketHandler streams one task's status events to its owner.
type WebSocketHandler struct {
	hub      *Hub
	tasks    taskReader
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
}

func NewWebSocketHandler(cfg *config.Config, hub *Hub, tasks usecase.TaskUsecase, logger logrus.FieldLogger) *WebSocketHandler {
	return newWebSocketHandler(cfg.Server.CORSOrigins, hub, tasks, logger)
}

func newWebSocketHandler(origins []string, hub *Hub, tasks taskReader, logger logrus.FieldLogger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:   hub,
		tasks: tasks,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(origins),
		},
		log: logger.WithField("component", "task_events_ws"),
	}
}

// originChecker accepts requests without an Origin header, same-host
// origins, and origins matching the CORS allow-list. A list entry may hold
// one "*" wildcard; "*" alone allows any origin.
func originChecker(allowed []string) func(*http.Request) bool {
	patterns := make([]string, 0, len(allowed))
	for _, o := range allowed {
		if o = strings.ToLower(strings.TrimSpace(o)); o != "" {
			patterns = append(patterns, o)
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}
		origin = strings.ToLower(origin)
		for _, p := range patterns {
			if originMatches(p, origin) {
				return true
			}
		}
		return false
	}
}

func originMatches(pattern, origin string) bool {
	prefix, suffix, wildcard := strings.Cut(pattern, "*")
	if !wildcard {
		return pattern == origin
	}
	return len(origin) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix)
}

// ServeHTTP expects the actor in the request context and the task id in the
// {task_id} path value.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a, ok := actor.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	taskID := r.PathValue("task_id")
	detail, err := h.tasks.GetTaskDetail(r.Context(), a, taskID)
	if err != nil {
		if errors.Is(err, entity.ErrTaskNotFound) {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		h.log.WithError(err).WithField("task_id", taskID).Error("load task for event stream")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	events, cancel := h.hub.Subscribe(a.UserID, taskID)
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()
	metrics.EventSubscribers.Inc()
	defer metrics.EventSubscribers.Dec()

	log := h.log.WithFields(logrus.Fields{"task_id": taskID, "user_id": a.UserID})
	log.Debug("event stream opened")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(_pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(_pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.WithError(err).Debug("event stream read")
				}
				return
			}
		}
	}()

	snapshot := usecase.TaskEvent{
		TaskID: detail.Task.ID,
		UserID: detail.Task.UserID,
		Status: detail.Task.Status,
		At:     detail.Task.UpdatedAt.UTC(),
	}
	if err := writeJSON(conn, snapshot); err != nil {
		return
	}

	ticker := time.NewTicker(_pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeJSON(conn, ev); err != nil {
				log.WithError(err).Debug("event stream write")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(_writeWait)); err != nil {
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(_writeWait))
	return conn.WriteJSON(v)
}
