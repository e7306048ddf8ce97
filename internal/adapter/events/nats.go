package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/infrastructure/config"
	"github.com/eslsoft/storyquest/internal/infrastructure/metrics"
	"github.com/eslsoft/storyquest/internal/usecase"
)

// NATSPublisher publishes task events on <prefix>.<task id> so every instance
// can relay them to its own websocket clients.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	log    logrus.FieldLogger
}

var _ usecase.TaskEventPublisher = (*NATSPublisher)(nil)

func NewNATSPublisher(cfg config.NATSConfig, logger logrus.FieldLogger) (*NATSPublisher, error) {
	log := logger.WithField("component", "nats")
	conn, err := nats.Connect(cfg.URL,
		nats.Name("storyquest"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			metrics.NATSConnectionStatus.Set(0)
			log.WithError(err).Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			metrics.NATSConnectionStatus.Set(1)
			log.WithField("url", nc.ConnectedUrl()).Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	metrics.NATSConnectionStatus.Set(1)
	prefix := strings.TrimSuffix(strings.TrimSpace(cfg.SubjectPrefix), ".")
	if prefix == "" {
		prefix = "storyquest.tasks"
	}
	return &NATSPublisher{conn: conn, prefix: prefix, log: log}, nil
}

func (p *NATSPublisher) subject(taskID string) string {
	return p.prefix + "." + taskID
}

func (p *NATSPublisher) PublishTaskEvent(_ context.Context, event usecase.TaskEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject(event.TaskID), data); err != nil {
		return fmt.Errorf("publish task event: %w", err)
	}
	return nil
}

// Forward relays every task event seen on the bus into hub until ctx is done.
func (p *NATSPublisher) Forward(ctx context.Context, hub *Hub) error {
	sub, err := p.conn.Subscribe(p.prefix+".>", func(msg *nats.Msg) {
		var event usecase.TaskEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			p.log.WithError(err).WithField("subject", msg.Subject).Warn("bad task event payload")
			return
		}
		hub.Deliver(event)
	})
	if err != nil {
		return fmt.Errorf("subscribe task events: %w", err)
	}
	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil && err != nats.ErrConnectionClosed {
		p.log.WithError(err).Warn("unsubscribe task events")
	}
	return nil
}

func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
