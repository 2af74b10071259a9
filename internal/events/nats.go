// Package events публикует доменные события в NATS
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"roleplay_bot/internal/logger"
)

// Envelope обертка каждого события
type Envelope struct {
	ID         string          `json:"id"`
	Subject    string          `json:"subject"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// conn то, что нужно от *nats.Conn
type conn interface {
	Publish(subj string, data []byte) error
}

type Publisher struct {
	nc  conn
	now func() time.Time
}

// Connect подключается к NATS с бесконечными переподключениями
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("roleplay_bot"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info("connected to nats", "url", nc.ConnectedUrl())
	return nc, nil
}

func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc, now: time.Now}
}

func Encode(subject string, data any, now time.Time) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		ID:         uuid.NewString(),
		Subject:    subject,
		OccurredAt: now.UTC(),
		Data:       raw,
	})
}

func (p *Publisher) Publish(ctx context.Context, subject string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := Encode(subject, data, p.now())
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	if err := p.nc.Publish(subject, msg); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
