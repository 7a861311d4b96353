package delivery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avvvet/coffeebuddy/internal/core/errx"
	"github.com/avvvet/coffeebuddy/internal/models"
	logx "github.com/avvvet/coffeebuddy/pkg/logger"
	"github.com/nats-io/nats.go"
)

// Envelope is the JSON published for orders and audit entries. Text carries
// the human-readable rendering so a chat relay can forward it verbatim.
type Envelope struct {
	Kind   string      `json:"kind"`
	UserID string      `json:"user_id"`
	Text   string      `json:"text"`
	Data   interface{} `json:"data"`
}

const (
	KindOrder = "order"
	KindAudit = "audit"
)

// NATSPublisher publishes orders and audit entries on two subjects.
type NATSPublisher struct {
	conn         *nats.Conn
	orderSubject string
	auditSubject string
}

func NewNATSPublisher(conn *nats.Conn, orderSubject, auditSubject string) *NATSPublisher {
	return &NATSPublisher{
		conn:         conn,
		orderSubject: orderSubject,
		auditSubject: auditSubject,
	}
}

func (p *NATSPublisher) SubmitOrder(_ context.Context, order models.Order) error {
	return p.publish(p.orderSubject, Envelope{
		Kind:   KindOrder,
		UserID: order.UserID,
		Text:   order.Summary(),
		Data:   order,
	})
}

func (p *NATSPublisher) Record(_ context.Context, entry models.AuditEntry) error {
	return p.publish(p.auditSubject, Envelope{
		Kind:   KindAudit,
		UserID: entry.UserID,
		Text:   entry.Text(),
		Data:   entry,
	})
}

func (p *NATSPublisher) publish(subject string, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", env.Kind, err)
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return errx.WrapNATS(err)
	}

	logx.Debug().Str("subject", subject).Str("kind", env.Kind).Str("user_id", env.UserID).Msg("published")
	return nil
}

var (
	_ OrderSink = (*NATSPublisher)(nil)
	_ AuditLog  = (*NATSPublisher)(nil)
)
