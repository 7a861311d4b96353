package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/avvvet/coffeebuddy/internal/config"
	"github.com/avvvet/coffeebuddy/internal/models"
	logx "github.com/avvvet/coffeebuddy/pkg/logger"
	"github.com/nats-io/nats.go"
)

// Connect opens the NATS connection shared by the transport and the
// delivery publisher.
func Connect(cfg *config.Config) (*nats.Conn, error) {
	conn, err := nats.Connect(cfg.Nats.URL,
		nats.Name(cfg.ServiceName),
		nats.Timeout(cfg.Nats.Timeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1), // Infinite reconnects
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logx.Info().Str("url", cfg.Nats.URL).Msg("connected to NATS")
	return conn, nil
}

// DefaultMaxInFlight bounds concurrent pipelines when none is configured.
const DefaultMaxInFlight = 64

// drainTimeout caps how long Close waits for the subscription to drain.
const drainTimeout = 30 * time.Second

// NATSTransport answers inbound messages published as requests on the
// configured subject. Each message runs in its own goroutine, at most
// maxInFlight at a time; ordering per user is left to the handler's
// session lock.
type NATSTransport struct {
	conn    *nats.Conn
	subject string
	handler MessageProcessor
	sub     *nats.Subscription

	slots    chan struct{}
	inflight sync.WaitGroup
}

func NewNATSTransport(conn *nats.Conn, subject string, handler MessageProcessor, maxInFlight int) *NATSTransport {
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	return &NATSTransport{
		conn:    conn,
		subject: subject,
		handler: handler,
		slots:   make(chan struct{}, maxInFlight),
	}
}

func (nt *NATSTransport) Start() error {
	sub, err := nt.conn.Subscribe(nt.subject, nt.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", nt.subject, err)
	}
	nt.sub = sub

	logx.Info().Str("subject", nt.subject).Msg("subscribed")
	return nil
}

// handleMessage runs on the subscription's delivery goroutine. It blocks
// only while maxInFlight pipelines are already running.
func (nt *NATSTransport) handleMessage(msg *nats.Msg) {
	nt.slots <- struct{}{}
	nt.inflight.Add(1)
	go func() {
		defer func() {
			<-nt.slots
			nt.inflight.Done()
		}()
		nt.process(msg)
	}()
}

func (nt *NATSTransport) process(msg *nats.Msg) {
	var inbound models.InboundMessage
	if err := json.Unmarshal(msg.Data, &inbound); err != nil {
		logx.Warn().Err(err).Msg("invalid inbound message")
		nt.respond(msg, models.OutboundReply{Reply: models.ReplyUnexpected})
		return
	}
	if err := validateInbound(&inbound); err != nil {
		logx.Warn().Err(err).Msg("invalid inbound message")
		nt.respond(msg, models.OutboundReply{UserID: inbound.UserID, Reply: models.ReplyUnexpected})
		return
	}

	// the pipeline applies its own deadline
	reply := nt.handler.ProcessMessage(context.Background(), &inbound)
	nt.respond(msg, models.OutboundReply{UserID: inbound.UserID, Reply: reply})
}

func (nt *NATSTransport) respond(msg *nats.Msg, reply models.OutboundReply) {
	if msg.Reply == "" {
		logx.Debug().Str("user_id", reply.UserID).Msg("no reply subject, dropping reply")
		return
	}

	data, err := json.Marshal(reply)
	if err != nil {
		logx.Error().Err(err).Msg("failed to marshal reply")
		return
	}
	if err := msg.Respond(data); err != nil {
		logx.Error().Err(err).Str("user_id", reply.UserID).Msg("failed to send reply")
		return
	}

	logx.Debug().Str("user_id", reply.UserID).Msg("reply sent")
}

// Close drains the subscription and waits for running pipelines to reply.
func (nt *NATSTransport) Close() error {
	if nt.sub == nil {
		return nil
	}
	if err := nt.sub.Drain(); err != nil {
		return fmt.Errorf("failed to drain subscription: %w", err)
	}

	// Drain is asynchronous; once the subscription is invalid no further
	// callbacks can call inflight.Add.
	deadline := time.Now().Add(drainTimeout)
	for nt.sub.IsValid() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	nt.inflight.Wait()

	logx.Info().Str("subject", nt.subject).Msg("subscription drained")
	return nil
}
