package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/coffeebuddy/internal/catalog"
	"github.com/avvvet/coffeebuddy/internal/delivery"
	"github.com/avvvet/coffeebuddy/internal/llm"
	"github.com/avvvet/coffeebuddy/internal/memory"
	"github.com/avvvet/coffeebuddy/internal/models"
	"github.com/avvvet/coffeebuddy/internal/prompts"
	logx "github.com/avvvet/coffeebuddy/pkg/logger"
)

type Config struct {
	Template string
	Catalog  catalog.Catalog
	// Timeout bounds one ProcessMessage call, retries included. Zero disables it.
	Timeout time.Duration
}

// MessageHandler runs the per-message pipeline:
// receive, normalize, compile prompt, call model, parse, merge slots,
// submit if complete, audit, reply.
type MessageHandler struct {
	sessions *memory.Manager
	provider llm.Provider
	parser   prompts.ResponseParser
	orders   delivery.OrderSink
	audit    delivery.AuditLog
	cfg      Config
}

func NewMessageHandler(
	sessions *memory.Manager,
	provider llm.Provider,
	parser prompts.ResponseParser,
	orders delivery.OrderSink,
	audit delivery.AuditLog,
	cfg Config,
) *MessageHandler {
	if cfg.Template == "" {
		cfg.Template = prompts.SystemPrompt
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	return &MessageHandler{
		sessions: sessions,
		provider: provider,
		parser:   parser,
		orders:   orders,
		audit:    audit,
		cfg:      cfg,
	}
}

// ProcessMessage handles one inbound message and returns the text to send
// back. It never fails: every internal error becomes one of the fixed replies.
func (h *MessageHandler) ProcessMessage(ctx context.Context, msg *models.InboundMessage) string {
	switch strings.TrimSpace(msg.Text) {
	case models.CommandStart:
		return h.Greet(ctx, msg)
	case models.CommandReset:
		return h.reset(ctx, msg)
	}

	unlock := h.sessions.Lock(msg.UserID)
	defer unlock()

	// the deadline covers this message's own work, not time queued
	// behind the same user's earlier messages
	if h.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.Timeout)
		defer cancel()
	}

	logx.Info().Str("user_id", msg.UserID).Str("display_name", msg.DisplayName).Msg("processing message")

	session, err := h.sessions.GetOrCreate(ctx, msg.UserID, msg.DisplayName)
	if err != nil {
		logx.Error().Err(err).Str("user_id", msg.UserID).Msg("failed to load session")
		return models.ReplyUnexpected
	}
	displayName := msg.DisplayName
	if displayName == "" {
		displayName = session.DisplayName
	}

	if err := h.sessions.AppendTurn(ctx, msg.UserID, models.RoleUser, msg.Text); err != nil {
		logx.Error().Err(err).Str("user_id", msg.UserID).Msg("failed to save user turn")
		return models.ReplyUnexpected
	}

	session, err = h.sessions.Get(ctx, msg.UserID)
	if err != nil {
		logx.Error().Err(err).Str("user_id", msg.UserID).Msg("failed to read session")
		return models.ReplyUnexpected
	}

	request := &llm.MessageRequest{
		System:   prompts.Compile(h.cfg.Template, h.cfg.Catalog, msg.Text, displayName),
		Messages: memory.Normalize(session.History),
	}

	raw, err := h.provider.Complete(ctx, request)
	if err != nil {
		logx.Error().Err(err).Str("user_id", msg.UserID).Msg("model call failed")
		return replyForModelError(err)
	}

	parsed, err := h.parser.Parse(raw)
	if err != nil {
		logx.Warn().Err(err).Str("user_id", msg.UserID).Str("raw", raw).Msg("model reply has no response block")
		return models.ReplyMalformed
	}

	session, complete, err := h.sessions.MergeSlots(ctx, msg.UserID, parsed.Slots)
	if err != nil {
		logx.Error().Err(err).Str("user_id", msg.UserID).Msg("failed to merge slots")
		return models.ReplyUnexpected
	}

	if complete {
		h.submitOnce(ctx, session)
	} else {
		logx.Debug().Str("user_id", msg.UserID).Strs("missing", session.Slots.Missing()).Msg("order incomplete")
	}

	if err := h.sessions.AppendTurn(ctx, msg.UserID, models.RoleAssistant, parsed.Content); err != nil {
		logx.Error().Err(err).Str("user_id", msg.UserID).Msg("failed to save assistant turn")
	}

	h.record(ctx, models.AuditEntry{
		UserID:      msg.UserID,
		DisplayName: displayName,
		UserMessage: msg.Text,
		Reply:       parsed.Reply,
	})

	return parsed.Reply
}

// greetingFallbackName addresses users who have no display name.
const greetingFallbackName = "there"

// Greet answers /start without changing the session or calling the model.
// A blank display name falls back to the name stored with the session.
func (h *MessageHandler) Greet(ctx context.Context, msg *models.InboundMessage) string {
	name := strings.TrimSpace(msg.DisplayName)
	if name == "" {
		if session, err := h.sessions.Get(ctx, msg.UserID); err == nil {
			name = strings.TrimSpace(session.DisplayName)
		}
	}
	if name == "" {
		name = greetingFallbackName
	}

	reply := fmt.Sprintf("Hello, %s! I'm the coffee bot. How can I help?", name)
	h.record(ctx, models.AuditEntry{
		UserID:      msg.UserID,
		DisplayName: name,
		Reply:       reply,
	})
	return reply
}

func (h *MessageHandler) reset(ctx context.Context, msg *models.InboundMessage) string {
	unlock := h.sessions.Lock(msg.UserID)
	defer unlock()

	if err := h.sessions.Reset(ctx, msg.UserID); err != nil && !errors.Is(err, memory.ErrSessionNotFound) {
		logx.Error().Err(err).Str("user_id", msg.UserID).Msg("failed to reset session")
		return models.ReplyUnexpected
	}
	return models.ReplyReset
}

// submitOnce delivers the order the first time the session is complete.
// The flag is set before delivery, so a failing sink is not retried on
// later turns.
func (h *MessageHandler) submitOnce(ctx context.Context, session memory.Session) {
	first, err := h.sessions.MarkDelivered(session.UserID)
	if err != nil {
		logx.Error().Err(err).Str("user_id", session.UserID).Msg("failed to mark order delivered")
		return
	}
	if !first {
		logx.Debug().Str("user_id", session.UserID).Msg("order already delivered, skipping")
		return
	}

	logx.Info().Str("user_id", session.UserID).Msg("all order details collected")
	if err := h.orders.SubmitOrder(ctx, models.NewOrder(session.UserID, session.Slots)); err != nil {
		logx.Error().Err(err).Str("user_id", session.UserID).Msg("failed to deliver order")
	}
}

func (h *MessageHandler) record(ctx context.Context, entry models.AuditEntry) {
	if err := h.audit.Record(ctx, entry); err != nil {
		logx.Error().Err(err).Str("user_id", entry.UserID).Msg("failed to write audit entry")
	}
}

func replyForModelError(err error) string {
	if errors.Is(err, llm.ErrUnexpectedResponse) {
		return models.ReplyUnexpected
	}
	return models.ReplyOverloaded
}
