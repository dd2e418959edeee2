// Package assistant answers operator and commuter chat questions, first through
// the optimizer service and then through a Gemini model.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"optimetro.kochimetro.org/internal/logging"
	"optimetro.kochimetro.org/internal/models"
)

var ErrNotConnected = errors.New("ai is not connected")

const (
	NotConnectedReply = "AI is not connected."
	EmptyQuestion     = "Please enter a question."
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCommuter Role = "commuter"
)

// ParseRole maps a request role to a Role. Anything other than admin is a
// commuter.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleCommuter
}

func (r Role) systemPrompt() string {
	if r == RoleAdmin {
		return "You are an admin assistant for our metro operations app. Guide the admin on Induction (optimizer), Stabling, Maintenance, KPI, Conflicts, and Migrate. Do not disclose secrets or user data. Be concise (<= 4 sentences)."
	}
	return "You are a metro commuter assistant for our app. Only answer questions about tickets, trips (planner), routes, alerts, settings/account, login/signup. Refuse out-of-scope topics politely. Be concise (<= 3 sentences)."
}

// Upstream is the optimizer's chat endpoint.
type Upstream interface {
	Configured() bool
	Chat(ctx context.Context, message, role string) (string, error)
}

// Responder generates a reply from a language model.
type Responder interface {
	Reply(ctx context.Context, system, message string) (string, error)
}

type Assistant struct {
	upstream  Upstream
	responder Responder
	logger    *slog.Logger
}

// New returns an Assistant. Either source may be nil.
func New(upstream Upstream, responder Responder) *Assistant {
	return &Assistant{
		upstream:  upstream,
		responder: responder,
		logger:    logging.Component(slog.Default(), "assistant"),
	}
}

// Connected reports whether any reply source is configured.
func (a *Assistant) Connected() bool {
	return (a.upstream != nil && a.upstream.Configured()) || a.responder != nil
}

// Reply answers message for role. It returns ErrNotConnected when neither the
// upstream nor the model produced an answer source.
func (a *Assistant) Reply(ctx context.Context, message string, role Role) (string, error) {
	text := strings.TrimSpace(message)
	if text == "" {
		return EmptyQuestion, nil
	}

	if a.upstream != nil && a.upstream.Configured() {
		reply, err := a.upstream.Chat(ctx, text, string(role))
		if err == nil {
			return Truncate(reply, models.MaxChatReplyLength), nil
		}
		a.logger.Warn("upstream chat unavailable", slog.String("error", err.Error()))
	}

	if a.responder == nil {
		return "", ErrNotConnected
	}

	reply, err := a.responder.Reply(ctx, role.systemPrompt(), text)
	if err != nil {
		logging.LogError(a.logger, "model reply failed", err, slog.String("role", string(role)))
		return "", fmt.Errorf("model reply: %w", err)
	}
	return Truncate(reply, models.MaxChatReplyLength), nil
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if n < 0 {
		n = 0
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
