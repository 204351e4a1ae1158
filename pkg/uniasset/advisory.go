package uniasset

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// historyTurns is how many prior messages are sent with a question.
const historyTurns = 5

// Canned replies of the advisor.
const (
	ReplyNoCredential = "I need an API Key to provide advice. Please configure it."
	ReplyConnection   = "Connection lost. Please check your network."
	ReplyEmpty        = "I couldn't generate a response at this time."
)

// Advisor keeps the chat transcript of one session. At most one question is
// in flight at a time.
type Advisor struct {
	gateway AIGateway
	logger  *slog.Logger

	mu       sync.Mutex
	messages []ChatMessage
	busy     bool
}

// NewAdvisor starts a transcript with the welcome message for portfolio.
func NewAdvisor(gateway AIGateway, logger *slog.Logger, portfolio []Asset) *Advisor {
	if gateway == nil {
		gateway = disabledGateway{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Advisor{
		gateway:  gateway,
		logger:   logger,
		messages: []ChatMessage{welcomeMessage(portfolio)},
	}
}

func welcomeMessage(portfolio []Asset) ChatMessage {
	focus := "markets"
	if len(portfolio) > 0 && len(portfolio[0].ExposureTags) > 0 {
		focus = portfolio[0].ExposureTags[0]
	}
	return ChatMessage{
		ID:        "welcome",
		Role:      RoleModel,
		Text:      fmt.Sprintf("Hello. I've analyzed your %d assets. I see exposure in %s. How can I help?", len(portfolio), focus),
		Timestamp: now(),
	}
}

// Messages returns the transcript.
func (a *Advisor) Messages() []ChatMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ChatMessage(nil), a.messages...)
}

// Busy reports whether a question is awaiting its answer.
func (a *Advisor) Busy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.busy
}

// Send appends the question, asks the gateway and appends the reply. The
// reply is always a model message: gateway failures become canned texts.
func (a *Advisor) Send(ctx context.Context, text string, portfolio []Asset, events []MarketEvent) (ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return ChatMessage{}, NewError(ErrCodeValidation, "message is empty")
	}

	a.mu.Lock()
	if a.busy {
		a.mu.Unlock()
		return ChatMessage{}, NewError(ErrCodeBusy, "a message is already being answered")
	}
	a.busy = true
	history := a.messages
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	history = append([]ChatMessage(nil), history...)
	a.messages = append(a.messages, ChatMessage{ID: newID(), Role: RoleUser, Text: text, Timestamp: now()})
	a.mu.Unlock()

	reply := a.answer(ctx, AdvisoryRequest{Query: text, Portfolio: portfolio, Events: events, History: history})

	a.mu.Lock()
	defer a.mu.Unlock()
	msg := ChatMessage{ID: newID(), Role: RoleModel, Text: reply, Timestamp: now()}
	a.messages = append(a.messages, msg)
	a.busy = false
	return msg, nil
}

func (a *Advisor) answer(ctx context.Context, req AdvisoryRequest) string {
	if !a.gateway.Available() {
		return ReplyNoCredential
	}
	text, err := a.gateway.AdvisoryResponse(ctx, req)
	if err != nil {
		if IsErrorCode(err, ErrCodeAIUnavailable) {
			return ReplyNoCredential
		}
		a.logger.Warn("advisory request failed", "err", err)
		return ReplyConnection
	}
	if strings.TrimSpace(text) == "" {
		return ReplyEmpty
	}
	return text
}
