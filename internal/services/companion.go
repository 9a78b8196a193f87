package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AnshRaj112/safeharbor-backend/internal/llm"
	"github.com/AnshRaj112/safeharbor-backend/internal/models"
	"github.com/AnshRaj112/safeharbor-backend/pkg/utils"
	"go.uber.org/zap"
)

var (
	ErrEmptyMessage = errors.New("missing message")
	ErrNotFound     = errors.New("not found")
)

const (
	DefaultHistoryLimit = 6
	DefaultReply        = "Sorry, I had trouble thinking."
	MoodNeutral         = "neutral"

	maxMessageLength  = 4000
	sideEffectTimeout = 3 * time.Second
)

// Moods the companion may report.
var Moods = []string{"sad", "anxious", "angry", "calm", "happy", "lonely", MoodNeutral}

const systemPrompt = `You are "Safe Harbor AI", an empathetic student companion for mental well-being.
Detect the user's mood (sad, anxious, angry, calm, happy, lonely, neutral) from their message,
respond warmly and naturally with one short empathetic reply.

Do not mention "I detect your mood".
If distress/self-harm is mentioned, remind them to reach a counselor or emergency help.

You MUST return ONLY a valid JSON object matching this exact schema:
{"mood":"<oneword>","reply":"<short empathetic response>"}`

// MessageStore is the durable chat history.
type MessageStore interface {
	InsertMessage(ctx context.Context, msg *models.ChatMessage) error
	RecentMessages(ctx context.Context, userID, sessionID string, n int) ([]models.ChatMessage, error)
}

// HistoryCache is an optional read-through cache in front of MessageStore.
// Warm must not replace a list that already exists.
type HistoryCache interface {
	Recent(ctx context.Context, userID, sessionID string, n int) ([]models.ChatMessage, bool)
	Warm(ctx context.Context, userID, sessionID string, msgs []models.ChatMessage)
	Push(ctx context.Context, userID, sessionID string, msgs ...models.ChatMessage)
}

type EventPublisher interface {
	Publish(ctx context.Context, event ChatEvent) error
}

type SessionTracker interface {
	Touch(ctx context.Context, userID, sessionID string, added int, at time.Time) error
}

type SafetyRecorder interface {
	Record(ctx context.Context, event models.SafetyEvent) error
}

// ChatRequest is one student message.
type ChatRequest struct {
	UserID    string
	SessionID string
	Message   string
}

// ChatReply is what the companion answers.
type ChatReply struct {
	Mood   string `json:"mood"`
	Reply  string `json:"reply"`
	Crisis bool   `json:"crisis,omitempty"`
}

// Companion runs the chat pipeline: load history, prompt the model, parse
// its JSON answer, persist both messages.
type Companion struct {
	provider     llm.Provider
	store        MessageStore
	cache        HistoryCache
	events       EventPublisher
	sessions     SessionTracker
	safety       SafetyRecorder
	historyLimit int
	timeout      time.Duration
	now          func() time.Time
}

type CompanionOption func(*Companion)

func WithHistoryCache(c HistoryCache) CompanionOption {
	return func(cp *Companion) { cp.cache = c }
}

func WithEventPublisher(p EventPublisher) CompanionOption {
	return func(cp *Companion) { cp.events = p }
}

func WithSessionTracker(s SessionTracker) CompanionOption {
	return func(cp *Companion) { cp.sessions = s }
}

func WithSafetyRecorder(r SafetyRecorder) CompanionOption {
	return func(cp *Companion) { cp.safety = r }
}

func WithHistoryLimit(n int) CompanionOption {
	return func(cp *Companion) {
		if n > 0 {
			cp.historyLimit = n
		}
	}
}

// WithModelTimeout bounds a single model call.
func WithModelTimeout(d time.Duration) CompanionOption {
	return func(cp *Companion) { cp.timeout = d }
}

func NewCompanion(provider llm.Provider, store MessageStore, opts ...CompanionOption) *Companion {
	c := &Companion{
		provider:     provider,
		store:        store,
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Respond answers one message. The user message is stored before the AI
// message; if the second write fails the first is kept.
func (c *Companion) Respond(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	message = utils.TrimToLength(message, maxMessageLength)

	history, err := c.history(ctx, req.UserID, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	genCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	raw, err := c.provider.Generate(genCtx, BuildPrompt(history, message))
	if err != nil {
		return nil, fmt.Errorf("generate with %s: %w", c.provider.Name(), err)
	}
	reply := ParseReply(raw)

	crisis, matched := DetectSelfHarm(message)

	now := c.now().UTC()
	userMsg := models.ChatMessage{
		UserID:    req.UserID,
		Sender:    models.SenderUser,
		Text:      message,
		Timestamp: now,
		SessionID: req.SessionID,
		Flagged:   crisis,
	}
	if err := c.store.InsertMessage(ctx, &userMsg); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}

	aiMsg := models.ChatMessage{
		UserID:    req.UserID,
		Sender:    models.SenderAI,
		Text:      reply.Reply,
		Timestamp: now,
		Mood:      reply.Mood,
		SessionID: req.SessionID,
	}
	if err := c.store.InsertMessage(ctx, &aiMsg); err != nil {
		return nil, fmt.Errorf("save ai message: %w", err)
	}

	c.afterExchange(ctx, req, userMsg, aiMsg, matched)

	reply.Crisis = crisis
	return &reply, nil
}

func (c *Companion) history(ctx context.Context, userID, sessionID string) ([]models.ChatMessage, error) {
	if c.cache != nil {
		if msgs, ok := c.cache.Recent(ctx, userID, sessionID, c.historyLimit); ok {
			return msgs, nil
		}
	}

	msgs, err := c.store.RecentMessages(ctx, userID, sessionID, c.historyLimit)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Warm(ctx, userID, sessionID, msgs)
	}
	return msgs, nil
}

// afterExchange runs the best-effort side effects of a stored exchange.
// Failures are logged and never reach the caller.
func (c *Companion) afterExchange(ctx context.Context, req ChatRequest, userMsg, aiMsg models.ChatMessage, matched []string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	log := zap.L().With(zap.String("user_id", req.UserID))

	if c.cache != nil {
		c.cache.Push(ctx, req.UserID, req.SessionID, userMsg, aiMsg)
	}

	if c.events != nil {
		for _, m := range []models.ChatMessage{userMsg, aiMsg} {
			if err := c.events.Publish(ctx, ChatEvent{Type: EventTypeMessage, UserID: req.UserID, Message: m}); err != nil {
				log.Warn("companion: publish failed", zap.Error(err))
				break
			}
		}
	}

	if c.sessions != nil && req.SessionID != "" {
		if err := c.sessions.Touch(ctx, req.UserID, req.SessionID, 2, aiMsg.Timestamp); err != nil {
			log.Warn("companion: session update failed", zap.String("session_id", req.SessionID), zap.Error(err))
		}
	}

	if len(matched) > 0 {
		log.Warn("companion: self-harm signal in message", zap.Strings("matched", matched))
		if c.safety != nil {
			event := models.SafetyEvent{UserID: req.UserID, Source: "ai-chat", Matched: matched}
			if err := c.safety.Record(ctx, event); err != nil {
				log.Error("companion: failed to record safety event", zap.Error(err))
			}
		}
	}
}

// RenderHistory formats messages as "User: ..." / "AI: ..." lines, or "None".
func RenderHistory(history []models.ChatMessage) string {
	if len(history) == 0 {
		return "None"
	}
	lines := make([]string, 0, len(history))
	for _, m := range history {
		speaker := "AI"
		if m.Sender == models.SenderUser {
			speaker = "User"
		}
		lines = append(lines, speaker+": "+m.Text)
	}
	return strings.Join(lines, "\n")
}

// BuildPrompt renders the single prompt sent to the model.
func BuildPrompt(history []models.ChatMessage, message string) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nPrevious conversation:\n")
	b.WriteString(RenderHistory(history))
	b.WriteString("\n\nUser: ")
	b.WriteString(message)
	b.WriteString("\n")
	return b.String()
}

// ParseReply turns raw model output into a reply. Output that is not a JSON
// object becomes a neutral reply made of the raw text without quotes.
func ParseReply(raw string) ChatReply {
	var parsed struct {
		Mood  string `json:"mood"`
		Reply string `json:"reply"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		zap.L().Warn("companion: model JSON parse failed", zap.Error(err), zap.String("raw", raw))
		return ChatReply{
			Mood:  MoodNeutral,
			Reply: orDefaultReply(strings.ReplaceAll(strings.TrimSpace(raw), `"`, "")),
		}
	}
	return ChatReply{
		Mood:  NormalizeMood(parsed.Mood),
		Reply: orDefaultReply(strings.TrimSpace(parsed.Reply)),
	}
}

// NormalizeMood lowercases mood and maps anything unknown to neutral.
func NormalizeMood(mood string) string {
	mood = strings.ToLower(strings.TrimSpace(mood))
	for _, m := range Moods {
		if m == mood {
			return m
		}
	}
	return MoodNeutral
}

func orDefaultReply(s string) string {
	if s == "" {
		return DefaultReply
	}
	return s
}

// extractJSON strips markdown code fences and surrounding prose, returning
// the outermost {...} span when there is one.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

// ErrorHint maps a failure to a short operator hint for the logs.
func ErrorHint(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "token expired"):
		return "client token expired; the app must refresh it"
	case strings.Contains(msg, "permission denied"):
		return "check model provider credentials and project permissions"
	case strings.Contains(msg, "quota"):
		return "model provider quota exhausted"
	case strings.Contains(msg, "deadline"):
		return "model or store call timed out"
	case strings.Contains(msg, "not found"):
		return "model name or collection not found; check LLM_MODEL"
	default:
		return ""
	}
}
