package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/MegaGrindStone/sentichat/internal/models"
	"github.com/google/uuid"
)

// Analyzer classifies the sentiment of a sentence.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (models.Analysis, error)
}

// Renderer reflects controller state to the user. Controller calls it while holding its lock,
// so implementations must not call back into the Controller.
type Renderer interface {
	// Refresh publishes the whole view: the transcript and the input controls.
	Refresh(state State)
	// RefreshTranscript publishes the transcript only. The controls, and whatever the user is
	// typing into them, are left alone.
	RefreshTranscript(state State)
	// ScrollToEnd asks the view to bring the latest message into sight.
	ScrollToEnd()
}

// State is a snapshot of the session view-state.
type State struct {
	Started     bool
	Input       string
	ButtonText  string
	Placeholder string
	SessionID   string
	Messages    []models.Message
}

// Config tunes a Controller. Zero values select the defaults.
type Config struct {
	MaxMessages int
	Random      RandomSource
	Logger      *slog.Logger
}

// Texts shown by the controller.
const (
	ButtonStart       = "Start"
	ButtonSend        = "Send"
	PlaceholderIdle   = "Click Start to begin"
	PlaceholderActive = "Type your message..."

	Greeting           = "Do you want to say something?"
	UnexpectedResponse = "Unexpected response structure."
	AnalyzeFailed      = "Sorry, I couldn't analyze the sentiment right now. Please try again."
)

// DefaultMaxMessages is the transcript bound used when Config.MaxMessages is not positive.
const DefaultMaxMessages = 6

const errLoggerKey = "err"

// Controller owns the chat transcript, the request lifecycle and the view-state flags of a
// single session.
type Controller struct {
	analyzer Analyzer
	renderer Renderer
	random   RandomSource
	logger   *slog.Logger

	maxMessages int

	mu          sync.Mutex
	started     bool
	input       string
	buttonText  string
	placeholder string
	sessionID   string
	nextID      int64
	messages    []models.Message
	closed      bool

	inflight sync.WaitGroup
}

// NewController creates an idle Controller.
func NewController(analyzer Analyzer, renderer Renderer, cfg Config) *Controller {
	maxMessages := cfg.MaxMessages
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	random := cfg.Random
	if random == nil {
		random = globalSource{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		analyzer:    analyzer,
		renderer:    renderer,
		random:      random,
		logger:      logger.With(slog.String("module", "chat")),
		maxMessages: maxMessages,
		buttonText:  ButtonStart,
		placeholder: PlaceholderIdle,
	}
}

// State returns a snapshot of the current session.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// SetInput records the current content of the input field.
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = text
}

// PrimaryAction starts the chat when idle. When the chat is active it sends the current
// input, unless the input is blank.
func (c *Controller) PrimaryAction(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.primaryAction(ctx)
}

// Submit records input and performs the primary action on it in one step, so concurrent
// submissions never overwrite each other's input.
func (c *Controller) Submit(ctx context.Context, input string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = input
	c.primaryAction(ctx)
}

func (c *Controller) primaryAction(ctx context.Context) {
	if !c.started {
		c.start()
		return
	}
	text := strings.TrimSpace(c.input)
	if text == "" {
		return
	}
	c.send(ctx, text)
}

func (c *Controller) start() {
	c.started = true
	c.buttonText = ButtonSend
	c.placeholder = PlaceholderActive
	c.sessionID = uuid.NewString()

	c.logger.Info("Chat started", slog.String("session", c.sessionID))

	c.appendMessage(models.Message{
		Text: Greeting,
		Role: models.RoleBot,
	})
	c.renderer.Refresh(c.snapshot())
	c.renderer.ScrollToEnd()
}

// SendMessage appends text as a user message and asks the analyzer for its sentiment. The
// analysis runs in the background and always ends with exactly one bot reply, whatever its
// outcome. Cancelling ctx after SendMessage returns does not abort the analysis.
//
// SendMessage does not check whether the chat is started; PrimaryAction does.
func (c *Controller) SendMessage(ctx context.Context, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.send(ctx, strings.TrimSpace(text))
}

// send must be called with c.mu held.
func (c *Controller) send(ctx context.Context, text string) {
	if c.closed {
		c.logger.Warn("Dropping message sent during shutdown", slog.String("session", c.sessionID))
		return
	}

	c.input = ""
	c.appendMessage(models.Message{
		Text: text,
		Role: models.RoleUser,
	})
	c.renderer.Refresh(c.snapshot())
	c.renderer.ScrollToEnd()

	sessionID := c.sessionID
	c.inflight.Add(1)

	go func() {
		defer c.inflight.Done()

		analysis, err := c.analyzer.Analyze(context.WithoutCancel(ctx), text)
		reply := c.reply(sessionID, analysis, err)

		c.mu.Lock()
		defer c.mu.Unlock()
		c.appendMessage(reply)
		c.renderer.RefreshTranscript(c.snapshot())
		c.renderer.ScrollToEnd()
	}()
}

func (c *Controller) reply(sessionID string, analysis models.Analysis, err error) models.Message {
	logger := c.logger.With(slog.String("session", sessionID))

	if err != nil {
		logger.Error("Failed to analyze sentiment", slog.String(errLoggerKey, err.Error()))
		return models.Message{
			Text: AnalyzeFailed,
			Role: models.RoleBot,
		}
	}

	if !analysis.Complete() {
		logger.Warn("Sentiment response missing sentiment or scores",
			slog.String("sentiment", analysis.Sentiment),
			slog.Bool("hasScores", analysis.Scores != nil))
		return models.Message{
			Text: UnexpectedResponse,
			Role: models.RoleBot,
		}
	}

	scores := *analysis.Scores
	msg := models.Message{
		Text:           PickPhrase(analysis.Sentiment, c.random),
		Role:           models.RoleBot,
		SentimentLabel: strings.ToLower(analysis.Sentiment),
		RawScores:      &scores,
	}
	if analysis.HasCompound {
		score := scores.Compound
		msg.Score = &score
	} else {
		logger.Warn("Sentiment scores carry no numeric compound value")
	}
	return msg
}

// Exit returns the controller to idle and clears the transcript. Message ids keep
// increasing across sessions.
func (c *Controller) Exit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessionID != "" {
		c.logger.Info("Chat exited", slog.String("session", c.sessionID))
	}

	c.started = false
	c.input = ""
	c.messages = nil
	c.buttonText = ButtonStart
	c.placeholder = PlaceholderIdle
	c.sessionID = ""

	c.renderer.Refresh(c.snapshot())
	c.renderer.ScrollToEnd()
}

// Wait blocks until every analysis issued so far has appended its reply.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// Close stops the controller from issuing new analyses. Messages sent afterwards are dropped,
// so a Wait that follows Close covers every analysis ever started.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// appendMessage must be called with c.mu held.
func (c *Controller) appendMessage(msg models.Message) {
	msg.ID = c.nextID
	c.nextID++

	c.messages = append(c.messages, msg)
	c.trim()
}

func (c *Controller) trim() {
	if len(c.messages) <= c.maxMessages {
		return
	}
	drop := len(c.messages) - c.maxMessages
	c.messages = append(c.messages[:0:0], c.messages[drop:]...)
	c.logger.Debug("Trimmed oldest message", slog.Int("count", len(c.messages)))
}

func (c *Controller) snapshot() State {
	messages := make([]models.Message, len(c.messages))
	copy(messages, c.messages)

	return State{
		Started:     c.started,
		Input:       c.input,
		ButtonText:  c.buttonText,
		Placeholder: c.placeholder,
		SessionID:   c.sessionID,
		Messages:    messages,
	}
}
