package chat_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/MegaGrindStone/sentichat/internal/chat"
	"github.com/MegaGrindStone/sentichat/internal/models"
)

type mockAnalyzer struct {
	mu       sync.Mutex
	analysis models.Analysis
	err      error
	texts    []string
}

type mockRenderer struct {
	mu        sync.Mutex
	refreshes []chat.State
	full      []bool
	scrolls   int
}

type fixedSource int

func TestPrimaryActionStartsChat(t *testing.T) {
	ctl, _, renderer := newController(t, 0)

	ctl.PrimaryAction(context.Background())

	state := ctl.State()
	if !state.Started {
		t.Fatal("PrimaryAction() did not start the chat")
	}
	if state.ButtonText != chat.ButtonSend {
		t.Errorf("ButtonText = %q, want %q", state.ButtonText, chat.ButtonSend)
	}
	if state.Placeholder != chat.PlaceholderActive {
		t.Errorf("Placeholder = %q, want %q", state.Placeholder, chat.PlaceholderActive)
	}
	if state.SessionID == "" {
		t.Error("SessionID should be set once started")
	}
	if len(state.Messages) != 1 {
		t.Fatalf("got %d messages, want exactly one greeting", len(state.Messages))
	}
	greeting := state.Messages[0]
	if greeting.Role != models.RoleBot || greeting.Text != chat.Greeting {
		t.Errorf("greeting = %+v, want bot message %q", greeting, chat.Greeting)
	}

	full, transcriptOnly, scrolls := renderer.counts()
	if full != 1 || transcriptOnly != 0 {
		t.Errorf("got %d full and %d transcript refreshes, want a single full refresh", full, transcriptOnly)
	}
	if scrolls != 1 {
		t.Errorf("got %d scrolls, want 1", scrolls)
	}
}

func TestPrimaryActionBlankInput(t *testing.T) {
	ctl, analyzer, _ := newController(t, 0)
	ctl.PrimaryAction(context.Background())
	before := ctl.State()

	for _, input := range []string{"", "   ", "\t\n"} {
		ctl.SetInput(input)
		ctl.PrimaryAction(context.Background())
	}
	ctl.Wait()

	after := ctl.State()
	if !slices.EqualFunc(before.Messages, after.Messages, sameMessage) {
		t.Errorf("blank input mutated the transcript: before %+v, after %+v", before.Messages, after.Messages)
	}
	if got := analyzer.calls(); len(got) != 0 {
		t.Errorf("analyzer called with %q, want no calls", got)
	}
}

func TestPrimaryActionSendsTrimmedInput(t *testing.T) {
	ctl, analyzer, _ := newController(t, 0)
	analyzer.analysis = completeAnalysis("Positive", 0.6)

	ctl.PrimaryAction(context.Background())
	ctl.SetInput("  I love this  ")
	ctl.PrimaryAction(context.Background())
	ctl.Wait()

	if got := analyzer.calls(); !slices.Equal(got, []string{"I love this"}) {
		t.Fatalf("analyzer calls = %q, want [\"I love this\"]", got)
	}

	state := ctl.State()
	if state.Input != "" {
		t.Errorf("Input = %q, want cleared", state.Input)
	}
	if len(state.Messages) != 3 {
		t.Fatalf("got %d messages, want greeting, user and reply", len(state.Messages))
	}
	user := state.Messages[1]
	if user.Role != models.RoleUser || user.Text != "I love this" {
		t.Errorf("user message = %+v", user)
	}
	if user.HasSentiment() {
		t.Errorf("user message should carry no sentiment, got %q", user.SentimentLabel)
	}
}

func TestSubmitKeepsEachInput(t *testing.T) {
	ctl, analyzer, _ := newController(t, 0)
	analyzer.err = errors.New("offline")

	ctl.PrimaryAction(context.Background())
	ctl.SetInput("stale")
	ctl.Submit(context.Background(), "first")
	ctl.Submit(context.Background(), "second")
	ctl.Wait()

	calls := analyzer.calls()
	slices.Sort(calls)
	if !slices.Equal(calls, []string{"first", "second"}) {
		t.Fatalf("analyzer calls = %q, want first and second", calls)
	}

	var users []string
	for _, m := range ctl.State().Messages {
		if m.Role == models.RoleUser {
			users = append(users, m.Text)
		}
	}
	if !slices.Equal(users, []string{"first", "second"}) {
		t.Errorf("user messages = %q, want [first second]", users)
	}
}

func TestSubmitConcurrent(t *testing.T) {
	ctl, analyzer, _ := newController(t, 100)
	analyzer.analysis = completeAnalysis("Neutral", 0)

	ctl.PrimaryAction(context.Background())

	var want []string
	var wg sync.WaitGroup
	for i := range 20 {
		text := fmt.Sprintf("message %d", i)
		want = append(want, text)
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctl.Submit(context.Background(), text)
		}()
	}
	wg.Wait()
	ctl.Wait()

	calls := analyzer.calls()
	slices.Sort(calls)
	slices.Sort(want)
	if !slices.Equal(calls, want) {
		t.Fatalf("analyzer calls = %q, want %q", calls, want)
	}
	// Greeting plus one user message and one reply per submission.
	if got := len(ctl.State().Messages); got != 41 {
		t.Errorf("got %d messages, want 41", got)
	}
}

func TestReplyRefreshesTranscriptOnly(t *testing.T) {
	ctl, analyzer, renderer := newController(t, 0)
	analyzer.analysis = completeAnalysis("Positive", 0.4)

	ctl.PrimaryAction(context.Background())
	ctl.SendMessage(context.Background(), "hello")
	ctl.Wait()

	full, transcriptOnly, _ := renderer.counts()
	if full != 2 {
		t.Errorf("got %d full refreshes, want one for start and one for the send", full)
	}
	if transcriptOnly != 1 {
		t.Errorf("got %d transcript refreshes, want one for the reply", transcriptOnly)
	}
	if renderer.lastFull() {
		t.Error("the reply refreshed the controls")
	}
}

func TestSendMessageReplies(t *testing.T) {
	tests := []struct {
		name      string
		analysis  models.Analysis
		err       error
		wantLabel string
		wantScore *float64
		wantSet   []string
		wantText  string
	}{
		{
			name:      "Positive label",
			analysis:  completeAnalysis("Positive", 0.75),
			wantLabel: "positive",
			wantScore: ptr(0.75),
			wantSet:   chat.Phrases("positive"),
		},
		{
			name:      "Upper case negative label",
			analysis:  completeAnalysis("NEGATIVE", -0.5),
			wantLabel: "negative",
			wantScore: ptr(-0.5),
			wantSet:   chat.Phrases("negative"),
		},
		{
			name:      "Neutral label",
			analysis:  completeAnalysis("Neutral", 0),
			wantLabel: "neutral",
			wantScore: ptr(0),
			wantSet:   chat.Phrases("neutral"),
		},
		{
			name:      "Unknown label",
			analysis:  completeAnalysis("Mixed", 0.01),
			wantLabel: "mixed",
			wantScore: ptr(0.01),
			wantSet:   chat.Phrases("neutral"),
		},
		{
			name: "Scores without compound",
			analysis: models.Analysis{
				Sentiment: "Positive",
				Scores:    &models.Scores{Positive: 0.9},
			},
			wantLabel: "positive",
			wantSet:   chat.Phrases("positive"),
		},
		{
			name: "Missing scores",
			analysis: models.Analysis{
				Sentiment: "Positive",
			},
			wantText: chat.UnexpectedResponse,
		},
		{
			name: "Missing sentiment",
			analysis: models.Analysis{
				Scores:      &models.Scores{Compound: 0.3},
				HasCompound: true,
			},
			wantText: chat.UnexpectedResponse,
		},
		{
			name:     "Transport failure",
			err:      errors.New("connection refused"),
			wantText: chat.AnalyzeFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl, analyzer, _ := newController(t, 0)
			analyzer.analysis = tt.analysis
			analyzer.err = tt.err

			ctl.PrimaryAction(context.Background())
			ctl.SendMessage(context.Background(), "hello there")
			ctl.Wait()

			messages := ctl.State().Messages
			reply := messages[len(messages)-1]

			if reply.Role != models.RoleBot {
				t.Fatalf("last message role = %q, want bot", reply.Role)
			}
			if reply.SentimentLabel != tt.wantLabel {
				t.Errorf("SentimentLabel = %q, want %q", reply.SentimentLabel, tt.wantLabel)
			}
			switch {
			case tt.wantScore == nil && reply.Score != nil:
				t.Errorf("Score = %v, want nil", *reply.Score)
			case tt.wantScore != nil && (reply.Score == nil || *reply.Score != *tt.wantScore):
				t.Errorf("Score = %v, want %v", reply.Score, *tt.wantScore)
			}
			if tt.wantSet != nil {
				if !slices.Contains(tt.wantSet, reply.Text) {
					t.Errorf("Text = %q, not in phrase set %q", reply.Text, tt.wantSet)
				}
				if reply.RawScores == nil || *reply.RawScores != *tt.analysis.Scores {
					t.Errorf("RawScores = %+v, want %+v", reply.RawScores, tt.analysis.Scores)
				}
				return
			}
			if reply.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", reply.Text, tt.wantText)
			}
			if reply.RawScores != nil {
				t.Errorf("RawScores = %+v, want nil", reply.RawScores)
			}
		})
	}
}

func TestSendMessageUsesRandomSource(t *testing.T) {
	analyzer := &mockAnalyzer{analysis: completeAnalysis("positive", 0.9)}
	ctl := chat.NewController(analyzer, &mockRenderer{}, chat.Config{Random: fixedSource(3)})

	ctl.SendMessage(context.Background(), "great")
	ctl.Wait()

	messages := ctl.State().Messages
	want := chat.Phrases("positive")[3]
	if got := messages[len(messages)-1].Text; got != want {
		t.Errorf("reply = %q, want %q", got, want)
	}
}

func TestSendMessageDetachesFromCallerContext(t *testing.T) {
	ctl, analyzer, _ := newController(t, 0)
	analyzer.analysis = completeAnalysis("Positive", 0.2)

	ctx, cancel := context.WithCancel(context.Background())
	ctl.SendMessage(ctx, "hi")
	cancel()
	ctl.Wait()

	messages := ctl.State().Messages
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want user message and reply", len(messages))
	}
	if messages[1].SentimentLabel != "positive" {
		t.Errorf("reply label = %q, want positive", messages[1].SentimentLabel)
	}
}

func TestTranscriptBounded(t *testing.T) {
	for _, maxMessages := range []int{1, 3, 6} {
		t.Run(fmt.Sprintf("max %d", maxMessages), func(t *testing.T) {
			ctl, analyzer, _ := newController(t, maxMessages)
			analyzer.err = errors.New("offline")

			var appended []string
			for i := range 10 {
				text := fmt.Sprintf("message %d", i)
				ctl.SendMessage(context.Background(), text)
				ctl.Wait()
				appended = append(appended, text, chat.AnalyzeFailed)

				messages := ctl.State().Messages
				if want := min(len(appended), maxMessages); len(messages) != want {
					t.Fatalf("after %d appends got %d messages, want %d", len(appended), len(messages), want)
				}
				texts := make([]string, len(messages))
				for j, m := range messages {
					texts[j] = m.Text
				}
				if want := appended[len(appended)-len(messages):]; !slices.Equal(texts, want) {
					t.Fatalf("retained %q, want %q", texts, want)
				}
			}
		})
	}
}

func TestMessageIDsIncrease(t *testing.T) {
	ctl, analyzer, renderer := newController(t, 3)
	analyzer.analysis = completeAnalysis("Negative", -0.4)

	ctl.PrimaryAction(context.Background())
	for range 4 {
		ctl.SendMessage(context.Background(), "meh")
		ctl.Wait()
	}
	ctl.Exit()
	ctl.PrimaryAction(context.Background())
	ctl.SendMessage(context.Background(), "again")
	ctl.Wait()

	var ids []int64
	seen := make(map[int64]bool)
	for _, state := range renderer.states() {
		for _, m := range state.Messages {
			if !seen[m.ID] {
				seen[m.ID] = true
				ids = append(ids, m.ID)
			}
		}
	}

	if len(ids) != 12 {
		t.Fatalf("observed %d distinct ids, want 12", len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("ids not strictly increasing: %v", ids)
		}
	}
}

func TestExit(t *testing.T) {
	ctl, analyzer, renderer := newController(t, 0)
	analyzer.analysis = completeAnalysis("Positive", 0.1)

	ctl.PrimaryAction(context.Background())
	for range 5 {
		ctl.SendMessage(context.Background(), "hello")
	}
	ctl.Wait()
	ctl.SetInput("half typed")

	ctl.Exit()

	state := ctl.State()
	if state.Started {
		t.Error("Exit() left the chat started")
	}
	if len(state.Messages) != 0 {
		t.Errorf("got %d messages after Exit(), want 0", len(state.Messages))
	}
	if state.Input != "" {
		t.Errorf("Input = %q, want cleared", state.Input)
	}
	if state.ButtonText != chat.ButtonStart || state.Placeholder != chat.PlaceholderIdle {
		t.Errorf("texts = %q/%q, want initial texts", state.ButtonText, state.Placeholder)
	}
	if state.SessionID != "" {
		t.Errorf("SessionID = %q, want empty", state.SessionID)
	}

	last := renderer.states()[len(renderer.states())-1]
	if last.Started || len(last.Messages) != 0 {
		t.Errorf("last refresh = %+v, want idle empty state", last)
	}

	ctl.Exit()
	if state := ctl.State(); state.Started || len(state.Messages) != 0 {
		t.Errorf("second Exit() state = %+v", state)
	}
}

func TestExitWhileAnalysisInFlight(t *testing.T) {
	release := make(chan struct{})
	analyzer := &blockingAnalyzer{release: release}
	ctl := chat.NewController(analyzer, &mockRenderer{}, chat.Config{})

	ctl.PrimaryAction(context.Background())
	ctl.SendMessage(context.Background(), "slow")
	ctl.Exit()
	close(release)
	ctl.Wait()

	messages := ctl.State().Messages
	if len(messages) != 1 || messages[0].Text != chat.AnalyzeFailed {
		t.Errorf("messages = %+v, want the late reply only", messages)
	}
}

func TestCloseDropsNewMessages(t *testing.T) {
	ctl, analyzer, _ := newController(t, 0)

	ctl.PrimaryAction(context.Background())
	ctl.Close()
	ctl.Submit(context.Background(), "too late")
	ctl.SendMessage(context.Background(), "also too late")
	ctl.Wait()

	if got := analyzer.calls(); len(got) != 0 {
		t.Errorf("analyzer called with %q after Close()", got)
	}
	if got := len(ctl.State().Messages); got != 1 {
		t.Errorf("got %d messages, want the greeting only", got)
	}
}

type blockingAnalyzer struct {
	release chan struct{}
}

func (b *blockingAnalyzer) Analyze(ctx context.Context, _ string) (models.Analysis, error) {
	<-b.release
	return models.Analysis{}, errors.New("late failure")
}

func newController(t *testing.T, maxMessages int) (*chat.Controller, *mockAnalyzer, *mockRenderer) {
	t.Helper()
	analyzer := &mockAnalyzer{}
	renderer := &mockRenderer{}
	ctl := chat.NewController(analyzer, renderer, chat.Config{MaxMessages: maxMessages})
	return ctl, analyzer, renderer
}

func completeAnalysis(label string, compound float64) models.Analysis {
	return models.Analysis{
		Sentiment: label,
		Scores: &models.Scores{
			Positive: 0.2,
			Neutral:  0.7,
			Negative: 0.1,
			Compound: compound,
		},
		HasCompound: true,
	}
}

func sameMessage(a, b models.Message) bool {
	return a.ID == b.ID && a.Text == b.Text && a.Role == b.Role
}

func ptr(f float64) *float64 {
	return &f
}

func (m *mockAnalyzer) Analyze(_ context.Context, text string) (models.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return m.analysis, m.err
}

func (m *mockAnalyzer) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.texts)
}

func (m *mockRenderer) Refresh(state chat.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes = append(m.refreshes, state)
	m.full = append(m.full, true)
}

func (m *mockRenderer) RefreshTranscript(state chat.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes = append(m.refreshes, state)
	m.full = append(m.full, false)
}

func (m *mockRenderer) ScrollToEnd() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scrolls++
}

func (m *mockRenderer) counts() (full, transcriptOnly, scrolls int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.full {
		if f {
			full++
		} else {
			transcriptOnly++
		}
	}
	return full, transcriptOnly, m.scrolls
}

func (m *mockRenderer) lastFull() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.full) > 0 && m.full[len(m.full)-1]
}

func (m *mockRenderer) states() []chat.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.refreshes)
}

func (f fixedSource) IntN(n int) int {
	return int(f) % n
}
