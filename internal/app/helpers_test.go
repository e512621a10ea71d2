package app_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"trivia-session-service/internal/app"
	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/infra/memory"
)

var errSendFailed = errors.New("send failed")

// recordingConn queues every message it is sent. Setting fail makes Send error.
type recordingConn struct {
	msgs   chan domain.Message
	fail   atomic.Bool
	closed atomic.Bool
}

func newRecordingConn() *recordingConn {
	return &recordingConn{msgs: make(chan domain.Message, 64)}
}

func (c *recordingConn) Send(msg domain.Message) error {
	if c.fail.Load() {
		return errSendFailed
	}
	c.msgs <- msg
	return nil
}

func (c *recordingConn) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *recordingConn) expect(t *testing.T, msgType string) domain.Message {
	t.Helper()
	select {
	case msg := <-c.msgs:
		if msg.Type != msgType {
			t.Fatalf("expected %s, got %s (%+v)", msgType, msg.Type, msg.Payload)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", msgType)
	}
	return domain.Message{}
}

func (c *recordingConn) expectQuiet(t *testing.T) {
	t.Helper()
	select {
	case msg := <-c.msgs:
		t.Fatalf("unexpected message %s (%+v)", msg.Type, msg.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

// gatedConn parks the first message of type gate until release is closed.
type gatedConn struct {
	*recordingConn
	gate    string
	reached chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedConn(gate string) *gatedConn {
	return &gatedConn{
		recordingConn: newRecordingConn(),
		gate:          gate,
		reached:       make(chan struct{}),
		release:       make(chan struct{}),
	}
}

func (c *gatedConn) Send(msg domain.Message) error {
	if msg.Type == c.gate {
		held := false
		c.once.Do(func() { held = true })
		if held {
			close(c.reached)
			<-c.release
		}
	}
	return c.recordingConn.Send(msg)
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(_ string, msg domain.Message) {
	p.mu.Lock()
	p.types = append(p.types, msg.Type)
	p.mu.Unlock()
}

func (p *recordingPublisher) count(msgType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, typ := range p.types {
		if typ == msgType {
			n++
		}
	}
	return n
}

type fixture struct {
	games     *app.GameService
	clock     *clockwork.FakeClock
	quizzes   *memory.QuizStore
	sessions  *memory.SessionStore
	publisher *recordingPublisher
	gameID    string
}

func newFixture(t *testing.T, cfg app.GameConfig) *fixture {
	t.Helper()
	f := &fixture{
		clock:     clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)),
		quizzes:   memory.NewQuizStore(),
		sessions:  memory.NewSessionStore(),
		publisher: &recordingPublisher{},
	}
	if err := f.quizzes.SaveQuiz(context.Background(), twoQuestionQuiz()); err != nil {
		t.Fatalf("save quiz: %v", err)
	}
	f.games = app.NewGameService(f.sessions, f.quizzes, app.NewRegistry(),
		app.WithClock(f.clock),
		app.WithPublisher(f.publisher),
		app.WithGameConfig(cfg),
	)
	t.Cleanup(f.games.Close)

	snap, err := f.games.CreateGame(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	f.gameID = snap.ID
	return f
}

// display attaches a non-player observer channel.
func (f *fixture) display(t *testing.T) *recordingConn {
	t.Helper()
	conn := newRecordingConn()
	if err := f.games.Connect(f.gameID, "display", conn); err != nil {
		t.Fatalf("connect display: %v", err)
	}
	return conn
}

func (f *fixture) join(t *testing.T, name string) domain.Player {
	t.Helper()
	player, err := f.games.Join(context.Background(), f.gameID, name)
	if err != nil {
		t.Fatalf("join %s: %v", name, err)
	}
	return player
}

func twoQuestionQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Nineties hits",
		Questions: []domain.Question{
			{
				ID:            "q1",
				Type:          domain.QuestionMultipleChoice,
				MediaRef:      "dQw4w9WgXcQ",
				Options:       []string{"Rick Astley", "Bananarama"},
				CorrectAnswer: "Rick Astley",
				Duration:      10,
			},
			{
				ID:            "q2",
				Type:          domain.QuestionFreeText,
				MediaRef:      "kJQP7kiw5Fk",
				CorrectAnswer: "Despacito",
				Duration:      10,
			},
		},
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
