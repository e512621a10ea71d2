package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"trivia-session-service/internal/domain"
)

const (
	// DefaultMaxPlayers caps the roster of a waiting game.
	DefaultMaxPlayers = 5
	// GameCodeLength is the length of the shareable game code.
	GameCodeLength = 6
	// GameCodeChars avoids characters that are easy to misread.
	GameCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// SessionRepository abstracts where live game sessions are kept.
type SessionRepository interface {
	// Add stores the session unless its id is taken.
	Add(session *Session) bool
	Get(id string) (*Session, bool)
	Delete(id string)
	List() []*Session
}

// EventPublisher mirrors game messages to other services. Publish must not block.
type EventPublisher interface {
	Publish(sessionID string, msg domain.Message)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, domain.Message) {}

// GameConfig holds the tunables of a game.
type GameConfig struct {
	MaxPlayers    int
	RevealPause   time.Duration
	StrictAnswers bool
	SessionTTL    time.Duration
	ReapInterval  time.Duration
}

// DefaultGameConfig returns the standard rules: five players, five second reveal.
func DefaultGameConfig() GameConfig {
	return GameConfig{
		MaxPlayers:   DefaultMaxPlayers,
		RevealPause:  DefaultRevealPause,
		SessionTTL:   2 * time.Hour,
		ReapInterval: 10 * time.Minute,
	}
}

// Option customizes a GameService.
type Option func(*GameService)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(g *GameService) { g.clock = clock }
}

// WithPublisher mirrors every broadcast to p.
func WithPublisher(p EventPublisher) Option {
	return func(g *GameService) {
		if p != nil {
			g.publisher = p
		}
	}
}

// WithGameConfig overrides the game rules.
func WithGameConfig(cfg GameConfig) Option {
	return func(g *GameService) { g.cfg = cfg }
}

// GameService contains the game session use cases.
type GameService struct {
	sessions  SessionRepository
	quizzes   QuizRepository
	registry  *Registry
	publisher EventPublisher
	clock     clockwork.Clock
	cfg       GameConfig
	scheduler *Scheduler
}

func NewGameService(sessions SessionRepository, quizzes QuizRepository, registry *Registry, opts ...Option) *GameService {
	g := &GameService{
		sessions:  sessions,
		quizzes:   quizzes,
		registry:  registry,
		publisher: nopPublisher{},
		clock:     clockwork.NewRealClock(),
		cfg:       DefaultGameConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.cfg.MaxPlayers <= 0 {
		g.cfg.MaxPlayers = DefaultMaxPlayers
	}
	g.scheduler = NewScheduler(sessions, g, g.clock, g.cfg.RevealPause)
	registry.OnEvict(g.onConnectionLost)
	return g
}

// Broadcast sends msg to every client of the game and mirrors it to the publisher.
func (g *GameService) Broadcast(sessionID string, msg domain.Message) {
	g.registry.Broadcast(sessionID, msg)
	g.publisher.Publish(sessionID, msg)
}

// SendTo unicasts msg to one client.
func (g *GameService) SendTo(sessionID, clientID string, msg domain.Message) bool {
	return g.registry.SendTo(sessionID, clientID, msg)
}

// CreateGame opens a waiting session for an existing quiz.
func (g *GameService) CreateGame(ctx context.Context, quizID string) (domain.SessionSnapshot, error) {
	quiz, err := g.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	for attempts := 0; attempts < 10; attempts++ {
		session := NewSession(newGameCode(), quiz, g.clock.Now(), g.cfg.MaxPlayers, g.cfg.StrictAnswers)
		if g.sessions.Add(session) {
			log.Info().Str("game_id", session.ID()).Str("quiz_id", quiz.ID).Msg("game created")
			return session.snapshot(), nil
		}
	}
	return domain.SessionSnapshot{}, fmt.Errorf("failed to generate unique game code")
}

// Join adds a player to a waiting game and broadcasts the roster before returning.
func (g *GameService) Join(_ context.Context, gameID, playerName string) (domain.Player, error) {
	session, err := g.session(gameID)
	if err != nil {
		return domain.Player{}, err
	}

	player, roster, err := session.join(uuid.NewString(), playerName)
	if err != nil {
		return domain.Player{}, err
	}
	log.Info().Str("game_id", session.ID()).Str("player_id", player.ID).Str("name", player.Name).Msg("player joined")

	g.Broadcast(session.ID(), domain.Message{
		Type:    domain.MsgPlayerJoined,
		Payload: domain.PlayerJoinedPayload{Player: player, Players: roster},
	})
	return player, nil
}

// Start moves the game to playing and emits the first question. Starting a
// playing game restarts it from the first question; the pending timer of the
// earlier run is cancelled and scores are kept.
func (g *GameService) Start(_ context.Context, gameID string) error {
	session, err := g.session(gameID)
	if err != nil {
		return err
	}
	session.emitMu.Lock()
	defer session.emitMu.Unlock()

	gen, err := session.start()
	if err != nil {
		return err
	}
	log.Info().Str("game_id", session.ID()).Uint64("run", gen).Msg("game started")
	g.scheduler.Begin(session, gen)
	return nil
}

// CurrentQuestion returns the question on screen and its 1-based number.
func (g *GameService) CurrentQuestion(_ context.Context, gameID string) (domain.Question, int, error) {
	session, err := g.session(gameID)
	if err != nil {
		return domain.Question{}, 0, err
	}
	return session.currentQuestion()
}

// SubmitAnswer scores an answer against the active question and unicasts the
// result to the player. The score stands even if the unicast fails.
func (g *GameService) SubmitAnswer(_ context.Context, gameID string, submission domain.AnswerSubmission) (domain.AnswerResult, error) {
	session, err := g.session(gameID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	result, err := session.submit(submission.PlayerID, submission.Answer, submission.Elapsed)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	g.SendTo(session.ID(), submission.PlayerID, domain.Message{Type: domain.MsgAnswerResult, Payload: result})
	return result, nil
}

// Finish ends the game and broadcasts the final ranking. Finishing an already
// finished game returns the ranking without broadcasting again.
func (g *GameService) Finish(_ context.Context, gameID string) ([]domain.RankingEntry, error) {
	session, err := g.session(gameID)
	if err != nil {
		return nil, err
	}
	session.emitMu.Lock()
	defer session.emitMu.Unlock()

	ranking, changed := session.finish()
	if changed {
		log.Info().Str("game_id", session.ID()).Msg("game finished early")
		g.Broadcast(session.ID(), domain.Message{
			Type:    domain.MsgGameFinished,
			Payload: domain.GameFinishedPayload{FinalScores: ranking},
		})
	}
	return ranking, nil
}

// Snapshot returns the current view of a game.
func (g *GameService) Snapshot(_ context.Context, gameID string) (domain.SessionSnapshot, error) {
	session, err := g.session(gameID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	snap := session.snapshot()
	snap.ConnectedCount = g.registry.Count(session.ID())
	return snap, nil
}

// Connect attaches a live channel for clientID. A client id matching a roster
// player marks that player connected again and receives the current state.
func (g *GameService) Connect(gameID, clientID string, conn Conn) error {
	session, err := g.session(gameID)
	if err != nil {
		return err
	}
	g.registry.Connect(session.ID(), clientID, conn)

	if exists, _ := session.setConnected(clientID, true); exists {
		g.registry.SendTo(session.ID(), clientID, domain.Message{
			Type:    domain.MsgSessionState,
			Payload: session.snapshot(),
		})
	}
	log.Debug().Str("game_id", session.ID()).Str("client_id", clientID).Msg("client connected")
	return nil
}

// Disconnect drops the client's channel and notifies the rest of the game.
func (g *GameService) Disconnect(gameID, clientID string) {
	id := NormalizeCode(gameID)
	g.registry.Disconnect(id, clientID)
	g.onConnectionLost(id, clientID)
}

// Release is Disconnect for a specific channel; it does nothing if the client
// has reconnected on another channel since.
func (g *GameService) Release(gameID, clientID string, conn Conn) {
	id := NormalizeCode(gameID)
	if g.registry.Release(id, clientID, conn) {
		g.onConnectionLost(id, clientID)
	}
}

func (g *GameService) onConnectionLost(sessionID, clientID string) {
	session, ok := g.sessions.Get(sessionID)
	if !ok {
		return
	}
	exists, changed := session.setConnected(clientID, false)
	if !exists || !changed {
		return
	}
	log.Info().Str("game_id", sessionID).Str("player_id", clientID).Msg("player disconnected")
	g.Broadcast(sessionID, domain.Message{
		Type:    domain.MsgPlayerDisconnected,
		Payload: domain.PlayerDisconnectedPayload{PlayerID: clientID},
	})
}

// Remove tears a game down: timers are cancelled, channels closed, state dropped.
func (g *GameService) Remove(gameID string) {
	id := NormalizeCode(gameID)
	session, ok := g.sessions.Get(id)
	if !ok {
		return
	}
	session.cancel()
	g.sessions.Delete(id)
	g.registry.DropSession(id)
	log.Info().Str("game_id", id).Msg("game removed")
}

// Close cancels every pending timer. Sessions stay readable.
func (g *GameService) Close() {
	for _, session := range g.sessions.List() {
		session.cancel()
	}
}

func (g *GameService) session(gameID string) (*Session, error) {
	session, ok := g.sessions.Get(NormalizeCode(gameID))
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// NormalizeCode returns the canonical form of a game code as typed by a player.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func newGameCode() string {
	b := make([]byte, GameCodeLength)
	_, _ = rand.Read(b)

	code := make([]byte, GameCodeLength)
	for i := range code {
		code[i] = GameCodeChars[int(b[i])%len(GameCodeChars)]
	}
	return string(code)
}
