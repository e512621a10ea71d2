package app

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"trivia-session-service/internal/domain"
)

// DefaultRevealPause is how long results stay on screen before the next question.
const DefaultRevealPause = 5 * time.Second

// Broadcaster delivers messages to the clients of a game.
type Broadcaster interface {
	Broadcast(sessionID string, msg domain.Message)
	SendTo(sessionID, clientID string, msg domain.Message) bool
}

// Scheduler drives a playing session through its questions with one-shot timers:
// question -> (duration) -> results -> (reveal pause) -> next question, until the
// last question's pause ends and the game finishes.
//
// Every timer callback carries the generation of the chain that armed it and
// re-fetches the session by id, so a restarted, finished or removed session
// silently drops stale callbacks.
type Scheduler struct {
	sessions    SessionRepository
	notify      Broadcaster
	clock       clockwork.Clock
	revealPause time.Duration
}

func NewScheduler(sessions SessionRepository, notify Broadcaster, clock clockwork.Clock, revealPause time.Duration) *Scheduler {
	if revealPause <= 0 {
		revealPause = DefaultRevealPause
	}
	return &Scheduler{
		sessions:    sessions,
		notify:      notify,
		clock:       clock,
		revealPause: revealPause,
	}
}

// Begin emits the question at the session's current index for chain gen.
// The caller holds session.emitMu.
func (s *Scheduler) Begin(session *Session, gen uint64) {
	s.sendQuestion(session, gen)
}

func (s *Scheduler) sendQuestion(session *Session, gen uint64) {
	id := session.ID()
	msg, ok := session.announce(gen, func(d time.Duration) clockwork.Timer {
		return s.clock.AfterFunc(d, func() { s.onQuestionTimeout(id, gen) })
	})
	if !ok {
		return
	}
	if msg.Type == domain.MsgGameFinished {
		log.Info().Str("game_id", id).Msg("game finished")
	} else {
		log.Debug().Str("game_id", id).Interface("question", msg.Payload).Msg("question sent")
	}
	s.notify.Broadcast(id, msg)
}

func (s *Scheduler) onQuestionTimeout(id string, gen uint64) {
	session, ok := s.sessions.Get(id)
	if !ok {
		log.Debug().Str("game_id", id).Msg("reveal skipped, game gone")
		return
	}
	session.emitMu.Lock()
	defer session.emitMu.Unlock()

	msg, ok := session.reveal(gen, s.revealPause, func(d time.Duration) clockwork.Timer {
		return s.clock.AfterFunc(d, func() { s.onRevealPauseEnd(id, gen) })
	})
	if !ok {
		return
	}
	s.notify.Broadcast(id, msg)
}

func (s *Scheduler) onRevealPauseEnd(id string, gen uint64) {
	session, ok := s.sessions.Get(id)
	if !ok {
		log.Debug().Str("game_id", id).Msg("advance skipped, game gone")
		return
	}
	session.emitMu.Lock()
	defer session.emitMu.Unlock()

	if !session.advance(gen) {
		return
	}
	s.sendQuestion(session, gen)
}
