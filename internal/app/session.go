package app

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"trivia-session-service/internal/domain"
)

// Session is the state machine of one game: waiting -> playing -> finished.
// All roster, score and question-pointer access goes through mu.
//
// emitMu is held from building a flow message (question, results, final
// ranking) until it has been handed to every client, so clients see those
// messages in transition order. Lock order is emitMu then mu.
type Session struct {
	id         string
	quiz       domain.Quiz
	createdAt  time.Time
	maxPlayers int
	strict     bool

	emitMu sync.Mutex

	mu         sync.Mutex
	state      domain.GameState
	players    map[string]*domain.Player
	order      []string
	scores     map[string]int
	index      int
	revealed   bool
	answered   map[string]struct{}
	generation uint64
	timer      clockwork.Timer
}

// NewSession builds a waiting session over an immutable quiz.
func NewSession(id string, quiz domain.Quiz, createdAt time.Time, maxPlayers int, strict bool) *Session {
	return &Session{
		id:         id,
		quiz:       quiz,
		createdAt:  createdAt,
		maxPlayers: maxPlayers,
		strict:     strict,
		state:      domain.GameWaiting,
		players:    make(map[string]*domain.Player),
		scores:     make(map[string]int),
		answered:   make(map[string]struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) QuizID() string { return s.quiz.ID }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

// State returns the current lifecycle phase.
func (s *Session) State() domain.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) join(playerID, name string) (domain.Player, []domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case domain.GamePlaying:
		return domain.Player{}, nil, domain.ErrGameAlreadyStarted
	case domain.GameFinished:
		return domain.Player{}, nil, domain.ErrGameFinished
	}
	if len(s.order) >= s.maxPlayers {
		return domain.Player{}, nil, domain.ErrGameFull
	}

	player := &domain.Player{ID: playerID, Name: name, Connected: true}
	s.players[playerID] = player
	s.order = append(s.order, playerID)
	s.scores[playerID] = 0
	return *player, s.rosterLocked(), nil
}

// start moves to playing at the first question and returns the generation that
// owns the new question chain. Any pending timer from an earlier chain is stopped.
func (s *Session) start() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.GameFinished {
		return 0, domain.ErrGameFinished
	}
	s.stopTimerLocked()
	s.state = domain.GamePlaying
	s.index = 0
	s.revealed = false
	s.answered = make(map[string]struct{})
	s.generation++
	return s.generation, nil
}

// announce prepares the message for the question at the current index and arms
// its reveal timer. Past the last question it finishes the game instead.
// ok is false when gen no longer owns the session.
func (s *Session) announce(gen uint64, arm func(time.Duration) clockwork.Timer) (msg domain.Message, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ownsLocked(gen) {
		return domain.Message{}, false
	}
	if s.index >= len(s.quiz.Questions) {
		return s.finishLocked(), true
	}

	question := s.quiz.Questions[s.index]
	s.revealed = false
	s.answered = make(map[string]struct{})
	s.timer = arm(question.DurationTime())
	return domain.Message{
		Type: domain.MsgNewQuestion,
		Payload: domain.NewQuestionPayload{
			QuestionNumber: s.index + 1,
			TotalQuestions: len(s.quiz.Questions),
			Question:       question.View(),
		},
	}, true
}

// reveal closes the current question window and arms the pause timer.
func (s *Session) reveal(gen uint64, pause time.Duration, arm func(time.Duration) clockwork.Timer) (domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ownsLocked(gen) || s.index >= len(s.quiz.Questions) {
		return domain.Message{}, false
	}
	s.revealed = true
	s.timer = arm(pause)
	return domain.Message{
		Type: domain.MsgQuestionResults,
		Payload: domain.QuestionResultsPayload{
			QuestionNumber: s.index + 1,
			CorrectAnswer:  s.quiz.Questions[s.index].CorrectAnswer,
			Scores:         s.scoresLocked(),
		},
	}, true
}

func (s *Session) advance(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ownsLocked(gen) {
		return false
	}
	s.timer = nil
	s.index++
	return true
}

// finish ends the game. changed is false when it was already finished.
func (s *Session) finish() (ranking []domain.RankingEntry, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.GameFinished {
		return s.rankingLocked(), false
	}
	msg := s.finishLocked()
	return msg.Payload.(domain.GameFinishedPayload).FinalScores, true
}

func (s *Session) finishLocked() domain.Message {
	s.stopTimerLocked()
	s.state = domain.GameFinished
	s.generation++
	return domain.Message{
		Type:    domain.MsgGameFinished,
		Payload: domain.GameFinishedPayload{FinalScores: s.rankingLocked()},
	}
}

// cancel stops any pending timer and orphans the running chain.
func (s *Session) cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.generation++
}

func (s *Session) currentQuestion() (domain.Question, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.GamePlaying || s.index >= len(s.quiz.Questions) {
		return domain.Question{}, 0, domain.ErrNoActiveQuestion
	}
	return s.quiz.Questions[s.index], s.index + 1, nil
}

func (s *Session) submit(playerID, answer string, elapsed float64) (domain.AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.GamePlaying || s.index >= len(s.quiz.Questions) {
		return domain.AnswerResult{}, domain.ErrNoActiveQuestion
	}
	if _, ok := s.players[playerID]; !ok {
		return domain.AnswerResult{}, domain.ErrPlayerNotFound
	}
	if s.strict {
		if s.revealed {
			return domain.AnswerResult{}, domain.ErrNoActiveQuestion
		}
		if _, done := s.answered[playerID]; done {
			return domain.AnswerResult{}, domain.ErrAlreadyAnswered
		}
	}

	result := Score(s.quiz.Questions[s.index], answer, elapsed)
	s.scores[playerID] += result.PointsEarned
	s.answered[playerID] = struct{}{}
	return result, nil
}

// setConnected toggles the player's connected flag. It reports whether the
// player exists and whether the flag changed.
func (s *Session) setConnected(playerID string, connected bool) (exists, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[playerID]
	if !ok {
		return false, false
	}
	changed = player.Connected != connected
	player.Connected = connected
	return true, changed
}

func (s *Session) snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	number := 0
	if s.state == domain.GamePlaying && s.index < len(s.quiz.Questions) {
		number = s.index + 1
	}
	return domain.SessionSnapshot{
		ID:             s.id,
		QuizID:         s.quiz.ID,
		State:          s.state,
		Players:        s.rosterLocked(),
		Scores:         s.scoresLocked(),
		QuestionNumber: number,
		TotalQuestions: len(s.quiz.Questions),
		CreatedAt:      s.createdAt,
	}
}

func (s *Session) ownsLocked(gen uint64) bool {
	return gen == s.generation && s.state == domain.GamePlaying
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) rosterLocked() []domain.Player {
	roster := make([]domain.Player, 0, len(s.order))
	for _, id := range s.order {
		roster = append(roster, *s.players[id])
	}
	return roster
}

func (s *Session) scoresLocked() map[string]int {
	scores := make(map[string]int, len(s.scores))
	for id, score := range s.scores {
		scores[id] = score
	}
	return scores
}

// rankingLocked orders players by score, highest first. Ties keep join order.
func (s *Session) rankingLocked() []domain.RankingEntry {
	entries := make([]domain.RankingEntry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, domain.RankingEntry{
			PlayerID: id,
			Name:     s.players[id].Name,
			Score:    s.scores[id],
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries
}
