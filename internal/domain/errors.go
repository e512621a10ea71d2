package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrSessionNotFound is returned when a game code does not match a live session.
	ErrSessionNotFound = errors.New("game not found")
	// ErrPlayerNotFound is returned when a player id is not in the session roster.
	ErrPlayerNotFound = errors.New("player not found in game")
	// ErrGameAlreadyStarted rejects roster changes once questions are flowing.
	ErrGameAlreadyStarted = errors.New("game already started")
	// ErrGameFinished rejects transitions out of the terminal state.
	ErrGameFinished = errors.New("game already finished")
	// ErrGameFull is returned when the roster is at capacity.
	ErrGameFull = errors.New("game is full")
	// ErrNoActiveQuestion is returned when no question is on screen.
	ErrNoActiveQuestion = errors.New("no active question")
	// ErrAlreadyAnswered is returned in strict mode for a repeated submission.
	ErrAlreadyAnswered = errors.New("already answered this question")
	// ErrInvalidQuiz indicates malformed quiz input.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrMediaResolution wraps failures of the media resolver.
	ErrMediaResolution = errors.New("media resolution failed")
	// ErrConnectionClosed is returned when sending on a closed channel.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrSendBufferFull is returned when a client cannot keep up.
	ErrSendBufferFull = errors.New("send buffer full")
)

// IsNotFound reports whether err refers to an unknown quiz, session or player.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrQuizNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrPlayerNotFound)
}

// IsConflict reports whether err means the operation is invalid for the game's state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrGameAlreadyStarted) ||
		errors.Is(err, ErrGameFinished) ||
		errors.Is(err, ErrAlreadyAnswered)
}

// IsCapacityExceeded reports whether err means the roster is full.
func IsCapacityExceeded(err error) bool {
	return errors.Is(err, ErrGameFull)
}

// IsNoActiveQuestion reports whether err means no question is on screen.
func IsNoActiveQuestion(err error) bool {
	return errors.Is(err, ErrNoActiveQuestion)
}
