package domain

// Message kinds pushed over the real-time channel.
const (
	MsgPlayerJoined       = "player_joined"
	MsgNewQuestion        = "new_question"
	MsgQuestionResults    = "question_results"
	MsgPlayerDisconnected = "player_disconnected"
	MsgGameFinished       = "game_finished"
	MsgAnswerResult       = "answer_result"
	MsgSessionState       = "session_state"
	MsgPong               = "pong"
	MsgError              = "error"

	MsgPing = "ping"
)

// Message is the envelope for every outbound frame.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// PlayerJoinedPayload carries the roster after a join.
type PlayerJoinedPayload struct {
	Player  Player   `json:"player"`
	Players []Player `json:"players"`
}

// QuestionView is a question as shown to players: no correct answer.
type QuestionView struct {
	Type     QuestionType `json:"type"`
	MediaRef string       `json:"mediaRef"`
	Options  []string     `json:"options,omitempty"`
	Duration int          `json:"duration"`
}

// NewQuestionPayload announces the question on screen.
type NewQuestionPayload struct {
	QuestionNumber int          `json:"questionNumber"`
	TotalQuestions int          `json:"totalQuestions"`
	Question       QuestionView `json:"question"`
}

// QuestionResultsPayload is broadcast when a question's window closes.
type QuestionResultsPayload struct {
	QuestionNumber int            `json:"questionNumber"`
	CorrectAnswer  string         `json:"correctAnswer"`
	Scores         map[string]int `json:"scores"`
}

// PlayerDisconnectedPayload names the player whose channel dropped.
type PlayerDisconnectedPayload struct {
	PlayerID string `json:"playerId"`
}

// GameFinishedPayload carries the final ranking, highest score first.
type GameFinishedPayload struct {
	FinalScores []RankingEntry `json:"finalScores"`
}

// ErrorPayload is sent back on a malformed inbound frame.
type ErrorPayload struct {
	Message string `json:"message"`
}

// View strips the answer from q.
func (q Question) View() QuestionView {
	view := QuestionView{
		Type:     q.Type,
		MediaRef: q.MediaRef,
		Duration: q.Duration,
	}
	if q.Type == QuestionMultipleChoice {
		view.Options = append([]string(nil), q.Options...)
	}
	return view
}
