package domain

import "time"

// QuestionType distinguishes how a question is answered.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionFreeText       QuestionType = "free_text"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	return t == QuestionMultipleChoice || t == QuestionFreeText
}

// GameState is the lifecycle phase of a game session.
type GameState string

const (
	GameWaiting  GameState = "waiting"
	GamePlaying  GameState = "playing"
	GameFinished GameState = "finished"
)

// Question is one playable clip with its expected answer. Immutable once stored.
type Question struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	MediaRef      string       `json:"mediaRef"`
	SourceURL     string       `json:"sourceUrl,omitempty"`
	Options       []string     `json:"options,omitempty"` // only for multiple_choice
	CorrectAnswer string       `json:"correctAnswer"`
	Duration      int          `json:"duration"` // seconds before auto-reveal
}

// DurationTime returns the display window as a time.Duration.
func (q Question) DurationTime() time.Duration {
	return time.Duration(q.Duration) * time.Second
}

// Quiz is an ordered list of questions.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
	CreatedAt time.Time  `json:"createdAt"`
}

// QuizSummary is the list view of a quiz.
type QuizSummary struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	QuestionsCount int       `json:"questionsCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Summary builds the list view for q.
func (q Quiz) Summary() QuizSummary {
	return QuizSummary{
		ID:             q.ID,
		Title:          q.Title,
		QuestionsCount: len(q.Questions),
		CreatedAt:      q.CreatedAt,
	}
}

// QuestionDraft is the admin input for a question before media resolution.
type QuestionDraft struct {
	Type          QuestionType `json:"type"`
	SourceURL     string       `json:"sourceUrl"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer"`
	Duration      int          `json:"duration,omitempty"`
}

// Player is a roster member. Players are never removed once joined.
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

// RankingEntry is one line of the final scoreboard.
type RankingEntry struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// AnswerSubmission models the scoring signal from clients.
type AnswerSubmission struct {
	PlayerID string  `json:"playerId"`
	Answer   string  `json:"answer"`
	Elapsed  float64 `json:"timeTaken"` // seconds since the question was shown
}

// AnswerResult summarizes the outcome of a submission for a single player.
type AnswerResult struct {
	IsCorrect    bool `json:"isCorrect"`
	PointsEarned int  `json:"pointsEarned"`
}

// SessionSnapshot is a read-only view of a game session.
type SessionSnapshot struct {
	ID             string         `json:"id"`
	QuizID         string         `json:"quizId"`
	State          GameState      `json:"state"`
	Players        []Player       `json:"players"`
	Scores         map[string]int `json:"scores"`
	QuestionNumber int            `json:"questionNumber"`
	TotalQuestions int            `json:"totalQuestions"`
	ConnectedCount int            `json:"connectedCount"`
	CreatedAt      time.Time      `json:"createdAt"`
}
