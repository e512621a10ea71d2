package app

import (
	"math"
	"strings"

	"trivia-session-service/internal/domain"
)

const (
	// MaxPoints is awarded for a correct answer given instantly.
	MaxPoints = 1000
	// PointsDecayPerSecond is subtracted for every elapsed second.
	PointsDecayPerSecond = 100
)

// IsCorrect compares an answer to the canonical one ignoring case and surrounding whitespace.
func IsCorrect(question domain.Question, answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(question.CorrectAnswer))
}

// Points returns the time-decayed award for a correct answer, floored at 0.
func Points(elapsed float64) int {
	if math.IsNaN(elapsed) || math.IsInf(elapsed, 1) {
		return 0
	}
	if elapsed < 0 {
		elapsed = 0
	}
	points := MaxPoints - math.Floor(elapsed*PointsDecayPerSecond)
	if points < 0 {
		return 0
	}
	return int(points)
}

// Score evaluates a submission against question.
func Score(question domain.Question, answer string, elapsed float64) domain.AnswerResult {
	if !IsCorrect(question, answer) {
		return domain.AnswerResult{}
	}
	return domain.AnswerResult{IsCorrect: true, PointsEarned: Points(elapsed)}
}
