package domain

import (
	"fmt"
	"testing"
)

func TestErrorClassesAreDisjoint(t *testing.T) {
	cases := []struct {
		err        error
		notFound   bool
		conflict   bool
		capacity   bool
		noQuestion bool
	}{
		{ErrQuizNotFound, true, false, false, false},
		{ErrSessionNotFound, true, false, false, false},
		{ErrPlayerNotFound, true, false, false, false},
		{ErrGameAlreadyStarted, false, true, false, false},
		{ErrGameFinished, false, true, false, false},
		{ErrAlreadyAnswered, false, true, false, false},
		{ErrGameFull, false, false, true, false},
		{ErrNoActiveQuestion, false, false, false, true},
		{fmt.Errorf("join: %w", ErrGameFull), false, false, true, false},
		{ErrInvalidQuiz, false, false, false, false},
	}
	for _, tc := range cases {
		if IsNotFound(tc.err) != tc.notFound ||
			IsConflict(tc.err) != tc.conflict ||
			IsCapacityExceeded(tc.err) != tc.capacity ||
			IsNoActiveQuestion(tc.err) != tc.noQuestion {
			t.Fatalf("unexpected classification for %v", tc.err)
		}
	}
}
