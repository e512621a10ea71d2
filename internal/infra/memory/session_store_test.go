package memory

import (
	"testing"
	"time"

	"trivia-session-service/internal/app"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	quiz := sampleQuiz("quiz-1", time.Now())

	session := app.NewSession("ABC234", quiz, time.Now(), app.DefaultMaxPlayers, false)
	if !store.Add(session) {
		t.Fatalf("expected session added")
	}
	if store.Add(app.NewSession("ABC234", quiz, time.Now(), app.DefaultMaxPlayers, false)) {
		t.Fatalf("expected duplicate code rejected")
	}
	if got, ok := store.Get("ABC234"); !ok || got != session {
		t.Fatalf("expected session present")
	}
	if len(store.List()) != 1 {
		t.Fatalf("expected one session listed")
	}

	store.Delete("ABC234")
	if _, ok := store.Get("ABC234"); ok {
		t.Fatalf("expected session removed")
	}
}
