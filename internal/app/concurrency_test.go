package app_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"trivia-session-service/internal/app"
	"trivia-session-service/internal/domain"
)

func TestConcurrentJoinsNeverOverfill(t *testing.T) {
	f := newFixture(t, app.DefaultGameConfig())
	ctx := context.Background()

	const callers = 40
	var ok, full, other atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.games.Join(ctx, f.gameID, "player")
			switch {
			case err == nil:
				ok.Add(1)
			case domain.IsCapacityExceeded(err):
				full.Add(1)
			default:
				other.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if ok.Load() != app.DefaultMaxPlayers || full.Load() != callers-app.DefaultMaxPlayers || other.Load() != 0 {
		t.Fatalf("ok=%d full=%d other=%d", ok.Load(), full.Load(), other.Load())
	}
	snap, _ := f.games.Snapshot(ctx, f.gameID)
	if len(snap.Players) != app.DefaultMaxPlayers || len(snap.Scores) != app.DefaultMaxPlayers {
		t.Fatalf("expected %d players, got %+v", app.DefaultMaxPlayers, snap)
	}
}

func TestConcurrentAnswersAreAllCounted(t *testing.T) {
	f := newFixture(t, app.DefaultGameConfig())
	ctx := context.Background()
	alice := f.join(t, "Alice")
	bob := f.join(t, "Bob")
	if err := f.games.Start(ctx, f.gameID); err != nil {
		t.Fatalf("start: %v", err)
	}

	const submissions = 200
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < submissions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			player := alice.ID
			if i%2 == 1 {
				player = bob.ID
			}
			if _, err := f.games.SubmitAnswer(ctx, f.gameID, domain.AnswerSubmission{PlayerID: player, Answer: "Rick Astley", Elapsed: 2}); err != nil {
				t.Errorf("submit: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	snap, _ := f.games.Snapshot(ctx, f.gameID)
	want := submissions / 2 * 800
	if snap.Scores[alice.ID] != want || snap.Scores[bob.ID] != want {
		t.Fatalf("expected %d each, got %+v", want, snap.Scores)
	}
}

func TestConcurrentStartsLeaveOneTimerChain(t *testing.T) {
	f := newFixture(t, app.DefaultGameConfig())
	ctx := context.Background()
	display := f.display(t)

	const starts = 10
	var wg sync.WaitGroup
	begin := make(chan struct{})
	for i := 0; i < starts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-begin
			if err := f.games.Start(ctx, f.gameID); err != nil {
				t.Errorf("start: %v", err)
			}
		}()
	}
	close(begin)
	wg.Wait()

	for i := 0; i < starts; i++ {
		if q := display.expect(t, domain.MsgNewQuestion).Payload.(domain.NewQuestionPayload); q.QuestionNumber != 1 {
			t.Fatalf("expected question 1, got %d", q.QuestionNumber)
		}
	}

	f.clock.Advance(10 * time.Second)
	display.expect(t, domain.MsgQuestionResults)
	display.expectQuiet(t)
	if n := f.publisher.count(domain.MsgQuestionResults); n != 1 {
		t.Fatalf("expected one question_results, got %d", n)
	}
}
