package events

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"trivia-session-service/internal/domain"
)

func TestSubject(t *testing.T) {
	p := NewPublisher(nil, "")
	if got := p.Subject("ABC234", domain.MsgNewQuestion); got != "quiz.games.ABC234.new_question" {
		t.Fatalf("unexpected subject %q", got)
	}
	p = NewPublisher(nil, "staging.trivia")
	if got := p.Subject("ABC234", domain.MsgGameFinished); got != "staging.trivia.ABC234.game_finished" {
		t.Fatalf("unexpected subject %q", got)
	}
}

// TestPublishRoundTrip needs a running server: NATS_URL=nats://127.0.0.1:4222.
func TestPublishRoundTrip(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}

	pub, err := Connect(url, "test.trivia")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("subscriber connect: %v", err)
	}
	defer nc.Close()

	sub, err := nc.SubscribeSync("test.trivia.ABC234.>")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	pub.Publish("ABC234", domain.Message{
		Type:    domain.MsgPlayerDisconnected,
		Payload: domain.PlayerDisconnectedPayload{PlayerID: "p1"},
	})

	msg, err := sub.NextMsg(5 * time.Second)
	if err != nil {
		t.Fatalf("next msg: %v", err)
	}
	if msg.Subject != "test.trivia.ABC234.player_disconnected" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	var decoded struct {
		Type    string `json:"type"`
		Payload struct {
			PlayerID string `json:"playerId"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(msg.Data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Payload.PlayerID != "p1" {
		t.Fatalf("unexpected payload %+v", decoded)
	}
}
