package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"trivia-session-service/internal/domain"
)

// DefaultSubjectPrefix roots every game subject: <prefix>.<gameId>.<kind>.
const DefaultSubjectPrefix = "quiz.games"

// Publisher mirrors game messages onto NATS subjects for other services
// (stats, replays, TV displays on another instance).
type Publisher struct {
	nc     *nats.Conn
	prefix string
}

// Connect dials NATS with reconnect handlers and returns a Publisher.
func Connect(url, prefix string) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("trivia-session-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return NewPublisher(nc, prefix), nil
}

func NewPublisher(nc *nats.Conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Publisher{nc: nc, prefix: prefix}
}

// Subject returns the subject a message of kind for game id is published on.
func (p *Publisher) Subject(gameID, kind string) string {
	return p.prefix + "." + gameID + "." + kind
}

// Publish hands the message to the NATS client's outbound buffer. Failures are
// logged and dropped; game play never waits on NATS.
func (p *Publisher) Publish(gameID string, msg domain.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Str("type", msg.Type).Msg("marshal game event")
		return
	}
	if err := p.nc.Publish(p.Subject(gameID, msg.Type), data); err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Str("type", msg.Type).Msg("publish game event")
	}
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}
