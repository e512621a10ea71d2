package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"trivia-session-service/internal/domain"
)

// RunReaper removes stale games every ReapInterval until ctx is done.
func (g *GameService) RunReaper(ctx context.Context) {
	if g.cfg.ReapInterval <= 0 || g.cfg.SessionTTL <= 0 {
		return
	}
	ticker := g.clock.NewTicker(g.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if n := g.Reap(); n > 0 {
				log.Info().Int("removed", n).Msg("stale games cleaned up")
			}
		}
	}
}

// Reap removes games older than SessionTTL that are finished, or still waiting
// with nobody connected. Playing games are never reaped.
func (g *GameService) Reap() int {
	now := g.clock.Now()
	removed := 0
	for _, session := range g.sessions.List() {
		if now.Sub(session.CreatedAt()) <= g.cfg.SessionTTL {
			continue
		}
		switch session.State() {
		case domain.GameFinished:
		case domain.GameWaiting:
			if g.registry.Count(session.ID()) > 0 {
				continue
			}
		default:
			continue
		}
		g.Remove(session.ID())
		removed++
	}
	return removed
}
