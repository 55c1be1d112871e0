package journal

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/scarlet-home/scarletdash/internal/metrics"
	"github.com/scarlet-home/scarletdash/internal/storage"
)

// Pruner deletes journal entries past the retention window once a day
type Pruner struct {
	actions       storage.ActionStore
	pruneTime     time.Time // Time of day to prune (only hour and minute are used)
	retentionDays int
	logger        zerolog.Logger
	stopChan      chan struct{}
	done          chan struct{}
	startOnce     sync.Once
	stopOnce      sync.Once
	now           func() time.Time
}

// NewPruner creates a new journal pruner
func NewPruner(actions storage.ActionStore, pruneTime string, retentionDays int, logger zerolog.Logger) (*Pruner, error) {
	// Parse prune time (HH:MM format)
	parsedTime, err := time.Parse("15:04", pruneTime)
	if err != nil {
		return nil, err
	}

	return &Pruner{
		actions:       actions,
		pruneTime:     parsedTime,
		retentionDays: retentionDays,
		logger:        logger.With().Str("component", "journal-pruner").Logger(),
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
		now:           time.Now,
	}, nil
}

// Start begins the pruning loop. Only the first call has any effect.
func (p *Pruner) Start() {
	p.startOnce.Do(func() {
		go p.run()
		p.logger.Info().
			Str("prune_time", p.pruneTime.Format("15:04")).
			Int("retention_days", p.retentionDays).
			Msg("Journal pruner started")
	})
}

// Stop stops the pruning loop and waits for it to exit. It is safe to call
// more than once and on a pruner that was never started.
func (p *Pruner) Stop() {
	p.stopOnce.Do(func() {
		// A pruner stopped before Start never runs
		p.startOnce.Do(func() { close(p.done) })
		close(p.stopChan)
		<-p.done
		p.logger.Info().Msg("Journal pruner stopped")
	})
}

// run is the main scheduler loop
func (p *Pruner) run() {
	defer close(p.done)
	for {
		nextPrune := p.calculateNextPrune()
		waitDuration := nextPrune.Sub(p.now())

		p.logger.Debug().
			Time("next_prune", nextPrune).
			Dur("wait_duration", waitDuration).
			Msg("Scheduled next journal prune")

		timer := time.NewTimer(waitDuration)
		select {
		case <-timer.C:
			_, _ = p.Prune(context.Background())
		case <-p.stopChan:
			timer.Stop()
			return
		}
	}
}

// calculateNextPrune calculates the next prune time
func (p *Pruner) calculateNextPrune() time.Time {
	now := p.now()

	todayPrune := time.Date(
		now.Year(), now.Month(), now.Day(),
		p.pruneTime.Hour(), p.pruneTime.Minute(), 0, 0,
		now.Location(),
	)

	// Already past today's slot, schedule for tomorrow
	if now.After(todayPrune) {
		return todayPrune.AddDate(0, 0, 1)
	}

	return todayPrune
}

// Prune removes entries older than the retention window. A zero retention
// keeps everything.
func (p *Pruner) Prune(ctx context.Context) (int, error) {
	if p.retentionDays <= 0 {
		return 0, nil
	}

	cutoff := p.now().AddDate(0, 0, -p.retentionDays)
	deleted, err := p.actions.DeleteBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to prune journal")
		return 0, err
	}

	metrics.JournalEntriesPruned.Add(float64(deleted))
	p.logger.Info().
		Int("entries_deleted", deleted).
		Time("cutoff", cutoff).
		Msg("Journal pruned")
	return deleted, nil
}
