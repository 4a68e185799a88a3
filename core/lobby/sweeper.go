package lobby

import (
	"time"

	"github.com/trezcool/darasa/core"
)

// Sweeper is the recurring background check that expires running lobbies
// whose deadline passed (the server wall clock is authoritative, clients only
// render countdowns) and drops terminal lobbies once their grace period
// elapsed. Expiry goes through the same per-lobby exclusion region as every
// other transition, so a sweep racing an instructor force-end is harmless.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	grace    time.Duration

	stop chan struct{}
	done chan struct{}
}

func NewSweeper(svc *Service, conf core.LobbyConfig) *Sweeper {
	return &Sweeper{
		svc:      svc,
		interval: conf.SweepInterval,
		grace:    conf.TerminalGracePeriod,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run blocks until Stop is called. Start it in its own goroutine.
func (sw *Sweeper) Run() {
	defer close(sw.done)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sw.Sweep(core.NowFunc())
		case <-sw.stop:
			return
		}
	}
}

// Sweep runs a single pass.
func (sw *Sweeper) Sweep(now time.Time) {
	for _, l := range sw.svc.List() {
		switch {
		case l.Status == StatusRunning && !now.Before(l.Deadline()):
			sw.svc.Expire(l.ID)
		case l.Status.Terminal() && !l.EndedAt.IsZero() && now.Sub(l.EndedAt) >= sw.grace:
			sw.svc.RemoveTerminal(l.ID)
		}
	}
}

func (sw *Sweeper) Stop() {
	close(sw.stop)
	<-sw.done
}
