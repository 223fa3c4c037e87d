package sessions

import (
	"time"

	"github.com/rs/zerolog"
)

// Housekeeper periodically sweeps sessions that outlived maxAge so abandoned
// sign-ins do not accumulate.
type Housekeeper struct {
	Repo     Repo
	Logger   zerolog.Logger
	Interval time.Duration
	MaxAge   time.Duration

	now    func() time.Time
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeeper defaults a non-positive interval to one minute.
func NewHousekeeper(repo Repo, logger zerolog.Logger, interval, maxAge time.Duration) *Housekeeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Housekeeper{
		Repo:     repo,
		Logger:   logger,
		Interval: interval,
		MaxAge:   maxAge,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start is non-blocking. Call Stop to shut the worker down.
func (h *Housekeeper) Start() {
	go h.run()
	h.Logger.Info().Dur("interval", h.Interval).Dur("max_age", h.MaxAge).Msg("Session housekeeping started")
}

// Stop blocks until an in-progress sweep has finished.
func (h *Housekeeper) Stop() {
	close(h.stopCh)
	<-h.doneCh
	h.Logger.Info().Msg("Session housekeeping stopped")
}

func (h *Housekeeper) run() {
	defer close(h.doneCh)

	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.Sweep()
		case <-h.stopCh:
			return
		}
	}
}

// Sweep removes expired sessions and returns how many were removed.
func (h *Housekeeper) Sweep() int {
	if h.MaxAge <= 0 {
		return 0
	}
	removed := h.Repo.DeleteExpired(h.now().Add(-h.MaxAge))
	if removed > 0 {
		h.Logger.Debug().Int("removed", removed).Int("remaining", h.Repo.Len()).Msg("Swept expired sessions")
	}
	return removed
}
