package lobby

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/quiz"
)

// GradeSink persists accepted grades. quiz.GradeRepository satisfies it.
type GradeSink interface {
	CreateGrade(ctx context.Context, grade quiz.Grade) error
}

type gradeKey struct {
	lobbyID uuid.UUID
	userID  string
}

// Collector enforces at-most-one accepted grade per (lobby, student) pair.
// The accept decision is final: downstream persistence failures are retried
// with backoff and never re-open the pair for submission.
type Collector struct {
	sink       GradeSink
	logger     core.Logger
	maxRetries int
	backoff    time.Duration

	mu       sync.Mutex
	accepted map[gradeKey]struct{}

	wg sync.WaitGroup // outstanding persistence work
}

func NewCollector(sink GradeSink, logger core.Logger, conf core.LobbyConfig) *Collector {
	return &Collector{
		sink:       sink,
		logger:     logger,
		maxRetries: conf.GradeRetryMax,
		backoff:    conf.GradeRetryBackoff,
		accepted:   make(map[gradeKey]struct{}),
	}
}

// Submit accepts the first submission for (lobbyID, userID) and rejects every
// later one with ErrAlreadySubmitted, concurrent duplicates included. On
// acceptance the grade is handed to the sink; a failed write is queued for
// bounded retries in the background, not dropped and not surfaced to the
// client whose submission already won.
func (c *Collector) Submit(ctx context.Context, lobbyID uuid.UUID, userID string, score int) error {
	key := gradeKey{lobbyID: lobbyID, userID: userID}

	c.mu.Lock()
	if _, dup := c.accepted[key]; dup {
		c.mu.Unlock()
		return ErrAlreadySubmitted
	}
	c.accepted[key] = struct{}{}
	c.mu.Unlock()

	grade := quiz.Grade{
		LobbyID:     lobbyID,
		UserID:      userID,
		Score:       score,
		SubmittedAt: core.NowFunc().UTC(),
	}
	if err := c.sink.CreateGrade(ctx, grade); err != nil {
		c.logger.Warn("lobby: grade write failed, queuing retries",
			errors.Wrapf(err, "persisting grade (%s, %s)", lobbyID, userID))
		c.wg.Add(1)
		go c.retry(grade)
	}
	return nil
}

// retry re-attempts the write with doubling backoff until it succeeds or the
// attempts are exhausted, in which case the grade is surfaced to the
// operational log only; the in-memory accept already happened.
func (c *Collector) retry(grade quiz.Grade) {
	defer c.wg.Done()

	backoff := c.backoff
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		time.Sleep(backoff)
		backoff *= 2

		if err := c.sink.CreateGrade(context.Background(), grade); err != nil {
			c.logger.Warn("lobby: grade write retry failed",
				errors.Wrapf(err, "persisting grade (%s, %s) attempt %d", grade.LobbyID, grade.UserID, attempt))
			continue
		}
		return
	}
	c.logger.Error("lobby: grade write abandoned after retries",
		map[string]interface{}{"lobby_id": grade.LobbyID.String(), "user_id": grade.UserID, "score": grade.Score})
}

// HasSubmitted reports whether the pair already has an accepted grade.
func (c *Collector) HasSubmitted(lobbyID uuid.UUID, userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.accepted[gradeKey{lobbyID: lobbyID, userID: userID}]
	return ok
}

// DropLobby discards the in-memory accepts for a removed lobby.
func (c *Collector) DropLobby(lobbyID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.accepted {
		if key.lobbyID == lobbyID {
			delete(c.accepted, key)
		}
	}
}

// Wait blocks until all queued persistence work drains, or ctx expires.
func (c *Collector) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
