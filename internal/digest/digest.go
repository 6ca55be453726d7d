// Package digest mails users a daily summary of news for their watchlist.
package digest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/PatelGH0512/stocklabs/internal/commentary"
	"github.com/PatelGH0512/stocklabs/internal/models"
	"github.com/PatelGH0512/stocklabs/internal/notify"
	"github.com/PatelGH0512/stocklabs/internal/store"
)

// NewsSource fetches articles for a set of symbols.
type NewsSource interface {
	GetNews(ctx context.Context, symbols []string) ([]models.NewsArticle, error)
}

// Job assembles and sends the per-user news digest.
type Job struct {
	store     store.DataStore
	news      NewsSource
	generator *commentary.Generator
	notifier  notify.Notifier
	logger    zerolog.Logger
	now       func() time.Time
}

// NewJob creates a digest job.
func NewJob(st store.DataStore, news NewsSource, gen *commentary.Generator, notifier notify.Notifier, logger zerolog.Logger) *Job {
	return &Job{
		store:     st,
		news:      news,
		generator: gen,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// Run sends one digest per user. Per-user failures are logged and skipped so
// one bad mailbox never blocks the rest. It returns the number of digests
// sent.
func (j *Job) Run(ctx context.Context) (int, error) {
	users, err := j.store.ListUsers(ctx)
	if err != nil {
		return 0, err
	}

	date := j.now().Format("Jan 2, 2006")
	sent := 0

	for _, user := range users {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if user.Email == "" {
			continue
		}

		items, err := j.store.GetWatchlist(ctx, user.ID)
		if err != nil {
			j.logger.Warn().Err(err).Str("user_id", user.ID).Msg("watchlist fetch failed for digest")
			continue
		}
		symbols := make([]string, 0, len(items))
		for _, item := range items {
			symbols = append(symbols, item.Symbol)
		}

		articles, err := j.news.GetNews(ctx, symbols)
		if err != nil {
			j.logger.Warn().Err(err).Str("user_id", user.ID).Msg("news fetch failed for digest")
			continue
		}

		content := j.generator.NewsDigest(ctx, articles)
		if err := j.notifier.SendDigest(ctx, user.Email, date, content); err != nil {
			j.logger.Warn().Err(err).Str("user_id", user.ID).Msg("digest delivery failed")
			continue
		}
		sent++
	}

	j.logger.Info().Int("sent", sent).Int("users", len(users)).Msg("news digest run finished")
	return sent, nil
}

// Start runs the job once a day at the given UTC hour until the context is
// cancelled.
func (j *Job) Start(ctx context.Context, hour int) {
	go func() {
		for {
			next := nextRun(j.now().UTC(), hour)
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				if _, err := j.Run(ctx); err != nil {
					j.logger.Error().Err(err).Msg("news digest run failed")
				}
			}
		}
	}()
}

func nextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
