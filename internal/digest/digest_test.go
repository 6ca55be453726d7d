package digest

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/PatelGH0512/stocklabs/internal/commentary"
	"github.com/PatelGH0512/stocklabs/internal/models"
	"github.com/PatelGH0512/stocklabs/internal/notify"
	"github.com/PatelGH0512/stocklabs/internal/store"
)

type fakeNews struct {
	articles map[string][]models.NewsArticle
	err      error
	requests [][]string
}

func (f *fakeNews) GetNews(ctx context.Context, symbols []string) ([]models.NewsArticle, error) {
	f.requests = append(f.requests, symbols)
	if f.err != nil {
		return nil, f.err
	}
	var out []models.NewsArticle
	for _, s := range symbols {
		out = append(out, f.articles[s]...)
	}
	return out, nil
}

type digestRecorder struct {
	digests []string
	emails  []string
	err     error
}

func (d *digestRecorder) SendAlert(ctx context.Context, n notify.AlertNotification) error {
	return nil
}

func (d *digestRecorder) SendDigest(ctx context.Context, email, date, content string) error {
	if d.err != nil {
		return d.err
	}
	d.emails = append(d.emails, email)
	d.digests = append(d.digests, content)
	return nil
}

func newDigestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "digest.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRunSendsPerUserDigest(t *testing.T) {
	st := newDigestStore(t)
	ctx := context.Background()

	if err := st.SaveUser(ctx, &models.User{ID: "u1", Email: "one@example.com"}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	if err := st.AddToWatchlist(ctx, &models.WatchlistItem{UserID: "u1", Symbol: "AAPL", AddedAt: time.Now()}); err != nil {
		t.Fatalf("AddToWatchlist: %v", err)
	}

	news := &fakeNews{articles: map[string][]models.NewsArticle{
		"AAPL": {{Headline: "Apple ships", Source: "Wire", Datetime: time.Now()}},
	}}
	recorder := &digestRecorder{}
	job := NewJob(st, news, commentary.NewGenerator(nil), recorder, zerolog.Nop())

	sent, err := job.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sent != 1 {
		t.Fatalf("sent = %d, want 1", sent)
	}
	if recorder.emails[0] != "one@example.com" {
		t.Errorf("recipient = %q", recorder.emails[0])
	}
	if !strings.Contains(recorder.digests[0], "Apple ships") {
		t.Errorf("digest = %q", recorder.digests[0])
	}
	if len(news.requests) != 1 || len(news.requests[0]) != 1 || news.requests[0][0] != "AAPL" {
		t.Errorf("news requests = %v", news.requests)
	}
}

func TestRunSkipsUsersWithoutEmail(t *testing.T) {
	st := newDigestStore(t)
	ctx := context.Background()
	if err := st.SaveUser(ctx, &models.User{ID: "u1", Email: ""}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}

	recorder := &digestRecorder{}
	job := NewJob(st, &fakeNews{}, commentary.NewGenerator(nil), recorder, zerolog.Nop())
	sent, err := job.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sent != 0 || len(recorder.emails) != 0 {
		t.Errorf("sent = %d, emails = %v", sent, recorder.emails)
	}
}

func TestRunIsolatesDeliveryFailures(t *testing.T) {
	st := newDigestStore(t)
	ctx := context.Background()
	for _, u := range []models.User{
		{ID: "u1", Email: "one@example.com"},
		{ID: "u2", Email: "two@example.com"},
	} {
		u := u
		if err := st.SaveUser(ctx, &u); err != nil {
			t.Fatalf("SaveUser: %v", err)
		}
	}

	// All sends fail; every user is skipped but the run completes.
	recorder := &digestRecorder{err: errors.New("mailbox full")}
	job := NewJob(st, &fakeNews{}, commentary.NewGenerator(nil), recorder, zerolog.Nop())
	sent, err := job.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sent != 0 {
		t.Errorf("sent = %d, want 0", sent)
	}
}

func TestNextRun(t *testing.T) {
	cases := []struct {
		now  time.Time
		hour int
		want time.Time
	}{
		{time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), 12, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)},
		{time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), 12, time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)},
		{time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC), 12, time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		if got := nextRun(tc.now, tc.hour); !got.Equal(tc.want) {
			t.Errorf("nextRun(%v, %d) = %v, want %v", tc.now, tc.hour, got, tc.want)
		}
	}
}
