package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"medisoft.com/zorgapp/internal/store"
)

const (
	DefaultSummaryWindow = 5 * 24 * time.Hour

	// NoActivitySummary is NoActivityText for the default window.
	NoActivitySummary = "No activity in the last 5 days."
	SummaryFailed     = "Summary generation failed."
	NoSummaryYet      = "No summary fetched yet."
)

// NoActivityText names the summary window in whole days when it is a multiple
// of a day, otherwise in hours.
func NoActivityText(window time.Duration) string {
	const day = 24 * time.Hour
	switch {
	case window == day:
		return "No activity in the last day."
	case window%day == 0:
		return fmt.Sprintf("No activity in the last %d days.", int(window/day))
	case window == time.Hour:
		return "No activity in the last hour."
	default:
		return fmt.Sprintf("No activity in the last %d hours.", int(window.Round(time.Hour)/time.Hour))
	}
}

// RecentRecords selects records created at or after now-window, in original order.
func RecentRecords(records []store.Record, now time.Time, window time.Duration) []store.Record {
	cutoff := now.Add(-window)
	var recent []store.Record
	for _, r := range records {
		if !r.CreatedAt.Before(cutoff) {
			recent = append(recent, r)
		}
	}
	return recent
}

// CombineForSummary renders recent records as type-tagged paragraphs.
func CombineForSummary(records []store.Record) string {
	parts := make([]string, 0, len(records))
	for _, r := range records {
		parts = append(parts, r.Type.Label()+" "+r.SummaryText())
	}
	return strings.Join(parts, "\n\n")
}

type SummaryService struct {
	analyser   Analyser
	cache      *SummaryCache
	log        *zap.Logger
	language   string
	window     time.Duration
	timeout    time.Duration
	noActivity string
}

type SummaryOptions struct {
	Language string
	Window   time.Duration
	Timeout  time.Duration
}

func NewSummaryService(analyser Analyser, cache *SummaryCache, log *zap.Logger, opts SummaryOptions) *SummaryService {
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.Window <= 0 {
		opts.Window = DefaultSummaryWindow
	}
	return &SummaryService{
		analyser:   analyser,
		cache:      cache,
		log:        log,
		language:   opts.Language,
		window:     opts.Window,
		timeout:    opts.Timeout,
		noActivity: NoActivityText(opts.Window),
	}
}

// NoActivity is the summary returned when the window holds no records.
func (s *SummaryService) NoActivity() string { return s.noActivity }

// Summarize builds the weekly summary for one client's records and stores it in
// the cache. Collaborator failures come back as SummaryFailed, never as errors.
func (s *SummaryService) Summarize(ctx context.Context, client string, records []store.Record, now time.Time) string {
	result := s.generate(ctx, client, records, now)
	s.cache.Set(client, result)
	return result
}

func (s *SummaryService) generate(ctx context.Context, client string, records []store.Record, now time.Time) string {
	recent := RecentRecords(records, now, s.window)
	if len(recent) == 0 {
		s.log.Debug("no recent records for weekly summary", zap.String("client", client))
		return s.noActivity
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	summary, err := s.analyser.Analyse(ctx, CombineForSummary(recent), s.language)
	if err != nil {
		s.log.Error("weekly summary failed",
			zap.String("client", client),
			zap.Int("records", len(recent)),
			zap.Error(err))
		return SummaryFailed
	}
	s.log.Info("weekly summary generated", zap.String("client", client), zap.Int("records", len(recent)))
	return summary
}

func (s *SummaryService) Cached(client string) (string, bool) {
	return s.cache.Get(client)
}

// All is a snapshot of every cached summary keyed by client.
func (s *SummaryService) All() map[string]string {
	return s.cache.All()
}

func (s *SummaryService) Reset() {
	s.cache.Flush()
}

// RefreshAll regenerates every group's summary sequentially.
func (s *SummaryService) RefreshAll(ctx context.Context, groups []ClientGroup, now time.Time) int {
	n := 0
	for _, g := range groups {
		if ctx.Err() != nil {
			break
		}
		s.Summarize(ctx, g.Client, g.Records, now)
		n++
	}
	return n
}
