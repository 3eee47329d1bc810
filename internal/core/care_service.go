package core

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"medisoft.com/zorgapp/internal/store"
)

// Entry pairs a record with its position in the full snapshot, which is the
// index delete and export address.
type Entry struct {
	Index  int          `json:"index"`
	Record store.Record `json:"record"`
}

// Dossier is a client group together with its cached weekly summary.
type Dossier struct {
	Client  string         `json:"client"`
	Intakes []store.Record `json:"intakes"`
	Reports []store.Record `json:"reports"`
	Summary string         `json:"summary"`
}

type CareService struct {
	records   *store.RecordStore
	summaries *SummaryService
	session   *Session
	log       *zap.Logger
	now       func() time.Time
}

func NewCareService(records *store.RecordStore, summaries *SummaryService, session *Session, log *zap.Logger) *CareService {
	return &CareService{
		records:   records,
		summaries: summaries,
		session:   session,
		log:       log,
		now:       time.Now,
	}
}

func (s *CareService) Session() *Session { return s.session }

// ListRecords returns the records whose client matches query, each with its
// index in the full snapshot.
func (s *CareService) ListRecords(query string) []Entry {
	q := strings.ToLower(query)
	all := s.records.Records()
	entries := make([]Entry, 0, len(all))
	for i, r := range all {
		if matchesName(r, q) {
			entries = append(entries, Entry{Index: i, Record: r})
		}
	}
	return entries
}

func (s *CareService) Record(index int) (store.Record, bool) {
	return s.records.At(index)
}

func (s *CareService) DeleteRecord(ctx context.Context, index int) ([]store.Record, error) {
	return s.records.RemoveAt(ctx, index)
}

// Reload rereads the persisted snapshot and drops every cached summary.
func (s *CareService) Reload(ctx context.Context) []store.Record {
	records := s.records.Load(ctx)
	s.summaries.Reset()
	s.log.Info("records reloaded", zap.Int("count", len(records)))
	return records
}

func (s *CareService) Groups() []ClientGroup {
	return GroupByClient(s.records.Records())
}

func (s *CareService) Dossiers() []Dossier {
	groups := s.Groups()
	cached := s.summaries.All()
	dossiers := make([]Dossier, 0, len(groups))
	for _, g := range groups {
		summary, ok := cached[g.Client]
		if !ok {
			summary = NoSummaryYet
		}
		dossiers = append(dossiers, Dossier{
			Client:  g.Client,
			Intakes: g.Intakes(),
			Reports: g.Reports(),
			Summary: summary,
		})
	}
	return dossiers
}

// WeeklySummary regenerates the summary for client from the current snapshot.
// A name that matches no record gets the no-activity text and is not cached.
func (s *CareService) WeeklySummary(ctx context.Context, client string) string {
	group, ok := FindGroup(s.Groups(), client)
	if !ok {
		return s.summaries.NoActivity()
	}
	return s.summaries.Summarize(ctx, client, group.Records, s.now())
}

// RefreshSummaries regenerates every client's summary.
func (s *CareService) RefreshSummaries(ctx context.Context) error {
	n := s.summaries.RefreshAll(ctx, s.Groups(), s.now())
	s.log.Info("weekly summaries refreshed", zap.Int("clients", n))
	return ctx.Err()
}
