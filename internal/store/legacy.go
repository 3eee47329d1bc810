package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// legacyEntry is the shape the browser-only version kept in localStorage.
type legacyEntry struct {
	Type                 string `json:"type"`
	Client               string `json:"client"`
	BirthDate            string `json:"birthDate"`
	Transcriptie         string `json:"transcriptie"`
	OriginalTranscriptie string `json:"originalTranscriptie"`
	TranslatedFrom       string `json:"translatedFrom"`
	Plan                 string `json:"plan"`
	Notes                string `json:"notes"`
	Tags                 string `json:"tags"`
	Date                 string `json:"date"`
}

// Date.toLocaleString renderings seen in exported data.
var legacyDateLayouts = []string{
	time.RFC3339,
	"2-1-2006 15:04:05",
	"2-1-2006, 15:04:05",
	"1/2/2006, 3:04:05 PM",
	"2/1/2006, 15:04:05",
	"2.1.2006, 15:04:05",
	"2006-01-02 15:04:05",
}

// ParseLegacyDate returns the zero time when no layout matches.
func ParseLegacyDate(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range legacyDateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ImportLegacy reads a JSON dump of the old "zorg_data" localStorage value and
// appends its entries, keeping their original timestamps.
func (s *RecordStore) ImportLegacy(ctx context.Context, filePath string, loc *time.Location) (int, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read legacy file %s: %w", filePath, err)
	}

	var entries []legacyEntry
	if err := json.Unmarshal(content, &entries); err != nil {
		return 0, fmt.Errorf("failed to parse legacy file %s: %w", filePath, err)
	}

	records := make([]Record, 0, len(entries))
	for i, e := range entries {
		typ, err := ParseRecordType(e.Type)
		if err != nil {
			s.log.Warn("skipping legacy entry with unknown type",
				zap.Int("position", i), zap.String("type", e.Type))
			continue
		}

		createdAt := ParseLegacyDate(e.Date, loc)
		if createdAt.IsZero() {
			s.log.Warn("legacy entry has unparseable date",
				zap.Int("position", i), zap.String("date", e.Date))
		}

		records = append(records, Record{
			ID:                 uuid.NewString(),
			Type:               typ,
			Client:             e.Client,
			BirthDate:          e.BirthDate,
			Transcript:         e.Transcriptie,
			OriginalTranscript: e.OriginalTranscriptie,
			TranslatedFrom:     e.TranslatedFrom,
			Analysis:           e.Plan,
			Notes:              e.Notes,
			Tags:               e.Tags,
			CreatedAt:          createdAt,
		})
	}

	if len(records) == 0 {
		s.log.Info("no legacy entries to import", zap.String("file", filePath))
		return 0, nil
	}

	if _, err := s.appendRaw(ctx, records); err != nil {
		return 0, err
	}
	s.log.Info("imported legacy entries", zap.Int("count", len(records)), zap.String("file", filePath))
	return len(records), nil
}
