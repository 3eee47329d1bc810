package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type RecordType string

const (
	RecordIntake RecordType = "intake"
	RecordReport RecordType = "report"
)

// DisplayLayout renders timestamps day-first, as the care teams read them.
const DisplayLayout = "02-01-2006 15:04:05"

func (t RecordType) Valid() bool {
	return t == RecordIntake || t == RecordReport
}

// Label is the tag used in combined summary text.
func (t RecordType) Label() string {
	if t == RecordIntake {
		return "[Intake]"
	}
	return "[Report]"
}

// UnmarshalJSON also accepts the Dutch "rapportage" written by older front ends.
func (t *RecordType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRecordType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func ParseRecordType(s string) (RecordType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "intake":
		return RecordIntake, nil
	case "report", "rapportage":
		return RecordReport, nil
	default:
		return "", fmt.Errorf("unknown record type %q", s)
	}
}

// Record is one saved intake or report. Records are immutable once appended.
type Record struct {
	ID                 string     `json:"id"`
	Type               RecordType `json:"type"`
	Client             string     `json:"client"`
	BirthDate          string     `json:"birthDate"`
	Transcript         string     `json:"transcript"`
	OriginalTranscript string     `json:"originalTranscript"`
	TranslatedFrom     string     `json:"translatedFrom"`
	Analysis           string     `json:"analysis"`
	Notes              string     `json:"notes"`
	Tags               string     `json:"tags"`
	CreatedAt          time.Time  `json:"createdAt"`
}

func (r Record) DisplayTime(loc *time.Location) string {
	if r.CreatedAt.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return r.CreatedAt.In(loc).Format(DisplayLayout)
}

// SummaryText is the text a record contributes to a weekly summary.
func (r Record) SummaryText() string {
	if r.Analysis != "" {
		return r.Analysis
	}
	return r.OriginalTranscript
}
