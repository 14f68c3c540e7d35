package domain

import (
	"strconv"
	"strings"
	"time"
)

// EndedActivityIDsKey is the shared store list holding one entry per ended session.
const EndedActivityIDsKey = "ended_activity_ids"

// DiagnosticsLogKey holds free-form diagnostic lines. Correctness never depends on it.
const DiagnosticsLogKey = "logs"

const entrySeparator = ":"

type ActivityID string

type PresentationID string

type Outcome string

const (
	OutcomeRecorded       Outcome = "recorded"
	OutcomeAlreadyPresent Outcome = "already_present"
)

type LedgerEntry struct {
	ActivityID    ActivityID
	EndedAtMillis int64
}

func NewLedgerEntry(id ActivityID, endedAt time.Time) LedgerEntry {
	return LedgerEntry{ActivityID: id, EndedAtMillis: endedAt.UnixMilli()}
}

func (e LedgerEntry) String() string {
	return string(e.ActivityID) + entrySeparator + strconv.FormatInt(e.EndedAtMillis, 10)
}

func (e LedgerEntry) EndedAt() time.Time {
	return time.UnixMilli(e.EndedAtMillis)
}

// ParseLedgerEntry splits raw on the first ':' only. Activity ids may not
// contain ':', timestamps never do.
func ParseLedgerEntry(raw string) (LedgerEntry, error) {
	id, suffix, ok := strings.Cut(raw, entrySeparator)
	if !ok {
		return LedgerEntry{}, &MalformedEntryError{Raw: raw, Reason: "missing separator"}
	}
	if id == "" {
		return LedgerEntry{}, &MalformedEntryError{Raw: raw, Reason: "empty activity id"}
	}

	millis, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return LedgerEntry{}, &MalformedEntryError{Raw: raw, Reason: "non-integer timestamp"}
	}

	return LedgerEntry{ActivityID: ActivityID(id), EndedAtMillis: millis}, nil
}

// EntryActivityID returns the id component of a raw entry without requiring
// a well-formed timestamp.
func EntryActivityID(raw string) (ActivityID, bool) {
	id, _, ok := strings.Cut(raw, entrySeparator)
	if !ok || id == "" {
		return "", false
	}

	return ActivityID(id), true
}

func (id ActivityID) Validate() error {
	trimmed := strings.TrimSpace(string(id))
	if trimmed == "" {
		return ErrInvalidActivityID
	}
	if trimmed != string(id) || strings.Contains(string(id), entrySeparator) {
		return &InvalidActivityIDError{ID: string(id)}
	}

	return nil
}
