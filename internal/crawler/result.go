package crawler

import (
	"sigeduc-scraper/internal/store"
	"time"
)

type ItemStatus int

const (
	ITEM_OK ItemStatus = iota
	// ITEM_SKIPPED items were processed without error but produced nothing to
	// persist, ex. a unit that disappeared from the store.
	ITEM_SKIPPED
	ITEM_FAILED
)

func (s ItemStatus) String() string {
	switch s {
	case ITEM_OK:
		return "ok"
	case ITEM_SKIPPED:
		return "skipped"
	case ITEM_FAILED:
		return "failed"
	}
	return "unknown"
}

// ItemResult is the outcome of the navigate, extract and persist cycle of a
// single unit.
type ItemResult struct {
	Unit   string
	Status ItemStatus
	// Stage is the last stage the item reached.
	Stage State
	Err   error
	// Diagnostic is the html snapshot captured when the item failed.
	Diagnostic string
}

// StageResult is the outcome of a stage that extracts a whole page of records
// and persists them as one batch.
type StageResult struct {
	Found     int
	Persisted store.BatchResult
	Err       error
}

type Report struct {
	RunId      string
	StartedAt  time.Time
	FinishedAt time.Time
	// State is DONE unless the run ended early.
	State State
	// Trail lists every state the run went through in order.
	Trail []State

	List  StageResult
	Items []ItemResult
	// Members and Announcements are nil when their stage is not configured.
	Members       *StageResult
	Announcements *StageResult
}

func (r Report) Count(status ItemStatus) int {
	n := 0
	for _, item := range r.Items {
		if item.Status == status {
			n++
		}
	}
	return n
}

func (r Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
