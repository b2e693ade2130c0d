package books

import "github.com/bookstacks/bookstacks/pkg/models"

// ReadingEffect describes what a status transition does to the book's
// reading history.
type ReadingEffect int

const (
	// ReadingEffectNone leaves readings untouched.
	ReadingEffectNone ReadingEffect = iota
	// ReadingEffectStart creates a new open reading starting today.
	ReadingEffectStart
	// ReadingEffectFinish closes the latest open reading with end_date set
	// to today and finished set to true. No-op when nothing is open.
	ReadingEffectFinish
	// ReadingEffectAbandon closes the latest open reading with end_date set
	// to today, leaving finished as-is. No-op when nothing is open.
	ReadingEffectAbandon
)

// TransitionEffects is the full set of side effects a status change should
// produce alongside the book save itself.
type TransitionEffects struct {
	Reading ReadingEffect
	// RecordChange signals that a status change row should be appended. Only
	// transitions from one known status to another are recorded; brand-new
	// books have no prior status to record.
	RecordChange bool
}

// ComputeTransitionEffects decides the side effects of moving a book from
// oldStatus to newStatus. oldStatus is nil for a brand-new book, which still
// fires the reading effect (a book created directly in "reading" gets its
// reading) but records no status change.
func ComputeTransitionEffects(oldStatus *string, newStatus string) TransitionEffects {
	if oldStatus != nil && *oldStatus == newStatus {
		return TransitionEffects{}
	}

	effects := TransitionEffects{RecordChange: oldStatus != nil}

	switch newStatus {
	case models.StatusReading:
		effects.Reading = ReadingEffectStart
	case models.StatusFinished:
		effects.Reading = ReadingEffectFinish
	case models.StatusDNF:
		effects.Reading = ReadingEffectAbandon
	}

	return effects
}
