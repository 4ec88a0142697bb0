package recurring

import (
	"errors"
	"time"

	"github.com/finbook-ledger/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidFrequency = errors.New("invalid recurrence frequency")
	ErrInvalidInterval  = errors.New("recurrence interval must be at least 1")
	ErrInactiveTemplate = errors.New("recurring template is inactive")
)

// Frequency is the base unit a template advances by
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Valid reports whether f is a known frequency
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// Template describes a transaction the materializer creates on a schedule.
// It is not itself a ledger entry; firing it produces a concrete transaction
// through the ledger engine.
type Template struct {
	ID               uuid.UUID        `json:"id"`
	OwnerID          uuid.UUID        `json:"owner_id"`
	AccountID        uuid.UUID        `json:"account_id"`
	CategoryID       uuid.UUID        `json:"category_id"`
	Type             transaction.Type `json:"type"`
	Amount           decimal.Decimal  `json:"amount"`
	Description      string           `json:"description"`
	Frequency        Frequency        `json:"frequency"`
	Interval         int              `json:"interval"`
	StartDate        time.Time        `json:"start_date"`
	EndDate          *time.Time       `json:"end_date,omitempty"`
	NextOccurrence   time.Time        `json:"next_occurrence"`
	MaxOccurrences   int              `json:"max_occurrences"` // 0 means unbounded
	OccurrencesCount int              `json:"occurrences_count"`
	Active           bool             `json:"active"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewTemplate creates an active template firing first at startDate
func NewTemplate(ownerID, accountID, categoryID uuid.UUID, txType transaction.Type, amount decimal.Decimal, description string, freq Frequency, interval int, startDate time.Time, endDate *time.Time, maxOccurrences int) (*Template, error) {
	if !txType.Valid() || txType == transaction.TypeTransfer {
		return nil, transaction.ErrInvalidType
	}
	if !freq.Valid() {
		return nil, ErrInvalidFrequency
	}
	if interval < 1 {
		return nil, ErrInvalidInterval
	}
	if !amount.IsPositive() {
		return nil, errors.New("template amount must be positive")
	}

	now := time.Now().UTC()
	return &Template{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		AccountID:        accountID,
		CategoryID:       categoryID,
		Type:             txType,
		Amount:           amount,
		Description:      description,
		Frequency:        freq,
		Interval:         interval,
		StartDate:        startDate,
		EndDate:          endDate,
		NextOccurrence:   startDate,
		MaxOccurrences:   maxOccurrences,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Due reports whether the template should fire as of asOf
func (t *Template) Due(asOf time.Time) bool {
	return t.Active && !t.NextOccurrence.After(asOf)
}

// Advance records one firing: bumps the occurrence counter, moves
// next_occurrence forward by frequency x interval, and deactivates the
// template once max occurrences are reached or the end date is passed.
func (t *Template) Advance() {
	t.OccurrencesCount++
	t.NextOccurrence = t.nextAfter(t.NextOccurrence)
	t.UpdatedAt = time.Now().UTC()

	if t.MaxOccurrences > 0 && t.OccurrencesCount >= t.MaxOccurrences {
		t.Active = false
	}
	if t.EndDate != nil && t.NextOccurrence.After(*t.EndDate) {
		t.Active = false
	}
}

func (t *Template) nextAfter(from time.Time) time.Time {
	switch t.Frequency {
	case FrequencyDaily:
		return from.AddDate(0, 0, t.Interval)
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7*t.Interval)
	case FrequencyMonthly:
		return from.AddDate(0, t.Interval, 0)
	case FrequencyYearly:
		return from.AddDate(t.Interval, 0, 0)
	}
	return from
}
