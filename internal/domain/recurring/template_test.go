package recurring

import (
	"testing"
	"time"

	"github.com/finbook-ledger/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMonthly(t *testing.T, start time.Time) *Template {
	t.Helper()
	tpl, err := NewTemplate(uuid.New(), uuid.New(), uuid.New(), transaction.TypeExpense,
		decimal.NewFromInt(50), "rent", FrequencyMonthly, 1, start, nil, 0)
	require.NoError(t, err)
	return tpl
}

func TestNewTemplate(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("transfer templates are rejected", func(t *testing.T) {
		_, err := NewTemplate(uuid.New(), uuid.New(), uuid.New(), transaction.TypeTransfer,
			decimal.NewFromInt(50), "", FrequencyMonthly, 1, start, nil, 0)
		assert.ErrorIs(t, err, transaction.ErrInvalidType)
	})

	t.Run("interval below one", func(t *testing.T) {
		_, err := NewTemplate(uuid.New(), uuid.New(), uuid.New(), transaction.TypeExpense,
			decimal.NewFromInt(50), "", FrequencyWeekly, 0, start, nil, 0)
		assert.ErrorIs(t, err, ErrInvalidInterval)
	})

	t.Run("first occurrence is the start date", func(t *testing.T) {
		tpl := newMonthly(t, start)
		assert.Equal(t, start, tpl.NextOccurrence)
		assert.True(t, tpl.Active)
	})
}

func TestTemplate_Due(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tpl := newMonthly(t, start)

	assert.True(t, tpl.Due(start))
	assert.True(t, tpl.Due(start.AddDate(0, 0, 1)))
	assert.False(t, tpl.Due(start.AddDate(0, 0, -1)))

	tpl.Active = false
	assert.False(t, tpl.Due(start), "inactive templates never fire")
}

func TestTemplate_Advance(t *testing.T) {
	start := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	t.Run("monthly advance", func(t *testing.T) {
		tpl := newMonthly(t, start)
		tpl.Advance()
		assert.Equal(t, 1, tpl.OccurrencesCount)
		assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), tpl.NextOccurrence,
			"Jan 31 + 1 month normalizes past February")
		assert.True(t, tpl.Active)
	})

	t.Run("weekly with interval", func(t *testing.T) {
		tpl, err := NewTemplate(uuid.New(), uuid.New(), uuid.New(), transaction.TypeIncome,
			decimal.NewFromInt(10), "", FrequencyWeekly, 2, start, nil, 0)
		require.NoError(t, err)
		tpl.Advance()
		assert.Equal(t, start.AddDate(0, 0, 14), tpl.NextOccurrence)
	})

	t.Run("deactivates at max occurrences", func(t *testing.T) {
		tpl, err := NewTemplate(uuid.New(), uuid.New(), uuid.New(), transaction.TypeExpense,
			decimal.NewFromInt(10), "", FrequencyMonthly, 1, start, nil, 3)
		require.NoError(t, err)
		tpl.OccurrencesCount = 2

		tpl.Advance()
		assert.Equal(t, 3, tpl.OccurrencesCount)
		assert.False(t, tpl.Active)
	})

	t.Run("deactivates past end date", func(t *testing.T) {
		end := start.AddDate(0, 0, 10)
		tpl, err := NewTemplate(uuid.New(), uuid.New(), uuid.New(), transaction.TypeExpense,
			decimal.NewFromInt(10), "", FrequencyMonthly, 1, start, &end, 0)
		require.NoError(t, err)

		tpl.Advance()
		assert.False(t, tpl.Active)
	})
}
