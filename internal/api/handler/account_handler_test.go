package handler

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/finbook-ledger/internal/domain/account"
)

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*account.Account, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Account), args.Error(1)
}

func (m *MockAccountRepository) Update(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockAccountRepository) LockForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepository) WithTx(_ pgx.Tx) account.Repository { return m }

func sampleAccount(owner uuid.UUID) *account.Account {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	return &account.Account{
		ID:              uuid.New(),
		OwnerID:         owner,
		Name:            "Checking",
		Type:            account.TypeBank,
		Balance:         decimal.RequireFromString("1000"),
		CreditLimit:     decimal.Zero,
		Currency:        "EUR",
		Active:          true,
		IncludeNetWorth: true,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestAccountHandler_Create(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	owner := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockAccountRepository)
		handler := NewAccountHandler(logger, mockRepo)

		mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(acc *account.Account) bool {
			return acc.OwnerID == owner &&
				acc.Name == "Checking" &&
				acc.Type == account.TypeBank &&
				acc.Balance.Equal(decimal.RequireFromString("1000")) &&
				acc.Active
		})).Return(nil)

		router := setupTestRouter()
		router.POST("/accounts", handler.Create)

		rr := doRequest(t, router, http.MethodPost, "/accounts", owner, CreateAccountRequest{
			Name:           "Checking",
			Type:           "bank",
			OpeningBalance: decimal.RequireFromString("1000"),
			Currency:       "EUR",
		})

		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp AccountResponse
		decodeData(t, rr, &resp)
		assert.Equal(t, "Checking", resp.Name)
		assert.Equal(t, "1000", resp.Balance)
		assert.True(t, resp.IncludeNetWorth)
		mockRepo.AssertExpectations(t)
	})

	t.Run("CreditCardWithoutLimit", func(t *testing.T) {
		mockRepo := new(MockAccountRepository)
		handler := NewAccountHandler(logger, mockRepo)

		router := setupTestRouter()
		router.POST("/accounts", handler.Create)

		rr := doRequest(t, router, http.MethodPost, "/accounts", owner, CreateAccountRequest{
			Name:     "Visa",
			Type:     "credit_card",
			Currency: "EUR",
		})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockRepo.AssertExpectations(t)
	})

	t.Run("NegativeOpeningBalance", func(t *testing.T) {
		mockRepo := new(MockAccountRepository)
		handler := NewAccountHandler(logger, mockRepo)

		router := setupTestRouter()
		router.POST("/accounts", handler.Create)

		rr := doRequest(t, router, http.MethodPost, "/accounts", owner, CreateAccountRequest{
			Name:           "Savings",
			Type:           "bank",
			OpeningBalance: decimal.RequireFromString("-50"),
			Currency:       "EUR",
		})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockRepo.AssertExpectations(t)
	})
}

func TestAccountHandler_GetByID(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	owner := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockAccountRepository)
		handler := NewAccountHandler(logger, mockRepo)

		acc := sampleAccount(owner)
		mockRepo.On("GetByID", mock.Anything, owner, acc.ID).Return(acc, nil)

		router := setupTestRouter()
		router.GET("/accounts/:id", handler.GetByID)

		rr := doRequest(t, router, http.MethodGet, "/accounts/"+acc.ID.String(), owner, nil)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp AccountResponse
		decodeData(t, rr, &resp)
		assert.Equal(t, acc.ID.String(), resp.ID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("ForeignAccountReadsAsMissing", func(t *testing.T) {
		mockRepo := new(MockAccountRepository)
		handler := NewAccountHandler(logger, mockRepo)

		id := uuid.New()
		mockRepo.On("GetByID", mock.Anything, owner, id).
			Return(nil, account.ErrAccountNotFound{AccountID: id})

		router := setupTestRouter()
		router.GET("/accounts/:id", handler.GetByID)

		rr := doRequest(t, router, http.MethodGet, "/accounts/"+id.String(), owner, nil)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		mockRepo.AssertExpectations(t)
	})
}

func TestAccountHandler_Update(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	owner := uuid.New()

	t.Run("RenameOnly", func(t *testing.T) {
		mockRepo := new(MockAccountRepository)
		handler := NewAccountHandler(logger, mockRepo)

		acc := sampleAccount(owner)
		mockRepo.On("GetByID", mock.Anything, owner, acc.ID).Return(acc, nil)
		mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(got *account.Account) bool {
			return got.Name == "Everyday" && got.Balance.Equal(decimal.RequireFromString("1000"))
		})).Return(nil)

		router := setupTestRouter()
		router.PATCH("/accounts/:id", handler.Update)

		name := "Everyday"
		rr := doRequest(t, router, http.MethodPatch, "/accounts/"+acc.ID.String(), owner, UpdateAccountRequest{
			Name: &name,
		})

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp AccountResponse
		decodeData(t, rr, &resp)
		assert.Equal(t, "Everyday", resp.Name)
		mockRepo.AssertExpectations(t)
	})

	t.Run("ConcurrentBalanceWriteConflicts", func(t *testing.T) {
		// A ledger unit commits between the handler's read and write, bumping
		// the row version. The rename must come back 409 rather than landing
		// with the stale balance it read.
		mockRepo := new(MockAccountRepository)
		handler := NewAccountHandler(logger, mockRepo)

		acc := sampleAccount(owner)
		mockRepo.On("GetByID", mock.Anything, owner, acc.ID).Return(acc, nil)
		mockRepo.On("Update", mock.Anything, mock.Anything).
			Return(account.ErrConcurrentModification{AccountID: acc.ID})

		router := setupTestRouter()
		router.PATCH("/accounts/:id", handler.Update)

		name := "Everyday"
		rr := doRequest(t, router, http.MethodPatch, "/accounts/"+acc.ID.String(), owner, UpdateAccountRequest{
			Name: &name,
		})

		assert.Equal(t, http.StatusConflict, rr.Code)
		mockRepo.AssertExpectations(t)
	})

	t.Run("EmptyNameRejected", func(t *testing.T) {
		mockRepo := new(MockAccountRepository)
		handler := NewAccountHandler(logger, mockRepo)

		acc := sampleAccount(owner)
		mockRepo.On("GetByID", mock.Anything, owner, acc.ID).Return(acc, nil)

		router := setupTestRouter()
		router.PATCH("/accounts/:id", handler.Update)

		name := ""
		rr := doRequest(t, router, http.MethodPatch, "/accounts/"+acc.ID.String(), owner, UpdateAccountRequest{
			Name: &name,
		})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockRepo.AssertExpectations(t)
	})
}

func TestAccountHandler_Deactivate(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	owner := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockAccountRepository)
		handler := NewAccountHandler(logger, mockRepo)

		acc := sampleAccount(owner)
		mockRepo.On("GetByID", mock.Anything, owner, acc.ID).Return(acc, nil)
		mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(got *account.Account) bool {
			return !got.Active && got.DeletedAt == nil
		})).Return(nil)

		router := setupTestRouter()
		router.DELETE("/accounts/:id", handler.Deactivate)

		rr := doRequest(t, router, http.MethodDelete, "/accounts/"+acc.ID.String(), owner, nil)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		require.False(t, acc.Active)
		mockRepo.AssertExpectations(t)
	})
}
