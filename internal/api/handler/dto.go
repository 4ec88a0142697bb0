package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finbook-ledger/internal/domain/account"
	"github.com/finbook-ledger/internal/domain/budget"
	"github.com/finbook-ledger/internal/domain/recurring"
	"github.com/finbook-ledger/internal/domain/transaction"
)

// CreateAccountRequest represents a request to create a new account
type CreateAccountRequest struct {
	Name            string          `json:"name" binding:"required"`
	Type            string          `json:"type" binding:"required,oneof=cash bank credit_card investment e_wallet"`
	OpeningBalance  decimal.Decimal `json:"opening_balance"`
	CreditLimit     decimal.Decimal `json:"credit_limit"`
	Currency        string          `json:"currency" binding:"required,len=3"`
	IncludeNetWorth *bool           `json:"include_net_worth"`
}

// UpdateAccountRequest represents a partial account update
type UpdateAccountRequest struct {
	Name            *string `json:"name"`
	IncludeNetWorth *bool   `json:"include_net_worth"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	Balance         string `json:"balance"`
	CreditLimit     string `json:"credit_limit"`
	Currency        string `json:"currency"`
	Active          bool   `json:"active"`
	IncludeNetWorth bool   `json:"include_net_worth"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:              acc.ID.String(),
		Name:            acc.Name,
		Type:            string(acc.Type),
		Balance:         acc.Balance.String(),
		CreditLimit:     acc.CreditLimit.String(),
		Currency:        acc.Currency,
		Active:          acc.Active,
		IncludeNetWorth: acc.IncludeNetWorth,
		CreatedAt:       acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       acc.UpdatedAt.Format(time.RFC3339),
	}
}

// CreateCategoryRequest represents a request to create a category
type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required"`
	Kind string `json:"kind" binding:"required,oneof=income expense"`
}

// UpdateCategoryRequest represents a category rename or rekind
type UpdateCategoryRequest struct {
	Name *string `json:"name"`
	Kind *string `json:"kind" binding:"omitempty,oneof=income expense"`
}

// CreateTransactionRequest represents a request to create a transaction
type CreateTransactionRequest struct {
	AccountID   string          `json:"account_id" binding:"required,uuid"`
	CategoryID  string          `json:"category_id" binding:"required,uuid"`
	Type        string          `json:"type" binding:"required,oneof=income expense"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Date        time.Time       `json:"date" binding:"required"`
	Description string          `json:"description"`
	Notes       string          `json:"notes"`
	Tags        []string        `json:"tags"`
	Cleared     bool            `json:"cleared"`
}

// UpdateTransactionRequest represents a partial transaction update. Omitted
// fields keep their stored values.
type UpdateTransactionRequest struct {
	AccountID         *string          `json:"account_id" binding:"omitempty,uuid"`
	CategoryID        *string          `json:"category_id" binding:"omitempty,uuid"`
	TransferAccountID *string          `json:"transfer_account_id" binding:"omitempty,uuid"`
	Type              *string          `json:"type" binding:"omitempty,oneof=income expense transfer"`
	Amount            *decimal.Decimal `json:"amount"`
	Date              *time.Time       `json:"date"`
	Description       *string          `json:"description"`
	Notes             *string          `json:"notes"`
	Tags              *[]string        `json:"tags"`
	Cleared           *bool            `json:"cleared"`
}

// CreateTransferRequest represents a request to move money between accounts
type CreateTransferRequest struct {
	FromAccountID string          `json:"from_account_id" binding:"required,uuid"`
	ToAccountID   string          `json:"to_account_id" binding:"required,uuid"`
	CategoryID    string          `json:"category_id" binding:"required,uuid"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Date          time.Time       `json:"date" binding:"required"`
	Description   string          `json:"description"`
}

// BulkDeleteRequest represents a request to delete several transactions
type BulkDeleteRequest struct {
	TransactionIDs []string `json:"transaction_ids" binding:"required,min=1,dive,uuid"`
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID                string   `json:"id"`
	AccountID         string   `json:"account_id"`
	CategoryID        string   `json:"category_id"`
	TransferAccountID string   `json:"transfer_account_id,omitempty"`
	Type              string   `json:"type"`
	Amount            string   `json:"amount"`
	Date              string   `json:"date"`
	Description       string   `json:"description,omitempty"`
	Notes             string   `json:"notes,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	Cleared           bool     `json:"cleared"`
	TemplateID        string   `json:"template_id,omitempty"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
}

func mapTransactionToResponse(tx *transaction.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:          tx.ID.String(),
		AccountID:   tx.AccountID.String(),
		CategoryID:  tx.CategoryID.String(),
		Type:        string(tx.Type),
		Amount:      tx.Amount.String(),
		Date:        tx.Date.Format(time.RFC3339),
		Description: tx.Description,
		Notes:       tx.Notes,
		Tags:        tx.Tags,
		Cleared:     tx.Cleared,
		CreatedAt:   tx.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   tx.UpdatedAt.Format(time.RFC3339),
	}
	if tx.TransferAccountID != nil {
		resp.TransferAccountID = tx.TransferAccountID.String()
	}
	if tx.TemplateID != nil {
		resp.TemplateID = tx.TemplateID.String()
	}
	return resp
}

// CreateRecurringRequest represents a request to create a recurring template
type CreateRecurringRequest struct {
	AccountID      string          `json:"account_id" binding:"required,uuid"`
	CategoryID     string          `json:"category_id" binding:"required,uuid"`
	Type           string          `json:"type" binding:"required,oneof=income expense"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	Description    string          `json:"description"`
	Frequency      string          `json:"frequency" binding:"required,oneof=daily weekly monthly yearly"`
	Interval       int             `json:"interval" binding:"required,min=1"`
	StartDate      time.Time       `json:"start_date" binding:"required"`
	EndDate        *time.Time      `json:"end_date"`
	MaxOccurrences int             `json:"max_occurrences" binding:"min=0"`
}

// UpdateRecurringRequest represents a partial template update
type UpdateRecurringRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Description *string          `json:"description"`
	Active      *bool            `json:"active"`
}

// RecurringResponse represents a recurring template in API responses
type RecurringResponse struct {
	ID               string `json:"id"`
	AccountID        string `json:"account_id"`
	CategoryID       string `json:"category_id"`
	Type             string `json:"type"`
	Amount           string `json:"amount"`
	Description      string `json:"description,omitempty"`
	Frequency        string `json:"frequency"`
	Interval         int    `json:"interval"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date,omitempty"`
	NextOccurrence   string `json:"next_occurrence"`
	MaxOccurrences   int    `json:"max_occurrences"`
	OccurrencesCount int    `json:"occurrences_count"`
	Active           bool   `json:"active"`
}

func mapTemplateToResponse(tpl *recurring.Template) RecurringResponse {
	resp := RecurringResponse{
		ID:               tpl.ID.String(),
		AccountID:        tpl.AccountID.String(),
		CategoryID:       tpl.CategoryID.String(),
		Type:             string(tpl.Type),
		Amount:           tpl.Amount.String(),
		Description:      tpl.Description,
		Frequency:        string(tpl.Frequency),
		Interval:         tpl.Interval,
		StartDate:        tpl.StartDate.Format(time.RFC3339),
		NextOccurrence:   tpl.NextOccurrence.Format(time.RFC3339),
		MaxOccurrences:   tpl.MaxOccurrences,
		OccurrencesCount: tpl.OccurrencesCount,
		Active:           tpl.Active,
	}
	if tpl.EndDate != nil {
		resp.EndDate = tpl.EndDate.Format(time.RFC3339)
	}
	return resp
}

// CreateBudgetRequest represents a request to create a monthly budget
type CreateBudgetRequest struct {
	CategoryID     string          `json:"category_id" binding:"required,uuid"`
	Month          string          `json:"month" binding:"required"` // YYYY-MM
	Limit          decimal.Decimal `json:"limit" binding:"required"`
	AlertThreshold decimal.Decimal `json:"alert_threshold"`
}

// UpdateBudgetRequest represents a partial budget update
type UpdateBudgetRequest struct {
	Limit          *decimal.Decimal `json:"limit"`
	AlertThreshold *decimal.Decimal `json:"alert_threshold"`
}

// BudgetResponse represents a budget in API responses
type BudgetResponse struct {
	ID             string `json:"id"`
	CategoryID     string `json:"category_id"`
	Month          string `json:"month"`
	Limit          string `json:"limit"`
	AlertThreshold string `json:"alert_threshold"`
}

// BudgetSummaryResponse pairs a budget with its period-to-date spend
type BudgetSummaryResponse struct {
	Budget    BudgetResponse `json:"budget"`
	Spent     string         `json:"spent"`
	Remaining string         `json:"remaining"`
}

func mapBudgetToResponse(b *budget.Budget) BudgetResponse {
	return BudgetResponse{
		ID:             b.ID.String(),
		CategoryID:     b.CategoryID.String(),
		Month:          b.Month.Format("2006-01"),
		Limit:          b.Limit.String(),
		AlertThreshold: b.AlertThreshold.String(),
	}
}

func mapSummaryToResponse(s *budget.Summary) BudgetSummaryResponse {
	return BudgetSummaryResponse{
		Budget:    mapBudgetToResponse(s.Budget),
		Spent:     s.Spent.String(),
		Remaining: s.Remaining.String(),
	}
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}
