package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/finbook-ledger/internal/domain/account"
	"github.com/finbook-ledger/internal/domain/budget"
	"github.com/finbook-ledger/internal/domain/category"
	"github.com/finbook-ledger/internal/domain/recurring"
	"github.com/finbook-ledger/internal/domain/transaction"
	"github.com/finbook-ledger/internal/ledger"
)

// respondDomainError maps a domain error to its HTTP status. Invariant
// rejections are 422, missing resources 404, lock conflicts 409; anything
// unrecognized is a 500.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, account.ErrInsufficientFunds),
		errors.Is(err, account.ErrCreditLimitExceeded),
		errors.Is(err, account.ErrInactiveAccount),
		errors.Is(err, account.ErrInvalidAmount),
		errors.Is(err, transaction.ErrInvalidTransfer),
		errors.Is(err, transaction.ErrImmutableTransaction),
		errors.Is(err, transaction.ErrInvalidType),
		errors.Is(err, ledger.ErrBulkTooLarge):
		RespondUnprocessable(c, err.Error())
		return
	}

	var accountNotFound account.ErrAccountNotFound
	var transactionNotFound transaction.ErrTransactionNotFound
	var categoryNotFound category.ErrCategoryNotFound
	var templateNotFound recurring.ErrTemplateNotFound
	var budgetNotFound budget.ErrBudgetNotFound
	var conflict account.ErrConcurrentModification

	switch {
	case errors.As(err, &accountNotFound),
		errors.As(err, &transactionNotFound),
		errors.As(err, &categoryNotFound),
		errors.As(err, &templateNotFound),
		errors.As(err, &budgetNotFound):
		RespondNotFound(c, err.Error())
	case errors.As(err, &conflict):
		RespondConflict(c, err.Error())
	default:
		RespondInternalError(c)
	}
}
