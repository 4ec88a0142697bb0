package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finbook-ledger/internal/api/middleware"
	"github.com/finbook-ledger/internal/domain/budget"
	"github.com/finbook-ledger/internal/domain/transaction"
)

// BudgetHandler handles HTTP requests for budget operations. Budgets are a
// read-side construct; they observe spend, they never move it.
type BudgetHandler struct {
	budgets budget.Repository
	txs     transaction.Repository
	logger  *slog.Logger
}

// NewBudgetHandler creates a new budget handler
func NewBudgetHandler(logger *slog.Logger, budgets budget.Repository, txs transaction.Repository) *BudgetHandler {
	return &BudgetHandler{
		budgets: budgets,
		txs:     txs,
		logger:  logger,
	}
}

// Create sets a monthly spending cap for one category
func (h *BudgetHandler) Create(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	month, err := time.Parse("2006-01", req.Month)
	if err != nil {
		RespondBadRequest(c, "Invalid month, expected YYYY-MM")
		return
	}
	categoryID, _ := uuid.Parse(req.CategoryID)

	b, err := budget.New(ownerID, categoryID, month, req.Limit, req.AlertThreshold)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	if err := h.budgets.Create(c.Request.Context(), b); err != nil {
		h.logger.Error("Failed to create budget", "error", err)
		respondDomainError(c, err)
		return
	}

	RespondCreated(c, mapBudgetToResponse(b))
}

// List returns all of the caller's budgets
func (h *BudgetHandler) List(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	budgets, err := h.budgets.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		h.logger.Error("Failed to list budgets", "error", err)
		respondDomainError(c, err)
		return
	}

	responses := make([]BudgetResponse, 0, len(budgets))
	for _, b := range budgets {
		responses = append(responses, mapBudgetToResponse(b))
	}
	RespondOK(c, responses)
}

// Summary returns each of the caller's budgets with its period spend and
// what remains of the limit
func (h *BudgetHandler) Summary(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	budgets, err := h.budgets.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		h.logger.Error("Failed to list budgets", "error", err)
		respondDomainError(c, err)
		return
	}

	responses := make([]BudgetSummaryResponse, 0, len(budgets))
	for _, b := range budgets {
		from, to := b.Period()
		spent, err := h.txs.SumByCategory(c.Request.Context(), ownerID, b.CategoryID, from, to)
		if err != nil {
			h.logger.Error("Failed to sum category spend", "budget_id", b.ID.String(), "error", err)
			respondDomainError(c, err)
			return
		}
		responses = append(responses, mapSummaryToResponse(&budget.Summary{
			Budget:    b,
			Spent:     spent,
			Remaining: b.Limit.Sub(spent),
		}))
	}
	RespondOK(c, responses)
}

// Update edits a budget's limit or alert threshold. The month and category
// are fixed at creation; delete and recreate to move a budget.
func (h *BudgetHandler) Update(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid budget ID")
		return
	}

	var req UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	b, err := h.budgets.GetByID(c.Request.Context(), ownerID, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	if req.Limit != nil {
		if !req.Limit.IsPositive() {
			RespondBadRequest(c, budget.ErrInvalidLimit.Error())
			return
		}
		b.Limit = *req.Limit
	}
	if req.AlertThreshold != nil {
		if req.AlertThreshold.IsNegative() || req.AlertThreshold.GreaterThan(decimal.NewFromInt(1)) {
			RespondBadRequest(c, budget.ErrInvalidThreshold.Error())
			return
		}
		b.AlertThreshold = *req.AlertThreshold
	}
	b.UpdatedAt = time.Now().UTC()

	if err := h.budgets.Update(c.Request.Context(), b); err != nil {
		h.logger.Error("Failed to update budget", "id", id.String(), "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, mapBudgetToResponse(b))
}

// Delete removes a budget
func (h *BudgetHandler) Delete(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid budget ID")
		return
	}

	if err := h.budgets.Delete(c.Request.Context(), ownerID, id); err != nil {
		h.logger.Error("Failed to delete budget", "id", id.String(), "error", err)
		respondDomainError(c, err)
		return
	}

	RespondNoContent(c)
}
