package handler

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finbook-ledger/internal/api/middleware"
	"github.com/finbook-ledger/internal/domain/transaction"
	"github.com/finbook-ledger/internal/ledger"
)

// LedgerEngine is the mutation surface the transaction endpoints delegate to.
// Every call that moves money goes through here; handlers never touch
// balances themselves.
type LedgerEngine interface {
	Create(ctx context.Context, ownerID uuid.UUID, in ledger.CreateInput) (*transaction.Transaction, error)
	Update(ctx context.Context, ownerID, txID uuid.UUID, in ledger.UpdateInput) (*transaction.Transaction, error)
	Delete(ctx context.Context, ownerID, txID uuid.UUID) error
	BulkDelete(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) (*ledger.BulkDeleteReport, error)
	Transfer(ctx context.Context, ownerID uuid.UUID, in ledger.TransferInput) (*transaction.Transaction, error)
}

// TransactionHandler handles HTTP requests for ledger mutations and
// transaction reads
type TransactionHandler struct {
	engine LedgerEngine
	txs    transaction.Repository
	logger *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, engine LedgerEngine, txs transaction.Repository) *TransactionHandler {
	return &TransactionHandler{
		engine: engine,
		txs:    txs,
		logger: logger,
	}
}

// Create records an income or expense transaction and applies its effect to
// the account balance in one unit.
func (h *TransactionHandler) Create(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	accountID, _ := uuid.Parse(req.AccountID)
	categoryID, _ := uuid.Parse(req.CategoryID)

	tx, err := h.engine.Create(c.Request.Context(), ownerID, ledger.CreateInput{
		AccountID:   accountID,
		CategoryID:  categoryID,
		Type:        transaction.Type(req.Type),
		Amount:      req.Amount,
		Date:        req.Date,
		Description: req.Description,
		Notes:       req.Notes,
		Tags:        req.Tags,
		Cleared:     req.Cleared,
	})
	if err != nil {
		h.logger.Error("Failed to create transaction", "account_id", req.AccountID, "error", err)
		respondDomainError(c, err)
		return
	}

	RespondCreated(c, mapTransactionToResponse(tx))
}

// GetByID returns one transaction
func (h *TransactionHandler) GetByID(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	tx, err := h.txs.GetByID(c.Request.Context(), ownerID, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	RespondOK(c, mapTransactionToResponse(tx))
}

// ListByAccount returns a page of an account's transactions, transfer legs
// on either side included
func (h *TransactionHandler) ListByAccount(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	txs, total, err := h.txs.ListByAccount(c.Request.Context(), ownerID, accountID, params.Page, params.PerPage)
	if err != nil {
		h.logger.Error("Failed to list transactions", "account_id", accountID.String(), "error", err)
		respondDomainError(c, err)
		return
	}

	responses := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		responses = append(responses, mapTransactionToResponse(tx))
	}
	RespondWithPaginatedData(c, 200, responses, params.Page, params.PerPage, int(total))
}

// Update edits a transaction. The engine reverses the stored effect and
// applies the new one atomically.
func (h *TransactionHandler) Update(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	in := ledger.UpdateInput{
		Amount:      req.Amount,
		Date:        req.Date,
		Description: req.Description,
		Notes:       req.Notes,
		Tags:        req.Tags,
		Cleared:     req.Cleared,
	}
	if req.AccountID != nil {
		v, _ := uuid.Parse(*req.AccountID)
		in.AccountID = &v
	}
	if req.CategoryID != nil {
		v, _ := uuid.Parse(*req.CategoryID)
		in.CategoryID = &v
	}
	if req.TransferAccountID != nil {
		v, _ := uuid.Parse(*req.TransferAccountID)
		in.TransferAccountID = &v
	}
	if req.Type != nil {
		v := transaction.Type(*req.Type)
		in.Type = &v
	}

	tx, err := h.engine.Update(c.Request.Context(), ownerID, id, in)
	if err != nil {
		h.logger.Error("Failed to update transaction", "id", id.String(), "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, mapTransactionToResponse(tx))
}

// Delete soft-deletes a transaction and reverses its balance effect
func (h *TransactionHandler) Delete(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	if err := h.engine.Delete(c.Request.Context(), ownerID, id); err != nil {
		h.logger.Error("Failed to delete transaction", "id", id.String(), "error", err)
		respondDomainError(c, err)
		return
	}

	RespondNoContent(c)
}

// BulkDelete deletes a batch of transactions, tolerating per-id failures.
// The response reports both the deleted ids and the failures.
func (h *TransactionHandler) BulkDelete(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ids := make([]uuid.UUID, 0, len(req.TransactionIDs))
	for _, raw := range req.TransactionIDs {
		id, _ := uuid.Parse(raw)
		ids = append(ids, id)
	}

	report, err := h.engine.BulkDelete(c.Request.Context(), ownerID, ids)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	RespondOK(c, report)
}

// Transfer moves money between two owned accounts as a single transfer-type
// transaction
func (h *TransactionHandler) Transfer(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	fromID, _ := uuid.Parse(req.FromAccountID)
	toID, _ := uuid.Parse(req.ToAccountID)
	categoryID, _ := uuid.Parse(req.CategoryID)

	tx, err := h.engine.Transfer(c.Request.Context(), ownerID, ledger.TransferInput{
		FromAccountID: fromID,
		ToAccountID:   toID,
		CategoryID:    categoryID,
		Amount:        req.Amount,
		Date:          req.Date,
		Description:   req.Description,
	})
	if err != nil {
		h.logger.Error("Failed to create transfer", "from", req.FromAccountID, "to", req.ToAccountID, "error", err)
		respondDomainError(c, err)
		return
	}

	RespondCreated(c, mapTransactionToResponse(tx))
}
