package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finbook-ledger/internal/api/middleware"
	"github.com/finbook-ledger/internal/domain/account"
)

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	accounts account.Repository
	logger   *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accounts account.Repository) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		logger:   logger,
	}
}

// Create opens a new account with an opening balance. After creation the
// balance only moves through ledger operations.
func (h *AccountHandler) Create(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	includeNetWorth := true
	if req.IncludeNetWorth != nil {
		includeNetWorth = *req.IncludeNetWorth
	}

	acc, err := account.NewAccount(ownerID, req.Name, account.Type(req.Type), req.OpeningBalance, req.CreditLimit, req.Currency, includeNetWorth)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	if err := h.accounts.Create(c.Request.Context(), acc); err != nil {
		h.logger.Error("Failed to create account", "error", err)
		respondDomainError(c, err)
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

// List returns all of the caller's accounts
func (h *AccountHandler) List(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	accounts, err := h.accounts.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		h.logger.Error("Failed to list accounts", "error", err)
		respondDomainError(c, err)
		return
	}

	responses := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		responses = append(responses, mapAccountToResponse(acc))
	}
	RespondOK(c, responses)
}

// GetByID returns one account, 404 for missing or foreign-owned ones
func (h *AccountHandler) GetByID(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	acc, err := h.accounts.GetByID(c.Request.Context(), ownerID, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// Update edits the account's descriptive fields. The balance is not
// editable here; only ledger operations move it.
func (h *AccountHandler) Update(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.accounts.GetByID(c.Request.Context(), ownerID, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			RespondBadRequest(c, account.ErrEmptyName.Error())
			return
		}
		acc.Name = *req.Name
	}
	if req.IncludeNetWorth != nil {
		acc.IncludeNetWorth = *req.IncludeNetWorth
	}
	acc.UpdatedAt = time.Now().UTC()

	if err := h.accounts.Update(c.Request.Context(), acc); err != nil {
		h.logger.Error("Failed to update account", "id", id.String(), "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// Deactivate retires an account. Its history stays readable; new
// transactions on it are rejected.
func (h *AccountHandler) Deactivate(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	acc, err := h.accounts.GetByID(c.Request.Context(), ownerID, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	acc.Deactivate()
	if err := h.accounts.Update(c.Request.Context(), acc); err != nil {
		h.logger.Error("Failed to deactivate account", "id", id.String(), "error", err)
		respondDomainError(c, err)
		return
	}

	RespondNoContent(c)
}
