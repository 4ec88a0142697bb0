package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finbook-ledger/internal/api/middleware"
	"github.com/finbook-ledger/internal/domain/recurring"
	"github.com/finbook-ledger/internal/domain/transaction"
)

// RecurringHandler handles HTTP requests for recurring template operations.
// Templates only describe future transactions; the materializer turns due
// ones into ledger entries.
type RecurringHandler struct {
	templates recurring.Repository
	logger    *slog.Logger
}

// NewRecurringHandler creates a new recurring template handler
func NewRecurringHandler(logger *slog.Logger, templates recurring.Repository) *RecurringHandler {
	return &RecurringHandler{
		templates: templates,
		logger:    logger,
	}
}

// Create registers a template firing first at its start date
func (h *RecurringHandler) Create(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	var req CreateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	accountID, _ := uuid.Parse(req.AccountID)
	categoryID, _ := uuid.Parse(req.CategoryID)

	tpl, err := recurring.NewTemplate(ownerID, accountID, categoryID,
		transaction.Type(req.Type), req.Amount, req.Description,
		recurring.Frequency(req.Frequency), req.Interval,
		req.StartDate, req.EndDate, req.MaxOccurrences)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	if err := h.templates.Create(c.Request.Context(), tpl); err != nil {
		h.logger.Error("Failed to create recurring template", "error", err)
		respondDomainError(c, err)
		return
	}

	RespondCreated(c, mapTemplateToResponse(tpl))
}

// List returns all of the caller's templates, active and retired
func (h *RecurringHandler) List(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	tpls, err := h.templates.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		h.logger.Error("Failed to list recurring templates", "error", err)
		respondDomainError(c, err)
		return
	}

	responses := make([]RecurringResponse, 0, len(tpls))
	for _, tpl := range tpls {
		responses = append(responses, mapTemplateToResponse(tpl))
	}
	RespondOK(c, responses)
}

// GetByID returns one template
func (h *RecurringHandler) GetByID(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid template ID")
		return
	}

	tpl, err := h.templates.GetByID(c.Request.Context(), ownerID, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	RespondOK(c, mapTemplateToResponse(tpl))
}

// Update edits a template's amount, description or active flag. Schedule
// fields are fixed at creation; already-materialized transactions are never
// touched.
func (h *RecurringHandler) Update(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid template ID")
		return
	}

	var req UpdateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tpl, err := h.templates.GetByID(c.Request.Context(), ownerID, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			RespondBadRequest(c, "template amount must be positive")
			return
		}
		tpl.Amount = *req.Amount
	}
	if req.Description != nil {
		tpl.Description = *req.Description
	}
	if req.Active != nil {
		tpl.Active = *req.Active
	}
	tpl.UpdatedAt = time.Now().UTC()

	if err := h.templates.Update(c.Request.Context(), tpl); err != nil {
		h.logger.Error("Failed to update recurring template", "id", id.String(), "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, mapTemplateToResponse(tpl))
}

// Delete removes a template. Transactions it already produced stay in the
// ledger.
func (h *RecurringHandler) Delete(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid template ID")
		return
	}

	if err := h.templates.Delete(c.Request.Context(), ownerID, id); err != nil {
		h.logger.Error("Failed to delete recurring template", "id", id.String(), "error", err)
		respondDomainError(c, err)
		return
	}

	RespondNoContent(c)
}
