package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finbook-ledger/internal/api/middleware"
	"github.com/finbook-ledger/internal/domain/category"
)

// CategoryHandler handles HTTP requests for category operations
type CategoryHandler struct {
	categories category.Repository
	logger     *slog.Logger
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(logger *slog.Logger, categories category.Repository) *CategoryHandler {
	return &CategoryHandler{
		categories: categories,
		logger:     logger,
	}
}

// Create adds a category for the caller
func (h *CategoryHandler) Create(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	cat, err := category.New(ownerID, req.Name, category.Kind(req.Kind))
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	if err := h.categories.Create(c.Request.Context(), cat); err != nil {
		h.logger.Error("Failed to create category", "error", err)
		respondDomainError(c, err)
		return
	}

	RespondCreated(c, cat)
}

// List returns all of the caller's categories
func (h *CategoryHandler) List(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	cats, err := h.categories.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		h.logger.Error("Failed to list categories", "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, cats)
}

// Update renames or rekinds a category. Existing transactions keep their
// category reference.
func (h *CategoryHandler) Update(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid category ID")
		return
	}

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	cat, err := h.categories.GetByID(c.Request.Context(), ownerID, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			RespondBadRequest(c, category.ErrEmptyName.Error())
			return
		}
		cat.Name = *req.Name
	}
	if req.Kind != nil {
		cat.Kind = category.Kind(*req.Kind)
	}
	cat.UpdatedAt = time.Now().UTC()

	if err := h.categories.Update(c.Request.Context(), cat); err != nil {
		h.logger.Error("Failed to update category", "id", id.String(), "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, cat)
}

// Delete removes a category
func (h *CategoryHandler) Delete(c *gin.Context) {
	ownerID, _ := middleware.GetOwnerID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid category ID")
		return
	}

	if err := h.categories.Delete(c.Request.Context(), ownerID, id); err != nil {
		h.logger.Error("Failed to delete category", "id", id.String(), "error", err)
		respondDomainError(c, err)
		return
	}

	RespondNoContent(c)
}
