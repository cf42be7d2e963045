package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/DeyanBora/ElasticSearch.API/internal/domain"
	"github.com/DeyanBora/ElasticSearch.API/internal/engine"
	"github.com/DeyanBora/ElasticSearch.API/internal/query"
	"github.com/DeyanBora/ElasticSearch.API/internal/service"
	apperrors "github.com/DeyanBora/ElasticSearch.API/pkg/errors"
	"github.com/DeyanBora/ElasticSearch.API/pkg/httputil"
	"github.com/DeyanBora/ElasticSearch.API/pkg/logger"
	"github.com/DeyanBora/ElasticSearch.API/pkg/pagination"
	"github.com/DeyanBora/ElasticSearch.API/pkg/validator"
)

// Request limits.
const (
	MaxFilterLength = 256
	MaxBulkItems    = 500
	maxBodyBytes    = 1 << 20
	maxBulkBytes    = 10 << 20
)

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// ReferenceRequest is a category, brand or manufacturer in a request body.
type ReferenceRequest struct {
	ID          *int64     `json:"id" validate:"omitempty,gte=0"`
	Name        *string    `json:"name" validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Slug        *string    `json:"slug" validate:"omitempty,max=200"`
	IsDeleted   *bool      `json:"is_deleted"`
	DeletedAt   *time.Time `json:"deleted_at"`
}

// ProductRequest is the JSON body for create, update and each bulk item.
// Every field is optional.
type ProductRequest struct {
	ID           *string           `json:"id" validate:"omitempty,min=1,max=128"`
	ProductID    *int64            `json:"product_id" validate:"omitempty,gte=0"`
	Title        *string           `json:"title" validate:"omitempty,max=256"`
	Description  *string           `json:"description" validate:"omitempty,max=5000"`
	Code         *string           `json:"code" validate:"omitempty,max=100"`
	Slug         *string           `json:"slug" validate:"omitempty,max=256"`
	Image        *string           `json:"image" validate:"omitempty,max=2048"`
	Price        *int64            `json:"price" validate:"omitempty,gte=0"`
	Stock        *int              `json:"stock" validate:"omitempty,gte=0"`
	Category     *ReferenceRequest `json:"category"`
	Brand        *ReferenceRequest `json:"brand"`
	Manufacturer *ReferenceRequest `json:"manufacturer"`
}

// Fields maps the request onto document inputs.
func (r ProductRequest) Fields() domain.ProductFields {
	return domain.ProductFields{
		ID:           r.ID,
		ProductID:    r.ProductID,
		Title:        r.Title,
		Description:  r.Description,
		Code:         r.Code,
		Slug:         r.Slug,
		Image:        r.Image,
		Price:        r.Price,
		Stock:        r.Stock,
		Category:     r.Category.fields(),
		Brand:        r.Brand.fields(),
		Manufacturer: r.Manufacturer.fields(),
	}
}

func (r *ReferenceRequest) fields() *domain.ReferenceFields {
	if r == nil {
		return nil
	}
	return &domain.ReferenceFields{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Slug:        r.Slug,
		IsDeleted:   r.IsDeleted,
		DeletedAt:   r.DeletedAt,
	}
}

// bulkRequest wraps the bulk array so each item is validated with its index.
type bulkRequest struct {
	Products []ProductRequest `json:"products" validate:"min=1,max=500,dive"`
}

// BulkResponse is returned by the bulk endpoint, including on partial
// failure.
type BulkResponse struct {
	Indexed int                    `json:"indexed"`
	Failed  []engine.BulkItemError `json:"failed"`
}

// --- Handlers ---

// ListProducts handles GET /api/v1/products
// @Summary List products
// @Description Returns one page of products ordered by title, optionally filtered by free text
// @Tags products
// @Produce json
// @Param filter query string false "Free-text filter (max 256 characters)"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size (max 100)" default(10)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /api/v1/products [get]
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter := strings.TrimSpace(r.URL.Query().Get("filter"))
	if utf8.RuneCountInString(filter) > MaxFilterLength {
		httputil.WriteBadRequest(w, r, "INVALID_PARAMETER",
			fmt.Sprintf("filter must be at most %d characters", MaxFilterLength))
		return
	}

	params, err := pagination.FromRequest(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.service.ListProducts(r.Context(), filter, query.Page{Number: params.Page, Size: params.Size})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: pagination.NewResult(result.Documents, result.Total, params),
	})
}

// GetProduct handles GET /api/v1/products/{id}
// @Summary Get a product
// @Tags products
// @Produce json
// @Param id path string true "Document id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/products/{id} [get]
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: doc})
}

// CreateProduct handles POST /api/v1/products
// @Summary Create a product
// @Description Indexes a new product; absent fields take their zero value and a missing slug is derived from the title
// @Tags products
// @Accept json
// @Produce json
// @Param request body ProductRequest true "Product to index"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/products [post]
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req ProductRequest
	if !decodeJSON(w, r, &req) || !validate(w, r, &req) {
		return
	}

	doc, err := h.service.CreateProduct(r.Context(), req.Fields())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: doc})
}

// UpdateProduct handles PUT /api/v1/products/{id}
// @Summary Update a product
// @Description Partially updates a product; only the fields present are changed
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "Document id"
// @Param request body ProductRequest true "Fields to update"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/products/{id} [put]
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req ProductRequest
	if !decodeJSON(w, r, &req) || !validate(w, r, &req) {
		return
	}
	if req.ID != nil && *req.ID != id {
		httputil.WriteBadRequest(w, r, "INVALID_INPUT", "body id does not match path id")
		return
	}

	doc, err := h.service.UpdateProduct(r.Context(), id, req.Fields())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: doc})
}

// DeleteProduct handles DELETE /api/v1/products/{id}
// @Summary Delete a product
// @Tags products
// @Produce json
// @Param id path string true "Document id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/products/{id} [delete]
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"id": id, "status": "deleted"}})
}

// BulkAddProducts handles POST /api/v1/products/bulk
// @Summary Bulk index products
// @Description Indexes 1 to 500 products in one store request. Responds 207 when some were rejected.
// @Tags products
// @Accept json
// @Produce json
// @Param request body []ProductRequest true "Products to index"
// @Success 200 {object} map[string]interface{}
// @Success 207 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/products/bulk [post]
func (h *ProductHandler) BulkAddProducts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBulkBytes)

	var req bulkRequest
	if !decodeJSON(w, r, &req.Products) || !validate(w, r, &req) {
		return
	}

	items := make([]domain.ProductFields, 0, len(req.Products))
	for _, p := range req.Products {
		items = append(items, p.Fields())
	}

	result, err := h.service.BulkAddProducts(r.Context(), items)
	switch {
	case errors.Is(err, apperrors.ErrPartialBulkFailure):
		logger.FromContext(r.Context()).WarnContext(r.Context(), "bulk add partially failed",
			slog.Int("indexed", result.Indexed),
			slog.Int("failed", len(result.Failed)),
		)
		appErr := apperrors.PartialBulkFailure(len(result.Failed), len(items))
		httputil.WriteJSON(w, appErr.Status, httputil.Response{
			Data: BulkResponse{Indexed: result.Indexed, Failed: result.Failed},
			Error: &httputil.ErrorResponse{
				Code:      appErr.Code,
				Message:   appErr.Message,
				RequestID: logger.CorrelationIDFromContext(r.Context()),
			},
		})
		return
	case err != nil:
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: BulkResponse{Indexed: result.Indexed, Failed: []engine.BulkItemError{}},
	})
}

// decodeJSON decodes the request body into dst, writing a 400 or 413 and
// returning false when it cannot.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, httputil.Response{
			Error: &httputil.ErrorResponse{
				Code:      "PAYLOAD_TOO_LARGE",
				Message:   fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
				RequestID: logger.CorrelationIDFromContext(r.Context()),
			},
		})
		return false
	}
	httputil.WriteBadRequest(w, r, "INVALID_INPUT", "invalid request body: "+err.Error())
	return false
}

func validate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := validator.Validate(v); err != nil {
		httputil.WriteValidationError(w, r, err)
		return false
	}
	return true
}
