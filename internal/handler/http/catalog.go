package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/domain"
	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/service"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/httputil"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/validator"
)

// maxBodyBytes limits admin request bodies.
const maxBodyBytes = 1 << 20

// CatalogHandler handles HTTP requests for catalog endpoints.
type CatalogHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(svc *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateItemRequest is the JSON request body for creating an item.
type CreateItemRequest struct {
	Names             []string `json:"names" validate:"required,min=1,dive,required,max=200"`
	Size              string   `json:"size" validate:"max=20"`
	Element           string   `json:"element" validate:"max=50"`
	SpecialProperties string   `json:"specialProperties" validate:"max=100"`
	Series            string   `json:"series" validate:"max=200"`
	ImageURL          string   `json:"imageUrl" validate:"omitempty,url"`
	CurrentPrice      float64  `json:"currentPrice" validate:"gte=0"`
	ReferenceURI      string   `json:"referenceUri" validate:"omitempty,url"`
}

// UpdateItemRequest is the JSON request body for updating an item. Every
// field is optional.
type UpdateItemRequest struct {
	Names             []string `json:"names" validate:"omitempty,min=1,dive,required,max=200"`
	Size              *string  `json:"size" validate:"omitempty,max=20"`
	Element           *string  `json:"element" validate:"omitempty,max=50"`
	SpecialProperties *string  `json:"specialProperties" validate:"omitempty,max=100"`
	Series            *string  `json:"series" validate:"omitempty,max=200"`
	ImageURL          *string  `json:"imageUrl" validate:"omitempty,url"`
	CurrentPrice      *float64 `json:"currentPrice" validate:"omitempty,gte=0"`
	ReferenceURI      *string  `json:"referenceUri" validate:"omitempty,url"`
}

// RecordPriceRequest is the JSON request body for appending a price point.
type RecordPriceRequest struct {
	Price        float64 `json:"price" validate:"gte=0"`
	Timestamp    string  `json:"timestamp" validate:"max=50"`
	Notes        string  `json:"notes" validate:"max=1000"`
	ReferenceURI string  `json:"referenceUri" validate:"omitempty,url"`
}

// --- Handlers ---

// Search handles GET /api/bakugan
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	q, err := domain.ParseSearchQuery(r.URL.Query())
	if err != nil {
		httputil.WriteInvalidParameter(w, err.Error())
		return
	}

	result, err := h.service.Search(r.Context(), q)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Get handles GET /api/bakugan/{id}
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	detail, err := h.service.Get(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: detail})
}

// Create handles POST /api/bakugan
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	item, err := h.service.Create(r.Context(), &service.CreateItemInput{
		Names:             req.Names,
		Size:              req.Size,
		Element:           req.Element,
		SpecialProperties: req.SpecialProperties,
		Series:            req.Series,
		ImageURL:          req.ImageURL,
		CurrentPrice:      req.CurrentPrice,
		ReferenceURI:      req.ReferenceURI,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: item})
}

// Update handles PUT /api/bakugan/{id}
func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	item, err := h.service.Update(r.Context(), id.String(), &service.UpdateItemInput{
		Names:             req.Names,
		Size:              req.Size,
		Element:           req.Element,
		SpecialProperties: req.SpecialProperties,
		Series:            req.Series,
		ImageURL:          req.ImageURL,
		CurrentPrice:      req.CurrentPrice,
		ReferenceURI:      req.ReferenceURI,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: item})
}

// Delete handles DELETE /api/bakugan/{id}
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RecordPrice handles POST /api/bakugan/{id}/prices
func (h *CatalogHandler) RecordPrice(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req RecordPriceRequest
	if !h.decode(w, r, &req) {
		return
	}

	point, err := h.service.RecordPrice(r.Context(), id.String(), &service.RecordPriceInput{
		Price:        req.Price,
		Timestamp:    req.Timestamp,
		Notes:        req.Notes,
		ReferenceURI: req.ReferenceURI,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: point})
}

// DeletePrice handles DELETE /api/bakugan/{id}/prices/{priceId}
func (h *CatalogHandler) DeletePrice(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	priceID, ok := httputil.ParseUUID(w, chi.URLParam(r, "priceId"))
	if !ok {
		return
	}

	if err := h.service.DeletePrice(r.Context(), id.String(), priceID.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Reindex handles POST /admin/reindex
func (h *CatalogHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Reindex(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]int{"indexed": n}})
}

// decode reads and validates a JSON body. On failure it writes a 400 and
// returns false.
func (h *CatalogHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return false
	}

	if err := validator.Validate(dst); err != nil {
		httputil.WriteValidationError(w, err)
		return false
	}
	return true
}
