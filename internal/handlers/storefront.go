package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/storefront/apiserver/internal/services"
	"github.com/storefront/apiserver/types"
)

// StorefrontHandler provides store browsing, seller management, and
// admin moderation endpoints.
type StorefrontHandler struct {
	storefrontService *services.StorefrontService
	productService    *services.ProductService
}

func NewStorefrontHandler(storefrontService *services.StorefrontService, productService *services.ProductService) *StorefrontHandler {
	return &StorefrontHandler{
		storefrontService: storefrontService,
		productService:    productService,
	}
}

// StorefrontRouter registers store routes on the given router.
func StorefrontRouter(r chi.Router, handler *StorefrontHandler, requireAuth func(http.Handler) http.Handler) {
	r.Get("/", handler.ListPublic)
	r.Get("/{slug}", handler.GetPublic)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", handler.Create)
		r.Get("/mine", handler.ListMine)
		r.Put("/{storeID}", handler.Update)
		r.Patch("/{storeID}/open", handler.SetOpen)
		r.Delete("/{storeID}", handler.Delete)
		r.Get("/{storeID}/products", handler.ListProducts)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth, RequireRole(types.RoleAdmin))
		r.Patch("/{storeID}/status", handler.SetStatus)
	})
}

func (h *StorefrontHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stores, total, err := h.storefrontService.ListPublic(r.Context(), r.URL.Query().Get("search"), offset, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StoreListResponse{
		Items: stores,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *StorefrontHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	store, err := h.storefrontService.GetPublic(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, store)
}

func (h *StorefrontHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req StoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "store name is required")
		return
	}

	store, err := h.storefrontService.Create(r.Context(), claims.UserID, req.params())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, store)
}

func (h *StorefrontHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req StoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "store name is required")
		return
	}

	store, err := h.storefrontService.Update(r.Context(), claims.UserID, chi.URLParam(r, "storeID"), req.params())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, store)
}

func (h *StorefrontHandler) SetOpen(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SetOpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	store, err := h.storefrontService.SetOpen(r.Context(), claims.UserID, chi.URLParam(r, "storeID"), req.IsOpen)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, store)
}

func (h *StorefrontHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.storefrontService.Delete(r.Context(), claims.UserID, chi.URLParam(r, "storeID")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "store deleted"})
}

func (h *StorefrontHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	stores, err := h.storefrontService.ListMine(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stores)
}

func (h *StorefrontHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	products, err := h.productService.ListByStore(r.Context(), claims.UserID, chi.URLParam(r, "storeID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *StorefrontHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	status := types.StoreStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	switch status {
	case types.StorePending, types.StoreApproved, types.StoreRejected, types.StoreSuspended:
	default:
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	store, err := h.storefrontService.SetStatus(r.Context(), chi.URLParam(r, "storeID"), status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, store)
}

type StoreRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Logo        string `json:"logo"`
	Banner      string `json:"banner"`
	Address     string `json:"address"`
}

func (req StoreRequest) params() services.StoreParams {
	return services.StoreParams{
		Name:        req.Name,
		Description: req.Description,
		Logo:        req.Logo,
		Banner:      req.Banner,
		Address:     req.Address,
	}
}

type SetOpenRequest struct {
	IsOpen bool `json:"isOpen"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

type StoreListResponse struct {
	Items []types.Store `json:"items"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Total int           `json:"total"`
}
