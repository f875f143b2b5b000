package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/storefront/apiserver/internal/services"
	"github.com/storefront/apiserver/internal/storage"
	"github.com/storefront/apiserver/types"
)

const (
	maxMultipartMemory = 32 << 20
	maxImageBytes      = 8 << 20
	maxImagesPerUpload = 6
)

// ProductHandler provides catalog browsing and seller product
// management, including image uploads to object storage.
type ProductHandler struct {
	productService *services.ProductService
	media          storage.ObjectStore
}

func NewProductHandler(productService *services.ProductService, media storage.ObjectStore) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		media:          media,
	}
}

// ProductRouter registers product routes on the given router.
func ProductRouter(r chi.Router, handler *ProductHandler, requireAuth func(http.Handler) http.Handler) {
	r.Get("/", handler.List)
	r.Get("/{slug}", handler.Get)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", handler.Create)
		r.Put("/{productID}", handler.Update)
		r.Delete("/{productID}", handler.Delete)
		r.Post("/images", handler.UploadImages)
	})
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	query, err := productQueryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	products, total, err := h.productService.ListPublic(r.Context(), query, offset, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProductListResponse{
		Items: products,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.GetPublic(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.StoreID == "" || req.CategoryID == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	product, err := h.productService.Create(r.Context(), claims.UserID, req.StoreID, req.params())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.CategoryID == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	product, err := h.productService.Update(r.Context(), claims.UserID, chi.URLParam(r, "productID"), req.params())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.productService.Delete(r.Context(), claims.UserID, chi.URLParam(r, "productID")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "product deleted"})
}

// UploadImages stores product images and returns their public URLs for
// use in a subsequent create or update.
func (h *ProductHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	if _, err := claimsFromContext(r.Context()); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no images provided")
		return
	}
	if len(files) > maxImagesPerUpload {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d images per upload", maxImagesPerUpload))
		return
	}

	urls := make([]string, 0, len(files))
	for _, header := range files {
		if header.Size > maxImageBytes {
			writeError(w, http.StatusBadRequest, "image too large")
			return
		}
		contentType := header.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			writeError(w, http.StatusBadRequest, "only image uploads are allowed")
			return
		}

		file, err := header.Open()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to read upload")
			return
		}

		key := storage.ImageKey("products", header.Filename)
		err = h.media.Put(r.Context(), key, file, header.Size, contentType)
		_ = file.Close()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to store image")
			return
		}
		urls = append(urls, h.media.URL(key))
	}

	writeJSON(w, http.StatusCreated, UploadResponse{URLs: urls})
}

func productQueryFromRequest(r *http.Request) (types.ProductQuery, error) {
	q := types.ProductQuery{
		Search:     r.URL.Query().Get("search"),
		CategoryID: r.URL.Query().Get("category"),
		StoreID:    r.URL.Query().Get("store"),
	}
	if raw := r.URL.Query().Get("minPrice"); raw != "" {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || value < 0 {
			return types.ProductQuery{}, fmt.Errorf("invalid minPrice")
		}
		q.MinPrice = value
	}
	if raw := r.URL.Query().Get("maxPrice"); raw != "" {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || value < 0 {
			return types.ProductQuery{}, fmt.Errorf("invalid maxPrice")
		}
		q.MaxPrice = value
	}
	return q, nil
}

type ProductRequest struct {
	StoreID     string   `json:"storeId"`
	CategoryID  string   `json:"categoryId"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       int64    `json:"price"`
	Stock       int      `json:"stock"`
	Images      []string `json:"images"`
	IsActive    bool     `json:"isActive"`
}

func (req ProductRequest) params() services.ProductParams {
	return services.ProductParams{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Images:      req.Images,
		IsActive:    req.IsActive,
	}
}

type ProductListResponse struct {
	Items []types.Product `json:"items"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
	Total int             `json:"total"`
}

type UploadResponse struct {
	URLs []string `json:"urls"`
}
