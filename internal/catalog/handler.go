package catalog

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/viradabrew/storefront/internal/domain"
	"github.com/viradabrew/storefront/internal/httpx"
)

type Handler struct {
	repo   *Repository
	logger *slog.Logger
}

func NewHandler(repo *Repository, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		httpx.Fail(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.JSON(w, h.logger, http.StatusOK, products)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httpx.Fail(w, h.logger, http.StatusBadRequest, "missing product id")
		return
	}

	product, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "id", id)
		httpx.Fail(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}
	if product == nil {
		httpx.Fail(w, h.logger, http.StatusNotFound, "product not found")
		return
	}

	httpx.JSON(w, h.logger, http.StatusOK, product)
}

type productRequest struct {
	Name        string `json:"name"`
	Style       string `json:"style"`
	Description string `json:"description"`
	ABV         string `json:"abv"`
	Image       string `json:"image"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
}

func (req *productRequest) validate() error {
	if req.Name == "" {
		return domain.Validationf("product name is required")
	}
	if req.Price <= 0 {
		return domain.Validationf("product price must be positive")
	}
	if req.Quantity < 0 {
		return domain.Validationf("product quantity cannot be negative")
	}
	return nil
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	product := &domain.Product{
		Name:        req.Name,
		Style:       req.Style,
		Description: req.Description,
		ABV:         req.ABV,
		Image:       req.Image,
		Price:       req.Price,
		Quantity:    req.Quantity,
	}

	if err := h.repo.Create(r.Context(), product); err != nil {
		h.logger.Error("failed to create product", "error", err)
		httpx.Fail(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("product created", "product_id", product.ID, "name", product.Name)
	httpx.JSON(w, h.logger, http.StatusCreated, product)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httpx.Fail(w, h.logger, http.StatusBadRequest, "missing product id")
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	product, err := h.repo.Update(r.Context(), &domain.Product{
		ID:          id,
		Name:        req.Name,
		Style:       req.Style,
		Description: req.Description,
		ABV:         req.ABV,
		Image:       req.Image,
		Price:       req.Price,
		Quantity:    req.Quantity,
	})
	if err != nil {
		h.logger.Error("failed to update product", "error", err, "id", id)
		httpx.Fail(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}
	if product == nil {
		httpx.Fail(w, h.logger, http.StatusNotFound, "product not found")
		return
	}

	h.logger.Info("product updated", "product_id", product.ID)
	httpx.JSON(w, h.logger, http.StatusOK, product)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httpx.Fail(w, h.logger, http.StatusBadRequest, "missing product id")
		return
	}

	deleted, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete product", "error", err, "id", id)
		httpx.Fail(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}
	if !deleted {
		httpx.Fail(w, h.logger, http.StatusNotFound, "product not found")
		return
	}

	h.logger.Info("product deleted", "product_id", id)
	w.WriteHeader(http.StatusNoContent)
}
