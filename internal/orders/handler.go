package orders

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/viradabrew/storefront/internal/auth"
	"github.com/viradabrew/storefront/internal/domain"
	"github.com/viradabrew/storefront/internal/httpx"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type createOrderRequest struct {
	Items           []ItemInput            `json:"items"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := auth.UserID(r.Context())
	userEmail := auth.UserEmail(r.Context())

	order, err := h.service.Create(r.Context(), userID, userEmail, req.Items, req.ShippingAddress)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	httpx.JSON(w, h.logger, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httpx.Fail(w, h.logger, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	// Owners see their own orders, admins see everything.
	if order.UserID != auth.UserID(r.Context()) && !auth.IsAdmin(r.Context()) {
		httpx.Fail(w, h.logger, http.StatusNotFound, "order not found")
		return
	}

	httpx.JSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListForUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	httpx.JSON(w, h.logger, http.StatusOK, orders)
}

func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListAll(r.Context())
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	h.logger.Info("orders listed", "count", len(orders))
	httpx.JSON(w, h.logger, http.StatusOK, orders)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httpx.Fail(w, h.logger, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	httpx.JSON(w, h.logger, http.StatusOK, order)
}
