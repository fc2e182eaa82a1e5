// Package orders implements order creation and lifecycle management.
package orders

import (
	"context"
	"log/slog"

	"github.com/viradabrew/storefront/internal/domain"
)

// ProductStore is the slice of the catalog the order flow needs.
type ProductStore interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

// Store is the order persistence surface used by the service.
type Store interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
}

type Service struct {
	store    Store
	products ProductStore
	logger   *slog.Logger
}

func NewService(store Store, products ProductStore, logger *slog.Logger) *Service {
	return &Service{store: store, products: products, logger: logger}
}

// ItemInput is what the client sends: product id and quantity only. Name and
// price come from the catalog so clients cannot set their own prices.
type ItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Create snapshots the catalog into order items, computes totals once, and
// persists the order as pending.
func (s *Service) Create(ctx context.Context, userID, userEmail string, items []ItemInput, addr domain.ShippingAddress) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, domain.Validationf("order must contain at least one item")
	}
	if addr.CEP == "" || addr.Street == "" || addr.Number == "" || addr.District == "" ||
		addr.City == "" || addr.State == "" {
		return nil, domain.Validationf("shipping address is incomplete")
	}

	snapshot := make([]domain.OrderItem, 0, len(items))
	for _, in := range items {
		if in.Quantity <= 0 {
			return nil, domain.Validationf("item quantity must be positive")
		}
		product, err := s.products.GetByID(ctx, in.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, &domain.NotFoundError{Entity: "product", ID: in.ProductID}
		}
		snapshot = append(snapshot, domain.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  in.Quantity,
			Image:     product.Image,
		})
	}

	order := &domain.Order{
		UserID:          userID,
		UserEmail:       userEmail,
		Items:           snapshot,
		ShippingAddress: addr,
		ShippingCost:    domain.DefaultShippingCost,
		Status:          domain.OrderStatusPending,
		PaymentInfo:     domain.PaymentInfo{Status: domain.PaymentStatusPending},
	}
	order.ComputeTotals()

	if err := s.store.Create(ctx, order); err != nil {
		return nil, &domain.PersistenceError{Op: "create order", Err: err}
	}

	s.logger.Info("order created", "order_id", order.ID, "user_id", userID, "total", order.Total)
	return order, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, &domain.NotFoundError{Entity: "order", ID: id}
	}
	return order, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Order, error) {
	return s.store.ListAll(ctx)
}

// SetStatus is the admin path for lifecycle changes. It writes the status
// only; setting cancelled here does not refund the payment or restore stock,
// the refund flow does that.
func (s *Service) SetStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	if !domain.ValidOrderStatus(status) {
		return nil, domain.InvalidStatef("unknown order status %q", status)
	}

	order, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "update order status", Err: err}
	}
	if order == nil {
		return nil, &domain.NotFoundError{Entity: "order", ID: id}
	}

	s.logger.Info("order status updated", "order_id", id, "status", status)
	return order, nil
}
