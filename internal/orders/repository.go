package orders

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/viradabrew/storefront/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const orderColumns = `
	id, user_id, user_email, status, subtotal, shipping_cost, total,
	payment_id, preference_id, payment_method, payment_status,
	pix_code, qr_code_base64, payment_expires_at, payment_raw,
	net_received_amount, provider_fee,
	is_stock_reduced, notes, tracking_code,
	address_cep, address_street, address_number, address_complement,
	address_district, address_city, address_state,
	created_at, paid_at, shipped_at, delivered_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	o := &domain.Order{}
	var raw []byte

	err := row.Scan(
		&o.ID, &o.UserID, &o.UserEmail, &o.Status, &o.Subtotal, &o.ShippingCost, &o.Total,
		&o.PaymentInfo.PaymentID, &o.PaymentInfo.PreferenceID, &o.PaymentInfo.Method, &o.PaymentInfo.Status,
		&o.PaymentInfo.PixCode, &o.PaymentInfo.QRCodeBase64, &o.PaymentInfo.ExpiresAt, &raw,
		&o.PaymentInfo.NetReceivedAmount, &o.PaymentInfo.ProviderFee,
		&o.IsStockReduced, &o.Notes, &o.TrackingCode,
		&o.ShippingAddress.CEP, &o.ShippingAddress.Street, &o.ShippingAddress.Number, &o.ShippingAddress.Complement,
		&o.ShippingAddress.District, &o.ShippingAddress.City, &o.ShippingAddress.State,
		&o.CreatedAt, &o.PaidAt, &o.ShippedAt, &o.DeliveredAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.PaymentInfo.RawPayload = raw
	o.Items = []domain.OrderItem{}
	return o, nil
}

func (r *Repository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	order.ID = uuid.New().String()
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, user_id, user_email, status, subtotal, shipping_cost, total,
			payment_status,
			address_cep, address_street, address_number, address_complement,
			address_district, address_city, address_state,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
	`, order.ID, order.UserID, order.UserEmail, order.Status,
		order.Subtotal, order.ShippingCost, order.Total,
		order.PaymentInfo.Status,
		order.ShippingAddress.CEP, order.ShippingAddress.Street, order.ShippingAddress.Number,
		order.ShippingAddress.Complement, order.ShippingAddress.District,
		order.ShippingAddress.City, order.ShippingAddress.State,
		now)
	if err != nil {
		return err
	}

	for _, item := range order.Items {
		itemID := uuid.New().String()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, name, unit_price, quantity, image)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, itemID, order.ID, item.ProductID, item.Name, item.UnitPrice, item.Quantity, item.Image)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	order, err := scanOrder(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, name, unit_price, quantity, image
		FROM order_items
		WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.UnitPrice, &item.Quantity, &item.Image); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

// GetByPaymentID resolves an order from the provider's payment id, used when
// a notification arrives without an external reference.
func (r *Repository) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM orders WHERE payment_id = $1`, paymentID).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *Repository) ListAll(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orderMap[order.ID] = order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, name, unit_price, quantity, image
		FROM order_items
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Name, &item.UnitPrice, &item.Quantity, &item.Image); err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

// UpdateStatus sets the lifecycle status and stamps shipped_at/delivered_at
// the first time those states are reached.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2,
		    shipped_at = CASE WHEN $2 = 'shipped' THEN COALESCE(shipped_at, NOW()) ELSE shipped_at END,
		    delivered_at = CASE WHEN $2 = 'delivered' THEN COALESCE(delivered_at, NOW()) ELSE delivered_at END,
		    updated_at = NOW()
		WHERE id = $1
	`, id, status)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}

// SavePaymentIntent persists the provider identifiers created for the order:
// a checkout preference or a PIX charge with its code and expiry.
func (r *Repository) SavePaymentIntent(ctx context.Context, id string, info domain.PaymentInfo) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_id = $2, preference_id = $3, payment_method = $4, payment_status = $5,
		    pix_code = $6, qr_code_base64 = $7, payment_expires_at = $8, payment_raw = $9,
		    updated_at = NOW()
		WHERE id = $1
	`, id, info.PaymentID, info.PreferenceID, info.Method, info.Status,
		info.PixCode, info.QRCodeBase64, info.ExpiresAt, []byte(info.RawPayload))
	if err != nil {
		return &domain.PersistenceError{Op: "save payment intent", Err: err}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return &domain.PersistenceError{Op: "save payment intent", Err: err}
	}
	if rowsAffected == 0 {
		return &domain.NotFoundError{Entity: "order", ID: id}
	}

	return nil
}

// ApplyPaymentUpdate records the reconciled payment state. paid_at is stamped
// once; a replayed approval never moves it.
func (r *Repository) ApplyPaymentUpdate(ctx context.Context, id string, update domain.PaymentUpdate) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_id = $2, payment_status = $3, payment_method = $4, payment_raw = $5,
		    net_received_amount = $6, provider_fee = $7,
		    status = COALESCE(NULLIF($8, ''), status),
		    paid_at = CASE WHEN $9 THEN COALESCE(paid_at, NOW()) ELSE paid_at END,
		    updated_at = NOW()
		WHERE id = $1
	`, id, update.PaymentID, update.PaymentStatus, update.Method, []byte(update.RawPayload),
		update.NetReceivedAmount, update.ProviderFee,
		string(update.OrderStatus), update.MarkPaid)
	if err != nil {
		return &domain.PersistenceError{Op: "apply payment update", Err: err}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return &domain.PersistenceError{Op: "apply payment update", Err: err}
	}
	if rowsAffected == 0 {
		return &domain.NotFoundError{Entity: "order", ID: id}
	}

	return nil
}

// MarkStockReduced flips is_stock_reduced from false to true. The returned
// bool reports whether this call won the flip; concurrent or replayed
// deliveries lose and must not touch stock.
func (r *Repository) MarkStockReduced(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET is_stock_reduced = TRUE, updated_at = NOW()
		WHERE id = $1 AND is_stock_reduced = FALSE
	`, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

// ClearStockReduced is the refund-side inverse of MarkStockReduced.
func (r *Repository) ClearStockReduced(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET is_stock_reduced = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_stock_reduced = TRUE
	`, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

// MarkCancelled moves the order to cancelled/refunded and appends an audit
// note.
func (r *Repository) MarkCancelled(ctx context.Context, id string, note string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = 'cancelled', payment_status = 'refunded',
		    notes = TRIM(BOTH E'\n' FROM notes || E'\n' || $2),
		    updated_at = NOW()
		WHERE id = $1
	`, id, note)
	if err != nil {
		return &domain.PersistenceError{Op: "mark cancelled", Err: err}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return &domain.PersistenceError{Op: "mark cancelled", Err: err}
	}
	if rowsAffected == 0 {
		return &domain.NotFoundError{Entity: "order", ID: id}
	}

	return nil
}
