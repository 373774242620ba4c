package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-core/internal/coupons"
	"github.com/angelmondragon/storefront-core/internal/payments"
	product "github.com/angelmondragon/storefront-core/internal/products"
	"github.com/angelmondragon/storefront-core/pkg/db"
	"github.com/angelmondragon/storefront-core/pkg/db/models"
	"github.com/angelmondragon/storefront-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
	"github.com/angelmondragon/storefront-core/pkg/logger"
	"github.com/angelmondragon/storefront-core/pkg/outbox"
	"github.com/angelmondragon/storefront-core/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-core/pkg/pagination"
)

const (
	orderNumberConstraint = "ux_orders_order_number"

	outcomePaid              = "paid"
	outcomeDuplicate         = "duplicate"
	outcomeSignatureMismatch = "signature_mismatch"
	outcomeFailed            = "failed"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type signatureVerifier interface {
	Verify(gatewayOrderID, gatewayPaymentID, signature string) bool
}

type couponCache interface {
	InvalidateActive(ctx context.Context)
}

type checkoutMetrics interface {
	OrderCreated(paymentMethod string)
	PaymentConfirmed(outcome string)
}

// Service owns the order lifecycle: creation, payment confirmation and
// administrative status changes.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, input StatusUpdateInput) (*OrderDTO, error)
	GetOrder(ctx context.Context, id uuid.UUID, viewer Viewer) (*OrderDTO, error)
	ListOrders(ctx context.Context, viewer Viewer, input ListInput) (*pagination.Page[OrderDTO], error)
}

type ServiceParams struct {
	Repo        Repository
	Coupons     coupons.Repository
	CouponCache couponCache
	Catalog     product.Catalog
	Gateway     payments.Gateway
	Verifier    signatureVerifier
	Tx          txRunner
	Outbox      outboxPublisher
	Logger      *logger.Logger
	Metrics     checkoutMetrics
	Now         func() time.Time
	NewNumber   func(time.Time) (string, error)
}

type service struct {
	repo        Repository
	coupons     coupons.Repository
	couponCache couponCache
	catalog     product.Catalog
	gateway     payments.Gateway
	verifier    signatureVerifier
	tx          txRunner
	outbox      outboxPublisher
	logg        *logger.Logger
	metrics     checkoutMetrics
	now         func() time.Time
	newNumber   func(time.Time) (string, error)
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Coupons == nil:
		return nil, fmt.Errorf("coupon repository required")
	case params.Catalog == nil:
		return nil, fmt.Errorf("product catalog required")
	case params.Gateway == nil:
		return nil, fmt.Errorf("payment gateway required")
	case params.Verifier == nil:
		return nil, fmt.Errorf("signature verifier required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	newNumber := params.NewNumber
	if newNumber == nil {
		newNumber = NewOrderNumber
	}
	return &service{
		repo:        params.Repo,
		coupons:     params.Coupons,
		couponCache: params.CouponCache,
		catalog:     params.Catalog,
		gateway:     params.Gateway,
		verifier:    params.Verifier,
		tx:          params.Tx,
		outbox:      params.Outbox,
		logg:        params.Logger,
		metrics:     params.Metrics,
		now:         now,
		newNumber:   newNumber,
	}, nil
}

// quote is the server side pricing of a checkout request.
type quote struct {
	items    []models.OrderItem
	subtotal decimal.Decimal
	discount decimal.Decimal
	total    decimal.Decimal
	coupon   *models.Coupon
}

// CreateOrder prices the request from the catalog, re-validates the coupon and
// writes the order with its items in one transaction. Online orders obtain a
// gateway order id first so a gateway failure leaves nothing behind.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	q, err := s.price(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := checkTotals(input, q); err != nil {
		return nil, err
	}

	number, err := s.newNumber(s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
	}

	var gatewayOrderID *string
	if input.PaymentMethod == enums.PaymentMethodOnline {
		if !q.total.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "online payment requires a positive total")
		}
		id, err := s.gateway.CreateOrder(ctx, minorUnits(q.total), number)
		if err != nil {
			s.logg.Error(s.logg.WithField(ctx, "order_number", number), "order.gateway_failed", err)
			return nil, err
		}
		gatewayOrderID = &id
	}

	order := buildOrder(input, q, number, gatewayOrderID)
	incrementCoupon := order.CouponID != nil && input.PaymentMethod == enums.PaymentMethodCOD

	err = s.persist(ctx, order, incrementCoupon, input.OwnerIdentity)
	if err != nil && db.IsUniqueViolation(err, orderNumberConstraint) {
		retryNumber, genErr := s.newNumber(s.now())
		if genErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, genErr, "generate order number")
		}
		s.logg.Warn(s.logg.WithField(ctx, "order_number", order.OrderNumber), "order.number_collision")
		order.OrderNumber = retryNumber
		err = s.persist(ctx, order, incrementCoupon, input.OwnerIdentity)
	}
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}

	if incrementCoupon {
		s.invalidateCoupons(ctx)
	}
	if s.metrics != nil {
		s.metrics.OrderCreated(string(order.PaymentMethod))
	}
	s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"order_number":   order.OrderNumber,
		"payment_method": order.PaymentMethod,
		"status":         order.Status,
		"total":          order.Total.StringFixed(2),
		"coupon_applied": order.CouponID != nil,
	}), "order.created")

	return ToDTO(order), nil
}

func validateCreate(input CreateOrderInput) error {
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d].productId is required", i)
		}
		if item.Quantity < 1 {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d].quantity must be at least 1", i)
		}
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "paymentMethod must be online or cod")
	}
	if strings.TrimSpace(input.Customer.Name) == "" || strings.TrimSpace(input.Customer.Email) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer name and email are required")
	}
	return nil
}

// price resolves every line through the catalog and applies the coupon.
// Repeated product ids are merged into one line.
func (s *service) price(ctx context.Context, input CreateOrderInput) (*quote, error) {
	order := make([]uuid.UUID, 0, len(input.Items))
	quantities := make(map[uuid.UUID]int, len(input.Items))
	for _, item := range input.Items {
		if _, seen := quantities[item.ProductID]; !seen {
			order = append(order, item.ProductID)
		}
		quantities[item.ProductID] += item.Quantity
	}

	snapshots, err := s.catalog.Lookup(ctx, order)
	if err != nil {
		return nil, err
	}
	if missing := product.Missing(order, snapshots); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "one or more products are unavailable").
			WithDetails(map[string]any{"invalidProductIds": missing})
	}

	q := &quote{subtotal: decimal.Zero, discount: decimal.Zero}
	lines := make([]coupons.Line, 0, len(order))
	for _, id := range order {
		snap := snapshots[id]
		qty := quantities[id]
		lineTotal := snap.Price.Mul(decimal.NewFromInt(int64(qty))).Round(2)
		q.items = append(q.items, models.OrderItem{
			ProductID:   id,
			ProductName: snap.Name,
			Quantity:    qty,
			UnitPrice:   snap.Price,
			LineTotal:   lineTotal,
		})
		q.subtotal = q.subtotal.Add(lineTotal)
		lines = append(lines, coupons.Line{
			ProductID:  id,
			CategoryID: snap.CategoryID,
			Quantity:   qty,
			UnitPrice:  snap.Price,
		})
	}

	if code := coupons.NormalizeCode(input.CouponCode); code != "" {
		coupon, err := s.coupons.FindByCode(ctx, code)
		if err != nil && !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, err
		}
		result := coupons.Validate(coupon, lines, q.subtotal, s.now())
		if !result.Valid {
			return nil, pkgerrors.New(pkgerrors.CodeCouponRejected, result.Reason.Message()).
				WithDetails(map[string]any{"reason": result.Reason})
		}
		q.coupon = coupon
		q.discount = result.Discount
	}

	q.total = q.subtotal.Sub(q.discount)
	if q.total.IsNegative() {
		q.total = decimal.Zero
	}
	q.total = q.total.Round(2)
	return q, nil
}

// checkTotals rejects requests whose figures disagree with the server's.
// Discount is only compared when the client sent one.
func checkTotals(input CreateOrderInput, q *quote) error {
	mismatch := !input.Subtotal.Round(2).Equal(q.subtotal) || !input.Total.Round(2).Equal(q.total)
	if input.Discount != nil && !input.Discount.Round(2).Equal(q.discount) {
		mismatch = true
	}
	if !mismatch {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "order totals do not match current prices").
		WithDetails(map[string]any{
			"subtotal": q.subtotal.StringFixed(2),
			"discount": q.discount.StringFixed(2),
			"total":    q.total.StringFixed(2),
		})
}

func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func buildOrder(input CreateOrderInput, q *quote, number string, gatewayOrderID *string) *models.Order {
	order := &models.Order{
		OrderNumber:        number,
		CustomerName:       strings.TrimSpace(input.Customer.Name),
		CustomerEmail:      strings.TrimSpace(input.Customer.Email),
		CustomerPhone:      strings.TrimSpace(input.Customer.Phone),
		ShippingAddress:    strings.TrimSpace(input.Shipping.Address),
		ShippingCity:       strings.TrimSpace(input.Shipping.City),
		ShippingState:      strings.TrimSpace(input.Shipping.State),
		ShippingPostalCode: strings.TrimSpace(input.Shipping.PostalCode),
		ShippingCountry:    strings.TrimSpace(input.Shipping.Country),
		Subtotal:           q.subtotal,
		Discount:           q.discount,
		Total:              q.total,
		Status:             enums.OrderStatusPending,
		PaymentStatus:      enums.PaymentStatusPending,
		PaymentMethod:      input.PaymentMethod,
		GatewayOrderID:     gatewayOrderID,
		Items:              q.items,
	}
	if input.PaymentMethod == enums.PaymentMethodCOD {
		order.Status = enums.OrderStatusProcessing
	}
	if owner := strings.TrimSpace(input.OwnerIdentity); owner != "" {
		order.OwnerIdentity = &owner
	}
	if q.coupon != nil {
		id := q.coupon.ID
		code := q.coupon.Code
		order.CouponID = &id
		order.CouponCode = &code
	}
	return order
}

func (s *service) persist(ctx context.Context, order *models.Order, incrementCoupon bool, owner string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		if incrementCoupon {
			applied, err := s.coupons.WithTx(tx).IncrementUsage(ctx, *order.CouponID)
			if err != nil {
				return err
			}
			if !applied {
				return pkgerrors.New(pkgerrors.CodeCouponRejected, coupons.ReasonUsageLimitReached.Message()).
					WithDetails(map[string]any{"reason": coupons.ReasonUsageLimitReached})
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         customerActor(owner),
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				PaymentMethod: order.PaymentMethod,
				Status:        order.Status,
				Subtotal:      order.Subtotal,
				Discount:      order.Discount,
				Total:         order.Total,
				CouponCode:    order.CouponCode,
				CustomerEmail: order.CustomerEmail,
				ItemCount:     len(order.Items),
			},
		})
	})
}

// ConfirmPayment verifies the gateway signature and marks the order paid.
// Only the call that wins the conditional update counts the coupon use and
// emits order_paid; repeated calls return the stored order.
func (s *service) ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderId is required")
	}
	if strings.TrimSpace(input.GatewayOrderID) == "" || strings.TrimSpace(input.GatewayPaymentID) == "" || strings.TrimSpace(input.Signature) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gatewayOrderId, gatewayPaymentId and signature are required")
	}
	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())

	if !s.verifier.Verify(input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
		s.recordPayment(outcomeSignatureMismatch)
		s.logg.Warn(s.logg.WithField(ctx, "gateway_order_id", input.GatewayOrderID), "payment.signature_mismatch")
		return nil, pkgerrors.New(pkgerrors.CodeSignatureMismatch, "payment signature is invalid")
	}

	var (
		order           *models.Order
		transitioned    bool
		couponOverLimit bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if current.GatewayOrderID == nil || *current.GatewayOrderID != input.GatewayOrderID {
			return pkgerrors.New(pkgerrors.CodeSignatureMismatch, "payment does not belong to this order")
		}
		if current.PaymentStatus == enums.PaymentStatusPaid {
			order = current
			return nil
		}

		paidAt := s.now()
		won, err := repo.MarkPaid(ctx, current.ID, input.GatewayPaymentID, paidAt)
		if err != nil {
			return err
		}
		if won && current.CouponID != nil {
			applied, err := s.coupons.WithTx(tx).IncrementUsage(ctx, *current.CouponID)
			if err != nil {
				return err
			}
			// the payment is already captured, so the order stands and the
			// overshoot is carried on the paid event instead of the counter
			couponOverLimit = !applied
		}

		order, err = repo.FindByID(ctx, current.ID)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		transitioned = true
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         customerActor(stringValue(order.OwnerIdentity)),
			Data: payloads.OrderPaidEvent{
				OrderID:          order.ID,
				OrderNumber:      order.OrderNumber,
				GatewayOrderID:   input.GatewayOrderID,
				GatewayPaymentID: input.GatewayPaymentID,
				Total:            order.Total,
				PaidAt:           paidAt,
				CouponOverLimit:  couponOverLimit,
			},
		})
	})
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeSignatureMismatch) {
			s.recordPayment(outcomeSignatureMismatch)
			s.logg.Warn(s.logg.WithField(ctx, "gateway_order_id", input.GatewayOrderID), "payment.order_mismatch")
			return nil, err
		}
		s.recordPayment(outcomeFailed)
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "confirm payment")
	}

	if !transitioned {
		s.recordPayment(outcomeDuplicate)
		s.logg.Info(ctx, "payment.already_confirmed")
		return ToDTO(order), nil
	}

	if order.CouponID != nil {
		s.invalidateCoupons(ctx)
	}
	if couponOverLimit {
		s.logg.Warn(s.logg.WithField(ctx, "coupon_id", order.CouponID.String()), "payment.coupon_over_limit")
	}
	s.recordPayment(outcomePaid)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_number":     order.OrderNumber,
		"gateway_order_id": input.GatewayOrderID,
		"total":            order.Total.StringFixed(2),
	}), "payment.confirmed")
	return ToDTO(order), nil
}

// UpdateStatus applies an administrative status change. Setting the current
// status again is a no-op and emits nothing.
func (s *service) UpdateStatus(ctx context.Context, input StatusUpdateInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderId is required")
	}
	status, err := enums.ParseOrderStatus(strings.ToLower(strings.TrimSpace(input.Status)))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"allowed": enums.OrderStatusValues()})
	}
	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())

	var (
		order   *models.Order
		from    enums.OrderStatus
		changed bool
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return err
		}
		from = current.Status
		if current.Status == status {
			order = current
			return nil
		}
		if err := repo.UpdateStatus(ctx, current.ID, status); err != nil {
			return err
		}
		order, err = repo.FindByID(ctx, current.ID)
		if err != nil {
			return err
		}
		changed = true

		var actor *outbox.ActorRef
		if input.ActorIdentity != "" {
			actor = &outbox.ActorRef{Identity: input.ActorIdentity, Role: input.ActorRole}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				From:        from,
				To:          status,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"from":  from,
			"to":    status,
			"actor": input.ActorIdentity,
		}), "order.status_updated")
	}
	return ToDTO(order), nil
}

// GetOrder loads an order with its items. Orders placed by a signed-in owner
// are only visible to that owner and to admins; others get NOT_FOUND.
func (s *service) GetOrder(ctx context.Context, id uuid.UUID, viewer Viewer) (*OrderDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderId is required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.OwnerIdentity != nil && !viewer.Admin && *order.OwnerIdentity != viewer.Identity {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return ToDTO(order), nil
}

// ListOrders pages through the viewer's own orders, or every order for an
// admin. Anonymous viewers are rejected.
func (s *service) ListOrders(ctx context.Context, viewer Viewer, input ListInput) (*pagination.Page[OrderDTO], error) {
	if !viewer.Admin && viewer.Identity == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to view orders")
	}
	after, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	var filter ListFilter
	if !viewer.Admin {
		identity := viewer.Identity
		filter.OwnerIdentity = &identity
	}
	if input.Status != "" {
		status, err := enums.ParseOrderStatus(input.Status)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
				WithDetails(map[string]any{"allowed": enums.OrderStatusValues()})
		}
		filter.Status = &status
	}

	limit := pagination.NormalizeLimit(input.Limit)
	rows, err := s.repo.List(ctx, filter, after, limit+1)
	if err != nil {
		return nil, err
	}
	rows, next := pagination.Trim(rows, limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})

	items := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *ToDTO(&rows[i]))
	}
	return &pagination.Page[OrderDTO]{Items: items, NextCursor: next}, nil
}

func (s *service) recordPayment(outcome string) {
	if s.metrics != nil {
		s.metrics.PaymentConfirmed(outcome)
	}
}

func (s *service) invalidateCoupons(ctx context.Context) {
	if s.couponCache != nil {
		s.couponCache.InvalidateActive(ctx)
	}
}

func customerActor(identity string) *outbox.ActorRef {
	if identity == "" {
		return nil
	}
	return &outbox.ActorRef{Identity: identity, Role: "customer"}
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
