package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-core/pkg/db"
	"github.com/angelmondragon/storefront-core/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-core/pkg/db/models"
	"github.com/angelmondragon/storefront-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
)

func sampleOrder(number string) *models.Order {
	gatewayID := "order_gw_1"
	return &models.Order{
		OrderNumber:        number,
		CustomerName:       "Asha Rao",
		CustomerEmail:      "asha@example.com",
		CustomerPhone:      "+919800000000",
		ShippingAddress:    "12 MG Road",
		ShippingCity:       "Bengaluru",
		ShippingState:      "KA",
		ShippingPostalCode: "560001",
		ShippingCountry:    "IN",
		Subtotal:           decimal.RequireFromString("1000"),
		Discount:           decimal.RequireFromString("100"),
		Total:              decimal.RequireFromString("900"),
		Status:             enums.OrderStatusPending,
		PaymentStatus:      enums.PaymentStatusPending,
		PaymentMethod:      enums.PaymentMethodOnline,
		GatewayOrderID:     &gatewayID,
		Items: []models.OrderItem{
			{
				ProductID:   uuid.New(),
				ProductName: "Custom Mug",
				Quantity:    2,
				UnitPrice:   decimal.RequireFromString("500"),
				LineTotal:   decimal.RequireFromString("1000"),
			},
		},
	}
}

func TestRepositoryCreateAndFind(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	order := sampleOrder("ORD-1")
	require.NoError(t, repo.Create(ctx, order))
	require.NotEqual(t, uuid.Nil, order.ID)

	got, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", got.OrderNumber)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("900")))
	require.Len(t, got.Items, 1)
	assert.Equal(t, order.ID, got.Items[0].OrderID)
	assert.Equal(t, 2, got.Items[0].Quantity)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestRepositoryCreateDuplicateNumber(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleOrder("ORD-DUP")))
	err := repo.Create(ctx, sampleOrder("ORD-DUP"))
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))
}

func TestRepositoryMarkPaidOnlyOnce(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	order := sampleOrder("ORD-PAY")
	require.NoError(t, repo.Create(ctx, order))

	paidAt := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	won, err := repo.MarkPaid(ctx, order.ID, "pay_1", paidAt)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.MarkPaid(ctx, order.ID, "pay_2", paidAt.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, won)

	got, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, enums.OrderStatusProcessing, got.Status)
	require.NotNil(t, got.GatewayPaymentID)
	assert.Equal(t, "pay_1", *got.GatewayPaymentID)
}

func TestRepositoryMarkPaidKeepsAdvancedStatus(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	paidAt := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	delivered := sampleOrder("ORD-DELIVERED")
	require.NoError(t, repo.Create(ctx, delivered))
	require.NoError(t, repo.UpdateStatus(ctx, delivered.ID, enums.OrderStatusDelivered))

	expired := sampleOrder("ORD-EXPIRED")
	require.NoError(t, repo.Create(ctx, expired))
	ok, err := repo.ExpireUnpaid(ctx, expired.ID, paidAt)
	require.NoError(t, err)
	require.True(t, ok)

	won, err := repo.MarkPaid(ctx, delivered.ID, "pay_1", paidAt)
	require.NoError(t, err)
	assert.True(t, won)
	won, err = repo.MarkPaid(ctx, expired.ID, "pay_2", paidAt)
	require.NoError(t, err)
	assert.True(t, won)

	got, err := repo.FindByID(ctx, delivered.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, got.Status)
	assert.Equal(t, enums.PaymentStatusPaid, got.PaymentStatus)

	got, err = repo.FindByID(ctx, expired.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, got.Status)
	assert.Equal(t, enums.PaymentStatusPaid, got.PaymentStatus)
}

func TestRepositoryUpdateStatus(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	order := sampleOrder("ORD-STATUS")
	require.NoError(t, repo.Create(ctx, order))
	require.NoError(t, repo.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled))

	got, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, got.Status)

	err = repo.UpdateStatus(ctx, uuid.New(), enums.OrderStatusShipped)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestRepositoryExpireUnpaidOnlineOrders(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	cutoff := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	stale := sampleOrder("ORD-STALE")
	stale.CreatedAt = cutoff.Add(-2 * time.Hour)
	require.NoError(t, repo.Create(ctx, stale))

	fresh := sampleOrder("ORD-FRESH")
	fresh.CreatedAt = cutoff.Add(time.Minute)
	require.NoError(t, repo.Create(ctx, fresh))

	cod := sampleOrder("ORD-COD")
	cod.PaymentMethod = enums.PaymentMethodCOD
	cod.GatewayOrderID = nil
	cod.CreatedAt = cutoff.Add(-2 * time.Hour)
	require.NoError(t, repo.Create(ctx, cod))

	paid := sampleOrder("ORD-PAID")
	paid.CreatedAt = cutoff.Add(-3 * time.Hour)
	require.NoError(t, repo.Create(ctx, paid))
	_, err := repo.MarkPaid(ctx, paid.ID, "pay_1", cutoff)
	require.NoError(t, err)

	rows, err := repo.ListUnpaidOnlineBefore(ctx, cutoff, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stale.ID, rows[0].ID)

	expired, err := repo.ExpireUnpaid(ctx, stale.ID, cutoff)
	require.NoError(t, err)
	assert.True(t, expired)

	expired, err = repo.ExpireUnpaid(ctx, stale.ID, cutoff)
	require.NoError(t, err)
	assert.False(t, expired)

	expired, err = repo.ExpireUnpaid(ctx, paid.ID, cutoff)
	require.NoError(t, err)
	assert.False(t, expired)

	got, err := repo.FindByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, got.Status)
	assert.Equal(t, enums.PaymentStatusFailed, got.PaymentStatus)
}

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, PreferSimpleProtocol: true}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return NewRepository(conn), mock
}

func TestRepositoryMarkPaidIsConditional(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	paidAt := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	query := `UPDATE "orders" SET "gateway_payment_id"=\$1,"paid_at"=\$2,"payment_status"=\$3,"status"=CASE WHEN status IN \(\$4, \$5\) THEN \$6 ELSE status END,"updated_at"=\$7 WHERE .*id = \$8 AND payment_status <> \$9`
	mock.ExpectExec(query).
		WithArgs("pay_1", paidAt, "paid", "pending", "cancelled", "processing", paidAt, id.String(), "paid").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).
		WithArgs("pay_1", paidAt, "paid", "pending", "cancelled", "processing", paidAt, id.String(), "paid").
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.MarkPaid(context.Background(), id, "pay_1", paidAt)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.MarkPaid(context.Background(), id, "pay_1", paidAt)
	require.NoError(t, err)
	assert.False(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryMarkPaidWrapsFailures(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`UPDATE "orders"`).WillReturnError(errors.New("connection reset"))

	won, err := repo.MarkPaid(context.Background(), uuid.New(), "pay_1", time.Now())
	require.Error(t, err)
	assert.False(t, won)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInternal))
	require.NoError(t, mock.ExpectationsWereMet())
}
