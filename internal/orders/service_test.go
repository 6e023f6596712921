package orders

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mgardella/storefront-backend/pkg/db/models"
	"github.com/mgardella/storefront-backend/pkg/enums"
	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
	"github.com/mgardella/storefront-backend/pkg/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Order{}, &models.OrderLine{}))
	return conn
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	conn := openTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
	svc, err := NewService(NewRepository(conn), logg)
	require.NoError(t, err)
	return svc, conn
}

func seedOrder(t *testing.T, conn *gorm.DB, userID uuid.UUID, status enums.OrderStatus, total decimal.Decimal) *models.Order {
	t.Helper()

	order := models.Order{
		UserID: userID,
		Total:  total,
		Status: status,
		Lines: []models.OrderLine{
			{ProductID: uuid.New(), Qty: 1, Price: total},
		},
	}
	require.NoError(t, conn.Create(&order).Error)
	return &order
}

func TestTrackForUserScopesByOwner(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	order := seedOrder(t, conn, owner, enums.OrderStatusPending, decimal.NewFromInt(20))

	found, err := svc.TrackForUser(ctx, order.ID, owner)
	require.NoError(t, err)
	require.Equal(t, order.ID, found.ID)
	require.Len(t, found.Lines, 1)

	_, err = svc.TrackForUser(ctx, order.ID, uuid.New())
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound), "other users must see NOT_FOUND, got %v", err)
}

func TestUpdateStatusLegalMove(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	order := seedOrder(t, conn, uuid.New(), enums.OrderStatusPending, decimal.NewFromInt(10))

	updated, err := svc.UpdateStatus(ctx, order.ID, enums.OrderStatusPaid)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPaid, updated.Status)

	var stored models.Order
	require.NoError(t, conn.First(&stored, "id = ?", order.ID).Error)
	require.Equal(t, enums.OrderStatusPaid, stored.Status)
}

func TestUpdateStatusIllegalMove(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	order := seedOrder(t, conn, uuid.New(), enums.OrderStatusDelivered, decimal.NewFromInt(10))

	_, err := svc.UpdateStatus(ctx, order.ID, enums.OrderStatusPaid)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict), "expected STATE_CONFLICT, got %v", err)

	var stored models.Order
	require.NoError(t, conn.First(&stored, "id = ?", order.ID).Error)
	require.Equal(t, enums.OrderStatusDelivered, stored.Status)
}

func TestUpdateStatusUnknownValue(t *testing.T) {
	svc, conn := newTestService(t)
	order := seedOrder(t, conn, uuid.New(), enums.OrderStatusPending, decimal.NewFromInt(10))

	_, err := svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatus("refunded"))
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "expected VALIDATION_ERROR, got %v", err)
}

func TestUpdateStatusMissingOrder(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), enums.OrderStatusPaid)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound), "expected NOT_FOUND, got %v", err)
}

func TestSalesReportCountsPaidAndDelivered(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	seedOrder(t, conn, userID, enums.OrderStatusPaid, decimal.NewFromFloat(10.50))
	seedOrder(t, conn, userID, enums.OrderStatusDelivered, decimal.NewFromFloat(4.25))
	seedOrder(t, conn, userID, enums.OrderStatusPending, decimal.NewFromInt(99))
	seedOrder(t, conn, userID, enums.OrderStatusShipped, decimal.NewFromInt(50))
	seedOrder(t, conn, userID, enums.OrderStatusCancelled, decimal.NewFromInt(7))

	report, err := svc.SalesReport(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, report.OrdersCount)
	require.True(t, report.TotalSales.Equal(decimal.NewFromFloat(14.75)),
		"expected total 14.75, got %s", report.TotalSales)
}

func TestSalesReportEmpty(t *testing.T) {
	svc, _ := newTestService(t)

	report, err := svc.SalesReport(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report.OrdersCount)
	require.True(t, report.TotalSales.IsZero())
}
