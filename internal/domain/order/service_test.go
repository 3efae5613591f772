package order_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/production-backend/internal/config"
	"github.com/your-org/production-backend/internal/domain/branch"
	"github.com/your-org/production-backend/internal/domain/inventory"
	"github.com/your-org/production-backend/internal/domain/order"
	"github.com/your-org/production-backend/internal/domain/product"
	"github.com/your-org/production-backend/internal/domain/user"
	"github.com/your-org/production-backend/internal/events"
	"github.com/your-org/production-backend/internal/pkg/apperr"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	db        *gorm.DB
	service   *order.Service
	inventory *inventory.Service
	recorder  *events.Recorder
	branch    branch.Branch
	branch2   branch.Branch
	bread     product.Product
	dough     product.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&branch.Branch{}, &user.User{}, &product.Product{},
		&order.Order{}, &order.OrderItem{}, &order.OrderStatusHistory{},
		&inventory.StockRecord{}, &inventory.StockMovement{}, &inventory.StockHistory{},
	))

	cfg := &config.Config{
		Inventory: config.InventoryConfig{MaxUpdateRetries: 3},
		Orders:    config.OrdersConfig{ReturnWindowDays: 3},
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	f := &fixture{db: db, recorder: events.NewRecorder()}
	f.inventory = inventory.NewService(db, cfg, log)
	f.service = order.NewService(db, cfg, f.inventory, f.recorder, log)

	f.branch = branch.Branch{Name: "Downtown", Code: "DT", IsActive: true}
	require.NoError(t, db.Create(&f.branch).Error)
	f.branch2 = branch.Branch{Name: "Harbor", Code: "HB", IsActive: true}
	require.NoError(t, db.Create(&f.branch2).Error)

	f.bread = product.Product{
		SKU: "BRD-001", Name: "Sourdough", Price: 1000,
		Unit: product.UnitPiece, Department: user.DepartmentBakery, IsActive: true,
	}
	require.NoError(t, db.Create(&f.bread).Error)

	f.dough = product.Product{
		SKU: "DGH-001", Name: "Pizza Dough", Price: 2000,
		Unit: product.UnitKg, Department: user.DepartmentBakery, IsActive: true,
	}
	require.NoError(t, db.Create(&f.dough).Error)

	return f
}

func (f *fixture) branchActor() user.Actor {
	return user.Actor{UserID: 10, Role: user.RoleBranch, BranchID: &f.branch.ID}
}

func (f *fixture) adminActor() user.Actor {
	return user.Actor{UserID: 1, Role: user.RoleAdmin}
}

// forceStatus walks the order through production states the order service
// itself does not own.
func (f *fixture) forceStatus(t *testing.T, orderID uint, path ...order.OrderStatus) {
	t.Helper()
	tx := f.db.Begin()
	var o order.Order
	require.NoError(t, tx.Preload("Items").Where("id = ?", orderID).First(&o).Error)
	for _, next := range path {
		require.NoError(t, order.TransitionTx(tx, &o, next, 1, "test"))
	}
	require.NoError(t, tx.Commit().Error)
}

func TestCreateOrder_MergesDuplicateLinesAndComputesTotals(t *testing.T) {
	f := newFixture(t)

	o, err := f.service.CreateOrder(context.Background(), f.branchActor(), &order.CreateOrderRequest{
		BranchID: f.branch.ID,
		Items: []order.CreateOrderItemInput{
			{ProductID: f.bread.ID, Quantity: 3, Price: 1000},
			{ProductID: f.dough.ID, Quantity: 3, Price: 2000},
			{ProductID: f.bread.ID, Quantity: 2, Price: 1000},
		},
	})

	require.NoError(t, err)
	require.Len(t, o.Items, 2)
	assert.Equal(t, 5.0, o.Items[0].Quantity)
	assert.Equal(t, 3.0, o.Items[1].Quantity)
	// 5 x 10.00 + 3kg x 20.00 = 110.00
	assert.Equal(t, int64(11000), o.TotalAmount)
	assert.Equal(t, int64(11000), o.AdjustedTotal)
	assert.Equal(t, order.OrderStatusPending, o.Status)

	require.Len(t, o.StatusHistory, 1)
	assert.Equal(t, order.OrderStatusPending, o.StatusHistory[0].Status)

	created := f.recorder.ByTopic(events.TopicOrderCreated)
	require.Len(t, created, 1)
	assert.Equal(t, o.ID, created[0].OrderID)
}

func TestCreateOrder_GeneratesOrderNumberWhenEmpty(t *testing.T) {
	f := newFixture(t)

	o, err := f.service.CreateOrder(context.Background(), f.branchActor(), &order.CreateOrderRequest{
		BranchID: f.branch.ID,
		Items:    []order.CreateOrderItemInput{{ProductID: f.bread.ID, Quantity: 1, Price: 1000}},
	})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(o.OrderNumber, "ORD-"), "got %q", o.OrderNumber)
}

func TestCreateOrder_DuplicateNumberSameBranchConflicts(t *testing.T) {
	f := newFixture(t)
	req := &order.CreateOrderRequest{
		BranchID:    f.branch.ID,
		OrderNumber: "ORD-X-1",
		Items:       []order.CreateOrderItemInput{{ProductID: f.bread.ID, Quantity: 1, Price: 1000}},
	}

	_, err := f.service.CreateOrder(context.Background(), f.branchActor(), req)
	require.NoError(t, err)

	_, err = f.service.CreateOrder(context.Background(), f.branchActor(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// The same number at a different branch is fine.
	other := user.Actor{UserID: 11, Role: user.RoleBranch, BranchID: &f.branch2.ID}
	_, err = f.service.CreateOrder(context.Background(), other, &order.CreateOrderRequest{
		BranchID:    f.branch2.ID,
		OrderNumber: "ORD-X-1",
		Items:       []order.CreateOrderItemInput{{ProductID: f.bread.ID, Quantity: 1, Price: 1000}},
	})
	require.NoError(t, err)
}

func TestCreateOrder_RejectsTamperedPrice(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateOrder(context.Background(), f.branchActor(), &order.CreateOrderRequest{
		BranchID: f.branch.ID,
		Items:    []order.CreateOrderItemInput{{ProductID: f.bread.ID, Quantity: 1, Price: 1}},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateOrder_RejectsInvalidGranularity(t *testing.T) {
	f := newFixture(t)

	// 2.5 pieces is not a thing.
	_, err := f.service.CreateOrder(context.Background(), f.branchActor(), &order.CreateOrderRequest{
		BranchID: f.branch.ID,
		Items:    []order.CreateOrderItemInput{{ProductID: f.bread.ID, Quantity: 2.5, Price: 1000}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// 2.5 kg is fine.
	_, err = f.service.CreateOrder(context.Background(), f.branchActor(), &order.CreateOrderRequest{
		BranchID: f.branch.ID,
		Items:    []order.CreateOrderItemInput{{ProductID: f.dough.ID, Quantity: 2.5, Price: 2000}},
	})
	require.NoError(t, err)
}

func TestCreateOrder_DeniesForeignBranchActor(t *testing.T) {
	f := newFixture(t)

	foreign := user.Actor{UserID: 99, Role: user.RoleBranch, BranchID: &f.branch2.ID}
	_, err := f.service.CreateOrder(context.Background(), foreign, &order.CreateOrderRequest{
		BranchID: f.branch.ID,
		Items:    []order.CreateOrderItemInput{{ProductID: f.bread.ID, Quantity: 1, Price: 1000}},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
}

func TestApproveOrder_RequiresStaffRole(t *testing.T) {
	f := newFixture(t)
	o, err := f.service.CreateOrder(context.Background(), f.branchActor(), &order.CreateOrderRequest{
		BranchID: f.branch.ID,
		Items:    []order.CreateOrderItemInput{{ProductID: f.bread.ID, Quantity: 1, Price: 1000}},
	})
	require.NoError(t, err)

	_, err = f.service.ApproveOrder(context.Background(), f.branchActor(), o.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)

	approved, err := f.service.ApproveOrder(context.Background(), f.adminActor(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, uint(1), *approved.ApprovedBy)
	assert.NotNil(t, approved.ApprovedAt)
}

func TestCancelOrder_ClosedAfterProductionCompletes(t *testing.T) {
	f := newFixture(t)
	o, err := f.service.CreateOrder(context.Background(), f.branchActor(), &order.CreateOrderRequest{
		BranchID: f.branch.ID,
		Items:    []order.CreateOrderItemInput{{ProductID: f.bread.ID, Quantity: 1, Price: 1000}},
	})
	require.NoError(t, err)

	_, err = f.service.ApproveOrder(context.Background(), f.adminActor(), o.ID)
	require.NoError(t, err)
	f.forceStatus(t, o.ID, order.OrderStatusInProduction, order.OrderStatusCompleted)

	_, err = f.service.CancelOrder(context.Background(), f.branchActor(), o.ID, "changed my mind")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestFullLifecycle_DeliveryCreditsStockOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.service.CreateOrder(ctx, f.branchActor(), &order.CreateOrderRequest{
		BranchID: f.branch.ID,
		Items: []order.CreateOrderItemInput{
			{ProductID: f.bread.ID, Quantity: 5, Price: 1000},
			{ProductID: f.dough.ID, Quantity: 3, Price: 2000},
		},
	})
	require.NoError(t, err)

	_, err = f.service.ApproveOrder(ctx, f.adminActor(), o.ID)
	require.NoError(t, err)
	f.forceStatus(t, o.ID, order.OrderStatusInProduction, order.OrderStatusCompleted)

	inTransit, err := f.service.StartTransit(ctx, f.adminActor(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusInTransit, inTransit.Status)
	assert.NotNil(t, inTransit.TransitStartedAt)

	delivered, err := f.service.ConfirmDelivery(ctx, f.branchActor(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusDelivered, delivered.Status)
	assert.NotNil(t, delivered.DeliveredAt)

	breadStock, err := f.inventory.GetStockRecord(f.branch.ID, f.bread.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, breadStock.CurrentStock)

	doughStock, err := f.inventory.GetStockRecord(f.branch.ID, f.dough.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, doughStock.CurrentStock)

	// Exactly one delivery movement per line.
	var count int64
	require.NoError(t, f.db.Model(&inventory.StockMovement{}).
		Where("reference = ?", order.DeliveryReference(o.ID)).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	// A second confirmation is rejected outright; delivered is terminal.
	_, err = f.service.ConfirmDelivery(ctx, f.branchActor(), o.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	// Full audit trail: pending, approved, in_production, completed,
	// in_transit, delivered.
	final, err := f.service.GetOrder(f.branchActor(), o.ID)
	require.NoError(t, err)
	require.Len(t, final.StatusHistory, 6)
	assert.Equal(t, order.OrderStatusDelivered, final.StatusHistory[5].Status)
}

func TestGetOrder_DeniesForeignBranch(t *testing.T) {
	f := newFixture(t)
	o, err := f.service.CreateOrder(context.Background(), f.branchActor(), &order.CreateOrderRequest{
		BranchID: f.branch.ID,
		Items:    []order.CreateOrderItemInput{{ProductID: f.bread.ID, Quantity: 1, Price: 1000}},
	})
	require.NoError(t, err)

	foreign := user.Actor{UserID: 99, Role: user.RoleBranch, BranchID: &f.branch2.ID}
	_, err = f.service.GetOrder(foreign, o.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
}

func TestGetOrders_BranchScopedListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for range [3]struct{}{} {
		_, err := f.service.CreateOrder(ctx, f.branchActor(), &order.CreateOrderRequest{
			BranchID: f.branch.ID,
			Items:    []order.CreateOrderItemInput{{ProductID: f.bread.ID, Quantity: 1, Price: 1000}},
		})
		require.NoError(t, err)
	}
	other := user.Actor{UserID: 11, Role: user.RoleBranch, BranchID: &f.branch2.ID}
	_, err := f.service.CreateOrder(ctx, other, &order.CreateOrderRequest{
		BranchID: f.branch2.ID,
		Items:    []order.CreateOrderItemInput{{ProductID: f.bread.ID, Quantity: 1, Price: 1000}},
	})
	require.NoError(t, err)

	// Branch actors only ever see their own orders.
	res, err := f.service.GetOrders(f.branchActor(), &order.OrderListRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, res.Orders, 3)
	assert.Equal(t, int64(3), res.Pagination.Total)

	// Staff see everything.
	res, err = f.service.GetOrders(f.adminActor(), &order.OrderListRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, res.Orders, 4)
}

func TestLineTotal_Rounding(t *testing.T) {
	item := order.OrderItem{Quantity: 1.5, Price: 333}
	assert.Equal(t, int64(500), item.LineTotal())
}

func TestStatusHistoryTimestampsAscend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.service.CreateOrder(ctx, f.branchActor(), &order.CreateOrderRequest{
		BranchID: f.branch.ID,
		Items:    []order.CreateOrderItemInput{{ProductID: f.bread.ID, Quantity: 1, Price: 1000}},
	})
	require.NoError(t, err)
	_, err = f.service.ApproveOrder(ctx, f.adminActor(), o.ID)
	require.NoError(t, err)

	got, err := f.service.GetOrder(f.adminActor(), o.ID)
	require.NoError(t, err)
	require.Len(t, got.StatusHistory, 2)
	assert.False(t, got.StatusHistory[1].CreatedAt.Before(got.StatusHistory[0].CreatedAt))
}
