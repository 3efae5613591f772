package inventory_test

import (
	"io"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/production-backend/internal/config"
	"github.com/your-org/production-backend/internal/domain/inventory"
	"github.com/your-org/production-backend/internal/pkg/apperr"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newService(t *testing.T) (*inventory.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&inventory.StockRecord{}, &inventory.StockMovement{}, &inventory.StockHistory{},
	))

	cfg := &config.Config{Inventory: config.InventoryConfig{MaxUpdateRetries: 3}}

	log := logrus.New()
	log.SetOutput(io.Discard)

	return inventory.NewService(db, cfg, log), db
}

func apply(t *testing.T, s *inventory.Service, kind inventory.MovementKind, qty float64) (*inventory.StockRecord, error) {
	t.Helper()
	return s.ApplyMovement(inventory.Movement{
		BranchID:  1,
		ProductID: 1,
		Quantity:  qty,
		Kind:      kind,
		Reference: "test",
		ActorID:   1,
	})
}

func TestApplyMovement_KindMath(t *testing.T) {
	s, _ := newService(t)

	record, err := apply(t, s, inventory.MovementDelivery, 10)
	require.NoError(t, err)
	assert.Equal(t, 10.0, record.CurrentStock)
	assert.Equal(t, 0.0, record.PendingReturnStock)
	assert.Equal(t, 0.0, record.DamagedStock)

	record, err = apply(t, s, inventory.MovementReturnPending, 4)
	require.NoError(t, err)
	assert.Equal(t, 6.0, record.CurrentStock)
	assert.Equal(t, 4.0, record.PendingReturnStock)

	record, err = apply(t, s, inventory.MovementReturnApproved, 2)
	require.NoError(t, err)
	assert.Equal(t, 6.0, record.CurrentStock)
	assert.Equal(t, 2.0, record.PendingReturnStock)

	// Rejection puts the goods back on the shelf but flags them damaged.
	record, err = apply(t, s, inventory.MovementReturnRejected, 2)
	require.NoError(t, err)
	assert.Equal(t, 8.0, record.CurrentStock)
	assert.Equal(t, 0.0, record.PendingReturnStock)
	assert.Equal(t, 2.0, record.DamagedStock)

	record, err = apply(t, s, inventory.MovementDamage, 3)
	require.NoError(t, err)
	assert.Equal(t, 5.0, record.CurrentStock)
	assert.Equal(t, 5.0, record.DamagedStock)

	record, err = apply(t, s, inventory.MovementAdjustment, -1.5)
	require.NoError(t, err)
	assert.Equal(t, 3.5, record.CurrentStock)

	record, err = apply(t, s, inventory.MovementAdjustment, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 4.0, record.CurrentStock)
}

func TestApplyMovement_RejectsNegativeOutcome(t *testing.T) {
	s, _ := newService(t)

	_, err := apply(t, s, inventory.MovementDelivery, 5)
	require.NoError(t, err)

	_, err = apply(t, s, inventory.MovementDamage, 6)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNegativeStock)

	_, err = apply(t, s, inventory.MovementReturnApproved, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNegativeStock)

	// The failed movements left no trace.
	record, err := s.GetStockRecord(1, 1)
	require.NoError(t, err)
	assert.Equal(t, 5.0, record.CurrentStock)
	assert.Equal(t, 0.0, record.DamagedStock)
}

func TestApplyMovement_RejectsBadQuantities(t *testing.T) {
	s, _ := newService(t)

	_, err := apply(t, s, inventory.MovementDelivery, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = apply(t, s, inventory.MovementDelivery, -3)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = apply(t, s, inventory.MovementKind("teleport"), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestApplyMovement_VersionAdvancesPerUpdate(t *testing.T) {
	s, _ := newService(t)

	record, err := apply(t, s, inventory.MovementDelivery, 1)
	require.NoError(t, err)
	first := record.Version

	record, err = apply(t, s, inventory.MovementDelivery, 1)
	require.NoError(t, err)
	assert.Equal(t, first+1, record.Version)

	record, err = apply(t, s, inventory.MovementDelivery, 1)
	require.NoError(t, err)
	assert.Equal(t, first+2, record.Version)
}

func TestApplyMovement_WritesMovementAndHistoryRows(t *testing.T) {
	s, db := newService(t)

	record, err := apply(t, s, inventory.MovementDelivery, 10)
	require.NoError(t, err)
	_, err = apply(t, s, inventory.MovementReturnPending, 4)
	require.NoError(t, err)

	var movements []inventory.StockMovement
	require.NoError(t, db.Where("stock_record_id = ?", record.ID).Order("id").Find(&movements).Error)
	require.Len(t, movements, 2)
	assert.Equal(t, inventory.DirectionIn, movements[0].Direction)
	assert.Equal(t, 10.0, movements[0].Quantity)
	assert.Equal(t, inventory.DirectionOut, movements[1].Direction)
	assert.Equal(t, 4.0, movements[1].Quantity)

	var history []inventory.StockHistory
	require.NoError(t, db.Where("stock_record_id = ?", record.ID).Order("id").Find(&history).Error)
	require.Len(t, history, 2)
	assert.Equal(t, 0.0, history[0].PreviousCurrent)
	assert.Equal(t, 10.0, history[0].NewCurrent)
	assert.Equal(t, 10.0, history[1].PreviousCurrent)
	assert.Equal(t, 6.0, history[1].NewCurrent)
	assert.Equal(t, 4.0, history[1].NewPending)
}

func TestHasMovementTx_MarkerDetection(t *testing.T) {
	s, db := newService(t)

	_, err := s.ApplyMovement(inventory.Movement{
		BranchID: 1, ProductID: 1, Quantity: 2,
		Kind: inventory.MovementDelivery, Reference: "order:7:delivery", ActorID: 1,
	})
	require.NoError(t, err)

	found, err := inventory.HasMovementTx(db, inventory.MovementDelivery, "order:7:delivery")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = inventory.HasMovementTx(db, inventory.MovementDelivery, "order:8:delivery")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIsLowStock(t *testing.T) {
	assert.True(t, (&inventory.StockRecord{MinStock: 5, CurrentStock: 5}).IsLowStock())
	assert.False(t, (&inventory.StockRecord{MinStock: 5, CurrentStock: 6}).IsLowStock())
	assert.False(t, (&inventory.StockRecord{MinStock: 0, CurrentStock: 0}).IsLowStock())
}

func TestGetMovements_LimitsAndOrders(t *testing.T) {
	s, _ := newService(t)

	for i := 0; i < 5; i++ {
		_, err := apply(t, s, inventory.MovementDelivery, 1)
		require.NoError(t, err)
	}

	movements, err := s.GetMovements(1, 1, 3)
	require.NoError(t, err)
	assert.Len(t, movements, 3)
	// Newest first.
	assert.Greater(t, movements[0].ID, movements[1].ID)
}

func TestApplyMovement_ConcurrentWriterExhaustsRetries(t *testing.T) {
	s, db := newService(t)

	_, err := apply(t, s, inventory.MovementDelivery, 10)
	require.NoError(t, err)

	// A rival writer advances the version between every load and
	// conditional update, so each attempt loses the race.
	err = db.Callback().Update().Before("gorm:update").Register("rival_writer", func(tx *gorm.DB) {
		if tx.Statement.Table != "stock_records" {
			return
		}
		tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE stock_records SET version = version + 1 WHERE branch_id = ? AND product_id = ?", 1, 1)
	})
	require.NoError(t, err)

	_, err = apply(t, s, inventory.MovementDelivery, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConcurrentUpdate)

	require.NoError(t, db.Callback().Update().Remove("rival_writer"))

	// The exhausted attempt rolled back whole: counters and version intact.
	record, err := s.GetStockRecord(1, 1)
	require.NoError(t, err)
	assert.Equal(t, 10.0, record.CurrentStock)
	assert.Equal(t, int64(1), record.Version)
}
