// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/your-org/production-backend/internal/domain/branch"
	"github.com/your-org/production-backend/internal/domain/inventory"
	"github.com/your-org/production-backend/internal/domain/order"
	"github.com/your-org/production-backend/internal/domain/product"
	"github.com/your-org/production-backend/internal/domain/production"
	"github.com/your-org/production-backend/internal/domain/returns"
	"github.com/your-org/production-backend/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Models in dependency order
	models := []interface{}{
		&branch.Branch{},
		&user.User{},
		&product.Product{},

		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},

		&production.Assignment{},

		&inventory.StockRecord{},
		&inventory.StockMovement{},
		&inventory.StockHistory{},

		&returns.ReturnRequest{},
		&returns.ReturnItem{},
		&returns.ReturnStatusHistory{},
	}

	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email_active ON users(email, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_users_branch_role ON users(branch_id, role)",
		"CREATE INDEX IF NOT EXISTS idx_users_department ON users(department)",

		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_department_active ON products(department, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_sku ON products(sku)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_branch_status ON orders(branch_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_by ON orders(created_by)",

		// Order items indexes
		"CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items(product_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_status ON order_items(status)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_assigned ON order_items(assigned_to)",

		// Order status history indexes
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at DESC)",

		// Assignment indexes
		"CREATE INDEX IF NOT EXISTS idx_assignments_chef_status ON assignments(chef_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_assignments_order_status ON assignments(order_id, status)",

		// Stock indexes
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_kind_reference ON stock_movements(kind, reference)",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_reference ON stock_movements(reference)",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_created_at ON stock_movements(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_stock_history_record ON stock_history(stock_record_id, created_at DESC)",

		// Return indexes
		"CREATE INDEX IF NOT EXISTS idx_return_requests_branch_status ON return_requests(branch_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_return_requests_order ON return_requests(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_return_items_request ON return_items(return_request_id)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts initial data into the database
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	if err := m.seedBranches(); err != nil {
		return fmt.Errorf("failed to seed branches: %w", err)
	}

	if err := m.seedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

// seedBranches creates the central production branch
func (m *Migration) seedBranches() error {
	log.Println("🏭 Seeding branches...")

	branches := []branch.Branch{
		{
			Code:     "CENTRAL",
			Name:     "Central Production Facility",
			Address:  "Main production site",
			IsActive: true,
		},
	}

	for _, b := range branches {
		var existing branch.Branch
		result := m.db.Where("code = ?", b.Code).First(&existing)
		if result.Error != nil {
			if err := m.db.Create(&b).Error; err != nil {
				return err
			}
			log.Printf("✅ Created branch: %s", b.Name)
		} else {
			log.Printf("⏭️ Branch already exists: %s", b.Name)
		}
	}

	return nil
}

func (m *Migration) seedAdminUser() error {
	log.Println("👤 Seeding admin user...")

	var existing user.User
	result := m.db.Where("email = ?", "admin@example.com").First(&existing)
	if result.Error != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), 10)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		adminUser := user.User{
			Email:     "admin@example.com",
			Password:  string(hashedPassword),
			FirstName: "Admin",
			LastName:  "User",
			Role:      user.RoleAdmin,
			IsActive:  true,
		}

		if err := m.db.Create(&adminUser).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("✅ Created admin user: admin@example.com")
	} else {
		log.Printf("⏭️ Admin user already exists with ID: %d", existing.ID)
	}

	return nil
}
