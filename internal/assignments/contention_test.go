package assignments

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/amontesdeoca/equiptrack-backend/internal/inventory"
	"github.com/amontesdeoca/equiptrack-backend/internal/staff"
	"github.com/amontesdeoca/equiptrack-backend/pkg/db/models"
	pkgerrors "github.com/amontesdeoca/equiptrack-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// The contention test needs real row locks, which sqlite cannot provide.
func openContentionDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("EQUIPTRACK_TEST_DB_DSN")
	if dsn == "" {
		t.Skip("EQUIPTRACK_TEST_DB_DSN is not set")
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS inventory_items (
  id UUID PRIMARY KEY,
  name TEXT NOT NULL,
  category TEXT NOT NULL,
  serial_prefix TEXT,
  quantity_total INTEGER NOT NULL DEFAULT 0,
  quantity_available INTEGER NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ,
  updated_at TIMESTAMPTZ
);`,
		`CREATE TABLE IF NOT EXISTS item_assignments (
  id UUID PRIMARY KEY,
  item_id UUID NOT NULL,
  staff_id UUID NOT NULL,
  status TEXT NOT NULL DEFAULT 'assigned',
  allocation_date TIMESTAMPTZ NOT NULL,
  returned_at TIMESTAMPTZ,
  created_at TIMESTAMPTZ,
  updated_at TIMESTAMPTZ
);`,
		`CREATE TABLE IF NOT EXISTS staff_members (
  id UUID PRIMARY KEY,
  full_name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  department TEXT NOT NULL,
  created_at TIMESTAMPTZ,
  updated_at TIMESTAMPTZ
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	t.Cleanup(func() {
		for _, table := range []string{"item_assignments", "inventory_items", "staff_members"} {
			_ = conn.Exec("DROP TABLE IF EXISTS " + table).Error
		}
	})
	return conn
}

func TestAssignSerializesOnItemLock(t *testing.T) {
	conn := openContentionDB(t)
	ctx := context.Background()

	item := &models.InventoryItem{
		ID:                uuid.New(),
		Name:              "thermal camera",
		Category:          "field",
		QuantityTotal:     1,
		QuantityAvailable: 1,
	}
	require.NoError(t, conn.Create(item).Error)

	member := &models.StaffMember{
		ID:         uuid.New(),
		FullName:   "Iris Okafor",
		Email:      "iris." + uuid.NewString()[:8] + "@example.com",
		Department: "field-ops",
	}
	require.NoError(t, conn.Create(member).Error)

	svc, err := NewService(
		connRunner{conn: conn},
		NewRepository(conn),
		inventory.NewRepository(conn),
		staff.NewRepository(conn),
	)
	require.NoError(t, err)

	const callers = 6
	results := make([]error, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(slot int) {
			defer wg.Done()
			_, results[slot] = svc.Assign(ctx, item.ID, member.ID)
		}(i)
	}
	wg.Wait()

	succeeded, outOfStock := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock):
			outOfStock++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded, "exactly one caller may win the last unit")
	require.Equal(t, callers-1, outOfStock)

	var stored models.InventoryItem
	require.NoError(t, conn.First(&stored, "id = ?", item.ID).Error)
	require.Equal(t, 0, stored.QuantityAvailable)
}
