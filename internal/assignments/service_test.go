package assignments

import (
	"context"
	"testing"
	"time"

	"github.com/amontesdeoca/equiptrack-backend/internal/inventory"
	"github.com/amontesdeoca/equiptrack-backend/internal/staff"
	"github.com/amontesdeoca/equiptrack-backend/pkg/db"
	"github.com/amontesdeoca/equiptrack-backend/pkg/db/models"
	"github.com/amontesdeoca/equiptrack-backend/pkg/enums"
	pkgerrors "github.com/amontesdeoca/equiptrack-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAssignmentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:assignments_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS inventory_items (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  category TEXT NOT NULL,
  serial_prefix TEXT,
  quantity_total INTEGER NOT NULL DEFAULT 0,
  quantity_available INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS item_assignments (
  id TEXT PRIMARY KEY,
  item_id TEXT NOT NULL,
  staff_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'assigned',
  allocation_date DATETIME NOT NULL,
  returned_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS staff_members (
  id TEXT PRIMARY KEY,
  full_name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  department TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

type connRunner struct {
	conn *gorm.DB
}

func (r connRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return db.RunInTx(ctx, r.conn, fn)
}

func seedItem(t *testing.T, conn *gorm.DB, total, available int) *models.InventoryItem {
	t.Helper()
	item := &models.InventoryItem{
		ID:                uuid.New(),
		Name:              "oscilloscope",
		Category:          "lab",
		QuantityTotal:     total,
		QuantityAvailable: available,
	}
	require.NoError(t, conn.Create(item).Error)
	return item
}

func seedStaff(t *testing.T, conn *gorm.DB) *models.StaffMember {
	t.Helper()
	member := &models.StaffMember{
		ID:         uuid.New(),
		FullName:   "Rosa Delgado",
		Email:      "rosa." + uuid.NewString()[:8] + "@example.com",
		Department: "engineering",
	}
	require.NoError(t, conn.Create(member).Error)
	return member
}

func reloadItem(t *testing.T, conn *gorm.DB, id uuid.UUID) *models.InventoryItem {
	t.Helper()
	var item models.InventoryItem
	require.NoError(t, conn.First(&item, "id = ?", id).Error)
	return &item
}

func newAssignmentsService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(
		connRunner{conn: conn},
		NewRepository(conn),
		inventory.NewRepository(conn),
		staff.NewRepository(conn),
	)
	require.NoError(t, err)
	return svc
}

func TestAssignDecrementsAvailability(t *testing.T) {
	t.Parallel()

	conn := setupAssignmentsTestDB(t)
	ctx := context.Background()
	item := seedItem(t, conn, 5, 2)
	member := seedStaff(t, conn)
	svc := newAssignmentsService(t, conn)

	assignment, err := svc.Assign(ctx, item.ID, member.ID)
	require.NoError(t, err)
	require.NotNil(t, assignment)
	assert.Equal(t, enums.AssignmentStatusAssigned, assignment.Status)
	assert.Equal(t, item.ID, assignment.ItemID)
	assert.Equal(t, member.ID, assignment.StaffID)
	assert.False(t, assignment.AllocationDate.IsZero())

	assert.Equal(t, 1, reloadItem(t, conn, item.ID).QuantityAvailable)
}

func TestAssignOutOfStockLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	conn := setupAssignmentsTestDB(t)
	ctx := context.Background()
	item := seedItem(t, conn, 3, 0)
	member := seedStaff(t, conn)
	svc := newAssignmentsService(t, conn)

	_, err := svc.Assign(ctx, item.ID, member.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock))

	assert.Equal(t, 0, reloadItem(t, conn, item.ID).QuantityAvailable)

	var count int64
	require.NoError(t, conn.Model(&models.ItemAssignment{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestAssignExhaustsLastUnit(t *testing.T) {
	t.Parallel()

	conn := setupAssignmentsTestDB(t)
	ctx := context.Background()
	item := seedItem(t, conn, 1, 1)
	member := seedStaff(t, conn)
	svc := newAssignmentsService(t, conn)

	_, err := svc.Assign(ctx, item.ID, member.ID)
	require.NoError(t, err)

	_, err = svc.Assign(ctx, item.ID, member.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock))

	assert.Equal(t, 0, reloadItem(t, conn, item.ID).QuantityAvailable)
}

func TestAssignUnknownReferences(t *testing.T) {
	t.Parallel()

	conn := setupAssignmentsTestDB(t)
	ctx := context.Background()
	item := seedItem(t, conn, 2, 2)
	member := seedStaff(t, conn)
	svc := newAssignmentsService(t, conn)

	_, err := svc.Assign(ctx, item.ID, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Assign(ctx, uuid.New(), member.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	assert.Equal(t, 2, reloadItem(t, conn, item.ID).QuantityAvailable)
}

type failingItemsRepo struct {
	inventory.Repository
	failAdjust bool
}

func (f *failingItemsRepo) WithTx(tx *gorm.DB) inventory.Repository {
	return &failingItemsRepo{Repository: f.Repository.WithTx(tx), failAdjust: f.failAdjust}
}

func (f *failingItemsRepo) AdjustAvailable(ctx context.Context, id uuid.UUID, delta int) error {
	if f.failAdjust {
		return pkgerrors.New(pkgerrors.CodeDependency, "simulated store failure")
	}
	return f.Repository.AdjustAvailable(ctx, id, delta)
}

func TestAssignRollsBackWhenDecrementFails(t *testing.T) {
	t.Parallel()

	conn := setupAssignmentsTestDB(t)
	ctx := context.Background()
	item := seedItem(t, conn, 5, 2)
	member := seedStaff(t, conn)

	svc, err := NewService(
		connRunner{conn: conn},
		NewRepository(conn),
		&failingItemsRepo{Repository: inventory.NewRepository(conn), failAdjust: true},
		staff.NewRepository(conn),
	)
	require.NoError(t, err)

	_, err = svc.Assign(ctx, item.ID, member.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	// The assignment created before the failing decrement must not survive.
	var count int64
	require.NoError(t, conn.Model(&models.ItemAssignment{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
	assert.Equal(t, 2, reloadItem(t, conn, item.ID).QuantityAvailable)
}

func TestCompleteReturnRoundTrip(t *testing.T) {
	t.Parallel()

	conn := setupAssignmentsTestDB(t)
	ctx := context.Background()
	item := seedItem(t, conn, 5, 2)
	member := seedStaff(t, conn)
	svc := newAssignmentsService(t, conn)

	assignment, err := svc.Assign(ctx, item.ID, member.ID)
	require.NoError(t, err)
	require.Equal(t, 1, reloadItem(t, conn, item.ID).QuantityAvailable)

	returned, err := svc.CompleteReturn(ctx, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.AssignmentStatusReturned, returned.Status)
	require.NotNil(t, returned.ReturnedAt)

	// Round trip restores the pre-assign availability.
	assert.Equal(t, 2, reloadItem(t, conn, item.ID).QuantityAvailable)
}

func TestCompleteReturnTwiceIsStateConflict(t *testing.T) {
	t.Parallel()

	conn := setupAssignmentsTestDB(t)
	ctx := context.Background()
	item := seedItem(t, conn, 5, 2)
	member := seedStaff(t, conn)
	svc := newAssignmentsService(t, conn)

	assignment, err := svc.Assign(ctx, item.ID, member.ID)
	require.NoError(t, err)
	_, err = svc.CompleteReturn(ctx, assignment.ID)
	require.NoError(t, err)

	_, err = svc.CompleteReturn(ctx, assignment.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, 2, reloadItem(t, conn, item.ID).QuantityAvailable)
}

func TestCompleteReturnUnknownAssignment(t *testing.T) {
	t.Parallel()

	conn := setupAssignmentsTestDB(t)
	svc := newAssignmentsService(t, conn)

	_, err := svc.CompleteReturn(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCompleteReturnRefusesToExceedTotal(t *testing.T) {
	t.Parallel()

	conn := setupAssignmentsTestDB(t)
	ctx := context.Background()
	member := seedStaff(t, conn)
	svc := newAssignmentsService(t, conn)

	// Corrupted seed: an active assignment although availability already
	// equals the total. The return must refuse rather than clamp.
	item := seedItem(t, conn, 2, 2)
	assignment := &models.ItemAssignment{
		ID:             uuid.New(),
		ItemID:         item.ID,
		StaffID:        member.ID,
		Status:         enums.AssignmentStatusAssigned,
		AllocationDate: time.Now().UTC(),
	}
	require.NoError(t, conn.Create(assignment).Error)

	_, err := svc.CompleteReturn(ctx, assignment.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeIntegrity))

	// Nothing moved: the assignment stays active, the counter stays put.
	var stored models.ItemAssignment
	require.NoError(t, conn.First(&stored, "id = ?", assignment.ID).Error)
	assert.Equal(t, enums.AssignmentStatusAssigned, stored.Status)
	assert.Equal(t, 2, reloadItem(t, conn, item.ID).QuantityAvailable)
}

func TestListByStaff(t *testing.T) {
	t.Parallel()

	conn := setupAssignmentsTestDB(t)
	ctx := context.Background()
	item := seedItem(t, conn, 5, 5)
	member := seedStaff(t, conn)
	other := seedStaff(t, conn)
	svc := newAssignmentsService(t, conn)

	_, err := svc.Assign(ctx, item.ID, member.ID)
	require.NoError(t, err)
	_, err = svc.Assign(ctx, item.ID, member.ID)
	require.NoError(t, err)
	_, err = svc.Assign(ctx, item.ID, other.ID)
	require.NoError(t, err)

	rows, err := svc.ListByStaff(ctx, member.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
