package requests

import (
	"context"
	"testing"
	"time"

	"github.com/amontesdeoca/equiptrack-backend/internal/assignments"
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

func setupRequestsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:requests_" + uuid.NewString() + "?mode=memory&cache=shared"
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
		`CREATE TABLE IF NOT EXISTS item_requests (
  id TEXT PRIMARY KEY,
  item_id TEXT NOT NULL,
  staff_id TEXT NOT NULL,
  note TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  decided_at DATETIME,
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
		Name:              "signal generator",
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
		FullName:   "Marcus Webb",
		Email:      "marcus." + uuid.NewString()[:8] + "@example.com",
		Department: "qa",
	}
	require.NoError(t, conn.Create(member).Error)
	return member
}

func seedPendingRequest(t *testing.T, conn *gorm.DB, itemID, staffID uuid.UUID) *models.ItemRequest {
	t.Helper()
	request := &models.ItemRequest{
		ID:      uuid.New(),
		ItemID:  itemID,
		StaffID: staffID,
		Status:  enums.RequestStatusPending,
	}
	require.NoError(t, conn.Create(request).Error)
	return request
}

func reloadItem(t *testing.T, conn *gorm.DB, id uuid.UUID) *models.InventoryItem {
	t.Helper()
	var item models.InventoryItem
	require.NoError(t, conn.First(&item, "id = ?", id).Error)
	return &item
}

func newRequestsService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(
		connRunner{conn: conn},
		NewRepository(conn),
		inventory.NewRepository(conn),
		assignments.NewRepository(conn),
		staff.NewRepository(conn),
	)
	require.NoError(t, err)
	return svc
}

func TestApproveConsumesRequest(t *testing.T) {
	t.Parallel()

	conn := setupRequestsTestDB(t)
	ctx := context.Background()
	item := seedItem(t, conn, 5, 2)
	member := seedStaff(t, conn)
	request := seedPendingRequest(t, conn, item.ID, member.ID)
	svc := newRequestsService(t, conn)

	result, err := svc.Approve(ctx, request.ID)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, enums.RequestStatusApproved, result.Request.Status)
	require.NotNil(t, result.Request.DecidedAt)
	assert.Equal(t, enums.AssignmentStatusAssigned, result.Assignment.Status)
	assert.Equal(t, item.ID, result.Assignment.ItemID)
	assert.Equal(t, member.ID, result.Assignment.StaffID)

	assert.Equal(t, 1, reloadItem(t, conn, item.ID).QuantityAvailable)

	var stored models.ItemRequest
	require.NoError(t, conn.First(&stored, "id = ?", request.ID).Error)
	assert.Equal(t, enums.RequestStatusApproved, stored.Status)

	var count int64
	require.NoError(t, conn.Model(&models.ItemAssignment{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestApproveOutOfStockLeavesRequestPending(t *testing.T) {
	t.Parallel()

	conn := setupRequestsTestDB(t)
	ctx := context.Background()
	item := seedItem(t, conn, 3, 0)
	member := seedStaff(t, conn)
	request := seedPendingRequest(t, conn, item.ID, member.ID)
	svc := newRequestsService(t, conn)

	_, err := svc.Approve(ctx, request.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock))

	var stored models.ItemRequest
	require.NoError(t, conn.First(&stored, "id = ?", request.ID).Error)
	assert.Equal(t, enums.RequestStatusPending, stored.Status)

	var count int64
	require.NoError(t, conn.Model(&models.ItemAssignment{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestApproveAlreadyDecided(t *testing.T) {
	t.Parallel()

	conn := setupRequestsTestDB(t)
	ctx := context.Background()
	item := seedItem(t, conn, 5, 5)
	member := seedStaff(t, conn)
	request := seedPendingRequest(t, conn, item.ID, member.ID)
	svc := newRequestsService(t, conn)

	_, err := svc.Approve(ctx, request.ID)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, request.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	// No double decrement.
	assert.Equal(t, 4, reloadItem(t, conn, item.ID).QuantityAvailable)
}

func TestApproveUnknownRequest(t *testing.T) {
	t.Parallel()

	conn := setupRequestsTestDB(t)
	svc := newRequestsService(t, conn)

	_, err := svc.Approve(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

type failingRequestsRepo struct {
	Repository
	failUpdate bool
}

func (f *failingRequestsRepo) WithTx(tx *gorm.DB) Repository {
	return &failingRequestsRepo{Repository: f.Repository.WithTx(tx), failUpdate: f.failUpdate}
}

func (f *failingRequestsRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.RequestStatus, decidedAt time.Time) (int64, error) {
	if f.failUpdate {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "simulated store failure")
	}
	return f.Repository.UpdateStatus(ctx, id, from, to, decidedAt)
}

func TestApproveRollsBackWhenStatusUpdateFails(t *testing.T) {
	t.Parallel()

	conn := setupRequestsTestDB(t)
	ctx := context.Background()
	item := seedItem(t, conn, 5, 2)
	member := seedStaff(t, conn)
	request := seedPendingRequest(t, conn, item.ID, member.ID)

	svc, err := NewService(
		connRunner{conn: conn},
		&failingRequestsRepo{Repository: NewRepository(conn), failUpdate: true},
		inventory.NewRepository(conn),
		assignments.NewRepository(conn),
		staff.NewRepository(conn),
	)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, request.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	// Assignment creation and the decrement preceded the failure; both must
	// have rolled back with it.
	var stored models.ItemRequest
	require.NoError(t, conn.First(&stored, "id = ?", request.ID).Error)
	assert.Equal(t, enums.RequestStatusPending, stored.Status)

	var count int64
	require.NoError(t, conn.Model(&models.ItemAssignment{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
	assert.Equal(t, 2, reloadItem(t, conn, item.ID).QuantityAvailable)
}

func TestRejectPendingRequest(t *testing.T) {
	t.Parallel()

	conn := setupRequestsTestDB(t)
	ctx := context.Background()
	item := seedItem(t, conn, 5, 2)
	member := seedStaff(t, conn)
	request := seedPendingRequest(t, conn, item.ID, member.ID)
	svc := newRequestsService(t, conn)

	updated, err := svc.Reject(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusRejected, updated.Status)
	require.NotNil(t, updated.DecidedAt)

	// Rejection never touches availability.
	assert.Equal(t, 2, reloadItem(t, conn, item.ID).QuantityAvailable)

	_, err = svc.Reject(ctx, request.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestCreateRequestValidatesReferences(t *testing.T) {
	t.Parallel()

	conn := setupRequestsTestDB(t)
	ctx := context.Background()
	item := seedItem(t, conn, 5, 2)
	member := seedStaff(t, conn)
	svc := newRequestsService(t, conn)

	created, err := svc.Create(ctx, CreateRequestInput{ItemID: item.ID, StaffID: member.ID})
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusPending, created.Status)

	_, err = svc.Create(ctx, CreateRequestInput{ItemID: uuid.New(), StaffID: member.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Create(ctx, CreateRequestInput{ItemID: item.ID, StaffID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListByStatus(t *testing.T) {
	t.Parallel()

	conn := setupRequestsTestDB(t)
	ctx := context.Background()
	item := seedItem(t, conn, 5, 5)
	member := seedStaff(t, conn)
	svc := newRequestsService(t, conn)

	first := seedPendingRequest(t, conn, item.ID, member.ID)
	seedPendingRequest(t, conn, item.ID, member.ID)

	_, err := svc.Approve(ctx, first.ID)
	require.NoError(t, err)

	pending, err := svc.List(ctx, enums.RequestStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	approved, err := svc.List(ctx, enums.RequestStatusApproved)
	require.NoError(t, err)
	assert.Len(t, approved, 1)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.List(ctx, enums.RequestStatus("bogus"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
