package repository

import (
	"context"
	"testing"
	"time"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/dto"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Company{},
		&model.Province{},
		&model.User{},
		&model.Role{},
		&model.RoleHasPermission{},
		&model.Production{},
		&model.ProductionRegister{},
		&model.Complaint{},
		&model.Investigation{},
	))
	return db
}

func registerRows(productionID uuid.UUID, from, to int64) []model.ProductionRegister {
	rows := make([]model.ProductionRegister, 0, to-from+1)
	for s := from; s <= to; s++ {
		rows = append(rows, model.ProductionRegister{ProductionID: productionID, Code: "ABCD", SerialNumber: s, QRToken: "tok"})
	}
	return rows
}

// ── Registers ────────────────────────────────────────────────────────────────

func TestRegisterRepo_InsertBatchSkipsExistingSerials(t *testing.T) {
	db := newTestDB(t)
	repo := NewRegisterRepository(db)
	ctx := context.Background()
	pid := uuid.New()

	n, err := repo.InsertBatch(ctx, registerRows(pid, 100, 349))
	require.NoError(t, err)
	assert.EqualValues(t, 250, n)

	// Re-running the same chunk plus the next one only writes the missing rows.
	n, err = repo.InsertBatch(ctx, registerRows(pid, 100, 599))
	require.NoError(t, err)
	assert.EqualValues(t, 250, n)

	count, err := repo.CountByProduction(ctx, pid)
	require.NoError(t, err)
	assert.EqualValues(t, 500, count)
}

func TestRegisterRepo_SameSerialOnDifferentProductions(t *testing.T) {
	db := newTestDB(t)
	repo := NewRegisterRepository(db)
	ctx := context.Background()

	_, err := repo.InsertBatch(ctx, registerRows(uuid.New(), 1, 3))
	require.NoError(t, err)
	_, err = repo.InsertBatch(ctx, registerRows(uuid.New(), 1, 3))
	require.NoError(t, err)

	found, err := repo.FindBySerial(ctx, 2, "")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = repo.FindBySerial(ctx, 2, "ZZZZ")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestRegisterRepo_ListByProductionPaginates(t *testing.T) {
	db := newTestDB(t)
	repo := NewRegisterRepository(db)
	ctx := context.Background()
	pid := uuid.New()
	_, err := repo.InsertBatch(ctx, registerRows(pid, 1, 25))
	require.NoError(t, err)

	rows, total, err := repo.ListByProduction(ctx, pid, 2, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 25, total)
	require.Len(t, rows, 10)
	assert.EqualValues(t, 11, rows[0].SerialNumber)
}

func TestRegisterRepo_EmptyBatch(t *testing.T) {
	n, err := NewRegisterRepository(newTestDB(t)).InsertBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// ── Productions ──────────────────────────────────────────────────────────────

func newProduction(lot, variety string) *model.Production {
	return &model.Production{
		LotNumber: lot, Variety: variety, SeedClass: "BR",
		Code1: "A", Code2: "B", Code3: "C", Code4: "D",
		LotTotal: 1000, LabResultSerialNumber: "100",
	}
}

func TestProductionRepo_DuplicateLotNumber(t *testing.T) {
	repo := NewProductionRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newProduction("LOT-1", "Pioneer")))
	err := repo.Create(ctx, newProduction("LOT-1", "Other"))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestProductionRepo_ListFiltersAndSort(t *testing.T) {
	repo := NewProductionRepository(newTestDB(t))
	ctx := context.Background()
	a := newProduction("LOT-A", "Jagung Hibrida")
	b := newProduction("LOT-B", "Padi")
	c := newProduction("LOT-C", "Jagung Manis")
	for _, p := range []*model.Production{a, b, c} {
		require.NoError(t, repo.Create(ctx, p))
	}
	require.NoError(t, repo.MarkGenerated(ctx, b.ID, "tok-b", time.Now()))

	got, total, err := repo.List(ctx, dto.ProductionFilter{Variety: "jagung", Sort: "lot_number", Order: "asc", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, got, 2)
	assert.Equal(t, "LOT-A", got[0].LotNumber)
	assert.Equal(t, "LOT-C", got[1].LotNumber)

	got, total, err = repo.List(ctx, dto.ProductionFilter{Generated: "true", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "LOT-B", got[0].LotNumber)
	require.NotNil(t, got[0].QRToken)
	assert.Equal(t, "tok-b", *got[0].QRToken)

	// An unknown sort key falls back to created_at instead of reaching SQL.
	_, _, err = repo.List(ctx, dto.ProductionFilter{Sort: "id; DROP TABLE productions", Page: 1, Limit: 10})
	require.NoError(t, err)
}

func TestProductionRepo_DeleteRefusesGenerated(t *testing.T) {
	repo := NewProductionRepository(newTestDB(t))
	ctx := context.Background()
	p := newProduction("LOT-G", "Padi")
	require.NoError(t, repo.Create(ctx, p))
	require.NoError(t, repo.MarkGenerated(ctx, p.ID, "tok", time.Now()))

	assert.ErrorIs(t, repo.Delete(ctx, p.ID), ErrNotFound)

	_, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
}

func TestProductionRepo_FindMissing(t *testing.T) {
	_, err := NewProductionRepository(newTestDB(t)).FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

// ── Roles ────────────────────────────────────────────────────────────────────

func TestRoleRepo_EnsureIsIdempotent(t *testing.T) {
	repo := NewRoleRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Ensure(ctx, "qa", "Quality", []string{"complaints.view", "complaints.view"}))
	require.NoError(t, repo.Ensure(ctx, "qa", "Quality", []string{"complaints.view", "complaints.manage"}))

	role, err := repo.FindByName(ctx, "qa")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"complaints.view", "complaints.manage"}, role.PermissionNames())

	require.NoError(t, repo.ReplacePermissions(ctx, role.ID, []string{"productions.view"}))
	role, err = repo.FindByName(ctx, "qa")
	require.NoError(t, err)
	assert.Equal(t, []string{"productions.view"}, role.PermissionNames())
}

// ── Complaints ───────────────────────────────────────────────────────────────

func TestComplaintRepo_SearchAndDelete(t *testing.T) {
	repo := NewComplaintRepository(newTestDB(t))
	ctx := context.Background()
	c := &model.Complaint{
		ComplaintNumber: "CMP-20260101-0001", CustomerName: "Budi", CustomerPhone: "0812",
		LotNumber: "LOT-1", ComplaintType: "germination", Description: "low germination", Status: model.ComplaintSubmitted,
	}
	require.NoError(t, repo.Create(ctx, c))

	got, total, err := repo.List(ctx, dto.ComplaintFilter{Search: "budi", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, c.ID, got[0].ID)

	n, err := repo.CountCreatedSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, repo.Delete(ctx, c.ID))
	assert.ErrorIs(t, repo.Delete(ctx, c.ID), ErrNotFound)
}
