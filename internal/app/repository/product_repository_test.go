package repository

import (
	"context"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupProductTest(t *testing.T) (*gorm.DB, ProductRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	repo := NewProductRepository(testDB)
	return testDB, repo
}

func TestProductRepository_Create(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	product := &model.Product{
		Name:     "Canvas Tote",
		Price:    25,
		Category: "bags",
		Quantity: 4,
		Status:   model.ProductStatusActive,
		Images:   pq.StringArray{"/uploads/tote-front.jpg", "/uploads/tote-back.jpg"},
	}

	err := repo.Create(ctx, product)
	require.NoError(t, err)
	assert.NotZero(t, product.ID)

	found, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Canvas Tote", found.Name)
	assert.Equal(t, []string{"/uploads/tote-front.jpg", "/uploads/tote-back.jpg"}, []string(found.Images))
}

func TestProductRepository_FindActive(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Product{Name: "Shown", Price: 10, Status: model.ProductStatusActive}))
	require.NoError(t, repo.Create(ctx, &model.Product{Name: "Hidden", Price: 10, Status: model.ProductStatusInactive}))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := repo.FindActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Shown", active[0].Name)
}

func TestProductRepository_UpdateStatus(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	product := &model.Product{Name: "Lamp", Price: 40, Status: model.ProductStatusActive}
	require.NoError(t, repo.Create(ctx, product))

	rows, err := repo.UpdateStatus(ctx, product.ID, model.ProductStatusInactive)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	found, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProductStatusInactive, found.Status)

	rows, err = repo.UpdateStatus(ctx, 999, model.ProductStatusActive)
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestProductRepository_Delete(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)
	ctx := context.Background()

	product := &model.Product{Name: "Mug", Price: 8, Status: model.ProductStatusActive}
	require.NoError(t, repo.Create(ctx, product))

	rows, err := repo.Delete(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	_, err = repo.FindByID(ctx, product.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// soft delete keeps the row
	var count int64
	testDB.Unscoped().Model(&model.Product{}).Where("id = ?", product.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}
