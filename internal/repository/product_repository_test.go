package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/dujiao-next/promoengine/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupProductRepositoryTest(t *testing.T) (*GormProductRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:product_repo_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.ProductVariant{}); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return NewProductRepository(db), db
}

func createRepoProduct(t *testing.T, repo *GormProductRepository, slug string, skus ...string) *models.Product {
	t.Helper()
	product := &models.Product{
		Slug:        slug,
		Title:       slug,
		PriceAmount: models.NewMoneyFromInt(100000),
		IsActive:    true,
	}
	for _, sku := range skus {
		product.Variants = append(product.Variants, models.ProductVariant{
			SKUCode:     sku,
			Title:       sku,
			PriceAmount: models.NewMoneyFromInt(120000),
			IsActive:    true,
		})
	}
	if err := repo.Create(product); err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func TestProductRepositoryGetByIDPreloadsVariants(t *testing.T) {
	repo, _ := setupProductRepositoryTest(t)
	product := createRepoProduct(t, repo, "beans", "ARABICA", "ROBUSTA")

	got, err := repo.GetByID(product.ID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if got == nil || len(got.Variants) != 2 {
		t.Fatalf("expected product with 2 variants, got %+v", got)
	}

	missing, err := repo.GetByID(product.ID + 100)
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing product, got %+v err=%v", missing, err)
	}
}

func TestProductRepositoryGetVariantScopedToProduct(t *testing.T) {
	repo, _ := setupProductRepositoryTest(t)
	beans := createRepoProduct(t, repo, "beans", "ARABICA")
	cups := createRepoProduct(t, repo, "cups", "WHITE")

	variant, err := repo.GetVariant(beans.ID, beans.Variants[0].ID)
	if err != nil || variant == nil || variant.SKUCode != "ARABICA" {
		t.Fatalf("expected ARABICA variant, got %+v err=%v", variant, err)
	}

	foreign, err := repo.GetVariant(beans.ID, cups.Variants[0].ID)
	if err != nil {
		t.Fatalf("get variant failed: %v", err)
	}
	if foreign != nil {
		t.Fatalf("expected nil for variant of another product")
	}
}

func TestProductRepositoryListByIDs(t *testing.T) {
	repo, _ := setupProductRepositoryTest(t)
	a := createRepoProduct(t, repo, "a")
	createRepoProduct(t, repo, "b")
	c := createRepoProduct(t, repo, "c")

	products, err := repo.ListByIDs([]uint{a.ID, c.ID})
	if err != nil {
		t.Fatalf("list products failed: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}

	empty, err := repo.ListByIDs(nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty result for nil ids")
	}
}
