package repo

import (
	"context"
	"testing"

	"github.com/erazemk/inventar/internal/db"
)

func newTestProductRepo(t *testing.T) (*ProductRepo, int64) {
	t.Helper()
	database := db.NewTestDB(t)

	owner, err := NewUserRepo(database).Create(context.Background(), UserCreate{
		Email:    "owner@example.com",
		Username: "owner",
		Password: "password123",
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("creating owner: %v", err)
	}

	return NewProductRepo(database), owner.ID
}

func TestCreateAndGetProduct(t *testing.T) {
	products, ownerID := newTestProductRepo(t)
	ctx := context.Background()

	product, err := products.Create(ctx, ProductCreate{
		Name:     "Laptop",
		SKU:      "LAP-001",
		Price:    999.99,
		Quantity: 10,
		Category: "electronics",
		MinStock: 2,
	}, ownerID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if product.ID == 0 {
		t.Error("expected assigned id")
	}
	if product.UserID != ownerID {
		t.Errorf("expected owner %d, got %d", ownerID, product.UserID)
	}
	if product.IsLowStock {
		t.Error("10 on hand with min_stock 2 is not low stock")
	}
	if product.TotalValue != 9999.90 {
		t.Errorf("expected total value 9999.90, got %v", product.TotalValue)
	}
}

func TestCreateProductRoundsPrice(t *testing.T) {
	products, ownerID := newTestProductRepo(t)
	ctx := context.Background()

	product, err := products.Create(ctx, ProductCreate{
		Name: "Widget", SKU: "WID-001", Price: 10.999, Quantity: 1,
	}, ownerID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if product.Price != 11.00 {
		t.Errorf("expected price rounded to 11.00, got %v", product.Price)
	}
}

func TestGetBySKU(t *testing.T) {
	products, ownerID := newTestProductRepo(t)
	ctx := context.Background()

	products.Create(ctx, ProductCreate{Name: "Mouse", SKU: "MOU-001", Price: 25, Quantity: 3}, ownerID)

	product, err := products.GetBySKU(ctx, "MOU-001")
	if err != nil {
		t.Fatalf("GetBySKU: %v", err)
	}
	if product == nil || product.Name != "Mouse" {
		t.Errorf("expected mouse, got %+v", product)
	}

	missing, err := products.GetBySKU(ctx, "NOPE-001")
	if err != nil {
		t.Fatalf("GetBySKU: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown sku, got %+v", missing)
	}
}

func TestSearchProducts(t *testing.T) {
	products, ownerID := newTestProductRepo(t)
	ctx := context.Background()

	products.Create(ctx, ProductCreate{Name: "Gaming Laptop", SKU: "LAP-001", Price: 1200, Quantity: 2}, ownerID)
	products.Create(ctx, ProductCreate{Name: "Mouse", Description: "wireless laptop mouse", SKU: "MOU-001", Price: 25, Quantity: 5}, ownerID)
	products.Create(ctx, ProductCreate{Name: "Desk", SKU: "DSK-001", Price: 150, Quantity: 1}, ownerID)

	// Case-insensitive match across name, description, and SKU.
	matches, err := products.Search(ctx, "LAPTOP", 0, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("expected 2 matches, got %d", len(matches))
	}

	matches, _ = products.Search(ctx, "dsk-0", 0, 10)
	if len(matches) != 1 {
		t.Errorf("expected 1 match by sku, got %d", len(matches))
	}

	matches, _ = products.Search(ctx, "nothing", 0, 10)
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %d", len(matches))
	}
}

func TestGetByCategory(t *testing.T) {
	products, ownerID := newTestProductRepo(t)
	ctx := context.Background()

	products.Create(ctx, ProductCreate{Name: "Laptop", SKU: "LAP-001", Price: 1000, Quantity: 1, Category: "electronics"}, ownerID)
	products.Create(ctx, ProductCreate{Name: "Desk", SKU: "DSK-001", Price: 150, Quantity: 1, Category: "furniture"}, ownerID)

	electronics, err := products.GetByCategory(ctx, "electronics", 0, 10)
	if err != nil {
		t.Fatalf("GetByCategory: %v", err)
	}
	if len(electronics) != 1 || electronics[0].Name != "Laptop" {
		t.Errorf("expected only the laptop, got %v", electronics)
	}
}

func TestLowStock(t *testing.T) {
	products, ownerID := newTestProductRepo(t)
	ctx := context.Background()

	products.Create(ctx, ProductCreate{Name: "Plenty", SKU: "PL-001", Price: 10, Quantity: 50, MinStock: 5}, ownerID)
	low, _ := products.Create(ctx, ProductCreate{Name: "Low", SKU: "LO-001", Price: 10, Quantity: 3, MinStock: 5}, ownerID)
	edge, _ := products.Create(ctx, ProductCreate{Name: "Edge", SKU: "ED-001", Price: 10, Quantity: 5, MinStock: 5}, ownerID)

	if !low.IsLowStock {
		t.Error("quantity below threshold must flag low stock")
	}
	if !edge.IsLowStock {
		t.Error("quantity equal to threshold must flag low stock")
	}

	lowStock, err := products.GetLowStock(ctx, 0, 10)
	if err != nil {
		t.Fatalf("GetLowStock: %v", err)
	}
	if len(lowStock) != 2 {
		t.Errorf("expected 2 low-stock products, got %d", len(lowStock))
	}

	count, err := products.CountLowStock(ctx)
	if err != nil {
		t.Fatalf("CountLowStock: %v", err)
	}
	if count != 2 {
		t.Errorf("expected low-stock count 2, got %d", count)
	}
}

func TestUpdateStock(t *testing.T) {
	products, ownerID := newTestProductRepo(t)
	ctx := context.Background()

	product, _ := products.Create(ctx, ProductCreate{Name: "Widget", SKU: "WID-001", Price: 10, Quantity: 10}, ownerID)

	// Adjust up, then back down: the original quantity is restored.
	updated, err := products.UpdateStock(ctx, product.ID, 5)
	if err != nil {
		t.Fatalf("UpdateStock: %v", err)
	}
	if updated.Quantity != 15 {
		t.Errorf("expected 15, got %d", updated.Quantity)
	}

	updated, _ = products.UpdateStock(ctx, product.ID, -5)
	if updated.Quantity != 10 {
		t.Errorf("expected 10, got %d", updated.Quantity)
	}

	// Over-subtraction clamps at zero.
	updated, _ = products.UpdateStock(ctx, product.ID, -100)
	if updated.Quantity != 0 {
		t.Errorf("expected clamp at 0, got %d", updated.Quantity)
	}

	// Missing product reports not-found.
	missing, err := products.UpdateStock(ctx, 9999, 1)
	if err != nil {
		t.Fatalf("UpdateStock: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing product, got %+v", missing)
	}
}

func TestGetTotalValue(t *testing.T) {
	products, ownerID := newTestProductRepo(t)
	ctx := context.Background()

	products.Create(ctx, ProductCreate{Name: "A", SKU: "A-001", Price: 10.50, Quantity: 2}, ownerID)
	products.Create(ctx, ProductCreate{Name: "B", SKU: "B-001", Price: 5.25, Quantity: 4}, ownerID)

	total, err := products.GetTotalValue(ctx, nil)
	if err != nil {
		t.Fatalf("GetTotalValue: %v", err)
	}
	if total != 42.00 {
		t.Errorf("expected 42.00, got %v", total)
	}

	scoped, err := products.GetTotalValue(ctx, &ownerID)
	if err != nil {
		t.Fatalf("GetTotalValue scoped: %v", err)
	}
	if scoped != 42.00 {
		t.Errorf("expected 42.00 for owner scope, got %v", scoped)
	}

	other := ownerID + 1
	empty, _ := products.GetTotalValue(ctx, &other)
	if empty != 0 {
		t.Errorf("expected 0 for unknown owner, got %v", empty)
	}
}

func TestGetCategoriesCacheInvalidation(t *testing.T) {
	products, ownerID := newTestProductRepo(t)
	ctx := context.Background()

	products.Create(ctx, ProductCreate{Name: "A", SKU: "A-001", Price: 10, Quantity: 1, Category: "tools"}, ownerID)

	categories, err := products.GetCategories(ctx)
	if err != nil {
		t.Fatalf("GetCategories: %v", err)
	}
	if len(categories) != 1 || categories[0] != "tools" {
		t.Errorf("expected [tools], got %v", categories)
	}

	// A write must invalidate the cached category list.
	products.Create(ctx, ProductCreate{Name: "B", SKU: "B-001", Price: 10, Quantity: 1, Category: "office"}, ownerID)

	categories, _ = products.GetCategories(ctx)
	if len(categories) != 2 {
		t.Errorf("expected 2 categories after write, got %v", categories)
	}
}

func TestProductImage(t *testing.T) {
	products, ownerID := newTestProductRepo(t)
	ctx := context.Background()

	product, _ := products.Create(ctx, ProductCreate{Name: "Photo", SKU: "PH-001", Price: 10, Quantity: 1}, ownerID)

	ok, err := products.SetImage(ctx, product.ID, []byte("fake image data"), "image/jpeg")
	if err != nil {
		t.Fatalf("SetImage: %v", err)
	}
	if !ok {
		t.Fatal("expected image to be stored")
	}

	data, mime, err := products.GetImage(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if string(data) != "fake image data" || mime != "image/jpeg" {
		t.Errorf("unexpected image data %q mime %q", data, mime)
	}

	ok, err = products.SetImage(ctx, 9999, []byte("x"), "image/jpeg")
	if err != nil {
		t.Fatalf("SetImage: %v", err)
	}
	if ok {
		t.Error("expected false for missing product")
	}
}

func TestDeleteUserCascadesProducts(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	users := NewUserRepo(database)
	products := NewProductRepo(database)

	owner, _ := users.Create(ctx, UserCreate{Email: "o@example.com", Username: "o-user", Password: "password123", IsActive: true})
	products.Create(ctx, ProductCreate{Name: "Owned", SKU: "OW-001", Price: 10, Quantity: 1}, owner.ID)

	if _, err := users.Remove(ctx, owner.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	count, _ := products.Count(ctx)
	if count != 0 {
		t.Errorf("expected owned products to cascade delete, got %d remaining", count)
	}
}
