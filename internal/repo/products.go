package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/erazemk/inventar/internal/model"
)

var productColumns = []string{
	"id", "name", "description", "sku", "price", "quantity",
	"image_url", "category", "min_stock", "user_id", "created_at", "updated_at",
}

const categoriesCacheKey = "categories"

func scanProduct(s Scanner) (*model.Product, error) {
	p := &model.Product{}
	var description, imageURL, category sql.NullString
	err := s.Scan(&p.ID, &p.Name, &description, &p.SKU, &p.Price, &p.Quantity,
		&imageURL, &category, &p.MinStock, &p.UserID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	p.ImageURL = imageURL.String
	p.Category = category.String
	p.Derive()
	return p, nil
}

// ProductRepo provides product persistence on top of the generic
// repository. The distinct-categories query is cached briefly and
// invalidated on every product write.
type ProductRepo struct {
	*Repo[model.Product]
	cache *gocache.Cache
}

func NewProductRepo(db *sql.DB) *ProductRepo {
	return &ProductRepo{
		Repo:  New(db, "products", productColumns, scanProduct),
		cache: gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// ProductCreate holds the fields for a new product.
type ProductCreate struct {
	Name        string
	Description string
	SKU         string
	Price       float64
	Quantity    int
	ImageURL    string
	Category    string
	MinStock    int
}

// ProductPatch is a merge-patch: only non-nil fields are applied.
type ProductPatch struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	SKU         *string  `json:"sku"`
	Price       *float64 `json:"price"`
	Quantity    *int     `json:"quantity"`
	ImageURL    *string  `json:"image_url"`
	Category    *string  `json:"category"`
	MinStock    *int     `json:"min_stock"`
}

// GetBySKU returns the product with the given SKU, or nil.
func (r *ProductRepo) GetBySKU(ctx context.Context, sku string) (*model.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+r.columns+` FROM products WHERE sku = ?`, sku)
	p, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting product by sku: %w", err)
	}
	return p, nil
}

// Create persists a new product owned by the given user. Prices are
// stored with at most two decimal places.
func (r *ProductRepo) Create(ctx context.Context, in ProductCreate, userID int64) (*model.Product, error) {
	p, err := r.insert(ctx, []Field{
		{"name", in.Name},
		{"description", nullable(in.Description)},
		{"sku", in.SKU},
		{"price", model.Round2(in.Price)},
		{"quantity", in.Quantity},
		{"image_url", nullable(in.ImageURL)},
		{"category", nullable(in.Category)},
		{"min_stock", in.MinStock},
		{"user_id", userID},
	})
	if err == nil {
		r.invalidateCategories()
	}
	return p, err
}

// Update applies a merge-patch to an existing product.
func (r *ProductRepo) Update(ctx context.Context, existing *model.Product, patch ProductPatch) (*model.Product, error) {
	var fields []Field
	if patch.Name != nil {
		fields = append(fields, Field{"name", *patch.Name})
	}
	if patch.Description != nil {
		fields = append(fields, Field{"description", nullable(*patch.Description)})
	}
	if patch.SKU != nil {
		fields = append(fields, Field{"sku", *patch.SKU})
	}
	if patch.Price != nil {
		fields = append(fields, Field{"price", model.Round2(*patch.Price)})
	}
	if patch.Quantity != nil {
		fields = append(fields, Field{"quantity", *patch.Quantity})
	}
	if patch.ImageURL != nil {
		fields = append(fields, Field{"image_url", nullable(*patch.ImageURL)})
	}
	if patch.Category != nil {
		fields = append(fields, Field{"category", nullable(*patch.Category)})
	}
	if patch.MinStock != nil {
		fields = append(fields, Field{"min_stock", *patch.MinStock})
	}

	p, err := r.update(ctx, existing.ID, fields)
	if err == nil {
		r.invalidateCategories()
	}
	return p, err
}

// Remove deletes a product and returns it, or nil if absent.
func (r *ProductRepo) Remove(ctx context.Context, id int64) (*model.Product, error) {
	p, err := r.Repo.Remove(ctx, id)
	if p != nil {
		r.invalidateCategories()
	}
	return p, err
}

// Search returns products whose name, description, or SKU contains the
// text, case-insensitively. Results are unranked and paginated.
func (r *ProductRepo) Search(ctx context.Context, text string, skip, limit int) ([]model.Product, error) {
	pattern := "%" + text + "%"
	return r.list(ctx,
		`name LIKE ? OR description LIKE ? OR sku LIKE ?`,
		[]any{pattern, pattern, pattern}, skip, limit)
}

// GetByCategory returns products with the given category label.
func (r *ProductRepo) GetByCategory(ctx context.Context, category string, skip, limit int) ([]model.Product, error) {
	return r.list(ctx, `category = ?`, []any{category}, skip, limit)
}

// GetLowStock returns products with quantity at or below their
// minimum-stock threshold.
func (r *ProductRepo) GetLowStock(ctx context.Context, skip, limit int) ([]model.Product, error) {
	return r.list(ctx, `quantity <= min_stock`, nil, skip, limit)
}

// CountLowStock returns how many products are at or below their
// minimum-stock threshold.
func (r *ProductRepo) CountLowStock(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE quantity <= min_stock`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting low-stock products: %w", err)
	}
	return count, nil
}

// GetCategories returns the distinct non-empty category labels, sorted.
func (r *ProductRepo) GetCategories(ctx context.Context) ([]string, error) {
	if cached, ok := r.cache.Get(categoriesCacheKey); ok {
		return cached.([]string), nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM products
		 WHERE category IS NOT NULL AND category != '' ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.cache.Set(categoriesCacheKey, categories, gocache.DefaultExpiration)
	return categories, nil
}

// UpdateStock adjusts a product's quantity by delta, clamping at zero.
// The adjustment is a single UPDATE so concurrent calls cannot lose
// updates. Returns nil if the product does not exist.
func (r *ProductRepo) UpdateStock(ctx context.Context, id int64, delta int) (*model.Product, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE products SET quantity = MAX(0, quantity + ?), updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, delta, id)
	if err != nil {
		return nil, fmt.Errorf("updating stock: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating stock: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return r.Get(ctx, id)
}

// GetTotalValue returns the summed price*quantity across all products,
// optionally scoped to one owner.
func (r *ProductRepo) GetTotalValue(ctx context.Context, userID *int64) (float64, error) {
	query := `SELECT COALESCE(SUM(price * quantity), 0) FROM products`
	var args []any
	if userID != nil {
		query += ` WHERE user_id = ?`
		args = append(args, *userID)
	}

	var total float64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("summing inventory value: %w", err)
	}
	return model.Round2(total), nil
}

// SetImage stores a product's processed image. Returns false if the
// product does not exist.
func (r *ProductRepo) SetImage(ctx context.Context, id int64, data []byte, mime string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE products SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, data, mime, id)
	if err != nil {
		return false, fmt.Errorf("setting product image: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("setting product image: %w", err)
	}
	return affected > 0, nil
}

// GetImage returns a product's image data and MIME type, or nil data if
// no image is stored.
func (r *ProductRepo) GetImage(ctx context.Context, id int64) ([]byte, string, error) {
	var data []byte
	var mime sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM products WHERE id = ?`, id).Scan(&data, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting product image: %w", err)
	}
	return data, mime.String, nil
}

func (r *ProductRepo) list(ctx context.Context, where string, args []any, skip, limit int) ([]model.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE %s LIMIT ? OFFSET ?`, r.columns, where)
	args = append(args, limit, skip)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *ProductRepo) invalidateCategories() {
	r.cache.Delete(categoriesCacheKey)
}
