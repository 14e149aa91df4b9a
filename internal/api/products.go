package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/imaging"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/repo"
)

// ProductsHandler handles product CRUD and inventory endpoints.
type ProductsHandler struct {
	Products *repo.ProductRepo
}

type createProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	SKU         string  `json:"sku"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	ImageURL    string  `json:"image_url"`
	Category    string  `json:"category"`
	MinStock    int     `json:"min_stock"`
}

type productListResponse struct {
	Items []model.Product `json:"items"`
	Total int             `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
	Pages int             `json:"pages"`
}

// List handles GET /products/. Filter modes are mutually exclusive, in
// precedence order: search, category, low_stock, default pagination.
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	p := parsePagination(r)
	q := r.URL.Query()

	var products []model.Product
	var err error
	switch {
	case q.Get("search") != "":
		products, err = h.Products.Search(r.Context(), q.Get("search"), p.Skip, p.Limit)
	case q.Get("category") != "":
		products, err = h.Products.GetByCategory(r.Context(), q.Get("category"), p.Skip, p.Limit)
	case boolParam(q.Get("low_stock")):
		products, err = h.Products.GetLowStock(r.Context(), p.Skip, p.Limit)
	default:
		products, err = h.Products.GetMany(r.Context(), p.Skip, p.Limit, p.OrderBy, p.OrderDirection)
	}
	if err != nil {
		slog.Error("listing products", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	// Totals reflect the whole table, not the active filter.
	total, err := h.Products.Count(r.Context())
	if err != nil {
		slog.Error("counting products", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to count products")
		return
	}

	if products == nil {
		products = []model.Product{}
	}
	jsonResponse(w, http.StatusOK, productListResponse{
		Items: products,
		Total: total,
		Page:  p.Page,
		Size:  p.Size,
		Pages: (total + p.Size - 1) / p.Size,
	})
}

// Create handles POST /products/. The caller becomes the owner.
func (h *ProductsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || len(req.Name) > 200 {
		jsonError(w, http.StatusBadRequest, "name must be between 1 and 200 characters")
		return
	}
	if req.SKU == "" || len(req.SKU) > 100 {
		jsonError(w, http.StatusBadRequest, "sku must be between 1 and 100 characters")
		return
	}
	if req.Price <= 0 {
		jsonError(w, http.StatusBadRequest, "price must be positive")
		return
	}
	if req.Quantity < 0 {
		jsonError(w, http.StatusBadRequest, "quantity must not be negative")
		return
	}
	if req.MinStock < 0 {
		jsonError(w, http.StatusBadRequest, "min_stock must not be negative")
		return
	}

	existing, err := h.Products.GetBySKU(r.Context(), req.SKU)
	if err != nil {
		slog.Error("checking sku", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		jsonError(w, http.StatusBadRequest, "Product with this SKU already exists")
		return
	}

	user := CurrentUser(r.Context())
	product, err := h.Products.Create(r.Context(), repo.ProductCreate{
		Name:        req.Name,
		Description: req.Description,
		SKU:         req.SKU,
		Price:       req.Price,
		Quantity:    req.Quantity,
		ImageURL:    req.ImageURL,
		Category:    req.Category,
		MinStock:    req.MinStock,
	}, user.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			jsonError(w, http.StatusConflict, "Product with this SKU already exists")
			return
		}
		slog.Error("creating product", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	slog.Info("product created", "user", user.Username, "sku", product.SKU)
	jsonResponse(w, http.StatusCreated, product)
}

// Categories handles GET /products/categories.
func (h *ProductsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Products.GetCategories(r.Context())
	if err != nil {
		slog.Error("listing categories", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	jsonResponse(w, http.StatusOK, categories)
}

// LowStock handles GET /products/low-stock.
func (h *ProductsHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	p := parsePagination(r)

	products, err := h.Products.GetLowStock(r.Context(), p.Skip, p.Limit)
	if err != nil {
		slog.Error("listing low-stock products", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list low-stock products")
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	jsonResponse(w, http.StatusOK, products)
}

// InventoryValue handles GET /products/inventory-value.
func (h *ProductsHandler) InventoryValue(w http.ResponseWriter, r *http.Request) {
	totalValue, err := h.Products.GetTotalValue(r.Context(), nil)
	if err != nil {
		slog.Error("summing inventory value", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to compute inventory value")
		return
	}

	totalProducts, err := h.Products.Count(r.Context())
	if err != nil {
		slog.Error("counting products", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to count products")
		return
	}

	lowStockCount, err := h.Products.CountLowStock(r.Context())
	if err != nil {
		slog.Error("counting low-stock products", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to count low-stock products")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"total_value":     totalValue,
		"total_products":  totalProducts,
		"low_stock_count": lowStockCount,
	})
}

// Get handles GET /products/{id}.
func (h *ProductsHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, ok := h.fetch(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, product)
}

// Update handles PUT /products/{id}. The body is a merge-patch; only the
// owner or a superuser may update.
func (h *ProductsHandler) Update(w http.ResponseWriter, r *http.Request) {
	product, ok := h.fetchOwned(w, r)
	if !ok {
		return
	}

	var patch repo.ProductPatch
	if err := decodeJSON(r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if patch.Name != nil && (*patch.Name == "" || len(*patch.Name) > 200) {
		jsonError(w, http.StatusBadRequest, "name must be between 1 and 200 characters")
		return
	}
	if patch.SKU != nil && (*patch.SKU == "" || len(*patch.SKU) > 100) {
		jsonError(w, http.StatusBadRequest, "sku must be between 1 and 100 characters")
		return
	}
	if patch.Price != nil && *patch.Price <= 0 {
		jsonError(w, http.StatusBadRequest, "price must be positive")
		return
	}
	if patch.Quantity != nil && *patch.Quantity < 0 {
		jsonError(w, http.StatusBadRequest, "quantity must not be negative")
		return
	}
	if patch.MinStock != nil && *patch.MinStock < 0 {
		jsonError(w, http.StatusBadRequest, "min_stock must not be negative")
		return
	}

	if patch.SKU != nil && *patch.SKU != product.SKU {
		existing, err := h.Products.GetBySKU(r.Context(), *patch.SKU)
		if err != nil {
			slog.Error("checking sku", "error", err)
			jsonError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if existing != nil {
			jsonError(w, http.StatusBadRequest, "Product with this SKU already exists")
			return
		}
	}

	updated, err := h.Products.Update(r.Context(), product, patch)
	if err != nil {
		if db.IsUniqueViolation(err) {
			jsonError(w, http.StatusConflict, "Product with this SKU already exists")
			return
		}
		slog.Error("updating product", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update product")
		return
	}

	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /products/{id}. Only the owner or a superuser
// may delete.
func (h *ProductsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	product, ok := h.fetchOwned(w, r)
	if !ok {
		return
	}

	if _, err := h.Products.Remove(r.Context(), product.ID); err != nil {
		slog.Error("deleting product", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}

	user := CurrentUser(r.Context())
	slog.Info("product deleted", "user", user.Username, "sku", product.SKU)
	w.WriteHeader(http.StatusNoContent)
}

// UpdateStock handles PATCH /products/{id}/stock?quantity_change=N. The
// adjustment clamps at zero.
func (h *ProductsHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	raw := r.URL.Query().Get("quantity_change")
	if raw == "" {
		jsonError(w, http.StatusBadRequest, "quantity_change required")
		return
	}
	delta, err := strconv.Atoi(raw)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid quantity_change")
		return
	}

	product, err := h.Products.UpdateStock(r.Context(), id, delta)
	if err != nil {
		slog.Error("updating stock", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update stock")
		return
	}
	if product == nil {
		jsonError(w, http.StatusNotFound, "Product not found")
		return
	}

	jsonResponse(w, http.StatusOK, product)
}

// UploadImage handles PUT /products/{id}/image. Only the owner or a
// superuser may upload; the image is validated, downscaled, and
// re-encoded before storage.
func (h *ProductsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	product, ok := h.fetchOwned(w, r)
	if !ok {
		return
	}

	// Limit to 5 MB.
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20)

	if err := r.ParseMultipartForm(5 << 20); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	result, err := imaging.Process(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.Products.SetImage(r.Context(), product.ID, result.Data, result.MIME); err != nil {
		slog.Error("saving product image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save image")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /products/{id}/image.
func (h *ProductsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	data, mime, err := h.Products.GetImage(r.Context(), id)
	if err != nil {
		slog.Error("getting product image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// fetch parses the product id and loads the product, writing the error
// response itself when it returns !ok.
func (h *ProductsHandler) fetch(w http.ResponseWriter, r *http.Request) (*model.Product, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid product id")
		return nil, false
	}

	product, err := h.Products.Get(r.Context(), id)
	if err != nil {
		slog.Error("getting product", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get product")
		return nil, false
	}
	if product == nil {
		jsonError(w, http.StatusNotFound, "Product not found")
		return nil, false
	}
	return product, true
}

// fetchOwned is fetch plus the ownership check: the caller must own the
// product or be a superuser.
func (h *ProductsHandler) fetchOwned(w http.ResponseWriter, r *http.Request) (*model.Product, bool) {
	product, ok := h.fetch(w, r)
	if !ok {
		return nil, false
	}

	user := CurrentUser(r.Context())
	if product.UserID != user.ID && !user.IsSuperuser {
		jsonError(w, http.StatusForbidden, "Not enough permissions")
		return nil, false
	}
	return product, true
}

func boolParam(v string) bool {
	return v == "true" || v == "1"
}
