package api

import (
	"net/http"
	"time"

	"github.com/erazemk/inventar/internal/repo"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(users *repo.UserRepo, products *repo.ProductRepo, secret string, tokenExpiry time.Duration) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{Users: users, Secret: secret, TokenExpiry: tokenExpiry}
	usersHandler := &UsersHandler{Users: users}
	productsHandler := &ProductsHandler{Products: products}

	authMW := RequireUser(secret, users)
	user := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	superuser := func(h http.HandlerFunc) http.Handler { return authMW(RequireSuperuser(h)) }

	// Public.
	mux.HandleFunc("POST /auth/register", authHandler.Register)
	mux.HandleFunc("POST /auth/login", authHandler.Login)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.Handle("GET /metrics", RegisterMetrics())

	// Profile (any active user).
	mux.Handle("GET /users/me", user(usersHandler.Me))
	mux.Handle("PUT /users/me", user(usersHandler.UpdateMe))

	// User administration (superuser only).
	mux.Handle("GET /users/{$}", superuser(usersHandler.List))
	mux.Handle("GET /users/{id}", superuser(usersHandler.Get))
	mux.Handle("DELETE /users/{id}", superuser(usersHandler.Delete))

	// Products (any active user; per-product ownership checked in the
	// handlers).
	mux.Handle("GET /products/{$}", user(productsHandler.List))
	mux.Handle("POST /products/{$}", user(productsHandler.Create))
	mux.Handle("GET /products/categories", user(productsHandler.Categories))
	mux.Handle("GET /products/low-stock", user(productsHandler.LowStock))
	mux.Handle("GET /products/inventory-value", user(productsHandler.InventoryValue))
	mux.Handle("GET /products/{id}", user(productsHandler.Get))
	mux.Handle("PUT /products/{id}", user(productsHandler.Update))
	mux.Handle("DELETE /products/{id}", user(productsHandler.Delete))
	mux.Handle("PATCH /products/{id}/stock", user(productsHandler.UpdateStock))
	mux.Handle("PUT /products/{id}/image", user(productsHandler.UploadImage))
	mux.Handle("GET /products/{id}/image", user(productsHandler.GetImage))

	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
