package app

import (
	"github.com/avc/referral-shop-backend/internal/handlers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// setupRouter создает и настраивает роутер
func setupRouter(deps *dependencies, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Глобальные middleware
	setupMiddleware(r, logger)

	// Маршруты
	setupRoutes(r, deps, logger)

	return r
}

// setupMiddleware настраивает middleware для роутера
func setupMiddleware(r *chi.Mux, logger *zap.Logger) {
	r.Use(handlers.RequestIDMiddleware())
	r.Use(handlers.LoggingMiddleware(logger))
	r.Use(handlers.RecoveryMiddleware(logger))
	r.Use(middleware.Compress(5))
}

// setupRoutes настраивает маршруты приложения
func setupRoutes(r *chi.Mux, deps *dependencies, logger *zap.Logger) {
	h := deps.handlers

	// Health check эндпоинты
	r.Get("/health", h.health.Health)
	r.Get("/ready", h.health.Ready)

	// Публичные эндпоинты
	r.Post("/api/auth/register", h.auth.Register)
	r.Post("/api/auth/login", h.auth.Login)
	r.Post("/api/auth/admin/login", h.auth.AdminLogin)
	r.Post("/api/auth/otp/send", h.auth.SendOTP)
	r.Post("/api/auth/otp/verify", h.auth.VerifyOTP)
	r.Get("/api/products", h.products.List)
	r.Get("/api/products/{id}", h.products.Get)
	r.Get("/api/products/{id}/reviews", h.products.ListReviews)

	// Защищенные эндпоинты
	r.Group(func(r chi.Router) {
		r.Use(handlers.AuthMiddleware(deps.jwtManager))

		r.Get("/api/user/me", h.users.Me)
		r.Get("/api/user/referral", h.users.Referral)
		r.Get("/api/user/team", h.users.Team)
		r.Get("/api/user/balance", h.balance.GetBalance)
		r.Get("/api/user/withdrawals", h.balance.ListWithdrawals)

		r.Post("/api/products", h.products.Create)
		r.Post("/api/products/{id}/reviews", h.products.AddReview)

		r.Get("/api/cart", h.cart.Get)
		r.Post("/api/cart", h.cart.AddItem)
		r.Put("/api/cart", h.cart.UpdateItem)
		r.Delete("/api/cart", h.cart.RemoveItem)

		r.Get("/api/orders", h.orders.List)
		r.Get("/api/orders/{id}", h.orders.Get)

		// Операции, запрещенные заблокированным пользователям
		r.Group(func(r chi.Router) {
			r.Use(handlers.BlockedMiddleware(deps.services.user, logger))

			r.Post("/api/orders", h.orders.PlaceCOD)
			r.Post("/api/orders/stripe", h.orders.PlaceStripe)
			r.Post("/api/orders/razorpay", h.orders.PlaceRazorpay)
			r.Post("/api/orders/verify", h.orders.VerifyPayment)
			r.Post("/api/user/balance/withdraw", h.balance.Withdraw)
		})
	})

	// Административные эндпоинты
	r.Group(func(r chi.Router) {
		r.Use(handlers.AuthMiddleware(deps.jwtManager))
		r.Use(handlers.AdminMiddleware())

		r.Get("/api/admin/orders", h.orders.ListAll)
		r.Patch("/api/admin/orders/status", h.orders.UpdateStatus)
		r.Delete("/api/admin/orders/{id}", h.orders.Delete)
		r.Delete("/api/products/{id}", h.products.Delete)

		r.Post("/api/admin/levels", h.levels.Create)
		r.Get("/api/admin/levels", h.levels.List)
		r.Delete("/api/admin/levels/{id}", h.levels.Delete)

		r.Get("/api/admin/users", h.users.ListUsers)
		r.Patch("/api/admin/users/role", h.users.UpdateRole)
		r.Patch("/api/admin/users/block", h.users.SetBlocked)
	})
}
