package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodrush/config"
	"foodrush/database"
	"foodrush/handlers"
)

func main() {
	cfg := config.LoadConfig()
	if len(cfg.JWTSecret) == 0 {
		log.Fatal("JWT_SECRET is not set in environment")
	}

	db, err := database.Connect(cfg.DBConnStr)
	if err != nil {
		log.Fatalf("Не удалось подключиться к БД: %v", err)
	}
	defer db.Close()
	log.Println("Успешно подключились к БД")

	auth := handlers.Authenticate(db, cfg.JWTSecret)
	optional := handlers.OptionalAuth(db, cfg.JWTSecret)
	dev := cfg.IsDevelopment()

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"status": "ERROR"})
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(map[string]string{
			"status":    "OK",
			"message":   "FoodRush API is running",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("POST /api/auth/register", handlers.RegisterHandler(db, cfg.JWTSecret, dev))
	mux.HandleFunc("POST /api/auth/login", handlers.LoginHandler(db, cfg.JWTSecret, dev))
	mux.HandleFunc("GET /api/auth/me", auth(handlers.MeHandler(db, dev)))

	mux.HandleFunc("GET /api/users/profile", auth(handlers.ProfileHandler(db, dev)))
	mux.HandleFunc("PUT /api/users/profile", auth(handlers.UpdateProfileHandler(db, dev)))
	mux.HandleFunc("PUT /api/users/change-password", auth(handlers.ChangePasswordHandler(db, dev)))
	mux.HandleFunc("DELETE /api/users/account", auth(handlers.DeleteAccountHandler(db, dev)))

	mux.HandleFunc("GET /api/foods", optional(handlers.ListFoodsHandler(db, dev)))
	mux.HandleFunc("GET /api/foods/categories/all", handlers.ListCategoriesHandler(db, dev))
	mux.HandleFunc("GET /api/foods/saved/all", auth(handlers.ListSavedHandler(db, dev)))
	mux.HandleFunc("GET /api/foods/{id}", optional(handlers.GetFoodHandler(db, dev)))
	mux.HandleFunc("POST /api/foods/{id}/save", auth(handlers.ToggleSavedHandler(db, dev)))

	mux.HandleFunc("GET /api/cart", auth(handlers.GetCartHandler(db, dev)))
	mux.HandleFunc("POST /api/cart/add", auth(handlers.AddToCartHandler(db, dev)))
	mux.HandleFunc("PUT /api/cart/update", auth(handlers.UpdateCartItemHandler(db, dev)))
	mux.HandleFunc("DELETE /api/cart/remove/{foodId}", auth(handlers.RemoveFromCartHandler(db, dev)))
	mux.HandleFunc("DELETE /api/cart/clear", auth(handlers.ClearCartHandler(db, dev)))

	mux.HandleFunc("GET /api/saved", auth(handlers.ListSavedHandler(db, dev)))
	mux.HandleFunc("POST /api/saved/{foodId}", auth(handlers.AddSavedHandler(db, dev)))
	mux.HandleFunc("DELETE /api/saved/{foodId}", auth(handlers.RemoveSavedHandler(db, dev)))

	mux.HandleFunc("GET /api/orders", auth(handlers.ListOrdersHandler(db, dev)))
	mux.HandleFunc("POST /api/orders", auth(handlers.CreateOrderHandler(db, cfg.DeliveryFee, dev)))
	mux.HandleFunc("GET /api/orders/{id}", auth(handlers.GetOrderHandler(db, dev)))
	mux.HandleFunc("PUT /api/orders/{id}/status", auth(handlers.UpdateOrderStatusHandler(db, dev)))
	mux.HandleFunc("DELETE /api/orders/{id}", auth(handlers.CancelOrderHandler(db, dev)))

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: mux,
	}

	go func() {
		log.Printf("Сервер запущен на порту %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Ошибка сервера: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Останавливаем сервер...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Ошибка при остановке сервера: %v", err)
	}
}
