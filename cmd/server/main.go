package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"catalogue_back_end/internal/cache"
	"catalogue_back_end/internal/catalog"
	"catalogue_back_end/internal/config"
	"catalogue_back_end/internal/handlers"
	"catalogue_back_end/internal/routes"
	"catalogue_back_end/internal/search"
	"catalogue_back_end/internal/services"
	"catalogue_back_end/internal/store"
)

func main() {
	config.Load()
	ctx := context.Background()

	st, err := openStore()
	if err != nil {
		log.Fatalf("❌ Échec initialisation du store: %v", err)
	}
	defer st.Close()

	rdb := cache.Connect(ctx)
	idx := search.Connect()
	uploader := services.ConnectMinio(ctx)

	svc := catalog.New(st, rdb, idx)

	r := gin.Default()
	r.Use(cors.New(corsConfig()))
	routes.RegisterRoutes(r, handlers.New(svc, uploader), rdb)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}
	log.Println("🚀 API catalogue lancée sur le port", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal("❌ Serveur arrêté:", err)
	}
}

// openStore choisit le backend de persistance : SQLite embarqué par défaut,
// ScyllaDB avec CATALOGUE_STORE=scylla. Le handle est ouvert une fois ici et
// injecté dans le moteur.
func openStore() (store.Store, error) {
	switch backend := os.Getenv("CATALOGUE_STORE"); backend {
	case "", "sqlite":
		path := os.Getenv("SQLITE_PATH")
		if path == "" {
			path = "catalogue.db"
		}
		return store.OpenSQLite(path)
	case "scylla":
		return store.OpenScylla(store.ScyllaConfigFromEnv())
	default:
		return nil, fmt.Errorf("CATALOGUE_STORE inconnu: %q", backend)
	}
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	origins := []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		origins = append(origins, strings.Split(extra, ",")...)
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", "X-Session-Id")
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	return cfg
}
