package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/claraops/callsheet/internal/config"
	"github.com/claraops/callsheet/internal/dedupe"
	"github.com/claraops/callsheet/internal/httpserver"
	"github.com/claraops/callsheet/internal/store"
)

// main boots the service: config → fingerprint store → HTTP server.
func main() {
	// Local development convenience; deployed instances use real env vars.
	if err := godotenv.Load(); err == nil {
		log.Println("loaded configuration from .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// Duplicate detection runs against Postgres when DB_URL is set so
	// fingerprints survive restarts and are shared across instances;
	// otherwise it degrades to process memory.
	var fingerprints dedupe.Store = dedupe.NewMemoryStore()
	if cfg.DBURL != "" {
		pg, err := store.NewPostgresStore(cfg.DBURL)
		if err != nil {
			log.Fatal(err)
		}
		defer pg.Close()

		// Ensure the fingerprints table exists so a fresh database works
		// without manual migration.
		if err := pg.EnsureSchema(); err != nil {
			log.Fatal(err)
		}
		fingerprints = pg
	}

	router := httpserver.NewRouter(cfg, fingerprints)

	log.Printf("server started on :%s (%d clients configured)", cfg.Port, len(cfg.SheetURLs))
	log.Fatal(router.Run(":" + cfg.Port))
}
