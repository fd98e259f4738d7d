package main

import (
	"log"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"attest/internal/config"
	"attest/internal/container"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	c, err := container.New(cfg)
	if err != nil {
		log.Fatalf("container init error: %v", err)
	}
	defer c.Close()

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("database connection error: %v", err)
	}
	if err := c.InitWithDatabase(db); err != nil {
		log.Fatalf("database init error: %v", err)
	}

	addr := ":" + cfg.Server.Port
	c.Logger.Info("[Main] assessment service listening on %s", addr)
	if err := http.ListenAndServe(addr, c.Server.Handler()); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
