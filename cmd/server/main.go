package main

import (
	"context"
	"log"

	"github.com/dkovalenko/contactbook/internal/server"
	"github.com/dkovalenko/contactbook/internal/server/config"
)

func main() {
	cfg := config.LoadConfig()

	app, err := server.NewApp(cfg)
	if err != nil {
		log.Fatalf("startup error: %v", err)
	}

	app.Run(context.Background())
}
