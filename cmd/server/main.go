package main

import (
	"fmt"
	"log"

	"studhelp/internal/config"
	"studhelp/internal/database"
	"studhelp/internal/notify"
	"studhelp/internal/server"
)

func main() {
	cfg := config.Load()
	database.Init(cfg.DBDSN)

	if cfg.SMTPAddr != "" {
		notify.Email = notify.SMTPSender{Addr: cfg.SMTPAddr, From: cfg.SMTPFrom}
	}

	r := server.NewRouter(cfg)

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("starting server on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
