package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/drive_computer/internal/app"
	"github.com/relabs-tech/drive_computer/internal/config"
)

func main() {
	configPath := flag.String("config", "./drive_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting drive simulator (mock motors and heading)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunSim(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
