package main

import (
	"log"

	"github.com/relabs-tech/panorama_capture/internal/app"
	"github.com/relabs-tech/panorama_capture/internal/config"
)

func main() {
	log.Println("starting panorama-capture GPS producer (NMEA → MQTT)")

	// Load configuration
	if err := config.InitGlobal("panorama_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunGPSProducer(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
