package main

import (
	"flag"
	"log"
	"os"

	"github.com/simp-lee/userdir/internal/app"
	"github.com/simp-lee/userdir/internal/config"
)

func main() {
	defaultPath := "configs/config.yaml"
	if p := os.Getenv("USERDIR_CONFIG"); p != "" {
		defaultPath = p
	}
	configPath := flag.String("config", defaultPath, "path to configuration file (env USERDIR_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal("failed to create app: ", err)
	}

	if err := a.Run(); err != nil {
		log.Fatal("server error: ", err)
	}
}
