package main

import (
	"github.com/SebastianCl/letra-cancion/internal/app"
	"github.com/SebastianCl/letra-cancion/internal/config"
)

func main() {
	cfg := config.Load()
	app := app.New(cfg)
	app.Run()
}
