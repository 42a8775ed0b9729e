package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/frostvale3d/frostvale"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "frostvale.toml", "settings file (TOML)")
	headless := flag.Bool("headless", false, "run without a window, frames go to a null target")
	flag.Parse()

	settings, err := frostvale.LoadSettings(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *headless {
		settings.Headless = true
	}

	app, err := frostvale.NewVillageApp(settings, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app.Run()
}
