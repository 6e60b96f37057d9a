// FilePath: cmd/hub/main.go
package main

import (
	"fmt"
	"log"
	"os"

	tm "github.com/buger/goterm"
	"github.com/greenmind-iot/hub/internal/config"
	"github.com/greenmind-iot/hub/internal/server"
	nuts "github.com/vaudience/go-nuts"
)

func main() {
	// Clear console and draw logo
	ClearConsole()
	DrawLogo()
	// Initialize version info
	nuts.InitVersion()
	nuts.L.Infof("[Main] Starting GreenMind Hub Server v%s", nuts.GetVersion())

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create and start server
	srv := server.New(cfg)
	if err := srv.Start(); err != nil {
		nuts.L.Errorf("[Main] Server error: %v", err)
		os.Exit(1)
	}
}

// ClearConsole clears the console screen and draws the logo.
func ClearConsole() {
	tm.Clear()
	tm.MoveCursor(1, 1)
	tm.Flush()
}

func DrawLogo() {
	fmt.Println()
	lines := []string{
		"   ______                     __  ___ _           __",
		"  / ____/_______  ___  ____  /  |/  /(_)___  ____/ /",
		" / / __/ ___/ _ \\/ _ \\/ __ \\/ /|_/ // / __ \\/ __  / ",
		"/ /_/ / /  /  __/  __/ / / / /  / // / / / / /_/ /  ",
		"\\____/_/   \\___/\\___/_/ /_/_/  /_//_/_/ /_/\\__,_/   ",
		"..................................................  " + nuts.GetVersion(),
	}

	for _, line := range lines {
		fmt.Println(line)
	}
}
