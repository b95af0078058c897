package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/vctt94/yanivsrv/pkg/client"
)

var (
	serverAddr = flag.String("server", "http://127.0.0.1:5174", "Base URL of the yaniv server")
	name       = flag.String("name", "", "Display name at the table")
	playerID   = flag.String("pid", "", "Player ID to reuse across sessions")
	dataDir    = flag.String("datadir", "", "Directory for client logs")
	debug      = flag.String("debug", "info", "Debug level for logging")
)

func main() {
	flag.Parse()

	displayName := *name
	if displayName == "" {
		displayName = fmt.Sprintf("Player-%d", os.Getpid())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ycli, err := client.NewYanivClient(ctx, &client.YanivClientConfig{
		ServerAddr: *serverAddr,
		Name:       displayName,
		PID:        *playerID,
		DataDir:    *dataDir,
		DebugLevel: *debug,
	})
	if err != nil {
		fmt.Printf("Failed to create yaniv client: %v\n", err)
		os.Exit(1)
	}
	defer ycli.Close()

	p := tea.NewProgram(initialModel(ctx, ycli), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running UI: %v\n", err)
		os.Exit(1)
	}
}
