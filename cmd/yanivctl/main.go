package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/vctt94/yanivsrv/pkg/api"
	"github.com/vctt94/yanivsrv/pkg/client"
	"github.com/vctt94/yanivsrv/pkg/yaniv"
)

// Common flags
var (
	serverAddr = flag.String("server", "http://127.0.0.1:5174", "Base URL of the yaniv server")
	name       = flag.String("name", "yanivctl", "Display name used for create/join")
	playerID   = flag.String("pid", "", "Player ID (reuse the value printed by create/join)")
	dataDir    = flag.String("datadir", "", "Directory for client logs")
	debug      = flag.String("debug", "error", "Debug level for logging")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [global flags] <command> [args]\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  id                                 Show player ID")
		fmt.Fprintln(os.Stderr, "  create [--ai N]                    Create a room; prints code and pid")
		fmt.Fprintln(os.Stderr, "  join --code CODE                   Join a room; prints pid")
		fmt.Fprintln(os.Stderr, "  leave --code CODE                  Leave a waiting room")
		fmt.Fprintln(os.Stderr, "  options --code CODE [--slamdowns]  Set room options (creator only)")
		fmt.Fprintln(os.Stderr, "  start --code CODE [--slamdowns]    Start the game (creator only)")
		fmt.Fprintln(os.Stderr, "  state --code CODE [--json]         Dump the room snapshot")
		fmt.Fprintln(os.Stderr, "  watch --code CODE                  Tail room snapshots (JSON)")
		fmt.Fprintln(os.Stderr, "  act --code CODE discard IDS --draw deck|N")
		fmt.Fprintln(os.Stderr, "  act --code CODE yaniv|slamdown     Declare")
		fmt.Fprintln(os.Stderr, "  play-again --code CODE             Request a rematch; prints next code")
		fmt.Fprintln(os.Stderr, "  health                             Print server health (JSON)")
		fmt.Fprintln(os.Stderr, "\nGlobal flags:")
		flag.PrintDefaults()
	}

	// Suppress default flag errors to avoid noisy usage on subcommands
	flag.CommandLine.SetOutput(io.Discard)
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cmd := flag.Arg(0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ycli, err := client.NewYanivClient(ctx, &client.YanivClientConfig{
		ServerAddr: *serverAddr,
		Name:       *name,
		PID:        *playerID,
		DataDir:    *dataDir,
		DebugLevel: *debug,
	})
	if err != nil {
		fmt.Printf("Failed to create yaniv client: %v\n", err)
		os.Exit(1)
	}
	defer ycli.Close()

	switch cmd {
	case "id":
		fmt.Println(ycli.ID)
		return

	case "create":
		if err := handleCreate(ctx, ycli, flag.Args()[1:]); err != nil {
			fatalErr(err)
		}
		return

	case "join":
		if err := handleJoin(ctx, ycli, flag.Args()[1:]); err != nil {
			fatalErr(err)
		}
		return

	case "leave":
		if err := handleLeave(ctx, ycli, flag.Args()[1:]); err != nil {
			fatalErr(err)
		}
		return

	case "options":
		if err := handleOptions(ctx, ycli, flag.Args()[1:]); err != nil {
			fatalErr(err)
		}
		return

	case "start":
		if err := handleStart(ctx, ycli, flag.Args()[1:]); err != nil {
			fatalErr(err)
		}
		return

	case "state":
		if err := handleState(ctx, ycli, flag.Args()[1:]); err != nil {
			fatalErr(err)
		}
		return

	case "watch":
		if err := handleWatch(ctx, ycli, flag.Args()[1:]); err != nil {
			fatalErr(err)
		}
		return

	case "act":
		if err := handleAct(ctx, ycli, flag.Args()[1:]); err != nil {
			fatalErr(err)
		}
		return

	case "play-again":
		if err := handlePlayAgain(ctx, ycli, flag.Args()[1:]); err != nil {
			fatalErr(err)
		}
		return

	case "health":
		if err := handleHealth(ctx, ycli); err != nil {
			fatalErr(err)
		}
		return

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

func fatalErr(err error) {
	fatal(err.Error())
}

func handleCreate(ctx context.Context, ycli *client.YanivClient, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	aiCount := fs.Int("ai", 0, "Number of AI opponents (0-3)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	code, err := ycli.CreateRoom(ctx, *aiCount)
	if err != nil {
		return err
	}
	fmt.Printf("code: %s\npid: %s\n", code, ycli.ID)
	return nil
}

func handleJoin(ctx context.Context, ycli *client.YanivClient, args []string) error {
	fs := flag.NewFlagSet("join", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	code := fs.String("code", "", "Room code")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("join: %w", err)
	}
	if *code == "" {
		return errors.New("join: --code is required")
	}
	if err := ycli.JoinRoom(ctx, *code); err != nil {
		return err
	}
	fmt.Printf("pid: %s\n", ycli.ID)
	return nil
}

func handleLeave(ctx context.Context, ycli *client.YanivClient, args []string) error {
	fs := flag.NewFlagSet("leave", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	code := fs.String("code", "", "Room code")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("leave: %w", err)
	}
	if *code == "" {
		return errors.New("leave: --code is required")
	}
	ycli.SetCurrentRoomCode(*code)
	return ycli.LeaveRoom(ctx)
}

func handleOptions(ctx context.Context, ycli *client.YanivClient, args []string) error {
	fs := flag.NewFlagSet("options", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	code := fs.String("code", "", "Room code")
	slamdowns := fs.Bool("slamdowns", false, "Allow slamdowns")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("options: %w", err)
	}
	if *code == "" {
		return errors.New("options: --code is required")
	}
	ycli.SetCurrentRoomCode(*code)
	opts, err := ycli.SetOptions(ctx, *slamdowns)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(opts)
}

func handleStart(ctx context.Context, ycli *client.YanivClient, args []string) error {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	code := fs.String("code", "", "Room code")
	slamdowns := fs.Bool("slamdowns", false, "Allow slamdowns")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if *code == "" {
		return errors.New("start: --code is required")
	}
	ycli.SetCurrentRoomCode(*code)
	return ycli.StartGame(ctx, *slamdowns)
}

func handleState(ctx context.Context, ycli *client.YanivClient, args []string) error {
	fs := flag.NewFlagSet("state", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	code := fs.String("code", "", "Room code")
	asJSON := fs.Bool("json", false, "Emit JSON instead of a spew dump")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("state: %w", err)
	}
	if *code == "" {
		return errors.New("state: --code is required")
	}
	ycli.SetCurrentRoomCode(*code)
	snap, err := ycli.GetRoom(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	spew.Dump(snap)
	return nil
}

func handleWatch(ctx context.Context, ycli *client.YanivClient, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	code := fs.String("code", "", "Room code")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if *code == "" {
		return errors.New("watch: --code is required")
	}
	ycli.SetCurrentRoomCode(*code)
	if err := ycli.StartEventStream(ctx); err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for {
		select {
		case msg := <-ycli.UpdatesCh:
			if snap, ok := msg.(client.RoomUpdateMsg); ok {
				if err := enc.Encode((*api.RoomSnapshot)(snap)); err != nil {
					return err
				}
			}
		case err := <-ycli.ErrorsCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func handleAct(ctx context.Context, ycli *client.YanivClient, args []string) error {
	fs := flag.NewFlagSet("act", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var code, draw string
	fs.StringVar(&code, "code", "", "Room code")
	fs.StringVar(&draw, "draw", "deck", "Where to draw from: deck or a discard index")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("act: %w", err)
	}
	if code == "" {
		return errors.New("act: --code is required")
	}
	ycli.SetCurrentRoomCode(code)

	rest := fs.Args()
	if len(rest) < 1 {
		return errors.New("act requires a subcommand: discard, yaniv or slamdown")
	}
	switch rest[0] {
	case "yaniv":
		return ycli.DeclareYaniv(ctx)
	case "slamdown":
		return ycli.DeclareSlamdown(ctx)
	case "discard":
		if len(rest) < 2 {
			return errors.New("discard requires comma-separated card IDs")
		}
		ids, err := parseCardIDs(rest[1])
		if err != nil {
			return err
		}
		drawIdx := yaniv.DrawDeck
		if draw != "deck" {
			drawIdx, err = strconv.Atoi(draw)
			if err != nil {
				return fmt.Errorf("act: bad --draw value %q", draw)
			}
		}
		return ycli.PlayTurn(ctx, ids, drawIdx)
	default:
		return fmt.Errorf("unknown act subcommand: %s", rest[0])
	}
}

func handlePlayAgain(ctx context.Context, ycli *client.YanivClient, args []string) error {
	fs := flag.NewFlagSet("play-again", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	code := fs.String("code", "", "Room code")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("play-again: %w", err)
	}
	if *code == "" {
		return errors.New("play-again: --code is required")
	}
	ycli.SetCurrentRoomCode(*code)
	next, err := ycli.PlayAgain(ctx)
	if err != nil {
		return err
	}
	fmt.Println(next)
	return nil
}

func handleHealth(ctx context.Context, ycli *client.YanivClient) error {
	report, err := ycli.Health(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func parseCardIDs(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad card ID %q", p)
		}
		ids = append(ids, n)
	}
	return ids, nil
}
