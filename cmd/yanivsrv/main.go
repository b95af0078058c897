package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/vctt94/bisonbotkit/logging"

	"github.com/vctt94/yanivsrv/pkg/server"
)

func main() {
	var (
		dbPath     string
		host       string
		port       int
		portFile   string
		logFile    string
		debugLevel string
	)
	flag.StringVar(&dbPath, "db", "", "Path to SQLite database file (empty = $DATABASE_URL, still empty = no persistence)")
	flag.StringVar(&host, "host", "0.0.0.0", "Host to listen on")
	flag.IntVar(&port, "port", 0, "Port to listen on (0 = $PORT or 5174)")
	flag.StringVar(&portFile, "portfile", "", "If set, write selected port to this file")
	flag.StringVar(&logFile, "logfile", "", "Path to log file (empty = stdout only)")
	flag.StringVar(&debugLevel, "debuglevel", "info", "Logging level: trace, debug, info, warn, error")
	flag.Parse()

	if port == 0 {
		port = 5174
		if env := os.Getenv("PORT"); env != "" {
			if v, err := strconv.Atoi(env); err == nil {
				port = v
			}
		}
	}
	if dbPath == "" {
		dbPath = os.Getenv("DATABASE_URL")
	}

	// Logging backend
	logBackend, err := logging.NewLogBackend(logging.LogConfig{
		LogFile:        logFile,
		DebugLevel:     debugLevel,
		MaxLogFiles:    10,
		MaxBufferLines: 1000,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}
	defer logBackend.Close()
	log := logBackend.Logger("MAIN")

	// Init DB. Rooms stay in memory only when no path is configured or
	// the database cannot be opened.
	var db server.Database
	if dbPath != "" {
		db, err = server.NewDatabase(dbPath)
		if err != nil {
			log.Warnf("Failed to init db at %s, running without persistence: %v", dbPath, err)
			db = nil
		} else {
			defer db.Close()
		}
	}

	switch strings.ToLower(debugLevel) {
	case "debug", "trace":
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	yanivSrv := server.NewServer(db, logBackend)

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to listen: %v\n", err)
		os.Exit(1)
	}

	// Optionally write chosen port
	if portFile != "" {
		_, p, _ := net.SplitHostPort(lis.Addr().String())
		_ = os.WriteFile(portFile, []byte(p), 0600)
	}

	log.Infof("Listening on %s", lis.Addr())

	// Serve (blocking)
	if err := http.Serve(lis, yanivSrv.Router()); err != nil {
		fmt.Fprintf(os.Stderr, "http serve error: %v\n", err)
		os.Exit(1)
	}
}
