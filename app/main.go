package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	log "github.com/go-pkgz/lgr"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/umputun/kanban/app/board"
	"github.com/umputun/kanban/app/seed"
	"github.com/umputun/kanban/app/store"
	"github.com/umputun/kanban/app/web"
)

var opts struct {
	Listen    string  `short:"l" long:"listen" env:"KANBAN_LISTEN" default:"127.0.0.1:5000" description:"listen address"`
	BaseURL   string  `long:"base-url" env:"KANBAN_BASE_URL" description:"base URL path for reverse proxy, i.e. /kanban"`
	Store     string  `long:"store" env:"KANBAN_STORE" choice:"json" choice:"sqlite" default:"json" description:"storage type"`
	File      string  `short:"f" long:"file" env:"KANBAN_FILE" default:"kanban_data.json" description:"board file for json store"`
	DB        string  `long:"db" env:"KANBAN_DB" default:"kanban.db" description:"database file for sqlite store"`
	Seed      string  `long:"seed" env:"KANBAN_SEED" description:"yaml file with columns of a fresh board"`
	Strict    bool    `long:"strict" env:"KANBAN_STRICT" description:"strict placement, reject moves and creates into missing columns"`
	RateLimit float64 `long:"rate" env:"KANBAN_RATE" default:"10" description:"max modifying requests per second per client, 0 to disable"`
	Dbg       bool    `long:"dbg" env:"KANBAN_DEBUG" description:"debug mode"`

	Log struct {
		Enabled         bool   `long:"enabled" env:"ENABLED" description:"enable logging to file"`
		Filename        string `long:"filename" env:"FILENAME" default:"kanban.log" description:"file name"`
		MaxSize         int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"max log file size in megabytes"`
		MaxAge          int    `long:"max-age" env:"MAX_AGE" default:"0" description:"max days to retain old log files"`
		MaxBackups      int    `long:"max-backups" env:"MAX_BACKUPS" default:"7" description:"max number of old log files to retain"`
		EnabledCompress bool   `long:"enabled-compress" env:"ENABLED_COMPRESS" description:"compress rotated log files"`
	} `group:"log" namespace:"log" env-namespace:"KANBAN_LOG"`
}

var revision = "unknown"

func main() {
	fmt.Printf("kanban %s\n", revision)

	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(2)
	}
	setupLogs()

	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	signals(cancel) // handle SIGQUIT and SIGTERM

	if err := run(ctx); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	seedBoard, err := seed.Load(opts.Seed)
	if err != nil {
		return err
	}

	st, closeStore, err := makeStore(seedBoard)
	if err != nil {
		return err
	}
	defer closeStore()

	mode := board.ModeLegacy
	if opts.Strict {
		mode = board.ModeStrict
	}
	log.Printf("[INFO] board store %s, placement mode %s", st, mode)

	srv, err := web.New(web.Config{
		Service:   board.NewService(st, mode),
		BaseURL:   validateBaseURL(opts.BaseURL),
		Version:   revision,
		RateLimit: opts.RateLimit,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx, opts.Listen)
}

type boardStore interface {
	board.Store
	fmt.Stringer
}

// makeStore creates the store selected by options, returns a closer to release it
func makeStore(seedBoard board.Board) (boardStore, func(), error) {
	if opts.Store == "sqlite" {
		st, err := store.NewSQLiteStore(opts.DB, seedBoard)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create sqlite store at %q: %w", opts.DB, err)
		}
		return st, func() {
			if err := st.Close(); err != nil {
				log.Printf("[WARN] failed to close store: %v", err)
			}
		}, nil
	}
	return store.NewJSONStore(opts.File, seedBoard), func() {}, nil
}

// validateBaseURL normalizes base URL, drops trailing slash and makes root an empty string
func validateBaseURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/")
}

// setupLogs configures lgr and returns the writer logs go to
func setupLogs() io.Writer {
	var out io.Writer = os.Stdout
	if opts.Log.Enabled {
		out = &lumberjack.Logger{
			Filename:   opts.Log.Filename,
			MaxSize:    opts.Log.MaxSize,
			MaxAge:     opts.Log.MaxAge,
			MaxBackups: opts.Log.MaxBackups,
			Compress:   opts.Log.EnabledCompress,
		}
	}

	if opts.Dbg {
		log.Setup(log.Debug, log.Msec, log.CallerFunc, log.CallerPkg, log.CallerFile, log.Out(out), log.Err(out))
		return out
	}
	log.Setup(log.Msec, log.Out(out), log.Err(out))
	return out
}

func signals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for sig := range sigChan {
			if sig == syscall.SIGQUIT { // catch SIGQUIT and print stack traces
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
				continue
			}
			cancel() // terminate on SIGTERM or SIGINT
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
}
