// Command reversi-eval evaluates and searches reversi positions with a
// learned scoring network, over a line protocol on stdin or over HTTP.
//
// Usage:
//
//	reversi-eval [-config file] [-model file] [-cpuprofile file] [protocol|serve]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hailam/reversi/internal/book"
	"github.com/hailam/reversi/internal/config"
	"github.com/hailam/reversi/internal/engine"
	"github.com/hailam/reversi/internal/eval"
	"github.com/hailam/reversi/internal/nn"
	"github.com/hailam/reversi/internal/protocol"
	"github.com/hailam/reversi/internal/server"
	"github.com/hailam/reversi/internal/storage"
)

var (
	cfgPath    = flag.String("config", "", "config file (yaml, json or toml)")
	modelPath  = flag.String("model", "", "model weights file (overrides model_path)")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()

	cfg, err := config.Setup(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}
	if *modelPath != "" {
		cfg.ModelPath = *modelPath
	}

	logger := NewLogger(cfg.LogLevel)
	defer logger.Sync()

	mode := "protocol"
	if flag.NArg() > 0 {
		mode = flag.Arg(0)
	}
	if mode != "protocol" && mode != "serve" {
		logger.Fatalf("unknown mode %q (want protocol or serve)", mode)
	}

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			logger.Fatalw("could not create CPU profile", "error", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			logger.Fatalw("could not start CPU profile", "error", err)
		}
		defer pprof.StopCPUProfile()
		logger.Infof("CPU profiling enabled, writing to %s", profilePath)
	}

	net, path, err := loadModel(cfg)
	if err != nil {
		logger.Fatalw("Failed to load model", "error", err)
	}
	defer net.Close()
	logger.Infow("Model loaded", "path", path, "id", fmt.Sprintf("%016x", net.ID))

	evaluator, err := eval.New(net)
	if err != nil {
		logger.Fatalw("Failed to create evaluator", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleShutdown(cancel, logger)

	cache, err := storage.Open(ctx, storage.Options{
		Backend:    cfg.Cache.Backend,
		DataDir:    cfg.DataDir,
		RedisURL:   cfg.Cache.RedisURL,
		MemorySize: cfg.Cache.MemorySize,
		Logger:     logger.Desugar(),
	})
	if err != nil {
		logger.Fatalw("Failed to open evaluation cache", "error", err)
	}

	var evalCache eval.Cache
	if cache != nil {
		defer cache.Close()
		evalCache = cache
		logger.Infof("Evaluation cache: %s", cfg.Cache.Backend)
	}

	cached := eval.NewCached(evaluator, evalCache, net.ID)
	cached.OnError = func(err error) {
		logger.Warnw("evaluation cache error", "error", err)
	}

	eng := engine.NewEngine(cached, cfg.Search.HashMB)
	if cfg.Search.BookPath != "" {
		b, err := book.Load(cfg.Search.BookPath)
		if err != nil {
			logger.Fatalw("Failed to load opening book", "path", cfg.Search.BookPath, "error", err)
		}
		eng.SetBook(b)
		logger.Infow("Opening book loaded", "path", cfg.Search.BookPath, "positions", b.Size())
	}
	limits := engine.SearchLimits{Depth: cfg.Search.Depth, MoveTime: cfg.Search.MoveTime}

	switch mode {
	case "serve":
		srv := server.New(cached, eng, net.ID, cfg.Workers, limits, logger)
		if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("Server failed", "error", err)
		}
	default:
		p := protocol.New(eng, cached, limits, os.Stdout, logger)
		if err := p.Run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorw("Protocol failed", "error", err)
		}
	}
}

// NewLogger builds a production logger at level, or a development logger
// for "debug".
func NewLogger(level string) *zap.SugaredLogger {
	var (
		logger *zap.Logger
		err    error
	)
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		var lvl zapcore.Level
		if lvl.UnmarshalText([]byte(level)) == nil {
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
		// stdout carries protocol responses.
		cfg.OutputPaths = []string{"stderr"}
		logger, err = cfg.Build()
	}
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger.Sugar()
}

// loadModel loads cfg.ModelPath, or the first config.DefaultModelFile
// found in the standard locations.
func loadModel(cfg *config.Config) (*nn.Network, string, error) {
	acts := nn.DefaultActivations()
	if cfg.ModelPath != "" {
		net, err := nn.Load(cfg.ModelPath, acts)
		return net, cfg.ModelPath, err
	}

	var searchPaths []string
	if dir, err := storage.GetModelDir(cfg.DataDir); err == nil {
		searchPaths = append(searchPaths, dir)
	}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".reversi"))
	}
	searchPaths = append(searchPaths, "./models", ".")

	for _, dir := range searchPaths {
		path := filepath.Join(dir, config.DefaultModelFile)
		if !fileExists(path) {
			continue
		}
		net, err := nn.Load(path, acts)
		return net, path, err
	}

	return nil, "", fmt.Errorf("%w: %s not found in %v", nn.ErrModelUnavailable, config.DefaultModelFile, searchPaths)
}

// handleShutdown cancels the root context on SIGINT or SIGTERM.
func handleShutdown(cancelFunc context.CancelFunc, log *zap.SugaredLogger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("Received shutdown signal")
	cancelFunc()
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
