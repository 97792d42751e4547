package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"predictd/internal/config"
	"predictd/internal/httpapi"
	"predictd/internal/lifecycle"
	"predictd/internal/predict"
	"predictd/internal/ratelimit"
	"predictd/internal/registry"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// service composes the prediction engine with the lifecycle manager into the
// surface the HTTP layer needs.
type service struct {
	*predict.Engine
	mgr *lifecycle.Manager
}

func (s service) Snapshot() lifecycle.Snapshot { return s.mgr.Snapshot() }

func (s service) TriggerLoad(ctx context.Context) lifecycle.LoadOutcome {
	return s.mgr.TriggerLoad(ctx)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func buildRootCmd() *cobra.Command {
	var (
		configPath string
		cfg        config.Config
		origins    string
	)

	root := &cobra.Command{
		Use:           "predictd",
		Short:         "Next-word prediction service over a local language model",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// File config is the base, flags override what the user set.
			fileCfg := config.Config{}
			if configPath != "" {
				var err error
				fileCfg, err = config.Load(configPath)
				if err != nil {
					return fmt.Errorf("load config %s: %w", configPath, err)
				}
			}
			merged := overlay(fileCfg, cfg)
			if cmd.Flags().Changed("allowed-origins") || len(merged.AllowedOrigins) == 0 {
				merged.AllowedOrigins = splitCSV(origins)
			}
			merged.Normalize()
			return run(merged)
		},
	}

	f := root.Flags()
	f.StringVar(&configPath, "config", os.Getenv("PREDICTD_CONFIG"), "Config file (.yaml/.json/.toml)")
	f.StringVar(&cfg.Addr, "addr", envOr("PREDICTD_ADDR", ""), "HTTP listen address, e.g. :8000")
	f.StringVar(&cfg.ModelsDir, "models-dir", envOr("PREDICTD_MODELS_DIR", ""), "Directory to scan for *.gguf model files")
	f.StringVar(&cfg.StaticDir, "static-dir", envOr("PREDICTD_STATIC_DIR", ""), "Frontend build directory (empty disables static serving)")
	f.StringVar(&cfg.LocalModel, "local-model", envOr("PREDICTD_LOCAL_MODEL", ""), "Model name for the local profile")
	f.StringVar(&cfg.ConstrainedModel, "constrained-model", envOr("PREDICTD_CONSTRAINED_MODEL", ""), "Model name for the constrained profile")
	f.StringVar(&cfg.ModelOverride, "model-override", envOr("PREDICTD_MODEL_OVERRIDE", ""), "Model name override (local profile only)")
	f.StringVar(&cfg.Profile, "profile", envOr("PREDICTD_PROFILE", ""), "Deployment profile: local|constrained (empty = auto-detect)")
	f.StringVar(&cfg.LlamaBin, "llama-bin", envOr("PREDICTD_LLAMA_BIN", ""), "llama-server binary")
	f.IntVar(&cfg.LlamaCtxSize, "llama-ctx-size", 0, "llama-server context size (0 = server default)")
	f.IntVar(&cfg.LlamaThreads, "llama-threads", 0, "llama-server thread count (0 = server default)")
	f.IntVar(&cfg.RateBudget, "rate-budget", 0, "Requests allowed per client per window")
	f.IntVar(&cfg.RateWindowSec, "rate-window-sec", 0, "Rate limit window in seconds")
	f.IntVar(&cfg.MaxQueueDepth, "max-queue-depth", 0, "Inference queue depth before 429")
	f.IntVar(&cfg.MaxWaitSec, "max-wait-sec", 0, "Max seconds a request waits for the inference slot")
	f.StringVar(&origins, "allowed-origins", envOr("PREDICTD_ALLOWED_ORIGINS", ""), "Comma-separated CORS origins (empty disables CORS)")
	f.StringVar(&cfg.LogLevel, "log-level", envOr("PREDICTD_LOG_LEVEL", ""), "Log level: debug|info|warn|error")

	return root
}

// overlay keeps file values except where the corresponding flag was set
// explicitly or carries an env default.
func overlay(base, flags config.Config) config.Config {
	out := base
	if flags.Addr != "" {
		out.Addr = flags.Addr
	}
	if flags.ModelsDir != "" {
		out.ModelsDir = flags.ModelsDir
	}
	if flags.StaticDir != "" {
		out.StaticDir = flags.StaticDir
	}
	if flags.LocalModel != "" {
		out.LocalModel = flags.LocalModel
	}
	if flags.ConstrainedModel != "" {
		out.ConstrainedModel = flags.ConstrainedModel
	}
	if flags.ModelOverride != "" {
		out.ModelOverride = flags.ModelOverride
	}
	if flags.Profile != "" {
		out.Profile = flags.Profile
	}
	if flags.LlamaBin != "" {
		out.LlamaBin = flags.LlamaBin
	}
	if flags.LlamaCtxSize > 0 {
		out.LlamaCtxSize = flags.LlamaCtxSize
	}
	if flags.LlamaThreads > 0 {
		out.LlamaThreads = flags.LlamaThreads
	}
	if flags.RateBudget > 0 {
		out.RateBudget = flags.RateBudget
	}
	if flags.RateWindowSec > 0 {
		out.RateWindowSec = flags.RateWindowSec
	}
	if flags.MaxQueueDepth > 0 {
		out.MaxQueueDepth = flags.MaxQueueDepth
	}
	if flags.MaxWaitSec > 0 {
		out.MaxWaitSec = flags.MaxWaitSec
	}
	if flags.LogLevel != "" {
		out.LogLevel = flags.LogLevel
	}
	return out
}

func run(cfg config.Config) error {
	logger := newLogger(cfg.LogLevel)

	profile := cfg.DetectProfile(os.LookupEnv)
	logger.Info().Str("profile", string(profile)).Str("models_dir", cfg.ModelsDir).Msg("starting predictd")

	reg, err := registry.LoadDir(cfg.ModelsDir)
	if err != nil {
		return fmt.Errorf("load model registry: %w", err)
	}
	logger.Info().Int("models", len(reg.Models())).Msg("model registry loaded")

	mgr := lifecycle.New(lifecycle.Config{
		Registry:         reg,
		Profile:          profile,
		LocalModel:       cfg.LocalModel,
		ConstrainedModel: cfg.ConstrainedModel,
		ModelOverride:    cfg.ModelOverride,
		Factory: lifecycle.NewServerRuntimeFactory(lifecycle.ServerRuntimeConfig{
			Bin:     cfg.LlamaBin,
			CtxSize: cfg.LlamaCtxSize,
			Threads: cfg.LlamaThreads,
			Logger:  &logger,
		}),
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       time.Duration(cfg.MaxWaitSec) * time.Second,
		Logger:        &logger,
	})

	engine := predict.NewEngine(mgr, &logger)
	limiter := ratelimit.New(cfg.RateBudget, cfg.RateWindow())

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	httpapi.SetLogger(logger)
	httpapi.SetVersion(version)
	httpapi.SetStaticDir(cfg.StaticDir)
	httpapi.SetCORSOptions(len(cfg.AllowedOrigins) > 0, cfg.AllowedOrigins)
	httpapi.SetBaseContext(baseCtx)

	mux := httpapi.NewMux(service{Engine: engine, mgr: mgr}, limiter)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Stop accepting requests, cancel in-flight work, then tear down the
	// model runtime and limiter.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown")
	}
	cancelBase()
	if err := mgr.Close(); err != nil {
		logger.Warn().Err(err).Msg("runtime close")
	}
	limiter.Close()
	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if level != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil {
			lvl = parsed
		}
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "predictd:", err)
		os.Exit(1)
	}
}
