package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"peerd/internal/backends"
	"peerd/internal/chatstore"
	"peerd/internal/config"
	"peerd/internal/httpapi"
	"peerd/internal/netsrv"
	"peerd/internal/rag"
	"peerd/internal/registry"
	"peerd/internal/session"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var (
		configPath string
		cfg        config.Config
	)
	root := &cobra.Command{
		Use:           "peerd",
		Short:         "Local model daemon with dual-protocol connection handling",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configPath != "" {
				fileCfg, err := config.Load(configPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				mergeConfig(&cfg, fileCfg, cmd)
			}
			applyEnv(&cfg)
			applyDefaults(&cfg)
			return run(cfg)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "Config file (.yaml, .json or .toml)")
	root.Flags().StringVar(&cfg.Addr, "addr", "", "Listen address, e.g. :11434")
	root.Flags().StringVar(&cfg.ModelsDir, "models-dir", "", "Directory scanned for *.gguf model files")
	root.Flags().StringVar(&cfg.ChatDB, "chat-db", "", "Path to the sqlite chat database")
	root.Flags().StringVar(&cfg.DefaultModel, "default-model", "", "Model used when a request omits one")
	root.Flags().IntVar(&cfg.GraceMS, "grace-ms", 0, "Milliseconds before a silent connection is treated as a signaling peer")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	root.Flags().IntVar(&cfg.CtxSize, "ctx-size", 0, "Model context window size")
	root.Flags().IntVar(&cfg.Threads, "threads", 0, "Inference thread count")
	return root
}

// mergeConfig fills cfg from the file for every knob not set on the command
// line. Flags beat the file, the file beats environment and defaults.
func mergeConfig(cfg *config.Config, file config.Config, cmd *cobra.Command) {
	if !cmd.Flags().Changed("addr") && file.Addr != "" {
		cfg.Addr = file.Addr
	}
	if !cmd.Flags().Changed("models-dir") && file.ModelsDir != "" {
		cfg.ModelsDir = file.ModelsDir
	}
	if !cmd.Flags().Changed("chat-db") && file.ChatDB != "" {
		cfg.ChatDB = file.ChatDB
	}
	if !cmd.Flags().Changed("default-model") && file.DefaultModel != "" {
		cfg.DefaultModel = file.DefaultModel
	}
	if !cmd.Flags().Changed("grace-ms") && file.GraceMS != 0 {
		cfg.GraceMS = file.GraceMS
	}
	if !cmd.Flags().Changed("log-level") && file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if !cmd.Flags().Changed("ctx-size") && file.CtxSize != 0 {
		cfg.CtxSize = file.CtxSize
	}
	if !cmd.Flags().Changed("threads") && file.Threads != 0 {
		cfg.Threads = file.Threads
	}
}

func applyEnv(cfg *config.Config) {
	if cfg.Addr == "" {
		cfg.Addr = os.Getenv("PEERD_ADDR")
	}
	if cfg.ModelsDir == "" {
		cfg.ModelsDir = os.Getenv("PEERD_MODELS_DIR")
	}
	if cfg.ChatDB == "" {
		cfg.ChatDB = os.Getenv("PEERD_CHAT_DB")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = os.Getenv("PEERD_DEFAULT_MODEL")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = os.Getenv("PEERD_LOG_LEVEL")
	}
}

func applyDefaults(cfg *config.Config) {
	if cfg.Addr == "" {
		cfg.Addr = ":11434"
	}
	if cfg.ModelsDir == "" {
		cfg.ModelsDir = "~/models/llm"
	}
	if cfg.ChatDB == "" {
		cfg.ChatDB = "peerd.db"
	}
	if cfg.GraceMS <= 0 {
		cfg.GraceMS = 50
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func run(cfg config.Config) error {
	log := newLogger(cfg.LogLevel)

	reg, err := registry.New(cfg.ModelsDir)
	if err != nil {
		return fmt.Errorf("model registry: %w", err)
	}
	puller := registry.NewPuller(reg, log)

	rt := session.NewRuntime(cfg.CtxSize, cfg.Threads)
	sessions := session.NewManager(rt, reg, log, session.ManagerConfig{DefaultModel: cfg.DefaultModel})
	defer sessions.Close()

	store, err := chatstore.Open(cfg.ChatDB)
	if err != nil {
		return fmt.Errorf("chat store: %w", err)
	}
	defer store.Close()

	hub := backends.New()
	retrieval := rag.New(sessions)

	srv := netsrv.New(nil, log, netsrv.Options{
		GraceWindow: time.Duration(cfg.GraceMS) * time.Millisecond,
	})
	mux := httpapi.NewMux(httpapi.Deps{
		Log:       log,
		Sessions:  sessions,
		Models:    reg,
		Puller:    puller,
		Chats:     store,
		Retrieval: retrieval,
		Signal:    srv,
		Backends:  hub,
		StartedAt: time.Now(),
	})
	srv.SetHandler(mux)
	srv.OnAnswer(func(sdp, peerID string) {
		log.Info().Str("peer_id", peerID).Int("sdp_bytes", len(sdp)).Msg("answer received")
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("models_dir", cfg.ModelsDir).Msg("listening")
		errCh <- srv.ListenAndServe(cfg.Addr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		srv.Shutdown()
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
