package cli

import (
	"errors"
	"fmt"

	"github.com/Joseda-hg/lazytodo/internal/config"
	"github.com/Joseda-hg/lazytodo/internal/db"
	"github.com/Joseda-hg/lazytodo/internal/engine"
	"github.com/Joseda-hg/lazytodo/internal/kv"
	"github.com/Joseda-hg/lazytodo/internal/logging"
	"github.com/Joseda-hg/lazytodo/internal/persist"
	"go.uber.org/zap"
)

type globalFlags struct {
	configPath string
	envFile    string
	dbPath     string
	store      string
	web        bool
	port       int
	ephemeral  bool
}

// app is the wired set of components every command works against.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	store    kv.Store
	engine   *engine.Engine
	closeLog func() error
}

func loadConfig(flags *globalFlags) (config.Config, error) {
	cfgPath := flags.configPath
	if cfgPath == "" {
		defaultPath, err := config.DefaultConfigPath()
		if err != nil {
			return config.Config{}, err
		}
		cfgPath = defaultPath
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, err
	}

	if flags.dbPath != "" {
		cfg.DBPath = flags.dbPath
	}
	if flags.store != "" {
		cfg.Store = flags.store
	}
	if flags.web {
		cfg.WebEnabled = true
	}
	if flags.port != 0 {
		cfg.WebPort = flags.port
	}

	if !flags.ephemeral {
		if err := config.Save(cfgPath, cfg); err != nil {
			return config.Config{}, err
		}
	}

	cfg, err = config.ApplyEnv(cfg, flags.envFile)
	if err != nil {
		return config.Config{}, err
	}
	if flags.ephemeral {
		cfg.Store = config.StoreMemory
	}
	if err := cfg.Resolve(cfgPath); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func openApp(flags *globalFlags) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	log, closeLog, err := logging.New(logging.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding, Path: cfg.LogPath})
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	log.Info("store opened", zap.String("store", cfg.Store))

	eng := engine.New(persist.NewAdapter(store, log),
		engine.WithLogger(log),
		engine.WithHistoryLimit(cfg.HistoryLimit),
		engine.WithRequireTags(cfg.RequireTags),
	)
	return &app{cfg: cfg, log: log, store: store, engine: eng, closeLog: closeLog}, nil
}

func openStore(cfg config.Config) (kv.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return kv.NewMemory(), nil
	case config.StoreBolt:
		return kv.OpenBolt(cfg.BoltPath, "")
	default:
		if err := config.EnsureDir(cfg.DBPath); err != nil {
			return nil, err
		}
		return db.OpenStore(cfg.DBPath)
	}
}

func (a *app) Close() error {
	storeErr := a.store.Close()
	_ = a.log.Sync()
	return errors.Join(storeErr, a.closeLog())
}
