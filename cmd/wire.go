package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	statusadapter "github.com/bnema/activity-ledger/internal/adapters/render/status"
	redisstore "github.com/bnema/activity-ledger/internal/adapters/repo/redis"
	tomlrepo "github.com/bnema/activity-ledger/internal/adapters/repo/toml"
	chainstore "github.com/bnema/activity-ledger/internal/adapters/secrets/chain"
	passstore "github.com/bnema/activity-ledger/internal/adapters/secrets/pass"
	"github.com/bnema/activity-ledger/internal/application"
	"github.com/bnema/activity-ledger/internal/config"
	"github.com/bnema/activity-ledger/internal/logging"
	"github.com/bnema/activity-ledger/internal/ports"
	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

type app struct {
	cfg            *viper.Viper
	logger         *log.Logger
	store          ports.SharedStore
	storePath      string
	closeStore     func() error
	ledger         *application.TerminationLedger
	coordinator    *application.TerminationCoordinator
	reconciler     *application.Reconciler
	sessions       *application.SessionService
	diagnostics    *application.DiagnosticLog
	statusRenderer func([]application.LiveSession, statusadapter.RenderOptions) (string, error)
	now            func() time.Time
}

func wireApp(ctx context.Context, opts *rootOptions, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.GetString(config.LogLevelKey)
	if opts.debug {
		level = "debug"
	}
	logger := logging.New(stderr, level)

	store, storePath, closeStore, err := wireSharedStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("wire shared store: %w", err)
	}

	clock := ports.SystemClock{}
	registry, err := tomlrepo.NewPresentationRegistry(cfg, clock)
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("wire presentation registry: %w", err)
	}

	sessionRepo, err := tomlrepo.NewSessionRepository(cfg)
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("wire session repository: %w", err)
	}

	diagnostics := application.NewDiagnosticLog(store, clock, cfg.GetInt(config.DiagnosticsLinesKey), logger)
	ledger := application.NewTerminationLedger(store, clock, diagnostics, logger)
	directory := application.NewPresentationDirectory(store)

	return &app{
		cfg:            cfg,
		logger:         logger,
		store:          store,
		storePath:      storePath,
		closeStore:     closeStore,
		ledger:         ledger,
		coordinator:    application.NewTerminationCoordinator(ledger, registry, directory, diagnostics, logger),
		reconciler:     application.NewReconciler(ledger, sessionRepo, store, directory, logger),
		sessions:       application.NewSessionService(sessionRepo, registry, registry, directory, clock, logger),
		diagnostics:    diagnostics,
		statusRenderer: statusadapter.Render,
		now:            time.Now,
	}, nil
}

// wireSharedStore opens the configured backend. storePath is empty for
// backends that are not a local file.
func wireSharedStore(ctx context.Context, cfg *viper.Viper) (ports.SharedStore, string, func() error, error) {
	switch cfg.GetString(config.StoreBackendKey) {
	case config.BackendRedis:
		if err := resolveRedisPassword(ctx, cfg); err != nil {
			return nil, "", nil, err
		}
		store, err := redisstore.NewSharedStore(ctx, cfg)
		if err != nil {
			return nil, "", nil, err
		}
		return store, "", store.Close, nil
	default:
		store, err := tomlrepo.NewSharedStore(cfg)
		if err != nil {
			return nil, "", nil, err
		}
		return store, store.Path(), func() error { return nil }, nil
	}
}

// resolveRedisPassword fills redis.password from the secret store when only
// a reference is configured.
func resolveRedisPassword(ctx context.Context, cfg *viper.Viper) error {
	ref := cfg.GetString(config.RedisPasswordRefKey)
	if ref == "" || cfg.GetString(config.RedisPasswordKey) != "" {
		return nil
	}

	secrets, err := wireSecretStore(cfg)
	if err != nil {
		return err
	}

	password, err := secrets.Get(ctx, ref)
	if err != nil {
		return fmt.Errorf("resolve redis password %q: %w", ref, err)
	}

	cfg.Set(config.RedisPasswordKey, password)
	return nil
}

func wireSecretStore(cfg *viper.Viper) (ports.SecretStore, error) {
	root := cfg.GetString(config.SecretsDirKey)
	if root == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		root = filepath.Join(homeDir, ".activitylog", "secrets")
	}

	store, err := chainstore.NewPassFirstWithFileFallback(root, passstore.WithStoreDir(cfg.GetString(config.SecretsPassDirKey)))
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	return store, nil
}
