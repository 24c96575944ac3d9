package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/CreativeUnicorns/morestickers"
	"github.com/CreativeUnicorns/morestickers/cache"
	"github.com/CreativeUnicorns/morestickers/corsproxy"
	"github.com/CreativeUnicorns/morestickers/i18n"
	"github.com/CreativeUnicorns/morestickers/storage"
	"github.com/CreativeUnicorns/morestickers/transcoder"
)

// app carries everything a subcommand needs. It is built once per
// invocation in the root command's PersistentPreRunE.
type app struct {
	cfg       *config
	logger    morestickers.Logger
	fs        afero.Fs
	out       io.Writer
	store     *morestickers.Store
	localizer *i18n.Localizer
}

func newApp(ctx context.Context, cfg *config, fs afero.Fs, out, logOut io.Writer) (*app, error) {
	logger := morestickers.NewLogger(logOut)
	logger.SetLevel(cfg.LogLevel)

	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	bundle, err := i18n.LoadEmbedded()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load translations: %w", err)
	}
	localizer := i18n.New(store, bundle)
	if err := localizer.Reload(ctx); err != nil {
		logger.Warn("failed to load region, using default", "error", err)
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		fs:        fs,
		out:       out,
		store:     store,
		localizer: localizer,
	}, nil
}

func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func openStore(cfg *config, logger morestickers.Logger) (*morestickers.Store, error) {
	var backend morestickers.Storage
	switch cfg.StorageDriver {
	case storageMemory:
		backend = storage.NewMemoryStorage()
	case storageSQLite:
		s, err := storage.NewSQLiteStorage(cfg.StorageDSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		backend = s
	case storagePostgres:
		s, err := storage.NewPostgresStorage(cfg.StorageDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres storage: %w", err)
		}
		backend = s
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	opts := []morestickers.Option{
		morestickers.WithStorage(backend),
		morestickers.WithLogger(logger),
		morestickers.WithNamespace(cfg.Namespace),
		morestickers.WithCacheTTL(cfg.CacheTTL),
	}

	switch cfg.CacheDriver {
	case cacheMemory:
		opts = append(opts, morestickers.WithCache(cache.NewMemoryCache()))
	case cacheRedis:
		c, err := cache.NewRedisCacheFromURL(cfg.CacheURL)
		if err != nil {
			_ = backend.Close()
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		opts = append(opts, morestickers.WithCache(c))
	}

	return morestickers.New(opts...), nil
}

func (a *app) proxyClient() *corsproxy.Client {
	return corsproxy.NewClient(corsproxy.WithBaseURL(a.cfg.ProxyBaseURL))
}

func (a *app) transcoder(opts ...transcoder.ExecOption) *transcoder.Transcoder {
	engineOpts := []transcoder.ExecOption{
		transcoder.WithBinary(a.cfg.FFmpegBinary),
		transcoder.WithEngineLogger(a.logger),
	}
	if a.cfg.FFmpegWorkDir != "" {
		engineOpts = append(engineOpts, transcoder.WithWorkDir(a.cfg.FFmpegWorkDir))
	}
	engine := transcoder.NewExecEngine(append(engineOpts, opts...)...)

	return transcoder.New(engine,
		transcoder.WithAssets(transcoder.AssetsFor(a.cfg.CoreBaseURL)),
		transcoder.WithResizePreference(a.store),
		transcoder.WithExecTimeout(a.cfg.FFmpegTimeout),
		transcoder.WithLogger(a.logger),
	)
}
