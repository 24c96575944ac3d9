package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CreativeUnicorns/morestickers"
	"github.com/CreativeUnicorns/morestickers/corsproxy"
	"github.com/CreativeUnicorns/morestickers/transcoder"
)

const envPrefix = "MORESTICKERS"

// Config keys. Nested keys map to MORESTICKERS_<SECTION>_<NAME>.
const (
	cfgKeyLogLevel      = "log_level"
	cfgKeyNamespace     = "namespace"
	cfgKeyStorageDriver = "storage.driver"
	cfgKeyStorageDSN    = "storage.dsn"
	cfgKeyCacheDriver   = "cache.driver"
	cfgKeyCacheURL      = "cache.url"
	cfgKeyCacheTTL      = "cache.ttl"
	cfgKeyListenAddr    = "listen_addr"
	cfgKeyProxyBaseURL  = "proxy.base_url"
	cfgKeyCoreBaseURL   = "ffmpeg.core_base_url"
	cfgKeyFFmpegBinary  = "ffmpeg.binary"
	cfgKeyFFmpegWorkDir = "ffmpeg.work_dir"
	cfgKeyFFmpegTimeout = "ffmpeg.timeout"
	cfgKeyDiscordToken  = "discord.token"
)

const (
	storageMemory   = "memory"
	storageSQLite   = "sqlite"
	storagePostgres = "postgres"

	cacheNone   = "none"
	cacheMemory = "memory"
	cacheRedis  = "redis"
)

// config is the resolved runtime configuration.
type config struct {
	LogLevel      morestickers.LogLevel
	Namespace     string
	StorageDriver string
	StorageDSN    string
	CacheDriver   string
	CacheURL      string
	CacheTTL      time.Duration
	ListenAddr    string
	ProxyBaseURL  string
	CoreBaseURL   string
	FFmpegBinary  string
	FFmpegWorkDir string
	FFmpegTimeout time.Duration
	DiscordToken  string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(cfgKeyLogLevel, "info")
	v.SetDefault(cfgKeyNamespace, morestickers.DefaultNamespace)
	v.SetDefault(cfgKeyStorageDriver, storageSQLite)
	v.SetDefault(cfgKeyStorageDSN, "morestickers.db")
	v.SetDefault(cfgKeyCacheDriver, cacheMemory)
	v.SetDefault(cfgKeyCacheTTL, 24*time.Hour)
	v.SetDefault(cfgKeyListenAddr, ":8080")
	v.SetDefault(cfgKeyProxyBaseURL, corsproxy.DefaultBaseURL)
	v.SetDefault(cfgKeyCoreBaseURL, transcoder.DefaultBaseURL)
	v.SetDefault(cfgKeyFFmpegBinary, "ffmpeg")
	v.SetDefault(cfgKeyFFmpegTimeout, time.Minute)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// bindFlags binds the root persistent flags to their config keys.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	bindings := map[string]string{
		cfgKeyLogLevel:      "log-level",
		cfgKeyNamespace:     "namespace",
		cfgKeyStorageDriver: "storage",
		cfgKeyStorageDSN:    "dsn",
		cfgKeyCacheDriver:   "cache",
		cfgKeyCacheURL:      "cache-url",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// loadConfig reads configFile when given, then resolves every key. A missing
// default config file is not an error.
func loadConfig(v *viper.Viper, configFile string) (*config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("morestickers")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &config{
		LogLevel:      morestickers.ParseLogLevel(v.GetString(cfgKeyLogLevel)),
		Namespace:     v.GetString(cfgKeyNamespace),
		StorageDriver: strings.ToLower(v.GetString(cfgKeyStorageDriver)),
		StorageDSN:    v.GetString(cfgKeyStorageDSN),
		CacheDriver:   strings.ToLower(v.GetString(cfgKeyCacheDriver)),
		CacheURL:      v.GetString(cfgKeyCacheURL),
		CacheTTL:      v.GetDuration(cfgKeyCacheTTL),
		ListenAddr:    v.GetString(cfgKeyListenAddr),
		ProxyBaseURL:  v.GetString(cfgKeyProxyBaseURL),
		CoreBaseURL:   v.GetString(cfgKeyCoreBaseURL),
		FFmpegBinary:  v.GetString(cfgKeyFFmpegBinary),
		FFmpegWorkDir: v.GetString(cfgKeyFFmpegWorkDir),
		FFmpegTimeout: v.GetDuration(cfgKeyFFmpegTimeout),
		DiscordToken:  v.GetString(cfgKeyDiscordToken),
	}

	switch cfg.StorageDriver {
	case storageMemory, storageSQLite, storagePostgres:
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
	switch cfg.CacheDriver {
	case cacheNone, cacheMemory, cacheRedis:
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.CacheDriver)
	}
	return cfg, nil
}
