package main

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/CreativeUnicorns/morestickers/delivery"
	"github.com/CreativeUnicorns/morestickers/transcoder"
)

// rootOptions lets tests swap the filesystem, the ffmpeg engine and the
// Discord session.
type rootOptions struct {
	fs         afero.Fs
	engineOpts []transcoder.ExecOption
	sender     delivery.MessageSender
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	if opts == nil {
		opts = &rootOptions{}
	}
	if opts.fs == nil {
		opts.fs = afero.NewOsFs()
	}

	var (
		configFile string
		a          *app
	)
	v := newViper()

	root := &cobra.Command{
		Use:           "morestickers",
		Short:         "Sticker picker add-on core: preferences, conversion and delivery",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindFlags(v, cmd.Root()); err != nil {
				return err
			}
			cfg, err := loadConfig(v, configFile)
			if err != nil {
				return err
			}
			a, err = newApp(cmd.Context(), cfg, opts.fs, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return err
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a == nil {
				return nil
			}
			return a.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default: ./morestickers.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("namespace", "", "preference namespace")
	flags.String("storage", "", "storage driver: memory, sqlite, postgres")
	flags.String("dsn", "", "sqlite path or postgres connection string")
	flags.String("cache", "", "cache driver: none, memory, redis")
	flags.String("cache-url", "", "redis URL")

	appFn := func() *app { return a }
	root.AddCommand(
		newServeCmd(appFn),
		newPrefCmd(appFn),
		newConvertCmd(appFn, opts),
		newProxyURLCmd(appFn),
		newFetchCoreCmd(appFn),
		newSendCmd(appFn, opts),
		newBotCmd(appFn),
	)
	return root
}
