package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/CreativeUnicorns/morestickers/transcoder"
)

func newConvertCmd(appFn func() *app, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <input> <output-dir>",
		Short: "Convert an image into a sticker with ffmpeg",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			sticker, err := convertFile(cmd, a, opts, args[0])
			if err != nil {
				return err
			}

			if err := a.fs.MkdirAll(args[1], 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			dst := filepath.Join(args[1], sticker.Name)
			if err := afero.WriteFile(a.fs, dst, sticker.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", dst, err)
			}
			fmt.Fprintf(a.out, "%s (%s, %d bytes)\n", dst, sticker.ContentType, len(sticker.Data))
			return nil
		},
	}
}

func convertFile(cmd *cobra.Command, a *app, opts *rootOptions, input string) (*transcoder.Sticker, error) {
	data, err := afero.ReadFile(a.fs, input)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", input, err)
	}

	tc := a.transcoder(opts.engineOpts...)
	defer func() {
		if err := tc.Terminate(cmd.Context()); err != nil {
			a.logger.Warn("failed to stop ffmpeg", "error", err)
		}
	}()
	return tc.ConvertSticker(cmd.Context(), filepath.Base(input), data)
}
