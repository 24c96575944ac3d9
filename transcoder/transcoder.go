// Package transcoder boots an ffmpeg core and turns images into stickers.
// All work on one core is serialized; the core is loaded on first use.
package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CreativeUnicorns/morestickers"
)

// StickerSize is the edge length stickers are scaled to fit.
const StickerSize = 160

// ResizePreference reports the "No Resize" toggle. *morestickers.Store
// satisfies it.
type ResizePreference interface {
	ResizeSwitchState(ctx context.Context) (bool, error)
}

// Sticker is a converted, ready to send image.
type Sticker struct {
	Name        string
	ContentType string
	Data        []byte
}

// Transcoder owns one Engine. The engine is loaded on first use and every
// call into it is serialized.
type Transcoder struct {
	engine   Engine
	assets   Assets
	prefs    ResizePreference
	logger   morestickers.Logger
	timeout  time.Duration
	onLoaded func()

	lock   morestickers.Mutex
	loadMu sync.Mutex
	loaded atomic.Bool
	seq    atomic.Uint64
}

// Option configures a Transcoder.
type Option func(*Transcoder)

// WithAssets overrides the core artifact locations passed to Load.
func WithAssets(assets Assets) Option {
	return func(t *Transcoder) {
		t.assets = assets
	}
}

// WithResizePreference sets where ConvertSticker reads the resize toggle.
func WithResizePreference(prefs ResizePreference) Option {
	return func(t *Transcoder) {
		t.prefs = prefs
	}
}

// WithLogger sets the logger.
func WithLogger(logger morestickers.Logger) Option {
	return func(t *Transcoder) {
		t.logger = logger
	}
}

// WithExecTimeout bounds each ffmpeg run.
func WithExecTimeout(timeout time.Duration) Option {
	return func(t *Transcoder) {
		t.timeout = timeout
	}
}

// WithOnLoaded registers a callback fired once after the first successful
// load.
func WithOnLoaded(fn func()) Option {
	return func(t *Transcoder) {
		t.onLoaded = fn
	}
}

// New wraps engine. Nothing is loaded until the first call that needs it.
func New(engine Engine, opts ...Option) *Transcoder {
	t := &Transcoder{
		engine: engine,
		assets: DefaultAssets(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = morestickers.NewDefaultLogger()
	}
	return t
}

// Loaded reports whether the engine has been loaded.
func (t *Transcoder) Loaded() bool {
	return t.loaded.Load()
}

// Load boots the engine if it is not loaded yet. A failed load is returned
// and retried on the next call.
func (t *Transcoder) Load(ctx context.Context) error {
	if t.loaded.Load() {
		return nil
	}

	t.loadMu.Lock()
	defer t.loadMu.Unlock()
	if t.loaded.Load() {
		return nil
	}

	t.logger.Info("Loading FFmpeg...")
	if _, err := t.engine.Load(ctx, LoadConfig{Assets: t.assets}); err != nil {
		t.logger.Error("failed to load FFmpeg", "error", err)
		return fmt.Errorf("load ffmpeg: %w", err)
	}
	t.loaded.Store(true)
	t.logger.Info("FFmpeg loaded!")

	if t.onLoaded != nil {
		t.onLoaded()
	}
	return nil
}

// Run calls fn with exclusive access to the engine, loading it first if
// needed.
func (t *Transcoder) Run(ctx context.Context, fn func(Engine) error) error {
	return t.lock.Do(ctx, func() error {
		if err := t.Load(ctx); err != nil {
			return err
		}
		return fn(t.engine)
	})
}

// Terminate stops the engine. The next call loads it again.
func (t *Transcoder) Terminate(ctx context.Context) error {
	return t.lock.Do(ctx, func() error {
		t.loadMu.Lock()
		defer t.loadMu.Unlock()
		t.loaded.Store(false)
		return t.engine.Terminate()
	})
}

// ConvertSticker turns an image into a sticker. Animated input (APNG, GIF)
// becomes a GIF, anything else a PNG. The result is scaled to fit
// StickerSize unless the "No Resize" preference is on.
func (t *Transcoder) ConvertSticker(ctx context.Context, name string, input []byte) (*Sticker, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("convert %q: empty input", name)
	}

	noResize := false
	if t.prefs != nil {
		state, err := t.prefs.ResizeSwitchState(ctx)
		if err != nil {
			return nil, fmt.Errorf("read resize preference: %w", err)
		}
		noResize = state
	}

	animated := isAnimated(input)
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	if base == "" || base == "." || base == "/" {
		base = "sticker"
	}
	id := t.seq.Add(1)
	in := fmt.Sprintf("/in_%d%s", id, inputExt(input))
	outExt, contentType := ".png", "image/png"
	if animated {
		outExt, contentType = ".gif", "image/gif"
	}
	out := fmt.Sprintf("/out_%d%s", id, outExt)
	args := convertArgs(in, out, animated, noResize)

	var data []byte
	err := t.Run(ctx, func(e Engine) error {
		if err := e.WriteFile(ctx, in, input); err != nil {
			return fmt.Errorf("write input: %w", err)
		}
		defer func() {
			if err := e.DeleteFile(ctx, in); err != nil {
				t.logger.Warn("failed to delete input", "path", in, "error", err)
			}
		}()

		code, err := e.Exec(ctx, args, t.timeout)
		if err != nil {
			return err
		}
		if code != 0 {
			return fmt.Errorf("%w: exit code %d", ErrExecFailed, code)
		}

		data, err = e.ReadFile(ctx, out)
		if err != nil {
			return fmt.Errorf("read output: %w", err)
		}
		if err := e.DeleteFile(ctx, out); err != nil {
			t.logger.Warn("failed to delete output", "path", out, "error", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("convert %q: %w", name, err)
	}

	t.logger.Debug("sticker converted", "name", name, "animated", animated, "resized", !noResize, "bytes", len(data))
	return &Sticker{Name: base + outExt, ContentType: contentType, Data: data}, nil
}

func convertArgs(in, out string, animated, noResize bool) []string {
	var filters []string
	if !noResize {
		filters = append(filters, fmt.Sprintf(
			"scale=%d:%d:force_original_aspect_ratio=decrease", StickerSize, StickerSize))
	}
	if animated {
		filters = append(filters, "split[a][b];[a]palettegen[p];[b][p]paletteuse")
	}

	args := []string{"-y", "-i", in}
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}
	if animated {
		args = append(args, "-loop", "0")
	}
	return append(args, out)
}

var (
	pngSignature = []byte("\x89PNG\r\n\x1a\n")
	gifSignature = []byte("GIF8")
)

// isAnimated reports GIF input or a PNG carrying an acTL chunk before its
// first IDAT.
func isAnimated(data []byte) bool {
	if bytes.HasPrefix(data, gifSignature) {
		return true
	}
	if !bytes.HasPrefix(data, pngSignature) {
		return false
	}
	actl := bytes.Index(data, []byte("acTL"))
	if actl < 0 {
		return false
	}
	idat := bytes.Index(data, []byte("IDAT"))
	return idat < 0 || actl < idat
}

func inputExt(data []byte) string {
	switch {
	case bytes.HasPrefix(data, pngSignature):
		return ".png"
	case bytes.HasPrefix(data, gifSignature):
		return ".gif"
	case bytes.HasPrefix(data, []byte("RIFF")) && len(data) >= 12 && string(data[8:12]) == "WEBP":
		return ".webp"
	default:
		return ".bin"
	}
}
