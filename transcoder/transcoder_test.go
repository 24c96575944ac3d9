package transcoder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CreativeUnicorns/morestickers"
	"github.com/CreativeUnicorns/morestickers/storage"
)

var (
	staticPNG   = append(append([]byte{}, pngSignature...), []byte("\x00\x00\x00\x0dIHDR....IDAT")...)
	animatedPNG = append(append([]byte{}, pngSignature...), []byte("\x00\x00\x00\x0dIHDR....acTL....IDAT")...)
	gifData     = []byte("GIF89a....")
)

func quietLogger() morestickers.Logger {
	return morestickers.NewLogger(io.Discard)
}

func TestTranscoder_LoadsLazilyOnce(t *testing.T) {
	var logs bytes.Buffer
	engine := newFakeEngine()
	loadedCalls := 0
	tc := New(engine, WithLogger(morestickers.NewLogger(&logs)), WithOnLoaded(func() { loadedCalls++ }))

	assert.False(t, tc.Loaded())
	assert.Equal(t, 0, engine.loadCalls)

	ctx := context.Background()
	_, err := tc.ConvertSticker(ctx, "a.png", staticPNG)
	require.NoError(t, err)
	_, err = tc.ConvertSticker(ctx, "b.png", staticPNG)
	require.NoError(t, err)

	assert.True(t, tc.Loaded())
	assert.Equal(t, 1, engine.loadCalls)
	assert.Equal(t, 1, loadedCalls)

	out := logs.String()
	assert.Equal(t, 1, strings.Count(out, "Loading FFmpeg..."))
	assert.Equal(t, 1, strings.Count(out, "FFmpeg loaded!"))
	assert.Less(t, strings.Index(out, "Loading FFmpeg..."), strings.Index(out, "FFmpeg loaded!"))
}

func TestTranscoder_LoadFailureRetries(t *testing.T) {
	engine := newFakeEngine()
	boom := errors.New("boom")
	engine.loadErr = []error{boom}
	tc := New(engine, WithLogger(quietLogger()))

	_, err := tc.ConvertSticker(context.Background(), "a.png", staticPNG)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, tc.Loaded())

	_, err = tc.ConvertSticker(context.Background(), "a.png", staticPNG)
	require.NoError(t, err)
	assert.True(t, tc.Loaded())
	assert.Equal(t, 2, engine.loadCalls)
}

func TestTranscoder_ResizesByDefault(t *testing.T) {
	engine := newFakeEngine()
	tc := New(engine, WithLogger(quietLogger()))

	sticker, err := tc.ConvertSticker(context.Background(), "cat.png", staticPNG)
	require.NoError(t, err)

	assert.Equal(t, "cat.png", sticker.Name)
	assert.Equal(t, "image/png", sticker.ContentType)
	assert.Equal(t, []byte("converted"), sticker.Data)

	args := engine.lastArgs()
	require.Contains(t, args, "-vf")
	assert.Contains(t, strings.Join(args, " "), "scale=160:160:force_original_aspect_ratio=decrease")
}

func TestTranscoder_NoResizePreference(t *testing.T) {
	engine := newFakeEngine()
	tc := New(engine, WithLogger(quietLogger()), WithResizePreference(fakeResize{state: true}))

	_, err := tc.ConvertSticker(context.Background(), "cat.png", staticPNG)
	require.NoError(t, err)
	assert.NotContains(t, engine.lastArgs(), "-vf")
}

func TestTranscoder_ResizePreferenceFromStore(t *testing.T) {
	ctx := context.Background()
	store := morestickers.New(
		morestickers.WithStorage(storage.NewMemoryStorage()),
		morestickers.WithLogger(quietLogger()),
	)
	engine := newFakeEngine()
	tc := New(engine, WithLogger(quietLogger()), WithResizePreference(store))

	_, err := tc.ConvertSticker(ctx, "cat.png", staticPNG)
	require.NoError(t, err)
	assert.Contains(t, engine.lastArgs(), "-vf")

	require.NoError(t, store.SetResizeSwitchState(ctx, true))
	_, err = tc.ConvertSticker(ctx, "cat.png", staticPNG)
	require.NoError(t, err)
	assert.NotContains(t, engine.lastArgs(), "-vf")
}

func TestTranscoder_ResizePreferenceError(t *testing.T) {
	engine := newFakeEngine()
	prefErr := errors.New("store down")
	tc := New(engine, WithLogger(quietLogger()), WithResizePreference(fakeResize{err: prefErr}))

	_, err := tc.ConvertSticker(context.Background(), "cat.png", staticPNG)
	assert.ErrorIs(t, err, prefErr)
	assert.Equal(t, 0, engine.loadCalls)
}

func TestTranscoder_AnimatedBecomesGIF(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"apng", animatedPNG},
		{"gif", gifData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newFakeEngine()
			tc := New(engine, WithLogger(quietLogger()))

			sticker, err := tc.ConvertSticker(context.Background(), "packs/wave."+tt.name, tt.input)
			require.NoError(t, err)
			assert.Equal(t, "wave.gif", sticker.Name)
			assert.Equal(t, "image/gif", sticker.ContentType)

			args := engine.lastArgs()
			assert.True(t, strings.HasSuffix(args[len(args)-1], ".gif"))
			assert.Contains(t, strings.Join(args, " "), "palettegen")
		})
	}
}

func TestTranscoder_CleansUpFiles(t *testing.T) {
	engine := newFakeEngine()
	tc := New(engine, WithLogger(quietLogger()))

	_, err := tc.ConvertSticker(context.Background(), "cat.png", staticPNG)
	require.NoError(t, err)
	assert.Empty(t, engine.files)
}

func TestTranscoder_ExecFailure(t *testing.T) {
	engine := newFakeEngine()
	engine.exitCode = 1
	tc := New(engine, WithLogger(quietLogger()))

	_, err := tc.ConvertSticker(context.Background(), "cat.png", staticPNG)
	assert.ErrorIs(t, err, ErrExecFailed)
	assert.Empty(t, engine.files)
}

func TestTranscoder_EmptyInput(t *testing.T) {
	engine := newFakeEngine()
	tc := New(engine, WithLogger(quietLogger()))

	_, err := tc.ConvertSticker(context.Background(), "cat.png", nil)
	assert.Error(t, err)
	assert.Equal(t, 0, engine.loadCalls)
}

func TestTranscoder_SerializesEngineAccess(t *testing.T) {
	engine := newFakeEngine()
	engine.execDelay = 2 * time.Millisecond
	tc := New(engine, WithLogger(quietLogger()))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tc.ConvertSticker(context.Background(), "cat.png", staticPNG)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, engine.maxActive)
	assert.Equal(t, 1, engine.loadCalls)
	assert.Len(t, engine.execArgs, 10)
}

func TestTranscoder_TerminateReloads(t *testing.T) {
	engine := newFakeEngine()
	tc := New(engine, WithLogger(quietLogger()))
	ctx := context.Background()

	require.NoError(t, tc.Load(ctx))
	require.NoError(t, tc.Terminate(ctx))
	assert.False(t, tc.Loaded())

	require.NoError(t, tc.Run(ctx, func(e Engine) error {
		return e.WriteFile(ctx, "/x", []byte("x"))
	}))
	assert.Equal(t, 2, engine.loadCalls)
}

func TestTranscoder_RunAfterQueuedTerminateReloads(t *testing.T) {
	engine := newFakeEngine()
	tc := New(engine, WithLogger(quietLogger()))
	ctx := context.Background()
	require.NoError(t, tc.Load(ctx))

	release := <-tc.lock.Lock()

	terminated := make(chan error, 1)
	go func() { terminated <- tc.Terminate(ctx) }()
	time.Sleep(20 * time.Millisecond)

	ran := make(chan error, 1)
	go func() {
		ran <- tc.Run(ctx, func(e Engine) error {
			return e.WriteFile(ctx, "/x", []byte("x"))
		})
	}()
	time.Sleep(20 * time.Millisecond)

	release()
	require.NoError(t, <-terminated)
	require.NoError(t, <-ran)
	assert.True(t, tc.Loaded())
	assert.Equal(t, 2, engine.loadCalls)
}

func TestIsAnimated(t *testing.T) {
	assert.False(t, isAnimated(staticPNG))
	assert.True(t, isAnimated(animatedPNG))
	assert.True(t, isAnimated(gifData))
	assert.False(t, isAnimated([]byte("RIFF....WEBP")))

	// acTL after the first IDAT is image data, not an animation header.
	late := append(append([]byte{}, pngSignature...), []byte("IDAT....acTL")...)
	assert.False(t, isAnimated(late))
}

func TestInputExt(t *testing.T) {
	assert.Equal(t, ".png", inputExt(staticPNG))
	assert.Equal(t, ".gif", inputExt(gifData))
	assert.Equal(t, ".webp", inputExt([]byte("RIFF\x00\x00\x00\x00WEBPVP8 ")))
	assert.Equal(t, ".bin", inputExt([]byte("??")))
}
