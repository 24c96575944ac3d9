package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const (
	// CoreVersion is the ffmpeg core release the asset URLs point at.
	CoreVersion = "0.12.6"
	// DefaultBaseURL is the CDN directory holding the core artifacts.
	DefaultBaseURL = "https://unpkg.com/@ffmpeg/core@" + CoreVersion + "/dist/esm"
)

var wasmMagic = []byte{0x00, 'a', 's', 'm'}

// Assets are the three artifacts an ffmpeg core needs to boot.
type Assets struct {
	CoreURL   string `json:"coreURL"`
	WASMURL   string `json:"wasmURL"`
	WorkerURL string `json:"workerURL"`
}

// AssetsFor derives the asset URLs from a CDN base path.
func AssetsFor(baseURL string) Assets {
	base := strings.TrimRight(baseURL, "/")
	return Assets{
		CoreURL:   base + "/ffmpeg-core.js",
		WASMURL:   base + "/ffmpeg-core.wasm",
		WorkerURL: base + "/ffmpeg-core.worker.js",
	}
}

// DefaultAssets returns the assets under DefaultBaseURL.
func DefaultAssets() Assets {
	return AssetsFor(DefaultBaseURL)
}

// AssetFetcher downloads core artifacts into a filesystem so they ship with
// the application instead of being inlined.
type AssetFetcher struct {
	client *http.Client
	fs     afero.Fs
}

// NewAssetFetcher returns a fetcher writing into fs. A nil client uses a 2
// minute timeout.
func NewAssetFetcher(client *http.Client, fs afero.Fs) *AssetFetcher {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &AssetFetcher{client: client, fs: fs}
}

// Fetch downloads all three assets into dir and returns their local paths in
// the same shape. The WASM binary is checked for the wasm magic number.
func (f *AssetFetcher) Fetch(ctx context.Context, assets Assets, dir string) (Assets, error) {
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return Assets{}, fmt.Errorf("create asset dir: %w", err)
	}

	var local Assets
	targets := []struct {
		url  string
		dst  *string
		wasm bool
	}{
		{assets.CoreURL, &local.CoreURL, false},
		{assets.WASMURL, &local.WASMURL, true},
		{assets.WorkerURL, &local.WorkerURL, false},
	}

	for _, t := range targets {
		data, err := f.download(ctx, t.url)
		if err != nil {
			return Assets{}, err
		}
		if t.wasm && !bytes.HasPrefix(data, wasmMagic) {
			return Assets{}, fmt.Errorf("%w: %s is not a wasm binary", ErrBadAsset, t.url)
		}
		dst := path.Join(dir, path.Base(t.url))
		if err := afero.WriteFile(f.fs, dst, data, 0o644); err != nil {
			return Assets{}, fmt.Errorf("write %s: %w", dst, err)
		}
		*t.dst = dst
	}
	return local, nil
}

func (f *AssetFetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrBadAsset, url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return data, nil
}
