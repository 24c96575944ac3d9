package transcoder

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/CreativeUnicorns/morestickers"
)

// RunFunc runs name with args inside dir and reports the exit status and the
// combined output. A process that ran and exited non-zero is not an error.
type RunFunc func(ctx context.Context, dir, name string, args ...string) (exitCode int, output []byte, err error)

// ExecEngine is an Engine backed by a native ffmpeg binary. Engine paths live
// in a private working directory; NODEFS mounts expose host directories under
// a mount point.
type ExecEngine struct {
	binary   string
	workDir  string
	hostFs   afero.Fs
	run      RunFunc
	lookPath func(string) (string, error)
	logger   morestickers.Logger

	mu         sync.Mutex
	loaded     bool
	terminated bool
	ownWorkDir bool
	resolved   string
	fs         afero.Fs
	mounts     map[string]string
}

// ExecOption configures an ExecEngine.
type ExecOption func(*ExecEngine)

// WithBinary sets the ffmpeg executable name or path.
func WithBinary(binary string) ExecOption {
	return func(e *ExecEngine) {
		e.binary = binary
	}
}

// WithWorkDir pins the engine's working directory instead of a temp dir.
func WithWorkDir(dir string) ExecOption {
	return func(e *ExecEngine) {
		e.workDir = dir
	}
}

// WithHostFs sets the host filesystem. Defaults to the OS filesystem.
func WithHostFs(fs afero.Fs) ExecOption {
	return func(e *ExecEngine) {
		e.hostFs = fs
	}
}

// WithRunner replaces process execution.
func WithRunner(run RunFunc) ExecOption {
	return func(e *ExecEngine) {
		e.run = run
	}
}

// WithLookPath replaces binary resolution.
func WithLookPath(lookPath func(string) (string, error)) ExecOption {
	return func(e *ExecEngine) {
		e.lookPath = lookPath
	}
}

// WithEngineLogger sets the logger receiving ffmpeg output.
func WithEngineLogger(logger morestickers.Logger) ExecOption {
	return func(e *ExecEngine) {
		e.logger = logger
	}
}

// NewExecEngine returns an unloaded engine.
func NewExecEngine(opts ...ExecOption) *ExecEngine {
	e := &ExecEngine{
		binary:   "ffmpeg",
		hostFs:   afero.NewOsFs(),
		run:      runCommand,
		lookPath: exec.LookPath,
		mounts:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = morestickers.NewDefaultLogger()
	}
	return e
}

// Load resolves the binary and prepares the working directory.
func (e *ExecEngine) Load(_ context.Context, cfg LoadConfig) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded {
		return false, nil
	}

	resolved, err := e.lookPath(e.binary)
	if err != nil {
		return false, fmt.Errorf("locate %s: %w", e.binary, err)
	}

	dir := e.workDir
	own := false
	if dir == "" {
		dir, err = afero.TempDir(e.hostFs, "", "morestickers-ffmpeg-")
		if err != nil {
			return false, fmt.Errorf("create work dir: %w", err)
		}
		own = true
	} else if err := e.hostFs.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create work dir: %w", err)
	}

	e.resolved = resolved
	e.workDir = dir
	e.ownWorkDir = own
	e.fs = afero.NewBasePathFs(e.hostFs, dir)
	e.loaded = true
	e.terminated = false
	e.logger.Debug("ffmpeg engine loaded", "binary", resolved, "workDir", dir, "coreURL", cfg.Assets.CoreURL)
	return true, nil
}

// Exec runs ffmpeg in the working directory. Absolute arguments are mapped
// onto the engine filesystem. When timeout elapses the exit code is 1.
func (e *ExecEngine) Exec(ctx context.Context, args []string, timeout time.Duration) (int, error) {
	e.mu.Lock()
	if !e.loaded {
		err := e.notLoadedLocked()
		e.mu.Unlock()
		return -1, err
	}
	binary, dir := e.resolved, e.workDir
	mapped := make([]string, len(args))
	for i, arg := range args {
		mapped[i] = e.hostPathLocked(arg)
	}
	e.mu.Unlock()

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	code, output, err := e.run(runCtx, dir, binary, mapped...)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		e.logger.Debug("ffmpeg", "type", MessageLog, "message", scanner.Text())
	}

	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		e.logger.Warn("ffmpeg exec timed out", "timeout", timeout)
		return 1, nil
	}
	if err != nil {
		return -1, fmt.Errorf("run %s: %w", binary, err)
	}
	return code, nil
}

func (e *ExecEngine) WriteFile(_ context.Context, p string, data []byte) error {
	fs, rel, err := e.resolve(p)
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, rel, data, 0o644)
}

func (e *ExecEngine) ReadFile(_ context.Context, p string) ([]byte, error) {
	fs, rel, err := e.resolve(p)
	if err != nil {
		return nil, err
	}
	return afero.ReadFile(fs, rel)
}

func (e *ExecEngine) DeleteFile(_ context.Context, p string) error {
	fs, rel, err := e.resolve(p)
	if err != nil {
		return err
	}
	return fs.Remove(rel)
}

// Rename moves a file, copying when source and destination are on different
// mounts.
func (e *ExecEngine) Rename(_ context.Context, oldPath, newPath string) error {
	oldFs, oldRel, err := e.resolve(oldPath)
	if err != nil {
		return err
	}
	newFs, newRel, err := e.resolve(newPath)
	if err != nil {
		return err
	}
	if oldFs == newFs {
		return oldFs.Rename(oldRel, newRel)
	}
	data, err := afero.ReadFile(oldFs, oldRel)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(newFs, newRel, data, 0o644); err != nil {
		return err
	}
	return oldFs.Remove(oldRel)
}

func (e *ExecEngine) CreateDir(_ context.Context, p string) error {
	fs, rel, err := e.resolve(p)
	if err != nil {
		return err
	}
	return fs.Mkdir(rel, 0o755)
}

func (e *ExecEngine) ListDir(_ context.Context, p string) ([]Node, error) {
	fs, rel, err := e.resolve(p)
	if err != nil {
		return nil, err
	}
	infos, err := afero.ReadDir(fs, rel)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(infos))
	for _, info := range infos {
		nodes = append(nodes, Node{Name: info.Name(), IsDir: info.IsDir()})
	}
	return nodes, nil
}

func (e *ExecEngine) DeleteDir(_ context.Context, p string) error {
	fs, rel, err := e.resolve(p)
	if err != nil {
		return err
	}
	return fs.Remove(rel)
}

// Mount exposes the host directory opts.Root at mountPoint. Only NODEFS is
// supported.
func (e *ExecEngine) Mount(_ context.Context, fsType FSType, opts MountOptions, mountPoint string) error {
	if fsType != FSNode {
		return fmt.Errorf("%w: %s", ErrUnsupportedFS, fsType)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return e.notLoadedLocked()
	}

	info, err := e.hostFs.Stat(opts.Root)
	if err != nil {
		return fmt.Errorf("mount %s: %w", mountPoint, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("mount %s: %s is not a directory", mountPoint, opts.Root)
	}

	mp := cleanPath(mountPoint)
	if _, ok := e.mounts[mp]; ok {
		return fmt.Errorf("mount %s: already mounted", mp)
	}
	e.mounts[mp] = opts.Root
	return nil
}

func (e *ExecEngine) Unmount(_ context.Context, mountPoint string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return e.notLoadedLocked()
	}

	mp := cleanPath(mountPoint)
	if _, ok := e.mounts[mp]; !ok {
		return fmt.Errorf("%w: %s", ErrNotMounted, mp)
	}
	delete(e.mounts, mp)
	return nil
}

// Terminate unloads the engine and removes a temporary working directory.
func (e *ExecEngine) Terminate() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return nil
	}

	e.loaded = false
	e.terminated = true
	e.mounts = make(map[string]string)
	if e.ownWorkDir {
		dir := e.workDir
		e.workDir = ""
		e.ownWorkDir = false
		return e.hostFs.RemoveAll(dir)
	}
	return nil
}

// notLoadedLocked distinguishes a terminated engine from one never loaded.
func (e *ExecEngine) notLoadedLocked() error {
	if e.terminated {
		return ErrTerminated
	}
	return ErrNotLoaded
}

func (e *ExecEngine) resolve(p string) (afero.Fs, string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return nil, "", e.notLoadedLocked()
	}

	clean := cleanPath(p)
	if mp, root, ok := e.mountForLocked(clean); ok {
		rel := strings.TrimPrefix(clean, mp)
		if rel == "" {
			rel = "/"
		}
		return afero.NewBasePathFs(e.hostFs, root), rel, nil
	}
	return e.fs, clean, nil
}

func (e *ExecEngine) hostPathLocked(arg string) string {
	if !strings.HasPrefix(arg, "/") {
		return arg
	}
	clean := cleanPath(arg)
	if mp, root, ok := e.mountForLocked(clean); ok {
		return filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(clean, mp)))
	}
	return filepath.Join(e.workDir, filepath.FromSlash(clean))
}

func (e *ExecEngine) mountForLocked(clean string) (string, string, bool) {
	best := ""
	for mp := range e.mounts {
		if (clean == mp || strings.HasPrefix(clean, mp+"/")) && len(mp) > len(best) {
			best = mp
		}
	}
	if best == "" {
		return "", "", false
	}
	return best, e.mounts[best], true
}

func cleanPath(p string) string {
	return path.Clean("/" + p)
}

func runCommand(ctx context.Context, dir, name string, args ...string) (int, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	output, err := cmd.CombinedOutput()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), output, nil
	}
	if err != nil {
		return -1, output, err
	}
	return 0, output, nil
}
