package transcoder

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeEngine records calls and keeps files in a map. exec produces the output
// file named by the last argument.
type fakeEngine struct {
	mu        sync.Mutex
	loaded    bool
	loadCalls int
	loadErr   []error
	files     map[string][]byte
	execArgs  [][]string
	exitCode  int
	output    []byte
	active    int
	maxActive int
	execDelay time.Duration
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{files: make(map[string][]byte), output: []byte("converted")}
}

func (f *fakeEngine) Load(context.Context, LoadConfig) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCalls++
	if len(f.loadErr) > 0 {
		err := f.loadErr[0]
		f.loadErr = f.loadErr[1:]
		if err != nil {
			return false, err
		}
	}
	first := !f.loaded
	f.loaded = true
	return first, nil
}

func (f *fakeEngine) Exec(_ context.Context, args []string, _ time.Duration) (int, error) {
	f.mu.Lock()
	if !f.loaded {
		f.mu.Unlock()
		return -1, ErrNotLoaded
	}
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.execArgs = append(f.execArgs, args)
	delay := f.execDelay
	f.mu.Unlock()

	time.Sleep(delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.active--
	if f.exitCode == 0 && len(args) > 0 {
		f.files[args[len(args)-1]] = f.output
	}
	return f.exitCode, nil
}

func (f *fakeEngine) WriteFile(_ context.Context, path string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.loaded {
		return ErrNotLoaded
	}
	f.files[path] = data
	return nil
}

func (f *fakeEngine) ReadFile(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.loaded {
		return nil, ErrNotLoaded
	}
	data, ok := f.files[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return data, nil
}

func (f *fakeEngine) DeleteFile(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, path)
	return nil
}

func (f *fakeEngine) Rename(context.Context, string, string) error { return nil }
func (f *fakeEngine) CreateDir(context.Context, string) error      { return nil }
func (f *fakeEngine) ListDir(context.Context, string) ([]Node, error) {
	return nil, nil
}
func (f *fakeEngine) DeleteDir(context.Context, string) error { return nil }
func (f *fakeEngine) Mount(context.Context, FSType, MountOptions, string) error {
	return nil
}
func (f *fakeEngine) Unmount(context.Context, string) error { return nil }

func (f *fakeEngine) Terminate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = false
	return nil
}

func (f *fakeEngine) lastArgs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.execArgs) == 0 {
		return nil
	}
	return f.execArgs[len(f.execArgs)-1]
}

type fakeResize struct {
	state bool
	err   error
}

func (f fakeResize) ResizeSwitchState(context.Context) (bool, error) {
	return f.state, f.err
}
