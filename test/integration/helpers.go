package integration

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danieljhkim/sketchpm/internal/clock"
	"github.com/danieljhkim/sketchpm/internal/config"
	"github.com/danieljhkim/sketchpm/internal/engine"
	"github.com/danieljhkim/sketchpm/internal/pkgmgr"
)

const testDataDir = "/sketch/data"

// testFS is a filesystem implementation that tracks files in memory for testing
type testFS struct {
	mu       sync.Mutex
	files    map[string][]byte
	dirs     map[string]bool
	creates  int
	mkdirErr error
}

func newTestFS() *testFS {
	return &testFS{
		files: make(map[string][]byte),
		dirs:  map[string]bool{"/": true},
	}
}

func (fs *testFS) Exists(path string) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, hasFile := fs.files[path]
	return hasFile || fs.dirs[path], nil
}

func (fs *testFS) MkdirAll(path string, perm os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.mkdirErr != nil {
		return fs.mkdirErr
	}
	fs.mkdirAllLocked(path)
	return nil
}

func (fs *testFS) mkdirAllLocked(path string) {
	for p := path; !fs.dirs[p]; p = filepath.Dir(p) {
		fs.dirs[p] = true
	}
}

func (fs *testFS) AtomicWrite(path string, data []byte, perm os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.mkdirAllLocked(filepath.Dir(path))
	fs.files[path] = append([]byte(nil), data...)
	return nil
}

func (fs *testFS) CreateExclusive(path string, data []byte, perm os.FileMode) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if !fs.dirs[filepath.Dir(path)] {
		return false, &os.PathError{Op: "link", Path: path, Err: os.ErrNotExist}
	}
	if _, ok := fs.files[path]; ok {
		return false, nil
	}
	fs.files[path] = append([]byte(nil), data...)
	fs.creates++
	return true, nil
}

func (fs *testFS) ReadFile(path string) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if content, ok := fs.files[path]; ok {
		return append([]byte(nil), content...), nil
	}
	return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
}

func (fs *testFS) file(path string) (string, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	content, ok := fs.files[path]
	return string(content), ok
}

func (fs *testFS) createCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.creates
}

// fakeNPM mimics npm recording dependencies in package.json, in install order.
type fakeNPM struct {
	fs    *testFS
	mu    sync.Mutex
	order []string
	specs map[string]string
}

func newFakeNPM(fs *testFS) *fakeNPM {
	return &fakeNPM{fs: fs, specs: make(map[string]string)}
}

// record adds name@spec and rewrites the manifest.
func (n *fakeNPM) record(dir, pkg string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	name, spec := pkg, "^1.0.0"
	if i := strings.LastIndex(pkg, "@"); i > 0 {
		name, spec = pkg[:i], pkg[i+1:]
	}
	if _, ok := n.specs[name]; !ok {
		n.order = append(n.order, name)
	}
	n.specs[name] = spec

	deps := make([]string, 0, len(n.order))
	for _, name := range n.order {
		deps = append(deps, fmt.Sprintf("%q:%q", name, n.specs[name]))
	}
	doc := fmt.Sprintf(`{"name":"sketchjs-playground","version":"1.0.0","private":true,"dependencies":{%s}}`,
		strings.Join(deps, ","))
	_ = n.fs.AtomicWrite(filepath.Join(dir, config.ManifestFileName), []byte(doc), 0644)
}

// recordingRunner installs through fakeNPM unless a failure is scripted.
type recordingRunner struct {
	*pkgmgr.FakeRunner
	npm *fakeNPM
}

func (r *recordingRunner) Run(dir, name string, args ...string) (*pkgmgr.Outcome, error) {
	outcome, err := r.FakeRunner.Run(dir, name, args...)
	if err != nil || !outcome.Success() {
		return outcome, err
	}
	if len(args) == 2 && args[0] == "install" {
		r.npm.record(dir, args[1])
	}
	return outcome, nil
}

func setupTestEngine(t *testing.T) (*engine.Engine, *testFS, *recordingRunner) {
	t.Helper()

	fs := newTestFS()
	runner := &recordingRunner{FakeRunner: pkgmgr.NewFakeRunner(), npm: newFakeNPM(fs)}
	clk := clock.NewSteppingFakeClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), time.Second)
	dirs := config.NewFakeAppDirs(testDataDir)

	eng := engine.New(dirs, fs, pkgmgr.New("npm", runner), clk, nil)
	return eng, fs, runner
}

// sortedDirs lists the directories the test filesystem knows about.
func (fs *testFS) sortedDirs() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]string, 0, len(fs.dirs))
	for d := range fs.dirs {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
