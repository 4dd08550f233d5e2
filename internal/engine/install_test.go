package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest/observer"

	"github.com/danieljhkim/sketchpm/internal/clock"
	"github.com/danieljhkim/sketchpm/internal/config"
	"github.com/danieljhkim/sketchpm/internal/fsops"
	"github.com/danieljhkim/sketchpm/internal/logging/logtest"
	"github.com/danieljhkim/sketchpm/internal/manifest"
	"github.com/danieljhkim/sketchpm/internal/metrics"
	"github.com/danieljhkim/sketchpm/internal/pkgmgr"
)

const bootstrapDoc = `{"name":"sketchjs-playground","version":"1.0.0","private":true}`

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	eng     *Engine
	dirs    *config.FakeAppDirs
	fs      *fsops.FaultyFS
	runner  *pkgmgr.FakeRunner
	metrics *metrics.Collector
	logs    *observer.ObservedLogs
	paths   *config.Paths
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	// The data directory itself does not exist yet, like a first launch.
	base := filepath.Join(t.TempDir(), "com.sketchjs.app")
	dirs := config.NewFakeAppDirs(base)
	fs := fsops.NewFaultyFS(fsops.NewRealFS())
	runner := pkgmgr.NewFakeRunner()
	logger, logs := logtest.NewObserved()
	collector := metrics.NewCollector()

	eng := New(dirs, fs, pkgmgr.New("npm", runner), clock.NewSteppingFakeClock(testStart, 2*time.Second), logger)
	eng.SetMetrics(collector)

	var mu sync.Mutex
	n := 0
	eng.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}

	return &testEnv{
		eng:     eng,
		dirs:    dirs,
		fs:      fs,
		runner:  runner,
		metrics: collector,
		logs:    logs,
		paths:   config.NewPaths(base),
	}
}

func TestInstallPackage_BootstrapsWorkspace(t *testing.T) {
	env := newTestEnv(t)

	// The manifest must already be on disk when the package manager starts.
	var manifestAtLaunch []byte
	env.runner.OnRun(func(dir string) {
		manifestAtLaunch, _ = os.ReadFile(filepath.Join(dir, "package.json"))
	})

	result, err := env.eng.InstallPackage(context.Background(), InstallRequest{PackageName: "lodash"})
	if err != nil {
		t.Fatalf("InstallPackage() error = %v", err)
	}
	if !result.Success || result.Message != "Successfully installed lodash" {
		t.Errorf("result = %+v", result)
	}
	if string(manifestAtLaunch) != bootstrapDoc {
		t.Errorf("manifest at launch = %q, want %q", manifestAtLaunch, bootstrapDoc)
	}

	info, err := os.Stat(env.paths.Playground)
	if err != nil || !info.IsDir() {
		t.Fatalf("playground not created: %v", err)
	}

	calls := env.runner.Calls()
	if len(calls) != 1 {
		t.Fatalf("runner called %d times, want 1", len(calls))
	}
	call := calls[0]
	if call.Dir != env.paths.Playground || call.Name != "npm" {
		t.Errorf("call = %+v", call)
	}
	if len(call.Args) != 2 || call.Args[0] != "install" || call.Args[1] != "lodash" {
		t.Errorf("args = %v, want [install lodash]", call.Args)
	}
}

func TestInstallPackage_ExistingWorkspaceUntouched(t *testing.T) {
	env := newTestEnv(t)

	custom := `{"name":"mine","dependencies":{"react":"^18.0.0"}}`
	if err := os.MkdirAll(env.paths.Playground, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(env.paths.Manifest, []byte(custom), 0644); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if _, err := env.eng.InstallPackage(context.Background(), InstallRequest{PackageName: "lodash"}); err != nil {
			t.Fatalf("InstallPackage() #%d error = %v", i, err)
		}
	}

	data, _ := os.ReadFile(env.paths.Manifest)
	if string(data) != custom {
		t.Errorf("manifest rewritten: %q", data)
	}
	assertSingleEntry(t, env.paths.Playground, "package.json")
}

func TestInstallPackage_ExistingWorkspaceWithoutManifest(t *testing.T) {
	env := newTestEnv(t)
	if err := os.MkdirAll(env.paths.Playground, 0755); err != nil {
		t.Fatal(err)
	}

	if _, err := env.eng.InstallPackage(context.Background(), InstallRequest{PackageName: "lodash"}); err != nil {
		t.Fatalf("InstallPackage() error = %v", err)
	}

	// Bootstrap only happens for an absent workspace; npm creates the manifest itself.
	if _, err := os.Stat(env.paths.Manifest); !os.IsNotExist(err) {
		t.Errorf("package.json should not be written into an existing workspace, stat err = %v", err)
	}
	if len(env.runner.Calls()) != 1 {
		t.Errorf("runner should still be invoked")
	}
}

func TestInstallPackage_NonZeroExit(t *testing.T) {
	env := newTestEnv(t)
	env.runner.SetOutcome(1, "404 not found")

	result, err := env.eng.InstallPackage(context.Background(), InstallRequest{PackageName: "nonexistent-pkg-xyz"})
	if err != nil {
		t.Fatalf("non-zero exit must not be an error, got %v", err)
	}
	if result.Success {
		t.Error("Success should be false")
	}
	want := "Failed to install nonexistent-pkg-xyz: 404 not found"
	if result.Message != want {
		t.Errorf("Message = %q, want %q", result.Message, want)
	}
	if got := env.logs.FilterMessage("package install failed").Len(); got != 1 {
		t.Errorf("expected one warning, got %d", got)
	}
}

func TestInstallPackage_EmptyStderr(t *testing.T) {
	env := newTestEnv(t)
	env.runner.SetOutcome(2, "")

	result, err := env.eng.InstallPackage(context.Background(), InstallRequest{PackageName: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Message != "Failed to install x: " {
		t.Errorf("Message = %q", result.Message)
	}
}

func TestInstallPackage_LaunchFailure(t *testing.T) {
	env := newTestEnv(t)
	env.runner.SetError(exec.ErrNotFound)

	result, err := env.eng.InstallPackage(context.Background(), InstallRequest{PackageName: "lodash"})
	if err == nil {
		t.Fatalf("expected error, got result %+v", result)
	}
	if !errors.Is(err, ErrLaunch) || !errors.Is(err, exec.ErrNotFound) {
		t.Errorf("error %v should match ErrLaunch and exec.ErrNotFound", err)
	}
	if !strings.HasPrefix(err.Error(), "failed to execute npm install: ") {
		t.Errorf("error = %q", err)
	}

	// Bootstrap happened before the launch was attempted.
	if data, _ := os.ReadFile(env.paths.Manifest); string(data) != bootstrapDoc {
		t.Errorf("manifest = %q", data)
	}
	// Launch failures are not install attempts.
	if _, statErr := os.Stat(env.paths.History); !os.IsNotExist(statErr) {
		t.Errorf("history should not be written on launch failure")
	}
}

func TestInstallPackage_InfrastructureErrors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name     string
		setup    func(env *testEnv)
		kind     error
		contains string
	}{
		{
			name:     "data directory unavailable",
			setup:    func(env *testEnv) { env.dirs.SetError(boom) },
			kind:     ErrConfig,
			contains: "failed to get app data directory: boom",
		},
		{
			name:     "directory creation fails",
			setup:    func(env *testEnv) { env.fs.MkdirErr = boom },
			kind:     ErrBootstrap,
			contains: "failed to create directory: boom",
		},
		{
			name:     "manifest creation fails",
			setup:    func(env *testEnv) { env.fs.CreateErr = boom },
			kind:     ErrBootstrap,
			contains: "failed to create package.json: boom",
		},
		{
			name: "manifest unreadable",
			setup: func(env *testEnv) {
				mustWriteManifest(t, env, `{}`)
				env.fs.ReadErr = boom
			},
			kind:     ErrManifest,
			contains: "failed to read package.json: boom",
		},
		{
			name:     "manifest malformed",
			setup:    func(env *testEnv) { mustWriteManifest(t, env, `{not json`) },
			kind:     ErrManifest,
			contains: "failed to parse package.json",
		},
		{
			name:     "manifest with comment",
			setup:    func(env *testEnv) { mustWriteManifest(t, env, "{\n// pinned\n\"dependencies\":{}}") },
			kind:     ErrManifest,
			contains: "failed to parse package.json: invalid JSON",
		},
		{
			name:     "manifest not UTF-8",
			setup:    func(env *testEnv) { mustWriteManifest(t, env, "{\"dependencies\":{\"a\xff\":\"1\"}}") },
			kind:     ErrManifest,
			contains: "failed to parse package.json: invalid JSON: not valid UTF-8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.setup(env)

			result, err := env.eng.InstallPackage(context.Background(), InstallRequest{PackageName: "lodash"})
			if err == nil {
				t.Fatalf("expected error, got %+v", result)
			}
			if !errors.Is(err, tt.kind) {
				t.Errorf("error %v does not match %v", err, tt.kind)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not contain %q", err, tt.contains)
			}
			if len(env.runner.Calls()) != 0 {
				t.Error("package manager must not run after an infrastructure error")
			}
			if got := testutil.ToFloat64(env.metrics.Installs.WithLabelValues(metrics.OutcomeError)); got != 1 {
				t.Errorf("error outcome count = %v, want 1", got)
			}
		})
	}
}

func TestInstallPackage_RecordsHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.eng.InstallPackage(ctx, InstallRequest{PackageName: "lodash"}); err != nil {
		t.Fatal(err)
	}
	env.runner.SetOutcome(1, "E404")
	if _, err := env.eng.InstallPackage(ctx, InstallRequest{PackageName: "nope"}); err != nil {
		t.Fatal(err)
	}

	entries, err := env.eng.History(ctx, 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	newest, oldest := entries[0], entries[1]
	if newest.Package != "nope" || newest.Success || newest.Message != "Failed to install nope: E404" {
		t.Errorf("newest = %+v", newest)
	}
	if oldest.Package != "lodash" || !oldest.Success || oldest.ID != "id-1" {
		t.Errorf("oldest = %+v", oldest)
	}
	if !oldest.StartedAt.Equal(testStart) {
		t.Errorf("StartedAt = %v, want %v", oldest.StartedAt, testStart)
	}
	if oldest.Duration != 2*time.Second {
		t.Errorf("Duration = %v, want 2s", oldest.Duration)
	}

	limited, err := env.eng.History(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].Package != "nope" {
		t.Errorf("History(1) = %+v", limited)
	}
}

func TestInstallPackage_HistoryFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.fs.WriteErr = errors.New("disk full")

	result, err := env.eng.InstallPackage(context.Background(), InstallRequest{PackageName: "lodash"})
	if err != nil {
		t.Fatalf("InstallPackage() error = %v", err)
	}
	if !result.Success {
		t.Errorf("result = %+v", result)
	}
	if got := env.logs.FilterMessage("failed to record install history").Len(); got != 1 {
		t.Errorf("expected a history warning, got %d", got)
	}
}

func TestInstallPackage_Metrics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.eng.InstallPackage(ctx, InstallRequest{PackageName: "a"}); err != nil {
		t.Fatal(err)
	}
	env.runner.SetOutcome(1, "nope")
	if _, err := env.eng.InstallPackage(ctx, InstallRequest{PackageName: "b"}); err != nil {
		t.Fatal(err)
	}

	if got := testutil.ToFloat64(env.metrics.Installs.WithLabelValues(metrics.OutcomeSuccess)); got != 1 {
		t.Errorf("success count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(env.metrics.Installs.WithLabelValues(metrics.OutcomeFailure)); got != 1 {
		t.Errorf("failure count = %v, want 1", got)
	}
}

func TestInstallPackage_ConcurrentFirstUse(t *testing.T) {
	env := newTestEnv(t)

	const installs = 8
	var wg sync.WaitGroup
	errs := make(chan error, installs)
	for i := 0; i < installs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "pkg-" + string(rune('a'+i))
			if _, err := env.eng.InstallPackage(context.Background(), InstallRequest{PackageName: name}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent install failed: %v", err)
	}
	if len(env.runner.Calls()) != installs {
		t.Errorf("runner called %d times, want %d", len(env.runner.Calls()), installs)
	}
	if data, _ := os.ReadFile(env.paths.Manifest); string(data) != bootstrapDoc {
		t.Errorf("manifest = %q", data)
	}
	assertSingleEntry(t, env.paths.Playground, "package.json")
}

func TestInstallPackage_CustomManifestName(t *testing.T) {
	env := newTestEnv(t)
	env.eng.manifestName = "other-playground"

	if _, err := env.eng.InstallPackage(context.Background(), InstallRequest{PackageName: "x"}); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(env.paths.Manifest)
	m, err := manifest.Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "other-playground" || m.Version != manifest.DefaultVersion || !m.Private {
		t.Errorf("manifest = %+v", m)
	}
}

func mustWriteManifest(t *testing.T, env *testEnv, content string) {
	t.Helper()
	if err := os.MkdirAll(env.paths.Playground, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(env.paths.Manifest, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func assertSingleEntry(t *testing.T, dir, name string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != name {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("%s contains %v, want only %s", dir, names, name)
	}
}
