package integration

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/danieljhkim/sketchpm/internal/config"
	"github.com/danieljhkim/sketchpm/internal/engine"
)

func TestInstall_FullCycle(t *testing.T) {
	eng, fs, runner := setupTestEngine(t)
	ctx := context.Background()
	paths := config.NewPaths(testDataDir)

	// Nothing exists yet
	names, err := eng.ListInstalled(ctx)
	if err != nil {
		t.Fatalf("ListInstalled() error = %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected no packages, got %v", names)
	}

	for _, pkg := range []string{"zod", "axios@1.6.0", "lodash"} {
		result, err := eng.InstallPackage(ctx, engine.InstallRequest{PackageName: pkg})
		if err != nil {
			t.Fatalf("InstallPackage(%q) error = %v", pkg, err)
		}
		if !result.Success {
			t.Fatalf("InstallPackage(%q) = %+v", pkg, result)
		}
	}

	// Verify the workspace was bootstrapped exactly once
	if got := fs.createCount(); got != 1 {
		t.Errorf("package.json created %d times, want 1", got)
	}
	if !reflect.DeepEqual(fs.sortedDirs(), []string{"/", "/sketch", testDataDir, paths.Playground}) {
		t.Errorf("dirs = %v", fs.sortedDirs())
	}

	// Verify install order is preserved, not sorted
	names, err = eng.ListInstalled(ctx)
	if err != nil {
		t.Fatalf("ListInstalled() error = %v", err)
	}
	if !reflect.DeepEqual(names, []string{"zod", "axios", "lodash"}) {
		t.Errorf("ListInstalled() = %v", names)
	}

	deps, err := eng.ListDependencies(ctx)
	if err != nil {
		t.Fatalf("ListDependencies() error = %v", err)
	}
	if deps[1].Spec != "1.6.0" || !deps[1].Exact {
		t.Errorf("axios dependency = %+v", deps[1])
	}

	// Verify every attempt went through the package manager in the playground
	calls := runner.Calls()
	if len(calls) != 3 {
		t.Fatalf("expected 3 package manager runs, got %d", len(calls))
	}
	for _, c := range calls {
		if c.Dir != paths.Playground {
			t.Errorf("ran in %q, want %q", c.Dir, paths.Playground)
		}
	}

	// Verify history
	history, err := eng.History(ctx, 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 3 || history[0].Package != "lodash" {
		t.Errorf("history = %+v", history)
	}
	if _, ok := fs.file(paths.History); !ok {
		t.Error("history file not written")
	}
}

func TestInstall_FailureLeavesWorkspaceUsable(t *testing.T) {
	eng, fs, runner := setupTestEngine(t)
	ctx := context.Background()
	paths := config.NewPaths(testDataDir)

	runner.SetOutcome(1, "npm ERR! 404 Not Found - GET https://registry.npmjs.org/nonexistent-pkg-xyz")
	result, err := eng.InstallPackage(ctx, engine.InstallRequest{PackageName: "nonexistent-pkg-xyz"})
	if err != nil {
		t.Fatalf("InstallPackage() error = %v", err)
	}
	if result.Success {
		t.Fatal("expected failure")
	}

	// The bootstrap manifest is still there and still empty
	content, ok := fs.file(paths.Manifest)
	if !ok || content != `{"name":"sketchjs-playground","version":"1.0.0","private":true}` {
		t.Errorf("manifest = %q", content)
	}

	// A later install works
	runner.SetOutcome(0, "")
	if _, err := eng.InstallPackage(ctx, engine.InstallRequest{PackageName: "react"}); err != nil {
		t.Fatal(err)
	}
	names, _ := eng.ListInstalled(ctx)
	if !reflect.DeepEqual(names, []string{"react"}) {
		t.Errorf("ListInstalled() = %v", names)
	}
}

func TestInstall_BootstrapFailure(t *testing.T) {
	eng, fs, runner := setupTestEngine(t)
	fs.mkdirErr = errors.New("read-only file system")

	_, err := eng.InstallPackage(context.Background(), engine.InstallRequest{PackageName: "react"})
	if !errors.Is(err, engine.ErrBootstrap) {
		t.Fatalf("error = %v, want ErrBootstrap", err)
	}
	if err.Error() != "failed to create directory: read-only file system" {
		t.Errorf("error = %q", err)
	}
	if len(runner.Calls()) != 0 {
		t.Error("package manager must not run without a workspace")
	}
}

func TestInstall_ConcurrentFirstUse(t *testing.T) {
	eng, fs, runner := setupTestEngine(t)

	const installs = 8
	var wg sync.WaitGroup
	for i := 0; i < installs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pkg := string(rune('a'+i)) + "-pkg"
			if _, err := eng.InstallPackage(context.Background(), engine.InstallRequest{PackageName: pkg}); err != nil {
				t.Errorf("InstallPackage(%q) error = %v", pkg, err)
			}
		}(i)
	}
	wg.Wait()

	// The package manager may write package.json before a slower bootstrap
	// gets to it; either way the bootstrap never writes twice.
	if got := fs.createCount(); got > 1 {
		t.Errorf("package.json created %d times, want at most 1", got)
	}
	if got := len(runner.Calls()); got != installs {
		t.Errorf("package manager ran %d times, want %d", got, installs)
	}

	names, err := eng.ListInstalled(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != installs {
		t.Errorf("ListInstalled() = %v, want %d packages", names, installs)
	}
}
