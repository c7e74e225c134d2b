package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/githubnext/ocsfc/pkg/console"
	"github.com/githubnext/ocsfc/pkg/logger"
)

var watchLog = logger.New("cli:compile_watch")

// watchDebounce coalesces the burst of events an editor save produces.
const watchDebounce = 300 * time.Millisecond

// watchAndCompile compiles once, then recompiles whenever a JSON file under
// the corpus changes, until ctx is cancelled. Compile failures are reported
// and watching continues.
func watchAndCompile(ctx context.Context, config CompileConfig) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, config.CorpusDir); err != nil {
		return err
	}

	recompile := func() {
		if _, err := compileOnce(ctx, config); err != nil {
			fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
		}
	}
	recompile()
	fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", config.CorpusDir)))

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			watchLog.Print("Watch cancelled")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addWatchDirs(watcher, event.Name); err != nil {
						watchLog.Printf("Failed to watch new directory %s: %v", event.Name, err)
					}
				}
			}
			if !isCorpusFile(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			watchLog.Printf("Change detected: %s %s", event.Op, event.Name)
			timer.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stderr, console.FormatWarningMessage("Watch error: "+err.Error()))

		case <-timer.C:
			console.LogVerbose(config.Verbose, "Recompiling after corpus change")
			recompile()
		}
	}
}

// addWatchDirs watches root and every directory below it; fsnotify watches
// are not recursive.
func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		watchLog.Printf("Watching directory: %s", path)
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func isCorpusFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
