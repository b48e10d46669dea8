package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lone-faerie/lenconv/internal/fileutil"
	"github.com/lone-faerie/lenconv/log"
)

// WatchDelay is how long Watch waits after the last change to a config file
// before reloading it. Editors often write a file in several steps.
var WatchDelay = 250 * time.Millisecond

// Watch calls fn with the reloaded config each time one of the given files
// changes, until ctx is done. Errors loading the changed config are logged and
// the previous config stays in effect. Watch blocks, so it is usually run in
// its own goroutine.
func Watch(ctx context.Context, fn func(*Config), file ...string) error {
	if len(file) == 0 {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Files are matched through their parent directory so that atomic
	// renames by editors are seen.
	var (
		watched = make(map[string]struct{})
		dirs    = make(map[string]struct{})
	)
	for _, f := range file {
		path, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		watched[path] = struct{}{}
		dir := path
		if fi, err := os.Stat(path); err != nil || !fi.IsDir() {
			dir = filepath.Dir(path)
		}
		if _, ok := dirs[dir]; ok {
			continue
		}
		if err = w.Add(dir); err != nil {
			return err
		}
		dirs[dir] = struct{}{}
		log.Debug("Watching config", "path", dir)
	}

	tick := time.NewTimer(WatchDelay)
	tick.Stop()
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.WarnError("Config watcher error", err)
		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) && !e.Has(fsnotify.Rename) && !e.Has(fsnotify.Remove) {
				break
			}
			if !isWatched(watched, e.Name) {
				break
			}
			log.Debug("Config changed", "path", e.Name, "op", e.Op.String())
			tick.Reset(WatchDelay)
		case <-tick.C:
			cfg, err := Load(file...)
			if err != nil {
				log.WarnError("Could not reload config", err)
				break
			}
			log.Info("Config reloaded")
			fn(cfg)
		}
	}
}

func isWatched(watched map[string]struct{}, name string) bool {
	if _, ok := watched[name]; ok {
		return true
	}
	// Files inside a watched directory only count when they are YAML.
	dir := filepath.Dir(name)
	if _, ok := watched[dir]; ok {
		return fileutil.IsYAML(name)
	}
	return false
}
