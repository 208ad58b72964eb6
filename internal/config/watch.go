package config

import (
	"context"
	"fmt"

	"github.com/knadh/koanf/providers/file"

	"github.com/okian/teamboard/pkg/logger"
)

// Watch monitors the YAML file at path and calls onChange with the newly
// loaded Config each time it changes. It blocks until ctx is cancelled.
//
// A reload that fails (invalid YAML, failed validation) is logged and the
// previous config stays active; onChange is not called.
func Watch(ctx context.Context, path string, log logger.Logger, onChange func(*Config)) error {
	if path == "" {
		return fmt.Errorf("%w: no config file to watch", ErrInvalidConfig)
	}
	if log == nil {
		log = logger.Nop()
	}

	f := file.Provider(path)
	err := f.Watch(func(_ interface{}, werr error) {
		if werr != nil {
			log.Error(ctx, "config watcher error", logger.String("path", path), logger.Error(werr))
			return
		}
		cfg, lerr := LoadFile(ctx, path)
		if lerr != nil {
			log.Error(ctx, "config reload failed; keeping previous config", logger.String("path", path), logger.Error(lerr))
			return
		}
		log.Info(ctx, "config reloaded", logger.String("path", path))
		onChange(cfg)
	})
	if err != nil {
		return fmt.Errorf("%w: watch %s: %w", ErrLoadConfig, path, err)
	}

	log.Info(ctx, "watching config for changes", logger.String("path", path))
	<-ctx.Done()
	return f.Unwatch()
}
