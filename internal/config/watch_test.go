package config_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/okian/teamboard/internal/config"
	"github.com/okian/teamboard/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestWatch(t *testing.T) {
	convey.Convey("Given a watched config file", t, func() {
		clearConfigEnvVars()
		path := createTempConfigFile(t, "log_level: info\n")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes := make(chan *config.Config, 4)
		done := make(chan error, 1)
		go func() {
			done <- config.Watch(ctx, path, logger.Nop(), func(c *config.Config) { changes <- c })
		}()
		// Give the watcher time to register before the write.
		time.Sleep(300 * time.Millisecond)

		convey.Convey("When the file is rewritten with a new log level", func() {
			convey.So(os.WriteFile(path, []byte("log_level: debug\n"), 0o600), convey.ShouldBeNil)

			convey.Convey("Then onChange should receive the reloaded config", func() {
				select {
				case c := <-changes:
					convey.So(c.LogLevel, convey.ShouldEqual, "debug")
				case <-time.After(5 * time.Second):
					t.Fatal("no reload observed")
				}

				cancel()
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("watch did not stop")
				}
			})
		})
	})

	convey.Convey("Given no config path", t, func() {
		err := config.Watch(context.Background(), "", nil, func(*config.Config) {})

		convey.Convey("Then Watch should refuse to start", func() {
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
