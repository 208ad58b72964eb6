package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/teamboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.SourceTimeoutMS, convey.ShouldEqual, 5000)
				convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 1000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("TEAMBOARD_ADDR", ":9090")
			_ = os.Setenv("TEAMBOARD_REGISTRY_URL", "http://registry.local/logins")
			_ = os.Setenv("TEAMBOARD_BONUS_URL", "https://flags.local/scores")
			_ = os.Setenv("TEAMBOARD_SOURCE_TIMEOUT_MS", "750")
			_ = os.Setenv("TEAMBOARD_MAX_BATCH_BYTES", "2048")
			_ = os.Setenv("TEAMBOARD_WS_ALLOWED_ORIGINS", "https://board.example,https://ops.example")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.RegistryURL, convey.ShouldEqual, "http://registry.local/logins")
				convey.So(cfg.BonusURL, convey.ShouldEqual, "https://flags.local/scores")
				convey.So(cfg.SourceTimeoutMS, convey.ShouldEqual, 750)
				convey.So(cfg.MaxBatchBytes, convey.ShouldEqual, 2048)
				convey.So(cfg.AllowedOrigins(), convey.ShouldResemble, []string{"https://board.example", "https://ops.example"})
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":7070"
log_level: debug
registry_url: "http://127.0.0.1:5000/admin"
source_timeout_ms: 1500
max_leaderboard_limit: 50
`)
			_ = os.Setenv("TEAMBOARD_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep defaults for the rest", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.RegistryURL, convey.ShouldEqual, "http://127.0.0.1:5000/admin")
				convey.So(cfg.SourceTimeoutMS, convey.ShouldEqual, 1500)
				convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 50)
				convey.So(cfg.BonusURL, convey.ShouldEqual, "http://manual_flags:80/scores")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":7070"
source_timeout_ms: 1500
`)
			_ = os.Setenv("TEAMBOARD_CONFIG", tmpFile)
			_ = os.Setenv("TEAMBOARD_ADDR", ":6060")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")         // env
				convey.So(cfg.SourceTimeoutMS, convey.ShouldEqual, 1500) // file
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(t, `invalid: yaml: content: [`)
			_ = os.Setenv("TEAMBOARD_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("TEAMBOARD_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("TEAMBOARD_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("TEAMBOARD_SOURCE_TIMEOUT_MS", "soon")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a non-http source URL", func() {
			_ = os.Setenv("TEAMBOARD_BONUS_URL", "file:///etc/passwd")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "bonus_url")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.
func clearConfigEnvVars() {
	envVars := []string{
		"TEAMBOARD_CONFIG",
		"TEAMBOARD_ADDR",
		"TEAMBOARD_LOG_LEVEL",
		"TEAMBOARD_REGISTRY_URL",
		"TEAMBOARD_BONUS_URL",
		"TEAMBOARD_SOURCE_TIMEOUT_MS",
		"TEAMBOARD_MAX_LEADERBOARD_LIMIT",
		"TEAMBOARD_MAX_BATCH_BYTES",
		"TEAMBOARD_WS_PING_INTERVAL_MS",
		"TEAMBOARD_WS_ALLOWED_ORIGINS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "teamboard-config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatal(err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpFile.Name()
}
