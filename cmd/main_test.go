package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/teamboard/internal/adapters/http/ws"
	"github.com/okian/teamboard/internal/config"
	"github.com/okian/teamboard/internal/domain/types"
	"github.com/okian/teamboard/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.InitWithWriter(io.Discard); err != nil {
		panic(err)
	}
}

func jsonServer(body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func TestMainConfiguration(t *testing.T) {
	convey.Convey("Given TEAMBOARD_ environment variables", t, func() {
		t.Setenv("TEAMBOARD_ADDR", ":9090")
		t.Setenv("TEAMBOARD_SOURCE_TIMEOUT_MS", "250")
		t.Setenv("TEAMBOARD_REGISTRY_URL", "http://registry.local/logins")

		convey.Convey("Then configuration should pick them up", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			convey.So(cfg.SourceTimeout(), convey.ShouldEqual, 250*time.Millisecond)
			convey.So(cfg.RegistryURL, convey.ShouldEqual, "http://registry.local/logins")
		})
	})

	convey.Convey("Given an invalid source URL", t, func() {
		t.Setenv("TEAMBOARD_BONUS_URL", "not a url")

		convey.Convey("Then configuration loading should fail", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestApplyLogLevel(t *testing.T) {
	convey.Convey("Given the global logger", t, func() {
		ctx := context.Background()
		defer func() { _ = logger.SetLevelString("info") }()

		convey.Convey("A valid level should be applied", func() {
			applyLogLevel(ctx, logger.Get(), "debug")
			convey.So(logger.Level(), convey.ShouldEqual, slog.LevelDebug)
		})

		convey.Convey("An invalid level should fall back to info", func() {
			applyLogLevel(ctx, logger.Get(), "chatty")
			convey.So(logger.Level(), convey.ShouldEqual, slog.LevelInfo)
		})
	})
}

func TestBuild(t *testing.T) {
	convey.Convey("Given the wired application against fake sources", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		registry := jsonServer(`{"alice":"Red","bob":"Blue"}`)
		defer registry.Close()
		bonus := jsonServer(`{"Red":10,"Blue":5}`)
		defer bonus.Close()

		cfg := config.New()
		cfg.RegistryURL = registry.URL
		cfg.BonusURL = bonus.URL
		cfg.SourceTimeoutMS = 1000

		a := build(ctx, cfg, logger.Get())
		convey.So(a.svc.Start(ctx), convey.ShouldBeNil)
		defer a.svc.Stop()
		go a.hub.Run(ctx)

		srv := httptest.NewServer(a.mux)
		defer srv.Close()

		convey.Convey("When a live client is connected and a batch is posted", func() {
			conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = conn.Close() }()

			initial, err := readLive(conn)
			convey.So(err, convey.ShouldBeNil)
			convey.So(initial.Data.Version, convey.ShouldEqual, 0)

			resp, err := http.Post(srv.URL+"/data", "application/json", strings.NewReader(`{"alice":100,"bob":200}`))
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)

			convey.Convey("Then the leaderboard endpoint should serve the ranked totals", func() {
				resp, err := http.Get(srv.URL + "/leaderboard")
				convey.So(err, convey.ShouldBeNil)
				defer func() { _ = resp.Body.Close() }()

				var board types.Board
				convey.So(json.NewDecoder(resp.Body).Decode(&board), convey.ShouldBeNil)
				convey.So(board.Entries, convey.ShouldResemble, []types.Entry{
					{Rank: 1, Team: "Blue", Score: 205},
					{Rank: 2, Team: "Red", Score: 110},
				})
				convey.So(board.MaxScore, convey.ShouldEqual, 205)
			})

			convey.Convey("And the live client should receive the new board", func() {
				m, err := readLive(conn)
				convey.So(err, convey.ShouldBeNil)
				convey.So(m.Data.Version, convey.ShouldEqual, 1)
				convey.So(m.Data.MaxScore, convey.ShouldEqual, 205)
			})
		})

		convey.Convey("Then the docs routes should be mounted", func() {
			resp, err := http.Get(srv.URL + "/openapi.yaml")
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
		})
	})
}

func readLive(conn *websocket.Conn) (ws.Message, error) {
	var m ws.Message
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	err := conn.ReadJSON(&m)
	return m, err
}
