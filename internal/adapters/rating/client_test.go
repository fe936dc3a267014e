package rating_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/tiersync/internal/adapters/rating"
	"github.com/okian/tiersync/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

// fakeRatingAPI serves the two player endpoints the client uses.
func fakeRatingAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/players", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Query().Get("nickname") {
		case "playerOne":
			w.Write([]byte(`{"player_id":"pid-1","nickname":"PlayerOne","country":"br"}`))
		case "noStats":
			w.Write([]byte(`{"player_id":"pid-2","nickname":"NoStats","country":"pt"}`))
		case "flaky":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("/players/pid-1", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"player_id":"pid-1","nickname":"PlayerOne","country":"br",` +
			`"games":{"cs2":{"faceit_elo":1754,"skill_level":9}}}`))
	})
	mux.HandleFunc("/players/pid-2", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"player_id":"pid-2","nickname":"NoStats","country":"pt",` +
			`"games":{"csgo":{"faceit_elo":900,"skill_level":4}}}`))
	})
	return httptest.NewServer(mux)
}

func TestClientFetch(t *testing.T) {
	Convey("Given a rating client against a fake API", t, func() {
		srv := fakeRatingAPI(t)
		defer srv.Close()
		ctx := context.Background()
		client := rating.NewClient(srv.URL, "test-key")

		Convey("When fetching a handle with stats", func() {
			rec, err := client.Fetch(ctx, "playerOne")

			Convey("Then the rating record is populated", func() {
				So(err, ShouldBeNil)
				So(rec.Handle, ShouldEqual, "playerOne")
				So(rec.DisplayName, ShouldEqual, "PlayerOne")
				So(rec.Rating, ShouldEqual, 1754)
				So(rec.TierLevel, ShouldEqual, 9)
				So(rec.Region, ShouldEqual, "br")
			})
		})

		Convey("When the handle does not exist", func() {
			_, err := client.Fetch(ctx, "ghost")
			So(err, ShouldWrap, rating.ErrNotFound)
		})

		Convey("When the profile has no stats for the configured game", func() {
			_, err := client.Fetch(ctx, "noStats")
			So(err, ShouldWrap, rating.ErrNoGameStats)
		})

		Convey("When the service answers with a server error", func() {
			_, err := client.Fetch(ctx, "flaky")
			So(err, ShouldWrap, rating.ErrTransient)
		})

		Convey("When the credential is wrong", func() {
			bad := rating.NewClient(srv.URL, "wrong-key")
			_, err := bad.Fetch(ctx, "playerOne")
			So(err, ShouldWrap, rating.ErrUnauthorized)
		})
	})
}

func TestClientTimeout(t *testing.T) {
	Convey("Given a rating service that never answers in time", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		client := rating.NewClient(srv.URL, "test-key", rating.WithTimeout(20*time.Millisecond))

		Convey("When fetching", func() {
			_, err := client.Fetch(context.Background(), "anyone")

			Convey("Then the failure is classified transient", func() {
				So(err, ShouldWrap, rating.ErrTransient)
			})
		})
	})
}

func TestProfileURL(t *testing.T) {
	Convey("Given a client with the default profile prefix", t, func() {
		client := rating.NewClient("http://api.invalid", "k")

		Convey("When building a profile URL", func() {
			So(client.ProfileURL("PlayerOne"), ShouldEqual, "https://www.faceit.com/pt/players/PlayerOne")
		})
	})
}
