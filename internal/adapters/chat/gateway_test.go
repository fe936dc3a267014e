package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/tiersync/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

// testGatewayServer speaks the frame protocol and records requests.
type testGatewayServer struct {
	srv      *httptest.Server
	requests chan frame
	conns    chan *websocket.Conn
}

func newTestGatewayServer(t *testing.T) *testGatewayServer {
	t.Helper()
	gs := &testGatewayServer{
		requests: make(chan frame, 32),
		conns:    make(chan *websocket.Conn, 1),
	}
	upgrader := websocket.Upgrader{}
	gs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		var ident frame
		if err := conn.ReadJSON(&ident); err != nil || ident.Op != opIdentify {
			conn.Close()
			return
		}
		var payload identifyPayload
		_ = json.Unmarshal(ident.Data, &payload)
		if payload.Token != "good-token" {
			_ = conn.WriteJSON(frame{Op: opResult, Error: codePermissionDenied})
			conn.Close()
			return
		}
		_ = conn.WriteJSON(frame{Op: opReady})
		gs.conns <- conn

		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			if f.Op != opRequest {
				continue
			}
			gs.requests <- f
			switch f.Type {
			case reqGuildLabels:
				data, _ := json.Marshal(labelsResult{Labels: []string{"Nível 1", "Membro"}})
				_ = conn.WriteJSON(frame{Op: opResult, Nonce: f.Nonce, Data: data})
			case reqSetNick:
				_ = conn.WriteJSON(frame{Op: opResult, Nonce: f.Nonce, Error: codePermissionDenied})
			default:
				_ = conn.WriteJSON(frame{Op: opResult, Nonce: f.Nonce})
			}
		}
	}))
	return gs
}

func (gs *testGatewayServer) url() string {
	return "ws" + strings.TrimPrefix(gs.srv.URL, "http")
}

func (gs *testGatewayServer) emit(t *testing.T, conn *websocket.Conn, ev MessageEvent) {
	t.Helper()
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	if err := conn.WriteJSON(frame{Op: opEvent, Data: data}); err != nil {
		t.Fatalf("emit event: %v", err)
	}
}

func TestGatewayHandshake(t *testing.T) {
	Convey("Given a gateway server", t, func() {
		gs := newTestGatewayServer(t)
		defer gs.srv.Close()
		ctx := context.Background()

		Convey("When dialing with a valid token", func() {
			gw, err := Dial(ctx, gs.url(), "good-token")

			Convey("Then the connection is established", func() {
				So(err, ShouldBeNil)
				So(gw, ShouldNotBeNil)
				gw.Close()
			})
		})

		Convey("When dialing with a bad token", func() {
			_, err := Dial(ctx, gs.url(), "bad-token")

			Convey("Then the handshake fails with permission denied", func() {
				So(err, ShouldWrap, ErrPermissionDenied)
			})
		})
	})
}

func TestGatewayRequests(t *testing.T) {
	Convey("Given a connected gateway", t, func() {
		gs := newTestGatewayServer(t)
		defer gs.srv.Close()
		ctx := context.Background()
		gw, err := Dial(ctx, gs.url(), "good-token")
		So(err, ShouldBeNil)
		defer gw.Close()
		<-gs.conns

		Convey("When listing guild labels", func() {
			labels, err := gw.GuildLabels(ctx)

			Convey("Then the configured labels come back", func() {
				So(err, ShouldBeNil)
				So(labels, ShouldResemble, []string{"Nível 1", "Membro"})
			})
		})

		Convey("When adding a label", func() {
			err := gw.AddLabel(ctx, "u1", "Nível 1")

			Convey("Then the request succeeds and carries the payload", func() {
				So(err, ShouldBeNil)
				req := <-gs.requests
				So(req.Type, ShouldEqual, reqLabelAdd)
				var payload labelPayload
				So(json.Unmarshal(req.Data, &payload), ShouldBeNil)
				So(payload.UserID, ShouldEqual, "u1")
				So(payload.Label, ShouldEqual, "Nível 1")
			})
		})

		Convey("When a rename is refused by the gateway", func() {
			err := gw.SetDisplayName(ctx, "u1", "NewName")

			Convey("Then the error kind is permission denied", func() {
				So(err, ShouldWrap, ErrPermissionDenied)
			})
		})

		Convey("When sending and bulk deleting", func() {
			So(gw.Send(ctx, "ranking", "hello"), ShouldBeNil)
			So(gw.BulkDelete(ctx, "ranking", 100), ShouldBeNil)
		})
	})
}

func TestGatewayEvents(t *testing.T) {
	Convey("Given a connected gateway", t, func() {
		gs := newTestGatewayServer(t)
		defer gs.srv.Close()
		ctx := context.Background()
		gw, err := Dial(ctx, gs.url(), "good-token")
		So(err, ShouldBeNil)
		defer gw.Close()
		conn := <-gs.conns

		recv := func() (MessageEvent, bool) {
			select {
			case ev, ok := <-gw.Events():
				return ev, ok
			case <-time.After(2 * time.Second):
				return MessageEvent{}, false
			}
		}

		Convey("When the server emits a message event", func() {
			gs.emit(t, conn, MessageEvent{MessageID: "m1", ChannelID: "c1", UserID: "u1", Content: "!stats foo"})

			Convey("Then it arrives on the events channel", func() {
				ev, ok := recv()
				So(ok, ShouldBeTrue)
				So(ev.Content, ShouldEqual, "!stats foo")
				So(ev.UserID, ShouldEqual, "u1")
			})
		})

		Convey("When the same message id is redelivered", func() {
			gs.emit(t, conn, MessageEvent{MessageID: "m2", UserID: "u1", Content: "first"})
			gs.emit(t, conn, MessageEvent{MessageID: "m2", UserID: "u1", Content: "replay"})
			gs.emit(t, conn, MessageEvent{MessageID: "m3", UserID: "u1", Content: "next"})

			Convey("Then the replay is dropped", func() {
				first, ok := recv()
				So(ok, ShouldBeTrue)
				So(first.Content, ShouldEqual, "first")
				second, ok := recv()
				So(ok, ShouldBeTrue)
				So(second.Content, ShouldEqual, "next")
			})
		})

		Convey("When a bot message arrives", func() {
			gs.emit(t, conn, MessageEvent{MessageID: "m4", UserID: "bot", Content: "!verificar x", Bot: true})
			gs.emit(t, conn, MessageEvent{MessageID: "m5", UserID: "u1", Content: "after"})

			Convey("Then the bot message is filtered", func() {
				ev, ok := recv()
				So(ok, ShouldBeTrue)
				So(ev.Content, ShouldEqual, "after")
			})
		})
	})
}

func TestSeenSetEviction(t *testing.T) {
	Convey("Given a seen set with capacity 2", t, func() {
		s := newSeenSet(2)

		Convey("When recording beyond capacity", func() {
			So(s.seenAndRecord("a"), ShouldBeFalse)
			So(s.seenAndRecord("b"), ShouldBeFalse)
			So(s.seenAndRecord("c"), ShouldBeFalse) // evicts a

			Convey("Then the oldest id is forgotten and recent ones kept", func() {
				So(s.seenAndRecord("a"), ShouldBeFalse)
				So(s.seenAndRecord("c"), ShouldBeTrue)
			})
		})
	})
}
