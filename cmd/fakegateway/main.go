// fakegateway is a local stand-in for the chat gateway: it speaks the same
// JSON frame protocol over a websocket and lets you drive the synchronizer
// from stdin. Lines typed as "<user_id> <channel_id> <text...>" are
// delivered to the connected service as message events.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const defaultLabels = "Nível 10,Nível 9,Nível 8,Nível 7,Nível 6,Nível 5,Nível 4,Nível 3,Nível 2,Nível 1,Membro"

type frame struct {
	Op    string          `json:"op"`
	Type  string          `json:"type,omitempty"`
	Nonce string          `json:"nonce,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

type messageEvent struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Content   string `json:"content"`
	Bot       bool   `json:"bot"`
}

// state is the emulated group: configured labels, per-member labels, nicks.
type state struct {
	mu     sync.Mutex
	guild  []string
	labels map[string][]string
	nicks  map[string]string
}

type server struct {
	token string
	state *state

	mu   sync.Mutex
	conn *websocket.Conn
}

func main() {
	var (
		addr   = flag.String("addr", ":7777", "Listen address")
		token  = flag.String("token", "dev-token", "Expected gateway token")
		labels = flag.String("labels", defaultLabels, "Comma-separated configured group labels")
	)
	flag.Parse()

	srv := &server{
		token: *token,
		state: &state{
			guild:  strings.Split(*labels, ","),
			labels: make(map[string][]string),
			nicks:  make(map[string]string),
		},
	}

	go srv.readStdin()

	http.HandleFunc("/ws", srv.handleWS)
	fmt.Printf("fakegateway listening on %s (token %q)\n", *addr, *token)
	fmt.Println("type: <user_id> <channel_id> <text...> to emit a message event")
	if err := http.ListenAndServe(*addr, nil); err != nil {
		os.Stderr.WriteString("fakegateway failed: " + err.Error() + "\n")
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	var identify frame
	if err := conn.ReadJSON(&identify); err != nil || identify.Op != "identify" {
		_ = conn.Close()
		return
	}
	var payload struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(identify.Data, &payload)
	if payload.Token != s.token {
		_ = conn.WriteJSON(frame{Op: "result", Nonce: identify.Nonce, Error: "permission_denied"})
		_ = conn.Close()
		return
	}
	if err := conn.WriteJSON(frame{Op: "ready"}); err != nil {
		_ = conn.Close()
		return
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	fmt.Println("client connected")

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			fmt.Println("client disconnected:", err)
			s.mu.Lock()
			if s.conn == conn {
				s.conn = nil
			}
			s.mu.Unlock()
			return
		}
		switch f.Op {
		case "ping":
			_ = conn.WriteJSON(frame{Op: "pong"})
		case "request":
			s.handleRequest(conn, f)
		}
	}
}

func (s *server) handleRequest(conn *websocket.Conn, f frame) {
	result := frame{Op: "result", Nonce: f.Nonce}

	switch f.Type {
	case "send", "reply":
		var p struct {
			ChannelID string `json:"channel_id"`
			Text      string `json:"text"`
		}
		_ = json.Unmarshal(f.Data, &p)
		fmt.Printf("[#%s] %s\n", p.ChannelID, p.Text)
	case "bulk_delete":
		var p struct {
			ChannelID string `json:"channel_id"`
			Limit     int    `json:"limit"`
		}
		_ = json.Unmarshal(f.Data, &p)
		fmt.Printf("[#%s] cleared up to %d messages\n", p.ChannelID, p.Limit)
	case "guild_labels":
		s.state.mu.Lock()
		data, _ := json.Marshal(struct {
			Labels []string `json:"labels"`
		}{Labels: s.state.guild})
		s.state.mu.Unlock()
		result.Data = data
	case "member_labels":
		var p struct {
			UserID string `json:"user_id"`
		}
		_ = json.Unmarshal(f.Data, &p)
		s.state.mu.Lock()
		data, _ := json.Marshal(struct {
			Labels []string `json:"labels"`
		}{Labels: s.state.labels[p.UserID]})
		s.state.mu.Unlock()
		result.Data = data
	case "label_add":
		var p struct {
			UserID string `json:"user_id"`
			Label  string `json:"label"`
		}
		_ = json.Unmarshal(f.Data, &p)
		s.state.mu.Lock()
		s.state.labels[p.UserID] = append(s.state.labels[p.UserID], p.Label)
		s.state.mu.Unlock()
		fmt.Printf("label %q added to %s\n", p.Label, p.UserID)
	case "label_remove":
		var p struct {
			UserID string `json:"user_id"`
			Label  string `json:"label"`
		}
		_ = json.Unmarshal(f.Data, &p)
		s.state.mu.Lock()
		kept := s.state.labels[p.UserID][:0]
		for _, l := range s.state.labels[p.UserID] {
			if l != p.Label {
				kept = append(kept, l)
			}
		}
		s.state.labels[p.UserID] = kept
		s.state.mu.Unlock()
		fmt.Printf("label %q removed from %s\n", p.Label, p.UserID)
	case "set_nick":
		var p struct {
			UserID string `json:"user_id"`
			Name   string `json:"name"`
		}
		_ = json.Unmarshal(f.Data, &p)
		s.state.mu.Lock()
		s.state.nicks[p.UserID] = p.Name
		s.state.mu.Unlock()
		fmt.Printf("nick of %s set to %q\n", p.UserID, p.Name)
	default:
		result.Error = "not_found"
	}

	_ = conn.WriteJSON(result)
}

func (s *server) readStdin() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.SplitN(scanner.Text(), " ", 3)
		if len(fields) < 3 {
			fmt.Println("usage: <user_id> <channel_id> <text...>")
			continue
		}

		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			fmt.Println("no client connected")
			continue
		}

		ev := messageEvent{
			MessageID: uuid.NewString(),
			ChannelID: fields[1],
			UserID:    fields[0],
			Content:   fields[2],
		}
		data, _ := json.Marshal(ev)
		if err := conn.WriteJSON(frame{Op: "event", Type: "message", Data: data}); err != nil {
			fmt.Println("event delivery failed:", err)
		}
	}
}
