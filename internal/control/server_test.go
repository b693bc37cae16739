package control

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/rack"
	"github.com/cwbudde/algo-rack/measure/spectrum"
	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readMessage returns the next message of the wanted type.
func readMessage(t *testing.T, conn *websocket.Conn, typ string) Message {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		if msg.Type == typ {
			return msg
		}
	}
}

func TestServerWebSocketCommands(t *testing.T) {
	t.Parallel()

	r := preparedRack(t)
	s := NewServer(r, WithLogger(quietLogger()))
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv)

	if err := conn.WriteJSON(Command{Op: "add", Name: rack.NameDelay}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	msg := readMessage(t, conn, "reply")
	if msg.Reply == nil || !msg.Reply.OK {
		t.Fatalf("reply = %+v", msg.Reply)
	}
	if msg.Reply.Index == nil || *msg.Reply.Index != 0 {
		t.Fatalf("index = %v, want 0", msg.Reply.Index)
	}
	if r.Len() != 1 {
		t.Fatalf("rack Len = %d, want 1", r.Len())
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	msg = readMessage(t, conn, "reply")
	if msg.Reply.OK || msg.Reply.Error == "" {
		t.Fatalf("malformed command reply = %+v", msg.Reply)
	}

	// The connection survives a malformed frame.
	if err := conn.WriteJSON(Command{Op: "list"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	msg = readMessage(t, conn, "reply")
	if !msg.Reply.OK || len(msg.Reply.Effects) != 1 {
		t.Fatalf("list reply = %+v", msg.Reply)
	}
}

func TestServerMalformedFramesKeepConnection(t *testing.T) {
	t.Parallel()

	r := preparedRack(t)
	s := NewServer(r, WithLogger(quietLogger()))
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv)

	tests := []struct {
		name  string
		frame string
	}{
		{"truncated", `{"op":`},
		{"empty", ``},
		{"wrong type", `{"op": 3}`},
		{"not an object", `[1, 2]`},
	}
	for _, tt := range tests {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.frame)); err != nil {
			t.Fatalf("%s: WriteMessage: %v", tt.name, err)
		}
		msg := readMessage(t, conn, "reply")
		if msg.Reply == nil || msg.Reply.OK || msg.Reply.Error == "" {
			t.Fatalf("%s: reply = %+v, want error", tt.name, msg.Reply)
		}
	}

	if err := conn.WriteJSON(Command{Op: "list"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	msg := readMessage(t, conn, "reply")
	if !msg.Reply.OK {
		t.Fatalf("list reply = %+v", msg.Reply)
	}
}

func TestServerBroadcastTelemetry(t *testing.T) {
	t.Parallel()

	an, err := spectrum.NewAnalyzer(48000, 256)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	r := preparedRack(t, rack.WithMeter(true), rack.WithTap(an))
	s := NewServer(r, WithAnalyzer(an), WithLogger(quietLogger()))
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv)

	deadline := time.Now().Add(5 * time.Second)
	for s.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}

	buf := core.NewBuffer(2, 64)
	for i := range buf.Channels[0] {
		buf.Channels[0][i] = 0.5
		buf.Channels[1][i] = 0.5
	}
	r.Process(buf)

	s.Broadcast()
	msg := readMessage(t, conn, "telemetry")
	if msg.Levels == nil || len(msg.Levels.Input) != 2 {
		t.Fatalf("levels = %+v", msg.Levels)
	}
	if msg.Levels.Input[0] <= 0 {
		t.Fatalf("input level = %v, want > 0", msg.Levels.Input[0])
	}
	if len(msg.Spectrum) != an.Bins() {
		t.Fatalf("spectrum bins = %d, want %d", len(msg.Spectrum), an.Bins())
	}
	if msg.BinHz != 48000.0/256 {
		t.Fatalf("binHz = %g, want %g", msg.BinHz, 48000.0/256)
	}
}

func TestServerHTTPRoutes(t *testing.T) {
	t.Parallel()

	r := preparedRack(t)
	s := NewServer(r, WithLogger(quietLogger()))
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	body, _ := json.Marshal(Command{Op: "add", Name: rack.NameEQ})
	resp, err := http.Post(srv.URL+"/api/command", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	var reply Reply
	err = json.NewDecoder(resp.Body).Decode(&reply)
	resp.Body.Close()
	if err != nil || !reply.OK {
		t.Fatalf("reply = %+v, err %v", reply, err)
	}

	resp, err = http.Get(srv.URL + "/api/effects")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var views []EffectView
	err = json.NewDecoder(resp.Body).Decode(&views)
	resp.Body.Close()
	if err != nil || len(views) != 1 || views[0].Name != rack.NameEQ || !views[0].Active {
		t.Fatalf("effects = %+v, err %v", views, err)
	}

	resp, err = http.Get(srv.URL + "/api/command")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}
