package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/fleetline/haulcall/config"
	"github.com/fleetline/haulcall/dispatch"
	"github.com/fleetline/haulcall/messages"
	"github.com/fleetline/haulcall/scenario"
	"github.com/fleetline/haulcall/session"
	"github.com/fleetline/haulcall/store"
)

func newTestServer(t *testing.T) (*Server, *session.Manager) {
	t.Helper()
	cfg := &config.Config{
		Port:                 0,
		AllowedOrigins:       []string{"*"},
		MaxSessions:          10,
		SessionTimeout:       time.Minute,
		SlotHeuristics:       true,
		PromptRetryLimit:     2,
		MinConfidence:        0.5,
		EscalationAckTimeout: time.Second,
	}
	mgr := session.NewManager(cfg, store.NewMemory(), dispatch.Nop{}, scenario.TemplatePrompter{}, zerolog.Nop())
	return New(cfg, mgr, zerolog.Nop()), mgr
}

func dial(t *testing.T, ts *httptest.Server, callID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/call-websocket/" + callID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, ev messages.ClientEvent) {
	t.Helper()
	data, err := sonic.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) messages.ServerEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var ev messages.ServerEvent
	if err := sonic.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	return ev
}

func segment(text string) messages.ClientEvent {
	return messages.ClientEvent{
		Type: messages.EventSegment,
		Segment: &messages.TranscriptSegment{
			Speaker:    messages.SpeakerDriver,
			Text:       text,
			Timestamp:  time.Now().UTC(),
			Final:      true,
			Confidence: 0.95,
		},
	}
}

func TestServer_FullCallOverWebSocket(t *testing.T) {
	srv, mgr := newTestServer(t)
	ts := httptest.NewServer(http.HandlerFunc(srv.handleWebSocket))
	defer ts.Close()

	conn := dial(t, ts, "ws-call-1")
	defer conn.Close()

	sendEvent(t, conn, messages.ClientEvent{
		Type:  messages.EventStart,
		Start: &messages.StartPayload{DriverName: "Mike", LoadNumber: "7891-B"},
	})
	if ev := readEvent(t, conn); ev.Type != messages.TypeSpeak {
		t.Fatalf("expected opening speak, got %+v", ev)
	}
	if mgr.SessionCount() != 1 {
		t.Fatalf("session count = %d, want 1", mgr.SessionCount())
	}

	sendEvent(t, conn, segment("I'm driving, near Exit 42 on I-80, ETA 3pm"))
	if ev := readEvent(t, conn); ev.Type != messages.TypeSpeak {
		t.Fatalf("expected recap speak, got %+v", ev)
	}

	sendEvent(t, conn, segment("yes that's correct"))
	ev := readEvent(t, conn)
	if ev.Type != messages.TypeEndCall {
		t.Fatalf("expected end-call, got %+v", ev)
	}
	if ev.CallID != "ws-call-1" {
		t.Errorf("call id = %q, want ws-call-1", ev.CallID)
	}

	// Server tears the session down after the terminal event
	deadline := time.Now().Add(2 * time.Second)
	for mgr.SessionCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if mgr.SessionCount() != 0 {
		t.Errorf("session count = %d after end-call, want 0", mgr.SessionCount())
	}
}

func TestServer_SegmentBeforeStartIsRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(http.HandlerFunc(srv.handleWebSocket))
	defer ts.Close()

	conn := dial(t, ts, "ws-call-2")
	defer conn.Close()

	sendEvent(t, conn, segment("hello?"))
	ev := readEvent(t, conn)
	if ev.Type != messages.TypeError {
		t.Fatalf("expected error event, got %+v", ev)
	}
}

func TestServer_PingPong(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(http.HandlerFunc(srv.handleWebSocket))
	defer ts.Close()

	conn := dial(t, ts, "ws-call-3")
	defer conn.Close()

	sendEvent(t, conn, messages.ClientEvent{Type: messages.EventPing})
	ev := readEvent(t, conn)
	if ev.Type != messages.TypeStatus {
		t.Fatalf("expected status event, got %+v", ev)
	}
}

func TestServer_MalformedPayload(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(http.HandlerFunc(srv.handleWebSocket))
	defer ts.Close()

	conn := dial(t, ts, "ws-call-4")
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	ev := readEvent(t, conn)
	if ev.Type != messages.TypeError {
		t.Fatalf("expected error event, got %+v", ev)
	}
}

func TestServer_DisconnectFinalizesSession(t *testing.T) {
	srv, mgr := newTestServer(t)
	ts := httptest.NewServer(http.HandlerFunc(srv.handleWebSocket))
	defer ts.Close()

	conn := dial(t, ts, "ws-call-5")
	sendEvent(t, conn, messages.ClientEvent{
		Type:  messages.EventStart,
		Start: &messages.StartPayload{DriverName: "Mike"},
	})
	readEvent(t, conn) // opening
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for mgr.SessionCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if mgr.SessionCount() != 0 {
		t.Errorf("session count = %d after disconnect, want 0", mgr.SessionCount())
	}
}

func TestServer_HealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()

	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"sessions":0`) {
		t.Errorf("unexpected health body: %s", rec.Body.String())
	}
}
