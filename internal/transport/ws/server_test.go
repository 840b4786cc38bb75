package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"merchantboard.ai/internal/protocol"
	"merchantboard.ai/internal/sim/catalogs"
	"merchantboard.ai/internal/sim/clock"
	"merchantboard.ai/internal/sim/merchant"
	"merchantboard.ai/internal/sim/tuning"
)

func startServer(t *testing.T) string {
	t.Helper()
	cats, err := catalogs.Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	logger := log.New(io.Discard, "", 0)
	hub := merchant.NewHub(tuning.Defaults(), cats, nil, logger)
	ctx, cancel := context.WithCancel(context.Background())
	hub.Start(ctx)
	srv := httptest.NewServer(NewServer(hub, logger).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		hub.Wait()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil returns the first message of type typ, skipping others.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) []byte {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read waiting for %s: %v", typ, err)
		}
		base, err := protocol.DecodeBase(msg)
		if err == nil && base.Type == typ {
			return msg
		}
	}
}

func TestServer_HelloActResult(t *testing.T) {
	conn := dial(t, startServer(t))
	if err := conn.WriteJSON(protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerID:        "P1",
		WorldTime:       clock.DaySeconds * 2,
	}); err != nil {
		t.Fatalf("write hello: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, first, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(first, &welcome); err != nil || welcome.Type != protocol.TypeWelcome || welcome.PlayerID != "P1" {
		t.Fatalf("expected WELCOME first, got %s (err=%v)", first, err)
	}

	var st protocol.StateMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeState), &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.WorldTime != clock.DaySeconds*2 {
		t.Fatalf("expected hello time in state, got %d", st.WorldTime)
	}

	if err := conn.WriteJSON(protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		ID:              "a1",
		Kind:            protocol.ActDeposit,
		Item:            "Coins",
		Count:           50,
	}); err != nil {
		t.Fatalf("write act: %v", err)
	}
	var res protocol.ResultMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeResult), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.ActID != "a1" || res.Result != "OK" {
		t.Fatalf("unexpected result %#v", res)
	}
}

func TestServer_RejectsBadActs(t *testing.T) {
	conn := dial(t, startServer(t))
	_ = conn.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, PlayerID: "P2"})
	readUntil(t, conn, protocol.TypeWelcome)

	_ = conn.WriteJSON(protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: "0.1", ID: "old", Kind: protocol.ActTime})
	var res protocol.ResultMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeResult), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.ActID != "old" || res.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("expected proto bad request, got %#v", res)
	}
}

func TestServer_RequiresHello(t *testing.T) {
	conn := dial(t, startServer(t))
	_ = conn.WriteJSON(protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, Kind: protocol.ActTime})
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy close, got %v", err)
	}
}

func TestDecodeAct(t *testing.T) {
	if _, code, _ := decodeAct([]byte(`{`)); code != protocol.ErrProtoBadRequest {
		t.Fatalf("expected malformed json rejection")
	}
	if _, code, _ := decodeAct([]byte(`{"type":"HELLO","protocol_version":"1.0"}`)); code != protocol.ErrProtoBadRequest {
		t.Fatalf("expected non-ACT rejection")
	}
	act, code, _ := decodeAct([]byte(`{"type":"ACT","protocol_version":"1.0","id":"x","kind":"BUY","board":"SECRET_STASH","index":2}`))
	if code != "" || act.Board != protocol.BoardSecretStash || act.Index != 2 {
		t.Fatalf("unexpected decode %#v code=%s", act, code)
	}
}
