package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"merchantboard.ai/internal/protocol"
	"merchantboard.ai/internal/sim/merchant"
)

// Server speaks the host protocol: one connection per player session. The
// first frame must be HELLO; every later ACT is queued on the player's
// service.
type Server struct {
	hub *merchant.Hub
	log *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(h *merchant.Hub, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		hub: h,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // hosts are not browsers
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		svc, out := s.handshake(conn)
		if svc == nil {
			return
		}
		defer func() {
			select {
			case svc.Detach() <- out:
			case <-time.After(time.Second):
			}
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			act, code, why := decodeAct(msg)
			if code != "" {
				reject(out, act, code, why)
				continue
			}
			select {
			case svc.Inbox() <- act:
			default:
				reject(out, act, protocol.ErrBusy, "inbox full")
			}
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (*merchant.Service, chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closePolicy(conn, "expected HELLO")
		return nil, nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closePolicy(conn, "bad HELLO")
		return nil, nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closePolicy(conn, "bad protocol_version")
		return nil, nil
	}
	hello.PlayerID = strings.TrimSpace(hello.PlayerID)
	if hello.PlayerID == "" || hello.WorldTime < 0 {
		closePolicy(conn, "bad HELLO")
		return nil, nil
	}

	svc, err := s.hub.Get(hello.PlayerID)
	if err != nil {
		s.log.Printf("hello %s: %v", hello.PlayerID, err)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "unavailable"), time.Now().Add(time.Second))
		return nil, nil
	}

	out := make(chan []byte, 64)
	resp := make(chan protocol.WelcomeMsg, 1)
	select {
	case svc.Attach() <- merchant.AttachRequest{Hello: hello, Out: out, Resp: resp}:
	case <-time.After(5 * time.Second):
		return nil, nil
	}
	var welcome protocol.WelcomeMsg
	select {
	case welcome = <-resp:
	case <-time.After(5 * time.Second):
		return nil, nil
	}

	// WELCOME goes out before anything queued on out.
	if err := writeJSON(conn, welcome); err != nil {
		return nil, nil
	}
	return svc, out
}

// decodeAct returns a non-empty error code when msg is not a usable ACT.
func decodeAct(msg []byte) (protocol.ActMsg, string, string) {
	var act protocol.ActMsg
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return act, protocol.ErrProtoBadRequest, "malformed json"
	}
	if base.Type != protocol.TypeAct {
		return act, protocol.ErrProtoBadRequest, "expected ACT"
	}
	if err := json.Unmarshal(msg, &act); err != nil {
		return act, protocol.ErrProtoBadRequest, "bad ACT"
	}
	if act.ProtocolVersion != protocol.Version {
		return act, protocol.ErrProtoBadRequest, "bad protocol_version"
	}
	if act.Kind == "" {
		return act, protocol.ErrProtoBadRequest, "missing kind"
	}
	return act, "", ""
}

func reject(out chan []byte, act protocol.ActMsg, code, why string) {
	b, err := json.Marshal(protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ActID:           act.ID,
		Kind:            act.Kind,
		Result:          "BAD_REQUEST",
		Code:            code,
		Message:         why,
	})
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func closePolicy(conn *websocket.Conn, why string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, why), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
