package observer

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"merchantboard.ai/internal/observerproto"
	"merchantboard.ai/internal/protocol"
	"merchantboard.ai/internal/sim/merchant"
)

// Server lets local tooling watch a connected player's merchant without
// acting on it.
type Server struct {
	hub      *merchant.Hub
	serverID string
	log      *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(h *merchant.Hub, serverID string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		hub:      h,
		serverID: serverID,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only
		},
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		w := s.hub.Welcome()
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			ServerID:        s.serverID,
			Params:          w.Params,
			Catalogs:        w.Catalogs,
			Players:         s.hub.Players(),
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := decodeSubscribe(msg)
		if !ok {
			closeWith(conn, websocket.ClosePolicyViolation, "expected SUBSCRIBE")
			return
		}

		out := make(chan []byte, 256)
		svc := s.watch(sub.PlayerID, out)
		if svc == nil {
			closeWith(conn, websocket.ClosePolicyViolation, "unknown player")
			return
		}
		defer func() { s.unwatch(svc, out) }()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: a new SUBSCRIBE switches players.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			sub, ok := decodeSubscribe(msg)
			if !ok {
				continue
			}
			next := s.watch(sub.PlayerID, out)
			if next == nil {
				continue
			}
			if next != svc {
				s.unwatch(svc, out)
				svc = next
			}
		}

		cancel()
		closeWith(conn, websocket.CloseNormalClosure, "bye")

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// watch attaches out to a running player's service. Players that are not
// connected are not started.
func (s *Server) watch(playerID string, out chan []byte) *merchant.Service {
	running := false
	for _, id := range s.hub.Players() {
		if id == playerID {
			running = true
			break
		}
	}
	if !running {
		return nil
	}
	svc, err := s.hub.Get(playerID)
	if err != nil {
		return nil
	}
	hello, _ := json.Marshal(observerproto.WatchingMsg{Type: "WATCHING", ProtocolVersion: observerproto.Version, PlayerID: playerID})
	select {
	case out <- hello:
	default:
	}
	select {
	case svc.Attach() <- merchant.AttachRequest{Hello: protocol.HelloMsg{PlayerID: playerID}, Out: out}:
	case <-time.After(time.Second):
		return nil
	}
	return svc
}

func (s *Server) unwatch(svc *merchant.Service, out chan []byte) {
	select {
	case svc.Detach() <- out:
	case <-time.After(time.Second):
		// Service is stopping; nothing else to do.
	}
}

func decodeSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	sub.PlayerID = strings.TrimSpace(sub.PlayerID)
	return sub, sub.PlayerID != ""
}

func closeWith(conn *websocket.Conn, code int, why string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, why), time.Now().Add(time.Second))
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
