package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	persistlog "merchantboard.ai/internal/persistence/log"
	"merchantboard.ai/internal/sim/catalogs"
	"merchantboard.ai/internal/sim/merchant"
	"merchantboard.ai/internal/sim/tuning"
	"merchantboard.ai/internal/transport/observer"
	"merchantboard.ai/internal/transport/ws"
)

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	cats, err := catalogs.Load(cfg.ConfigDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	tune, err := tuning.Load(cfg.Tuning)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", cfg.Tuning)
		tune = tuning.Defaults()
	}

	stores, db, err := openStoreBackend(cfg, logger)
	if err != nil {
		logger.Fatalf("open save db: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	hub := merchant.NewHub(tune, cats, stores, logger)
	auditLog := persistlog.NewAuditLogger(cfg.DataDir)
	defer auditLog.Close()
	hub.SetAuditLogger(auditLog)
	if cfg.EnableActLog {
		actLog := persistlog.NewActLogger(cfg.DataDir)
		defer actLog.Close()
		hub.SetActLogger(actLog)
	}
	if err := restoreLatest(hub, cfg, logger); err != nil {
		logger.Fatalf("restore: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	// Services stop with hubCtx, after the final snapshot below.
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub.Start(hubCtx)

	var index snapshotRecorder
	if db != nil {
		index = db
	}
	snaps := newSnapshotter(hub, cfg.snapshotDir(), cfg.ServerID, index, logger)
	if err := snaps.Schedule(hubCtx, cfg.SnapshotCron); err != nil {
		logger.Fatalf("snapshots: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(cfg, hub, snaps, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	snaps.Stop()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	if path, err := snaps.Write(ctx2); err != nil {
		logger.Printf("final snapshot: %v", err)
	} else {
		logger.Printf("final snapshot: %s", path)
	}
	cancel2()
	stopHub()
	hub.Wait()
}

func newMux(cfg serverConfig, hub *merchant.Hub, snaps *snapshotter, logger *log.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP merchant_players Players with a running merchant service.\n")
		fmt.Fprintf(rw, "# TYPE merchant_players gauge\n")
		fmt.Fprintf(rw, "merchant_players{server=%q} %d\n", cfg.ServerID, len(hub.Players()))

		fmt.Fprintf(rw, "# HELP merchant_snapshots_total Snapshot writes by outcome.\n")
		fmt.Fprintf(rw, "# TYPE merchant_snapshots_total counter\n")
		fmt.Fprintf(rw, "merchant_snapshots_total{server=%q,result=%q} %d\n", cfg.ServerID, "ok", snaps.written.Load())
		fmt.Fprintf(rw, "merchant_snapshots_total{server=%q,result=%q} %d\n", cfg.ServerID, "error", snaps.failed.Load())

		fmt.Fprintf(rw, "# HELP merchant_last_snapshot_unix Unix time of the last written snapshot.\n")
		fmt.Fprintf(rw, "# TYPE merchant_last_snapshot_unix gauge\n")
		fmt.Fprintf(rw, "merchant_last_snapshot_unix{server=%q} %d\n", cfg.ServerID, snaps.lastUnix.Load())
	})

	if cfg.EnableAdminHTTP {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				ServerID string   `json:"server_id"`
				Players  []string `json:"players"`
			}{
				ServerID: cfg.ServerID,
				Players:  hub.Players(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
		mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel2()
			path, err := snaps.Write(ctx2)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "path": path})
		})

		obsSrv := observer.NewServer(hub, cfg.ServerID, logger)
		mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
		mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	} else {
		logger.Printf("admin endpoints disabled (MERCHANT_ENABLE_ADMIN_HTTP=false)")
	}
	if cfg.EnablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(hub, logger).Handler())
	return mux
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
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
