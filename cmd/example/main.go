// Command example wires the core library into a small HTTP server: the
// demo-only surface the specification places outside the core itself
// (§1: "Any RPC/HTTP surface" is a named external collaborator, not part
// of the engine). It mirrors the teacher SDK's cmd/example: a handful of
// endpoints instrumented with counters and a histogram, plus a live
// websocket feed of each gather cycle.
package main

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/nicktill/gometrics/pkg/farm"
	"github.com/nicktill/gometrics/pkg/httpx"
	"github.com/nicktill/gometrics/pkg/metrics"
)

func main() {
	f := farm.Instance()

	app := farm.NewGroup()
	requestsIdx := app.RegisterCounter("http_requests_total", " HTTP requests served", "", metrics.PublishAsCounter)
	errorsIdx := app.RegisterCounter("http_errors_total", " HTTP 5xx responses", "", metrics.PublishAsCounter)
	activeIdx := app.RegisterGauge("active_requests", " requests currently in flight", "")
	latencyIdx := app.RegisterHistogram("http_request_duration_usecs", " request latency", "", nil)
	f.Register(app)

	runtimeGroup := farm.NewRuntimeGroup()
	f.Register(runtimeGroup.Group)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go runtimeGroup.Start(ctx, 15*time.Second)

	hub := newMetricsHub()
	go hub.run(ctx)
	go gatherLoop(ctx, f, hub, 5*time.Second)

	r := mux.NewRouter()
	r.HandleFunc("/", handleRoot(app, requestsIdx, errorsIdx, activeIdx, latencyIdx)).Methods(http.MethodGet)
	r.HandleFunc("/metrics", handleMetrics(f)).Methods(http.MethodGet)
	r.HandleFunc("/ws", hub.handleUpgrade)

	srv := &http.Server{
		Addr:         listenAddr(),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("gometrics example listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func listenAddr() string {
	if addr := os.Getenv("GOMETRICS_EXAMPLE_ADDR"); addr != "" {
		return addr
	}
	return ":8090"
}

func handleRoot(g *farm.Group, requestsIdx, errorsIdx, activeIdx, latencyIdx int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		active := g.Gauge(activeIdx)
		active.Update(active.Get() + 1)
		defer func() { active.Update(active.Get() - 1) }()

		time.Sleep(time.Duration(rand.Intn(5000)) * time.Microsecond)

		g.Counter(requestsIdx).Increment(1)
		if rand.Float32() < 0.02 {
			g.Counter(errorsIdx).Increment(1)
			httpx.RespondErrorString(w, http.StatusInternalServerError, "simulated failure")
			return
		}

		g.Histogram(latencyIdx).Observe(time.Since(start).Microseconds())

		httpx.RespondJSON(w, http.StatusOK, map[string]string{
			"message":   "hello from gometrics",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

func handleMetrics(f *farm.Farm) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := f.Gather()
		if err != nil {
			httpx.RespondError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func gatherLoop(ctx context.Context, f *farm.Farm, hub *metricsHub, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			body, err := f.Gather()
			if err != nil {
				log.Printf("gather: %v", err)
			}
			if hub.hasClients() {
				hub.broadcast([]byte(body))
			}
		}
	}
}

// metricsHub streams each gather cycle's JSON to connected websocket
// clients: the demo-only "external sink" collaborator from SPEC_FULL.md's
// domain-stack section, grounded on the teacher's ingest.MetricsHub.
type metricsHub struct {
	upgrader    websocket.Upgrader
	register    chan *websocket.Conn
	unregister  chan *websocket.Conn
	broadcastC  chan []byte
	clients     map[*websocket.Conn]bool
	clientCount atomic.Int32 // mirrors len(clients); run() owns clients, any goroutine may read this
}

func newMetricsHub() *metricsHub {
	return &metricsHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		register:   make(chan *websocket.Conn, 8),
		unregister: make(chan *websocket.Conn, 8),
		broadcastC: make(chan []byte, 16),
		clients:    make(map[*websocket.Conn]bool),
	}
}

func (h *metricsHub) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	h.register <- conn
}

func (h *metricsHub) hasClients() bool { return h.clientCount.Load() > 0 }

func (h *metricsHub) broadcast(data []byte) {
	select {
	case h.broadcastC <- data:
	default:
		// Channel full: drop rather than block the gather loop.
	}
}

func (h *metricsHub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for conn := range h.clients {
				conn.Close()
			}
			return
		case conn := <-h.register:
			h.clients[conn] = true
			h.clientCount.Store(int32(len(h.clients)))
		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
				h.clientCount.Store(int32(len(h.clients)))
			}
		case msg := <-h.broadcastC:
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					h.unregister <- conn
				}
			}
		}
	}
}
