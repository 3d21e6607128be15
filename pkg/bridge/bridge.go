// Package bridge exposes the panel host state over HTTP and WebSocket
// so a web frontend or a support tool can watch the machine without
// touching the panel serial link.
package bridge

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/log"
	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/panel"
	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/printer"
)

// PanelSource reports the panel session state.
type PanelSource interface {
	Status() panel.Status
}

// RecoverySource reports the pending power-loss snapshot.
type RecoverySource interface {
	Pending() bool
	Filename() string
	Progress() uint8
}

// Config holds server configuration.
type Config struct {
	// Addr is the HTTP address to listen on (e.g. ":7130").
	Addr string

	Controller printer.Controller
	Panel      PanelSource
	Recovery   RecoverySource

	// PushInterval is the WebSocket status push rate. Zero means the
	// default 250ms.
	PushInterval time.Duration
}

// Server serves the status API.
type Server struct {
	log  *log.Logger
	ctrl printer.Controller
	pnl  PanelSource
	rec  RecoverySource

	httpServer   *http.Server
	addr         string
	pushInterval time.Duration

	wsUpgrader websocket.Upgrader
	wsClients  map[int64]*wsClient
	wsClientMu sync.Mutex
	nextWSID   int64

	running   atomic.Bool
	startTime time.Time
}

func New(cfg Config) *Server {
	interval := cfg.PushInterval
	if interval == 0 {
		interval = 250 * time.Millisecond
	}
	s := &Server{
		log:          log.New("bridge"),
		ctrl:         cfg.Controller,
		pnl:          cfg.Panel,
		rec:          cfg.Recovery,
		addr:         cfg.Addr,
		pushInterval: interval,
		wsClients:    make(map[int64]*wsClient),
		startTime:    time.Now(),
	}
	s.wsUpgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	return s
}

// Handler builds the route table. Exposed separately from Start so
// tests can drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/printer/status", s.handleStatus)
	mux.HandleFunc("/printer/recovery", s.handleRecovery)
	mux.HandleFunc("/printer/gcode", s.handleGCode)
	mux.HandleFunc("/websocket", s.handleWebSocket)
	return s.corsMiddleware(mux)
}

// Start serves until Stop or a listener error.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}
	s.running.Store(true)
	s.log.Info("status bridge listening on %s", s.addr)

	go s.pushLoop()

	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop() error {
	s.running.Store(false)

	s.wsClientMu.Lock()
	for _, c := range s.wsClients {
		c.close()
	}
	s.wsClients = make(map[int64]*wsClient)
	s.wsClientMu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// StatusReport is the /printer/status payload.
type StatusReport struct {
	Panel panel.Status `json:"panel"`

	Hotend TempReport `json:"hotend"`
	Bed    TempReport `json:"bed"`

	Job JobReport `json:"job"`

	Uptime float64 `json:"uptime"`
}

type TempReport struct {
	Actual float64 `json:"actual"`
	Target float64 `json:"target"`
}

type JobReport struct {
	Printing    bool   `json:"printing"`
	File        string `json:"file"`
	Progress    uint8  `json:"progress"`
	Elapsed     uint32 `json:"elapsed"`
	FeedratePct int    `json:"feedrate_pct"`
	FanPct      int    `json:"fan_pct"`
}

// RecoveryReport is the /printer/recovery payload.
type RecoveryReport struct {
	Pending  bool   `json:"pending"`
	Filename string `json:"filename"`
	Progress uint8  `json:"progress"`
}

func (s *Server) statusReport() StatusReport {
	return StatusReport{
		Panel: s.pnl.Status(),
		Hotend: TempReport{
			Actual: s.ctrl.HotendActual(),
			Target: s.ctrl.HotendTarget(),
		},
		Bed: TempReport{
			Actual: s.ctrl.BedActual(),
			Target: s.ctrl.BedTarget(),
		},
		Job: JobReport{
			Printing:    s.ctrl.Printing(),
			File:        s.ctrl.Selected(),
			Progress:    s.ctrl.ProgressPercent(),
			Elapsed:     s.ctrl.ElapsedSeconds(),
			FeedratePct: s.ctrl.FeedratePercent(),
			FanPct:      s.ctrl.FanPercent(),
		},
		Uptime: time.Since(s.startTime).Seconds(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.statusReport())
}

func (s *Server) handleRecovery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	report := RecoveryReport{}
	if s.rec != nil {
		report.Pending = s.rec.Pending()
		report.Filename = s.rec.Filename()
		report.Progress = s.rec.Progress()
	}
	s.writeJSON(w, report)
}

func (s *Server) handleGCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Script string `json:"script"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeJSONError(w, "invalid body")
		return
	}
	if body.Script == "" {
		s.writeJSONError(w, "missing 'script'")
		return
	}

	s.ctrl.Inject(body.Script)
	s.writeJSON(w, map[string]string{"result": "ok"})
}

// CORS headers for browser frontends served from another origin.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeJSONError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
