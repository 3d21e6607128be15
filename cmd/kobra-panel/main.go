// kobra-panel is the DGUS touch panel host for AnyCubic Kobra class
// printers. It drives the panel serial link, mirrors the machine state
// onto the panel pages, and manages power-loss recovery snapshots.
//
// Usage:
//
//	kobra-panel -config /etc/kobra/panel.yaml [options]
//
// Options:
//
//	-config string   Host configuration file (required)
//	-logfile string  Write logs to a rotating file instead of stderr
//	-sim             Run against the built-in printer simulator
//	-verbose         Enable debug logging
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/bridge"
	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/config"
	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/log"
	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/panel"
	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/printer"
	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/recovery"
	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/serial"
	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/telemetry"
)

// tickInterval paces the panel loop. The panel pushes at most a few
// frames per poll window, so 10ms keeps key latency invisible.
const tickInterval = 10 * time.Millisecond

const (
	version     = "v1.4.2"
	buildVolume = "220x220x250"
	techSupport = "support@anycubic.com"
)

// panelNotifier forwards outage notifications to the panel engine and
// the telemetry broker. The indirection exists because the recovery
// engine is built before the components that observe it.
type panelNotifier struct {
	eng *panel.Engine
	pub *telemetry.Publisher
}

func (n *panelNotifier) PowerLoss() {
	if n.eng != nil {
		n.eng.PowerLoss()
	}
	if n.pub != nil {
		n.pub.PublishEvent("power_loss", "supply voltage collapsed")
	}
}

// commandRouter intercepts the recovery control commands the panel
// injects. In the firmware build M1000 is a G-code handler; here the
// recovery engine lives host-side, so the commands are routed to it
// and everything else passes through to the controller.
type commandRouter struct {
	printer.Controller
	rec *recovery.Engine
}

var _ printer.Controller = (*commandRouter)(nil)

func (r *commandRouter) Inject(cmds ...string) {
	for _, cmd := range cmds {
		for _, line := range strings.Split(cmd, "\n") {
			switch strings.TrimSpace(line) {
			case "M1000":
				r.rec.Resume()
			case "M1000 C":
				r.rec.Cancel()
			default:
				r.Controller.Inject(line)
			}
		}
	}
}

func main() {
	configFile := flag.String("config", "", "Host configuration file (required)")
	logFile := flag.String("logfile", "", "Write logs to a rotating file instead of stderr")
	sim := flag.Bool("sim", false, "Run against the built-in printer simulator")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *configFile == "" {
		fmt.Fprintf(os.Stderr, "Error: -config is required\n")
		flag.Usage()
		os.Exit(1)
	}

	logger := log.New("main")

	if *verbose {
		log.SetLevel(log.DEBUG)
	}
	if *logFile != "" {
		w, err := log.NewRotatingWriter(*logFile, 0, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: open log file: %v\n", err)
			os.Exit(1)
		}
		defer w.Close()
		log.SetOutput(w)
		log.SetColorize(false)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("config: %v", err)
		os.Exit(1)
	}

	logger.Info("kobra-panel starting, machine=%q device=%s",
		cfg.Machine.Name, cfg.Serial.Device)

	// The controller is the firmware-facing side of the host. The
	// simulator stands in when no machine is attached.
	ctrl := printer.NewSimulator()
	if *sim {
		ctrl.SetMedia(true, []string{"BENCHY.GCO", "CUBE.GCO"})
	}
	ctrl.SetCaseLight(cfg.Panel.CaseLightOn)

	link, source, closeLink, err := openPanelLink(cfg.Serial)
	if err != nil {
		logger.Error("panel link: %v", err)
		os.Exit(1)
	}
	defer closeLink()

	notifier := &panelNotifier{}

	rec := recovery.New(ctrl, recovery.NewFileStore(cfg.Recovery.StorePath), recovery.Options{
		SaveInterval: cfg.Recovery.SaveInterval.Std(),
		MinZChange:   cfg.Recovery.MinZChange,
		ZRaise:       cfg.Recovery.ZRaise,
		ZMax:         cfg.Machine.ZMaxPos,
		BackupPower:  cfg.Recovery.BackupPower,
		Notifier:     notifier,
	})
	routed := &commandRouter{Controller: ctrl, rec: rec}

	eng := panel.New(panel.Options{
		Controller:      routed,
		Link:            link,
		Source:          source,
		Recovery:        rec,
		Language:        panel.ParseLanguage(cfg.Panel.Language),
		AudioOn:         cfg.Panel.AudioOn,
		MachineName:     cfg.Machine.Name,
		FirmwareVersion: version,
		BuildVolume:     buildVolume,
		TechSupport:     techSupport,
		GridPoints:      cfg.Machine.GridRows * cfg.Machine.GridCols,
	})
	notifier.eng = eng

	if cfg.Recovery.Enabled {
		rec.Enable(true)
		if err := rec.Check(); err != nil {
			logger.Warn("recovery check: %v", err)
		}
		if rec.Pending() {
			eng.PowerLossRecovery()
		}
	}

	var srv *bridge.Server
	if cfg.Bridge.Enabled {
		srv = bridge.New(bridge.Config{
			Addr:       cfg.Bridge.Listen,
			Controller: routed,
			Panel:      eng,
			Recovery:   rec,
		})
		go func() {
			if err := srv.Start(); err != nil {
				logger.Warn("bridge stopped: %v", err)
			}
		}()
	}

	var pub *telemetry.Publisher
	if cfg.Telemetry.Enabled {
		pub, err = telemetry.NewFromURL(cfg.Telemetry.BrokerURL)
		if err != nil {
			logger.Error("telemetry: %v", err)
			os.Exit(1)
		}
		if err := pub.Connect(10 * time.Second); err != nil {
			logger.Warn("telemetry connect: %v", err)
		}
		defer pub.Close()
		notifier.pub = pub
	}

	eng.Init()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	lastTelemetry := time.Time{}

	for {
		select {
		case sig := <-sigCh:
			logger.Info("received %v, shutting down", sig)
			if srv != nil {
				srv.Stop()
			}
			return

		case <-ticker.C:
			eng.Tick()

			if cfg.Recovery.Enabled {
				rec.Outage()
				if ctrl.PrintingFromMedia() {
					rec.Save(false, 0)
				}
			}

			if pub != nil && time.Since(lastTelemetry) >= 5*time.Second {
				lastTelemetry = time.Now()
				publishState(pub, eng, ctrl, logger)
			}
		}
	}
}

func publishState(pub *telemetry.Publisher, eng *panel.Engine, ctrl printer.Controller, logger *log.Logger) {
	st := eng.Status()
	err := pub.PublishState(telemetry.State{
		State:        st.State,
		PauseReason:  st.PauseReason,
		HotendActual: ctrl.HotendActual(),
		HotendTarget: ctrl.HotendTarget(),
		BedActual:    ctrl.BedActual(),
		BedTarget:    ctrl.BedTarget(),
		Printing:     ctrl.Printing(),
		File:         ctrl.Selected(),
		Progress:     ctrl.ProgressPercent(),
		Elapsed:      ctrl.ElapsedSeconds(),
	})
	if err != nil {
		logger.Warn("telemetry publish: %v", err)
	}
}

// openPanelLink opens the panel transport from the serial section and
// wraps the read side as a non-blocking byte source.
func openPanelLink(cfg config.SerialConfig) (io.Writer, panel.ByteSource, func(), error) {
	var port *serial.Port
	var err error

	if cfg.Socket != "" {
		port, err = serial.OpenSocket(cfg.Socket, 10*time.Second)
	} else {
		sc := serial.DefaultConfig()
		sc.Device = cfg.Device
		sc.BaudRate = cfg.BaudRate
		port, err = serial.Open(sc)
	}
	if err != nil {
		return nil, nil, nil, err
	}

	src := newPortSource(port)
	return port, src, func() {
		src.stop()
		port.Close()
	}, nil
}

// portSource pumps serial bytes into a channel so the panel loop can
// poll without blocking on the tty.
type portSource struct {
	ch   chan byte
	done chan struct{}
}

func newPortSource(port *serial.Port) *portSource {
	s := &portSource{
		ch:   make(chan byte, 4096),
		done: make(chan struct{}),
	}
	go func() {
		buf := make([]byte, 256)
		for {
			select {
			case <-s.done:
				return
			default:
			}
			n, err := port.Read(buf)
			if err != nil {
				if err == serial.ErrTimeout {
					continue
				}
				return
			}
			for _, b := range buf[:n] {
				select {
				case s.ch <- b:
				case <-s.done:
					return
				}
			}
		}
	}()
	return s
}

func (s *portSource) ReadByte() (byte, bool) {
	select {
	case b := <-s.ch:
		return b, true
	default:
		return 0, false
	}
}

func (s *portSource) stop() {
	close(s.done)
}
