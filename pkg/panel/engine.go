// Package panel drives an AnyCubic DGUS II serial touch panel. The
// Engine decodes key reports and variable writes from the panel,
// tracks which page is displayed, and pushes temperature, progress and
// file list updates back. All panel traffic goes through a cooperative
// Tick that the host calls from its main loop.
package panel

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/errors"
	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/log"
	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/printer"
)

// Machine limits used to clamp panel input. Values outside these are
// panel glitches, not user intent.
const (
	hotendMinTemp = 5
	hotendMaxTemp = 275
	bedMinTemp    = 5
	bedMaxTemp    = 120

	feedrateMinPct = 40
	feedrateMaxPct = 999

	// heaterFaultSamples is how many consecutive bad readings are
	// needed before a heater fault is reported.
	heaterFaultSamples = 5

	zOffsetStep  = 0.05
	zOffsetLimit = 5.0

	levelingNozzleTemp = 120
	levelingBedTemp    = 60

	// filamentWarmTemp gates manual load/unload, filamentWorkTemp is
	// the target set while feeding.
	filamentWarmTemp = 220
	filamentWorkTemp = 230

	moveFeedXY = 3000 // mm/min
	moveFeedZ  = 480
)

// G-code injected for panel actions.
const (
	cmdEnableLeveling  = "M420 S1 V1"
	cmdSaveSettings    = "M500"
	cmdResumeRecovery  = "M1000"
	cmdCancelRecovery  = "M1000 C"
	cmdLevelingStart   = "M851 Z0\nG28\nG29"
	cmdLoadFilament    = "M83\nG1 E50 F700\nM82"
	cmdUnloadFilament  = "M83\nG1 E-50 F1200\nM82"
	cmdUnloadFirstPush = "M83\nG1 E10 F700\nG1 E-80 F1200\nM82"
)

// RecoveryInfo is what the panel needs to offer a resume after a
// power outage.
type RecoveryInfo interface {
	Pending() bool
	Filename() string
	Progress() uint8
}

type noRecovery struct{}

func (noRecovery) Pending() bool    { return false }
func (noRecovery) Filename() string { return "" }
func (noRecovery) Progress() uint8  { return 0 }

// Options configures an Engine.
type Options struct {
	Controller printer.Controller

	// Link transmits encoded frames to the panel.
	Link io.Writer

	// Source supplies panel bytes to the decoder.
	Source ByteSource

	// Recovery reports a pending power-loss snapshot. May be nil.
	Recovery RecoveryInfo

	Language Language
	AudioOn  bool

	// MachineName is stripped from firmware status messages and shown
	// on the about page.
	MachineName     string
	FirmwareVersion string
	BuildVolume     string
	TechSupport     string

	// GridPoints is the probe mesh point count, used to detect a
	// completed leveling run.
	GridPoints int
}

// Engine is the panel protocol state machine.
type Engine struct {
	mu   sync.Mutex
	log  *log.Logger
	ctrl printer.Controller
	link io.Writer
	dec  *Decoder
	now  func() time.Time
	rec  RecoveryInfo

	machineName string
	fwVersion   string
	buildVolume string
	techSupport string
	gridPoints  int

	lang       Language
	audio      bool
	langSaved  Language
	audioSaved bool

	pageNow     Page
	pageLast    Page
	pageLast2   Page
	pageEntered time.Time

	state       printerState
	pause       pauseState
	hotendState heaterState
	bedState    heaterState

	keyValue uint16
	popup    int

	liveZOffset float64

	nav             *navigator
	txtboxPage      int
	txtboxIndex     int
	txtboxIndexLast int

	moveDistance float64
	moveSpeed    int

	adjustZChanged bool
	levelZChanged  bool
	filament       filamentCmd

	feedrateLast int
	progressLast uint8

	mainTempAt      time.Time
	statusFlashAt   time.Time
	tempFlashAt     time.Time
	speedFlashAt    time.Time
	preheatFlashAt  time.Time
	filamentFlashAt time.Time

	probeTared   bool
	probeWasOn   bool
	probeChecks  int
	probeCheckAt time.Time
	probePoints  int

	faultHotend int
	faultBed    int
	heatersAt   time.Time
}

// New builds an Engine. It does not touch the link; call Init once the
// panel is ready to receive.
func New(opts Options) *Engine {
	rec := opts.Recovery
	if rec == nil {
		rec = noRecovery{}
	}
	e := &Engine{
		log:          log.New("panel"),
		ctrl:         opts.Controller,
		link:         opts.Link,
		dec:          NewDecoder(opts.Source),
		now:          time.Now,
		rec:          rec,
		machineName:  opts.MachineName,
		fwVersion:    opts.FirmwareVersion,
		buildVolume:  opts.BuildVolume,
		techSupport:  opts.TechSupport,
		gridPoints:   opts.GridPoints,
		lang:         opts.Language,
		audio:        opts.AudioOn,
		langSaved:    opts.Language,
		audioSaved:   opts.AudioOn,
		popup:        popupNone,
		moveDistance: 1.0,
		moveSpeed:    3000,
		nav:          newNavigator(opts.Controller),
	}
	e.pageNow = startPage(e.lang)
	return e
}

// Init pushes the startup state to the panel: beeper setting, the
// leveling enable, and a read of the boot register so the panel
// reports when its splash finishes.
func (e *Engine) Init() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ctrl.Inject(cmdEnableLeveling)
	e.write(EncodeAudio(e.audio))
	e.write(EncodeReadRequest(regLCDReady, 1))
	e.log.Info("panel init, language=%s audio=%v", e.lang, e.audio)
}

// Tick runs one iteration of the panel loop: drain the decoder,
// refresh the main temperatures, run the active page handler, flush
// queued popups and watch the heaters.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.poll()

	if e.elapsed(&e.mainTempAt, 1500*time.Millisecond) {
		e.sendText(txtMainHotend, e.tempPair(e.ctrl.HotendActual(), e.ctrl.HotendTarget()))
		e.sendText(txtMainBed, e.tempPair(e.ctrl.BedActual(), e.ctrl.BedTarget()))
	}

	e.dispatchPage()
	e.popupManager()
	e.keyValue = 0
	e.checkHeaters()
}

func (e *Engine) poll() {
	for {
		f, err := e.dec.Poll()
		if err != nil {
			e.log.Warn("panel frame: %v", err)
			return
		}
		if f == nil {
			return
		}
		e.processFrame(f)
		return // one frame per tick, matching the panel poll rate
	}
}

func (e *Engine) processFrame(f *Frame) {
	if f.Opcode() != OpRead {
		return
	}
	addr := f.Address()

	switch {
	case addr&keyAddressMask == keyAddressBase:
		e.keyValue = f.Value()

	case addr == txtHotendTarget || addr == txtAdjustHotend:
		e.ctrl.SetHotendTarget(clamp(float64(f.Value()), 0, hotendMaxTemp))

	case addr == txtBedTarget || addr == txtAdjustBed:
		e.ctrl.SetBedTarget(clamp(float64(f.Value()), 0, bedMaxTemp))

	case addr == txtFanSpeedTarget:
		pct := int(clamp(float64(f.Value()), 0, 100))
		e.sendValue(txtFanSpeedNow, uint16(pct))
		e.sendValue(txtFanSpeedTarget, uint16(pct))
		e.ctrl.SetFanPercent(pct)

	case addr == txtPrintSpeedTarget || addr == txtAdjustSpeed:
		pct := int(clamp(float64(f.Value()), feedrateMinPct, feedrateMaxPct))
		e.sendText(txtPrintSpeed, fmt.Sprintf("%d", pct))
		e.sendValue(txtPrintSpeedNow, uint16(pct))
		e.sendValue(txtPrintSpeedTarget, uint16(pct))
		e.ctrl.SetFeedratePercent(pct)

	case addr == txtPreheatHotendInput:
		e.ctrl.SetHotendTarget(clamp(float64(f.Value()), 0, hotendMaxTemp))

	case addr == txtPreheatBedInput:
		e.ctrl.SetBedTarget(clamp(float64(f.Value()), 0, bedMaxTemp))

	case addr == regLCDReady:
		e.lcdReady(f.Value24())
	}
}

// lcdReady handles the boot register report. The panel sends one value
// when its first splash starts and another when the last one ends.
func (e *Engine) lcdReady(value uint32) {
	switch value {
	case lcdReadyMagic:
		e.write(EncodeAudio(e.audio))
		e.sendValue(addrMoveDistance, 2)
		e.sendValue(addrSystemLEDStatus, boolWord(e.ctrl.CaseLight()))
		e.sendValue(addrPrintSettingLEDStatus, boolWord(e.ctrl.CaseLight()))

		if e.state == stateResumingFromPowerOutage {
			e.changePage(PageOutageRecovery)
			e.sendText(txtOutageRecoveryFile, displayName(e.rec.Filename()))
			e.sendText(txtOutageRecoveryProgress, fmt.Sprintf("%3d", e.rec.Progress()))
			e.ctrl.Play(printer.TuneSOS)
		} else {
			e.changePage(PageMain)
		}

	case 0x010000:
		e.ctrl.Play(printer.TuneBeep)
	}
}

// changePage switches the displayed page, remapping for the active
// language, and rotates the page history.
func (e *Engine) changePage(p Page) {
	resolved := RemapPage(e.lang, p)
	e.write(EncodePage(uint16(resolved)))
	e.pageLast2 = e.pageLast
	e.pageLast = e.pageNow
	e.pageNow = resolved
	e.pageEntered = e.now()
	e.log.Debug("page %d -> %d", e.pageLast, e.pageNow)
}

// silentChangePage rotates the history without transmitting. Used when
// the panel is known to be on the page already, or to pre-arm the
// history before a burst of updates.
func (e *Engine) silentChangePage(p Page) {
	resolved := RemapPage(e.lang, p)
	e.pageLast2 = e.pageLast
	e.pageLast = e.pageNow
	e.pageNow = resolved
	e.pageEntered = e.now()
}

func (e *Engine) write(frame []byte) {
	if _, err := e.link.Write(frame); err != nil {
		e.log.Error("panel write: %v", err)
	}
}

func (e *Engine) sendValue(addr, value uint16) {
	e.write(EncodeValue(addr, value))
}

func (e *Engine) sendText(addr uint16, text string) {
	e.write(EncodeText(addr, text))
}

func (e *Engine) sendColor(addr, color uint16) {
	e.write(EncodeColor(addr, color))
}

// clearRowHighlight repaints the selected file row back to blue.
func (e *Engine) clearRowHighlight() {
	if e.txtboxIndex > 0 {
		e.sendColor(txtDescribe0+uint16(fileSlotStep*(e.txtboxIndex-1)), colorBlue)
	}
}

// sendFileList pushes one browser page of file names starting at the
// given absolute index. Missing rows are blanked.
func (e *Engine) sendFileList(start int) {
	for i := 0; i < fileSlots; i++ {
		name, _ := e.nav.name(start + i)
		e.sendText(uint16(txtFile0+i*fileSlotStep), displayName(name))
	}
}

// dispatchPage runs the handler for the page currently displayed.
func (e *Engine) dispatchPage() {
	p := e.pageNow
	switch {
	case p == PageAutoOffset:
		e.pageAutoOffset()
	case p == PageSystemChsAudioOff || p == PageSystemEngAudioOff:
		e.pageSystem()
	case p == PageOutageRecovery || p == PageEngOutageRecovery:
		e.pageOutageRecovery()
	case p == PageEngProbePreheating || p == PageChsProbePreheating:
		// Probe preheating pages have no keys, the firmware flips
		// them from StatusChange.
	case p >= PageChsHoming && p <= PageEngAbnormalZREndstop:
		e.pageAbnormalReturn()
	case p == PageEngAbnormalLevelSensor || p == PageEngLevelingFailed:
		e.pageLevelingFailedReturn()
	case p == PageChsProbePrecheck || p == PageEngProbePrecheck:
		e.pageProbePrecheck()
	case p == PageChsProbePrecheckOK || p == PageEngProbePrecheckOK:
		e.pageProbePrecheckOK()
	case p == PageChsProbePrecheckFailed || p == PageEngProbePrecheckFailed:
		// Terminal page, leaves via its return key on the precheck
		// handler path.
	default:
		base := p
		if e.lang == LangENG {
			if p <= 120 || p >= 156 {
				e.log.Debug("%v", errors.PageUnknownError(uint32(p)))
				return
			}
			base = p - 120
		} else if p < 1 || p > 35 {
			e.log.Debug("%v", errors.PageUnknownError(uint32(p)))
			return
		}
		e.runBasePage(base)
	}
}

func (e *Engine) runBasePage(p Page) {
	switch p {
	case PageMain:
		e.pageMain()
	case PageFile:
		e.pageFile()
	case PageStatus1:
		e.pageStatusResume()
	case PageStatus2:
		e.pageStatusPause()
	case PageAdjust:
		e.pageAdjust()
	case PageTool:
		e.pageTool()
	case PageMove:
		e.pageMove()
	case PageTemp:
		e.pageTemp()
	case PageSpeed:
		e.pageSpeed()
	case PageSystemChsAudioOn:
		e.pageSystem()
	case PageWifi:
		e.pageWifi()
	case PageAbout:
		e.pageAbout()
	case PagePrepare:
		e.pagePrepare()
	case PagePreLevel:
		e.pagePreLevel()
	case PageLevelAdvance:
		e.pageLevelAdvance()
	case PagePreheat:
		e.pagePreheat()
	case PageFilament:
		e.pageFilament()
	case PageDone, PageAbnormal, PageForbid:
		e.pageReturnToLast()
	case PagePrintFinish:
		e.pagePrintFinish()
	case PageWaitStop:
		e.pageWaitDialog()
	case PageFilamentLack:
		e.pageFilamentLack()
	case PageStopConfirm:
		e.pageStopConfirm()
	case PageNoSD:
		e.pageNoSD()
	case PageFilamentHeat:
		e.pageFilamentHeat()
	case PageLevelEnsure:
		e.pageLevelEnsure()
	case PageLeveling:
		e.pageLeveling()
	}
}

// popupManager drains the queued popup request, translating it into a
// page change.
func (e *Engine) popupManager() {
	switch e.popup {
	case PopupHotendError:
		if e.pageNow != RemapPage(e.lang, PageAbnormal) {
			e.changePage(PageAbnormal)
		}

	case PopupFilamentLack, PopupFilamentPause:
		if e.pageNow != RemapPage(e.lang, PageFilamentLack) {
			e.changePage(PageFilamentLack)
		}

	case PopupStopWait:
		// Wait-stop interstitial is disabled, the stop path drives
		// pages directly.

	case PopupResumeReady:
		e.changePage(PageStatus1)

	case PopupPrintFinished:
		e.sendText(txtFinishTime, printTimeText(e.ctrl.ElapsedSeconds()))
		e.changePage(PagePrintFinish)

	case PopupLevelingDone:
		e.changePage(PagePreLevel)

	default:
		return
	}
	e.popup = popupNone
}

// checkHeaters samples the heater readings every 500ms and reports a
// fault only after several consecutive bad samples.
func (e *Engine) checkHeaters() {
	if !e.elapsed(&e.heatersAt, 500*time.Millisecond) {
		return
	}

	temp := e.ctrl.HotendActual()
	if temp < hotendMinTemp || temp > hotendMaxTemp {
		e.faultHotend++
		if e.faultHotend >= heaterFaultSamples {
			e.log.Warn("hotend temperature abnormal: %.1f", temp)
			e.faultHotend = 0
		}
	}

	temp = e.ctrl.BedActual()
	if temp < bedMinTemp || temp > bedMaxTemp {
		e.faultBed++
		if e.faultBed >= heaterFaultSamples {
			e.log.Warn("bed temperature abnormal: %.1f", temp)
			e.faultBed = 0
		}
	}
}

// RequestPopup queues a popup for the next tick. Unknown codes are
// dropped by the popup manager.
func (e *Engine) RequestPopup(code int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.popup = code
}

// Status is a read-only snapshot for the status API.
type Status struct {
	Page        uint16 `json:"page"`
	State       string `json:"state"`
	PauseReason string `json:"pause_reason"`
	Language    string `json:"language"`
	AudioOn     bool   `json:"audio_on"`
}

// Status reports the panel session state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		Page:        uint16(e.pageNow),
		State:       e.state.String(),
		PauseReason: e.pause.String(),
		Language:    e.lang.String(),
		AudioOn:     e.audio,
	}
}

// elapsed reports whether the interval has passed since *at, and if so
// rearms it.
func (e *Engine) elapsed(at *time.Time, interval time.Duration) bool {
	now := e.now()
	if now.Sub(*at) < interval {
		return false
	}
	*at = now
	return true
}

func (e *Engine) tempPair(actual, target float64) string {
	return fmt.Sprintf("%d/%d", int(actual), int(target))
}

// printTimeText renders elapsed seconds the way the status page shows
// them, hours and minutes right-justified.
func printTimeText(seconds uint32) string {
	mins := seconds / 60
	return fmt.Sprintf("%3d H %3d M", mins/60, mins%60)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func boolWord(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}
