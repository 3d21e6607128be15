package panel

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/printer"
)

// frameLog records every frame the engine transmits.
type frameLog struct {
	frames [][]byte
}

func (l *frameLog) Write(p []byte) (int, error) {
	cp := append([]byte(nil), p...)
	l.frames = append(l.frames, cp)
	return len(p), nil
}

func (l *frameLog) contains(frame []byte) bool {
	for _, f := range l.frames {
		if bytes.Equal(f, frame) {
			return true
		}
	}
	return false
}

func (l *frameLog) reset() {
	l.frames = nil
}

type fakeRecovery struct {
	pending  bool
	filename string
	progress uint8
}

func (r fakeRecovery) Pending() bool    { return r.pending }
func (r fakeRecovery) Filename() string { return r.filename }
func (r fakeRecovery) Progress() uint8  { return r.progress }

func newTestEngine(t *testing.T) (*Engine, *printer.Simulator, *byteQueue, *frameLog) {
	t.Helper()
	sim := printer.NewSimulator()
	src := &byteQueue{}
	link := &frameLog{}
	e := New(Options{
		Controller:  sim,
		Link:        link,
		Source:      src,
		Language:    LangCHS,
		AudioOn:     true,
		MachineName: "Kobra",
		GridPoints:  25,
	})
	return e, sim, src, link
}

// pressKey feeds one key report frame and runs a tick.
func pressKey(e *Engine, src *byteQueue, key byte) {
	src.push([]byte{0x5A, 0xA5, 0x06, 0x83, 0x10, 0x00, 0x01, 0x00, key})
	e.Tick()
}

func TestMainToTool(t *testing.T) {
	e, _, src, link := newTestEngine(t)

	pressKey(e, src, keyMainToTool)

	if got := e.Status().Page; got != uint16(PageTool) {
		t.Fatalf("page = %d, want %d", got, PageTool)
	}
	if !link.contains(EncodePage(uint16(PageTool))) {
		t.Fatalf("no page change frame sent")
	}
}

func TestFileBrowserListsMedia(t *testing.T) {
	e, sim, src, link := newTestEngine(t)
	sim.SetMedia(true, []string{"BENCHY.GCO", "CUBE.GCO"})
	e.MediaEvent(MediaInserted)

	link.reset()
	pressKey(e, src, keyMainToFile)

	if got := e.Status().Page; got != uint16(PageFile) {
		t.Fatalf("page = %d, want %d", got, PageFile)
	}
	if !link.contains(EncodeText(txtFile0, "BENCHY.GCO")) {
		t.Fatalf("first file row not sent")
	}
	if !link.contains(EncodeText(txtFile0+fileSlotStep, "CUBE.GCO")) {
		t.Fatalf("second file row not sent")
	}
}

func TestStartPrintFromFile(t *testing.T) {
	e, sim, src, link := newTestEngine(t)
	sim.SetMedia(true, []string{"BENCHY.GCO"})
	e.MediaEvent(MediaInserted)

	pressKey(e, src, keyMainToFile)
	pressKey(e, src, keyFileSlot0)
	pressKey(e, src, keyFilePrint)

	if got := sim.StartedFile(); got != "BENCHY.GCO" {
		t.Fatalf("started %q, want BENCHY.GCO", got)
	}
	if !sim.CaseLight() {
		t.Fatalf("case light not switched on")
	}
	if got := e.Status().Page; got != uint16(PageStatus2) {
		t.Fatalf("page = %d, want %d", got, PageStatus2)
	}
	if !link.contains(EncodeText(txtPrintName, "BENCHY.GCO")) {
		t.Fatalf("job name not sent")
	}
}

func TestPauseAndResumeKeys(t *testing.T) {
	e, sim, src, _ := newTestEngine(t)
	sim.SetMedia(true, []string{"BENCHY.GCO"})
	e.MediaEvent(MediaInserted)

	pressKey(e, src, keyMainToFile)
	pressKey(e, src, keyFileSlot0)
	pressKey(e, src, keyFilePrint)
	e.TimerEvent(TimerStarted)

	pressKey(e, src, keyPauseResume)
	if !sim.JobPaused() {
		t.Fatalf("pause key did not pause the job")
	}
	if got := e.Status(); got.State != "pausing" || got.Page != uint16(PageWaitPause) {
		t.Fatalf("after pause: state=%s page=%d", got.State, got.Page)
	}

	e.ConfirmationRequest("Print Paused")
	if got := e.Status(); got.State != "paused" || got.Page != uint16(PageStatus1) {
		t.Fatalf("after park: state=%s page=%d", got.State, got.Page)
	}

	pressKey(e, src, keyPauseResume)
	if sim.JobPaused() {
		t.Fatalf("resume key did not resume the job")
	}
	if got := e.Status().Page; got != uint16(PageStatus2) {
		t.Fatalf("page = %d, want %d", got, PageStatus2)
	}
}

func TestHeaterTimeoutResumeConfirms(t *testing.T) {
	e, sim, _, _ := newTestEngine(t)
	sim.SetPrintingFromMedia(true)
	e.TimerEvent(TimerStarted)
	e.ConfirmationRequest("Heater Timeout")

	if got := e.Status().PauseReason; got != "heater_timeout" {
		t.Fatalf("pause reason = %q, want heater_timeout", got)
	}
	if played := sim.Played(); len(played) == 0 || played[len(played)-1] != printer.TuneHeaterTimeout {
		t.Fatalf("heater timeout tune not played: %v", played)
	}

	e.ConfirmationRequest("Reheat finished.")
	if got := sim.Injected(); len(got) == 0 || got[len(got)-1] != "M108" {
		t.Fatalf("reheat ack not injected: %v", got)
	}
	if got := e.Status().PauseReason; got != "idle" {
		t.Fatalf("pause reason = %q, want idle", got)
	}
}

func TestProbingMeshCompletion(t *testing.T) {
	e, sim, _, _ := newTestEngine(t)
	e.mu.Lock()
	e.state = stateProbing
	e.mu.Unlock()

	for i := 1; i <= 25; i++ {
		e.StatusChange(fmt.Sprintf("Probing Point %d/25", i))
	}
	e.StatusChange("Kobra Ready.")

	found := false
	for _, cmd := range sim.Injected() {
		if cmd == "M500" {
			found = true
		}
	}
	if !found {
		t.Fatalf("settings not saved after mesh run: %v", sim.Injected())
	}
	if got := e.Status(); got.State != "idle" || got.Page != uint16(PagePreLevel) {
		t.Fatalf("after mesh: state=%s page=%d", got.State, got.Page)
	}
}

func TestProbingMeshIncomplete(t *testing.T) {
	e, sim, _, _ := newTestEngine(t)
	e.mu.Lock()
	e.state = stateProbing
	e.mu.Unlock()

	for i := 1; i <= 24; i++ {
		e.StatusChange(fmt.Sprintf("Probing Point %d/25", i))
	}
	e.StatusChange("Kobra Ready.")

	for _, cmd := range sim.Injected() {
		if cmd == "M500" {
			t.Fatalf("saved settings on a partial mesh run")
		}
	}
	if got := e.Status().State; got != "probing" {
		t.Fatalf("state = %q, want probing", got)
	}
}

func TestProbingFailed(t *testing.T) {
	e, sim, _, _ := newTestEngine(t)
	e.mu.Lock()
	e.state = stateProbing
	e.mu.Unlock()

	e.StatusChange("Probing Failed")

	if played := sim.Played(); len(played) == 0 || played[0] != printer.TuneSOS {
		t.Fatalf("failure tune not played: %v", played)
	}
	if got := sim.Injected(); len(got) == 0 || got[len(got)-1] != "G1 Z50 F500" {
		t.Fatalf("head not raised: %v", got)
	}
	if got := e.Status(); got.State != "idle" || got.Page != uint16(PageChsAbnormalLevelSensor) {
		t.Fatalf("after failure: state=%s page=%d", got.State, got.Page)
	}
}

func TestPrinterKilledPages(t *testing.T) {
	cases := []struct {
		err, component string
		page           Page
	}{
		{"Heating Failed, system stopped!", "Bed", PageChsAbnormalBedHeater},
		{"Heating Failed, system stopped!", "E1", PageChsAbnormalHotendHeater},
		{"THERMAL RUNAWAY, system stopped!", "Bed", PageChsAbnormalBedHeater},
		{"Err: MINTEMP", "Bed", PageChsAbnormalBedNTC},
		{"Err: MAXTEMP", "E1", PageChsAbnormalHotendNTC},
		{"Homing Failed", "X", PageChsAbnormalXEndstop},
		{"Homing Failed", "Z", PageChsAbnormalZEndstop},
	}

	for _, c := range cases {
		e, _, _, _ := newTestEngine(t)
		e.PrinterKilled(c.err, c.component)
		if got := e.Status().Page; got != uint16(c.page) {
			t.Errorf("%s/%s: page = %d, want %d", c.err, c.component, got, c.page)
		}
	}

	e, _, _, _ := newTestEngine(t)
	e.PrinterKilled("Driver error", "X")
	if got := e.Status().Page; got != uint16(PageMain) {
		t.Errorf("unknown kill moved the page to %d", got)
	}
}

func TestFilamentRunoutPausesMediaPrint(t *testing.T) {
	e, sim, _, _ := newTestEngine(t)
	sim.SetFilamentPresent(false)
	sim.SetPrintingFromMedia(true)
	e.TimerEvent(TimerStarted)

	e.FilamentRunout()

	if !sim.JobPaused() {
		t.Fatalf("runout did not pause the job")
	}
	if got := e.Status(); got.State != "pausing" || got.PauseReason != "filament_lack" {
		t.Fatalf("after runout: state=%s reason=%s", got.State, got.PauseReason)
	}
	if played := sim.Played(); len(played) == 0 || played[0] != printer.TuneFilamentRunout {
		t.Fatalf("runout tune not played: %v", played)
	}

	e.Tick()
	if got := e.Status().Page; got != uint16(PageFilamentLack) {
		t.Fatalf("page = %d, want %d", got, PageFilamentLack)
	}
}

func TestLcdReadyBoot(t *testing.T) {
	e, _, src, link := newTestEngine(t)

	src.push([]byte{0x5A, 0xA5, 0x06, 0x83, 0x00, 0x14, 0x01, 0x00, 0x72})
	e.Tick()

	if !link.contains(EncodePage(uint16(PageMain))) {
		t.Fatalf("boot did not land on the main page")
	}
	if !link.contains(EncodeAudio(true)) {
		t.Fatalf("beeper setting not pushed at boot")
	}
	if !link.contains(EncodeValue(addrMoveDistance, 2)) {
		t.Fatalf("move step default not pushed at boot")
	}
}

func TestLcdReadyOutageResume(t *testing.T) {
	sim := printer.NewSimulator()
	src := &byteQueue{}
	link := &frameLog{}
	e := New(Options{
		Controller: sim,
		Link:       link,
		Source:     src,
		Language:   LangCHS,
		AudioOn:    true,
		Recovery:   fakeRecovery{pending: true, filename: "TEST.GCO", progress: 42},
		GridPoints: 25,
	})
	e.PowerLossRecovery()

	src.push([]byte{0x5A, 0xA5, 0x06, 0x83, 0x00, 0x14, 0x01, 0x00, 0x72})
	e.Tick()

	if !link.contains(EncodePage(uint16(PageOutageRecovery))) {
		t.Fatalf("outage page not shown")
	}
	if !link.contains(EncodeText(txtOutageRecoveryFile, "TEST.GCO")) {
		t.Fatalf("snapshot file name not shown")
	}
	if !link.contains(EncodeText(txtOutageRecoveryProgress, " 42")) {
		t.Fatalf("snapshot progress not shown")
	}
	if played := sim.Played(); len(played) == 0 || played[0] != printer.TuneSOS {
		t.Fatalf("outage tune not played: %v", played)
	}
}

func TestOutageResumeKey(t *testing.T) {
	sim := printer.NewSimulator()
	src := &byteQueue{}
	link := &frameLog{}
	e := New(Options{
		Controller: sim,
		Link:       link,
		Source:     src,
		Language:   LangCHS,
		Recovery:   fakeRecovery{pending: true, filename: "TEST.GCO", progress: 42},
	})
	e.PowerLossRecovery()
	src.push([]byte{0x5A, 0xA5, 0x06, 0x83, 0x00, 0x14, 0x01, 0x00, 0x72})
	e.Tick()

	pressKey(e, src, 1)

	if got := sim.Injected(); len(got) == 0 || got[len(got)-1] != "M355 S1\nM1000" {
		t.Fatalf("resume command not injected: %v", got)
	}
	if got := e.Status().Page; got != uint16(PageStatus2) {
		t.Fatalf("page = %d, want %d", got, PageStatus2)
	}
}

func TestOutageCancelKey(t *testing.T) {
	sim := printer.NewSimulator()
	src := &byteQueue{}
	link := &frameLog{}
	e := New(Options{
		Controller: sim,
		Link:       link,
		Source:     src,
		Language:   LangCHS,
		Recovery:   fakeRecovery{pending: true, filename: "TEST.GCO", progress: 42},
	})
	e.PowerLossRecovery()
	src.push([]byte{0x5A, 0xA5, 0x06, 0x83, 0x00, 0x14, 0x01, 0x00, 0x72})
	e.Tick()

	pressKey(e, src, 2)

	if got := sim.Injected(); len(got) == 0 || got[len(got)-1] != "M355 S0\nM1000 C" {
		t.Fatalf("cancel command not injected: %v", got)
	}
	if got := e.Status(); got.State != "idle" || got.Page != uint16(PageMain) {
		t.Fatalf("after cancel: state=%s page=%d", got.State, got.Page)
	}
}

func TestFanTargetClamped(t *testing.T) {
	e, sim, src, _ := newTestEngine(t)

	// 150 percent from the panel, clamped to 100.
	src.push([]byte{0x5A, 0xA5, 0x06, 0x83, 0x24, 0x20, 0x01, 0x00, 0x96})
	e.Tick()

	if got := sim.FanPercent(); got != 100 {
		t.Fatalf("fan = %d, want 100", got)
	}
}

func TestFeedrateClamped(t *testing.T) {
	e, sim, src, _ := newTestEngine(t)

	// 10 percent from the panel, clamped up to 40.
	src.push([]byte{0x5A, 0xA5, 0x06, 0x83, 0x24, 0x80, 0x01, 0x00, 0x0A})
	e.Tick()

	if got := sim.FeedratePercent(); got != 40 {
		t.Fatalf("feedrate = %d, want 40", got)
	}
}

func TestAdjustZOffsetBabysteps(t *testing.T) {
	e, sim, src, _ := newTestEngine(t)
	e.mu.Lock()
	e.pageNow = PageAdjust
	e.mu.Unlock()

	pressKey(e, src, 3) // +0.05
	pressKey(e, src, 3)
	pressKey(e, src, 2) // -0.05

	if got := sim.ZOffset(); got < 0.049 || got > 0.051 {
		t.Fatalf("z offset = %.3f, want 0.050", got)
	}
	if got := sim.BabystepZTotal(); got < 0.049 || got > 0.051 {
		t.Fatalf("babystep total = %.3f, want 0.050", got)
	}
}

func TestTimerEventsToggleSoftEndstops(t *testing.T) {
	e, sim, _, _ := newTestEngine(t)

	e.TimerEvent(TimerStarted)
	if sim.SoftEndstopsEnabled() {
		t.Fatalf("soft endstops still on during print")
	}
	if got := e.Status().State; got != "printing" {
		t.Fatalf("state = %q, want printing", got)
	}

	e.TimerEvent(TimerStopped)
	if !sim.SoftEndstopsEnabled() {
		t.Fatalf("soft endstops not restored after print")
	}
	if got := e.Status().Page; got != uint16(PagePrintFinish) {
		t.Fatalf("page = %d, want %d", got, PagePrintFinish)
	}
}

func TestMediaRemovedDuringPrint(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	e.TimerEvent(TimerStarted)

	e.StatusChange("Media Removed")
	e.TimerEvent(TimerStopped)

	if got := e.Status().Page; got != uint16(PageNoSD) {
		t.Fatalf("page = %d, want %d", got, PageNoSD)
	}
}

func TestMotorsOffRequiresStandstill(t *testing.T) {
	e, sim, src, _ := newTestEngine(t)
	sim.SetAllHomed()
	pressKey(e, src, keyMainToTool)

	sim.SetMoving(true)
	pressKey(e, src, keyToolMotorsOff)
	if !sim.Homed() {
		t.Fatalf("motors dropped while moving")
	}

	sim.SetMoving(false)
	pressKey(e, src, keyToolMotorsOff)
	if sim.Homed() {
		t.Fatalf("homed flag kept after motors off")
	}
	if sim.SteppersEnabled() {
		t.Fatalf("steppers still enabled")
	}
}
