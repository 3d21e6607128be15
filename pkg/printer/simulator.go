package printer

import (
	"sort"
	"sync"
)

// Simulator is an in-process Controller implementation. It records
// injected commands and lets tests (and the demo binary) script sensor
// readings and machine state.
type Simulator struct {
	mu sync.Mutex

	injected   []string
	queueEmpty bool

	hotendTarget float64
	hotendActual float64
	bedTarget    float64
	bedActual    float64
	heatersOff   bool
	pinsOff      bool

	pos            Position
	homed          bool
	babystepZ      float64
	moving         bool
	softEndstops   bool
	steppersOn     bool
	quickStopped   bool
	stepsPerMMZ    float64
	levelingActive bool
	fadeHeight     float64
	meshSlope      float64

	mounted       bool
	files         []string
	selected      string
	printingMedia bool
	byteOffset    uint32

	printing    bool
	paused      bool
	startedFile string
	confirms    int
	elapsed     uint32
	progress    uint8
	feedratePct int
	fanPct      int
	feedrate    float64

	probeTriggered bool
	tareCount      int
	zOffset        float64

	tool         int
	volumetric   bool
	filamentDia  float64
	retractLen   float64
	zHop         float64
	retracted    bool
	axisRelative [4]bool

	filamentPresent bool
	supplyADC       int

	caseLight bool
	tunes     []TuneID
}

// NewSimulator returns a Simulator with sane powered-on defaults.
func NewSimulator() *Simulator {
	return &Simulator{
		queueEmpty:      true,
		hotendActual:    25,
		bedActual:       25,
		stepsPerMMZ:     400,
		feedratePct:     100,
		feedrate:        3000,
		filamentDia:     1.75,
		filamentPresent: true,
		supplyADC:       4095,
		steppersOn:      true,
		softEndstops:    true,
	}
}

// CommandQueue

func (s *Simulator) Inject(cmds ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.injected = append(s.injected, cmds...)
}

func (s *Simulator) QueueEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queueEmpty
}

// Injected returns a copy of all commands injected so far.
func (s *Simulator) Injected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.injected))
	copy(out, s.injected)
	return out
}

// ClearInjected discards the recorded command log.
func (s *Simulator) ClearInjected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.injected = nil
}

// SetQueueEmpty scripts the queue-drained flag.
func (s *Simulator) SetQueueEmpty(empty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queueEmpty = empty
}

// Thermal

func (s *Simulator) HotendTarget() float64 { s.mu.Lock(); defer s.mu.Unlock(); return s.hotendTarget }
func (s *Simulator) HotendActual() float64 { s.mu.Lock(); defer s.mu.Unlock(); return s.hotendActual }
func (s *Simulator) BedTarget() float64    { s.mu.Lock(); defer s.mu.Unlock(); return s.bedTarget }
func (s *Simulator) BedActual() float64    { s.mu.Lock(); defer s.mu.Unlock(); return s.bedActual }

func (s *Simulator) SetHotendTarget(c float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hotendTarget = c
}

func (s *Simulator) SetBedTarget(c float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bedTarget = c
}

func (s *Simulator) DisableAllHeaters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hotendTarget = 0
	s.bedTarget = 0
	s.heatersOff = true
}

func (s *Simulator) HeaterPinsOff() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pinsOff = true
}

// SetHotendActual scripts the hotend thermistor reading.
func (s *Simulator) SetHotendActual(c float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hotendActual = c
}

// SetBedActual scripts the bed thermistor reading.
func (s *Simulator) SetBedActual(c float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bedActual = c
}

// HeatersDisabled reports whether DisableAllHeaters was called.
func (s *Simulator) HeatersDisabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heatersOff
}

// PinsOff reports whether HeaterPinsOff was called.
func (s *Simulator) PinsOff() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pinsOff
}

// Motion

func (s *Simulator) Position() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *Simulator) MoveAxis(axis Axis, target, feed float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch axis {
	case AxisX:
		s.pos.X = target
	case AxisY:
		s.pos.Y = target
	case AxisZ:
		s.pos.Z = target
	case AxisE:
		s.pos.E = target
	}
}

func (s *Simulator) HomeAxes(axes string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.homed = true
	if axes == "" || axes == "XYZ" {
		s.pos = Position{E: s.pos.E}
		return
	}
	for _, a := range axes {
		switch a {
		case 'X':
			s.pos.X = 0
		case 'Y':
			s.pos.Y = 0
		case 'Z':
			s.pos.Z = 0
		}
	}
}

func (s *Simulator) Homed() bool    { s.mu.Lock(); defer s.mu.Unlock(); return s.homed }
func (s *Simulator) SetAllHomed()   { s.mu.Lock(); defer s.mu.Unlock(); s.homed = true }
func (s *Simulator) SetAllUnhomed() { s.mu.Lock(); defer s.mu.Unlock(); s.homed = false }
func (s *Simulator) Moving() bool   { s.mu.Lock(); defer s.mu.Unlock(); return s.moving }

func (s *Simulator) BabystepZ(mm float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.babystepZ += mm
}

// BabystepZTotal reports the accumulated babystep distance.
func (s *Simulator) BabystepZTotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.babystepZ
}

func (s *Simulator) SoftEndstops(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.softEndstops = on
}

// SetMoving scripts the planner-busy flag.
func (s *Simulator) SetMoving(moving bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moving = moving
}

// SoftEndstopsEnabled reports the software travel limit state.
func (s *Simulator) SoftEndstopsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.softEndstops
}
func (s *Simulator) StepsPerMMZ() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepsPerMMZ
}

func (s *Simulator) EnableSteppers(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steppersOn = on
}

func (s *Simulator) QuickStop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quickStopped = true
}

func (s *Simulator) LevelingActive() bool { s.mu.Lock(); defer s.mu.Unlock(); return s.levelingActive }
func (s *Simulator) FadeHeight() float64  { s.mu.Lock(); defer s.mu.Unlock(); return s.fadeHeight }

func (s *Simulator) CompensatedZ(x, y, z float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Flat tilted plane stands in for the mesh.
	return z + s.meshSlope*(x+y)
}

// SetPosition scripts the current position.
func (s *Simulator) SetPosition(p Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = p
}

// SetLeveling scripts the bed leveling state.
func (s *Simulator) SetLeveling(active bool, fadeHeight, meshSlope float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levelingActive = active
	s.fadeHeight = fadeHeight
	s.meshSlope = meshSlope
}

// SteppersEnabled reports the stepper-enable state.
func (s *Simulator) SteppersEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steppersOn
}

// QuickStopped reports whether QuickStop was called.
func (s *Simulator) QuickStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quickStopped
}

// Media

func (s *Simulator) Mounted() bool { s.mu.Lock(); defer s.mu.Unlock(); return s.mounted }

func (s *Simulator) Files() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.files))
	copy(out, s.files)
	sort.Strings(out)
	return out, nil
}

func (s *Simulator) Select(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = name
}

func (s *Simulator) Selected() string { s.mu.Lock(); defer s.mu.Unlock(); return s.selected }

func (s *Simulator) PrintingFromMedia() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.printingMedia
}

func (s *Simulator) ByteOffset() uint32 { s.mu.Lock(); defer s.mu.Unlock(); return s.byteOffset }

// SetMedia scripts the storage state.
func (s *Simulator) SetMedia(mounted bool, files []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounted = mounted
	s.files = files
}

// SetPrintingFromMedia scripts the media-job flag.
func (s *Simulator) SetPrintingFromMedia(printing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.printingMedia = printing
}

// SetByteOffset scripts the job file position.
func (s *Simulator) SetByteOffset(off uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byteOffset = off
}

// Job

func (s *Simulator) Start(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.printing = true
	s.paused = false
	s.printingMedia = true
	s.startedFile = name
}

func (s *Simulator) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

func (s *Simulator) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.printing = false
	s.paused = false
	s.printingMedia = false
}

func (s *Simulator) UserConfirmed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirms++
}

func (s *Simulator) Printing() bool { s.mu.Lock(); defer s.mu.Unlock(); return s.printing }

func (s *Simulator) ClearElapsed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elapsed = 0
}

// StartedFile reports the file most recently passed to Start.
func (s *Simulator) StartedFile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedFile
}

// JobPaused reports whether Pause was called after the last Start/Resume.
func (s *Simulator) JobPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Confirms reports how many times UserConfirmed was called.
func (s *Simulator) Confirms() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirms
}

func (s *Simulator) ElapsedSeconds() uint32 { s.mu.Lock(); defer s.mu.Unlock(); return s.elapsed }
func (s *Simulator) ProgressPercent() uint8 { s.mu.Lock(); defer s.mu.Unlock(); return s.progress }
func (s *Simulator) FeedratePercent() int   { s.mu.Lock(); defer s.mu.Unlock(); return s.feedratePct }
func (s *Simulator) FanPercent() int        { s.mu.Lock(); defer s.mu.Unlock(); return s.fanPct }
func (s *Simulator) Feedrate() float64      { s.mu.Lock(); defer s.mu.Unlock(); return s.feedrate }

func (s *Simulator) SetFeedratePercent(pct int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedratePct = pct
}

func (s *Simulator) SetFanPercent(pct int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fanPct = pct
}

// SetJob scripts elapsed time and progress.
func (s *Simulator) SetJob(elapsed uint32, progress uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elapsed = elapsed
	s.progress = progress
}

// SetFeedrate scripts the job feedrate (mm/min).
func (s *Simulator) SetFeedrate(f float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedrate = f
}

// Probe

func (s *Simulator) Tare() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tareCount++
	return nil
}

func (s *Simulator) Triggered() bool    { s.mu.Lock(); defer s.mu.Unlock(); return s.probeTriggered }
func (s *Simulator) ZOffset() float64   { s.mu.Lock(); defer s.mu.Unlock(); return s.zOffset }
func (s *Simulator) SetZOffset(mm float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zOffset = mm
}

// SetProbeTriggered scripts the probe reading.
func (s *Simulator) SetProbeTriggered(t bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probeTriggered = t
}

// TareCount reports how many times Tare was called.
func (s *Simulator) TareCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tareCount
}

// Extrusion

func (s *Simulator) CanExtrude() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hotendActual >= 170
}

func (s *Simulator) ActiveTool() int           { s.mu.Lock(); defer s.mu.Unlock(); return s.tool }
func (s *Simulator) VolumetricEnabled() bool   { s.mu.Lock(); defer s.mu.Unlock(); return s.volumetric }
func (s *Simulator) FilamentDiameter() float64 { s.mu.Lock(); defer s.mu.Unlock(); return s.filamentDia }
func (s *Simulator) RetractLength() float64    { s.mu.Lock(); defer s.mu.Unlock(); return s.retractLen }
func (s *Simulator) ZHopHeight() float64       { s.mu.Lock(); defer s.mu.Unlock(); return s.zHop }
func (s *Simulator) Retracted() bool           { s.mu.Lock(); defer s.mu.Unlock(); return s.retracted }

func (s *Simulator) AxisRelative() [4]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.axisRelative
}

// SetExtrusion scripts the extruder bookkeeping.
func (s *Simulator) SetExtrusion(tool int, volumetric bool, dia, retractLen, zHop float64, retracted bool, rel [4]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tool = tool
	s.volumetric = volumetric
	s.filamentDia = dia
	s.retractLen = retractLen
	s.zHop = zHop
	s.retracted = retracted
	s.axisRelative = rel
}

// Sensors

func (s *Simulator) FilamentPresent() bool { s.mu.Lock(); defer s.mu.Unlock(); return s.filamentPresent }
func (s *Simulator) SupplyADC() int        { s.mu.Lock(); defer s.mu.Unlock(); return s.supplyADC }

// SetFilamentPresent scripts the runout switch.
func (s *Simulator) SetFilamentPresent(present bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filamentPresent = present
}

// SetSupplyADC scripts the mains ADC reading.
func (s *Simulator) SetSupplyADC(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supplyADC = v
}

// Lights

func (s *Simulator) CaseLight() bool { s.mu.Lock(); defer s.mu.Unlock(); return s.caseLight }

func (s *Simulator) SetCaseLight(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caseLight = on
}

// Tunes

func (s *Simulator) Play(id TuneID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tunes = append(s.tunes, id)
}

// Played returns the tunes played so far.
func (s *Simulator) Played() []TuneID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TuneID, len(s.tunes))
	copy(out, s.tunes)
	return out
}

var _ Controller = (*Simulator)(nil)
