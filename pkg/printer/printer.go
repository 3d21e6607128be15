// Package printer defines the narrow interfaces through which the panel
// and recovery engines talk to the machine: G-code injection, thermal,
// motion, media, probe, sensors and tunes. A full in-process simulator
// is provided for tests and the demo binary.
package printer

// Axis identifies a machine axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
	AxisE
)

// String returns the G-code letter for the axis.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	case AxisE:
		return "E"
	}
	return "?"
}

// Position is a machine position in mm.
type Position struct {
	X, Y, Z, E float64
}

// TuneID selects a buzzer melody.
type TuneID int

const (
	TuneBeep TuneID = iota
	TuneSOS
	TuneFilamentRunout
	TuneHeaterTimeout
)

// CommandQueue injects G-code into the firmware command stream.
type CommandQueue interface {
	// Inject queues commands ahead of the current job.
	Inject(cmds ...string)

	// QueueEmpty reports whether the injection queue has drained.
	QueueEmpty() bool
}

// Thermal exposes the heaters.
type Thermal interface {
	HotendTarget() float64
	HotendActual() float64
	BedTarget() float64
	BedActual() float64
	SetHotendTarget(celsius float64)
	SetBedTarget(celsius float64)

	// DisableAllHeaters zeroes every target.
	DisableAllHeaters()

	// HeaterPinsOff forces the heater outputs low without touching
	// targets. Used on the outage path where no planner may run.
	HeaterPinsOff()
}

// Motion exposes the kinematics.
type Motion interface {
	Position() Position

	// MoveAxis plans a single-axis move at the given feedrate (mm/min).
	MoveAxis(axis Axis, target, feed float64)

	// HomeAxes homes the given axes ("X", "XY", "" for all).
	HomeAxes(axes string)

	Homed() bool
	SetAllHomed()
	SetAllUnhomed()
	EnableSteppers(on bool)

	// Moving reports whether planned moves are still executing.
	Moving() bool

	// SoftEndstops enables or disables software travel limits.
	SoftEndstops(on bool)

	// QuickStop discards planned moves immediately.
	QuickStop()

	// BabystepZ nudges the live Z position without touching the
	// logical coordinates.
	BabystepZ(mm float64)

	// StepsPerMMZ is the Z axis steps-per-mm, used for micro-step
	// rounding of the recovery Z correction.
	StepsPerMMZ() float64

	// LevelingActive reports whether bed leveling compensation is on.
	LevelingActive() bool

	// FadeHeight is the leveling fade height in mm (0 = no fade).
	FadeHeight() float64

	// CompensatedZ returns z after bed-leveling compensation at x,y.
	CompensatedZ(x, y, z float64) float64
}

// Media exposes the printable storage.
type Media interface {
	Mounted() bool
	Files() ([]string, error)
	Select(name string)
	Selected() string
	PrintingFromMedia() bool

	// ByteOffset is the byte position in the selected file the job has
	// consumed up to.
	ByteOffset() uint32
}

// Job exposes the active print job.
type Job interface {
	// Start begins printing the named media file.
	Start(name string)

	Pause()
	Resume()
	Stop()

	// UserConfirmed acknowledges a wait-for-user prompt.
	UserConfirmed()

	Printing() bool

	ElapsedSeconds() uint32
	ClearElapsed()
	ProgressPercent() uint8
	FeedratePercent() int
	SetFeedratePercent(pct int)
	FanPercent() int
	SetFanPercent(pct int)

	// Feedrate is the job feedrate in mm/min.
	Feedrate() float64
}

// Probe exposes the leveling strain-gauge probe.
type Probe interface {
	// Tare re-zeros the strain gauge.
	Tare() error

	// Triggered reports whether the probe currently reads as pressed.
	Triggered() bool

	ZOffset() float64
	SetZOffset(mm float64)
}

// Extrusion exposes extruder bookkeeping needed across power loss.
type Extrusion interface {
	// CanExtrude reports whether the hotend is warm enough to move
	// filament.
	CanExtrude() bool

	ActiveTool() int
	VolumetricEnabled() bool
	FilamentDiameter() float64
	RetractLength() float64
	ZHopHeight() float64
	Retracted() bool

	// AxisRelative reports the relative-mode flag per logical axis
	// (X, Y, Z, E).
	AxisRelative() [4]bool
}

// Sensors exposes the discrete inputs.
type Sensors interface {
	// FilamentPresent reads the runout switch.
	FilamentPresent() bool

	// SupplyADC reads the mains-voltage ADC used for outage detection.
	SupplyADC() int
}

// Lights exposes the chamber light.
type Lights interface {
	CaseLight() bool
	SetCaseLight(on bool)
}

// Tunes plays buzzer melodies.
type Tunes interface {
	Play(id TuneID)
}

// Controller is the full machine surface the engines consume.
type Controller interface {
	CommandQueue
	Thermal
	Motion
	Media
	Job
	Probe
	Extrusion
	Sensors
	Lights
	Tunes
}
