package recovery

import (
	"fmt"
	"math"
	"time"

	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/errors"
	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/log"
	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/printer"
)

const (
	// defaultMinZChange saves on every layer even in vase mode.
	defaultMinZChange = 0.05

	// defaultZRaise is the lift applied on resume before homing XY, so
	// the nozzle clears the interrupted part.
	defaultZRaise = 2.0

	defaultZMax = 250.0

	// Supply monitoring. The ADC reads below outageADCThreshold while
	// mains is collapsing; outageSamples falling readings in a row are
	// required before the outage path runs.
	outageADCThreshold = 2200
	outageSamples      = 4

	// resumeHopMM is the hop G28 R2 leaves on Z, rebased with G92.9
	// before babystepping out the mesh offset.
	resumeHopMM = 2.0
)

// Notifier is told the instant an outage is confirmed, before the
// snapshot write. The panel uses it to light the outage lamp.
type Notifier interface {
	PowerLoss()
}

// Options tunes the recovery engine. Zero values pick the machine
// defaults.
type Options struct {
	// SaveInterval adds a time based save trigger. Zero means save on
	// Z change only.
	SaveInterval time.Duration

	// MinZChange is the Z climb that forces a save.
	MinZChange float64

	// ZRaise is the nozzle lift restored on resume.
	ZRaise float64

	// ZMax caps the outage lift.
	ZMax float64

	// BackupPower marks machines with a capacitor bank. With stored
	// charge available the outage path can still move the axes.
	BackupPower bool

	// Notifier may be nil.
	Notifier Notifier
}

// Engine persists print state and replays it after an outage.
type Engine struct {
	log   *log.Logger
	ctrl  printer.Controller
	store Store

	info    Snapshot
	enabled bool
	seq     uint8

	saveInterval time.Duration
	minZChange   float64
	zRaise       float64
	zMax         float64
	backupPower  bool
	notifier     Notifier

	now        func() time.Time
	nextSaveAt time.Time

	outageCount int
	adcLast     int
	outageFired bool
}

func New(ctrl printer.Controller, store Store, opts Options) *Engine {
	if opts.MinZChange == 0 {
		opts.MinZChange = defaultMinZChange
	}
	if opts.ZRaise == 0 {
		opts.ZRaise = defaultZRaise
	}
	if opts.ZMax == 0 {
		opts.ZMax = defaultZMax
	}
	return &Engine{
		log:          log.New("recovery"),
		ctrl:         ctrl,
		store:        store,
		saveInterval: opts.SaveInterval,
		minZChange:   opts.MinZChange,
		zRaise:       opts.ZRaise,
		zMax:         opts.ZMax,
		backupPower:  opts.BackupPower,
		notifier:     opts.Notifier,
		now:          time.Now,
	}
}

// Enable switches recovery on or off. Disabling purges the stored
// snapshot, enabling mid-print saves one immediately.
func (e *Engine) Enable(on bool) {
	e.enabled = on
	if !on {
		e.Purge()
	} else if e.ctrl.PrintingFromMedia() {
		e.Save(true, 0)
	}
}

func (e *Engine) Enabled() bool { return e.enabled }

// Check looks for a snapshot at boot. A valid one arms the resume flow
// by injecting the recovery query, a torn one is purged.
func (e *Engine) Check() error {
	if !e.ctrl.Mounted() {
		return nil
	}
	if err := e.load(); err != nil {
		return err
	}
	if !e.info.Valid() {
		if e.info.Head != 0 || e.info.Foot != 0 {
			e.log.Warn("%v, purging", errors.SnapshotInvalidError(e.info.Head, e.info.Foot))
		}
		e.Purge()
		return nil
	}
	e.log.Info("snapshot found: %s at byte %d", e.info.Filename, e.info.ByteOffset)
	e.ctrl.Inject("M1000 S")
	return nil
}

func (e *Engine) load() error {
	data, err := e.store.Read()
	if err != nil {
		return err
	}
	if data == nil {
		e.info = Snapshot{}
		return nil
	}
	if err := e.info.Unmarshal(data); err != nil {
		e.info = Snapshot{}
		return err
	}
	return nil
}

// Pending reports whether a valid snapshot is loaded.
func (e *Engine) Pending() bool { return e.info.Valid() }

// Filename is the media path of the interrupted job.
func (e *Engine) Filename() string { return e.info.Filename }

// Progress is the interrupted job's percent done.
func (e *Engine) Progress() uint8 { return e.info.Progress }

// Save captures the machine state if a trigger fires: forced, the save
// interval elapsed, or Z climbed past the last saved layer.
func (e *Engine) Save(force bool, zraise float64) {
	if !e.enabled {
		return
	}

	now := e.now()
	z := e.ctrl.Position().Z
	due := force ||
		(e.saveInterval > 0 && !now.Before(e.nextSaveAt)) ||
		z > float64(e.info.PosZ)+e.minZChange
	if !due {
		return
	}
	if e.saveInterval > 0 {
		e.nextSaveAt = now.Add(e.saveInterval)
	}

	e.capture(zraise)
	e.write()
}

func (e *Engine) capture(zraise float64) {
	e.seq++
	if e.seq == 0 {
		e.seq++
	}

	pos := e.ctrl.Position()
	rel := e.ctrl.AxisRelative()
	var relMask uint8
	for i, r := range rel {
		if r {
			relMask |= 1 << uint(i)
		}
	}

	e.info = Snapshot{
		Head: e.seq,
		Foot: e.seq,

		PosX:   float32(pos.X),
		PosY:   float32(pos.Y),
		PosZ:   float32(pos.Z),
		PosE:   float32(pos.E),
		ZRaise: float32(zraise),

		Feedrate:     uint16(e.ctrl.Feedrate() * 60),
		HotendTarget: int16(e.ctrl.HotendTarget()),
		BedTarget:    int16(e.ctrl.BedTarget()),
		FanSpeed:     uint8(e.ctrl.FanPercent() * 255 / 100),

		Leveling:    e.ctrl.LevelingActive(),
		FadeHeight:  float32(e.ctrl.FadeHeight()),
		Volumetric:  e.ctrl.VolumetricEnabled(),
		FilamentDia: float32(e.ctrl.FilamentDiameter()),

		RetractLen: float32(e.ctrl.RetractLength()),
		RetractHop: float32(e.ctrl.ZHopHeight()),
		Retracted:  e.ctrl.Retracted(),

		AxisRelative: relMask,

		Elapsed:  e.ctrl.ElapsedSeconds(),
		Progress: e.ctrl.ProgressPercent(),

		ByteOffset: e.ctrl.ByteOffset(),
		Filename:   e.ctrl.Selected(),
	}
}

func (e *Engine) write() {
	data, err := e.info.Marshal()
	if err != nil {
		e.log.Error("snapshot encode: %v", err)
		return
	}
	if err := e.store.Write(data); err != nil {
		e.log.Error("snapshot write: %v", err)
	}
}

// Purge drops the stored snapshot and the loaded copy.
func (e *Engine) Purge() {
	if err := e.store.Erase(); err != nil {
		e.log.Error("snapshot erase: %v", err)
	}
	e.info = Snapshot{}
}

// Cancel is Purge under the name the panel flow uses.
func (e *Engine) Cancel() { e.Purge() }

// Outage samples the supply voltage. A reading under the threshold
// that keeps falling for several samples in a row confirms a real
// outage rather than ripple.
func (e *Engine) Outage() {
	if !e.enabled {
		return
	}

	adc := e.ctrl.SupplyADC()
	if adc < outageADCThreshold {
		if e.outageCount >= outageSamples {
			e.outage()
		}
		if adc < e.adcLast {
			e.outageCount++
		}
	} else {
		e.outageCount = 0
	}
	e.adcLast = adc
}

// outage runs once per power loss: heaters off first to stretch the
// remaining charge, then the snapshot write.
func (e *Engine) outage() {
	if e.outageFired {
		return
	}
	e.outageFired = true

	zraise := 0.0
	z := e.ctrl.Position().Z
	if lifted := math.Min(z+e.zRaise, e.zMax-1) - z; lifted > 0 {
		zraise = lifted
	}

	e.ctrl.HeaterPinsOff()
	if e.notifier != nil {
		e.notifier.PowerLoss()
	}
	e.ctrl.EnableSteppers(false)

	if e.ctrl.PrintingFromMedia() {
		e.Save(true, zraise)
	}

	// Heaters fully off before any motion, to stretch the remaining
	// charge.
	e.ctrl.DisableAllHeaters()

	// With a capacitor bank there is charge left to park the nozzle:
	// stop the planner, pull the filament back and lift off the part.
	if e.backupPower && e.ctrl.PrintingFromMedia() {
		e.ctrl.QuickStop()
		if e.ctrl.CanExtrude() {
			e.ctrl.Inject(fmt.Sprintf("G1 F3000 E-%.1f", e.ctrl.RetractLength()))
		}
		if zraise > 0 {
			e.ctrl.Inject(fmt.Sprintf("G91\nG1 Z%.3f F200\nG90", zraise))
		}
	}

	e.log.Error("power outage, state saved at byte %d", e.info.ByteOffset)
}

// Resume replays the snapshot: restore temperatures, home XY with a
// hop, cancel the mesh offset with babysteps, move back onto the part
// and restart the media file at the saved byte.
func (e *Engine) Resume() {
	info := e.info
	if !info.Valid() {
		e.log.Warn("resume without a valid snapshot")
		return
	}
	resumePos := info.ByteOffset

	// Leveling off before any G92 or G28.
	e.ctrl.Inject("M420 S0 Z0")

	// Start both heaters, then wait for each.
	if info.BedTarget != 0 {
		e.ctrl.Inject(fmt.Sprintf("M140 S%d", info.BedTarget))
	}
	if info.HotendTarget != 0 {
		e.ctrl.Inject(fmt.Sprintf("M104 S%d", info.HotendTarget))
	}
	if info.BedTarget != 0 {
		e.ctrl.Inject(fmt.Sprintf("M190 S%d", info.BedTarget))
	}
	if info.HotendTarget != 0 {
		e.ctrl.Inject(fmt.Sprintf("M109 S%d", info.HotendTarget))
	}

	// Reset E, apply the outage lift, then home XY only. Homing Z
	// would drive the nozzle into the interrupted part.
	e.ctrl.Inject(fmt.Sprintf("G92.9 E0 Z0\nG1Z%.3f", info.ZRaise))
	e.ctrl.Inject("G28R2XY")
	e.ctrl.SetAllHomed()

	if info.Volumetric {
		e.ctrl.Inject(fmt.Sprintf("M200 D%.3f", info.FilamentDia))
	}
	if info.FanSpeed > 0 {
		e.ctrl.Inject(fmt.Sprintf("M106 P0 S%d", info.FanSpeed))
	}
	if info.FadeHeight != 0 || info.Leveling {
		lev := 0
		if info.Leveling {
			lev = 1
		}
		e.ctrl.Inject(fmt.Sprintf("M420 S%d Z%.1f", lev, info.FadeHeight))
	}

	// Undo the retract the outage path did on stored charge.
	if e.backupPower && info.RetractLen > 0 {
		e.ctrl.Inject(fmt.Sprintf("G1 E%.1f F3000", info.RetractLen))
	}

	// Rebase Z on the homing hop, then babystep out the difference
	// between the mesh offset here and the one at the home position,
	// so the leveled Z matches what the stepper count claims.
	e.ctrl.Inject(fmt.Sprintf("G92.9 Z%.3f", float64(info.PosZ)+resumeHopMM))

	x, y, z := float64(info.PosX), float64(info.PosY), float64(info.PosZ)
	zDiff := z - e.ctrl.CompensatedZ(x, y, z)
	homeDiff := 0 - e.ctrl.CompensatedZ(0, 0, 0)
	allDiff := zDiff - homeDiff

	steps := allDiff * e.ctrl.StepsPerMMZ()
	var babySteps float64
	if steps > 0 {
		babySteps = math.Ceil(steps)
	} else {
		babySteps = math.Floor(steps)
	}
	if babySteps != 0 {
		e.ctrl.BabystepZ(babySteps / e.ctrl.StepsPerMMZ())
	}
	e.ctrl.Inject("M400\nG4 P1000")

	// Travel back over the part, then lower onto it slowly.
	e.ctrl.Inject(fmt.Sprintf("G1 X%.3f Y%.3f F3000", x, y))
	e.ctrl.Inject("M400")
	e.ctrl.Inject(fmt.Sprintf("G1 Z%.3f F200", z))

	e.ctrl.Inject(fmt.Sprintf("G1 F%d", info.Feedrate))
	e.ctrl.Inject(fmt.Sprintf("G92.9 E%.3f", info.PosE))

	// Keep saving as the resumed job runs.
	e.enabled = true

	e.ctrl.Inject(fmt.Sprintf("M23 %s", info.Filename))
	e.ctrl.Inject(fmt.Sprintf("M24 S%d T%d", resumePos, info.Elapsed))

	e.log.Info("resumed %s at byte %d", info.Filename, resumePos)
}
