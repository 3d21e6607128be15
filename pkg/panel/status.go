package panel

import (
	"strings"

	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/printer"
)

// Firmware status strings the panel reacts to. The firmware prefixes
// some of them with the machine name, which is stripped before
// matching.
const (
	msgProbingPoint  = "Probing Point"
	msgReady         = " Ready."
	msgProbingFailed = "Probing Failed"
	msgPrintPaused   = "Print Paused"
	msgPrintAborted  = "Print Aborted"
	msgNozzleParked  = "Nozzle Parked"
	msgHeaterTimeout = "Heater Timeout"
	msgReheating     = "Reheating..."
	msgReheatDone    = "Reheat finished."
	msgPurging       = "Filament Purging..."
	msgMediaRemoved  = "Media Removed"
	msgHotendHeating = "E Heating..."
	msgBedHeating    = "Bed Heating..."
	msgPreheatStart  = "Probe preheat start"
	msgPreheatStop   = "Probe preheat stop"
)

// StatusChange classifies a firmware status banner against the current
// session state.
func (e *Engine) StatusChange(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.log.Debug("status %q state=%s", msg, e.state)

	switch e.state {
	case stateProbing:
		switch {
		case strings.HasPrefix(msg, msgProbingPoint):
			e.probePoints++
			return

		case strings.TrimPrefix(msg, e.machineName) == msgReady:
			// The idle banner after the last point means the mesh run
			// finished. The leveling-done popup repaints the screen, so
			// only the history moves here.
			if e.probePoints == e.gridPoints {
				e.probePoints = 0
				e.ctrl.Inject(cmdSaveSettings)
				e.silentChangePage(PagePreLevel)
				e.state = stateIdle
			}
			return

		case strings.HasPrefix(msg, msgProbingFailed):
			e.ctrl.Play(printer.TuneSOS)
			e.ctrl.Inject("G1 Z50 F500")
			e.changePage(PageChsAbnormalLevelSensor)
			e.probePoints = 0
			e.state = stateIdle
			return

		case strings.HasPrefix(msg, msgPreheatStart):
			e.changePage(PageChsProbePreheating)
			return

		case strings.HasPrefix(msg, msgPreheatStop):
			e.changePage(PageLeveling)
			return
		}

	case statePrinting:
		switch {
		case strings.HasPrefix(msg, msgReheating):
			e.changePage(PageStatus2)
			return

		case strings.HasPrefix(msg, msgMediaRemoved):
			e.state = stateStoppingFromMediaRemove
			return
		}

	case statePausing, statePaused:
		if strings.HasPrefix(msg, msgPrintPaused) {
			if e.pause != pausedFilamentLack {
				e.changePage(PageStatus1)
				e.pause = pausedIdle
			}
			e.state = statePaused
			return
		}

	case stateStopping:
		if strings.HasPrefix(msg, msgPrintAborted) {
			e.changePage(PageMain)
			e.state = stateIdle
			return
		}
	}

	switch {
	case strings.HasPrefix(msg, msgHotendHeating):
		e.hotendState = heaterTempSet
	case strings.HasPrefix(msg, msgBedHeating):
		e.bedState = heaterTempSet
	}
}

// ConfirmationRequest handles the firmware asking for an M108 style
// user acknowledgement.
func (e *Engine) ConfirmationRequest(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.log.Debug("confirm %q state=%s", msg, e.state)

	if e.state == statePausing {
		if strings.HasPrefix(msg, msgPrintPaused) || strings.HasPrefix(msg, msgNozzleParked) {
			if e.pause != pausedFilamentLack {
				e.changePage(PageStatus1)
			}
			e.state = statePaused
		}
		return
	}

	if e.state != statePrinting && e.state != statePaused &&
		e.state != stateResumingFromPowerOutage {
		return
	}

	switch {
	case strings.HasPrefix(msg, msgHeaterTimeout):
		e.pause = pausedHeaterTimeout
		e.ctrl.Play(printer.TuneHeaterTimeout)

	case strings.HasPrefix(msg, msgReheatDone):
		e.ctrl.Inject("M108")
		if e.pause != pausedFilamentLack {
			e.pause = pausedIdle
		}

	case strings.HasPrefix(msg, msgPurging):
		e.pause = pausedPurgingFilament

	case strings.HasPrefix(msg, msgNozzleParked):
		e.ctrl.Inject("M108")
		if e.pause != pausedFilamentLack {
			e.pause = pausedIdle
		}
	}
}

// PrinterKilled shows the fault page for a firmware kill. Unrecognized
// kills leave the screen alone, the firmware halt banner stands.
func (e *Engine) PrinterKilled(errMsg, component string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.log.Error("printer killed: %s (%s)", errMsg, component)

	var page Page
	switch {
	case strings.HasPrefix(errMsg, "Heating Failed") ||
		strings.HasPrefix(errMsg, "THERMAL RUNAWAY"):
		switch component {
		case "Bed":
			page = PageChsAbnormalBedHeater
		case "E1":
			page = PageChsAbnormalHotendHeater
		}

	case strings.HasPrefix(errMsg, "Err: MINTEMP") ||
		strings.HasPrefix(errMsg, "Err: MAXTEMP"):
		switch component {
		case "Bed":
			page = PageChsAbnormalBedNTC
		case "E1":
			page = PageChsAbnormalHotendNTC
		}

	case strings.HasPrefix(errMsg, "Homing Failed"):
		switch component {
		case "X":
			page = PageChsAbnormalXEndstop
		case "Y":
			page = PageChsAbnormalYEndstop
		case "Z":
			page = PageChsAbnormalZEndstop
		}
	}

	if page != 0 {
		e.changePage(page)
	}
}
