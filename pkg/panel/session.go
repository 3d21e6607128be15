package panel

// printerState tracks what the panel believes the machine is doing.
// Status messages are classified against this, not the other way
// around, so a stray message outside the expected state is ignored.
type printerState int

const (
	stateIdle printerState = iota
	stateProbing
	statePrinting
	statePausing
	statePaused
	stateStopping
	stateStoppingFromMediaRemove
	stateResumingFromPowerOutage
)

func (s printerState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateProbing:
		return "probing"
	case statePrinting:
		return "printing"
	case statePausing:
		return "pausing"
	case statePaused:
		return "paused"
	case stateStopping:
		return "stopping"
	case stateStoppingFromMediaRemove:
		return "stopping_media_removed"
	case stateResumingFromPowerOutage:
		return "resuming_power_outage"
	}
	return "unknown"
}

// pauseState refines a pause with the reason it happened.
type pauseState int

const (
	pausedIdle pauseState = iota
	pausedFilamentLack
	pausedHeaterTimeout
	pausedPurgingFilament
)

func (s pauseState) String() string {
	switch s {
	case pausedFilamentLack:
		return "filament_lack"
	case pausedHeaterTimeout:
		return "heater_timeout"
	case pausedPurgingFilament:
		return "purging"
	}
	return "idle"
}

// heaterState mirrors the heater banner state on the panel.
type heaterState int

const (
	heaterOff heaterState = iota
	heaterTempSet
	heaterTempReached
)

// filamentCmd is the pending action on the filament page.
type filamentCmd int

const (
	filamentNone filamentCmd = iota
	filamentIn
	filamentOut
)

// MediaEventKind is a storage hotplug notification.
type MediaEventKind int

const (
	MediaInserted MediaEventKind = iota
	MediaRemoved
	MediaError
)

// TimerEventKind is a job timer notification.
type TimerEventKind int

const (
	TimerStarted TimerEventKind = iota
	TimerPaused
	TimerStopped
)

// popupNone is the sentinel meaning no popup is queued.
const popupNone = 100

// Popup codes accepted by RequestPopup.
const (
	PopupHotendError   = 10
	PopupFilamentLack  = 15
	PopupStopWait      = 16
	PopupResumeReady   = 18
	PopupFilamentPause = 23
	PopupPrintFinished = 24
	PopupLevelingDone  = 25
)
