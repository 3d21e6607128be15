package panel

import (
	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/printer"
)

// TimerEvent tracks the job timer. Start releases the soft endstops so
// resumed jobs can babystep below zero, stop restores them.
func (e *Engine) TimerEvent(kind TimerEventKind) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch kind {
	case TimerStarted:
		e.liveZOffset = 0
		e.ctrl.SoftEndstops(false)
		e.state = statePrinting

	case TimerStopped:
		if e.state != stateIdle {
			if e.state == stateStoppingFromMediaRemove {
				e.changePage(PageNoSD)
			} else {
				e.state = stateStopping
				e.sendText(txtFinishTime, printTimeText(e.ctrl.ElapsedSeconds()))
				e.changePage(PagePrintFinish)
			}
		}
		e.ctrl.SoftEndstops(true)
	}
}

// MediaEvent refreshes the file browser on storage hotplug.
func (e *Engine) MediaEvent(kind MediaEventKind) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch kind {
	case MediaInserted, MediaRemoved:
		e.nav.reset()
		e.txtboxPage = 0
		e.clearRowHighlight()
		e.txtboxIndex = 0
		e.sendFileList(0)

	case MediaError:
		e.log.Warn("media error")
	}
}

// FilamentRunout pauses a media print and raises the filament popup.
func (e *Engine) FilamentRunout() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.popup = PopupFilamentLack
	if e.ctrl.FilamentPresent() {
		return
	}
	e.ctrl.Play(printer.TuneFilamentRunout)
	if e.ctrl.PrintingFromMedia() {
		e.ctrl.Pause()
		e.state = statePausing
		e.pause = pausedFilamentLack
	}
}

// PowerLossRecovery arms the outage resume flow. The recovery page is
// shown once the panel reports its boot handshake.
func (e *Engine) PowerLossRecovery() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = stateResumingFromPowerOutage
}

// PowerLoss lights the outage lamp while the supply drains.
func (e *Engine) PowerLoss() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.write(EncodePowerLamp(true))
}

// HomingStart shows the homing interstitial for manual homing moves.
func (e *Engine) HomingStart() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ctrl.PrintingFromMedia() {
		e.changePage(PageChsHoming)
	}
}

// HomingComplete returns to the page the homing move came from.
func (e *Engine) HomingComplete() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ctrl.PrintingFromMedia() {
		e.changePageBack(e.pageLast)
	}
}
