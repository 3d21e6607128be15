package panel

import (
	"fmt"
	"time"
)

// changePageBack returns to a page recorded in the history. History
// entries are stored post-remap, so strip the English offset before
// changePage applies it again.
func (e *Engine) changePageBack(p Page) {
	if e.lang == LangENG && p > 120 {
		p -= 120
	}
	e.changePage(p)
}

// statusReturn picks the status page matching the job state.
func (e *Engine) statusReturn() {
	if e.state == statePrinting {
		e.changePage(PageStatus2)
	} else if e.state == statePaused {
		e.changePage(PageStatus1)
	}
}

// refreshJobTexts pushes feedrate, progress and elapsed time when they
// change. Shared by both status pages.
func (e *Engine) refreshJobTexts() {
	if e.feedrateLast != e.ctrl.FeedratePercent() {
		e.feedrateLast = e.ctrl.FeedratePercent()
		e.sendText(txtPrintSpeed, fmt.Sprintf("%d", e.feedrateLast))
	}

	if e.progressLast != e.ctrl.ProgressPercent() {
		e.progressLast = e.ctrl.ProgressPercent()
		e.sendText(txtPrintProgress, fmt.Sprintf("%d", e.progressLast))
	}

	e.sendText(txtPrintTime, printTimeText(e.ctrl.ElapsedSeconds()))
}

// enterAdjust opens the tuning page with the current targets loaded.
func (e *Engine) enterAdjust(withFan bool) {
	e.changePage(PageAdjust)
	e.sendValue(addrPrintSettingLEDStatus, boolWord(e.ctrl.CaseLight()))
	e.sendValue(txtAdjustHotend, uint16(e.ctrl.HotendTarget()))
	e.sendValue(txtAdjustBed, uint16(e.ctrl.BedTarget()))
	e.feedrateLast = e.ctrl.FeedratePercent()
	e.sendValue(txtAdjustSpeed, uint16(e.feedrateLast))
	if withFan {
		e.sendValue(txtFanSpeedTarget, uint16(e.ctrl.FanPercent()))
		e.sendText(txtLevelOffset, fmt.Sprintf("%.2f", e.ctrl.ZOffset()))
	}
	e.statusFlashAt = e.now()
}

// pageStatusResume is the paused status page, resume button showing.
func (e *Engine) pageStatusResume() {
	switch e.keyValue {
	case 1: // return
		if !e.ctrl.PrintingFromMedia() {
			e.changePage(PageFile)
		}

	case 2: // resume
		if e.pause == pausedIdle || e.pause == pausedFilamentLack ||
			e.state == stateResumingFromPowerOutage {
			e.state = stateIdle
			e.pause = pausedIdle
			e.ctrl.Resume()
			e.changePage(PageStatus2)
			e.statusFlashAt = e.now()
		} else {
			// Heater timeout or purge prompt, acknowledge instead.
			e.ctrl.UserConfirmed()
		}

	case 3: // stop
		if e.ctrl.PrintingFromMedia() {
			e.changePage(PageStopConfirm)
		}

	case 4:
		e.enterAdjust(false)
	}

	if !e.elapsed(&e.statusFlashAt, 1500*time.Millisecond) {
		return
	}
	e.refreshJobTexts()
}

// pageStatusPause is the active status page, pause button showing.
func (e *Engine) pageStatusPause() {
	switch e.keyValue {
	case 1: // return
		if !e.ctrl.PrintingFromMedia() {
			e.changePage(PageFile)
		}

	case 2: // pause
		if e.ctrl.PrintingFromMedia() {
			e.ctrl.Pause()
			e.state = statePausing
			e.pause = pausedIdle
			e.changePage(PageWaitPause)
		}

	case 3: // stop
		if e.ctrl.PrintingFromMedia() {
			e.changePage(PageStopConfirm)
		}

	case 4:
		e.enterAdjust(true)
	}

	if !e.elapsed(&e.statusFlashAt, 1500*time.Millisecond) {
		return
	}
	e.refreshJobTexts()
}

// nudgeZOffset babysteps Z and tracks the offset, clamped to the
// mechanical limit.
func (e *Engine) nudgeZOffset(delta float64, changed *bool) {
	z := e.ctrl.ZOffset()
	if (delta < 0 && z <= -zOffsetLimit) || (delta > 0 && z >= zOffsetLimit) {
		return
	}
	e.ctrl.BabystepZ(delta)
	e.ctrl.SetZOffset(z + delta)
	e.sendText(txtLevelOffset, fmt.Sprintf("%.2f", e.ctrl.ZOffset()))
	*changed = true
}

func (e *Engine) pageAdjust() {
	switch e.keyValue {
	case keyAdjustToPrint:
		e.statusReturn()

	case 2:
		e.nudgeZOffset(-zOffsetStep, &e.adjustZChanged)

	case 3:
		e.nudgeZOffset(+zOffsetStep, &e.adjustZChanged)

	case 4: // chamber light
		on := !e.ctrl.CaseLight()
		e.ctrl.SetCaseLight(on)
		e.sendValue(addrPrintSettingLEDStatus, boolWord(on))

	case 5:
		e.changePage(PageDone)

	case keyAdjustEnsure:
		e.write(EncodeReadRequest(txtAdjustBed, 1))
		e.write(EncodeReadRequest(txtAdjustSpeed, 1))
		e.write(EncodeReadRequest(txtAdjustHotend, 1))
		e.write(EncodeReadRequest(txtFanSpeedTarget, 1))

		if e.adjustZChanged {
			e.adjustZChanged = false
			e.ctrl.Inject(cmdSaveSettings)
		}

		e.statusReturn()
	}
}

// pageReturnToLast covers the simple acknowledge dialogs.
func (e *Engine) pageReturnToLast() {
	if e.keyValue == 1 {
		e.changePageBack(e.pageLast)
	}
}

func (e *Engine) pagePrintFinish() {
	if e.keyValue == 1 {
		e.ctrl.SetCaseLight(false)
		e.changePage(PageMain)
		e.ctrl.SetFeedratePercent(100)
		e.ctrl.ClearElapsed()
	}
}

func (e *Engine) pageWaitDialog() {
	if e.keyValue == 1 || e.keyValue == 2 {
		e.changePageBack(e.pageLast)
	}
}

func (e *Engine) pageFilamentLack() {
	if e.keyValue == 1 {
		e.statusReturn()
	}
}

func (e *Engine) pageStopConfirm() {
	switch e.keyValue {
	case 1: // confirm stop
		if e.ctrl.PrintingFromMedia() {
			e.state = stateStopping
			e.ctrl.Stop()
			e.changePage(PageMain)
		} else {
			if e.state == stateResumingFromPowerOutage {
				e.ctrl.Inject(cmdCancelRecovery)
			}
			e.state = stateIdle
		}

		e.ctrl.SetFeedratePercent(100)
		e.ctrl.ClearElapsed()

	case 2: // keep printing
		e.statusReturn()
	}
}

func (e *Engine) pageNoSD() {
	if e.keyValue == 1 {
		e.ctrl.SetCaseLight(false)
		e.changePage(PageMain)
	}
}

func (e *Engine) pageFilamentHeat() {
	if e.keyValue == 1 {
		e.ctrl.SetHotendTarget(filamentWorkTemp)
		e.changePage(PageFilament)
	}
}
