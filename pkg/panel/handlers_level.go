package panel

import (
	"fmt"
	"time"
)

func (e *Engine) pagePreLevel() {
	switch e.keyValue {
	case keyPreLevelToPrepare:
		e.changePage(PagePrepare)

	case keyPreLevelToLevel:
		// The strain gauge probe gets a sanity check before the
		// homing and probing sequence runs.
		if !e.ctrl.Printing() {
			e.changePage(PageChsProbePrecheck)
			e.probeTared = false
			e.probeChecks = 0
			e.probeWasOn = false
		}

	case keyPreLevelToAdvance:
		e.sendText(txtLevelOffset, fmt.Sprintf("%.2f", e.ctrl.ZOffset()))
		e.changePage(PageLevelAdvance)

	case 4:
		e.changePage(PageAutoOffset)
	}
}

func (e *Engine) pageLevelAdvance() {
	switch e.keyValue {
	case keyAdvanceToPreLevel:
		e.changePage(PagePreLevel)

	case keyLevelDec:
		e.nudgeZOffset(-zOffsetStep, &e.levelZChanged)

	case keyLevelAdd:
		e.nudgeZOffset(+zOffsetStep, &e.levelZChanged)

	case keyLevelEnsure:
		if e.levelZChanged {
			e.levelZChanged = false
			e.ctrl.Inject(cmdSaveSettings)
		}
		e.changePage(PagePrepare)
	}
}

func (e *Engine) pagePreheat() {
	switch e.keyValue {
	case keyPreheatToPrepare:
		e.changePage(PagePrepare)

	case keyPreheatPLA:
		e.ctrl.SetHotendTarget(190)
		e.ctrl.SetBedTarget(60)
		e.changePage(PagePreheat)

	case keyPreheatABS:
		e.ctrl.SetHotendTarget(240)
		e.ctrl.SetBedTarget(100)
		e.changePage(PagePreheat)
	}

	if !e.elapsed(&e.preheatFlashAt, 1500*time.Millisecond) {
		return
	}
	e.sendText(txtPreheatHotend, e.tempPair(e.ctrl.HotendActual(), e.ctrl.HotendTarget()))
	e.sendText(txtPreheatBed, e.tempPair(e.ctrl.BedActual(), e.ctrl.BedTarget()))
}

func (e *Engine) pageFilament() {
	switch e.keyValue {
	case 1: // return
		e.filament = filamentNone
		e.changePage(PagePrepare)

	case 2: // load
		if e.ctrl.HotendActual() < filamentWarmTemp {
			e.filament = filamentNone
			e.changePage(PageFilamentHeat)
		} else {
			if e.ctrl.HotendTarget() < filamentWorkTemp {
				e.ctrl.SetHotendTarget(filamentWorkTemp)
			}
			e.filament = filamentIn
		}

	case 3: // unload
		if e.ctrl.HotendActual() < filamentWarmTemp {
			e.filament = filamentNone
			e.changePage(PageFilamentHeat)
		} else {
			if e.ctrl.HotendTarget() < filamentWorkTemp {
				e.ctrl.SetHotendTarget(filamentWorkTemp)
			}
			// Push a little first so the tip does not string.
			if e.filament == filamentNone {
				e.ctrl.Inject(cmdUnloadFirstPush)
			}
			e.filament = filamentOut
		}

	case 4: // stop
		e.filament = filamentNone
	}

	if !e.elapsed(&e.filamentFlashAt, time.Second) {
		return
	}

	e.sendText(txtFilamentTemp, e.tempPair(e.ctrl.HotendActual(), e.ctrl.HotendTarget()))

	if e.ctrl.Printing() {
		return
	}
	switch e.filament {
	case filamentIn:
		if e.ctrl.CanExtrude() && e.ctrl.QueueEmpty() {
			e.ctrl.Inject(cmdLoadFilament)
		}
	case filamentOut:
		if e.ctrl.CanExtrude() && e.ctrl.QueueEmpty() {
			e.ctrl.Inject(cmdUnloadFilament)
		}
	}
}

func (e *Engine) pageLevelEnsure() {
	switch e.keyValue {
	case 1: // start leveling
		e.ctrl.SetHotendTarget(levelingNozzleTemp)
		e.ctrl.SetBedTarget(levelingBedTemp)
		e.ctrl.Inject(cmdLevelingStart)
		e.state = stateProbing
		e.changePage(PageLeveling)

	case 2:
		e.changePage(PagePreLevel)
	}
}

func (e *Engine) pageLeveling() {
	if e.popup == PopupLevelingDone {
		e.popup = popupNone
		e.changePage(PagePreLevel)
	}
}

// pageAutoOffset drives the nozzle offset calibration through its
// staged M1024 firmware hooks.
func (e *Engine) pageAutoOffset() {
	switch e.keyValue {
	case 1:
		e.changePage(PagePreLevel)
	case 2:
		e.ctrl.Inject("M1024 S3") // -1
	case 3:
		e.ctrl.Inject("M1024 S4") // +1
	case 4:
		e.ctrl.Inject("M1024 S1") // -0.1
	case 5:
		e.ctrl.Inject("M1024 S2") // +0.1
	case 6:
		e.ctrl.Inject("M1024 S0") // center the head
	case 7:
		e.ctrl.Inject("M1024 S5") // apply
	}
}

// pageOutageRecovery offers resuming the snapshot job after a power
// loss.
func (e *Engine) pageOutageRecovery() {
	switch e.keyValue {
	case 1: // resume
		e.changePage(PageOutageRecovery)
		e.sendText(txtOutageRecoveryFile, displayName(e.rec.Filename()))
		e.sendText(txtPrintSpeed, fmt.Sprintf("%d", e.ctrl.FeedratePercent()))
		e.sendText(txtPrintProgress, fmt.Sprintf("%d", e.ctrl.ProgressPercent()))
		e.changePage(PageStatus2)
		e.ctrl.Inject("M355 S1\n" + cmdResumeRecovery)

	case 2: // cancel
		e.state = stateIdle
		e.changePage(PageMain)
		e.ctrl.Inject("M355 S0\n" + cmdCancelRecovery)
	}
}

// pageAbnormalReturn leaves a hardware fault page. Endstop faults keep
// the fault page one step deeper in the history, so they return two
// pages back.
func (e *Engine) pageAbnormalReturn() {
	if e.keyValue != 1 {
		return
	}

	endstop := (e.pageNow >= PageChsAbnormalXEndstop && e.pageNow <= PageChsAbnormalZEndstop) ||
		(e.pageNow >= PageEngAbnormalXEndstop && e.pageNow <= PageEngAbnormalZEndstop)

	if endstop {
		last2, last := e.pageLast2, e.pageLast
		if e.lang == LangENG {
			if last2 > 120 {
				last2 -= 120
			}
			if last > 120 {
				last -= 120
			}
		}
		if last2 == PageStatus1 || last2 == PageStatus2 || last == PagePrintFinish {
			e.changePage(PageMain)
		} else {
			e.changePage(last2)
		}
	} else {
		e.changePageBack(e.pageLast)
	}

	e.ctrl.EnableSteppers(false)
}

func (e *Engine) pageLevelingFailedReturn() {
	if e.keyValue == 1 {
		e.changePage(PagePreLevel)
	}
}

// pageProbePrecheck tares the strain gauge and waits for the user to
// press the nozzle, proving the probe responds before leveling moves.
func (e *Engine) pageProbePrecheck() {
	if !e.probeTared {
		if err := e.ctrl.Tare(); err != nil {
			e.log.Warn("probe tare: %v", err)
		}
		if e.ctrl.Triggered() { // stuck on, not usable
			e.probeChecks = 0
			e.probeTared = false
			e.changePage(PageChsProbePrecheckFailed)
			return
		}
		e.probeTared = true
		e.probeWasOn = false
	}

	if e.keyValue == 1 { // cancel
		e.probeChecks = 0
		e.probeTared = false
		e.changePage(PagePreLevel)
		return
	}

	if !e.elapsed(&e.probeCheckAt, 300*time.Millisecond) {
		return
	}

	triggered := e.ctrl.Triggered()
	if !e.probeWasOn && triggered {
		e.probeChecks = 0
		e.probeTared = false
		e.changePage(PageChsProbePrecheckOK)
		return
	}
	e.probeWasOn = triggered

	e.probeChecks++
	if e.probeChecks >= 200 { // roughly a minute
		e.probeChecks = 0
		e.probeTared = false
		e.changePage(PageChsProbePrecheckFailed)
	}
}

// pageProbePrecheckOK lets the user see the confirmation, then starts
// the leveling sequence.
func (e *Engine) pageProbePrecheckOK() {
	if e.now().Sub(e.pageEntered) < 3*time.Second {
		return
	}
	e.ctrl.SetHotendTarget(levelingNozzleTemp)
	e.ctrl.SetBedTarget(levelingBedTemp)
	e.ctrl.Inject(cmdLevelingStart)
	e.state = stateProbing
	e.changePage(PageLeveling)
}
