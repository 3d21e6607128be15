package panel

import (
	"fmt"
	"time"

	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/printer"
)

// systemPage switches to the system page matching the current
// language and beeper setting. The English mute page sits at raw
// index 50, outside the regular +120 mirror.
func (e *Engine) systemPage() {
	switch {
	case e.audio:
		e.changePage(PageSystemChsAudioOn)
	case e.lang == LangENG:
		e.changePage(Page(50))
	default:
		e.changePage(PageSystemChsAudioOff)
	}
}

func (e *Engine) pageMain() {
	switch e.keyValue {
	case keyMainToFile:
		e.txtboxPage = 0
		e.clearRowHighlight()
		e.txtboxIndex = 0
		e.changePage(PageFile)
		e.sendFileList(0)

	case keyMainToTool:
		e.changePage(PageTool)
		e.sendValue(addrSystemLEDStatus, boolWord(e.ctrl.CaseLight()))

	case keyMainToPrepare:
		e.changePage(PagePrepare)

	case keyMainToSystem:
		e.systemPage()
	}
}

func (e *Engine) pageFile() {
	switch e.keyValue {
	case keyFileToMain:
		e.changePage(PageMain)
		e.clearRowHighlight()

	case keyFilePgUp:
		if e.txtboxPage > 0 {
			e.txtboxPage--
			e.clearRowHighlight()
			e.txtboxIndex = 0
			e.sendFileList(e.txtboxPage * fileSlots)
		}

	case keyFilePgDn:
		if (e.txtboxPage+1)*fileSlots < e.nav.count() {
			e.txtboxPage++
			e.clearRowHighlight()
			e.txtboxIndex = 0
			e.sendFileList(e.txtboxPage * fileSlots)
		}

	case keyFileFlash:
		e.nav.reset()
		e.txtboxPage = 0
		e.clearRowHighlight()
		e.txtboxIndex = 0
		e.sendFileList(0)

	case keyFileResume:
		// Resume the interrupted job with the highlighted file.
		if e.txtboxIndex < 1 || e.txtboxIndex > fileSlots {
			break
		}
		name, ok := e.nav.name(e.txtboxPage*fileSlots + e.txtboxIndex - 1)
		if !ok {
			break
		}
		e.clearRowHighlight()
		e.ctrl.SetCaseLight(true)
		e.sendText(txtPrintName, displayName(name))
		if e.state == stateResumingFromPowerOutage {
			e.changePage(PageStatus2)
			e.ctrl.Inject(cmdResumeRecovery)
		}

	case keyFilePrint:
		if e.txtboxIndex < 1 || e.txtboxIndex > fileSlots {
			break
		}
		name, ok := e.nav.name(e.txtboxPage*fileSlots + e.txtboxIndex - 1)
		if !ok {
			break
		}
		e.clearRowHighlight()

		// Starting a fresh job abandons any pending outage snapshot.
		if e.state == stateResumingFromPowerOutage {
			e.ctrl.Inject(cmdCancelRecovery)
			e.state = stateIdle
		}

		e.ctrl.SetCaseLight(true)
		e.ctrl.Select(name)
		e.ctrl.Start(name)

		e.sendText(txtPrintName, displayName(name))
		e.sendText(txtPrintSpeed, fmt.Sprintf("%d", e.ctrl.FeedratePercent()))
		e.sendText(txtPrintProgress, fmt.Sprintf("%d", e.ctrl.ProgressPercent()))
		e.sendText(txtPrintTime, printTimeText(0))
		e.changePage(PageStatus2)

	case 7, 8, 9, 10, 11: // row select
		row := int(e.keyValue) - 6
		if e.txtboxPage*fileSlots+row > e.nav.count() {
			break
		}
		e.txtboxIndex = row

		if e.txtboxPage*fileSlots+e.txtboxIndex-1 < e.nav.count() {
			e.sendColor(txtDescribe0+uint16(fileSlotStep*(e.txtboxIndex-1)), colorRed)
			if e.txtboxIndexLast != 0 && e.txtboxIndexLast != e.txtboxIndex {
				e.sendColor(txtDescribe0+uint16(fileSlotStep*(e.txtboxIndexLast-1)), colorBlue)
			}
			e.txtboxIndexLast = e.txtboxIndex
		}
	}
}

func (e *Engine) pageTool() {
	switch e.keyValue {
	case keyToolToMain:
		e.changePage(PageMain)

	case keyToolToMove:
		e.changePage(PageMove)

	case keyToolToTemp:
		e.changePage(PageTemp)
		e.sendValue(txtHotendNow, uint16(e.ctrl.HotendActual()))
		e.sendValue(txtHotendTarget, uint16(e.ctrl.HotendTarget()))
		e.sendValue(txtBedNow, uint16(e.ctrl.BedActual()))
		e.sendValue(txtBedTarget, uint16(e.ctrl.BedTarget()))

	case keyToolToSpeed:
		e.changePage(PageSpeed)
		e.sendValue(txtFanSpeedNow, uint16(e.ctrl.FanPercent()))
		e.sendValue(txtFanSpeedTarget, uint16(e.ctrl.FanPercent()))
		e.sendValue(txtPrintSpeedNow, uint16(e.ctrl.FeedratePercent()))
		e.sendValue(txtPrintSpeedTarget, uint16(e.ctrl.FeedratePercent()))

	case keyToolMotorsOff:
		if !e.ctrl.Moving() {
			e.ctrl.EnableSteppers(false)
			e.ctrl.SetAllUnhomed()
		}

	case keyToolLight:
		on := !e.ctrl.CaseLight()
		e.ctrl.SetCaseLight(on)
		e.sendValue(addrSystemLEDStatus, boolWord(on))
	}
}

func (e *Engine) pageMove() {
	jog := false
	switch e.keyValue {
	case 2, 4, 6, 8, 10, 12:
		jog = true
	}
	if jog && !e.ctrl.Moving() && e.ctrl.Position().Z < 0 {
		e.ctrl.MoveAxis(printer.AxisZ, 0, moveFeedZ)
	}

	switch e.keyValue {
	case keyMoveToTool:
		e.changePage(PageTool)

	case keyHomeX:
		if !e.ctrl.Moving() {
			e.ctrl.Inject("G28 X")
		}
	case keyHomeY:
		if !e.ctrl.Moving() {
			e.ctrl.Inject("G28 Y")
		}
	case keyHomeZ:
		if !e.ctrl.Moving() {
			// Z homing needs a trusted XY so the probe lands on the
			// bed.
			if e.ctrl.Homed() {
				e.ctrl.Inject("G28 Z")
			} else {
				e.ctrl.Inject("G28")
			}
		}
	case keyHomeAll:
		if !e.ctrl.Moving() {
			e.ctrl.Inject("G28")
		}

	case keyMoveX:
		e.jogAxis(printer.AxisX, -e.moveDistance, moveFeedXY)
	case keyMoveNX:
		e.jogAxis(printer.AxisX, +e.moveDistance, moveFeedXY)
	case keyMoveY:
		e.jogAxis(printer.AxisY, +e.moveDistance, moveFeedXY)
	case keyMoveNY:
		e.jogAxis(printer.AxisY, -e.moveDistance, moveFeedXY)
	case keyMoveZ:
		e.jogAxis(printer.AxisZ, -e.moveDistance, moveFeedZ)
	case keyMoveNZ:
		e.jogAxis(printer.AxisZ, +e.moveDistance, moveFeedZ)

	case keyMoveStep01:
		e.moveDistance = 0.1
		e.sendValue(addrMoveDistance, 1)
	case keyMoveStep1:
		e.moveDistance = 1.0
		e.sendValue(addrMoveDistance, 2)
	case keyMoveStep10:
		e.moveDistance = 10.0
		e.sendValue(addrMoveDistance, 3)

	case keySpeedLow:
		e.moveSpeed = 3000
	case keySpeedMiddle:
		e.moveSpeed = 2000
	case keySpeedHigh:
		e.moveSpeed = 1000
	}
}

func (e *Engine) jogAxis(axis printer.Axis, delta, feed float64) {
	if e.ctrl.Moving() {
		return
	}
	pos := e.ctrl.Position()
	var target float64
	switch axis {
	case printer.AxisX:
		target = pos.X + delta
	case printer.AxisY:
		target = pos.Y + delta
	case printer.AxisZ:
		target = pos.Z + delta
	}
	e.ctrl.MoveAxis(axis, target, feed)
}

func (e *Engine) pageTemp() {
	switch e.keyValue {
	case keyTempToTool:
		e.changePage(PageTool)

	case keyCooldown:
		e.ctrl.SetHotendTarget(0)
		e.ctrl.SetBedTarget(0)
		e.changePage(PageTool)

	case keyTempEnsure:
		e.write(EncodeReadRequest(txtHotendTarget, 1))
		e.write(EncodeReadRequest(txtBedTarget, 1))
		e.changePage(PageTool)
	}

	if !e.elapsed(&e.tempFlashAt, 1500*time.Millisecond) {
		return
	}
	e.sendValue(txtHotendNow, uint16(e.ctrl.HotendActual()))
	e.sendValue(txtBedNow, uint16(e.ctrl.BedActual()))
}

func (e *Engine) pageSpeed() {
	switch e.keyValue {
	case keySpeedToTool:
		e.changePage(PageTool)

	case keySpeedEnsure:
		e.write(EncodeReadRequest(txtFanSpeedTarget, 1))
		e.write(EncodeReadRequest(txtPrintSpeedTarget, 1))
		e.changePage(PageTool)
	}

	if !e.elapsed(&e.speedFlashAt, 1500*time.Millisecond) {
		return
	}
	e.sendValue(txtFanSpeedNow, uint16(e.ctrl.FanPercent()))
	e.sendValue(txtPrintSpeedNow, uint16(e.ctrl.FeedratePercent()))
}

func (e *Engine) pageSystem() {
	switch e.keyValue {
	case 1: // return
		e.changePage(PageMain)
		if e.langSaved != e.lang || e.audioSaved != e.audio {
			e.langSaved = e.lang
			e.audioSaved = e.audio
			e.ctrl.Inject(cmdSaveSettings)
		}

	case 2: // language
		if e.lang == LangCHS {
			e.lang = LangENG
		} else {
			e.lang = LangCHS
		}
		e.systemPage()

	case 4: // beeper
		e.audio = !e.audio
		e.systemPage()
		e.write(EncodeAudio(e.audio))

	case 5: // about
		e.sendText(txtAboutDeviceName, e.machineName)
		e.sendText(txtAboutFwVersion, e.fwVersion)
		e.sendText(txtAboutPrintVolume, e.buildVolume)
		e.sendText(txtAboutTechSupport, e.techSupport)
		e.changePage(PageAbout)

	case 6:
		e.changePage(PageRecord)
	}
}

func (e *Engine) pageWifi() {
	if e.keyValue == 1 {
		e.systemPage()
	}
}

func (e *Engine) pageAbout() {
	if e.keyValue == 1 {
		e.systemPage()
	}
}

func (e *Engine) pagePrepare() {
	switch e.keyValue {
	case keyPrepareToMain:
		e.changePage(PageMain)

	case keyPrepareToPreLevel:
		e.changePage(PagePreLevel)

	case keyPrepareToPreheat:
		e.changePage(PagePreheat)
		e.sendText(txtPreheatHotend, e.tempPair(e.ctrl.HotendActual(), e.ctrl.HotendTarget()))
		e.sendText(txtPreheatBed, e.tempPair(e.ctrl.BedActual(), e.ctrl.BedTarget()))

	case 4: // filament
		e.sendText(txtFilamentTemp, e.tempPair(e.ctrl.HotendActual(), e.ctrl.HotendTarget()))
		e.changePage(PageFilament)
	}
}
