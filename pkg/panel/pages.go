package panel

// Language selects which half of the panel firmware's page table is
// used. The English pages mirror the Chinese ones at an offset.
type Language int

const (
	LangCHS Language = iota
	LangENG
)

func (l Language) String() string {
	if l == LangENG {
		return "eng"
	}
	return "chs"
}

// ParseLanguage maps a config string to a Language. Unknown values
// fall back to Chinese, matching the panel firmware default.
func ParseLanguage(s string) Language {
	if s == "eng" {
		return LangENG
	}
	return LangCHS
}

// Page is a panel page index as written to the PIC_Now register.
type Page uint16

// Chinese page table. The English mirror lives at +120 with a few
// irregular slots, see RemapPage.
const (
	PageMain         Page = 1
	PageFile         Page = 2
	PageStatus1      Page = 3 // printing, resume button shown
	PageStatus2      Page = 4 // printing, pause button shown
	PageAdjust       Page = 5
	PageKeyboard     Page = 6
	PageTool         Page = 7
	PageMove         Page = 8
	PageTemp         Page = 9
	PageSpeed        Page = 10
	PageSystemChsAudioOn Page = 11
	PageWifi         Page = 12
	PageAbout        Page = 13
	PageRecord       Page = 14
	PagePrepare      Page = 15
	PagePreLevel     Page = 16
	PageLevelAdvance Page = 17
	PagePreheat      Page = 18
	PageFilament     Page = 19
	PageDone         Page = 20
	PageAbnormal     Page = 21
	PagePrintFinish  Page = 22
	PageWaitStop     Page = 23
	PageFilamentLack Page = 25
	PageForbid       Page = 26
	PageStopConfirm  Page = 27
	PageNoSD         Page = 29
	PageFilamentHeat Page = 30
	PageWaitPause    Page = 32
	PageLevelEnsure  Page = 33
	PageLeveling     Page = 34

	PageAutoOffset        Page = 115
	PageSystemChsAudioOff Page = 117
	PageSystemEngAudioOn  Page = 131
	PageSystemEngAudioOff Page = 170

	PageOutageRecovery    Page = 171
	PageEngOutageRecovery Page = 173

	PageEngProbePreheating Page = 175
	PageChsProbePreheating Page = 176

	PageChsHoming               Page = 177
	PageChsAbnormalBedHeater    Page = 178
	PageChsAbnormalBedNTC       Page = 179
	PageChsAbnormalHotendHeater Page = 180
	PageChsAbnormalHotendNTC    Page = 181
	PageChsAbnormalXEndstop     Page = 182
	PageChsAbnormalYEndstop     Page = 183
	PageChsAbnormalZEndstop     Page = 184
	PageChsAbnormalZLEndstop    Page = 185
	PageChsAbnormalZREndstop    Page = 186
	PageChsAbnormalLevelSensor  Page = 187
	PageChsLevelingFailed       Page = 188

	PageEngHoming               Page = 189
	PageEngAbnormalBedHeater    Page = 190
	PageEngAbnormalBedNTC       Page = 191
	PageEngAbnormalHotendHeater Page = 192
	PageEngAbnormalHotendNTC    Page = 193
	PageEngAbnormalXEndstop     Page = 194
	PageEngAbnormalYEndstop     Page = 195
	PageEngAbnormalZEndstop     Page = 196
	PageEngAbnormalZLEndstop    Page = 197
	PageEngAbnormalZREndstop    Page = 198
	PageEngAbnormalLevelSensor  Page = 199
	PageEngLevelingFailed       Page = 200

	PageChsProbePrecheck       Page = 201
	PageChsProbePrecheckOK     Page = 202
	PageChsProbePrecheckFailed Page = 203
	PageEngProbePrecheck       Page = 204
	PageEngProbePrecheckOK     Page = 205
	PageEngProbePrecheckFailed Page = 206
)

// RemapPage translates a Chinese page index to the page actually shown
// for the configured language.
func RemapPage(lang Language, p Page) Page {
	if lang == LangCHS {
		return p
	}
	switch {
	case p == PageOutageRecovery:
		return PageEngOutageRecovery
	case p == PageChsProbePreheating:
		return PageEngProbePreheating
	case p >= PageChsHoming && p <= PageEngHoming:
		return p + 12
	case p >= PageChsProbePrecheck && p <= PageChsProbePrecheckFailed:
		return p + 3
	default:
		return p + 120
	}
}

// startPage is the page shown after panel boot.
func startPage(lang Language) Page {
	if lang == LangENG {
		return PageMain + 120
	}
	return PageMain
}

// Panel registers.
const (
	regLCDReady = 0x0014

	// lcdReadyMagic is the 24-bit boot handshake value.
	lcdReadyMagic = 0x010072
)

// Key report addresses carry the page in the low bits and 0x1 in the
// high nibble.
const keyAddressMask = 0xF000
const keyAddressBase = 0x1000

// Text box and control variable addresses.
const (
	txtMainBed     = 0x2000
	txtMainHotend  = 0x2030
	txtMainMessage = 0x2060

	// File browser rows, 5 slots of 0x30 words each. The describe
	// block holds the row color words.
	txtFile0     = 0x2000 + 3*0x30
	txtDescribe0 = 0x5000
	fileSlotStep = 0x30
	fileSlots    = 5

	txtPrintName     = 0x2000 + 8*0x30
	txtPrintSpeed    = 0x2000 + 9*0x30
	txtPrintTime     = 0x2000 + 10*0x30
	txtPrintProgress = 0x2000 + 11*0x30

	txtAdjustHotend = 0x2000 + 14*0x30
	txtAdjustBed    = 0x2000 + 15*0x30
	txtAdjustSpeed  = 0x2000 + 16*0x30

	txtBedNow       = 0x2000 + 17*0x30
	txtBedTarget    = 0x2000 + 18*0x30
	txtHotendNow    = 0x2000 + 19*0x30
	txtHotendTarget = 0x2000 + 20*0x30

	txtFanSpeedNow     = 0x2000 + 21*0x30
	txtFanSpeedTarget  = 0x2000 + 22*0x30
	txtPrintSpeedNow   = 0x2000 + 23*0x30
	txtPrintSpeedTarget = 0x2000 + 24*0x30

	txtLevelOffset  = 0x2000 + 32*0x30
	txtFilamentTemp = 0x2000 + 33*0x30
	txtFinishTime   = 0x2000 + 34*0x30

	txtPreheatHotend = 0x2000 + 36*0x30
	txtPreheatBed    = 0x2000 + 37*0x30

	txtPreheatHotendInput = 0x3000
	txtPreheatBedInput    = 0x3002

	txtOutageRecoveryProgress = 0x2210
	txtOutageRecoveryFile     = 0x2180

	txtAboutDeviceName  = 0x2750
	txtAboutFwVersion   = 0x2690
	txtAboutPrintVolume = 0x2770
	txtAboutTechSupport = 0x2790

	addrMoveDistance          = 0x4300
	addrSystemLEDStatus       = 0x4500
	addrPrintSettingLEDStatus = 0x4550
)

// Text colors.
const (
	colorRed  = 0xF800
	colorBlue = 0x0210
)

// Key codes, grouped by the page that reports them.
const (
	// main
	keyMainToFile    = 1
	keyMainToTool    = 2
	keyMainToPrepare = 3
	keyMainToSystem  = 4

	// file browser
	keyFileToMain = 1
	keyFilePgUp   = 2
	keyFilePgDn   = 3
	keyFileFlash  = 4
	keyFileResume = 5
	keyFilePrint  = 6
	keyFileSlot0  = 7

	// print status / adjust
	keyPauseResume   = 2
	keyStop          = 3
	keyToAdjust      = 4
	keyAdjustToPrint = 1
	keyAdjustEnsure  = 7

	// tool
	keyToolToMain    = 1
	keyToolToMove    = 2
	keyToolToTemp    = 3
	keyToolToSpeed   = 4
	keyToolMotorsOff = 5
	keyToolLight     = 6

	// move
	keyMoveToTool   = 1
	keyMoveX        = 2
	keyMoveStep01   = 3
	keyMoveNX       = 4
	keyHomeX        = 5
	keyMoveY        = 6
	keyMoveStep1    = 7
	keyMoveNY       = 8
	keyHomeY        = 9
	keyMoveZ        = 10
	keyMoveStep10   = 11
	keyMoveNZ       = 12
	keyHomeZ        = 13
	keySpeedLow     = 14
	keySpeedMiddle  = 15
	keySpeedHigh    = 16
	keyHomeAll      = 17

	// temperature
	keyTempToTool  = 1
	keyBedAdd      = 2
	keyBedDec      = 3
	keyHotendAdd   = 4
	keyHotendDec   = 5
	keyCooldown    = 6
	keyTempEnsure  = 7

	// speed
	keySpeedToTool    = 1
	keyFanSpeedAdd    = 2
	keyFanSpeedDec    = 3
	keyPrintSpeedAdd  = 4
	keyPrintSpeedDec  = 5
	keySpeedEnsure    = 6

	// prepare / leveling
	keyPrepareToMain     = 1
	keyPrepareToPreLevel = 2
	keyPrepareToPreheat  = 3
	keyPreLevelToPrepare = 1
	keyPreLevelToLevel   = 2
	keyPreLevelToAdvance = 3
	keyAdvanceToPreLevel = 1
	keyLevelDec          = 2
	keyLevelAdd          = 3
	keyLevelEnsure       = 4

	// preheat
	keyPreheatToPrepare = 1
	keyPreheatPLA       = 2
	keyPreheatABS       = 3
)
