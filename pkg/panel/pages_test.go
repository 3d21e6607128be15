package panel

import "testing"

func TestRemapPageChinese(t *testing.T) {
	for _, p := range []Page{PageMain, PageLeveling, PageOutageRecovery, PageChsHoming} {
		if got := RemapPage(LangCHS, p); got != p {
			t.Errorf("RemapPage(chs, %d) = %d, want %d", p, got, p)
		}
	}
}

func TestRemapPageEnglish(t *testing.T) {
	cases := []struct {
		in, want Page
	}{
		{PageMain, 121},
		{PageFile, 122},
		{PageStatus2, 124},
		{PageSystemChsAudioOn, PageSystemEngAudioOn},
		{PageLeveling, 154},
		{PageAutoOffset, 235},
		{PageOutageRecovery, PageEngOutageRecovery},
		{PageChsProbePreheating, PageEngProbePreheating},
		{PageChsHoming, PageEngHoming},
		{PageChsAbnormalBedHeater, PageEngAbnormalBedHeater},
		{PageChsAbnormalZEndstop, PageEngAbnormalZEndstop},
		{PageChsAbnormalLevelSensor, PageEngAbnormalLevelSensor},
		{PageChsLevelingFailed, PageEngLevelingFailed},
		{PageChsProbePrecheck, PageEngProbePrecheck},
		{PageChsProbePrecheckOK, PageEngProbePrecheckOK},
		{PageChsProbePrecheckFailed, PageEngProbePrecheckFailed},
	}
	for _, c := range cases {
		if got := RemapPage(LangENG, c.in); got != c.want {
			t.Errorf("RemapPage(eng, %d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestStartPage(t *testing.T) {
	if got := startPage(LangCHS); got != PageMain {
		t.Errorf("chs start page = %d, want %d", got, PageMain)
	}
	if got := startPage(LangENG); got != 121 {
		t.Errorf("eng start page = %d, want 121", got)
	}
}

func TestParseLanguage(t *testing.T) {
	if ParseLanguage("eng") != LangENG {
		t.Errorf("eng not recognized")
	}
	if ParseLanguage("chs") != LangCHS {
		t.Errorf("chs not recognized")
	}
	if ParseLanguage("klingon") != LangCHS {
		t.Errorf("unknown language should fall back to chs")
	}
}

func TestDisplayNameTruncation(t *testing.T) {
	if got := displayName("SHORT.GCO"); got != "SHORT.GCO" {
		t.Errorf("short name mangled: %q", got)
	}
	long := "A_VERY_LONG_FILE_NAME.GCO"
	if got := displayName(long); got != long[:17] {
		t.Errorf("long name = %q, want %q", got, long[:17])
	}
}

func TestPrintTimeText(t *testing.T) {
	cases := []struct {
		seconds uint32
		want    string
	}{
		{0, "  0 H   0 M"},
		{59, "  0 H   0 M"},
		{60, "  0 H   1 M"},
		{3600, "  1 H   0 M"},
		{3661, "  1 H   1 M"},
		{360000, "100 H   0 M"},
	}
	for _, c := range cases {
		if got := printTimeText(c.seconds); got != c.want {
			t.Errorf("printTimeText(%d) = %q, want %q", c.seconds, got, c.want)
		}
	}
}
