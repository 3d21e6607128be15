package printer

import "testing"

func TestSimulatorInjectRecords(t *testing.T) {
	sim := NewSimulator()
	sim.Inject("G28", "G29")
	sim.Inject("M500")

	got := sim.Injected()
	want := []string{"G28", "G29", "M500"}
	if len(got) != len(want) {
		t.Fatalf("injected = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("injected[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	sim.ClearInjected()
	if len(sim.Injected()) != 0 {
		t.Error("ClearInjected left commands behind")
	}
}

func TestSimulatorHomeAxes(t *testing.T) {
	sim := NewSimulator()
	sim.SetPosition(Position{X: 10, Y: 20, Z: 30, E: 40})

	sim.HomeAxes("XY")
	p := sim.Position()
	if p.X != 0 || p.Y != 0 {
		t.Errorf("XY not homed: %+v", p)
	}
	if p.Z != 30 {
		t.Errorf("Z moved on XY home: %+v", p)
	}
	if !sim.Homed() {
		t.Error("Homed() = false after HomeAxes")
	}

	sim.HomeAxes("")
	p = sim.Position()
	if p.X != 0 || p.Y != 0 || p.Z != 0 {
		t.Errorf("full home left axes: %+v", p)
	}
	if p.E != 40 {
		t.Errorf("E reset by home: %+v", p)
	}
}

func TestSimulatorCompensatedZ(t *testing.T) {
	sim := NewSimulator()
	sim.SetLeveling(true, 10, 0.01)

	z := sim.CompensatedZ(10, 10, 1)
	if z != 1.2 {
		t.Errorf("CompensatedZ = %v, want 1.2", z)
	}
}

func TestSimulatorThermal(t *testing.T) {
	sim := NewSimulator()
	sim.SetHotendTarget(210)
	sim.SetBedTarget(60)

	sim.DisableAllHeaters()
	if sim.HotendTarget() != 0 || sim.BedTarget() != 0 {
		t.Error("DisableAllHeaters left targets set")
	}
	if !sim.HeatersDisabled() {
		t.Error("HeatersDisabled not latched")
	}
	if sim.PinsOff() {
		t.Error("PinsOff latched without HeaterPinsOff")
	}
	sim.HeaterPinsOff()
	if !sim.PinsOff() {
		t.Error("PinsOff not latched")
	}
}
