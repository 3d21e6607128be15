// Package recovery saves the machine state of a running media print
// and rebuilds it after a power outage. The snapshot lives in a small
// fixed-size record so it can be flashed in the milliseconds the
// supply capacitors buy us.
package recovery

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/errors"
)

// SnapshotSize is the fixed on-storage record size.
const SnapshotSize = 512

// filenameLen bounds the stored media path.
const filenameLen = 64

// Snapshot flag bits.
const (
	flagLeveling = 1 << iota
	flagDryrun
	flagColdExtrude
	flagVolumetric
)

// Snapshot is one power-loss record. Head and Foot carry the same
// non-zero sequence number when the record is intact; a write torn by
// the outage leaves them different.
type Snapshot struct {
	Head uint8
	Foot uint8

	PosX float32
	PosY float32
	PosZ float32
	PosE float32

	// ZRaise is the lift already applied (or still owed) after the
	// outage, restored before homing.
	ZRaise float32

	Feedrate     uint16 // mm/min
	HotendTarget int16
	BedTarget    int16
	FanSpeed     uint8

	Leveling    bool
	FadeHeight  float32
	Volumetric  bool
	FilamentDia float32

	RetractLen float32
	RetractHop float32
	Retracted  bool

	Dryrun       bool
	ColdExtrude  bool
	AxisRelative uint8

	Elapsed  uint32
	Progress uint8

	ByteOffset uint32
	Filename   string
}

// Valid reports whether the record was written completely.
func (s *Snapshot) Valid() bool {
	return s.Head != 0 && s.Head == s.Foot
}

func (s *Snapshot) flags() uint8 {
	var f uint8
	if s.Leveling {
		f |= flagLeveling
	}
	if s.Dryrun {
		f |= flagDryrun
	}
	if s.ColdExtrude {
		f |= flagColdExtrude
	}
	if s.Volumetric {
		f |= flagVolumetric
	}
	return f
}

func (s *Snapshot) setFlags(f uint8) {
	s.Leveling = f&flagLeveling != 0
	s.Dryrun = f&flagDryrun != 0
	s.ColdExtrude = f&flagColdExtrude != 0
	s.Volumetric = f&flagVolumetric != 0
}

// record is the wire layout, little-endian. The foot sits at the very
// end of the record so a torn write cannot produce a valid pair.
type record struct {
	Head         uint8
	Flags        uint8
	AxisRelative uint8
	Retracted    uint8
	PosX         float32
	PosY         float32
	PosZ         float32
	PosE         float32
	ZRaise       float32
	Feedrate     uint16
	HotendTarget int16
	BedTarget    int16
	FanSpeed     uint8
	_            uint8
	FadeHeight   float32
	FilamentDia  float32
	RetractLen   float32
	RetractHop   float32
	Elapsed      uint32
	Progress     uint8
	_            [3]uint8
	ByteOffset   uint32
	Filename     [filenameLen]byte
}

// Marshal renders the snapshot into a SnapshotSize byte record.
func (s *Snapshot) Marshal() ([]byte, error) {
	var r record
	r.Head = s.Head
	r.Flags = s.flags()
	r.AxisRelative = s.AxisRelative
	if s.Retracted {
		r.Retracted = 1
	}
	r.PosX, r.PosY, r.PosZ, r.PosE = s.PosX, s.PosY, s.PosZ, s.PosE
	r.ZRaise = s.ZRaise
	r.Feedrate = s.Feedrate
	r.HotendTarget = s.HotendTarget
	r.BedTarget = s.BedTarget
	r.FanSpeed = s.FanSpeed
	r.FadeHeight = s.FadeHeight
	r.FilamentDia = s.FilamentDia
	r.RetractLen = s.RetractLen
	r.RetractHop = s.RetractHop
	r.Elapsed = s.Elapsed
	r.Progress = s.Progress
	r.ByteOffset = s.ByteOffset

	name := s.Filename
	if len(name) >= filenameLen {
		name = name[:filenameLen-1]
	}
	copy(r.Filename[:], name)

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &r); err != nil {
		return nil, errors.Wrap(err, errors.ErrSnapshotMarshal, "encode snapshot record").
			SetComponent("recovery")
	}
	out := make([]byte, SnapshotSize)
	copy(out, buf.Bytes())
	out[SnapshotSize-1] = s.Foot
	return out, nil
}

// Unmarshal parses a record produced by Marshal.
func (s *Snapshot) Unmarshal(data []byte) error {
	if len(data) != SnapshotSize {
		return errors.New(errors.ErrSnapshotInvalid,
			fmt.Sprintf("record length %d, want %d", len(data), SnapshotSize)).
			SetComponent("recovery")
	}
	var r record
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &r); err != nil {
		return errors.Wrap(err, errors.ErrSnapshotMarshal, "decode snapshot record").
			SetComponent("recovery")
	}
	s.Head = r.Head
	s.Foot = data[SnapshotSize-1]
	s.setFlags(r.Flags)
	s.AxisRelative = r.AxisRelative
	s.Retracted = r.Retracted != 0
	s.PosX, s.PosY, s.PosZ, s.PosE = r.PosX, r.PosY, r.PosZ, r.PosE
	s.ZRaise = r.ZRaise
	s.Feedrate = r.Feedrate
	s.HotendTarget = r.HotendTarget
	s.BedTarget = r.BedTarget
	s.FanSpeed = r.FanSpeed
	s.FadeHeight = r.FadeHeight
	s.FilamentDia = r.FilamentDia
	s.RetractLen = r.RetractLen
	s.RetractHop = r.RetractHop
	s.Elapsed = r.Elapsed
	s.Progress = r.Progress
	s.ByteOffset = r.ByteOffset

	end := bytes.IndexByte(r.Filename[:], 0)
	if end < 0 {
		end = filenameLen
	}
	s.Filename = string(r.Filename[:end])
	return nil
}
