package panel

import (
	"time"

	"github.com/BBAmod/AnyCubic-Kobra-Printer/pkg/errors"
)

// Panel opcodes. The panel reports variable writes with OpWrite and
// answers read requests with OpRead.
const (
	OpWrite = 0x82
	OpRead  = 0x83
)

const (
	sync1 = 0x5A
	sync2 = 0xA5

	// frameCapacity bounds the payload buffer. Longer frames are
	// discarded and the decoder resyncs.
	frameCapacity = 64

	// sync2Window is how long the second sync byte may lag the first.
	sync2Window = 500 * time.Millisecond
)

// Frame is one decoded panel report. Data starts at the opcode byte,
// the sync bytes and length byte are stripped.
type Frame struct {
	Data []byte
}

// Opcode returns the command byte.
func (f Frame) Opcode() byte {
	if len(f.Data) == 0 {
		return 0
	}
	return f.Data[0]
}

// Address returns the big-endian VP address at bytes 1..2.
func (f Frame) Address() uint16 {
	if len(f.Data) < 3 {
		return 0
	}
	return uint16(f.Data[1])<<8 | uint16(f.Data[2])
}

// Value returns the big-endian word at bytes 4..5, which is where the
// panel places the value of a one-word variable report.
func (f Frame) Value() uint16 {
	if len(f.Data) < 6 {
		return 0
	}
	return uint16(f.Data[4])<<8 | uint16(f.Data[5])
}

// Value24 returns the 24-bit value at bytes 3..5, used by the boot
// ready report.
func (f Frame) Value24() uint32 {
	if len(f.Data) < 6 {
		return 0
	}
	return uint32(f.Data[3])<<16 | uint32(f.Data[4])<<8 | uint32(f.Data[5])
}

// ByteSource supplies link bytes without blocking. The second return
// is false when no byte is waiting.
type ByteSource interface {
	ReadByte() (byte, bool)
}

type decoderState int

const (
	stateWaitSync1 decoderState = iota
	stateWaitSync2
	stateReadLength
	stateReadPayload
)

// Decoder reassembles panel frames from the serial byte stream. It is
// resynchronizing: garbage between frames is skipped at the sync
// bytes, oversized frames are dropped.
type Decoder struct {
	src ByteSource
	now func() time.Time

	state     decoderState
	syncSeen  time.Time
	length    int
	count     int
	buf       [frameCapacity]byte
}

// NewDecoder returns a Decoder reading from src.
func NewDecoder(src ByteSource) *Decoder {
	return &Decoder{src: src, now: time.Now}
}

func (d *Decoder) reset() {
	d.state = stateWaitSync1
	d.length = 0
	d.count = 0
}

// Poll consumes available bytes and returns at most one complete
// frame. It returns nil when the source runs dry mid-frame; the
// partial state is kept for the next call.
func (d *Decoder) Poll() (*Frame, error) {
	for {
		b, ok := d.src.ReadByte()
		if !ok {
			if d.state == stateWaitSync2 && d.now().Sub(d.syncSeen) > sync2Window {
				d.reset()
				return nil, errors.FrameTimeoutError(sync2Window.String())
			}
			return nil, nil
		}

		switch d.state {
		case stateWaitSync1:
			if b == sync1 {
				d.state = stateWaitSync2
				d.syncSeen = d.now()
			}

		case stateWaitSync2:
			if b == sync2 {
				d.state = stateReadLength
			} else {
				d.reset()
			}

		case stateReadLength:
			if int(b) > frameCapacity {
				length := int(b)
				d.reset()
				return nil, errors.FrameOverflowError(length, frameCapacity)
			}
			if b == 0 {
				// An empty frame carries nothing; complete it here so
				// the next sync byte is not consumed as payload.
				d.reset()
				return &Frame{Data: []byte{}}, nil
			}
			d.length = int(b)
			d.count = 0
			d.state = stateReadPayload

		case stateReadPayload:
			d.buf[d.count] = b
			d.count++
			if d.count >= d.length {
				data := make([]byte, d.length)
				copy(data, d.buf[:d.length])
				d.reset()
				return &Frame{Data: data}, nil
			}
		}
	}
}

// EncodeValue builds a one-word variable write.
func EncodeValue(addr, value uint16) []byte {
	return []byte{
		sync1, sync2, 0x05, OpWrite,
		byte(addr >> 8), byte(addr),
		byte(value >> 8), byte(value),
	}
}

// EncodeReadRequest builds a variable read for the given word count.
func EncodeReadRequest(addr uint16, words uint8) []byte {
	return []byte{
		sync1, sync2, 0x04, OpRead,
		byte(addr >> 8), byte(addr),
		words,
	}
}

// EncodeText builds a text variable write terminated by FF FF, which
// clears the rest of the text box on the panel.
func EncodeText(addr uint16, text string) []byte {
	const maxText = 250
	if len(text) > maxText {
		text = text[:maxText]
	}

	buf := make([]byte, 0, len(text)+8)
	buf = append(buf, sync1, sync2, byte(len(text)+5), OpWrite,
		byte(addr>>8), byte(addr))
	buf = append(buf, text...)
	buf = append(buf, 0xFF, 0xFF)
	return buf
}

// EncodeColor builds a write to the color word of a text box. The
// color register sits three words past the box address.
func EncodeColor(addr, color uint16) []byte {
	return EncodeValue(addr+3, color)
}

// EncodePage builds a PIC_Now register write switching the displayed
// page.
func EncodePage(page uint16) []byte {
	return []byte{
		sync1, sync2, 0x07, OpWrite,
		0x00, 0x84, 0x5A, 0x01,
		byte(page >> 8), byte(page),
	}
}

// EncodeAudio builds the system register write toggling the touch
// beeper.
func EncodeAudio(on bool) []byte {
	b := []byte{sync1, sync2, 0x07, OpWrite, 0x00, 0x80, 0x5A, 0x00, 0x00, 0x12}
	if on {
		b[9] = 0x1A
	}
	return b
}

// EncodePowerLamp builds the system register write driving the panel
// power indicator.
func EncodePowerLamp(on bool) []byte {
	b := EncodeValue(0x0082, 0x0064)
	if on {
		b[7] = 0x00
	}
	return b
}
