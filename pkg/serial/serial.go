//go:build linux

// Package serial drives the DGUS panel uart. The panel hangs off a
// fixed onboard port (ttyS1 on the Kobra trigorilla board) in raw 8N1
// mode; a Unix socket transport stands in for the panel simulator.
package serial

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

var (
	ErrTimeout = errors.New("serial: read timed out")
	ErrClosed  = errors.New("serial: port closed")
)

// Config holds the panel link settings.
type Config struct {
	// Device is the uart path, e.g. /dev/ttyS1.
	Device string

	// BaudRate of the panel link (default 115200, the DWIN T5 default).
	BaudRate int

	// ReadTimeout bounds a single Read call.
	ReadTimeout time.Duration
}

// DefaultConfig returns the settings the panel ships with.
func DefaultConfig() Config {
	return Config{
		BaudRate:    115200,
		ReadTimeout: 5 * time.Second,
	}
}

// Port is an open panel link, either a real uart or a simulator socket.
type Port struct {
	mu          sync.Mutex
	fd          int
	device      string
	readTimeout time.Duration
	closed      bool
	oldTermios  *unix.Termios
	isSocket    bool
}

// Open opens and configures the panel uart.
func Open(cfg Config) (*Port, error) {
	if cfg.Device == "" {
		return nil, errors.New("serial: device path required")
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 5 * time.Second
	}

	fd, err := unix.Open(cfg.Device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", cfg.Device, err)
	}

	oldTermios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("serial: get termios: %w", err)
	}

	termios := *oldTermios

	// Raw mode, 8N1. The panel protocol is pure binary so every kind
	// of line discipline processing has to be off.
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY
	termios.Oflag &^= unix.OPOST
	termios.Cflag &^= unix.CSIZE | unix.PARENB | unix.PARODD | unix.CSTOPB
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN

	speed, err := baudRateToSpeed(cfg.BaudRate)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	termios.Ispeed = speed
	termios.Ospeed = speed

	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = 1

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &termios); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("serial: set termios: %w", err)
	}

	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("serial: set blocking: %w", err)
	}

	// Drop whatever accumulated on the line before the host started.
	// The panel may have been pushing key reports into the void.
	unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH)

	return &Port{
		fd:          fd,
		device:      cfg.Device,
		readTimeout: cfg.ReadTimeout,
		oldTermios:  oldTermios,
	}, nil
}

// OpenSocket connects to a panel simulator over a Unix socket. The
// simulator may come up after the host, so connection is retried until
// the timeout.
func OpenSocket(socketPath string, timeout time.Duration) (*Port, error) {
	if socketPath == "" {
		return nil, errors.New("serial: socket path required")
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("serial: create socket: %w", err)
	}

	addr := &unix.SockaddrUnix{Name: socketPath}
	deadline := time.Now().Add(timeout)
	var connectErr error
	for time.Now().Before(deadline) {
		connectErr = unix.Connect(fd, addr)
		if connectErr == nil {
			break
		}
		if errors.Is(connectErr, unix.ENOENT) || errors.Is(connectErr, unix.ECONNREFUSED) {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		unix.Close(fd)
		return nil, fmt.Errorf("serial: connect to %s: %w", socketPath, connectErr)
	}
	if connectErr != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("serial: connect timeout to %s: %w", socketPath, connectErr)
	}

	return &Port{
		fd:          fd,
		device:      socketPath,
		readTimeout: 5 * time.Second,
		isSocket:    true,
	}, nil
}

// IsSocket reports whether the link is a simulator socket.
func (p *Port) IsSocket() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isSocket
}

// Read reads up to len(buf) bytes, waiting at most the read timeout.
func (p *Port) Read(buf []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrClosed
	}
	fd := p.fd
	timeout := p.readTimeout
	p.mu.Unlock()

	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(pfd, int(timeout.Milliseconds()))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, fmt.Errorf("serial: poll: %w", err)
	}
	if n == 0 {
		return 0, ErrTimeout
	}
	if pfd[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
		return 0, io.EOF
	}

	n, err = unix.Read(fd, buf)
	if err != nil {
		return 0, fmt.Errorf("serial: read: %w", err)
	}
	return n, nil
}

// Write writes buf to the panel.
func (p *Port) Write(buf []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrClosed
	}
	fd := p.fd
	p.mu.Unlock()

	n, err := unix.Write(fd, buf)
	if err != nil {
		return 0, fmt.Errorf("serial: write: %w", err)
	}
	return n, nil
}

// Close closes the link, restoring the original uart settings.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.oldTermios != nil && !p.isSocket {
		_ = unix.IoctlSetTermios(p.fd, unix.TCSETS, p.oldTermios)
	}
	return unix.Close(p.fd)
}

// Device returns the device or socket path.
func (p *Port) Device() string {
	return p.device
}

// SetReadTimeout changes the per-Read timeout.
func (p *Port) SetReadTimeout(d time.Duration) {
	p.mu.Lock()
	p.readTimeout = d
	p.mu.Unlock()
}

// Flush discards pending input and output.
func (p *Port) Flush() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	fd := p.fd
	p.mu.Unlock()

	return unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH)
}

// baudRateToSpeed maps the rates the DWIN T5 can be strapped to. Other
// rates go through BOTHER.
func baudRateToSpeed(baud int) (uint32, error) {
	switch baud {
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 921600:
		return unix.B921600, nil
	}
	if baud > 0 {
		return unix.BOTHER | uint32(baud), nil
	}
	return 0, fmt.Errorf("serial: unsupported baud rate %d", baud)
}
