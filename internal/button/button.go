// ABOUTME: Linux evdev key event source for the mute button
// ABOUTME: Parses raw input_event records from /dev/input character devices
package button

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cambox-project/cambox-go/internal/intercom"
)

// Input event type and key codes from the Linux input subsystem.
const (
	EvKey uint16 = 0x01

	// KeyMicMute is the default mute button code (KEY_MICMUTE).
	KeyMicMute uint16 = 248
)

// eventSize is sizeof(struct input_event) on a 64-bit kernel:
// two 8-byte timeval words, type, code, value.
const eventSize = 24

// Event is one decoded input_event record.
type Event struct {
	Type  uint16
	Code  uint16
	Value int32
}

// parseEvent decodes one little-endian input_event record.
func parseEvent(raw []byte) (Event, error) {
	if len(raw) < eventSize {
		return Event{}, fmt.Errorf("short input event: %d bytes", len(raw))
	}
	return Event{
		Type:  binary.LittleEndian.Uint16(raw[16:18]),
		Code:  binary.LittleEndian.Uint16(raw[18:20]),
		Value: int32(binary.LittleEndian.Uint32(raw[20:24])),
	}, nil
}

// Source reads key events from one input device node. It satisfies the
// intercom button source contract.
type Source struct {
	path string
	name string
	file *os.File
	raw  [eventSize]byte
}

// Open opens an input device node for polling. Non-blocking mode lets
// read deadlines interrupt an idle device.
func Open(path string) (*Source, error) {
	file, err := os.OpenFile(path, os.O_RDONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Source{path: path, name: deviceName(path), file: file}, nil
}

// Poll waits up to timeout for the next key event. Non-key records are
// consumed and reported as no-event so callers keep their poll cadence.
func (s *Source) Poll(timeout time.Duration) (intercom.ButtonEvent, bool, error) {
	if err := s.file.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return intercom.ButtonEvent{}, false, err
	}

	n, err := s.file.Read(s.raw[:])
	if err != nil {
		if os.IsTimeout(err) {
			return intercom.ButtonEvent{}, false, nil
		}
		return intercom.ButtonEvent{}, false, fmt.Errorf("read %s: %w", s.path, err)
	}

	ev, err := parseEvent(s.raw[:n])
	if err != nil {
		return intercom.ButtonEvent{}, false, err
	}
	if ev.Type != EvKey {
		return intercom.ButtonEvent{}, false, nil
	}

	// Value 1 is a press; 0 is release, 2 is autorepeat. Only the
	// press counts as a rising edge.
	return intercom.ButtonEvent{Key: ev.Code, Pressed: ev.Value == 1}, true, nil
}

// Name reports the kernel device name, falling back to the node path.
func (s *Source) Name() string {
	return s.name
}

// Close releases the device node.
func (s *Source) Close() error {
	return s.file.Close()
}

// deviceName resolves the human-readable name sysfs keeps per node.
func deviceName(path string) string {
	base := filepath.Base(path)
	raw, err := os.ReadFile(filepath.Join("/sys/class/input", base, "device/name"))
	if err != nil {
		return path
	}
	name := strings.TrimSpace(string(raw))
	if name == "" {
		return path
	}
	return name
}

// Discover opens every readable input device node. Devices we cannot
// open (permissions, races with unplugging) are skipped quietly; no
// devices at all is a valid result, the intercom just stays muted.
func Discover(log *logrus.Entry) []intercom.ButtonSource {
	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return nil
	}

	var sources []intercom.ButtonSource
	for _, path := range paths {
		src, err := Open(path)
		if err != nil {
			log.WithError(err).WithField("path", path).Debug("skipping input device")
			continue
		}
		log.WithFields(logrus.Fields{
			"path": path,
			"name": src.Name(),
		}).Debug("opened input device")
		sources = append(sources, src)
	}
	return sources
}
