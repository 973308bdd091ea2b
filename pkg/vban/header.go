// ABOUTME: VBAN packet header codec
// ABOUTME: Encodes and decodes the fixed 28-byte header
package vban

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderSize is the fixed VBAN header length in bytes.
	HeaderSize = 28

	// Port is the default VBAN UDP port.
	Port = 6980

	// StreamNameSize is the stream name field width, including the
	// null terminator.
	StreamNameSize = 16

	// MaxSamplesPerFrame is the largest frame count one packet can carry.
	MaxSamplesPerFrame = 256

	// MaxChannels is the largest channel count the header can express.
	MaxChannels = 256

	// MaxPacketSize bounds a receive buffer: header plus 256 samples of
	// 8 channels at 4 bytes per sample.
	MaxPacketSize = HeaderSize + 256*8*4
)

// magic is the ASCII "VBAN" marker at the start of every packet.
var magic = [4]byte{'V', 'B', 'A', 'N'}

// Sub-protocol tags carried in the upper 3 bits of header byte 4.
// Only audio is handled; the others are rejected at decode time.
const (
	protocolAudio   = 0x00
	protocolMask    = 0xE0
	rateIndexMask   = 0x1F
	defaultRateHz   = 48000
	sampleRateCount = 20
)

// Codec identifies the payload sample format (header byte 7).
type Codec uint8

const (
	CodecPCM8 Codec = iota
	CodecPCM16
	CodecPCM24
	CodecPCM32
	CodecFloat32
	CodecFloat64
)

// BytesPerSample returns the payload width of one sample.
func (c Codec) BytesPerSample() int {
	switch c {
	case CodecPCM8:
		return 1
	case CodecPCM16:
		return 2
	case CodecPCM24:
		return 3
	case CodecPCM32, CodecFloat32:
		return 4
	case CodecFloat64:
		return 8
	default:
		return 2
	}
}

func (c Codec) String() string {
	switch c {
	case CodecPCM8:
		return "pcm8"
	case CodecPCM16:
		return "pcm16"
	case CodecPCM24:
		return "pcm24"
	case CodecPCM32:
		return "pcm32"
	case CodecFloat32:
		return "float32"
	case CodecFloat64:
		return "float64"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// Decode failures. Receivers treat all of these as a silent drop.
var (
	ErrShortPacket = errors.New("vban: packet shorter than header")
	ErrBadMagic    = errors.New("vban: invalid magic")
	ErrNotAudio    = errors.New("vban: not an audio sub-protocol packet")
)

// ErrUnsupportedRate is returned when constructing a header with a
// sample rate outside the fixed table.
var ErrUnsupportedRate = errors.New("vban: unsupported sample rate")

// ErrBadChannels is returned when constructing a header with a channel
// count the wire format cannot express.
var ErrBadChannels = errors.New("vban: channel count out of range")

// sampleRates maps rate index to Hz. The order is fixed by the wire
// format: the base-2 family first, then the base-44100 family.
var sampleRates = [sampleRateCount]int{
	6000, 12000, 24000, 48000, 96000, 192000, 384000,
	8000, 16000, 32000, 64000, 128000, 256000, 512000,
	11025, 22050, 44100, 88200, 176400, 352800,
}

// SampleRateToIndex maps a rate in Hz to its table index.
func SampleRateToIndex(rate int) (uint8, error) {
	for i, r := range sampleRates {
		if r == rate {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %d Hz", ErrUnsupportedRate, rate)
}

// IndexToSampleRate maps a table index to Hz.
func IndexToSampleRate(index uint8) (int, error) {
	if int(index) >= len(sampleRates) {
		return 0, fmt.Errorf("%w: index %d", ErrUnsupportedRate, index)
	}
	return sampleRates[index], nil
}

// Header describes one VBAN audio stream packet.
type Header struct {
	rateIndex uint8

	// SamplesPerFrame is filled in by Decode. Senders pass the frame
	// count to Encode instead, since it varies per packet.
	SamplesPerFrame int

	// Channels is the interleaved channel count (1 to 256).
	Channels int

	// Codec identifies the payload sample format.
	Codec Codec

	// StreamName identifies the logical stream (up to 15 ASCII bytes).
	StreamName string

	// FrameCounter increments per packet and wraps at 32 bits.
	FrameCounter uint32
}

// NewHeader creates a sender-side header for one logical stream.
// The sample rate must be in the fixed table. Stream names longer
// than 15 bytes are truncated, matching the wire field width.
func NewHeader(streamName string, sampleRate, channels int, codec Codec) (*Header, error) {
	idx, err := SampleRateToIndex(sampleRate)
	if err != nil {
		return nil, err
	}
	if channels < 1 || channels > MaxChannels {
		return nil, fmt.Errorf("%w: %d", ErrBadChannels, channels)
	}
	if len(streamName) > StreamNameSize-1 {
		streamName = streamName[:StreamNameSize-1]
	}
	return &Header{
		rateIndex:  idx,
		Channels:   channels,
		Codec:      codec,
		StreamName: streamName,
	}, nil
}

// SampleRate returns the rate in Hz. Indices outside the table fall
// back to 48000 so that a decoded header is always usable.
func (h *Header) SampleRate() int {
	if int(h.rateIndex) < len(sampleRates) {
		return sampleRates[h.rateIndex]
	}
	return defaultRateHz
}

// Encode serializes the header for a packet carrying samplesPerFrame
// frames. The counter is not advanced; callers bump FrameCounter once
// per transmitted packet.
func (h *Header) Encode(samplesPerFrame int) []byte {
	if samplesPerFrame < 1 {
		samplesPerFrame = 1
	}
	if samplesPerFrame > MaxSamplesPerFrame {
		samplesPerFrame = MaxSamplesPerFrame
	}

	buf := make([]byte, HeaderSize, HeaderSize+samplesPerFrame*h.Channels*h.Codec.BytesPerSample())
	copy(buf[0:4], magic[:])
	buf[4] = h.rateIndex&rateIndexMask | protocolAudio
	buf[5] = uint8(samplesPerFrame - 1)
	buf[6] = uint8(h.Channels - 1)
	buf[7] = uint8(h.Codec)
	copy(buf[8:24], h.StreamName)
	binary.LittleEndian.PutUint32(buf[24:28], h.FrameCounter)
	return buf
}

// Decode parses a received datagram's header. It never panics on
// malformed input: short packets, wrong magic, and non-audio
// sub-protocols return a typed error instead.
func Decode(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(data))
	}
	if data[0] != magic[0] || data[1] != magic[1] || data[2] != magic[2] || data[3] != magic[3] {
		return nil, ErrBadMagic
	}
	if data[4]&protocolMask != protocolAudio {
		return nil, ErrNotAudio
	}

	name := data[8:24]
	end := len(name)
	for i, b := range name {
		if b == 0 {
			end = i
			break
		}
	}

	return &Header{
		rateIndex:       data[4] & rateIndexMask,
		SamplesPerFrame: int(data[5]) + 1,
		Channels:        int(data[6]) + 1,
		Codec:           Codec(data[7]),
		StreamName:      string(name[:end]),
		FrameCounter:    binary.LittleEndian.Uint32(data[24:28]),
	}, nil
}
