// Package wav reads and writes RIFF/WAVE files carrying 16-bit PCM audio.
//
// The decoder accepts any sample rate and channel count, skips chunks it
// does not understand (LIST, fact, cue and friends) and rejects anything
// that is not linear PCM. The encoder produces the plain 44-byte-header
// form that every tool understands.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/voicelock/voicelock/pkg/audio/pcm"
)

const (
	riffSignature = "RIFF"
	waveSignature = "WAVE"
	fmtChunkID    = "fmt "
	dataChunkID   = "data"

	formatPCM        = 1
	formatExtensible = 0xfffe

	headerSize = 44
)

var (
	// ErrNotRIFF is returned when the input is not a RIFF/WAVE stream.
	ErrNotRIFF = errors.New("wav: not a RIFF/WAVE file")
	// ErrNotPCM is returned for compressed or floating point encodings.
	ErrNotPCM = errors.New("wav: not linear PCM")
	// ErrUnsupportedDepth is returned for bit depths other than 16.
	ErrUnsupportedDepth = errors.New("wav: only 16-bit samples are supported")
	// ErrNoData is returned when the stream has no data chunk.
	ErrNoData = errors.New("wav: missing data chunk")
)

// File is a decoded WAVE file. Samples are interleaved when Channels > 1.
type File struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

// Frames returns the number of sample frames (samples per channel).
func (f *File) Frames() int {
	if f.Channels == 0 {
		return 0
	}
	return len(f.Samples) / f.Channels
}

// Duration returns the play time of the file.
func (f *File) Duration() time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(f.Frames()) * time.Second / time.Duration(f.SampleRate)
}

// Decode reads a RIFF/WAVE stream and returns its PCM contents.
// Unknown chunks are skipped; fmt and data may appear in either order.
func Decode(r io.Reader) (*File, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRIFF, err)
	}
	if string(riff[0:4]) != riffSignature || string(riff[8:12]) != waveSignature {
		return nil, ErrNotRIFF
	}

	var (
		file    File
		haveFmt bool
		data    []byte
	)
	for {
		var header [8]byte
		if _, err := io.ReadFull(r, header[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, fmt.Errorf("wav: read chunk header: %w", err)
		}
		id := string(header[0:4])
		size := binary.LittleEndian.Uint32(header[4:8])

		switch id {
		case fmtChunkID:
			if size < 16 {
				return nil, fmt.Errorf("%w: fmt chunk too short", ErrNotRIFF)
			}
			buf := make([]byte, size)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, fmt.Errorf("wav: read fmt chunk: %w", err)
			}
			format := binary.LittleEndian.Uint16(buf[0:2])
			if format != formatPCM && format != formatExtensible {
				return nil, fmt.Errorf("%w: format tag %#x", ErrNotPCM, format)
			}
			if depth := binary.LittleEndian.Uint16(buf[14:16]); depth != 16 {
				return nil, fmt.Errorf("%w: got %d-bit", ErrUnsupportedDepth, depth)
			}
			file.Channels = int(binary.LittleEndian.Uint16(buf[2:4]))
			file.SampleRate = int(binary.LittleEndian.Uint32(buf[4:8]))
			if file.Channels < 1 || file.SampleRate < 1 {
				return nil, fmt.Errorf("%w: invalid fmt chunk", ErrNotRIFF)
			}
			haveFmt = true
		case dataChunkID:
			data = make([]byte, size)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, fmt.Errorf("wav: read data chunk: %w", err)
			}
		default:
			if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
				return nil, fmt.Errorf("wav: skip %q chunk: %w", id, err)
			}
		}

		// Chunks are word aligned; odd sizes carry a pad byte.
		if size%2 == 1 {
			if _, err := io.CopyN(io.Discard, r, 1); err != nil && err != io.EOF {
				return nil, fmt.Errorf("wav: skip pad byte: %w", err)
			}
		}
	}

	if !haveFmt || data == nil {
		return nil, ErrNoData
	}
	file.Samples = pcm.BytesToInt16(data)
	return &file, nil
}

// Encode writes interleaved 16-bit PCM samples as a WAVE stream.
func Encode(w io.Writer, samples []int16, sampleRate, channels int) error {
	if sampleRate < 1 || channels < 1 {
		return fmt.Errorf("wav: invalid format: rate=%d channels=%d", sampleRate, channels)
	}

	dataLen := len(samples) * 2
	blockAlign := channels * 2
	byteRate := sampleRate * blockAlign

	header := make([]byte, headerSize)
	copy(header[0:], riffSignature)
	binary.LittleEndian.PutUint32(header[4:], uint32(36+dataLen))
	copy(header[8:], waveSignature)
	copy(header[12:], fmtChunkID)
	binary.LittleEndian.PutUint32(header[16:], 16)
	binary.LittleEndian.PutUint16(header[20:], formatPCM)
	binary.LittleEndian.PutUint16(header[22:], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:], 16)
	copy(header[36:], dataChunkID)
	binary.LittleEndian.PutUint32(header[40:], uint32(dataLen))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("wav: write header: %w", err)
	}
	if _, err := w.Write(pcm.Int16ToBytes(samples)); err != nil {
		return fmt.Errorf("wav: write samples: %w", err)
	}
	return nil
}
