package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/youpy/go-wav"
)

const (
	SampleRate    = 48000 // Rate the recognizer is configured for
	Channels      = 1     // Mono audio
	BitsPerSample = 16    // LINEAR16
)

// ErrUnsupportedFormat is returned when a recording does not match the
// encoding the recognizer is configured for.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

type WavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// Format describes the fmt chunk of a WAV recording.
type Format struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// Expected is the format every uploaded recording must have.
func Expected(sampleRate uint32) Format {
	return Format{
		AudioFormat:   wav.AudioFormatPCM,
		Channels:      Channels,
		SampleRate:    sampleRate,
		BitsPerSample: BitsPerSample,
	}
}

func WriteWavHeader(w io.Writer, sampleRate uint32, dataSize uint32) error {
	header := WavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     dataSize + 36,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   wav.AudioFormatPCM,
		NumChannels:   Channels,
		SampleRate:    sampleRate,
		ByteRate:      sampleRate * uint32(Channels) * uint32(BitsPerSample) / 8,
		BlockAlign:    Channels * BitsPerSample / 8,
		BitsPerSample: BitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	return binary.Write(w, binary.LittleEndian, header)
}

// EncodeWav wraps mono 16-bit samples in a WAV container.
func EncodeWav(samples []int16, sampleRate uint32) ([]byte, error) {
	var buf bytes.Buffer
	dataSize := uint32(len(samples) * 2)
	if err := WriteWavHeader(&buf, sampleRate, dataSize); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write samples: %w", err)
	}
	return buf.Bytes(), nil
}

// Inspect reads the fmt chunk of a WAV recording.
func Inspect(data []byte) (Format, error) {
	reader := wav.NewReader(bytes.NewReader(data))
	f, err := reader.Format()
	if err != nil {
		return Format{}, fmt.Errorf("%w: not a WAV recording: %v", ErrUnsupportedFormat, err)
	}
	return Format{
		AudioFormat:   f.AudioFormat,
		Channels:      f.NumChannels,
		SampleRate:    f.SampleRate,
		BitsPerSample: f.BitsPerSample,
	}, nil
}

// Validate checks that data is a WAV recording in the want format.
func Validate(data []byte, want Format) error {
	got, err := Inspect(data)
	if err != nil {
		return err
	}
	switch {
	case got.AudioFormat != want.AudioFormat:
		return fmt.Errorf("%w: audio format %d, want linear PCM", ErrUnsupportedFormat, got.AudioFormat)
	case got.BitsPerSample != want.BitsPerSample:
		return fmt.Errorf("%w: %d bits per sample, want %d", ErrUnsupportedFormat, got.BitsPerSample, want.BitsPerSample)
	case got.Channels != want.Channels:
		return fmt.Errorf("%w: %d channels, want %d", ErrUnsupportedFormat, got.Channels, want.Channels)
	case got.SampleRate != want.SampleRate:
		return fmt.Errorf("%w: sample rate %d Hz, want %d Hz", ErrUnsupportedFormat, got.SampleRate, want.SampleRate)
	}
	return nil
}
