package audio

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWav_RoundTripsFormat(t *testing.T) {
	data, err := EncodeWav(make([]int16, SampleRate*2), SampleRate)
	require.NoError(t, err)
	assert.Len(t, data, 44+SampleRate*2*2)

	format, err := Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, Expected(SampleRate), format)
	assert.NoError(t, Validate(data, Expected(SampleRate)))
}

func TestValidate_RejectsMismatchedSampleRate(t *testing.T) {
	data, err := EncodeWav(make([]int16, 1600), 16000)
	require.NoError(t, err)

	err = Validate(data, Expected(SampleRate))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "sample rate 16000 Hz")
}

func TestValidate_RejectsStereo(t *testing.T) {
	data, err := EncodeWav(make([]int16, 480), SampleRate)
	require.NoError(t, err)
	// NumChannels lives at byte offset 22.
	binary.LittleEndian.PutUint16(data[22:], 2)

	err = Validate(data, Expected(SampleRate))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "2 channels")
}

func TestInspect_NotWav(t *testing.T) {
	_, err := Inspect([]byte("definitely not a riff container"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestEncodeWav_HeaderSizes(t *testing.T) {
	samples := []int16{1, -1, 2, -2}
	data, err := EncodeWav(samples, SampleRate)
	require.NoError(t, err)
	require.Len(t, data, 44+len(samples)*2)

	var header WavHeader
	require.NoError(t, binary.Read(bytes.NewReader(data), binary.LittleEndian, &header))
	assert.Equal(t, uint32(8), header.Subchunk2Size)
	assert.Equal(t, uint32(44), header.ChunkSize)
	assert.Equal(t, uint32(SampleRate*2), header.ByteRate)
}
