package mic

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/youpy/go-wav"
)

// Play plays a WAV recording on the default output device and returns once
// it has finished or ctx is cancelled.
func Play(ctx context.Context, recording []byte) error {
	reader := wav.NewReader(bytes.NewReader(recording))
	format, err := reader.Format()
	if err != nil {
		return fmt.Errorf("failed to read WAV format: %w", err)
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	finished := make(chan struct{})
	var finishOnce sync.Once
	stop := func() { finishOnce.Do(func() { close(finished) }) }

	stream, err := portaudio.OpenDefaultStream(
		0,
		int(format.NumChannels),
		float64(format.SampleRate),
		framesPerBuffer,
		func(out []int16) {
			frames := uint32(len(out) / int(format.NumChannels))
			samples, err := reader.ReadSamples(frames)
			if err != nil && err != io.EOF {
				slog.Error("Error reading from WAV file", "error", err)
			}

			i := 0
			for _, sample := range samples {
				for ch := 0; ch < int(format.NumChannels) && i < len(out); ch++ {
					out[i] = int16(sample.Values[ch])
					i++
				}
			}
			// Fill remaining buffer with silence if needed
			for ; i < len(out); i++ {
				out[i] = 0
			}
			if err != nil {
				stop()
			}
		},
	)
	if err != nil {
		return fmt.Errorf("failed to open audio stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start audio stream: %w", err)
	}

	select {
	case <-finished:
	case <-ctx.Done():
	}

	return stream.Stop()
}
