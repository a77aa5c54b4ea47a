// Package mic captures utterances from a local input device.
package mic

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashleysally00/interview-voice-to-text-test/audio"
	"github.com/ashleysally00/interview-voice-to-text-test/client"
	"github.com/gordonklaus/portaudio"
)

const (
	calibrationDuration = 2 * time.Second
	framesPerBuffer     = 1024
)

type Options struct {
	// DeviceID selects an input device from ListDevices; 0 uses the default.
	DeviceID   int
	SampleRate int
	// MaxDuration bounds the whole capture, calibration included.
	MaxDuration      time.Duration
	VADThreshold     float64
	SilenceThreshold time.Duration
}

// Device is an input device; ID is what Options.DeviceID expects.
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
}

func ListDevices() ([]Device, error) {
	err := portaudio.Initialize()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}

	// Filter to only input devices
	inputDevices := make([]Device, 0)
	for i, device := range devices {
		if device.MaxInputChannels > 0 {
			inputDevices = append(inputDevices, Device{
				ID:                i,
				Name:              device.Name,
				MaxInputChannels:  device.MaxInputChannels,
				DefaultSampleRate: device.DefaultSampleRate,
			})
		}
	}

	return inputDevices, nil
}

// Record calibrates against room noise, waits for speech and returns the
// utterance as a mono 16-bit WAV file.
func Record(ctx context.Context, opts Options) ([]byte, error) {
	if opts.SampleRate <= 0 {
		opts.SampleRate = audio.SampleRate
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, opts.MaxDuration)
	defer cancel()

	err := portaudio.Initialize()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	inputParams, err := streamParameters(opts.DeviceID, opts.SampleRate)
	if err != nil {
		return nil, err
	}

	// The callback runs on the audio thread and reuses its buffer.
	chunks := make(chan []int16, 64)
	stream, err := portaudio.OpenStream(inputParams, func(in []int16) {
		chunk := make([]int16, len(in))
		copy(chunk, in)
		select {
		case chunks <- chunk:
		default:
			slog.Warn("Dropping audio chunk, consumer is behind")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("failed to start audio stream: %w", err)
	}
	defer func() {
		if err := stream.Stop(); err != nil {
			slog.Error("Failed to stop audio stream", "error", err)
		}
	}()

	detector := client.NewDetector(opts.SampleRate)
	if opts.VADThreshold > 0 {
		detector.VADThreshold = opts.VADThreshold
	}
	if opts.SilenceThreshold > 0 {
		detector.SilenceThreshold = opts.SilenceThreshold
	}

	slog.Debug("Calibrating background noise")
	calibrateUntil := time.Now().Add(calibrationDuration)
	for time.Now().Before(calibrateUntil) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case chunk := <-chunks:
			detector.Calibrate(chunk)
		}
	}
	slog.Debug("Background noise calibration complete", "averageAmplitude", detector.BackgroundNoise())
	slog.Info("Listening, speak now")

	for {
		select {
		case <-ctx.Done():
			if !detector.Speaking() {
				return nil, client.ErrNoSpeech
			}
			// Out of time mid-utterance: keep what we have
			slog.Warn("Recording window closed during speech", "durationSeconds", detector.Duration().Seconds())
			return audio.EncodeWav(detector.Utterance(), uint32(opts.SampleRate))
		case chunk := <-chunks:
			if detector.Process(chunk) {
				return audio.EncodeWav(detector.Utterance(), uint32(opts.SampleRate))
			}
		}
	}
}

func streamParameters(deviceID, sampleRate int) (portaudio.StreamParameters, error) {
	var device *portaudio.DeviceInfo
	if deviceID > 0 { // Only use specific device if explicitly requested (non-zero)
		devices, err := portaudio.Devices()
		if err != nil {
			return portaudio.StreamParameters{}, fmt.Errorf("failed to get audio devices: %w", err)
		}
		if deviceID >= len(devices) {
			return portaudio.StreamParameters{}, fmt.Errorf("invalid device ID %d", deviceID)
		}

		device = devices[deviceID]
		if device.MaxInputChannels == 0 {
			return portaudio.StreamParameters{}, fmt.Errorf("device %d (%s) is not an input device", deviceID, device.Name)
		}
		slog.Info("Using specified audio device",
			"deviceID", deviceID,
			"deviceName", device.Name,
			"sampleRate", device.DefaultSampleRate,
			"inputChannels", device.MaxInputChannels)
	} else {
		defaultDevice, err := portaudio.DefaultInputDevice()
		if err != nil {
			return portaudio.StreamParameters{}, fmt.Errorf("failed to get default input device: %w", err)
		}
		device = defaultDevice
		slog.Info("Using default audio device",
			"deviceName", device.Name,
			"sampleRate", device.DefaultSampleRate,
			"inputChannels", device.MaxInputChannels)
	}

	return portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: audio.Channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: framesPerBuffer,
	}, nil
}
