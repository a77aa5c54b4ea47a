package client

import (
	"errors"
	"log/slog"
	"math"
	"time"
)

const (
	DefaultSilenceThreshold = 1 * time.Second
	DefaultVADThreshold     = 2.22
	backgroundBufferSize    = 50

	// Digital silence would make every chunk look like speech.
	minBackgroundNoise = 1.0
)

// ErrNoSpeech is returned when a recording window closes before anyone speaks.
var ErrNoSpeech = errors.New("no speech detected")

// Detector finds one utterance in a stream of mono PCM chunks. It tracks the
// background noise level and treats chunks whose energy rises above
// VADThreshold times that level as speech. The utterance ends once
// SilenceThreshold of audio has passed without speech.
type Detector struct {
	SampleRate       int
	VADThreshold     float64
	SilenceThreshold time.Duration

	backgroundNoise  float64
	backgroundBuffer []float64

	isTransmitting bool
	done           bool
	silentSamples  int
	utterance      []int16
	logCounter     int
}

func NewDetector(sampleRate int) *Detector {
	return &Detector{
		SampleRate:       sampleRate,
		VADThreshold:     DefaultVADThreshold,
		SilenceThreshold: DefaultSilenceThreshold,
		backgroundBuffer: make([]float64, 0, backgroundBufferSize),
	}
}

// Calibrate feeds a chunk of known background audio.
func (d *Detector) Calibrate(chunk []int16) {
	if len(chunk) == 0 {
		return
	}
	d.updateBackgroundNoise(calculateChunkAmplitude(chunk))
}

// BackgroundNoise is the current average amplitude of non-speech audio.
func (d *Detector) BackgroundNoise() float64 {
	return math.Max(d.backgroundNoise, minBackgroundNoise)
}

// Process consumes one chunk and reports whether the utterance is complete.
func (d *Detector) Process(chunk []int16) bool {
	if d.done || len(chunk) == 0 {
		return d.done
	}

	chunkAmplitude := calculateChunkAmplitude(chunk)
	energyRatio := chunkAmplitude / d.BackgroundNoise()
	isSpeech := energyRatio > d.VADThreshold

	d.logCounter++
	if d.logCounter%10 == 0 {
		slog.Debug("Audio chunk received",
			"chunkAmplitude", chunkAmplitude,
			"backgroundNoise", d.backgroundNoise,
			"ratio", energyRatio)
	}

	switch {
	case isSpeech:
		d.silentSamples = 0
		if !d.isTransmitting {
			d.isTransmitting = true
			slog.Info("Speech detected, recording",
				"chunkAmplitude", chunkAmplitude,
				"backgroundNoise", d.backgroundNoise,
				"ratio", energyRatio)
		}
		d.utterance = append(d.utterance, chunk...)
	case d.isTransmitting:
		// Keep short pauses inside the utterance
		d.utterance = append(d.utterance, chunk...)
		d.silentSamples += len(chunk)
		if d.silence() > d.SilenceThreshold {
			d.isTransmitting = false
			d.done = true
			slog.Info("Extended silence detected, recording complete",
				"totalSamples", len(d.utterance),
				"durationSeconds", d.Duration().Seconds())
		}
	default:
		d.updateBackgroundNoise(chunkAmplitude)
	}
	return d.done
}

// Speaking reports whether an utterance has started.
func (d *Detector) Speaking() bool {
	return d.isTransmitting || d.done
}

// Utterance returns the samples recorded so far, trailing silence included.
func (d *Detector) Utterance() []int16 {
	return d.utterance
}

// Duration is the length of the recorded utterance.
func (d *Detector) Duration() time.Duration {
	if d.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(d.utterance)) * time.Second / time.Duration(d.SampleRate)
}

func (d *Detector) silence() time.Duration {
	if d.SampleRate <= 0 {
		return 0
	}
	return time.Duration(d.silentSamples) * time.Second / time.Duration(d.SampleRate)
}

func (d *Detector) updateBackgroundNoise(amplitude float64) {
	if len(d.backgroundBuffer) >= backgroundBufferSize {
		d.backgroundBuffer = d.backgroundBuffer[1:]
	}
	d.backgroundBuffer = append(d.backgroundBuffer, amplitude)

	// Calculate new background noise level
	var sum float64
	for _, a := range d.backgroundBuffer {
		sum += a
	}
	d.backgroundNoise = sum / float64(len(d.backgroundBuffer))
}

func calculateChunkAmplitude(chunk []int16) float64 {
	var totalAmplitude float64
	for _, sample := range chunk {
		totalAmplitude += math.Abs(float64(sample))
	}
	return totalAmplitude / float64(len(chunk))
}
