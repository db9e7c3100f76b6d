package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
)

// Output is the playback device port. Play renders snd at a linear gain in
// [0,1] and blocks until playback finishes or ctx is canceled. A canceled
// ctx abandons the playback (the mixer keeps draining it) and returns
// ctx.Err(); device problems return an error wrapping ErrDevice.
type Output interface {
	Play(ctx context.Context, snd *Sound, gain float64) error
}

// SpeakerOutput plays through the default audio device via the beep
// speaker. The speaker is initialized once, at the first playback, with
// that sound's sample rate; later sounds with a different rate are
// resampled into it. Concurrent playbacks are mixed.
type SpeakerOutput struct {
	mu   sync.Mutex
	rate beep.SampleRate // 0 until initialized
}

func NewSpeakerOutput() *SpeakerOutput { return &SpeakerOutput{} }

const resampleQuality = 4

func (o *SpeakerOutput) Play(ctx context.Context, snd *Sound, gain float64) error {
	rate, err := o.ensureInit(snd.Format.SampleRate)
	if err != nil {
		return err
	}

	var streamer beep.Streamer = snd.Streamer()
	if snd.Format.SampleRate != rate {
		streamer = beep.Resample(resampleQuality, snd.Format.SampleRate, rate, streamer)
	}
	streamer = &effects.Gain{Streamer: streamer, Gain: gain - 1}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (o *SpeakerOutput) ensureInit(sr beep.SampleRate) (beep.SampleRate, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.rate != 0 {
		return o.rate, nil
	}
	// 100ms of buffer keeps dispatch-to-audible latency low without underruns.
	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		return 0, fmt.Errorf("%w: speaker init: %v", ErrDevice, err)
	}
	o.rate = sr
	return sr, nil
}
