package audio

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	logx "chimed/pkg/logx"
)

type Config struct {
	// GlobalVolume is linear, 0..100.
	GlobalVolume int
	// RetryOnFail is the number of extra attempts after a device failure.
	RetryOnFail int
	RetryDelay  time.Duration
	// StartsPerSec bounds how many playback attempts may start per second
	// across all schedules, protecting the device from retry storms.
	StartsPerSec int
}

func (c Config) withDefaults() Config {
	if c.GlobalVolume < 0 {
		c.GlobalVolume = 0
	}
	if c.GlobalVolume > 100 {
		c.GlobalVolume = 100
	}
	if c.RetryOnFail < 0 {
		c.RetryOnFail = 0
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.StartsPerSec <= 0 {
		c.StartsPerSec = 8
	}
	return c
}

// Player preloads assets and executes playback requests with retry policy.
// Safe for concurrent use; Apply may run while playbacks are in flight.
type Player struct {
	out Output
	log logx.Logger

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter
	sounds  map[string]*Sound
}

func NewPlayer(cfg Config, out Output, log logx.Logger) *Player {
	p := &Player{
		out:    out,
		log:    log,
		sounds: map[string]*Sound{},
	}
	p.Apply(cfg)
	return p
}

func (p *Player) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	p.mu.Lock()
	p.cfg = cfg
	p.limiter = rate.NewLimiter(rate.Limit(cfg.StartsPerSec), cfg.StartsPerSec)
	p.mu.Unlock()
}

// Preload decodes the asset into the in-memory cache. Already-cached paths
// are re-read so edits to the file take effect on reload.
func (p *Player) Preload(path string) error {
	snd, err := LoadSound(path)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.sounds[path] = snd
	p.mu.Unlock()
	p.log.Debug("audio asset preloaded",
		logx.String("path", path),
		logx.Int("samples", snd.buf.Len()),
	)
	return nil
}

// Retain drops cached sounds whose path is not in keep (schedules removed
// by a reload).
func (p *Player) Retain(keep map[string]struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for path := range p.sounds {
		if _, ok := keep[path]; !ok {
			delete(p.sounds, path)
			p.log.Debug("audio asset unloaded", logx.String("path", path))
		}
	}
}

func (p *Player) sound(path string) (*Sound, error) {
	p.mu.Lock()
	snd := p.sounds[path]
	p.mu.Unlock()
	if snd != nil {
		return snd, nil
	}
	// Not preloaded (preload failed earlier, or file appeared later).
	// Load now so a fixed asset starts working without a restart.
	p.log.Warn("audio asset not preloaded; loading from disk", logx.String("path", path))
	snd, err := LoadSound(path)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.sounds[path] = snd
	p.mu.Unlock()
	return snd, nil
}

// Play executes one playback request, applying the retry policy. Device
// failures are retried with the configured delay; asset failures are
// terminal after a single attempt. The returned Outcome carries the total
// attempt count.
func (p *Player) Play(ctx context.Context, path string) Outcome {
	p.mu.Lock()
	cfg := p.cfg
	limiter := p.limiter
	p.mu.Unlock()

	gain := float64(cfg.GlobalVolume) / 100
	requestID := uuid.NewString()
	log := p.log.With(logx.String("request_id", requestID), logx.String("path", path))

	snd, err := p.sound(path)
	if err != nil {
		log.Error("playback failed: asset unreadable", logx.Err(err), logx.Int("attempt", 1))
		return Outcome{Status: StatusFailed, Attempts: 1, Err: err}
	}

	attempts := 0
	for {
		attempts++

		if err := limiter.Wait(ctx); err != nil {
			return Outcome{Status: StatusCancelled, Attempts: attempts, Err: ctx.Err()}
		}

		err := p.out.Play(ctx, snd, gain)
		if err == nil {
			log.Debug("playback finished", logx.Int("attempt", attempts))
			return Outcome{Status: StatusSuccess, Attempts: attempts}
		}
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Outcome{Status: StatusCancelled, Attempts: attempts, Err: err}
		}
		if errors.Is(err, ErrAsset) {
			log.Error("playback failed: asset unreadable", logx.Err(err), logx.Int("attempt", attempts))
			return Outcome{Status: StatusFailed, Attempts: attempts, Err: err}
		}

		// Device failure: retry if the policy still allows it.
		if attempts > cfg.RetryOnFail {
			log.Error("playback failed: retries exhausted",
				logx.Err(err),
				logx.Int("attempt", attempts),
			)
			return Outcome{Status: StatusFailed, Attempts: attempts, Err: err}
		}
		log.Warn("playback attempt failed; retrying",
			logx.Err(err),
			logx.Int("attempt", attempts),
			logx.Duration("retry_delay", cfg.RetryDelay),
		)
		if !sleepCtx(ctx, cfg.RetryDelay) {
			return Outcome{Status: StatusCancelled, Attempts: attempts, Err: ctx.Err()}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
