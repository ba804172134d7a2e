// Package ratelimit provides a token bucket rate limiter used to throttle
// FTP data-connection throughput to a configured bytes-per-second rate.
package ratelimit

import (
	"io"
	"sync"
	"time"
)

// Limiter implements a token bucket rate limiter. The bucket capacity
// equals one second worth of data, so short bursts are allowed while the
// average rate holds over time.
//
// A nil *Limiter is valid and means unlimited.
type Limiter struct {
	rate  float64 // bytes per second
	burst float64 // bucket capacity

	mu         sync.Mutex
	tokens     float64
	lastUpdate time.Time
}

// New creates a rate limiter for the given bytes-per-second rate.
// A rate of zero or less returns nil (unlimited).
func New(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	rate := float64(bytesPerSecond)
	return &Limiter{
		rate:       rate,
		burst:      rate,
		tokens:     rate, // start with a full bucket
		lastUpdate: time.Now(),
	}
}

// refill adds tokens for the time elapsed since the last update.
// Callers must hold mu.
func (rl *Limiter) refill() {
	now := time.Now()
	rl.tokens += now.Sub(rl.lastUpdate).Seconds() * rl.rate
	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}
	rl.lastUpdate = now
}

// take consumes n tokens, sleeping for the minimum time needed when the
// bucket runs dry. Waits are capped at one second per call so a single
// oversized request cannot stall the transfer loop.
func (rl *Limiter) take(n int) {
	if rl == nil || n <= 0 {
		return
	}

	needed := float64(n)

	rl.mu.Lock()
	rl.refill()
	if rl.tokens >= needed {
		rl.tokens -= needed
		rl.mu.Unlock()
		return
	}

	short := needed - rl.tokens
	wait := time.Duration(short / rl.rate * float64(time.Second))
	if wait > time.Second {
		wait = time.Second
	}
	rl.mu.Unlock()

	time.Sleep(wait)

	rl.mu.Lock()
	rl.refill()
	if rl.tokens >= needed {
		rl.tokens -= needed
	} else {
		rl.tokens = 0 // capped wait: consume what is there
	}
	rl.mu.Unlock()
}

type reader struct {
	r       io.Reader
	limiter *Limiter
}

// NewReader wraps r so reads are throttled by limiter.
// A nil limiter returns r unchanged.
func NewReader(r io.Reader, limiter *Limiter) io.Reader {
	if limiter == nil {
		return r
	}
	return &reader{r: r, limiter: limiter}
}

// Read implements io.Reader with rate limiting. Reads are clamped to small
// chunks so the observed rate stays close to the configured one.
func (r *reader) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}

	const maxChunk = 8 * 1024
	readSize := min(len(p), maxChunk)

	r.limiter.take(readSize)
	return r.r.Read(p[:readSize])
}

type writer struct {
	w       io.Writer
	limiter *Limiter
}

// NewWriter wraps w so writes are throttled by limiter.
// A nil limiter returns w unchanged.
func NewWriter(w io.Writer, limiter *Limiter) io.Writer {
	if limiter == nil {
		return w
	}
	return &writer{w: w, limiter: limiter}
}

// Write implements io.Writer with rate limiting. Tokens are consumed before
// each chunk is written, applying backpressure to the producer.
func (w *writer) Write(p []byte) (n int, err error) {
	const maxChunk = 64 * 1024

	total := 0
	for total < len(p) {
		chunk := min(len(p)-total, maxChunk)

		w.limiter.take(chunk)

		written, err := w.w.Write(p[total : total+chunk])
		total += written
		if err != nil {
			return total, err
		}
	}

	return total, nil
}
