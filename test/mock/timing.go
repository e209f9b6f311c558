package mock

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"k8s.io/klog/v2"
)

// TimingSimulator adds realistic timing delays to mock operations
type TimingSimulator struct {
	enabled     bool
	mountDelay  time.Duration
	toolDelay   time.Duration
	delayJitter time.Duration

	mu  sync.Mutex // rand.Rand is not safe for concurrent use
	rng *rand.Rand
}

// NewTimingSimulator creates a new timing simulator from configuration
func NewTimingSimulator(config MockConfig) *TimingSimulator {
	return &TimingSimulator{
		enabled:     config.RealisticTiming,
		mountDelay:  time.Duration(config.MountDelayMs) * time.Millisecond,
		toolDelay:   time.Duration(config.ToolDelayMs) * time.Millisecond,
		delayJitter: time.Duration(config.DelayJitterMs) * time.Millisecond,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// jittered returns base ± jitter, never negative
func (t *TimingSimulator) jittered(base time.Duration) time.Duration {
	if t.delayJitter <= 0 {
		return base
	}
	t.mu.Lock()
	jitter := time.Duration(t.rng.Int63n(int64(t.delayJitter*2))) - t.delayJitter
	t.mu.Unlock()

	if d := base + jitter; d > 0 {
		return d
	}
	return 0
}

// SimulateMount sleeps for the mount syscall delay
func (t *TimingSimulator) SimulateMount() {
	if !t.enabled || t.mountDelay == 0 {
		return
	}
	delay := t.jittered(t.mountDelay)
	klog.V(4).Infof("Mock timing: mount simulation %dms", delay.Milliseconds())
	time.Sleep(delay)
}

// SimulateTool sleeps for the tool run time, returning early if ctx ends
func (t *TimingSimulator) SimulateTool(ctx context.Context) error {
	if !t.enabled || t.toolDelay == 0 {
		return nil
	}
	delay := t.jittered(t.toolDelay)
	klog.V(4).Infof("Mock timing: tool run simulation %dms", delay.Milliseconds())

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
