package stlog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/willibrandon/stlog/core"
	"github.com/willibrandon/stlog/selflog"
)

// LevelSource reports a minimum level chosen elsewhere, such as the level
// a Seq server returns with each ingestion response. *sinks.SeqSink
// implements it.
type LevelSource interface {
	MinimumLevelAccepted() (core.LogEventLevel, bool)
}

// SeqLevelControllerOptions configures a SeqLevelController.
type SeqLevelControllerOptions struct {
	// CheckInterval is how often the source is consulted. Default: 30 seconds.
	CheckInterval time.Duration

	// OnError receives failures to apply a level. Default: report to selflog.
	OnError func(error)
}

// SeqLevelController keeps a level switch in step with a LevelSource, so
// the server receiving the events decides how much is sent to it.
type SeqLevelController struct {
	levelSwitch *DynamicLevelSwitch
	source      LevelSource
	interval    time.Duration
	onError     func(error)

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	lastLevel core.LogEventLevel
	applied   bool
}

// NewSeqLevelController starts a controller that checks source every
// CheckInterval and applies level changes to levelSwitch. Call Close to
// stop it.
func NewSeqLevelController(levelSwitch *DynamicLevelSwitch, source LevelSource, options SeqLevelControllerOptions) (*SeqLevelController, error) {
	if levelSwitch == nil || source == nil {
		return nil, fmt.Errorf("%w: level controller needs a switch and a source", core.ErrInvalidArgument)
	}
	if options.CheckInterval <= 0 {
		options.CheckInterval = 30 * time.Second
	}
	if options.OnError == nil {
		options.OnError = func(err error) {
			selflog.Printf("[seqlevel] failed to apply level: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &SeqLevelController{
		levelSwitch: levelSwitch,
		source:      source,
		interval:    options.CheckInterval,
		onError:     options.OnError,
		cancel:      cancel,
	}

	c.wg.Add(1)
	go c.loop(ctx)
	return c, nil
}

func (c *SeqLevelController) loop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ForceCheck(ctx); err != nil {
				c.onError(err)
			}
		}
	}
}

// ForceCheck consults the source now. A level the source has not set, or
// one already applied, leaves the switch alone.
func (c *SeqLevelController) ForceCheck(ctx context.Context) error {
	level, known := c.source.MinimumLevelAccepted()
	if !known {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.applied && level == c.lastLevel {
		return nil
	}
	if err := c.levelSwitch.Set(ctx, level); err != nil {
		return err
	}
	c.lastLevel, c.applied = level, true
	return nil
}

// LastLevel returns the last level applied from the source.
func (c *SeqLevelController) LastLevel() (core.LogEventLevel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastLevel, c.applied
}

// Close stops the controller and waits for an in-progress check.
func (c *SeqLevelController) Close() {
	c.cancel()
	c.wg.Wait()
}
