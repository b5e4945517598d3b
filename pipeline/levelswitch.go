package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/willibrandon/stlog/core"
)

// DynamicLevelSwitch is a minimum level that can change while the program
// runs. Until a level is set every event passes.
//
// Changing the level first runs the flush delegate, so events already in
// the pipeline are judged by the level they were emitted under. The new
// level is committed only when the flush succeeds.
type DynamicLevelSwitch struct {
	mu       sync.Mutex
	level    atomic.Pointer[core.LogEventLevel]
	delegate atomic.Pointer[func(context.Context) error]
}

// NewDynamicLevelSwitch creates a switch with no level set.
func NewDynamicLevelSwitch() *DynamicLevelSwitch {
	return &DynamicLevelSwitch{}
}

// SetFlushDelegate sets the function run before each level change.
// A nil fn restores the default, which does nothing.
func (s *DynamicLevelSwitch) SetFlushDelegate(fn func(context.Context) error) {
	if fn == nil {
		s.delegate.Store(nil)
		return
	}
	s.delegate.Store(&fn)
}

// Level returns the current level and whether one has been set.
func (s *DynamicLevelSwitch) Level() (core.LogEventLevel, bool) {
	if l := s.level.Load(); l != nil {
		return *l, true
	}
	return core.OffLevel, false
}

// IsEnabled reports whether events at target currently pass the switch.
func (s *DynamicLevelSwitch) IsEnabled(target core.LogEventLevel) bool {
	l := s.level.Load()
	return l == nil || core.IsEnabled(*l, target)
}

// Set flushes through the delegate and then switches to level. Concurrent
// calls are applied one at a time.
func (s *DynamicLevelSwitch) Set(ctx context.Context, level core.LogEventLevel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fn := s.delegate.Load(); fn != nil {
		if err := (*fn)(ctx); err != nil {
			return fmt.Errorf("flush before switching to %s: %w", level, err)
		}
	}
	s.level.Store(&level)
	return nil
}

// Fatal switches to FatalLevel.
func (s *DynamicLevelSwitch) Fatal(ctx context.Context) error {
	return s.Set(ctx, core.FatalLevel)
}

// Error switches to ErrorLevel.
func (s *DynamicLevelSwitch) Error(ctx context.Context) error {
	return s.Set(ctx, core.ErrorLevel)
}

// Warning switches to WarningLevel.
func (s *DynamicLevelSwitch) Warning(ctx context.Context) error {
	return s.Set(ctx, core.WarningLevel)
}

// Information switches to InformationLevel.
func (s *DynamicLevelSwitch) Information(ctx context.Context) error {
	return s.Set(ctx, core.InformationLevel)
}

// Debug switches to DebugLevel.
func (s *DynamicLevelSwitch) Debug(ctx context.Context) error {
	return s.Set(ctx, core.DebugLevel)
}

// Verbose switches to VerboseLevel.
func (s *DynamicLevelSwitch) Verbose(ctx context.Context) error {
	return s.Set(ctx, core.VerboseLevel)
}

// Off switches to OffLevel, dropping every event.
func (s *DynamicLevelSwitch) Off(ctx context.Context) error {
	return s.Set(ctx, core.OffLevel)
}

// DynamicLevelSwitchStage filters events through a DynamicLevelSwitch.
type DynamicLevelSwitchStage struct {
	*FilterStage
	levelSwitch *DynamicLevelSwitch
}

// NewDynamicLevelSwitchStage creates a filter stage driven by levelSwitch.
func NewDynamicLevelSwitchStage(levelSwitch *DynamicLevelSwitch) (*DynamicLevelSwitchStage, error) {
	if levelSwitch == nil {
		return nil, fmt.Errorf("%w: level switch is nil", core.ErrInvalidArgument)
	}
	return &DynamicLevelSwitchStage{
		FilterStage: &FilterStage{filter: core.FilterFunc(func(e *core.LogEvent) bool {
			return levelSwitch.IsEnabled(e.Level)
		})},
		levelSwitch: levelSwitch,
	}, nil
}

// Switch returns the switch driving this stage.
func (s *DynamicLevelSwitchStage) Switch() *DynamicLevelSwitch {
	return s.levelSwitch
}

// SetFlushDelegate binds the switch's pre-change flush.
func (s *DynamicLevelSwitchStage) SetFlushDelegate(fn func(context.Context) error) {
	s.levelSwitch.SetFlushDelegate(fn)
}
