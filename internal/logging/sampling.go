package logging

import (
	"go.uber.org/zap/zapcore"
)

// newSampledCore splits core into one band per level below Error and samples
// each band with its own rate. Levels without a rate and Error and above pass
// through unsampled.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}

	bands := []zapcore.Core{
		&levelFilterCore{Core: core, minLevel: zapcore.ErrorLevel, maxLevel: zapcore.FatalLevel},
	}

	for lvl := TraceLevel; lvl < zapcore.ErrorLevel; lvl++ {
		band := &levelFilterCore{Core: core, minLevel: lvl, maxLevel: lvl}
		rate, ok := cfg.Levels[lvl]
		if !ok {
			bands = append(bands, band)
			continue
		}
		bands = append(bands, zapcore.NewSamplerWithOptions(band, cfg.Tick.Duration(), rate.Initial, rate.Thereafter))
	}

	return zapcore.NewTee(bands...)
}

// levelFilterCore passes only entries within [minLevel, maxLevel].
type levelFilterCore struct {
	zapcore.Core
	minLevel zapcore.Level
	maxLevel zapcore.Level
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	if lvl < c.minLevel || lvl > c.maxLevel {
		return false
	}
	return c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

// With creates a child core that preserves level filtering.
func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{
		Core:     c.Core.With(fields),
		minLevel: c.minLevel,
		maxLevel: c.maxLevel,
	}
}
