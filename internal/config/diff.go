package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked: routing
// thresholds, abstain/context tunables, retrieval caps, and the log level.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     string

	ThresholdsChanged    bool
	AbstainTauChanged    bool
	ContextSimTauChanged bool
	RetrievalCapsChanged bool
	FuzzyThresholdChanged bool
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Routing.Thresholds != new.Routing.Thresholds {
		d.ThresholdsChanged = true
	}

	if old.Routing.AbstainRiskTau != new.Routing.AbstainRiskTau {
		d.AbstainTauChanged = true
	}

	if old.Routing.ContextSimTau != new.Routing.ContextSimTau {
		d.ContextSimTauChanged = true
	}

	if old.Retrieval != new.Retrieval {
		d.RetrievalCapsChanged = true
	}

	if old.Entity.FuzzyThreshold != new.Entity.FuzzyThreshold {
		d.FuzzyThresholdChanged = true
	}

	return d
}

// Any reports whether the diff contains any hot-reloadable change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.ThresholdsChanged || d.AbstainTauChanged ||
		d.ContextSimTauChanged || d.RetrievalCapsChanged || d.FuzzyThresholdChanged
}
