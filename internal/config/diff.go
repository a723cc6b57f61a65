package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// SessionChanged is true when any session tunable (feedback interval,
	// feedback timeout, idle timeout, reap interval, default difficulty)
	// changed. New sessions pick up the new values; running sessions keep
	// the values they started with.
	SessionChanged bool
	NewSession     SessionConfig

	// ProvidersChanged is true when any provider selection changed. Provider
	// changes require a restart; the watcher reports them so operators can
	// see the pending change in logs.
	ProvidersChanged bool
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart, plus a flag for
// provider changes that are not.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Session != new.Session {
		d.SessionChanged = true
		d.NewSession = new.Session
	}

	if !providersEqual(old.Providers, new.Providers) {
		d.ProvidersChanged = true
	}

	return d
}

// providersEqual compares provider selections, including the fallback chain.
func providersEqual(a, b ProvidersConfig) bool {
	if !entryEqual(a.LLM, b.LLM) || !entryEqual(a.STT, b.STT) || !entryEqual(a.Facial, b.Facial) {
		return false
	}
	if len(a.LLMFallbacks) != len(b.LLMFallbacks) {
		return false
	}
	for i := range a.LLMFallbacks {
		if !entryEqual(a.LLMFallbacks[i], b.LLMFallbacks[i]) {
			return false
		}
	}
	return true
}

// entryEqual compares the standard provider fields. Options maps are ignored:
// they are provider-internal and changes there also require a restart, which
// the name/model comparison already catches in practice.
func entryEqual(a, b ProviderEntry) bool {
	return a.Name == b.Name && a.APIKey == b.APIKey && a.BaseURL == b.BaseURL && a.Model == b.Model
}
