package driven

// ConfigStore is the persisted half of doclens settings; the environment
// is layered on top by services.SettingsService.
//
// Keys use dot notation ("embedding.provider", "query.top_k"). Typed getters
// return the zero value when the key is absent or holds another type.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64
	GetStringSlice(key string) []string

	// Set stores value under key and persists it before returning.
	Set(key string, value any) error

	// Load re-reads the backing file, discarding unsaved state.
	Load() error

	// Path returns the location of the backing file.
	Path() string
}
