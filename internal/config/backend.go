package config

// ConfigBackend is where persisted settings live: UserDefaults (through the
// `defaults` CLI) on macOS and a JSON file elsewhere. Keys are the dotted
// names from the specs table; ok is false when a key was never set.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
