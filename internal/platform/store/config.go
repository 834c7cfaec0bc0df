package store

// SQLiteConfig configures the embedded scratch database
type SQLiteConfig struct {
	// Enabled opens the backend when true
	Enabled bool

	// Path is the database file location; ":memory:" is valid for tests
	Path string

	// BusyTimeoutMs bounds lock waits; <=0 -> 5000
	BusyTimeoutMs int

	// LogSQL enables per-statement query logging through the store logger
	LogSQL bool

	// SlowQueryMs marks statements slower than this as slow in logs; <=0 -> 500
	SlowQueryMs int
}

// Config carries all backend configs the store knows about
type Config struct {
	SQLite SQLiteConfig
}
