package sync

// Config holds configuration for the sync service
type Config struct {
	// SnapshotMonths is how many months of category snapshots to refresh on
	// a full cycle, counting back from the current month.
	SnapshotMonths int
}

// DefaultConfig returns the default sync configuration
func DefaultConfig() *Config {
	return &Config{
		SnapshotMonths: 1,
	}
}

// Validate normalizes out-of-range values
func (c *Config) Validate() error {
	if c.SnapshotMonths <= 0 {
		c.SnapshotMonths = 1
	}
	return nil
}
