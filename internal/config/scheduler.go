package config

// SchedulerConfig holds the cron specs of the periodic jobs.  An empty
// spec disables the job.
type SchedulerConfig struct {
	Enabled          bool
	TokenPurgeSpec   string
	QCSweepSpec      string
	QCSweepBatchSize int
}

// LoadSchedulerConfig reads SCHEDULER_* variables.  Specs use the standard
// five-field cron syntax or descriptors such as "@hourly".
func LoadSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:          envBool("SCHEDULER_ENABLED", true),
		TokenPurgeSpec:   envStr("SCHEDULER_TOKEN_PURGE", "@daily"),
		QCSweepSpec:      envStr("SCHEDULER_QC_SWEEP", ""),
		QCSweepBatchSize: envInt("SCHEDULER_QC_SWEEP_SIZE", 20),
	}
}
