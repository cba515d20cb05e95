package config

const (
	defaultDataDir            = "~/.local/share/greenlight"
	defaultLogDir             = "~/.local/share/greenlight/logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultWorkerCount        = 1
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 30
	defaultRenderBinary       = "renderctl"
	defaultRenderTimeout      = 900
	defaultCanaryTimeout      = 300
	defaultCanaryDailyQuota   = 0
	defaultNotifyTimeout      = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Workflow: Workflow{
			WorkerCount:        defaultWorkerCount,
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Pipeline: Pipeline{
			Enabled:       true,
			GatesBlocking: true,
		},
		Render: Render{
			Binary:           defaultRenderBinary,
			Engine:           "primary",
			CanaryDailyQuota: defaultCanaryDailyQuota,
			CanaryTimeout:    defaultCanaryTimeout,
			Timeout:          defaultRenderTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Executions:     true,
			Derivatives:    true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
