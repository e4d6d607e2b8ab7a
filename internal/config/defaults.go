package config

const (
	defaultLibraryDir   = "~/GOG"
	defaultManifestPath = "~/.local/share/gogvault/manifest.json"
	defaultLogDir       = "~/.local/share/gogvault/logs"

	defaultGOGBaseURL        = "https://www.gog.com/account"
	defaultGOGTimeoutSeconds = 30
	defaultGOGPageSize       = 100

	defaultFetchWorkers            = 4
	defaultCheckpointInterval      = 50
	defaultChangeDetection         = "remote-flag"
	defaultMaxConsecutiveFailures  = 5
	defaultMinFreeSpaceGiB         = 1

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir:   defaultLibraryDir,
			ManifestPath: defaultManifestPath,
			LogDir:       defaultLogDir,
		},
		GOG: GOG{
			BaseURL:        defaultGOGBaseURL,
			TimeoutSeconds: defaultGOGTimeoutSeconds,
			PageSize:       defaultGOGPageSize,
		},
		Fetch: Fetch{
			Workers:                defaultFetchWorkers,
			CheckpointInterval:     defaultCheckpointInterval,
			ChangeDetection:        defaultChangeDetection,
			MaxConsecutiveFailures: defaultMaxConsecutiveFailures,
			MinFreeSpaceGiB:        defaultMinFreeSpaceGiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
