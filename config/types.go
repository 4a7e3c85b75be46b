package config

// Config GuardianBridge gateway configuration
type Config struct {
	Mode              string `json:"mode,omitempty" env:"GB_MODE" envDefault:"production"`                             // production | development
	Host              string `json:"host,omitempty" env:"GB_HOST" envDefault:"0.0.0.0"`                                // listen address
	Port              int    `json:"port,omitempty" env:"GB_PORT" envDefault:"8000"`                                   // listen port
	Root              string `json:"root,omitempty" env:"GB_ROOT" envDefault:"."`                                      // working root
	Log               string `json:"log,omitempty" env:"GB_LOG"`                                                       // log file path
	LogMode           string `json:"log_mode,omitempty" env:"GB_LOG_MODE" envDefault:"TEXT"`                           // JSON | TEXT
	LogMaxSize        int    `json:"log_max_size,omitempty" env:"GB_LOG_MAX_SIZE" envDefault:"100"`                    // megabytes
	LogMaxAge         int    `json:"log_max_age,omitempty" env:"GB_LOG_MAX_AGE" envDefault:"7"`                        // days
	LogMaxBackups     int    `json:"log_max_backups,omitempty" env:"GB_LOG_MAX_BACKUPS" envDefault:"10"`               // files
	ProfilesRoot      string `json:"profiles_root,omitempty" env:"GB_PROFILES_ROOT" envDefault:"configs/profiles"`     // moderation profile directories
	KeywordsFile      string `json:"keywords_file,omitempty" env:"GB_KEYWORDS_FILE" envDefault:"configs/keywords.txt"` // default keyword file
	SchedulerInterval int    `json:"scheduler_interval,omitempty" env:"GB_SCHEDULER_INTERVAL" envDefault:"10"`         // training check interval, minutes
	GuardInterval     int    `json:"guard_interval,omitempty" env:"GB_GUARD_INTERVAL" envDefault:"30"`                 // memory guard interval, seconds
}
