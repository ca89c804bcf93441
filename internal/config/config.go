// Package config loads labsheets settings from the environment, optionally seeded
// from a .env file, and validates them on startup.
package config

// Config holds all application configuration.
type Config struct {
	Logging LoggingConfig
	Layout  LayoutConfig
	Output  OutputConfig
}

type LoggingConfig struct {
	// Level is one of debug, info, warn, error (default: info)
	Level string `env:"LABSHEETS_LOG_LEVEL" envAlt:"LOG_LEVEL" default:"info"`

	// Format is text or json (default: text)
	Format string `env:"LABSHEETS_LOG_FORMAT" envAlt:"LOG_FORMAT" default:"text"`

	// File receives log output instead of stderr when set
	File string `env:"LABSHEETS_LOG_FILE"`
}

type LayoutConfig struct {
	// File is a YAML layout overlaid on the built-in regions
	File string `env:"LABSHEETS_LAYOUT_FILE"`

	// SubmissionTypes are the type names recognised when reading client submissions
	SubmissionTypes []string `env:"LABSHEETS_SUBMISSION_TYPES" default:"Bacterial Culture,Wastewater,Wastewater Artic,Viral Culture"`
}

type OutputConfig struct {
	// Suffix is appended to the input name when no output path is given
	Suffix string `env:"LABSHEETS_OUTPUT_SUFFIX" default:"_parsed"`
}
