package wiki

// Config holds bootstrap configuration for the page store.
type Config struct {
	DatabaseFile     string `yaml:"dbfile"`
	LogFormat        string `yaml:"log_format"`
	LogLevel         string `yaml:"log_level"`
	PrepopulateCache bool   `yaml:"prepopulate_cache"`
}
