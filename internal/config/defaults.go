package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8510
	}
	if cfg.Documents.Root == "" {
		cfg.Documents.Root = "Documents"
	}
	if cfg.Services.SearchURL == "" {
		cfg.Services.SearchURL = "http://localhost:8520"
	}
	if cfg.Services.GraphURL == "" {
		cfg.Services.GraphURL = "http://localhost:8530"
	}
	if cfg.Services.OCRURL == "" {
		cfg.Services.OCRURL = "http://localhost:8540"
	}
	if cfg.Services.OllamaURL == "" {
		cfg.Services.OllamaURL = "http://localhost:11434"
	}
	if cfg.Services.OllamaModel == "" {
		cfg.Services.OllamaModel = "llama3.2:3b"
	}
	if cfg.Services.TimeoutSeconds == 0 {
		cfg.Services.TimeoutSeconds = 30
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 400
	}
}
