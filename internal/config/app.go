package config

type AppConfig struct {
	StorageBackend string `yaml:"storage-backend"`
	ExportDirPath  string `yaml:"export-dir"`
}

func (s *AppConfig) Backend() string {
	return s.StorageBackend
}

func (s *AppConfig) ExportDir() string {
	if s.ExportDirPath == "" {
		return "."
	}
	return s.ExportDirPath
}
