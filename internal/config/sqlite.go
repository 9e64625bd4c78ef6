package config

type SQLiteConfig struct {
	DBPath string `yaml:"path"`
}

func (s *SQLiteConfig) Path() string {
	if s.DBPath == "" {
		return "data/expenses.db"
	}
	return s.DBPath
}
