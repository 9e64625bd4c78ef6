package config

type HTTPConfig struct {
	ListenPort int `yaml:"port"`
}

func (s *HTTPConfig) Port() int {
	if s.ListenPort == 0 {
		return 8080
	}
	return s.ListenPort
}
