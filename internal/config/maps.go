package config

type MapsConfig struct {
	Enabled    bool              `yaml:"enabled"`
	GoogleMaps *GoogleMapsConfig `yaml:"google_maps"`
}

type GoogleMapsConfig struct {
	APIKey string `yaml:"api_key"`
}

func loadMapsConfig() *MapsConfig {
	apiKey := getEnv("GOOGLE_MAPS_API_KEY", "")
	return &MapsConfig{
		Enabled: apiKey != "",
		GoogleMaps: &GoogleMapsConfig{
			APIKey: apiKey,
		},
	}
}
