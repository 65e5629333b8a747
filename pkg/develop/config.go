package develop

import (
	"log"

	"gopkg.in/yaml.v2"
)

// Config holds the pipeline-level knobs - the things that belong to
// an installation or a session, not to a single image's adjustments.
type Config struct {
	Verbosity int

	// Auto-exposure tuning for the preview path.
	AutoExposePercentile float64 // histogram percentile to pin
	AutoExposeTarget     float64 // brightness that percentile maps to
	AutoExposeMinGain    float64
	AutoExposeMaxGain    float64

	// Workaround for sensors that report a 180-degree flip on frames
	// that are already portrait; empirically chosen upstream, so it
	// stays a policy rather than a hardwired rule.
	Suppress180OnPortrait bool

	// DumpPlanes writes the sharpen engine's luminance estimate out
	// as a PNG after the final iteration.
	DumpPlanes bool
}

func NewConfig() Config {
	return Config{
		AutoExposePercentile:  99.0,
		AutoExposeTarget:      0.95,
		AutoExposeMinGain:     0.25,
		AutoExposeMaxGain:     8.0,
		Suppress180OnPortrait: true,
	}
}

func NewConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	err := yaml.Unmarshal(b, &c)
	return c, err
}

func (c Config) AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Fatalf("Can't marshal config yaml: %v\n", err)
	}
	return string(b)
}
