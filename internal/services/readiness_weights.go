package services

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

//go:embed readiness_weights.yaml
var readinessWeightsYAML []byte

// ReadinessWeights maps component name (hrv, sleep, rhr, load, stiffness,
// soreness, reset) to its weight in the composite.
type ReadinessWeights map[string]float64

type weightsConfig struct {
	Version       string                      `yaml:"version"`
	Default       ReadinessWeights            `yaml:"default"`
	SportSpecific map[string]ReadinessWeights `yaml:"sport_specific"`
}

var (
	weightsOnce sync.Once
	weightsCfg  weightsConfig
	weightsErr  error
)

func loadWeightsConfig() (weightsConfig, error) {
	weightsOnce.Do(func() {
		weightsErr = yaml.Unmarshal(readinessWeightsYAML, &weightsCfg)
		if weightsErr == nil && len(weightsCfg.Default) == 0 {
			weightsErr = fmt.Errorf("readiness weights config has no default set")
		}
	})
	return weightsCfg, weightsErr
}

// WeightsForSport returns the sport-specific weight set when one exists,
// otherwise the default set.
func WeightsForSport(sport types.Sport) (ReadinessWeights, error) {
	cfg, err := loadWeightsConfig()
	if err != nil {
		return nil, err
	}
	if w, ok := cfg.SportSpecific[string(sport)]; ok {
		return w, nil
	}
	return cfg.Default, nil
}

// ReadinessVersion tags every persisted score with the weight config version
// that produced it.
func ReadinessVersion() string {
	cfg, err := loadWeightsConfig()
	if err != nil || cfg.Version == "" {
		return "v1.0"
	}
	return cfg.Version
}

// TotalWeight is the sum of all possible component weights, the denominator
// of the confidence measure.
func (w ReadinessWeights) TotalWeight() float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum
}
