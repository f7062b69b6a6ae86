package encryption

import (
	"fmt"

	"fdp-go/internal/config"
	"fdp-go/internal/fdp"
)

// NewSealerFromConfig creates a Sealer based on the configuration type.
func NewSealerFromConfig(cfg config.EncryptionConfig) (fdp.Sealer, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeSealer(cfg.ScryptWorkFactor), nil
	case "test":
		return NewTestSealer(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
