package network

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"golang.org/x/exp/rand"
)

// LayerConfig holds the hidden-layer widths of a single network. Only
// the first two entries of FC are consumed by this package; additional
// entries are ignored so that collaborators may carry wider
// architectures in the same configuration file.
type LayerConfig struct {
	FC []int `json:"fc"`
}

// validate checks the layer widths of one network role. The role name
// is used in error messages.
func (l LayerConfig) validate(role string) error {
	if len(l.FC) < 2 {
		return &ConfigError{
			Field: role + ".fc",
			Reason: fmt.Sprintf("needs at least two hidden-layer widths "+
				"\n\twant(>=2) \n\thave(%v)", len(l.FC)),
		}
	}

	for i, width := range l.FC {
		if width <= 0 {
			return &ConfigError{
				Field: role + ".fc",
				Reason: fmt.Sprintf("width %v must be positive "+
					"\n\thave(%v)", i, width),
			}
		}
	}
	return nil
}

// Config describes the dimensions and seeding of the DDPG function
// approximators. A Config is consumed once at construction time and
// never mutated by the networks it builds.
//
// RandomSeed is optional. When set, networks constructed from the same
// Config draw bit-identical initial parameters; when nil, each
// construction seeds a fresh source from the wall clock.
type Config struct {
	StateSize  int         `json:"state_size"`
	ActionSize int         `json:"action_size"`
	RandomSeed *uint64     `json:"random_seed,omitempty"`
	Actor      LayerConfig `json:"actor"`
	Critic     LayerConfig `json:"critic"`
}

// ConfigFromJSON decodes a Config from JSON and validates the fields
// shared by both networks. Per-role layer widths are validated by
// NewActor and NewCritic, so a configuration file may describe only
// the role it is used for.
func ConfigFromJSON(r io.Reader) (Config, error) {
	var c Config
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return Config{}, fmt.Errorf("configfromjson: could not decode "+
			"config: %w", err)
	}

	if err := c.validateCommon(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks that the Config can construct both an Actor and a
// Critic.
func (c Config) Validate() error {
	if err := c.validateCommon(); err != nil {
		return err
	}
	if err := c.Actor.validate("actor"); err != nil {
		return err
	}
	return c.Critic.validate("critic")
}

// validateCommon checks the fields required by every network role.
func (c Config) validateCommon() error {
	if c.StateSize <= 0 {
		return &ConfigError{
			Field: "state_size",
			Reason: fmt.Sprintf("must be positive \n\twant(>0) "+
				"\n\thave(%v)", c.StateSize),
		}
	}

	if c.ActionSize <= 0 {
		return &ConfigError{
			Field: "action_size",
			Reason: fmt.Sprintf("must be positive \n\twant(>0) "+
				"\n\thave(%v)", c.ActionSize),
		}
	}
	return nil
}

// source returns the random source a network constructed from this
// Config owns. Sources are never shared between constructions, so
// building an Actor never perturbs the initialization of a Critic.
func (c Config) source() rand.Source {
	if c.RandomSeed != nil {
		return rand.NewSource(*c.RandomSeed)
	}
	return rand.NewSource(uint64(time.Now().UnixNano()))
}
