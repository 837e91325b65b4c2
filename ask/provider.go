package ask

import (
	"fmt"

	"github.com/ncobase/askflow/config"
)

// NewGenerator builds the generator named by cfg.Provider.
func NewGenerator(cfg *config.Generator) (Generator, error) {
	if cfg == nil {
		return NewRuleGenerator(), nil
	}
	switch cfg.Provider {
	case "", config.GeneratorRule:
		return NewRuleGenerator(), nil
	case config.GeneratorHTTP:
		return NewHTTPGenerator(cfg)
	default:
		return nil, fmt.Errorf("generator: unsupported provider %q", cfg.Provider)
	}
}
