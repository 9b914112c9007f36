package main

import (
	"fmt"

	"github.com/Alijeyrad/gowm/internal/config"
	"github.com/Alijeyrad/gowm/internal/keybind"
)

// buildRegistry turns the configured binding table into a registry, keeping
// its order. Each binding spawns its command.
func buildRegistry(cfg *config.Config) (*keybind.Registry, error) {
	r := &keybind.Registry{}
	for i, kb := range cfg.Keybinds {
		seq, err := keybind.ParseKeySequence(kb.Keys)
		if err != nil {
			return nil, fmt.Errorf("keybind %d: %w", i+1, err)
		}
		r.Add(seq, keybind.Spawn{Argv: kb.Exec})
	}
	return r, nil
}
