package copilot

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed commands.yaml
var commandCatalog []byte

// Command documents one supported operator command.
type Command struct {
	Command     string   `json:"command" yaml:"command"`
	Description string   `json:"description" yaml:"description"`
	Examples    []string `json:"examples" yaml:"examples"`
}

var loadCommands = sync.OnceValues(func() ([]Command, error) {
	var commands []Command
	if err := yaml.Unmarshal(commandCatalog, &commands); err != nil {
		return nil, fmt.Errorf("failed to parse command catalog: %w", err)
	}
	return commands, nil
})

// Commands returns the command catalog.
func Commands() ([]Command, error) {
	return loadCommands()
}
