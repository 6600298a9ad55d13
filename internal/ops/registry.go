/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package ops

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/cobra"
)

// CommandGroup represents the operational classification of commands
type CommandGroup string

const (
	GroupProject CommandGroup = "project" // new, check, upgrade
	GroupTooling CommandGroup = "tooling" // format, test
	GroupSupport CommandGroup = "support" // types, config, version
)

// Groups lists the command groups in help order.
var Groups = []CommandGroup{GroupProject, GroupTooling, GroupSupport}

// Title returns the heading used for the group in help output.
func (g CommandGroup) Title() string {
	switch g {
	case GroupProject:
		return "Project Commands"
	case GroupTooling:
		return "Tooling Commands"
	case GroupSupport:
		return "Support Commands"
	}
	return string(g)
}

// CommandRegistration represents a registered command with its classification
type CommandRegistration struct {
	Name        string
	Group       CommandGroup
	Command     *cobra.Command
	Description string
}

// Registry manages command classifications and registrations
type Registry struct {
	mu         sync.RWMutex
	commands   map[string]*CommandRegistration
	groupIndex map[CommandGroup][]*CommandRegistration
}

// NewRegistry returns an empty registry. Each root command owns one so
// command trees built in tests do not share state.
func NewRegistry() *Registry {
	return &Registry{
		commands:   make(map[string]*CommandRegistration),
		groupIndex: make(map[CommandGroup][]*CommandRegistration),
	}
}

// Register adds a command to the registry under its cobra name
func (r *Registry) Register(group CommandGroup, cmd *cobra.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := cmd.Name()
	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("command %s already registered", name)
	}

	registration := &CommandRegistration{
		Name:        name,
		Group:       group,
		Command:     cmd,
		Description: cmd.Short,
	}

	r.commands[name] = registration
	r.groupIndex[group] = append(r.groupIndex[group], registration)

	return nil
}

// GetCommand returns a registered command by name
func (r *Registry) GetCommand(name string) (*CommandRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, exists := r.commands[name]
	return cmd, exists
}

// GetCommandsByGroup returns the commands in a group in registration order
func (r *Registry) GetCommandsByGroup(group CommandGroup) []*CommandRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*CommandRegistration(nil), r.groupIndex[group]...)
}

// Names returns every registered command name, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.commands))
	for k := range r.commands {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ListGroups returns all command groups and their command counts
func (r *Registry) ListGroups() map[CommandGroup]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[CommandGroup]int)
	for group, commands := range r.groupIndex {
		result[group] = len(commands)
	}
	return result
}

// Missing returns the names from want that are not registered in the
// expected group, formatted for an error message.
func (r *Registry) Missing(want map[string]CommandGroup) []string {
	var out []string
	for name, group := range want {
		reg, ok := r.GetCommand(name)
		switch {
		case !ok:
			out = append(out, name+": not registered")
		case reg.Group != group:
			out = append(out, fmt.Sprintf("%s: in group %s, want %s", name, reg.Group, group))
		}
	}
	sort.Strings(out)
	return out
}
