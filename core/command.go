package core

import (
	"sync"

	"powercore/protocol"
)

// CommandHandler applies the value of one key=value command token
type CommandHandler func(value string) error

// Command represents one command key
type Command struct {
	Name    string
	Handler CommandHandler
}

// CommandRegistry holds all registered commands
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[string]*Command
	order    []string
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[string]*Command),
	}
}

// Register adds a command to the registry. Registering a name twice keeps
// the first handler.
func (r *CommandRegistry) Register(name string, handler CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[name]; exists {
		return
	}
	r.commands[name] = &Command{Name: name, Handler: handler}
	r.order = append(r.order, name)
}

// GetCommandByName looks up a command
func (r *CommandRegistry) GetCommandByName(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Names returns registered names in registration order
func (r *CommandRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Count returns the number of registered commands
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch runs every known command of a line, left to right. Unknown keys
// are skipped. It returns how many commands were applied and the first
// handler error; a failing command does not stop the ones after it.
func (r *CommandRegistry) Dispatch(line string) (int, error) {
	applied := 0
	var first error
	protocol.EachPair(line, func(key, value string) bool {
		cmd, ok := r.GetCommandByName(key)
		if !ok {
			if first == nil {
				first = ErrUnknownCommand
			}
			return true
		}
		if err := cmd.Handler(value); err != nil {
			if first == nil {
				first = err
			}
			return true
		}
		applied++
		return true
	})
	return applied, first
}
