package core

import "testing"

func TestCommandRegistry(t *testing.T) {
	registry := NewCommandRegistry()

	var got string
	registry.Register("test_command", func(value string) error {
		got = value
		return nil
	})

	cmd, ok := registry.GetCommandByName("test_command")
	if !ok {
		t.Fatal("Failed to retrieve registered command")
	}
	if cmd.Name != "test_command" {
		t.Errorf("Expected command name 'test_command', got '%s'", cmd.Name)
	}

	applied, err := registry.Dispatch("test_command=42")
	if err != nil || applied != 1 {
		t.Errorf("Dispatch failed: applied=%d err=%v", applied, err)
	}
	if got != "42" {
		t.Errorf("Expected handler value 42, got %q", got)
	}
}

func TestCommandRegistryDuplicate(t *testing.T) {
	registry := NewCommandRegistry()
	first := 0
	registry.Register("cmd", func(string) error { first++; return nil })
	registry.Register("cmd", func(string) error { t.Error("second handler called"); return nil })

	registry.Dispatch("cmd=1")
	if first != 1 || registry.Count() != 1 {
		t.Errorf("Expected first handler kept, calls=%d count=%d", first, registry.Count())
	}
}

func TestCommandRegistryDispatchOrder(t *testing.T) {
	registry := NewCommandRegistry()
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		registry.Register(name, func(v string) error {
			order = append(order, name+v)
			if v == "bad" {
				return ErrMalformedValue
			}
			return nil
		})
	}

	applied, err := registry.Dispatch("c=1,unknown=2,a=bad,b=3")
	if applied != 2 {
		t.Errorf("Expected 2 applied commands, got %d", applied)
	}
	if err != ErrUnknownCommand {
		t.Errorf("Expected first error to be ErrUnknownCommand, got %v", err)
	}
	want := []string{"c1", "abad", "b3"}
	if len(order) != len(want) {
		t.Fatalf("Expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Call %d: expected %s, got %s", i, want[i], order[i])
		}
	}

	names := registry.Names()
	if len(names) != 3 || names[0] != "a" || names[2] != "c" {
		t.Errorf("Unexpected registration order %v", names)
	}
}
