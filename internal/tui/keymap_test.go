package tui

import (
	"testing"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
)

// TestKeyMapBindings verifies the default form bindings.
func TestKeyMapBindings(t *testing.T) {
	k := newKeyMap()
	cases := []struct {
		name    string
		binding key.Binding
		msg     tea.KeyPressMsg
	}{
		{name: "add", binding: k.addActivity, msg: keyRune('n')},
		{name: "edit", binding: k.editActivity, msg: keyRune('e')},
		{name: "edit enter", binding: k.editActivity, msg: tea.KeyPressMsg{Code: tea.KeyEnter}},
		{name: "remove", binding: k.deleteActivity, msg: keyRune('d')},
		{name: "profile", binding: k.editProfile, msg: keyRune('p')},
		{name: "submit", binding: k.submit, msg: keyRune('s')},
		{name: "copy", binding: k.copySummary, msg: keyRune('y')},
		{name: "guide", binding: k.creditGuide, msg: keyRune('g')},
		{name: "down arrow", binding: k.moveDown, msg: tea.KeyPressMsg{Code: tea.KeyDown}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !key.Matches(tc.msg, tc.binding) {
				t.Fatalf("expected %q to match %#v", tc.msg.String(), tc.binding.Keys())
			}
		})
	}
}

// TestKeyMapHelpGroups verifies short and full help cover every action once.
func TestKeyMapHelpGroups(t *testing.T) {
	k := newKeyMap()
	if len(k.ShortHelp()) == 0 {
		t.Fatal("expected short help bindings")
	}
	seen := map[string]int{}
	for _, group := range k.FullHelp() {
		for _, b := range group {
			seen[b.Help().Desc]++
		}
	}
	for _, desc := range []string{"add activity", "edit activity", "remove activity", "edit profile", "submit", "copy summary csv", "credit guide", "quit"} {
		if seen[desc] != 1 {
			t.Fatalf("expected %q once in full help, got %d", desc, seen[desc])
		}
	}
}
