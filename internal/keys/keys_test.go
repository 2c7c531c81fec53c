package keys

import (
	"testing"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

var _ help.KeyMap = KeyMap{}

func TestDefaultKeyMap_About(t *testing.T) {
	km := DefaultKeyMap()
	require.Equal(t, []string{"?"}, km.About.Keys())
	require.Equal(t, "about", km.About.Help().Desc)
}

func TestDefaultKeyMap_QuitKeys(t *testing.T) {
	require.Equal(t, []string{"q", "ctrl+c"}, DefaultKeyMap().Quit.Keys())
}

func TestDefaultKeyMap_NoDuplicateKeys(t *testing.T) {
	km := DefaultKeyMap()
	seen := map[string]string{}
	for _, group := range km.FullHelp() {
		for _, b := range group {
			for _, k := range b.Keys() {
				prev, dup := seen[k]
				require.False(t, dup, "key %q bound to both %q and %q", k, prev, b.Help().Desc)
				seen[k] = b.Help().Desc
			}
		}
	}
}

func TestShortHelp_Enabled(t *testing.T) {
	for _, b := range DefaultKeyMap().ShortHelp() {
		require.True(t, b.Enabled())
		require.NotEmpty(t, b.Help().Key)
	}
	require.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")}, DefaultKeyMap().About))
}
