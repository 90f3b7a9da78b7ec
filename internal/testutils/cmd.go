// Package testutils provides helper functions for testing.
package testutils

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FlagCase describes an expected flag of a cobra command.
type FlagCase struct {
	Name       string
	Shorthand  string
	Default    string
	Dirname    bool
	Persistent bool
}

// AssertFlag checks that cmd declares the flag described by fc.
func AssertFlag(t *testing.T, cmd *cobra.Command, fc FlagCase) {
	t.Helper()

	var flag *pflag.Flag
	if fc.Persistent {
		flag = cmd.PersistentFlags().Lookup(fc.Name)
	} else {
		flag = cmd.Flags().Lookup(fc.Name)
	}
	require.NotNil(t, flag, "Flag %q should be declared on %q", fc.Name, cmd.Name())
	assert.Equal(t, fc.Shorthand, flag.Shorthand, "Shorthand of flag %q should match", fc.Name)
	assert.Equal(t, fc.Default, flag.DefValue, "Default of flag %q should match", fc.Name)

	if fc.Dirname {
		assert.Equal(t, []string{}, flag.Annotations[cobra.BashCompSubdirsInDir], "Flag %q should complete directories", fc.Name)
	} else {
		assert.Nil(t, flag.Annotations[cobra.BashCompSubdirsInDir], "Flag %q should not complete directories", fc.Name)
	}
}
