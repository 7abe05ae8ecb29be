package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "basket", cmd.Use)
	assert.Contains(t, cmd.Long, "local-first")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"add", "remove", "qty", "clear", "show", "pull", "push", "sync-state", "checkout", "history", "serve", "config"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "db", "api", "token"} {
		f := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, "", f.DefValue, name)
	}
}

func TestAddCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	addCmd, _, err := cmd.Find([]string{"add"})
	require.NoError(t, err)

	qtyFlag := addCmd.Flags().Lookup("qty")
	require.NotNil(t, qtyFlag)
	assert.Equal(t, "1", qtyFlag.DefValue)

	for _, name := range []string{"title", "price", "variant", "image"} {
		require.NotNil(t, addCmd.Flags().Lookup(name), name)
	}
}

func TestCheckoutCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	checkoutCmd, _, err := cmd.Find([]string{"checkout"})
	require.NoError(t, err)

	for _, name := range []string{"method", "address", "city", "phone"} {
		require.NotNil(t, checkoutCmd.Flags().Lookup(name), name)
	}
	saveFlag := checkoutCmd.Flags().Lookup("save-address")
	require.NotNil(t, saveFlag)
	assert.Equal(t, "false", saveFlag.DefValue)
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	addrFlag := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, addrFlag)
	assert.Equal(t, "127.0.0.1:8080", addrFlag.DefValue)

	tokenFlag := serveCmd.Flags().Lookup("user-token")
	require.NotNil(t, tokenFlag)
	assert.Equal(t, "dev-token", tokenFlag.DefValue)
}

func TestFormatValidation(t *testing.T) {
	// Test valid formats
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	// Test invalid formats
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "show"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
