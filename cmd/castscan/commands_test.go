package main

import (
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/castscan/internal/config"
	"github.com/muurk/castscan/internal/discovery"
)

// discoveryCommand returns a command with the discovery flags and none set
func discoveryCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "scan"}
	cmd.Flags().IntVar(&timeoutMS, "timeout", 0, "")
	cmd.Flags().StringVar(&dedupPolicy, "dedup", "", "")
	return cmd
}

func TestNewLocator_Defaults(t *testing.T) {
	cmd := discoveryCommand()

	locator, err := newLocator(cmd, config.NewConfig())
	require.NoError(t, err)
	assert.Equal(t, discovery.DefaultTimeout, locator.Timeout())
	assert.Equal(t, discovery.DedupByAddress, locator.DedupPolicy())
	assert.Equal(t, discovery.ServiceType, locator.ServiceType())
}

func TestNewLocator_Overrides(t *testing.T) {
	cmd := discoveryCommand()

	require.NoError(t, cmd.Flags().Set("timeout", "500"))
	require.NoError(t, cmd.Flags().Set("dedup", "none"))

	locator, err := newLocator(cmd, config.NewConfig())
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, locator.Timeout())
	assert.Equal(t, discovery.DedupNone, locator.DedupPolicy())

	require.NoError(t, cmd.Flags().Set("dedup", "sometimes"))
	_, err = newLocator(cmd, config.NewConfig())
	assert.Error(t, err)

	require.NoError(t, cmd.Flags().Set("dedup", "address"))
	require.NoError(t, cmd.Flags().Set("timeout", "-1"))
	_, err = newLocator(cmd, config.NewConfig())
	assert.Error(t, err)
}

func TestRunScan_UnknownFormat(t *testing.T) {
	saved := outputFormat
	defer func() { outputFormat = saved }()

	outputFormat = "xml"
	err := runScan(scanCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestRememberReceivers(t *testing.T) {
	saved := configPath
	defer func() { configPath = saved }()
	configPath = filepath.Join(t.TempDir(), "config.yaml")

	cfg := config.NewConfig()
	receivers := []*discovery.Receiver{{
		Address:  &url.URL{Scheme: "https", Host: "10.0.0.5"},
		Name:     "LivingRoom",
		Port:     8009,
		Metadata: map[string]string{"fn": "LivingRoom", "id": "abc"},
	}}

	require.NoError(t, rememberReceivers(cfg, receivers))

	loaded, err := config.Load(configPath)
	require.NoError(t, err)
	known := loaded.GetReceiver("abc")
	require.NotNil(t, known)
	assert.Equal(t, "LivingRoom", known.Name)
	assert.Equal(t, "https://10.0.0.5", known.LastAddress)
}
