package rtconfig_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gosandbox/rtconfig"
)

func TestWithDefaultsFillsZeroFields(t *testing.T) {
	cfg := rtconfig.Config{}.WithDefaults()
	require.Equal(t, rtconfig.DefaultTimeout, cfg.Timeout)
	require.EqualValues(t, rtconfig.DefaultMaxMemory, cfg.MaxMemory)
	require.Equal(t, "filter", cfg.Policy)
}

func TestWithDefaultsPreservesSetFields(t *testing.T) {
	cfg := rtconfig.Config{MaxMemory: 1024, Policy: "strict"}.WithDefaults()
	require.EqualValues(t, 1024, cfg.MaxMemory)
	require.Equal(t, "strict", cfg.Policy)
	require.Equal(t, rtconfig.DefaultTimeout, cfg.Timeout)
}
