package supervisor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"gosandbox/rtconfig"
	"gosandbox/supervisor"
)

func testConfig() rtconfig.Config {
	return rtconfig.Config{}.WithDefaults()
}

func TestParseBlacklistRoundTrip(t *testing.T) {
	require.Nil(t, supervisor.ParseBlacklist(""))
	require.Equal(t, []string{"mmap", "ptrace"}, supervisor.ParseBlacklist("mmap,ptrace"))
}

func TestParseMaxMemoryDefaultsOnGarbage(t *testing.T) {
	require.EqualValues(t, rtconfig.DefaultMaxMemory, supervisor.ParseMaxMemory(""))
	require.EqualValues(t, rtconfig.DefaultMaxMemory, supervisor.ParseMaxMemory("not-a-number"))
	require.EqualValues(t, rtconfig.DefaultMaxMemory, supervisor.ParseMaxMemory("-5"))
	require.EqualValues(t, 123, supervisor.ParseMaxMemory("123"))
}

func TestSupervisorDestroyWithoutSpawnIsNoop(t *testing.T) {
	sup := supervisor.New(testConfig(), supervisor.Hooks{}, nil)
	require.NoError(t, sup.Destroy(context.Background()))
}
