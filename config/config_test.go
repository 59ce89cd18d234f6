package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.RPCAddress)
	require.Equal(t, "filmvault-local", cfg.NetworkName)
	require.Equal(t, uint64(10), cfg.BlockIntervalSeconds)

	// The default file must have been written so a second load round-trips.
	_, err = os.Stat(path)
	require.NoError(t, err)
	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.RPCAddress, reloaded.RPCAddress)
}

func TestLoadParsesAdminsAndModules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
RPCAddress = ":9090"
DataDir = "/tmp/filmvault"
NetworkName = "filmvault-test"
BlockIntervalSeconds = 5
GenesisAdmins = ["0x00000000000000000000000000000000000000ad"]

[Modules]
Verification = "0x0000000000000000000000000000000000000001"
Crowdfunding = "0x0000000000000000000000000000000000000002"
Rewards = "0x0000000000000000000000000000000000000003"
Escrow = "0x0000000000000000000000000000000000000004"
CoEp = "0x0000000000000000000000000000000000000005"
VerificationExt = "0x0000000000000000000000000000000000000006"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.RPCAddress)

	admins := cfg.AdminAddresses()
	require.Len(t, admins, 1)
	require.Equal(t, byte(0xad), admins[0][19])

	modules, complete := cfg.ModuleAddresses()
	require.True(t, complete)
	require.Len(t, modules, 6)
	require.Equal(t, byte(0x04), modules["escrow"][19])
}

func TestLoadRejectsInvalidAdminAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
GenesisAdmins = ["not-an-address"]
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestModuleAddressesIncomplete(t *testing.T) {
	cfg := &Config{Modules: Modules{Escrow: "0x0000000000000000000000000000000000000004"}}
	modules, complete := cfg.ModuleAddresses()
	require.False(t, complete)
	require.Len(t, modules, 1)
}
