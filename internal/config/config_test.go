package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validConfig = `
primary_rpc: "https://rpc.example.org"
rpc_list:
  - "https://rpc-1.example.org"
  - "https://rpc-2.example.org"
chain_id: 11155111
contract_address: "0x00000000000000000000000000000000000000aa"
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, uint64(DefaultConfirmations), cfg.Confirmations)
	assert.Equal(t, DefaultRetries, cfg.Retries)
	assert.Equal(t, DefaultPollIntervalMs, cfg.PollIntervalMs)
	assert.Equal(t, "round_robin", cfg.Rotation)
	assert.Equal(t, uint64(DefaultGasLimit), cfg.GasLimitUnits)
}

func TestLoadRejectsMissingPrimary(t *testing.T) {
	_, err := Load(writeConfig(t, `
rpc_list: ["https://rpc-1.example.org"]
chain_id: 1
contract_address: "0x00000000000000000000000000000000000000aa"
`))
	assert.Error(t, err)
}

func TestLoadRejectsEmptyRPCList(t *testing.T) {
	_, err := Load(writeConfig(t, `
primary_rpc: "https://rpc.example.org"
rpc_list: []
chain_id: 1
contract_address: "0x00000000000000000000000000000000000000aa"
`))
	assert.Error(t, err)
}

func TestLoadRejectsBadContractAddress(t *testing.T) {
	_, err := Load(writeConfig(t, `
primary_rpc: "https://rpc.example.org"
rpc_list: ["https://rpc-1.example.org"]
chain_id: 1
contract_address: "nonsense"
`))
	assert.Error(t, err)
}

func TestLoadRejectsUnknownRotation(t *testing.T) {
	_, err := Load(writeConfig(t, validConfig+`rotation: "random"`))
	assert.Error(t, err)
}

func TestLoadRejectsNonHTTPEndpoint(t *testing.T) {
	_, err := Load(writeConfig(t, `
primary_rpc: "https://rpc.example.org"
rpc_list: ["ftp://rpc-1.example.org"]
chain_id: 1
contract_address: "0x00000000000000000000000000000000000000aa"
`))
	assert.Error(t, err)
}

func TestEnvOverridesRPCList(t *testing.T) {
	t.Setenv("FARMBOT_RPC_LIST", "https://env-1.example.org, https://env-2.example.org")

	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://env-1.example.org", "https://env-2.example.org"}, cfg.RPCList)
}
