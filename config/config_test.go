package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
ledger:
  token_type: ASTRO
  max_total_granted: 1000000
store:
  backend: memory
auth:
  administrator: admin
  delegates:
    alice: [custodian]
transfer:
  url: http://localhost:9090/transfer
api:
  addr: ":8081"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ASTRO", cfg.Ledger.TokenType)
	require.Equal(t, uint64(1000000), cfg.Ledger.MaxTotalGranted)
	require.Equal(t, "memory", cfg.Store.Backend)
	require.Equal(t, "admin", cfg.Auth.Administrator)
	require.Equal(t, []string{"custodian"}, cfg.Auth.Delegates["alice"])
	require.Equal(t, ":8081", cfg.API.Addr)
}

func TestLoad_JSONWithDefaults(t *testing.T) {
	path := writeConfig(t, "config.json", `{
  "ledger": {"token_type": "ASTRO"},
  "auth": {"administrator": "admin"},
  "transfer": {"url": "http://localhost:9090/transfer"}
}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.Store.Backend)
	require.Equal(t, "vestd.db", cfg.Store.Path)
	require.Equal(t, ":8080", cfg.API.Addr)
	require.Equal(t, 10000, cfg.Transfer.TimeoutMS)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
ledger:
  token_type: ASTRO
auth:
  administrator: admin
transfer:
  url: http://localhost:9090/transfer
`)
	t.Setenv("VESTD_LEDGER__TOKEN_TYPE", "OTHER")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "OTHER", cfg.Ledger.TokenType)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeConfig(t, "config.toml", "x = 1"))
	require.Error(t, err)

	// Missing token type.
	_, err = Load(writeConfig(t, "config.yaml", `
auth:
  administrator: admin
transfer:
  url: http://localhost:9090/transfer
`))
	require.Error(t, err)

	// Missing administrator.
	_, err = Load(writeConfig(t, "config.yaml", `
ledger:
  token_type: ASTRO
transfer:
  url: http://localhost:9090/transfer
`))
	require.Error(t, err)

	// Unknown store backend.
	_, err = Load(writeConfig(t, "config.yaml", `
ledger:
  token_type: ASTRO
auth:
  administrator: admin
store:
  backend: flatfile
transfer:
  url: http://localhost:9090/transfer
`))
	require.Error(t, err)
}
