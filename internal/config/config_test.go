package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFlat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catbox.conf")
	body := `
listen-host = 127.0.0.1
listen-port = 6667
server-name = irc1.example.org
motd = Welcome to the mesh
version = test
created-date = 2026-01-01
max-nick-length = 30
worker-pool-size = 64
ping-time = 90s
dead-time = 180s
peer-irc2-host = 127.0.0.1
peer-irc2-port = 7001
peer-irc2-pass = hunter2
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "irc1.example.org", cfg.ServerName)
	require.Equal(t, 64, cfg.WorkerPoolSize)
	require.Contains(t, cfg.Peers, "irc2")
	require.Equal(t, "hunter2", cfg.Peers["irc2"].Password)
}

func TestLoadFlatMissingKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catbox.conf")
	require.NoError(t, os.WriteFile(path, []byte("listen-host = 127.0.0.1\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catbox.toml")
	body := `
ServerName = "irc1.example.org"
ListenHost = "127.0.0.1"
ListenPort = "6667"
MOTD = "hi"
Version = "test"
CreatedDate = "2026-01-01"
MaxNickLength = 30
WorkerPoolSize = 64
PingTime = "90s"
DeadTime = "180s"

[Peers.irc2]
Name = "irc2"
Host = "127.0.0.1"
Port = "7001"
Password = "hunter2"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "irc1.example.org", cfg.ServerName)
	require.Contains(t, cfg.Peers, "irc2")
}
