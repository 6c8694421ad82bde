// Package config loads server configuration: a fixed set of required
// keys, checked and parsed into a typed struct, with durations/ints
// converted from their string form.
//
// The primary format is a flat "key = value" text file, read with
// github.com/horgh/config. As an alternative, the whole configuration,
// including the server link table and the worker pool / timeout
// tunables, may instead be supplied as a TOML document via
// github.com/BurntSushi/toml when the path given to Load ends in
// ".toml"; this lets an operator express the peer table as structured
// data instead of a flat list of "peer-<name>-host = ..." keys. The two
// formats are not combined: Load reads one file in one format.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/horgh/config"
	"github.com/pkg/errors"
)

// PeerLink describes a server we may link to or accept a link from.
type PeerLink struct {
	Name     string
	Host     string
	Port     string
	Password string
}

// Config holds a server's full runtime configuration.
type Config struct {
	ListenHost string
	ListenPort string
	ServerName string

	// MOTD is sent verbatim as the message-of-the-day body.
	MOTD string

	Version     string
	CreatedDate string

	// OperUser/OperPass override the fixed admin/1234 OPER credentials.
	// Deployments that don't care may leave these unset, in which case
	// the fixed credentials apply.
	OperUser string
	OperPass string

	MaxNickLength int

	// WorkerPoolSize bounds the number of connections handled
	// concurrently by the accept loop's worker pool.
	WorkerPoolSize int

	PingTime time.Duration
	DeadTime time.Duration

	// Peers lists servers this one may link with, by canonical name.
	Peers map[string]PeerLink
}

// Default returns the configuration used when no file is given, handy
// for tests and for the showconf command's baseline.
func Default() *Config {
	return &Config{
		ListenHost:     "0.0.0.0",
		ListenPort:     "6667",
		ServerName:     "irc.example.org",
		MOTD:           "Welcome.",
		Version:        "catbox-mesh-0.1",
		CreatedDate:    "unknown",
		MaxNickLength:  30,
		WorkerPoolSize: 256,
		PingTime:       90 * time.Second,
		DeadTime:       180 * time.Second,
		Peers:          map[string]PeerLink{},
	}
}

// Load reads a configuration file. TOML files (".toml" suffix) are
// parsed with github.com/BurntSushi/toml into tomlDoc and copied into
// Config. Anything
// else is treated as the flat key=value format and read with
// github.com/horgh/config.
func Load(path string) (*Config, error) {
	if strings.HasSuffix(path, ".toml") {
		return loadTOML(path)
	}
	return loadFlat(path)
}

// tomlDoc mirrors Config but spells out durations as strings (such as
// "90s"), which loadTOML converts with time.ParseDuration.
type tomlDoc struct {
	ListenHost     string
	ListenPort     string
	ServerName     string
	MOTD           string
	Version        string
	CreatedDate    string
	OperUser       string
	OperPass       string
	MaxNickLength  int
	WorkerPoolSize int
	PingTime       string
	DeadTime       string
	Peers          map[string]PeerLink
}

func loadTOML(path string) (*Config, error) {
	var doc tomlDoc
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, errors.Wrap(err, "decoding toml config")
	}

	cfg := Default()
	cfg.ListenHost = doc.ListenHost
	cfg.ListenPort = doc.ListenPort
	cfg.ServerName = doc.ServerName
	cfg.MOTD = doc.MOTD
	cfg.Version = doc.Version
	cfg.CreatedDate = doc.CreatedDate
	cfg.OperUser = doc.OperUser
	cfg.OperPass = doc.OperPass
	cfg.MaxNickLength = doc.MaxNickLength
	cfg.WorkerPoolSize = doc.WorkerPoolSize
	cfg.Peers = doc.Peers
	if cfg.Peers == nil {
		cfg.Peers = map[string]PeerLink{}
	}

	var err error
	cfg.PingTime, err = time.ParseDuration(doc.PingTime)
	if err != nil {
		return nil, errors.Wrap(err, "PingTime")
	}
	cfg.DeadTime, err = time.ParseDuration(doc.DeadTime)
	if err != nil {
		return nil, errors.Wrap(err, "DeadTime")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFlat(path string) (*Config, error) {
	raw, err := config.ReadStringMap(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}

	required := []string{
		"listen-host", "listen-port", "server-name", "motd", "version",
		"created-date", "max-nick-length", "worker-pool-size", "ping-time",
		"dead-time",
	}
	for _, key := range required {
		v, exists := raw[key]
		if !exists || len(v) == 0 {
			return nil, fmt.Errorf("missing or blank required config key: %s", key)
		}
	}

	cfg := Default()
	cfg.ListenHost = raw["listen-host"]
	cfg.ListenPort = raw["listen-port"]
	cfg.ServerName = raw["server-name"]
	cfg.MOTD = raw["motd"]
	cfg.Version = raw["version"]
	cfg.CreatedDate = raw["created-date"]
	cfg.OperUser = raw["oper-user"]
	cfg.OperPass = raw["oper-pass"]

	cfg.MaxNickLength, err = strconv.Atoi(raw["max-nick-length"])
	if err != nil {
		return nil, errors.Wrap(err, "max-nick-length")
	}

	cfg.WorkerPoolSize, err = strconv.Atoi(raw["worker-pool-size"])
	if err != nil {
		return nil, errors.Wrap(err, "worker-pool-size")
	}

	cfg.PingTime, err = time.ParseDuration(raw["ping-time"])
	if err != nil {
		return nil, errors.Wrap(err, "ping-time")
	}

	cfg.DeadTime, err = time.ParseDuration(raw["dead-time"])
	if err != nil {
		return nil, errors.Wrap(err, "dead-time")
	}

	// Peers are optional, encoded as "peer-<name>-host", "peer-<name>-port",
	// "peer-<name>-pass" triplets.
	peers := map[string]PeerLink{}
	for key, value := range raw {
		const prefix = "peer-"
		const hostSuffix = "-host"
		if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, hostSuffix) {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(key, prefix), hostSuffix)
		peers[name] = PeerLink{
			Name:     name,
			Host:     value,
			Port:     raw[prefix+name+"-port"],
			Password: raw[prefix+name+"-pass"],
		}
	}
	cfg.Peers = peers

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.ServerName) == 0 {
		return fmt.Errorf("server-name must not be blank")
	}
	if c.MaxNickLength <= 0 {
		return fmt.Errorf("max-nick-length must be positive")
	}
	if c.WorkerPoolSize <= 0 {
		return fmt.Errorf("worker-pool-size must be positive")
	}
	return nil
}
