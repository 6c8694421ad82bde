// Command ircd runs a single node of the catbox-mesh federation.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/catbox-mesh/ircd/internal/config"
	"github.com/catbox-mesh/ircd/internal/ircd"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "ircd",
		Short: "catbox-mesh IRC federation daemon",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a config file (flat or .toml)")

	root.AddCommand(serveCmd(), showConfCmd())

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve [host] [port]",
		Short: "start the server and accept connections",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.ListenHost = args[0]
			}
			if len(args) > 1 {
				cfg.ListenPort = args[1]
			}

			logger := log.New(os.Stderr, "", log.LstdFlags)
			d := ircd.NewDaemon(cfg, logger)

			for _, peer := range cfg.Peers {
				if peer.Host == "" {
					continue
				}
				go func(host, port string) {
					if err := ircd.ConnectPeer(d, host, port); err != nil {
						logger.Printf("connect to %s failed: %s", host, err)
					}
				}(peer.Host, peer.Port)
			}

			go ircd.RunPingSweep(d)
			go runREPL(d)

			return ircd.Listen(d)
		},
	}
}

func showConfCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "showconf",
		Short: "print the effective configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Printf("%+v\n", *cfg)
			return nil
		},
	}
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// runREPL implements the interactive console's stdin interface: "<host> <port>"
// attempts an outbound peer connect, and "show_net()" prints the peer
// tree for diagnostics.
func runREPL(d *ircd.Daemon) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "show_net()" {
			printNet(d)
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			fmt.Println("usage: <host> <port> | show_net()")
			continue
		}
		if err := ircd.ConnectPeer(d, fields[0], fields[1]); err != nil {
			fmt.Printf("connect failed: %s\n", err)
		}
	}
}

func printNet(d *ircd.Daemon) {
	var walk func(n *ircd.PeerNode, depth int)
	walk = func(n *ircd.PeerNode, depth int) {
		fmt.Printf("%s%s\n", strings.Repeat("  ", depth), n.Name)
		for _, child := range n.Peers {
			walk(child, depth+1)
		}
	}
	walk(d.Tree(), 0)
}
