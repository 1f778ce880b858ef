// Command domain-client connects to a domain over WebRTC and follows
// the session until interrupted: check-ins, roster updates, node
// lifecycle and connection state changes are printed as they happen.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/namark/vircadia-web-sdk/internal/client"
	"github.com/namark/vircadia-web-sdk/internal/config"
	"github.com/namark/vircadia-web-sdk/internal/domain"
	"github.com/namark/vircadia-web-sdk/internal/nodes"
	"github.com/namark/vircadia-web-sdk/internal/util"
)

var version = "dev"

func main() {
	var (
		configPath string
		url        string
		location   string
		debug      bool
	)

	rootCmd := &cobra.Command{
		Use:   "domain-client",
		Short: "Connect to a domain and follow the session",
		Long: `domain-client speaks the domain protocol over WebRTC data channels.

It establishes a peer connection through the domain's WebSocket
signaling endpoint, performs the connect handshake, then prints
roster and connection state changes until interrupted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if url != "" {
				cfg.SignalingURL = url
			}
			if location != "" {
				cfg.Location = location
			}
			if debug {
				cfg.Debug = true
			}
			return run(cmd.Context(), cfg)
		},
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a TOML config file")
	rootCmd.Flags().StringVarP(&url, "url", "u", "", "WebSocket signaling URL (overrides config)")
	rootCmd.Flags().StringVarP(&location, "location", "l", "", "Domain location to connect to (overrides config)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("domain-client v%s\n", version)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(ctx context.Context, cfg config.Config) error {
	if cfg.Debug {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("domain-client v%s", version))

	c := client.New(cfg)

	c.Handler.StateChanged.Connect(func(s domain.State) {
		switch s {
		case domain.StateConnected:
			pterm.Success.Println(fmt.Sprintf("Connected to %s as %s",
				cfg.Location, c.NodeList.SessionUUID()))
		case domain.StateRefused:
			pterm.Warning.Println("Domain refused connection: " + c.Handler.RefusalReason())
		case domain.StateError:
			pterm.Error.Println("Domain connection error: " + c.Handler.ErrorDetail())
		default:
			util.LogInfo("Domain state: %v", s)
		}
	})
	c.NodeList.NodeAdded.Connect(func(n *nodes.Node) {
		util.LogInfo("Node added: %v", n)
	})
	c.NodeList.NodeKilled.Connect(func(n *nodes.Node) {
		util.LogInfo("Node removed: %v", n)
	})

	if err := c.Start(ctx); err != nil {
		return err
	}
	defer c.Stop()

	util.StartStatsReporter(ctx)

	<-ctx.Done()
	pterm.Println()
	util.LogInfo("Shutting down")
	return nil
}
