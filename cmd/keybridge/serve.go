package main

import (
	"github.com/spf13/cobra"

	"github.com/sonr-io/keybridge/bridge"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the crypto engine over authenticated WebSockets.",
	Long: `Starts the bridge: an HTTP server exposing the native engine on /engine,
with /health, /ready and /metrics alongside.

The bridge reads KEYBRIDGE_* environment variables. --port overrides
KEYBRIDGE_HTTP_PORT.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bcfg := bridge.NewConfig(log)
		if servePort > 0 {
			bcfg.HTTPPort = servePort
		}
		svc, err := bridge.NewService(bcfg, log)
		if err != nil {
			return err
		}
		return svc.Run(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP port (default from KEYBRIDGE_HTTP_PORT or 8090)")
}
