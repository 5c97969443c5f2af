// Command keybridge manages user key material and sharing envelopes, and
// serves the crypto engine to remote clients.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool

	cfg *Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "keybridge",
	Short: "Keybridge - client-side key management backed by an isolated crypto engine.",
	Long: `Keybridge derives password keys, wraps private keys, keeps per-user key
records on this device and creates password-protected sharing envelopes.

All cryptography runs in a background engine: in process, in a pinned
WebAssembly bundle, or in a remote bridge started with 'keybridge serve'.

Usage:
  keybridge <command> [flags]

Run 'keybridge help <command>' for more details on a specific command.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log = newLogger(verbose)
		loaded, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		log.Debug().Str("config", configPath).Str("provisioner", cfg.Engine.Provisioner).Msg("configuration loaded")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", DefaultConfigPath(), "path to the TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(tokenCmd)
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, Error.Sprint("✗")+" "+err.Error())
		os.Exit(1)
	}
}
