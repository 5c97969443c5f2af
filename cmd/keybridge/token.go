package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sonr-io/keybridge/bridge/handlers"
)

var (
	tokenClient string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bridge access token signed with KEYBRIDGE_JWT_SECRET.",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := os.Getenv("KEYBRIDGE_JWT_SECRET")
		if secret == "" {
			return fmt.Errorf("KEYBRIDGE_JWT_SECRET is not set")
		}
		token, err := handlers.IssueToken([]byte(secret), tokenClient, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenClient, "client", "keybridge-cli", "client id embedded in the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}
