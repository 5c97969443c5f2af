package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sonr-io/keybridge/crypto/aead"
	"github.com/sonr-io/keybridge/sharing"
)

var (
	shareIn       string
	shareOut      string
	sharePassword string
)

var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Create, rotate and open password-protected sharing envelopes.",
	Long: `A sharing envelope carries a fresh key pair whose private key is wrapped
under a generated sharing password. The password itself is stored encrypted
with the auth key from [auth] key or KEYBRIDGE_AUTH_KEY.

Envelopes are read from --in (default stdin) and written to --out
(default stdout) as JSON.`,
}

var shareCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new sharing envelope.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProtocol(cmd, func(p *sharing.Protocol) error {
			env, err := p.GenerateSharingEncryption(cmd.Context())
			if err != nil {
				return err
			}
			return writeEnvelope(env)
		})
	},
}

var shareRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Rewrap an envelope under a new sharing password, keeping its key pair.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProtocol(cmd, func(p *sharing.Protocol) error {
			env, err := readEnvelope()
			if err != nil {
				return err
			}
			current, err := p.RevealPassword(cmd.Context(), env)
			if err != nil {
				return err
			}
			rotated, err := p.GenerateNewPassword(cmd.Context(), env, current)
			if err != nil {
				return err
			}
			return writeEnvelope(rotated)
		})
	},
}

var shareUnwrapCmd = &cobra.Command{
	Use:   "unwrap",
	Short: "Print the envelope's private key, given its sharing password.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProtocol(cmd, func(p *sharing.Protocol) error {
			env, err := readEnvelope()
			if err != nil {
				return err
			}
			pw := sharePassword
			if pw == "" {
				if pw, err = p.RevealPassword(cmd.Context(), env); err != nil {
					return err
				}
			}
			key, err := p.UnwrapPrivateKey(cmd.Context(), env, pw)
			if err != nil {
				return err
			}
			fmt.Println(key)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{shareRotateCmd, shareUnwrapCmd} {
		c.Flags().StringVarP(&shareIn, "in", "i", "", "envelope file (default stdin)")
	}
	for _, c := range []*cobra.Command{shareCreateCmd, shareRotateCmd} {
		c.Flags().StringVarP(&shareOut, "out", "o", "", "output file (default stdout)")
	}
	shareUnwrapCmd.Flags().StringVar(&sharePassword, "password", "", "sharing password (default: decrypt the stored one)")

	shareCmd.AddCommand(shareCreateCmd)
	shareCmd.AddCommand(shareRotateCmd)
	shareCmd.AddCommand(shareUnwrapCmd)
}

func withProtocol(cmd *cobra.Command, fn func(*sharing.Protocol) error) error {
	key, err := cfg.AuthKey()
	if err != nil {
		return err
	}
	auth, err := aead.NewAESGCM(key)
	if err != nil {
		return err
	}
	f, err := openFacade(cmd.Context())
	if err != nil {
		return err
	}
	defer f.Close()
	return fn(sharing.New(f, auth, sharing.WithLogger(log)))
}

func readEnvelope() (sharing.Envelope, error) {
	if shareIn != "" {
		return readEnvelopeFile(shareIn)
	}
	return decodeEnvelope(os.Stdin)
}

func readEnvelopeFile(path string) (sharing.Envelope, error) {
	fh, err := os.Open(path)
	if err != nil {
		return sharing.Envelope{}, err
	}
	defer fh.Close()
	return decodeEnvelope(fh)
}

func decodeEnvelope(r io.Reader) (sharing.Envelope, error) {
	var env sharing.Envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return sharing.Envelope{}, fmt.Errorf("failed to read envelope: %w", err)
	}
	return env, nil
}

func writeEnvelope(env sharing.Envelope) error {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if shareOut == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(shareOut, data, 0o600); err != nil {
		return err
	}
	status("envelope written to", shareOut)
	return nil
}
