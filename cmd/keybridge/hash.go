package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var hashCmd = &cobra.Command{
	Use:   "hash <username>",
	Short: "Print the deterministic lookup hash of a username.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := openFacade(cmd.Context())
		if err != nil {
			return err
		}
		defer f.Close()

		h, err := f.GenerateUsernameHash(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(h)
		return nil
	},
}
