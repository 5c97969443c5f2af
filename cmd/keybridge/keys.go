package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	keysUser        string
	keysPassword    string
	keysNewPassword string
	keysSalt        string
	keysCode        string
	keysRecoveryKey string
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Create and select locally stored user key records.",
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Generate a key pair for a user and store it wrapped under their password.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if keysUser == "" || keysPassword == "" {
			return fmt.Errorf("--user and --password are required")
		}
		ctx := cmd.Context()
		f, err := openFacade(ctx)
		if err != nil {
			return err
		}
		defer f.Close()

		salt, err := f.GenerateUserSalt(ctx)
		if err != nil {
			return err
		}
		boxKey, err := f.GeneratePasswordSecretBoxKey(ctx, keysPassword, salt)
		if err != nil {
			return err
		}
		keys, err := f.GenerateAsymmetricKeys(ctx)
		if err != nil {
			return err
		}
		wrapped, err := f.EncryptPrivateKey(ctx, boxKey, keys.PrivateKey)
		if err != nil {
			return err
		}
		recovery, err := f.GenerateRecoveryCode(ctx, keysPassword, salt)
		if err != nil {
			return err
		}
		recoveryKey, err := f.GeneratePasswordSecretBoxKey(ctx, recovery, salt)
		if err != nil {
			return err
		}
		recoveryWrapped, err := f.EncryptPrivateKey(ctx, recoveryKey, keys.PrivateKey)
		if err != nil {
			return err
		}
		if err := f.StoreDataForUser(ctx, keysUser, keys.PublicKey, wrapped); err != nil {
			return err
		}

		log.Debug().Str("user", keysUser).Msg("key record stored")
		status("user", keysUser)
		status("public key", keys.PublicKey)
		status("salt", salt)
		status("recovery code", recovery)
		status("recovery key", recoveryWrapped)
		fmt.Println(Info.Sprint("→") + " store the salt, recovery code and recovery key offline; together they restore the private key")
		return nil
	},
}

var keysShowCmd = &cobra.Command{
	Use:     "show <user>",
	Aliases: []string{"select"},
	Short:   "Load a stored key record and print its public key.",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f, err := openFacade(ctx)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := f.SetDataFromStorage(ctx, args[0]); err != nil {
			return err
		}
		s := f.Session()
		status("user", s.UserID)
		status("public key", s.PublicKey)
		return nil
	},
}

var keysClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every stored key record from this device.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f, err := openFacade(ctx)
		if err != nil {
			return err
		}
		defer f.Close()

		if !f.ClearData(ctx) {
			return fmt.Errorf("failed to clear key store")
		}
		fmt.Println(Success.Sprint("✓") + " key store cleared")
		return nil
	},
}

var keysPasswdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Rewrap a stored private key under a new password.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if keysUser == "" || keysPassword == "" || keysNewPassword == "" || keysSalt == "" {
			return fmt.Errorf("--user, --password, --new-password and --salt are required")
		}
		ctx := cmd.Context()
		f, err := openFacade(ctx)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := f.SetDataFromStorage(ctx, keysUser); err != nil {
			return err
		}
		s := f.Session()
		oldKey, err := f.GeneratePasswordSecretBoxKey(ctx, keysPassword, keysSalt)
		if err != nil {
			return err
		}
		newKey, err := f.GeneratePasswordSecretBoxKey(ctx, keysNewPassword, keysSalt)
		if err != nil {
			return err
		}
		res, err := f.PasswordChange(ctx, oldKey, newKey, s.PrivateKey)
		if err != nil {
			return err
		}
		if err := f.StoreDataForUser(ctx, s.UserID, s.PublicKey, res.PrivateKey); err != nil {
			return err
		}
		status("password changed for", s.UserID)
		return nil
	},
}

var keysRecoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Restore a stored private key from its recovery code under a new password.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if keysUser == "" || keysCode == "" || keysRecoveryKey == "" || keysSalt == "" || keysNewPassword == "" {
			return fmt.Errorf("--user, --code, --recovery-key, --salt and --new-password are required")
		}
		ctx := cmd.Context()
		f, err := openFacade(ctx)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := f.SetDataFromStorage(ctx, keysUser); err != nil {
			return err
		}
		s := f.Session()
		plain, err := f.DecryptPrivateKeyRecovery(ctx, keysCode, keysRecoveryKey, keysSalt)
		if err != nil {
			return err
		}
		boxKey, err := f.GeneratePasswordSecretBoxKey(ctx, keysNewPassword, keysSalt)
		if err != nil {
			return err
		}
		wrapped, err := f.EncryptPrivateKey(ctx, boxKey, plain)
		if err != nil {
			return err
		}
		if err := f.StoreDataForUser(ctx, s.UserID, s.PublicKey, wrapped); err != nil {
			return err
		}
		status("recovered", s.UserID)
		return nil
	},
}

func init() {
	keysCreateCmd.Flags().StringVarP(&keysUser, "user", "u", "", "user id")
	keysCreateCmd.Flags().StringVarP(&keysPassword, "password", "p", "", "user password")

	for _, c := range []*cobra.Command{keysPasswdCmd, keysRecoverCmd} {
		c.Flags().StringVarP(&keysUser, "user", "u", "", "user id")
		c.Flags().StringVar(&keysSalt, "salt", "", "user salt printed by keys create")
		c.Flags().StringVar(&keysNewPassword, "new-password", "", "password to wrap the key under")
	}
	keysPasswdCmd.Flags().StringVarP(&keysPassword, "password", "p", "", "current password")
	keysRecoverCmd.Flags().StringVar(&keysCode, "code", "", "recovery code")
	keysRecoverCmd.Flags().StringVar(&keysRecoveryKey, "recovery-key", "", "recovery key printed by keys create")

	keysCmd.AddCommand(keysCreateCmd)
	keysCmd.AddCommand(keysPasswdCmd)
	keysCmd.AddCommand(keysRecoverCmd)
	keysCmd.AddCommand(keysShowCmd)
	keysCmd.AddCommand(keysClearCmd)
}
