package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ShayBox/VRC-BAN/internal/session"
)

var totpCmd = &cobra.Command{
	Use:   "totp [SECRET]",
	Short: "Print the current second factor code",
	Long: `Generates the TOTP code that would be sent on login.
Without an argument, the secret of the credential file or VRCBAN_TOTP_SECRET is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := viper.GetString(TOTPSecretKey)
		if len(args) == 1 {
			secret = args[0]
		}
		if secret == "" {
			fs, err := f.OpenCredentials()
			if err != nil {
				return err
			}
			secret = fs.Document().TOTPSecret
		}
		if secret == "" {
			return fmt.Errorf("no totp secret configured")
		}

		now := time.Now()
		code, err := session.GenerateCode(secret, now)
		if err != nil {
			return logError(err, "", "invalid totp secret")
		}
		log.Info().Msgf("Code %s is valid for %s", color.New(color.Bold, color.FgCyan).Sprint(code),
			session.CodeValidFor(now))
		return nil
	},
}

func init() {
	debugCmd.AddCommand(totpCmd)
}
