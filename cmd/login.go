package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ShayBox/VRC-BAN/internal/credstore"
)

var (
	loginUsername   string
	loginPassword   string
	loginTOTPSecret string
	loginGroupID    string
	loginFresh      bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate the service account with VRChat",
	Long: `Logs the service account in and stores the session tokens in the credential file.
Values given as flags are written to the credential file before logging in.
A stored session is reused if it is still valid, unless --fresh is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := f.OpenCredentials()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("username") || flags.Changed("password") ||
			flags.Changed("totp-secret") || flags.Changed("group-id") {
			err := fs.Update(func(doc *credstore.Document) {
				if flags.Changed("username") {
					doc.Username = loginUsername
					doc.Authentication = nil
				}
				if flags.Changed("password") {
					doc.Password = loginPassword
				}
				if flags.Changed("totp-secret") {
					doc.TOTPSecret = loginTOTPSecret
				}
				if flags.Changed("group-id") {
					doc.GroupID = loginGroupID
				}
			})
			if err != nil {
				return logError(err, "", "could not save credentials")
			}
			log.Debug().Msgf("updated credential file %s", fs.Path())
		}

		backend, err := f.Backend(cmd.Context())
		if err != nil {
			return err
		}
		defer backend.Close()

		log.Info().Msgf("Logging in as %s...", bold(backend.Credentials.Document().Username))
		if loginFresh {
			_, err = backend.Sessions.Renew(cmd.Context(), backend.Sessions.Session())
		} else {
			err = backend.Login(cmd.Context())
		}
		if err != nil {
			return logError(err, "", "login failed")
		}

		logSuccess("session is %s, saved to %s", bold(backend.Sessions.State().String()), faint(fs.Path()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username of the service account")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password of the service account")
	loginCmd.Flags().StringVar(&loginTOTPSecret, "totp-secret", "", "Base32 TOTP secret of the service account")
	loginCmd.Flags().StringVarP(&loginGroupID, "group-id", "g", "", "Group to moderate (grp_...)")
	loginCmd.Flags().BoolVar(&loginFresh, "fresh", false, "Ignore the stored session and log in again")
}
