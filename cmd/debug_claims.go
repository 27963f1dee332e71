package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var claimsCmd = &cobra.Command{
	Use:   "claims [ADMIN-TOKEN]",
	Short: "Prints the claims of an admin token",
	Long: `Decodes an admin token and displays its claims. The signature is not verified.
Without an argument, the token in VRCBAN_TOKEN is used.`,
	Example: `  vrcban debug claims <JWT token>`,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tokenInput := f.token()
		if len(args) == 1 {
			tokenInput = args[0]
		}
		if tokenInput == "" {
			return fmt.Errorf("token cannot be empty")
		}

		token, _, err := jwt.NewParser().ParseUnverified(tokenInput, jwt.MapClaims{})
		if err != nil {
			return fmt.Errorf("parsing token: %w", err)
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return fmt.Errorf("invalid token claims")
		}

		log.Info().Msg("Token Claims:")
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(claims); err != nil {
			log.Warn().Err(err).Msg("failed to pretty-print claims")
		}

		if sub, err := claims.GetSubject(); err == nil && sub != "" {
			log.Info().Msgf("Operator (sub): %s", sub)
		} else {
			log.Warn().Msg("Token does not contain 'sub' claim, actions will be recorded without operator")
		}

		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			remaining := time.Until(exp.Time)
			if remaining <= 0 {
				log.Warn().Msgf("Expiration (exp): %v (expired %v ago)", exp.Time, -remaining.Round(time.Second))
			} else {
				log.Info().Msgf("Expiration (exp): %v (in %v)", exp.Time, remaining.Round(time.Second))
			}
		}

		return nil
	},
}

func init() {
	debugCmd.AddCommand(claimsCmd)
}
