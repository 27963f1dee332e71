package cmd

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ShayBox/VRC-BAN/internal/api/middleware"
)

var (
	mintSubject    string
	mintSigningKey string
	mintTTL        time.Duration
	mintRoles      []string
)

var mintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint an admin token for the moderation routes",
	Long: `Signs an HS256 admin token with api.signing_key of the service configuration (or --signing-key).
The subject is recorded as operator of every ban and unban made with the token.`,
	Example: `  vrcban debug mint -c vrcban.yaml --subject alice
  export VRCBAN_TOKEN=$(vrcban debug mint -c vrcban.yaml --subject alice)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key := mintSigningKey
		if key == "" {
			cfg, err := f.LoadConfig()
			if err != nil {
				return err
			}
			key = cfg.API.SigningKey
		}
		if key == "" {
			return fmt.Errorf("no signing key, set api.signing_key in the config or use --signing-key")
		}

		now := time.Now()
		claims := middleware.AdminClaims{
			Roles: mintRoles,
			RegisteredClaims: jwt.RegisteredClaims{
				ID:       uuid.NewString(),
				Subject:  mintSubject,
				IssuedAt: jwt.NewNumericDate(now),
			},
		}
		if mintTTL > 0 {
			claims.ExpiresAt = jwt.NewNumericDate(now.Add(mintTTL))
		}

		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
		if err != nil {
			return fmt.Errorf("signing token: %w", err)
		}
		log.Debug().Str("jti", claims.ID).Str("sub", mintSubject).Msg("Token minted successfully")

		fmt.Println(signed)
		return nil
	},
}

func init() {
	debugCmd.AddCommand(mintCmd)

	mintCmd.Flags().StringVar(&mintSubject, "subject", "", "Operator name stored in the token")
	mintCmd.Flags().StringVar(&mintSigningKey, "signing-key", "", "HS256 key (default is api.signing_key)")
	mintCmd.Flags().DurationVar(&mintTTL, "ttl", 24*time.Hour, "Lifetime of the token, 0 for no expiry")
	mintCmd.Flags().StringSliceVar(&mintRoles, "role", []string{middleware.AdminRole}, "Roles of the token")

	_ = mintCmd.MarkFlagRequired("subject")
}
