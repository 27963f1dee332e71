package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long:  "Parses the file given with --config and checks every value. Fields absent from the file keep their default.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if f.ConfigPath == "" {
			return fmt.Errorf("no configuration file given (use --config)")
		}
		if _, err := f.LoadConfig(); err != nil {
			return logError(err, "", "configuration is invalid")
		}
		logSuccess("configuration %s is valid", bold(f.ConfigPath))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadConfig()
		if err != nil {
			return logError(err, "", "configuration is invalid")
		}
		if cfg.API.SigningKey != "" {
			cfg.API.SigningKey = "<redacted>"
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encoding configuration: %w", err)
		}
		log.Debug().Msgf("effective configuration of %q", f.ConfigPath)
		_, err = os.Stdout.Write(out)
		return err
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd, configShowCmd)
}
