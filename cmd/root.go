package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ShayBox/VRC-BAN/internal/buildinfo"
	"github.com/ShayBox/VRC-BAN/internal/logging"
)

// global flags
var (
	userConfig string
	f          = NewFactory()
)

const (
	ServerAddrKey = "server"
	TokenKey      = "token"

	UsernameKey   = "username"
	PasswordKey   = "password"
	TOTPSecretKey = "totp_secret"
	GroupIDKey    = "group_id"
)

var rootCmd = &cobra.Command{
	Use:   "vrcban",
	Short: fmt.Sprintf("VRC-BAN group moderation (version: %s, commit: %s)", buildinfo.Version, buildinfo.CommitHash),
	Long: `vrcban keeps a local copy of a VRChat group's moderation audit log
and ranks the group's staff by their moderation activity.
It can also ban and unban members on behalf of a service account.`,
	Version: buildinfo.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Msg("cannot read .env file")
		}
		configPath, configErr := initConfig()
		logging.Init(nil)
		if configErr != nil { // handle error after logging is initialized
			return configErr
		}
		if configPath != "" {
			log.Debug().Msgf("using user config file: %s", configPath)
		}
		return nil
	},
}

// BeQuietError is returned by commands that already reported their failure.
type BeQuietError struct{}

func (BeQuietError) Error() string {
	return "command failed"
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		if errors.As(err, &BeQuietError{}) {
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("execution failed")
	}
}

func init() {
	// setup pre-flag logger
	logging.InitDefault()

	rootCmd.PersistentFlags().StringVar(&userConfig, "user-config", "",
		"User configuration file for default values (default is $HOME/.vrcban.yaml)")

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	_ = viper.BindPFlag(logging.LevelKey, rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().String("log-format", "console", "Log format (console, json)")
	_ = viper.BindPFlag(logging.FormatKey, rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.PersistentFlags().Bool("no-color", false, "Disable color output")
	_ = viper.BindPFlag(logging.NoColorKey, rootCmd.PersistentFlags().Lookup("no-color"))

	f.bindGlobalFlags(rootCmd.PersistentFlags())

	viper.SetEnvPrefix("VRCBAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))

	viper.AutomaticEnv()

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

func initConfig() (string, error) {
	// reads in config file and ENV variables if set.
	if userConfig != "" {
		viper.SetConfigFile(userConfig)
	} else {
		// search order: current dir, $HOME, XDG config
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}

		config, err := os.UserConfigDir()
		if err == nil {
			viper.AddConfigPath(config + "/vrcban")
		}

		viper.SetConfigType("yaml")
		viper.SetConfigName(".vrcban")
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundError) {
			return "", err
		}
	} else {
		return viper.ConfigFileUsed(), nil
	}

	return "", nil
}
