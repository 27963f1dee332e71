package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// viper keys read by Init(nil)
const (
	LevelKey   = "log.level"
	FormatKey  = "log.format"
	NoColorKey = "log.no_color"
)

type Options struct {
	Level   string // debug, info, warn, error
	Format  string // console, json
	NoColor bool

	// Out defaults to stderr.
	Out io.Writer
}

// InitDefault sets up a console logger before flags are parsed.
func InitDefault() {
	Init(&Options{Level: "info", Format: "console"})
}

// Init configures the global zerolog logger.
// If opts is nil, the options are read from viper.
func Init(opts *Options) {
	if opts == nil {
		opts = &Options{
			Level:   viper.GetString(LevelKey),
			Format:  viper.GetString(FormatKey),
			NoColor: viper.GetBool(NoColorKey),
		}
	}
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if strings.EqualFold(opts.Format, "json") {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    opts.NoColor,
		TimeFormat: time.TimeOnly,
	}).With().Timestamp().Logger()
}
