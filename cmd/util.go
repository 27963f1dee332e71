package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rs/zerolog/log"

	"github.com/ShayBox/VRC-BAN/pkg/client"
)

var (
	greenCheck = color.GreenString("✔")
	redCross   = color.RedString("✘")

	bold  = color.New(color.Bold).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()
)

func applyTableFormat(t table.Writer) {
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = true
	t.Style().Options.SeparateHeader = true
	if color.NoColor {
		t.Style().Color = table.ColorOptions{}
	}
}

// logError reports a failed command and returns BeQuietError so it is not reported twice.
func logError(err error, correlation, msg string) error {
	var apiErr client.APIError
	if errors.As(err, &apiErr) && correlation == "" {
		correlation = apiErr.CorrelationID
	}
	if correlation != "" {
		log.Error().Msgf("%s %s (correlation ID: %s)", redCross, msg, correlation)
	} else {
		log.Error().Msgf("%s %s", redCross, msg)
	}
	log.Error().Msgf("error: %v", err)
	if apiErr.RetryAfter > 0 {
		log.Info().Msgf("The server asked to retry in %s.", apiErr.RetryAfter)
	}
	if errors.Is(err, client.ErrForbidden) {
		log.Info().Msgf("The token in %s lacks the admin role.", color.CyanString("VRCBAN_TOKEN"))
	}
	if errors.Is(err, client.ErrInvalidSession) {
		log.Info().Msgf("Set %s to a token minted with '%s'.",
			color.CyanString("VRCBAN_TOKEN"), color.CyanString("vrcban debug mint"))
	}
	return BeQuietError{}
}

func logSuccess(format string, args ...any) {
	log.Info().Msgf("%s %s", greenCheck, fmt.Sprintf(format, args...))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
