package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const totpPeriod = 30

var totpOpts = totp.ValidateOpts{
	Period:    totpPeriod,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// GenerateCode returns the 6 digit SHA-1 TOTP code of the base32 seed for time t.
func GenerateCode(secret string, t time.Time) (string, error) {
	secret = strings.ToUpper(strings.ReplaceAll(secret, " ", ""))
	code, err := totp.GenerateCodeCustom(secret, t, totpOpts)
	if err != nil {
		return "", fmt.Errorf("generating totp code: %w", err)
	}
	return code, nil
}

// CodeValidFor returns how long the code generated at t stays valid.
func CodeValidFor(t time.Time) time.Duration {
	elapsed := t.Unix() % totpPeriod
	return time.Duration(totpPeriod-elapsed) * time.Second
}
