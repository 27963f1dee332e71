package audit

import (
	"github.com/rs/zerolog/log"

	"github.com/ShayBox/VRC-BAN/internal/core"
)

var _ core.Auditor = (*NoopAuditor)(nil)

// NoopAuditor keeps nothing. Actions are only written to the debug log.
type NoopAuditor struct{}

func NewNoopAuditor() *NoopAuditor {
	return &NoopAuditor{}
}

func (*NoopAuditor) Log(action core.OperatorAction) error {
	log.Debug().
		Str("action", action.Action).
		Str("operator", action.Operator).
		Str("user_id", action.UserID).
		Bool("success", action.Success).
		Msg("operator action (not audited)")
	return nil
}

func (*NoopAuditor) GetRecent(int) ([]core.OperatorAction, error) {
	return []core.OperatorAction{}, nil
}

func (*NoopAuditor) Find(func(core.OperatorAction) bool, int) ([]core.OperatorAction, error) {
	return []core.OperatorAction{}, nil
}

func (*NoopAuditor) Close() error {
	return nil
}
