package audit

import (
	"fmt"

	"github.com/ShayBox/VRC-BAN/internal/config"
	"github.com/ShayBox/VRC-BAN/internal/core"
)

const (
	TypeFile   = "file"
	TypeMemory = "memory"
)

// New creates the auditor described by cfg. A disabled auditor records nothing.
func New(cfg config.AuditConfig) (core.Auditor, error) {
	if !cfg.Enabled {
		return NewNoopAuditor(), nil
	}
	switch cfg.Type {
	case TypeFile, "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("audit type 'file' requires a path")
		}
		return NewFileAuditor(cfg.Path)
	case TypeMemory:
		return NewInMemoryAuditor(), nil
	}
	return nil, fmt.Errorf("unknown audit type '%s'", cfg.Type)
}
