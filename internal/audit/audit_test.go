package audit

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayBox/VRC-BAN/internal/config"
	"github.com/ShayBox/VRC-BAN/internal/core"
)

func action(i int, userID string) core.OperatorAction {
	return core.OperatorAction{
		ID:       fmt.Sprintf("act_%d", i),
		Time:     time.Date(2024, 5, 1, 12, i, 0, 0, time.UTC),
		Action:   "member.ban",
		Operator: "cli",
		GroupID:  "grp_test",
		UserID:   userID,
		Success:  true,
	}
}

func exercise(t *testing.T, a core.Auditor) {
	t.Helper()
	for i := range 5 {
		user := "usr_a"
		if i%2 == 1 {
			user = "usr_b"
		}
		require.NoError(t, a.Log(action(i, user)))
	}

	recent, err := a.GetRecent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "act_3", recent[0].ID)
	assert.Equal(t, "act_4", recent[1].ID)

	all, err := a.GetRecent(0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	found, err := a.Find(func(action core.OperatorAction) bool {
		return action.UserID == "usr_b"
	}, 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "act_1", found[0].ID)
	assert.True(t, found[0].Time.Equal(action(1, "").Time))
}

func TestInMemoryAuditor(t *testing.T) {
	exercise(t, NewInMemoryAuditor())
}

func TestFileAuditor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	a, err := NewFileAuditor(path)
	require.NoError(t, err)
	exercise(t, a)
	require.NoError(t, a.Close())

	// appends to the existing file
	a, err = NewFileAuditor(path)
	require.NoError(t, err)
	defer func() { _ = a.Close() }()
	require.NoError(t, a.Log(action(9, "usr_c")))

	all, err := a.GetRecent(0)
	require.NoError(t, err)
	assert.Len(t, all, 6)
}

func TestNoopAuditor(t *testing.T) {
	a := NewNoopAuditor()
	require.NoError(t, a.Log(action(0, "usr_a")))
	recent, err := a.GetRecent(10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestNew(t *testing.T) {
	a, err := New(config.AuditConfig{})
	require.NoError(t, err)
	assert.IsType(t, &NoopAuditor{}, a)

	a, err = New(config.AuditConfig{Enabled: true, Type: TypeMemory})
	require.NoError(t, err)
	assert.IsType(t, &InMemoryAuditor{}, a)

	_, err = New(config.AuditConfig{Enabled: true, Type: TypeFile})
	assert.Error(t, err)

	_, err = New(config.AuditConfig{Enabled: true, Type: "syslog"})
	assert.Error(t, err)
}
