package leaderboard

import (
	"maps"
	"strings"
)

// AliasMap maps secondary actor ids to a canonical actor id, or to a fixed label for system actors.
type AliasMap map[string]string

// DefaultAliases merges the known alternate staff accounts of the group.
func DefaultAliases() AliasMap {
	return AliasMap{
		// ~WhiteBoy~ -> -WhiteBoy-
		"usr_01a387da-e758-451f-96e5-e3a7282c7197": "usr_71ddbbc1-c70f-4b4a-a0fc-e87f57038393",
		// ZealWolf d978 -> Zeal Wolf
		"usr_a4cec242-f798-4d53-aa69-b85e19e9d978": "usr_275004c5-5532-47e6-a543-2ebf88229bdf",
		// TheVoiceBox, FemBox -> ShayBox
		"usr_5dc9c86d-2de7-4c10-b11d-8dd1335270de": "usr_2e8e2b0c-df4e-499f-bbf0-ddc5f3841488",
		"usr_98139f06-9b7e-4a2c-b7b0-8459b51dddbb": "usr_2e8e2b0c-df4e-499f-bbf0-ddc5f3841488",
		// votekicks are performed by the platform itself
		"vrc_admin": "Vote Kick",
	}
}

// Merge returns a new map with the entries of o overriding those of m.
func (m AliasMap) Merge(o AliasMap) AliasMap {
	res := make(AliasMap, len(m)+len(o))
	maps.Copy(res, m)
	maps.Copy(res, o)
	return res
}

// Canonical returns the canonical id of actorID. Aliases are not followed transitively.
func (m AliasMap) Canonical(actorID string) string {
	if to, ok := m[actorID]; ok {
		return to
	}
	return actorID
}

// IsAccount reports whether id refers to a user account rather than a label.
func IsAccount(id string) bool {
	return strings.HasPrefix(id, "usr_")
}
