package session

import (
	"crypto/sha256"
	"fmt"
	"path"
)

// PrivacyFilter applies masking and match-type filtering to advertisements
// before they are listed to observers. The zero value is a no-op filter.
type PrivacyFilter struct {
	MaskHostAddresses bool     `yaml:"mask_host_addresses"`
	MaskOwnerIDs      bool     `yaml:"mask_owner_ids"`
	MaskPlayers       bool     `yaml:"mask_players"`
	HiddenMatchTypes  []string `yaml:"hidden_match_types"`
}

// IsAllowed reports whether a session advertising matchType may be listed.
// HiddenMatchTypes entries are glob patterns.
func (f *PrivacyFilter) IsAllowed(matchType string) bool {
	for _, pattern := range f.HiddenMatchTypes {
		if matched, _ := path.Match(pattern, matchType); matched {
			return false
		}
	}
	return true
}

// Apply returns a masked copy of a. The original is never modified.
func (f *PrivacyFilter) Apply(a *Advertisement) *Advertisement {
	masked := a.Clone()

	if f.MaskHostAddresses {
		masked.HostAddress = ""
	}

	if f.MaskOwnerIDs && masked.OwnerID != "" {
		masked.OwnerID = shortHash(masked.OwnerID)
	}

	if f.MaskPlayers {
		for i, p := range masked.Players {
			masked.Players[i] = shortHash(p)
		}
	}

	return masked
}

// FilterSlice returns the allowed advertisements with masking applied.
func (f *PrivacyFilter) FilterSlice(list []*Advertisement) []*Advertisement {
	result := make([]*Advertisement, 0, len(list))
	for _, a := range list {
		mt, _ := a.Settings.Get(MatchTypeKey)
		if !f.IsAllowed(mt) {
			continue
		}
		result = append(result, f.Apply(a))
	}
	return result
}

// IsNoop reports whether the filter does nothing.
func (f *PrivacyFilter) IsNoop() bool {
	return !f.MaskHostAddresses && !f.MaskOwnerIDs && !f.MaskPlayers && len(f.HiddenMatchTypes) == 0
}

// shortHash returns a truncated SHA-256 hex digest for an opaque identifier.
func shortHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h[:6])
}
