package entities

import (
	"fmt"
	"strings"
	"time"
)

// PreferenceKind is the closed set of preference signal kinds.
type PreferenceKind string

const (
	PreferenceLikedTag         PreferenceKind = "liked_tag"
	PreferenceDislikedTag      PreferenceKind = "disliked_tag"
	PreferenceFavoriteDistrict PreferenceKind = "favorite_district"
	PreferenceDietary          PreferenceKind = "dietary"
	PreferencePriceRange       PreferenceKind = "price_range"
)

// ParsePreferenceKind validates a preference kind string.
func ParsePreferenceKind(raw string) (PreferenceKind, error) {
	switch k := PreferenceKind(strings.ToLower(strings.TrimSpace(raw))); k {
	case PreferenceLikedTag, PreferenceDislikedTag, PreferenceFavoriteDistrict, PreferenceDietary, PreferencePriceRange:
		return k, nil
	}
	return "", fmt.Errorf("unknown preference kind %q", raw)
}

// Scope is the ownership boundary of preferences and plans: a single user or
// a couple, never both.
type Scope struct {
	UserID   string `json:"user_id,omitempty"`
	CoupleID string `json:"couple_id,omitempty"`
}

// UserScope returns an individual scope.
func UserScope(userID string) Scope {
	return Scope{UserID: userID}
}

// CoupleScope returns a shared scope.
func CoupleScope(coupleID string) Scope {
	return Scope{CoupleID: coupleID}
}

// Validate checks that exactly one owner is set.
func (s Scope) Validate() error {
	user := strings.TrimSpace(s.UserID)
	couple := strings.TrimSpace(s.CoupleID)
	switch {
	case user == "" && couple == "":
		return fmt.Errorf("scope requires a user_id or couple_id")
	case user != "" && couple != "":
		return fmt.Errorf("scope cannot be both user and couple")
	}
	return nil
}

// IsZero reports whether no owner is set.
func (s Scope) IsZero() bool {
	return strings.TrimSpace(s.UserID) == "" && strings.TrimSpace(s.CoupleID) == ""
}

// Key is the storage key of the scope, unique across users and couples.
func (s Scope) Key() string {
	if s.CoupleID != "" {
		return "couple:" + s.CoupleID
	}
	return "user:" + s.UserID
}

// PreferenceSignal is an accumulated like/dislike signal for a scope.
type PreferenceSignal struct {
	ID        string         `json:"id" db:"id"`
	ScopeKey  string         `json:"-" db:"scope_key"`
	UserID    string         `json:"user_id,omitempty" db:"user_id"`
	CoupleID  string         `json:"couple_id,omitempty" db:"couple_id"`
	Kind      PreferenceKind `json:"kind" db:"kind"`
	Value     string         `json:"value" db:"value"`
	Weight    float64        `json:"weight" db:"weight"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// ResetMode selects what a preference reset deletes.
type ResetMode string

const (
	// ResetModeFull deletes every signal of the scope.
	ResetModeFull ResetMode = "full"
	// ResetModeCategory deletes the signals of one kind.
	ResetModeCategory ResetMode = "category"
)

// ParseResetMode validates a reset mode string.
func ParseResetMode(raw string) (ResetMode, error) {
	switch m := ResetMode(strings.ToLower(strings.TrimSpace(raw))); m {
	case ResetModeFull, ResetModeCategory:
		return m, nil
	}
	return "", fmt.Errorf("unknown reset mode %q", raw)
}

// PreferenceResetAudit is the append-only record written before a reset.
type PreferenceResetAudit struct {
	ID           string         `json:"id" db:"id"`
	ScopeKey     string         `json:"-" db:"scope_key"`
	UserID       string         `json:"user_id,omitempty" db:"user_id"`
	CoupleID     string         `json:"couple_id,omitempty" db:"couple_id"`
	Mode         ResetMode      `json:"mode" db:"mode"`
	NarrowedKind PreferenceKind `json:"narrowed_kind,omitempty" db:"narrowed_kind"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}
