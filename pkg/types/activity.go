package types

import "time"

// Scores maps a dimension key to a score in [MinScore, MaxScore]. A Scores
// value may be partial; a missing key means "not scored", which the matching
// engine treats as NeutralScore and never as zero.
type Scores map[string]float64

// Get returns the raw score for key and whether it was present.
func (s Scores) Get(key string) (float64, bool) {
	v, ok := s[key]
	return v, ok
}

// Clone returns an independent copy of s. A nil receiver yields a nil map.
func (s Scores) Clone() Scores {
	if s == nil {
		return nil
	}
	out := make(Scores, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Activity is a scored entity in the catalog.
type Activity struct {
	// ID is a storage surrogate. The matching engine identifies activities by
	// Name and never reads ID.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Name is the unique display identity.
	Name string `json:"name" yaml:"name"`

	// Scores holds the raw catalog value per dimension key.
	Scores Scores `json:"scores" yaml:"scores"`

	// IsCustom is true for activities authored during a session.
	IsCustom bool `json:"is_custom" yaml:"is_custom,omitempty"`

	// CreatedAt is informational; matching ignores it.
	CreatedAt time.Time `json:"created_at" yaml:"created_at,omitempty"`

	// UpdatedAt is the last time the stored record changed.
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at,omitempty"`
}

// Overrides is the serialized Override Layer: activity name -> dimension key
// -> overriding value.
type Overrides map[string]map[string]float64

// Clone returns a deep copy of o.
func (o Overrides) Clone() Overrides {
	out := make(Overrides, len(o))
	for name, dims := range o {
		inner := make(map[string]float64, len(dims))
		for k, v := range dims {
			inner[k] = v
		}
		out[name] = inner
	}
	return out
}

// TargetVector maps a dimension key to the value a user wants. A value of
// exactly zero means the dimension is inactive; only strictly positive values
// take part in matching.
type TargetVector map[string]float64

// IsActive reports whether key carries a strictly positive target.
func (t TargetVector) IsActive(key string) bool {
	return t[key] > 0
}

// Clone returns an independent copy of t.
func (t TargetVector) Clone() TargetVector {
	out := make(TargetVector, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
