// Package estate owns the in-memory case record assembled during a session:
// the deceased, the heirs, the property inventory, and the map deciding which
// heir receives which property.
package estate

import (
	"maps"
	"slices"

	"github.com/google/uuid"

	dErrors "kyogisho/pkg/domain-errors"
)

// Unassigned is the sentinel assignment value for a property no heir has been
// chosen for yet.
const Unassigned = "unassigned"

// DefaultPropertyType seeds newly added properties; 預貯金 (deposits) is the most
// common entry on an inventory sheet.
const DefaultPropertyType = "預貯金"

// Deceased holds the 被相続人 details. All fields are free text; the death date in
// particular is kept as the locale-specific string the user typed (例: 令和5年1月1日).
type Deceased struct {
	Name        string `json:"name"`
	DeathDate   string `json:"deathDate"`
	LastAddress string `json:"lastAddress"`
}

// Heir is one 相続人. Order within Record.Heirs is display and signature order.
type Heir struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Relation string `json:"relation"`
	Address  string `json:"address"`
}

// Property is one inventory entry. Value is a unit-suffixed free-text amount
// (例: 10,000,000円), never parsed as a number.
type Property struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Details string `json:"details"`
	Value   string `json:"value"`
}

// Record is the complete case file for one session.
//
// Invariant: the key set of Assignments always equals the id set of Properties,
// and every non-sentinel assignment value references a live heir. Editor
// operations maintain this transactionally.
type Record struct {
	Deceased    Deceased          `json:"deceased"`
	Heirs       []Heir            `json:"heirs"`
	Properties  []Property        `json:"properties"`
	Assignments map[string]string `json:"assignments"`
}

// NewRecord returns an empty, well-formed record.
func NewRecord() *Record {
	return &Record{
		Heirs:       []Heir{},
		Properties:  []Property{},
		Assignments: map[string]string{},
	}
}

// Clone returns a deep copy. Snapshots handed to the transport layer must not
// alias the live record.
func (r *Record) Clone() *Record {
	return &Record{
		Deceased:    r.Deceased,
		Heirs:       slices.Clone(r.Heirs),
		Properties:  slices.Clone(r.Properties),
		Assignments: maps.Clone(r.Assignments),
	}
}

// HeirByID returns the heir with the given id, if present.
func (r *Record) HeirByID(id string) (Heir, bool) {
	for _, h := range r.Heirs {
		if h.ID == id {
			return h, true
		}
	}
	return Heir{}, false
}

// CheckInvariants verifies the assignment map against the current heirs and
// properties. Editor operations keep the record consistent, so a failure here
// means corrupted state; callers should surface it rather than render from it.
func (r *Record) CheckInvariants() error {
	if len(r.Assignments) != len(r.Properties) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"assignment map has %d entries for %d properties", len(r.Assignments), len(r.Properties))
	}
	for _, p := range r.Properties {
		heirID, ok := r.Assignments[p.ID]
		if !ok {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "property %s has no assignment entry", p.ID)
		}
		if heirID == Unassigned {
			continue
		}
		if _, ok := r.HeirByID(heirID); !ok {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"property %s assigned to unknown heir %s", p.ID, heirID)
		}
	}
	return nil
}

// Ids are prefixed per kind for log readability; the UUID body keeps them
// collision-free for the life of the session, so removed ids are never reissued.
func newHeirID() string     { return "h_" + uuid.NewString() }
func newPropertyID() string { return "p_" + uuid.NewString() }
