package estate

import (
	dErrors "kyogisho/pkg/domain-errors"
)

// Editor applies mutations to a single record. Every operation validates its
// inputs before touching state, so a returned error means the record is exactly
// as it was. The caller (the session service) serializes access; Editor itself
// holds no lock.
type Editor struct {
	rec *Record
}

// NewEditor wraps the given record for mutation.
func NewEditor(rec *Record) *Editor {
	return &Editor{rec: rec}
}

// SetDeceasedField overwrites one attribute of the deceased.
func (e *Editor) SetDeceasedField(field, value string) error {
	switch field {
	case "name":
		e.rec.Deceased.Name = value
	case "deathDate":
		e.rec.Deceased.DeathDate = value
	case "lastAddress":
		e.rec.Deceased.LastAddress = value
	default:
		return dErrors.Newf(dErrors.CodeValidation, "unknown deceased field %q", field)
	}
	return nil
}

// AddHeir appends a heir with a fresh id and empty fields, and returns it.
func (e *Editor) AddHeir() Heir {
	h := Heir{ID: newHeirID()}
	e.rec.Heirs = append(e.rec.Heirs, h)
	return h
}

// UpdateHeir overwrites one field of the heir at index.
func (e *Editor) UpdateHeir(index int, field, value string) error {
	if index < 0 || index >= len(e.rec.Heirs) {
		return dErrors.Newf(dErrors.CodeOutOfRange, "heir index %d out of range", index)
	}
	switch field {
	case "name":
		e.rec.Heirs[index].Name = value
	case "relation":
		e.rec.Heirs[index].Relation = value
	case "address":
		e.rec.Heirs[index].Address = value
	default:
		return dErrors.Newf(dErrors.CodeValidation, "unknown heir field %q", field)
	}
	return nil
}

// RemoveHeir deletes the heir at index. Assignments pointing at the removed heir
// revert to unassigned in the same operation.
func (e *Editor) RemoveHeir(index int) error {
	if index < 0 || index >= len(e.rec.Heirs) {
		return dErrors.Newf(dErrors.CodeOutOfRange, "heir index %d out of range", index)
	}
	removed := e.rec.Heirs[index]
	e.rec.Heirs = append(e.rec.Heirs[:index], e.rec.Heirs[index+1:]...)
	for propID, heirID := range e.rec.Assignments {
		if heirID == removed.ID {
			e.rec.Assignments[propID] = Unassigned
		}
	}
	return nil
}

// AddProperty appends a property with a fresh id and the default type, registers
// its assignment entry as unassigned, and returns it.
func (e *Editor) AddProperty() Property {
	p := Property{ID: newPropertyID(), Type: DefaultPropertyType}
	e.rec.Properties = append(e.rec.Properties, p)
	e.rec.Assignments[p.ID] = Unassigned
	return p
}

// UpdateProperty overwrites one field of the property at index.
func (e *Editor) UpdateProperty(index int, field, value string) error {
	if index < 0 || index >= len(e.rec.Properties) {
		return dErrors.Newf(dErrors.CodeOutOfRange, "property index %d out of range", index)
	}
	switch field {
	case "type":
		e.rec.Properties[index].Type = value
	case "details":
		e.rec.Properties[index].Details = value
	case "value":
		e.rec.Properties[index].Value = value
	default:
		return dErrors.Newf(dErrors.CodeValidation, "unknown property field %q", field)
	}
	return nil
}

// RemoveProperty deletes the property at index together with its assignment
// entry, keeping the assignment key set equal to the property id set.
func (e *Editor) RemoveProperty(index int) error {
	if index < 0 || index >= len(e.rec.Properties) {
		return dErrors.Newf(dErrors.CodeOutOfRange, "property index %d out of range", index)
	}
	removed := e.rec.Properties[index]
	e.rec.Properties = append(e.rec.Properties[:index], e.rec.Properties[index+1:]...)
	delete(e.rec.Assignments, removed.ID)
	return nil
}

// SetAssignment records that the property goes to the given heir, or to nobody
// when heirID is the Unassigned sentinel. Both sides must exist in the record.
func (e *Editor) SetAssignment(propertyID, heirID string) error {
	if _, ok := e.rec.Assignments[propertyID]; !ok {
		return dErrors.Newf(dErrors.CodeValidation, "unknown property id %q", propertyID)
	}
	if heirID != Unassigned {
		if _, ok := e.rec.HeirByID(heirID); !ok {
			return dErrors.Newf(dErrors.CodeValidation, "unknown heir id %q", heirID)
		}
	}
	e.rec.Assignments[propertyID] = heirID
	return nil
}
