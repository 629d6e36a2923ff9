package estate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "kyogisho/pkg/domain-errors"
)

func newEditedRecord(t *testing.T) (*Record, *Editor) {
	t.Helper()
	rec := NewRecord()
	return rec, NewEditor(rec)
}

func TestEditor_SetDeceasedField(t *testing.T) {
	rec, ed := newEditedRecord(t)

	require.NoError(t, ed.SetDeceasedField("name", "山田 太郎"))
	require.NoError(t, ed.SetDeceasedField("deathDate", "令和5年1月1日"))
	require.NoError(t, ed.SetDeceasedField("lastAddress", "東京都千代田区1-1"))

	assert.Equal(t, "山田 太郎", rec.Deceased.Name)
	assert.Equal(t, "令和5年1月1日", rec.Deceased.DeathDate)
	assert.Equal(t, "東京都千代田区1-1", rec.Deceased.LastAddress)

	err := ed.SetDeceasedField("bloodType", "A")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestEditor_AddHeirIssuesUniqueIDs(t *testing.T) {
	rec, ed := newEditedRecord(t)

	seen := map[string]bool{}
	for range 50 {
		h := ed.AddHeir()
		assert.False(t, seen[h.ID], "id %s reissued", h.ID)
		seen[h.ID] = true
	}
	assert.Len(t, rec.Heirs, 50)
}

func TestEditor_UpdateHeir(t *testing.T) {
	rec, ed := newEditedRecord(t)
	ed.AddHeir()

	require.NoError(t, ed.UpdateHeir(0, "name", "山田 花子"))
	require.NoError(t, ed.UpdateHeir(0, "relation", "妻"))
	require.NoError(t, ed.UpdateHeir(0, "address", "東京都千代田区1-1"))
	assert.Equal(t, Heir{ID: rec.Heirs[0].ID, Name: "山田 花子", Relation: "妻", Address: "東京都千代田区1-1"}, rec.Heirs[0])

	err := ed.UpdateHeir(1, "name", "nobody")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeOutOfRange))

	err = ed.UpdateHeir(0, "phone", "03-0000-0000")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestEditor_RemoveHeirResetsAssignments(t *testing.T) {
	rec, ed := newEditedRecord(t)
	h1 := ed.AddHeir()
	h2 := ed.AddHeir()
	p1 := ed.AddProperty()
	p2 := ed.AddProperty()
	require.NoError(t, ed.SetAssignment(p1.ID, h1.ID))
	require.NoError(t, ed.SetAssignment(p2.ID, h2.ID))

	require.NoError(t, ed.RemoveHeir(0))

	require.Len(t, rec.Heirs, 1)
	assert.Equal(t, h2.ID, rec.Heirs[0].ID)
	assert.Equal(t, Unassigned, rec.Assignments[p1.ID], "assignment to removed heir must revert")
	assert.Equal(t, h2.ID, rec.Assignments[p2.ID], "unrelated assignment must survive")
	assert.NoError(t, rec.CheckInvariants())
}

func TestEditor_RemoveHeirOutOfRange(t *testing.T) {
	rec, ed := newEditedRecord(t)
	ed.AddHeir()

	for _, index := range []int{-1, 1, 99} {
		err := ed.RemoveHeir(index)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeOutOfRange))
	}
	assert.Len(t, rec.Heirs, 1, "failed removals must not mutate")
}

func TestEditor_AddPropertyRegistersAssignment(t *testing.T) {
	rec, ed := newEditedRecord(t)

	p := ed.AddProperty()
	assert.Equal(t, DefaultPropertyType, p.Type)
	assert.Equal(t, Unassigned, rec.Assignments[p.ID])
	assert.NoError(t, rec.CheckInvariants())
}

func TestEditor_RemovePropertyDropsAssignment(t *testing.T) {
	rec, ed := newEditedRecord(t)
	h := ed.AddHeir()
	p := ed.AddProperty()
	require.NoError(t, ed.SetAssignment(p.ID, h.ID))

	require.NoError(t, ed.RemoveProperty(0))

	assert.Empty(t, rec.Properties)
	_, ok := rec.Assignments[p.ID]
	assert.False(t, ok, "removed property must leave no assignment entry")
	assert.NoError(t, rec.CheckInvariants())
}

func TestEditor_SetAssignmentValidatesReferences(t *testing.T) {
	rec, ed := newEditedRecord(t)
	h := ed.AddHeir()
	p := ed.AddProperty()

	err := ed.SetAssignment("p_missing", h.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	err = ed.SetAssignment(p.ID, "h_missing")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Equal(t, Unassigned, rec.Assignments[p.ID], "failed assignment must not mutate")

	require.NoError(t, ed.SetAssignment(p.ID, h.ID))
	assert.Equal(t, h.ID, rec.Assignments[p.ID])

	require.NoError(t, ed.SetAssignment(p.ID, Unassigned))
	assert.Equal(t, Unassigned, rec.Assignments[p.ID])
}

// The assignment key set must equal the property id set after any operation
// sequence; exercise a churn of inserts, deletes, and reassignments.
func TestEditor_AssignmentKeySetInvariantUnderChurn(t *testing.T) {
	rec, ed := newEditedRecord(t)

	h1 := ed.AddHeir()
	h2 := ed.AddHeir()
	for range 5 {
		ed.AddProperty()
	}
	require.NoError(t, ed.SetAssignment(rec.Properties[0].ID, h1.ID))
	require.NoError(t, ed.SetAssignment(rec.Properties[1].ID, h2.ID))
	require.NoError(t, ed.SetAssignment(rec.Properties[2].ID, h1.ID))

	require.NoError(t, ed.RemoveProperty(1))
	require.NoError(t, ed.RemoveHeir(0))
	ed.AddProperty()
	require.NoError(t, ed.RemoveProperty(0))

	require.NoError(t, rec.CheckInvariants())
	assert.Len(t, rec.Assignments, len(rec.Properties))
	for _, p := range rec.Properties {
		_, ok := rec.Assignments[p.ID]
		assert.True(t, ok, "property %s must have an assignment entry", p.ID)
	}
}

func TestRecord_CheckInvariantsDetectsCorruption(t *testing.T) {
	rec, ed := newEditedRecord(t)
	p := ed.AddProperty()

	rec.Assignments[p.ID] = "h_ghost"
	err := rec.CheckInvariants()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	delete(rec.Assignments, p.ID)
	err = rec.CheckInvariants()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestRecord_CloneDoesNotAlias(t *testing.T) {
	rec, ed := newEditedRecord(t)
	h := ed.AddHeir()
	p := ed.AddProperty()
	require.NoError(t, ed.SetAssignment(p.ID, h.ID))

	snap := rec.Clone()
	require.NoError(t, ed.RemoveHeir(0))
	require.NoError(t, ed.RemoveProperty(0))

	assert.Len(t, snap.Heirs, 1)
	assert.Len(t, snap.Properties, 1)
	assert.Equal(t, h.ID, snap.Assignments[p.ID])
}
