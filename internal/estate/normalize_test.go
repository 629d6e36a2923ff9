package estate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Normalize must be total: whatever the gateway returns, the output satisfies
// the record invariants.
func TestNormalize_Totality(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty payload", ""},
		{"null payload", `null`},
		{"not json at all", `the model apologized instead of answering`},
		{"wrong top-level type", `[1, 2, 3]`},
		{"empty object", `{}`},
		{"deceased is a string", `{"deceased": "山田 太郎"}`},
		{"heirs is an object", `{"heirs": {"id": "h1"}}`},
		{"properties is a number", `{"properties": 42}`},
		{"null collections", `{"deceased": null, "heirs": null, "properties": null}`},
		{"mixed junk elements", `{"heirs": [null, 1, "x", {"name": "花子"}], "properties": [true, {"type": "不動産"}]}`},
		{"wrongly typed fields", `{"deceased": {"name": 123, "deathDate": true}, "heirs": [{"name": {"a": 1}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Normalize([]byte(tt.raw))
			require.NotNil(t, rec)
			assert.NotNil(t, rec.Heirs)
			assert.NotNil(t, rec.Properties)
			assert.NotNil(t, rec.Assignments)
			assert.NoError(t, rec.CheckInvariants())
		})
	}
}

func TestNormalize_WellFormedPayload(t *testing.T) {
	raw := `{
		"deceased": {"name": "山田 太郎", "deathDate": "令和5年1月1日", "lastAddress": "東京都千代田区1-1"},
		"heirs": [
			{"id": "h1", "name": "山田 花子", "relation": "妻", "address": "東京都千代田区1-1"},
			{"id": "h1", "name": "山田 一郎", "relation": "長男", "address": "神奈川県横浜市2-2"}
		],
		"properties": [
			{"id": "p1", "type": "預貯金", "details": "○○銀行 普通 1234567", "value": "10,000,000円"},
			{"id": "p2", "type": "不動産", "details": "東京都千代田区の宅地", "value": "35,000,000円"}
		]
	}`

	rec := Normalize([]byte(raw))

	assert.Equal(t, "山田 太郎", rec.Deceased.Name)
	assert.Equal(t, "令和5年1月1日", rec.Deceased.DeathDate)
	assert.Equal(t, "東京都千代田区1-1", rec.Deceased.LastAddress)

	require.Len(t, rec.Heirs, 2)
	assert.Equal(t, "山田 花子", rec.Heirs[0].Name)
	assert.Equal(t, "妻", rec.Heirs[0].Relation)
	assert.Equal(t, "山田 一郎", rec.Heirs[1].Name)

	// Gateway ids (duplicated "h1" above) are replaced with fresh unique ones.
	assert.NotEqual(t, rec.Heirs[0].ID, rec.Heirs[1].ID)
	assert.NotEqual(t, "h1", rec.Heirs[0].ID)

	require.Len(t, rec.Properties, 2)
	assert.Equal(t, "預貯金", rec.Properties[0].Type)
	assert.Equal(t, "35,000,000円", rec.Properties[1].Value)

	// Every property starts unassigned.
	require.Len(t, rec.Assignments, 2)
	for _, p := range rec.Properties {
		assert.Equal(t, Unassigned, rec.Assignments[p.ID])
	}
}

func TestNormalize_CoercesNumericValues(t *testing.T) {
	rec := Normalize([]byte(`{"properties": [{"type": "株式", "value": 2500000}]}`))
	require.Len(t, rec.Properties, 1)
	assert.Equal(t, "2500000", rec.Properties[0].Value)
}

func TestNormalize_PreservesSheetOrder(t *testing.T) {
	rec := Normalize([]byte(`{"heirs": [{"name": "一"}, {"name": "二"}, {"name": "三"}]}`))
	require.Len(t, rec.Heirs, 3)
	assert.Equal(t, "一", rec.Heirs[0].Name)
	assert.Equal(t, "二", rec.Heirs[1].Name)
	assert.Equal(t, "三", rec.Heirs[2].Name)
}
