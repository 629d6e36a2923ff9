package estate

import (
	"encoding/json"
	"strconv"
)

// Normalize builds a well-formed Record from the extraction gateway's raw JSON
// output. The gateway is best-effort: fields may be missing, null, or carry the
// wrong type, and the payload may not be JSON at all. Normalize never fails;
// anything malformed degrades to empty values.
//
// Gateway-provided ids are discarded and fresh ones issued — model output cannot
// be trusted to keep ids unique, and nothing downstream references the originals
// because assignments always start out unassigned.
func Normalize(raw []byte) *Record {
	rec := NewRecord()

	var doc map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &doc)
	}

	if d, ok := doc["deceased"].(map[string]any); ok {
		rec.Deceased = Deceased{
			Name:        asString(d["name"]),
			DeathDate:   asString(d["deathDate"]),
			LastAddress: asString(d["lastAddress"]),
		}
	}

	if heirs, ok := doc["heirs"].([]any); ok {
		for _, entry := range heirs {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			rec.Heirs = append(rec.Heirs, Heir{
				ID:       newHeirID(),
				Name:     asString(m["name"]),
				Relation: asString(m["relation"]),
				Address:  asString(m["address"]),
			})
		}
	}

	if props, ok := doc["properties"].([]any); ok {
		for _, entry := range props {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			p := Property{
				ID:      newPropertyID(),
				Type:    asString(m["type"]),
				Details: asString(m["details"]),
				Value:   asString(m["value"]),
			}
			rec.Properties = append(rec.Properties, p)
			rec.Assignments[p.ID] = Unassigned
		}
	}

	return rec
}

// asString coerces a decoded JSON value to a string field. Numbers are rendered
// (models occasionally emit bare amounts); everything else degrades to "".
func asString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}
