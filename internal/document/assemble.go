// Package document renders a well-formed estate record into the clause model of
// a 遺産分割協議書. Assembly is a pure transform: same record and clock, same
// document.
package document

import (
	"fmt"
	"time"

	"kyogisho/internal/estate"
)

// Title of the agreement as printed at the top of the page.
const Title = "遺産分割協議書"

// FallbackRecipient labels the catch-all clause when the record has no heirs.
const FallbackRecipient = "代表者"

// noAssignmentNotice replaces the clause body while no property has been
// assigned; the preview stays renderable but visibly incomplete.
const noAssignmentNotice = "※ 財産の分割指定がされていません。財産を誰が相続するか指定してください。"

// Item is one property line within a clause.
type Item struct {
	Type    string `json:"type"`
	Details string `json:"details"`
	Value   string `json:"value"`
}

// Clause is one numbered paragraph of the agreement body.
type Clause struct {
	Number  int    `json:"number"`
	Heading string `json:"heading"`
	Body    string `json:"body"`
	Items   []Item `json:"items,omitempty"`
}

// Signature is one signature block. Every heir gets one, assigned or not.
type Signature struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Stamp   string `json:"stamp"`
}

// Document is the assembled agreement, ready for the print surface.
type Document struct {
	Title      string      `json:"title"`
	Preamble   string      `json:"preamble"`
	Clauses    []Clause    `json:"clauses"`
	Notice     string      `json:"notice,omitempty"`
	CatchAll   Clause      `json:"catchAll"`
	Closing    string      `json:"closing"`
	Date       string      `json:"date"`
	Signatures []Signature `json:"signatures"`
}

// Assemble renders the record as of the given instant. The caller passes the
// request-scoped clock so one render sees exactly one date.
func Assemble(rec *estate.Record, now time.Time) Document {
	doc := Document{
		Title: Title,
		Preamble: fmt.Sprintf(
			"被相続人 %s（%s死亡、最後の住所：%s）の遺産について、共同相続人全員で協議をした結果、以下の通り分割することに合意した。",
			rec.Deceased.Name, rec.Deceased.DeathDate, rec.Deceased.LastAddress),
		Clauses: []Clause{},
		Date:    FormatWareki(now),
	}

	// One numbered clause per heir with at least one assigned property, in heir
	// order with property order preserved. Heirs with empty buckets are invisible
	// in the body; they still sign below.
	number := 0
	for _, h := range rec.Heirs {
		var items []Item
		for _, p := range rec.Properties {
			if rec.Assignments[p.ID] == h.ID {
				items = append(items, Item{Type: p.Type, Details: p.Details, Value: p.Value})
			}
		}
		if len(items) == 0 {
			continue
		}
		number++
		doc.Clauses = append(doc.Clauses, Clause{
			Number:  number,
			Heading: fmt.Sprintf("第%d条（%sの取得分）", number, h.Name),
			Body:    fmt.Sprintf("相続人 %s は、以下の遺産を取得する。", h.Name),
			Items:   items,
		})
	}
	if number == 0 {
		doc.Notice = noAssignmentNotice
	}

	// The catch-all clause names the first heir in sequence as default recipient
	// of later-discovered property. A structural default, not a computed choice.
	recipient := FallbackRecipient
	if len(rec.Heirs) > 0 {
		recipient = rec.Heirs[0].Name
	}
	doc.CatchAll = Clause{
		Number:  number + 1,
		Heading: fmt.Sprintf("第%d条（事後の発見）", number+1),
		Body:    fmt.Sprintf("本協議書に記載のない遺産が後日判明した場合には、相続人 %s がこれを取得する。", recipient),
	}

	doc.Closing = fmt.Sprintf(
		"以上の協議の成立を証するため、本協議書を%d通作成し、各相続人が署名（記名）押印の上、各自１通を保有する。",
		len(rec.Heirs))

	doc.Signatures = make([]Signature, 0, len(rec.Heirs))
	for _, h := range rec.Heirs {
		doc.Signatures = append(doc.Signatures, Signature{
			Address: h.Address,
			Name:    h.Name,
			Stamp:   "実印",
		})
	}

	return doc
}
