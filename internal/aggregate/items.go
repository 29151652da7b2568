package aggregate

import (
	"bytes"
	"encoding/json"

	"moodlog/internal/models"
)

// RawItem is one stored window item after inspection: either a valid item or
// an unparseable one that callers must drop.
type RawItem struct {
	Item  models.AggregateItem
	Valid bool
}

// Parse inspects a stored item. Objects are accepted directly; a JSON string
// holding an encoded object is unwrapped once. Anything else is unparseable.
func Parse(raw json.RawMessage) RawItem {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return RawItem{}
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return RawItem{}
		}
		raw = bytes.TrimSpace([]byte(inner))
	}
	if len(raw) == 0 || raw[0] != '{' {
		return RawItem{}
	}
	var it models.AggregateItem
	if err := json.Unmarshal(raw, &it); err != nil {
		return RawItem{}
	}
	return RawItem{Item: it, Valid: true}
}

// Normalize keeps the valid items in stored order.
func Normalize(raws []json.RawMessage) []models.AggregateItem {
	items := make([]models.AggregateItem, 0, len(raws))
	for _, r := range raws {
		if p := Parse(r); p.Valid {
			items = append(items, p.Item)
		}
	}
	return items
}

func Encode(items []models.AggregateItem) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(items))
	for _, it := range items {
		b, err := json.Marshal(it)
		if err != nil {
			continue
		}
		out = append(out, b)
	}
	return out
}
