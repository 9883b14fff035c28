package cart

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

type storedLine struct {
	ID       string       `json:"_id"`
	Name     string       `json:"name"`
	Price    *json.Number `json:"price"`
	Quantity *json.Number `json:"quantity"`
	Image    *string      `json:"productImage"`
}

func encodeLines(lines []Line) (string, error) {
	out := make([]storedLine, 0, len(lines))
	for _, l := range lines {
		price := json.Number(l.UnitPrice.String())
		qty := json.Number(strconv.Itoa(l.Quantity))
		sl := storedLine{ID: l.ProductID, Name: l.Name, Price: &price, Quantity: &qty}
		if l.ImageRef != "" {
			img := l.ImageRef
			sl.Image = &img
		}
		out = append(out, sl)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode cart: %w", err)
	}
	return string(b), nil
}

// decodeLines reads the persisted cart. Entries that fail to decode or have
// no id are dropped, a missing or bad price reads as 0, a missing or
// non-positive quantity as 1, and repeated ids are merged into the first
// occurrence.
func decodeLines(raw string) ([]Line, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}

	lines := make([]Line, 0, len(entries))
	index := make(map[string]int, len(entries))
	for _, e := range entries {
		var s storedLine
		if err := json.Unmarshal(e, &s); err != nil || s.ID == "" {
			continue
		}
		qty := parseQuantity(s.Quantity)
		if i, ok := index[s.ID]; ok {
			lines[i].Quantity += qty
			continue
		}
		line := Line{
			ProductID: s.ID,
			Name:      s.Name,
			UnitPrice: parsePrice(s.Price),
			Quantity:  qty,
		}
		if s.Image != nil {
			line.ImageRef = *s.Image
		}
		index[s.ID] = len(lines)
		lines = append(lines, line)
	}
	return lines, nil
}

// parseQuantity accepts whole numbers written as 2, 2.0 or "2".
func parseQuantity(n *json.Number) int {
	if n == nil {
		return 1
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil || d.LessThan(decimal.NewFromInt(1)) {
		return 1
	}
	return int(d.IntPart())
}

func parsePrice(n *json.Number) decimal.Decimal {
	if n == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}
