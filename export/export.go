// Package export writes items in human and machine readable formats
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/kjk/inventory/item"
	"github.com/tidwall/pretty"
	"github.com/toon-format/toon-go"
)

const (
	FormatJSON = "json"
	FormatTOON = "toon"
)

// Formats lists supported formats
var Formats = []string{FormatJSON, FormatTOON}

// Ext returns a file extension for format
func Ext(format string) string {
	return "." + strings.ToLower(format)
}

// JSON returns items as an indented JSON array.
// Category is encoded by name.
func JSON(items []item.Item) ([]byte, error) {
	if items == nil {
		items = []item.Item{}
	}
	d, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return pretty.Pretty(d), nil
}

func toMaps(items []item.Item) []map[string]any {
	res := make([]map[string]any, 0, len(items))
	for _, it := range items {
		m := map[string]any{
			"id":       it.ID,
			"name":     it.Name,
			"quantity": it.Quantity,
			"price":    it.Price,
			"category": it.Category.String(),
		}
		res = append(res, m)
	}
	return res
}

// TOON returns items in toon format
func TOON(items []item.Item) ([]byte, error) {
	v := map[string]any{
		"items": toMaps(items),
	}
	return toon.Marshal(v)
}

// Marshal encodes items in a given format
func Marshal(items []item.Item, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		return JSON(items)
	case FormatTOON:
		return TOON(items)
	}
	return nil, fmt.Errorf("export: unsupported format '%s', must be one of %s", format, strings.Join(Formats, ", "))
}

// Write encodes items in a given format and writes them to w
func Write(w io.Writer, items []item.Item, format string) error {
	d, err := Marshal(items, format)
	if err != nil {
		return err
	}
	_, err = w.Write(d)
	return err
}
