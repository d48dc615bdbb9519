package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/kjk/inventory/item"
)

var testItems = []item.Item{
	{ID: 1, Name: "Laptop", Quantity: 3, Price: 999.5, Category: item.Electronics},
	{ID: 2, Name: "Apple", Quantity: 100, Price: 0.25, Category: item.Food},
}

func TestJSON(t *testing.T) {
	d, err := JSON(testItems)
	assert.NoError(t, err)
	s := string(d)
	assert.True(t, strings.Contains(s, "\n"), "not indented: %s", s)
	assert.True(t, strings.Contains(s, `"Electronics"`), "%s", s)

	var got []map[string]any
	assert.NoError(t, json.Unmarshal(d, &got))
	assert.Equal(t, 2, len(got))
	assert.Equal(t, "Apple", got[1]["name"])
	assert.Equal(t, float64(100), got[1]["quantity"])
	assert.Equal(t, "Food", got[1]["category"])
}

func TestJSONEmpty(t *testing.T) {
	d, err := JSON(nil)
	assert.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(string(d)))
}

func TestTOON(t *testing.T) {
	d, err := TOON(testItems)
	assert.NoError(t, err)
	s := string(d)
	for _, exp := range []string{"items", "Laptop", "Apple", "Electronics", "Food"} {
		assert.True(t, strings.Contains(s, exp), "missing %s in %s", exp, s)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, Write(&buf, testItems, "JSON"))
	assert.True(t, strings.Contains(buf.String(), "Laptop"))

	buf.Reset()
	err := Write(&buf, testItems, "xml")
	assert.Error(t, err)
	assert.Equal(t, 0, buf.Len())
	assert.Equal(t, ".toon", Ext(FormatTOON))
}
