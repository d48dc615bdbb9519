package item

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// Category classifies an item. Values outside of Electronics..Other
// can be loaded from disk and are kept as-is.
type Category int32

const (
	Electronics Category = iota
	Clothing
	Food
	Other
)

// CategoryFromInt maps out-of-range values to Other
func CategoryFromInt(n int) Category {
	if n < int(Electronics) || n > int(Other) {
		return Other
	}
	return Category(n)
}

func (c Category) String() string {
	switch c {
	case Electronics:
		return "Electronics"
	case Clothing:
		return "Clothing"
	case Food:
		return "Food"
	case Other:
		return "Other"
	}
	return "Unknown"
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

const (
	// MaxNameLen is the longest name that fits in a record.
	// one byte of the name field is reserved for the terminating NUL
	MaxNameLen = 50

	nameFieldSize = MaxNameLen + 1

	offID       = 0
	offName     = 4
	offQuantity = 56 // name ends at 55, 1 byte of padding
	offPrice    = 60
	offCategory = 64

	// RecordSize is the size of a single item on disk
	RecordSize = 68
)

var (
	// ErrInvalid is matched (with errors.Is) by every *ValidationError
	ErrInvalid = errors.New("invalid item")
)

// ValidationError describes why an item was rejected
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// Item is a single inventory record
type Item struct {
	ID       int32    `json:"id"`
	Name     string   `json:"name"`
	Quantity int32    `json:"quantity"`
	Price    float32  `json:"price"`
	Category Category `json:"category"`
}

// TrimName removes line-ending characters left over from reading a line
func TrimName(s string) string {
	return strings.TrimRight(s, "\r\n")
}

// Validate checks the fields of an item that is about to be added
func (it *Item) Validate() error {
	if it.ID <= 0 {
		return &ValidationError{Field: "id", Msg: "must be a positive integer"}
	}
	if it.Name == "" {
		return &ValidationError{Field: "name", Msg: "cannot be empty"}
	}
	if len(it.Name) > MaxNameLen {
		return &ValidationError{Field: "name", Msg: fmt.Sprintf("longer than %d bytes", MaxNameLen)}
	}
	if strings.IndexByte(it.Name, 0) >= 0 {
		return &ValidationError{Field: "name", Msg: "cannot contain NUL bytes"}
	}
	if it.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Msg: "must be a positive integer"}
	}
	// written this way so that NaN is rejected
	if !(it.Price > 0) || math.IsInf(float64(it.Price), 1) {
		return &ValidationError{Field: "price", Msg: "must be a positive value"}
	}
	return nil
}

// MarshalRecord appends the fixed-size binary form of it to dst
// Names longer than MaxNameLen are cut, Validate() rejects those before they
// get here.
func (it *Item) MarshalRecord(dst []byte) []byte {
	var rec [RecordSize]byte
	ne := binary.NativeEndian
	ne.PutUint32(rec[offID:], uint32(it.ID))
	name := it.Name
	if len(name) > MaxNameLen {
		name = name[:MaxNameLen]
	}
	copy(rec[offName:offName+MaxNameLen], name)
	ne.PutUint32(rec[offQuantity:], uint32(it.Quantity))
	ne.PutUint32(rec[offPrice:], math.Float32bits(it.Price))
	ne.PutUint32(rec[offCategory:], uint32(it.Category))
	return append(dst, rec[:]...)
}

// UnmarshalRecord decodes a single record. d must be exactly RecordSize bytes
func UnmarshalRecord(d []byte, it *Item) error {
	if len(d) != RecordSize {
		return fmt.Errorf("record must be %d bytes, got %d", RecordSize, len(d))
	}
	ne := binary.NativeEndian
	it.ID = int32(ne.Uint32(d[offID:]))
	name := d[offName : offName+nameFieldSize]
	if idx := bytes.IndexByte(name, 0); idx >= 0 {
		name = name[:idx]
	}
	it.Name = string(name)
	it.Quantity = int32(ne.Uint32(d[offQuantity:]))
	it.Price = math.Float32frombits(ne.Uint32(d[offPrice:]))
	it.Category = Category(int32(ne.Uint32(d[offCategory:])))
	return nil
}

// Format writes a human-readable, multi-line description of it
func (it *Item) Format(w io.Writer) {
	fmt.Fprintf(w, "ID: %d\n", it.ID)
	fmt.Fprintf(w, "Name: %s\n", it.Name)
	fmt.Fprintf(w, "Quantity: %d\n", it.Quantity)
	fmt.Fprintf(w, "Price: %.2f\n", it.Price)
	fmt.Fprintf(w, "Category: %s\n", it.Category)
}
