// Package siser frames blocks of data in an append-only, human-readable
// format. Each block is preceded by a header line:
//
//	--- ${size} ${unix_ms} ${name}\n
//
// The name is optional. Data is followed by '\n' if it doesn't end with one.
package siser

import (
	"bytes"
	"strconv"
	"time"
)

var hdrPrefix = []byte("--- ")

// MarshalLine returns d framed with a header. wb is re-used if not nil.
// Zero t means time.Now().
func MarshalLine(name string, t time.Time, d []byte, wb *bytes.Buffer) []byte {
	if wb == nil {
		wb = &bytes.Buffer{}
	} else {
		wb.Reset()
	}
	if t.IsZero() {
		t = time.Now()
	}
	wb.Grow(len(hdrPrefix) + len(name) + len(d) + 32)

	wb.Write(hdrPrefix)
	n := len(d)
	wb.WriteString(strconv.Itoa(n))
	wb.WriteByte(' ')
	wb.WriteString(strconv.FormatInt(TimeToUnixMillisecond(t), 10))
	if name != "" {
		wb.WriteByte(' ')
		wb.WriteString(name)
	}
	wb.WriteByte('\n')
	if n > 0 {
		wb.Write(d)
		if d[n-1] != '\n' {
			wb.WriteByte('\n')
		}
	}
	return wb.Bytes()
}

// TimeToUnixMillisecond converts t into Unix epoch time in milliseconds
func TimeToUnixMillisecond(t time.Time) int64 {
	return t.UnixNano() / 1e6
}

// TimeFromUnixMillisecond is the inverse of TimeToUnixMillisecond
func TimeFromUnixMillisecond(unixMs int64) time.Time {
	return time.Unix(0, unixMs*1e6)
}
