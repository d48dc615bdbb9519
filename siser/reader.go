package siser

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"
)

// maxDataSize is the largest block ReadNextData accepts.
// A header claiming more is treated as corrupt.
const maxDataSize = 16 * 1024 * 1024

// Reader reads blocks framed by MarshalLine
type Reader struct {
	r *bufio.Reader

	// Data, Name and Timestamp are valid after ReadNextData
	// and over-written by the next call
	Data      []byte
	Name      string
	Timestamp time.Time

	// offset of the current and next block
	CurrRecordPos int64
	NextRecordPos int64

	err  error
	done bool
}

func NewReader(r *bufio.Reader) *Reader {
	return &Reader{
		r: r,
	}
}

// Done returns true if there's nothing more to read
func (r *Reader) Done() bool {
	return r.err != nil || r.done
}

// Err returns a read or format error. io.EOF is not an error.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) fail(hdr []byte) bool {
	r.err = fmt.Errorf("siser: unexpected header '%s' at offset %d", bytes.TrimSpace(hdr), r.CurrRecordPos)
	return false
}

// ReadNextData reads the next block. Returns false at the end of data or
// on error, check Err() to tell them apart.
func (r *Reader) ReadNextData() bool {
	if r.Done() {
		return false
	}
	r.Name = ""
	r.CurrRecordPos = r.NextRecordPos

	hdr, err := r.r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF {
			if len(hdr) > 0 {
				// partially written header
				return r.fail(hdr)
			}
			r.done = true
		} else {
			r.err = err
		}
		return false
	}
	recSize := len(hdr)

	rest, ok := bytes.CutPrefix(hdr[:len(hdr)-1], hdrPrefix)
	if !ok {
		return r.fail(hdr)
	}
	sizeStr, rest, _ := bytes.Cut(rest, []byte{' '})
	timeStr, name, _ := bytes.Cut(rest, []byte{' '})

	size, err := strconv.ParseInt(string(sizeStr), 10, 64)
	if err != nil || size < 0 || size > maxDataSize {
		return r.fail(hdr)
	}
	timeMs, err := strconv.ParseInt(string(timeStr), 10, 64)
	if err != nil {
		return r.fail(hdr)
	}
	r.Timestamp = TimeFromUnixMillisecond(timeMs)
	r.Name = string(name)

	if cap(r.Data) > 1024*1024 {
		r.Data = nil
	}
	if size > int64(cap(r.Data)) {
		r.Data = make([]byte, size)
	} else {
		r.Data = r.Data[:size]
	}
	n, err := io.ReadFull(r.r, r.Data)
	if err != nil {
		r.err = fmt.Errorf("siser: reading %d bytes at offset %d: %w", size, r.CurrRecordPos, err)
		return false
	}
	recSize += n

	if n > 0 && r.Data[n-1] != '\n' {
		if _, err = r.r.Discard(1); err != nil {
			r.err = err
			return false
		}
		recSize++
	}
	r.NextRecordPos += int64(recSize)
	return true
}
