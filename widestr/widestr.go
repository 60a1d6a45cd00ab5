// Package widestr converts host strings into the bounded, NUL-terminated
// UTF-16 buffers that automation servers expect for BSTR arguments.
package widestr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// MaxPath is the buffer bound in UTF-16 code units, terminator included.
const MaxPath = 260

var (
	ErrTextTooLong = errors.New("text exceeds wide buffer bound")
	ErrInvalidText = errors.New("text is not valid UTF-8 or contains NUL")
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Buffer holds UTF-16 code units. The last element is always 0.
type Buffer []uint16

// Marshal encodes text as UTF-16LE code units followed by a NUL terminator.
// Inputs that need more than MaxPath elements fail with ErrTextTooLong and
// no buffer is returned. Embedded NULs are rejected since the receiver
// would stop reading at the first one.
func Marshal(text string) (Buffer, error) {
	if !utf8.ValidString(text) {
		return nil, ErrInvalidText
	}
	if strings.ContainsRune(text, 0) {
		return nil, fmt.Errorf("Marshal embedded nul: %w", ErrInvalidText)
	}

	b, err := utf16le.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("Marshal encode error: %w", err)
	}

	units := len(b) / 2
	if units+1 > MaxPath {
		return nil, fmt.Errorf("Marshal %d code units: %w", units+1, ErrTextTooLong)
	}

	buf := make(Buffer, units+1)
	for i := 0; i < units; i++ {
		buf[i] = binary.LittleEndian.Uint16(b[2*i:])
	}

	return buf, nil
}

// Len returns the number of code units before the terminator.
func (b Buffer) Len() int {
	for i, u := range b {
		if u == 0 {
			return i
		}
	}
	return len(b)
}

// String decodes the buffer back into a Go string.
func (b Buffer) String() string {
	n := b.Len()
	if n == 0 {
		return ""
	}

	raw := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(raw[2*i:], b[i])
	}

	out, err := utf16le.NewDecoder().Bytes(raw)
	if err != nil {
		return ""
	}

	return string(out)
}
