// Package argbank holds the fixed table of pre-typed call arguments shared
// by every remote invocation. Slot indices are fixed by convention and the
// constant slots never change after Initialize.
package argbank

import (
	"errors"
	"fmt"

	"stereoctl.app/stereoctl/widestr"
)

// Kind tags the value carried by a Slot.
type Kind int

const (
	Empty Kind = iota
	String
	UnsignedInt32
	Bool
	Double
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case String:
		return "bstr"
	case UnsignedInt32:
		return "ui4"
	case Bool:
		return "bool"
	case Double:
		return "r8"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// SetPlaybackState enumeration understood by the player.
const (
	StatePlay        uint32 = 0
	StatePause       uint32 = 1
	StateStop        uint32 = 2
	StateFastForward uint32 = 3
	StateRewind      uint32 = 4
)

// Slot indices.
const (
	IndexPath = iota
	IndexPause
	IndexStop
	IndexPlay
	IndexFastForward
	IndexRewind
	IndexTrue
	IndexFalse
	IndexEmpty
	IndexZoom
	IndexLeftFile
	IndexRightFile
	IndexAudioFile
	IndexAudioMode
	IndexScratch

	Size
)

// DefaultZoom is the zoom percentage the player starts with.
const DefaultZoom = 100.0

var (
	ErrAlreadyInitialized = errors.New("argument bank already initialized")
	ErrNotInitialized     = errors.New("argument bank not initialized")
	ErrSlotIndex          = errors.New("argument slot index out of range")
	ErrSlotKind           = errors.New("argument slot has the wrong kind")
)

// Slot is a tagged argument value.
type Slot struct {
	Kind Kind
	Str  widestr.Buffer
	U32  uint32
	Bool bool
	F64  float64
}

// Value returns the slot payload as a plain Go value: string, uint32, bool,
// float64 or nil for Empty.
func (s Slot) Value() interface{} {
	switch s.Kind {
	case String:
		return s.Str.String()
	case UnsignedInt32:
		return s.U32
	case Bool:
		return s.Bool
	case Double:
		return s.F64
	}
	return nil
}

func (s Slot) String() string {
	return fmt.Sprintf("%s(%v)", s.Kind, s.Value())
}

// Bank is the ordered argument table. The zero value is unusable until
// Initialize is called.
type Bank struct {
	slots       [Size]Slot
	initialized bool
}

// New returns an uninitialized bank.
func New() *Bank {
	return &Bank{}
}

// Initialize populates the constant slots. It may only be called once.
func (b *Bank) Initialize() error {
	if b.initialized {
		return ErrAlreadyInitialized
	}

	b.slots[IndexPath] = Slot{Kind: String}
	b.slots[IndexPause] = Slot{Kind: UnsignedInt32, U32: StatePause}
	b.slots[IndexStop] = Slot{Kind: UnsignedInt32, U32: StateStop}
	b.slots[IndexPlay] = Slot{Kind: UnsignedInt32, U32: StatePlay}
	b.slots[IndexFastForward] = Slot{Kind: UnsignedInt32, U32: StateFastForward}
	b.slots[IndexRewind] = Slot{Kind: UnsignedInt32, U32: StateRewind}
	b.slots[IndexTrue] = Slot{Kind: Bool, Bool: true}
	b.slots[IndexFalse] = Slot{Kind: Bool, Bool: false}
	b.slots[IndexEmpty] = Slot{Kind: Empty}
	b.slots[IndexZoom] = Slot{Kind: Double, F64: DefaultZoom}
	b.slots[IndexLeftFile] = Slot{Kind: String}
	b.slots[IndexRightFile] = Slot{Kind: String}
	b.slots[IndexAudioFile] = Slot{Kind: Empty}
	b.slots[IndexAudioMode] = Slot{Kind: UnsignedInt32}
	b.slots[IndexScratch] = Slot{Kind: Empty}

	b.initialized = true
	return nil
}

// Initialized reports whether Initialize has run.
func (b *Bank) Initialized() bool {
	return b.initialized
}

// Slot returns a copy of the slot at index i.
func (b *Bank) Slot(i int) (Slot, error) {
	if i < 0 || i >= Size {
		return Slot{}, fmt.Errorf("Slot %d: %w", i, ErrSlotIndex)
	}
	return b.slots[i], nil
}

// SetString stores buf in the String slot i, dropping whatever buffer the
// slot held before.
func (b *Bank) SetString(i int, buf widestr.Buffer) error {
	if err := b.checkString(i); err != nil {
		return err
	}
	b.slots[i].Str = buf
	return nil
}

// Take hands the buffer held by String slot i over to the caller and
// leaves the slot empty.
func (b *Bank) Take(i int) (widestr.Buffer, error) {
	if err := b.checkString(i); err != nil {
		return nil, err
	}
	buf := b.slots[i].Str
	b.slots[i].Str = nil
	return buf, nil
}

func (b *Bank) checkString(i int) error {
	if !b.initialized {
		return ErrNotInitialized
	}
	if i < 0 || i >= Size {
		return fmt.Errorf("slot %d: %w", i, ErrSlotIndex)
	}
	if b.slots[i].Kind != String {
		return fmt.Errorf("slot %d is %s: %w", i, b.slots[i].Kind, ErrSlotKind)
	}
	return nil
}

// SetOptionalString turns the scratch slot i into a String slot holding buf,
// or into an Empty slot when buf is nil. Only the OpenLeftRightFiles audio
// slot uses it.
func (b *Bank) SetOptionalString(i int, buf widestr.Buffer) error {
	if !b.initialized {
		return ErrNotInitialized
	}
	if i != IndexAudioFile {
		return fmt.Errorf("slot %d is not optional: %w", i, ErrSlotKind)
	}
	if buf == nil {
		b.slots[i] = Slot{Kind: Empty}
		return nil
	}
	b.slots[i] = Slot{Kind: String, Str: buf}
	return nil
}

// SetAudioMode stores the audio mode enumeration for OpenLeftRightFiles.
func (b *Bank) SetAudioMode(mode uint32) error {
	if !b.initialized {
		return ErrNotInitialized
	}
	b.slots[IndexAudioMode].U32 = mode
	return nil
}

// Zoom returns the cached zoom argument.
func (b *Bank) Zoom() float64 {
	return b.slots[IndexZoom].F64
}

// SetZoom overwrites the zoom argument. Only the zoom operations call it.
func (b *Bank) SetZoom(v float64) {
	b.slots[IndexZoom].F64 = v
}

// Window returns the slots [start, start+count). A zero count yields nil.
func (b *Bank) Window(start, count int) ([]Slot, error) {
	if !b.initialized {
		return nil, ErrNotInitialized
	}
	if count == 0 {
		return nil, nil
	}
	if start < 0 || count < 0 || start+count > Size {
		return nil, fmt.Errorf("window [%d,+%d): %w", start, count, ErrSlotIndex)
	}

	out := make([]Slot, count)
	copy(out, b.slots[start:start+count])
	return out, nil
}
