// Package media checks local files before they are handed to the player.
package media

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

const headSize = 261

var (
	ErrUnknownType = errors.New("unrecognized media type")
	ErrNotVideo    = errors.New("not a video file")
	ErrNotAudio    = errors.New("not an audio file")
)

// Details describes a sniffed file.
type Details struct {
	MIME      string
	Extension string
	Video     bool
	Audio     bool
}

// GetMimeDetailsFromFile returns the media file mime details.
func GetMimeDetailsFromFile(path string) (Details, error) {
	f, err := os.Open(path)
	if err != nil {
		return Details{}, fmt.Errorf("GetMimeDetailsFromFile open error: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return Details{}, fmt.Errorf("GetMimeDetailsFromFile stat error: %w", err)
	}
	if fi.IsDir() {
		return Details{}, fmt.Errorf("GetMimeDetailsFromFile: %s is a directory", path)
	}

	return GetMimeDetailsFromStream(f)
}

// GetMimeDetailsFromStream sniffs the first bytes of r.
func GetMimeDetailsFromStream(r io.Reader) (Details, error) {
	head := make([]byte, headSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Details{}, fmt.Errorf("GetMimeDetailsFromStream read error: %w", err)
	}
	head = head[:n]

	kind, err := filetype.Match(head)
	if err != nil {
		return Details{}, fmt.Errorf("GetMimeDetailsFromStream match error: %w", err)
	}
	if kind == types.Unknown {
		return Details{}, ErrUnknownType
	}

	return Details{
		MIME:      fmt.Sprintf("%s/%s", kind.MIME.Type, kind.MIME.Subtype),
		Extension: kind.Extension,
		Video:     filetype.IsVideo(head),
		Audio:     filetype.IsAudio(head),
	}, nil
}

// CheckVideo returns nil when path holds a recognizable video container.
func CheckVideo(path string) error {
	d, err := GetMimeDetailsFromFile(path)
	if err != nil {
		return err
	}
	if !d.Video {
		return fmt.Errorf("%s (%s): %w", path, d.MIME, ErrNotVideo)
	}
	return nil
}

// CheckAudio returns nil when path holds a recognizable audio file.
func CheckAudio(path string) error {
	d, err := GetMimeDetailsFromFile(path)
	if err != nil {
		return err
	}
	if !d.Audio {
		return fmt.Errorf("%s (%s): %w", path, d.MIME, ErrNotAudio)
	}
	return nil
}
