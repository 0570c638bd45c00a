package importer

// readers.go wraps raw upload streams before they reach encoding/csv:
//
//   - a leading UTF-8 byte order mark (added by Excel on Windows) is dropped
//   - invalid UTF-8 sequences are replaced with U+FFFD
//   - an optional byte limit rejects oversized files while streaming
//
// Use NewTextReader for the first two and LimitReader for the last.

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrFileTooLarge is returned by a LimitReader once the limit is exceeded.
var ErrFileTooLarge = errors.New("file too large")

// NewTextReader returns r decoded as UTF-8 with the BOM stripped and
// ill-formed bytes replaced.
func NewTextReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
}

// LimitReader returns a reader that fails with ErrFileTooLarge after more
// than max bytes. A max of zero or less disables the limit.
func LimitReader(r io.Reader, max int64) io.Reader {
	if max <= 0 {
		return r
	}
	return &limitReader{r: r, max: max}
}

type limitReader struct {
	r    io.Reader
	max  int64
	read int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.max {
		return n, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, l.max)
	}
	return n, err
}
