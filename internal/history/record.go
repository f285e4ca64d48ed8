package history

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Header field widths of the on-disk record format, e.g.
// "MR 20100901T13:39:14Z 002 ".
const (
	kindWidth      = 2
	timestampWidth = 18
	countWidth     = 3
)

var (
	// ErrMalformedRecord indicates an unparseable record header.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrTruncatedRecord indicates a record that declares more body lines
	// than the stream contains.
	ErrTruncatedRecord = errors.New("truncated record")
)

// Record is a single chat-history entry. Records are immutable once parsed;
// the body lines are kept verbatim so a record can be re-emitted
// byte-for-byte.
type Record struct {
	Kind         string // 2-char message tag ("MR", "MS", ...), opaque beyond equality
	Timestamp    string // fixed-width UTC timestamp; lexical order is chronological order
	Continuation int    // number of body lines beyond the first
	Lines        []string
}

// ReadRecord decodes the next record from r. It returns io.EOF when the
// stream ends cleanly at a record boundary. A record is parsed atomically:
// on any failure no record is returned.
func ReadRecord(r *bufio.Reader) (*Record, error) {
	kind, err := readField(r, kindWidth)
	if err != nil {
		// Fewer than two kind characters is the normal end of the
		// stream, not an error.
		return nil, io.EOF
	}
	if err := expectSep(r); err != nil {
		return nil, fmt.Errorf("%w: after kind %q: %v", ErrMalformedRecord, kind, err)
	}

	ts, err := readField(r, timestampWidth)
	if err != nil {
		return nil, fmt.Errorf("%w: short timestamp after kind %q", ErrMalformedRecord, kind)
	}
	if err := expectSep(r); err != nil {
		return nil, fmt.Errorf("%w: after timestamp %s: %v", ErrMalformedRecord, ts, err)
	}

	countTok, err := readField(r, countWidth)
	if err != nil {
		return nil, fmt.Errorf("%w: short line count at %s", ErrMalformedRecord, ts)
	}
	if err := expectSep(r); err != nil {
		return nil, fmt.Errorf("%w: after line count at %s: %v", ErrMalformedRecord, ts, err)
	}
	count, err := parseCount(countTok)
	if err != nil {
		return nil, fmt.Errorf("%w: line count %q at %s", ErrMalformedRecord, countTok, ts)
	}

	lines := make([]string, 0, count+1)
	for i := 0; i <= count; i++ {
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read body line: %w", err)
		}
		// A final line without a trailing newline still counts as a
		// line; an empty read means the stream ended early.
		if line == "" {
			return nil, fmt.Errorf("%w: got %d of %d lines at %s", ErrTruncatedRecord, i, count+1, ts)
		}
		lines = append(lines, line)
	}

	return &Record{
		Kind:         kind,
		Timestamp:    ts,
		Continuation: count,
		Lines:        lines,
	}, nil
}

// readField reads one fixed-width header field. Fields never span lines, so
// an embedded newline means the header itself is cut short.
func readField(r *bufio.Reader, width int) (string, error) {
	buf := make([]byte, width)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	s := string(buf)
	if strings.ContainsRune(s, '\n') {
		return "", fmt.Errorf("unexpected end of header")
	}
	return s, nil
}

// parseCount parses the zero-padded continuation count. Only plain digits
// are accepted; anything Atoi would tolerate beyond that (signs, spaces)
// would not survive a byte-exact re-emit.
func parseCount(tok string) (int, error) {
	for _, c := range tok {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("non-decimal count")
		}
	}
	return strconv.Atoi(tok)
}

// expectSep consumes the single space between header fields.
func expectSep(r *bufio.Reader) error {
	c, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("missing field separator")
	}
	if c != ' ' {
		return fmt.Errorf("expected separator, got %q", c)
	}
	return nil
}

// WriteTo re-emits the record in its original wire form. Output is
// byte-identical to the input the record was parsed from.
func (rec *Record) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w, "%s %s %03d ", rec.Kind, rec.Timestamp, rec.Continuation)
	total := int64(n)
	if err != nil {
		return total, err
	}
	for _, line := range rec.Lines {
		n, err := io.WriteString(w, line)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Equal reports whether two records are exact duplicates: same kind, same
// timestamp, and every body line byte-identical.
func (rec *Record) Equal(other *Record) bool {
	if rec.Kind != other.Kind || rec.Timestamp != other.Timestamp || len(rec.Lines) != len(other.Lines) {
		return false
	}
	for i := range rec.Lines {
		if rec.Lines[i] != other.Lines[i] {
			return false
		}
	}
	return true
}
