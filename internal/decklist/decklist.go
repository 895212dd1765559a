// Package decklist parses the plain-text deck list format: one entry per line, written
// as `<quantity>, <card name>` with the name optionally wrapped in double quotes.
//
//	4, Lightning Bolt
//	1, "Borborygmos, Enraged"
package decklist

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrBadLine is returned for lines that do not match the entry format.
	ErrBadLine = errors.New("expected `<quantity>, <name>`")
	// ErrBadQuantity is returned for a zero or out-of-range quantity.
	ErrBadQuantity = errors.New("quantity must be a positive integer")
)

// MaxQuantity is the largest copy count accepted for a single entry.
const MaxQuantity = 1000

var linePattern = regexp.MustCompile(`^(\d+)\s*,\s*(?:"(.+)"|(.+))$`)

// Entry is one parsed line.
type Entry struct {
	Quantity int
	Name     string
}

// LineError reports a line that could not be parsed. Line is 1-based.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e LineError) Unwrap() error { return e.Err }

// Parse returns the valid entries in order and one LineError per rejected line.
// Blank lines are skipped. A bad line never aborts the rest of the list.
func Parse(text string) ([]Entry, []LineError) {
	var (
		entries []Entry
		errs    []LineError
	)
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		entry, err := parseLine(line)
		if err != nil {
			errs = append(errs, LineError{Line: i + 1, Text: line, Err: err})
			continue
		}
		entries = append(entries, entry)
	}
	return entries, errs
}

func parseLine(line string) (Entry, error) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return Entry{}, ErrBadLine
	}
	qty, err := strconv.Atoi(m[1])
	if err != nil || qty <= 0 || qty > MaxQuantity {
		return Entry{}, ErrBadQuantity
	}
	name := m[2]
	if name == "" {
		name = m[3]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Entry{}, ErrBadLine
	}
	return Entry{Quantity: qty, Name: name}, nil
}

// Count is the total number of cards across entries.
func Count(entries []Entry) int {
	n := 0
	for _, e := range entries {
		n += e.Quantity
	}
	return n
}
