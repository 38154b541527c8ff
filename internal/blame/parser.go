// Package blame turns `git blame --line-porcelain` output into per-line
// attribution records and renders them as aligned text.
package blame

import (
	"fmt"
	"strings"
)

const (
	// CommitIDLength is the number of characters kept from a full commit id.
	CommitIDLength = 8
	// AuthorWidth is the column width the author is padded to when rendered.
	AuthorWidth = 20

	fullHashLength = 40
	authorPrefix   = "author "
)

// Record is one source line with the commit and author that last changed it.
type Record struct {
	CommitID string
	Author   string
	Code     string
}

// String renders the record as "<commit> <author padded> <code>".
func (r Record) String() string {
	return fmt.Sprintf("%s %-*s %s", r.CommitID, AuthorWidth, r.Author, r.Code)
}

type lineKind int

const (
	kindIgnored lineKind = iota
	kindHeader
	kindAuthor
	kindContent
)

// classify tags a porcelain line. Header lines start with a full 40 hex
// character commit id; anything unrecognized is ignored so new metadata
// fields emitted by git do not break parsing.
func classify(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "\t"):
		return kindContent
	case strings.HasPrefix(line, authorPrefix):
		return kindAuthor
	case isHeader(line):
		return kindHeader
	}
	return kindIgnored
}

func isHeader(line string) bool {
	if len(line) < fullHashLength {
		return false
	}
	for i := 0; i < fullHashLength; i++ {
		c := line[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return false
		}
	}
	return len(line) == fullHashLength || line[fullHashLength] == ' '
}

// Parse reads porcelain text and returns one Record per content line, in
// input order. The author of a block carries over to following blocks
// that lack their own author line.
func Parse(text string) []Record {
	if text == "" {
		return nil
	}

	var (
		records []Record
		commit  string
		author  string
	)
	for _, line := range strings.Split(text, "\n") {
		switch classify(line) {
		case kindHeader:
			id, _, _ := strings.Cut(line, " ")
			commit = id[:CommitIDLength]
		case kindAuthor:
			author = line[len(authorPrefix):]
		case kindContent:
			records = append(records, Record{
				CommitID: commit,
				Author:   author,
				Code:     line[1:],
			})
		}
	}
	return records
}

// Render joins the rendered records with newlines. There is no trailing
// newline and an empty slice renders as "".
func Render(records []Record) string {
	var b strings.Builder
	for i, r := range records {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(r.String())
	}
	return b.String()
}
