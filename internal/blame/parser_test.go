package blame

import (
	"strings"
	"testing"
)

const samplePorcelain = `abcdef0123456789abcdef0123456789abcdef01 1 1 2
author Jane Doe
author-mail <jane@example.com>
author-time 1700000000
author-tz +0000
committer Jane Doe
committer-mail <jane@example.com>
committer-time 1700000000
committer-tz +0000
summary Initial commit
boundary
filename main.c
	int x = 1;
abcdef0123456789abcdef0123456789abcdef01 2 2
author Jane Doe
author-mail <jane@example.com>
filename main.c
	
1234567890abcdef1234567890abcdef12345678 3 3 1
author Bob  Builder
previous abcdef0123456789abcdef0123456789abcdef01 main.c
filename main.c
		return x; // indented
`

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		want lineKind
	}{
		{"abcdef0123456789abcdef0123456789abcdef01 1 1 1", kindHeader},
		{"abcdef0123456789abcdef0123456789abcdef01", kindHeader},
		{"abcdef0123456789abcdef0123456789abcdef 1 1 1", kindIgnored},
		{"ABCDEF0123456789ABCDEF0123456789ABCDEF01 1 1", kindIgnored},
		{"abcdef0123456789abcdef0123456789abcdef01x", kindIgnored},
		{"author Jane Doe", kindAuthor},
		{"author-mail <jane@example.com>", kindIgnored},
		{"author ", kindAuthor},
		{"\tcode", kindContent},
		{"\t", kindContent},
		{"summary fix the thing", kindIgnored},
		{"", kindIgnored},
	}
	for _, tt := range tests {
		if got := classify(tt.line); got != tt.want {
			t.Errorf("classify(%q) = %d, want %d", tt.line, got, tt.want)
		}
	}
}

func TestParse_EndToEnd(t *testing.T) {
	in := "abcdef0123456789abcdef0123456789abcdef01 1 1 1\nauthor Jane Doe\n\tint x = 1;\n"

	got := Render(Parse(in))
	want := "abcdef01 Jane Doe             int x = 1;"
	if got != want {
		t.Errorf("Render(Parse()) =\n%q\nwant\n%q", got, want)
	}
}

func TestParse_RecordPerContentLine(t *testing.T) {
	records := Parse(samplePorcelain)

	var contents []string
	for _, line := range strings.Split(samplePorcelain, "\n") {
		if strings.HasPrefix(line, "\t") {
			contents = append(contents, line[1:])
		}
	}

	if len(records) != len(contents) {
		t.Fatalf("got %d records, want %d", len(records), len(contents))
	}
	for i, r := range records {
		if r.Code != contents[i] {
			t.Errorf("records[%d].Code = %q, want %q", i, r.Code, contents[i])
		}
		if len(r.CommitID) != CommitIDLength {
			t.Errorf("records[%d].CommitID = %q, want %d chars", i, r.CommitID, CommitIDLength)
		}
	}
}

func TestParse_Fields(t *testing.T) {
	records := Parse(samplePorcelain)
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	want := []Record{
		{CommitID: "abcdef01", Author: "Jane Doe", Code: "int x = 1;"},
		{CommitID: "abcdef01", Author: "Jane Doe", Code: ""},
		{CommitID: "12345678", Author: "Bob  Builder", Code: "\treturn x; // indented"},
	}
	for i := range want {
		if records[i] != want[i] {
			t.Errorf("records[%d] = %+v, want %+v", i, records[i], want[i])
		}
	}
}

func TestParse_AuthorCarriesOver(t *testing.T) {
	in := strings.Join([]string{
		"abcdef0123456789abcdef0123456789abcdef01 1 1 1",
		"author Jane Doe",
		"\tfirst",
		"1234567890abcdef1234567890abcdef12345678 2 2 1",
		"\tsecond",
	}, "\n")

	records := Parse(in)
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[1].Author != "Jane Doe" {
		t.Errorf("records[1].Author = %q, want carried-over %q", records[1].Author, "Jane Doe")
	}
	if records[1].CommitID != "12345678" {
		t.Errorf("records[1].CommitID = %q, want 12345678", records[1].CommitID)
	}
}

func TestParse_Empty(t *testing.T) {
	if records := Parse(""); len(records) != 0 {
		t.Errorf("Parse(\"\") returned %d records", len(records))
	}
	if got := Render(nil); got != "" {
		t.Errorf("Render(nil) = %q, want empty", got)
	}
}

func TestRender_PadsAndJoins(t *testing.T) {
	records := []Record{
		{CommitID: "abcdef01", Author: "A", Code: "one"},
		{CommitID: "12345678", Author: "An Author Longer Than Twenty", Code: "two"},
	}
	got := Render(records)
	want := "abcdef01 A                    one\n12345678 An Author Longer Than Twenty two"
	if got != want {
		t.Errorf("Render =\n%q\nwant\n%q", got, want)
	}
	if strings.HasSuffix(got, "\n") {
		t.Error("Render should not end with a newline")
	}
}
