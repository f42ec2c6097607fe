package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}
	return path
}

// scanAll is the straightforward whole-file reading Tail must agree with.
func scanAll(t *testing.T, content string) []string {
	t.Helper()
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return lines
}

func TestTail(t *testing.T) {
	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}
	logPath := writeLog(t, content.String())

	tests := []struct {
		name      string
		maxLines  int
		expected  []string
		truncated bool
	}{
		{name: "zero", maxLines: 0, expected: nil, truncated: true},
		{name: "negative", maxLines: -1, expected: nil, truncated: true},
		{name: "one", maxLines: 1, expected: expectedAll[9:], truncated: true},
		{name: "partial (5)", maxLines: 5, expected: expectedAll[5:], truncated: true},
		{name: "exactly all (10)", maxLines: 10, expected: expectedAll},
		{name: "more than exists (20)", maxLines: 20, expected: expectedAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tail(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Tail() error = %v", err)
			}
			if !reflect.DeepEqual(got.Lines, tt.expected) {
				t.Errorf("Tail().Lines = %v, want %v", got.Lines, tt.expected)
			}
			if got.Truncated != tt.truncated {
				t.Errorf("Tail().Truncated = %v, want %v", got.Truncated, tt.truncated)
			}
		})
	}
}

func TestTail_MatchesScannerAcrossBlocks(t *testing.T) {
	old := blockSize
	blockSize = 7
	t.Cleanup(func() { blockSize = old })

	contents := map[string]string{
		"empty":               "",
		"single newline":      "\n",
		"no final newline":    "a\nbb\nccc",
		"blank lines":         "\n\nx\n\n",
		"crlf":                "one\r\ntwo\r\nthree\r\n",
		"leading newline":     "\nfirst\nsecond\n",
		"long lines":          strings.Repeat("x", 30) + "\n" + strings.Repeat("y", 15) + "\nz\n",
		"exact block":         "abcdef\n",
		"many short lines":    strings.Repeat("l\n", 40),
		"partial last append": "done\nwriting",
	}

	for name, content := range contents {
		t.Run(name, func(t *testing.T) {
			path := writeLog(t, content)
			all := scanAll(t, content)
			for n := 1; n <= len(all)+2; n++ {
				got, err := Tail(path, n)
				if err != nil {
					t.Fatalf("Tail(%d) error = %v", n, err)
				}
				want := all
				if len(want) > n {
					want = want[len(want)-n:]
				}
				if len(got.Lines) != len(want) || (len(want) > 0 && !reflect.DeepEqual(got.Lines, want)) {
					t.Fatalf("Tail(%d).Lines = %q, want %q", n, got.Lines, want)
				}
				if got.Truncated != (len(all) > n) {
					t.Fatalf("Tail(%d).Truncated = %v, total %d", n, got.Truncated, len(all))
				}
			}
		})
	}
}

func TestTail_LargeFileReadsOnlyTheEnd(t *testing.T) {
	var content strings.Builder
	for i := 0; i < 50000; i++ {
		fmt.Fprintf(&content, "2024-01-01 00:00:00 INFO line %d\n", i)
	}
	path := writeLog(t, content.String())

	got, err := Tail(path, 3)
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	want := []string{
		"2024-01-01 00:00:00 INFO line 49997",
		"2024-01-01 00:00:00 INFO line 49998",
		"2024-01-01 00:00:00 INFO line 49999",
	}
	if !reflect.DeepEqual(got.Lines, want) || !got.Truncated {
		t.Fatalf("Tail() = %+v, want %v truncated", got, want)
	}
}

func TestTail_SeesAppends(t *testing.T) {
	path := writeLog(t, "one\n")
	if got, _ := Tail(path, 5); !reflect.DeepEqual(got.Lines, []string{"one"}) {
		t.Fatalf("first Tail() = %v", got.Lines)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := f.WriteString("two\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	got, err := Tail(path, 5)
	if err != nil {
		t.Fatalf("second Tail() error = %v", err)
	}
	if !reflect.DeepEqual(got.Lines, []string{"one", "two"}) {
		t.Fatalf("second Tail() = %v, want [one two]", got.Lines)
	}
}

func TestTail_NotFound(t *testing.T) {
	_, err := Tail(filepath.Join(t.TempDir(), "missing.log"), 10)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Tail(missing) error = %v, want ErrNotFound", err)
	}
	_, err = Tail(t.TempDir(), 10)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Tail(dir) error = %v, want ErrNotFound", err)
	}
}
