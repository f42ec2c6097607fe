// Package logtail reads the last lines of a log file.
//
// Tail reads backwards from the end of the file in fixed-size blocks until
// it has seen enough line breaks, so the cost of a call depends on the size
// of the returned tail rather than the size of the file. Nothing is cached
// between calls: the file is appended to by another process, and every call
// reopens and rereads it.
//
// Line splitting matches bufio.ScanLines: a final newline does not produce
// an extra empty line, and a trailing carriage return is dropped.
package logtail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrNotFound is returned when the path does not exist or is a directory.
var ErrNotFound = errors.New("log file not found")

// blockSize is the read granularity when scanning backwards.
var blockSize int64 = 64 * 1024

// Result is a snapshot of the end of a file.
type Result struct {
	Lines []string
	// Truncated is true when the file holds more lines than were returned.
	Truncated bool
}

// Tail returns at most maxLines lines from the end of the file at path, in
// file order.
func Tail(path string, maxLines int) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Result{}, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("stat log: %w", err)
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}
	return tailReader(file, info.Size(), maxLines)
}

func tailReader(r io.ReaderAt, size int64, maxLines int) (Result, error) {
	if size == 0 {
		return Result{}, nil
	}
	if maxLines <= 0 {
		return Result{Truncated: true}, nil
	}

	// A final newline terminates the last line rather than starting a new one.
	end := size
	last := make([]byte, 1)
	if _, err := r.ReadAt(last, size-1); err != nil {
		return Result{}, fmt.Errorf("read log: %w", err)
	}
	if last[0] == '\n' {
		end--
	}

	var chunks [][]byte // newest first
	off := end
	seen := 0
	for off > 0 {
		n := blockSize
		if off < n {
			n = off
		}
		off -= n

		chunk := make([]byte, n)
		// io.EOF here means the file shrank after Stat
		if _, err := r.ReadAt(chunk, off); err != nil {
			return Result{}, fmt.Errorf("read log: %w", err)
		}

		for i := len(chunk) - 1; i >= 0; i-- {
			if chunk[i] != '\n' {
				continue
			}
			seen++
			if seen == maxLines {
				chunks = append(chunks, chunk[i+1:])
				return Result{Lines: split(chunks), Truncated: true}, nil
			}
		}
		chunks = append(chunks, chunk)
	}
	return Result{Lines: split(chunks)}, nil
}

// split joins newest-first chunks back into file order and breaks them into
// lines.
func split(chunks [][]byte) []string {
	for i, j := 0, len(chunks)-1; i < j; i, j = i+1, j-1 {
		chunks[i], chunks[j] = chunks[j], chunks[i]
	}
	lines := strings.Split(string(bytes.Join(chunks, nil)), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
