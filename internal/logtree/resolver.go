// Package logtree resolves date coordinates to files under the log and
// image roots.
//
// Logs are laid out as <log_root>/YYYY/MM/DD/*.log and captured images as
// <image_root>/YYYY/MM/DD/<sub_path>/<name>. Every coordinate segment is
// validated before the filesystem is touched, and every resolved path is
// checked to still lie under its root after symlinks are evaluated.
package logtree

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
)

var (
	// ErrNotFound means the coordinate is well formed but nothing usable
	// exists there, or the resolved path leaves the root.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCoordinate means a segment is empty or not path safe.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)

// LogCoordinate identifies a log file. With Year, Month and Day all empty it
// refers to the default log directly under the log root. An empty FileName
// means the default log file name.
type LogCoordinate struct {
	Year     string
	Month    string
	Day      string
	FileName string
}

// IsDefault reports whether c has no date component.
func (c LogCoordinate) IsDefault() bool {
	return c.Year == "" && c.Month == "" && c.Day == ""
}

// ID returns the root-relative identifier used in links, e.g.
// /2024/01/01/cam.log. The zero coordinate returns "".
func (c LogCoordinate) ID() string {
	if c.IsDefault() && c.FileName == "" {
		return ""
	}
	if c.IsDefault() {
		return "/" + c.FileName
	}
	return "/" + path.Join(c.Year, c.Month, c.Day, c.FileName)
}

// ImageCoordinate identifies a captured image.
type ImageCoordinate struct {
	Year    string
	Month   string
	Day     string
	SubPath string
	Name    string
}

type Resolver struct {
	logRoot   string
	imageRoot string
	logFile   string
}

// New returns a resolver for the given roots. logFile is the default log
// file name used when a coordinate does not name one.
func New(logRoot, imageRoot, logFile string) (*Resolver, error) {
	lr, err := filepath.Abs(logRoot)
	if err != nil {
		return nil, fmt.Errorf("log root: %w", err)
	}
	ir, err := filepath.Abs(imageRoot)
	if err != nil {
		return nil, fmt.Errorf("image root: %w", err)
	}
	if err := checkSegment(logFile); err != nil {
		return nil, fmt.Errorf("log file %q: %w", logFile, err)
	}
	return &Resolver{logRoot: lr, imageRoot: ir, logFile: logFile}, nil
}

// LogRoot returns the absolute log root.
func (r *Resolver) LogRoot() string { return r.logRoot }

// ImageRoot returns the absolute image root.
func (r *Resolver) ImageRoot() string { return r.imageRoot }

// LogPath resolves c to an existing regular file under the log root.
func (r *Resolver) LogPath(c LogCoordinate) (string, error) {
	name := c.FileName
	if name == "" {
		name = r.logFile
	}
	segs := []string{name}
	if !c.IsDefault() {
		segs = []string{c.Year, c.Month, c.Day, name}
	}
	p, err := r.resolve(r.logRoot, segs...)
	if err != nil {
		return "", err
	}
	if err := requireFile(p); err != nil {
		return "", err
	}
	return p, nil
}

// DayDir resolves a date to an existing directory under the log root.
func (r *Resolver) DayDir(year, month, day string) (string, error) {
	p, err := r.resolve(r.logRoot, year, month, day)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(p)
	if err != nil {
		return "", statErr(err)
	}
	if !info.IsDir() {
		return "", ErrNotFound
	}
	return p, nil
}

// ListLogFiles returns the *.log files directly inside the day directory as
// root-relative identifiers, sorted.
func (r *Resolver) ListLogFiles(year, month, day string) ([]string, error) {
	dir, err := r.DayDir(year, month, day)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read day dir: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ok, _ := filepath.Match("*.log", e.Name()); !ok {
			continue
		}
		c := LogCoordinate{Year: year, Month: month, Day: day, FileName: e.Name()}
		// skip sockets, fifos and dangling links
		if _, err := r.LogPath(c); err != nil {
			continue
		}
		files = append(files, c.ID())
	}
	sort.Strings(files)
	return files, nil
}

// ImagePath resolves c to an existing regular file under the image root.
func (r *Resolver) ImagePath(c ImageCoordinate) (string, error) {
	p, err := r.resolve(r.imageRoot, c.Year, c.Month, c.Day, c.SubPath, c.Name)
	if err != nil {
		return "", err
	}
	if err := requireFile(p); err != nil {
		return "", err
	}
	return p, nil
}

// ParseLogID is the inverse of LogCoordinate.ID. The empty string maps to
// the default log.
func ParseLogID(id string) (LogCoordinate, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return LogCoordinate{}, nil
	}
	parts := strings.Split(strings.TrimPrefix(id, "/"), "/")
	for _, p := range parts {
		if err := checkSegment(p); err != nil {
			return LogCoordinate{}, err
		}
	}
	switch len(parts) {
	case 1:
		return LogCoordinate{FileName: parts[0]}, nil
	case 4:
		return LogCoordinate{Year: parts[0], Month: parts[1], Day: parts[2], FileName: parts[3]}, nil
	default:
		return LogCoordinate{}, fmt.Errorf("%w: %q", ErrInvalidCoordinate, id)
	}
}

// resolve validates segs, joins them under root and checks that the real
// path is still a descendant of the real root.
func (r *Resolver) resolve(root string, segs ...string) (string, error) {
	for _, s := range segs {
		if err := checkSegment(s); err != nil {
			return "", err
		}
	}
	candidate := filepath.Join(append([]string{root}, segs...)...)
	if !within(root, candidate) {
		return "", ErrNotFound
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", statErr(err)
	}
	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		return "", statErr(err)
	}
	if !within(realRoot, resolved) {
		return "", ErrNotFound
	}
	return candidate, nil
}

func checkSegment(s string) error {
	switch {
	case s == "", s == ".", s == "..":
		return fmt.Errorf("%w: segment %q", ErrInvalidCoordinate, s)
	case strings.ContainsAny(s, `/\`+"\x00"):
		return fmt.Errorf("%w: segment %q", ErrInvalidCoordinate, s)
	}
	return nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func requireFile(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return statErr(err)
	}
	if !info.Mode().IsRegular() {
		return ErrNotFound
	}
	return nil
}

func statErr(err error) error {
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.ENOTDIR) {
		return ErrNotFound
	}
	return fmt.Errorf("stat: %w", err)
}
