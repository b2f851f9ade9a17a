// Package release turns the payload filename and release date given on the
// command line into the title, series query and publication date that are
// sent to the archive.
package release

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidReleaseDate is returned when the release argument is not an
// 8-digit YYYYMMDD integer naming a real calendar day.
var ErrInvalidReleaseDate = errors.New("release date must be an 8-digit YYYYMMDD integer")

const (
	defaultLabel = "XXX for "
	titleSuffix  = " pathways"
	dateLayout   = "2006-01-02"
)

var extensionLabels = map[string]string{
	".gmt": "GMT file for ",
	".zip": "GPML files for ",
}

// Input is everything derived from the filename and release arguments.
type Input struct {
	FileName string
	Title    string
	Query    string
	Version  string
	Released time.Time
}

// PublicationDate renders the release date as YYYY-MM-DD.
func (in Input) PublicationDate() string {
	return in.Released.Format(dateLayout)
}

// Resolve derives the Input for a payload file and a YYYYMMDD release string.
func Resolve(file, release string) (Input, error) {
	released, err := ParseReleaseDate(release)
	if err != nil {
		return Input{}, err
	}

	name := filepath.Base(file)
	return Input{
		FileName: name,
		Title:    TitleFor(name),
		Query:    QueryFor(name),
		Version:  strings.TrimSpace(release),
		Released: released,
	}, nil
}

// ParseReleaseDate parses a YYYYMMDD integer string into a UTC date.
func ParseReleaseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) != 8 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidReleaseDate, s)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidReleaseDate, s)
	}

	year := n / 10000
	month := (n / 100) % 100
	day := n % 100

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow, so 20240230 would silently become March 1st
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %q is not a calendar day", ErrInvalidReleaseDate, s)
	}
	return date, nil
}

// TitleFor builds the record title from a filename of the form
// prefix-timestamp-Name.ext: the extension picks the label, the last
// hyphen-separated segment names the species.
func TitleFor(filename string) string {
	stem, ext := splitExt(filepath.Base(filename))

	label, ok := extensionLabels[strings.ToLower(ext)]
	if !ok {
		label = defaultLabel
	}

	parts := strings.Split(stem, "-")
	name := strings.ReplaceAll(parts[len(parts)-1], "_", " ")

	return label + name + titleSuffix
}

// QueryFor returns the part of the filename between the second hyphen and the
// extension. Filenames with fewer than two hyphens have no query.
func QueryFor(filename string) string {
	stem, _ := splitExt(filepath.Base(filename))

	parts := strings.SplitN(stem, "-", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

func splitExt(name string) (string, string) {
	ext := filepath.Ext(name)
	// dotfiles like ".gmt" have no stem to speak of
	if ext == name {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}
