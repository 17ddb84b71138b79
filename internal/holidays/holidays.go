// Package holidays loads holiday lists from files.
package holidays

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/verte-zerg/attendr/internal/model"
)

// LoadFile reads holidays from the provided file path.
func LoadFile(path string) ([]model.Holiday, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only holiday list.
			_ = cerr
		}
	}()
	return Parse(file)
}

// Parse reads one holiday per line: a YYYY-MM-DD date, optionally followed
// by a note. Blank lines and lines starting with # are skipped.
func Parse(r io.Reader) ([]model.Holiday, error) {
	var holidays []model.Holiday
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		date, note := line, ""
		if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
			date, note = line[:i], line[i:]
		}
		if _, err := time.Parse(model.DateLayout, date); err != nil {
			return nil, fmt.Errorf("line %d: invalid date %q (expected YYYY-MM-DD)", lineNo, date)
		}
		holidays = append(holidays, model.Holiday{Date: date, Note: strings.TrimSpace(note)})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(holidays) == 0 {
		return nil, fmt.Errorf("holiday list is empty")
	}
	return holidays, nil
}
