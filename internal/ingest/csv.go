// Package ingest parses the CSV record formats produced by external road
// and attraction data sources. Parsing is lenient: malformed lines are
// skipped with a warning rather than failing the whole import, since the
// feeds are hand-maintained.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tripnav/internal/model"
)

// ParseRoads reads three-field records (cityA, cityB, distance). Blank
// lines are ignored; lines with the wrong column count, a non-numeric
// distance, or a negative distance are skipped and reported in warnings.
func ParseRoads(r io.Reader) (roads []model.RoadIn, warnings []string, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 3 {
			warnings = append(warnings, fmt.Sprintf("line %d: expected 3 columns, got %d", lineNum, len(parts)))
			continue
		}
		dist, convErr := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if convErr != nil {
			warnings = append(warnings, fmt.Sprintf("line %d: invalid distance %q", lineNum, strings.TrimSpace(parts[2])))
			continue
		}
		if dist < 0 {
			warnings = append(warnings, fmt.Sprintf("line %d: negative distance %v", lineNum, dist))
			continue
		}
		a := strings.TrimSpace(parts[0])
		b := strings.TrimSpace(parts[1])
		if a == "" || b == "" {
			warnings = append(warnings, fmt.Sprintf("line %d: empty city name", lineNum))
			continue
		}
		roads = append(roads, model.RoadIn{CityA: a, CityB: b, Distance: dist})
	}
	if err := sc.Err(); err != nil {
		return nil, warnings, err
	}
	return roads, warnings, nil
}

// ParseAttractions reads two-field records (attraction name, city).
func ParseAttractions(r io.Reader) (attractions []model.AttractionIn, warnings []string, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 2 {
			warnings = append(warnings, fmt.Sprintf("line %d: expected 2 columns, got %d", lineNum, len(parts)))
			continue
		}
		name := strings.TrimSpace(parts[0])
		city := strings.TrimSpace(parts[1])
		if name == "" || city == "" {
			warnings = append(warnings, fmt.Sprintf("line %d: empty field", lineNum))
			continue
		}
		attractions = append(attractions, model.AttractionIn{Name: name, City: city})
	}
	if err := sc.Err(); err != nil {
		return nil, warnings, err
	}
	return attractions, warnings, nil
}
