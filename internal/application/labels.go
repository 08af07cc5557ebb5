package app

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"polybot/internal/domain/entity"
)

const labelFields = 5

// ParseLabels разбирает файл меток YOLO: по строке на объект,
// "<индекс класса> <cx> <cy> <width> <height>".
// Любая некорректная строка делает некорректным весь файл.
func ParseLabels(r io.Reader, names entity.ClassNames) ([]entity.Label, error) {
	labels := make([]entity.Label, 0)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		label, err := parseLabelLine(scanner.Text(), names)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", entity.ErrMalformedLabels, lineNo, err)
		}
		labels = append(labels, label)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}

	return labels, nil
}

func parseLabelLine(line string, names entity.ClassNames) (entity.Label, error) {
	fields := strings.Fields(line)
	if len(fields) != labelFields {
		return entity.Label{}, fmt.Errorf("expected %d fields, got %d", labelFields, len(fields))
	}

	idx, err := strconv.Atoi(fields[0])
	if err != nil {
		return entity.Label{}, fmt.Errorf("class index %q: %v", fields[0], err)
	}
	class, ok := names.Name(idx)
	if !ok {
		return entity.Label{}, fmt.Errorf("unknown class index %d", idx)
	}

	var coords [labelFields - 1]float64
	for i, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return entity.Label{}, fmt.Errorf("coordinate %q: %v", f, err)
		}
		if v < 0 || v > 1 {
			return entity.Label{}, fmt.Errorf("coordinate %v out of [0,1]", v)
		}
		coords[i] = v
	}

	return entity.Label{
		Class:   class,
		CenterX: coords[0],
		CenterY: coords[1],
		Width:   coords[2],
		Height:  coords[3],
	}, nil
}
