package app

import (
	"fmt"
	"strings"

	"polybot/internal/domain/entity"
)

const (
	msgFoundPrefix = "I found the following objects in your image: "
	msgNothing     = "Sorry, I couldn't detect any objects in your image."
)

// FormatPredictionMessage группирует метки по классу в порядке первого появления
// и формирует ответ пользователю.
func FormatPredictionMessage(labels []entity.Label) string {
	if len(labels) == 0 {
		return msgNothing
	}

	order := make([]string, 0, len(labels))
	counts := make(map[string]int, len(labels))
	for _, l := range labels {
		if _, seen := counts[l.Class]; !seen {
			order = append(order, l.Class)
		}
		counts[l.Class]++
	}

	parts := make([]string, 0, len(order))
	for _, class := range order {
		parts = append(parts, fmt.Sprintf("%d %s", counts[class], class))
	}

	return msgFoundPrefix + strings.Join(parts, ", ") + "."
}
