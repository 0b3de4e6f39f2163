package render

import (
	"strconv"
	"strings"
	"time"
)

// Format подставляет значения вместо {key} в шаблоне сообщения.
// Неизвестные плейсхолдеры остаются как есть.
func Format(msg string, args map[string]int) string {
	if len(args) == 0 || !strings.Contains(msg, "{") {
		return msg
	}

	pairs := make([]string, 0, len(args)*2)
	for k, v := range args {
		pairs = append(pairs, "{"+k+"}", strconv.Itoa(v))
	}

	return strings.NewReplacer(pairs...).Replace(msg)
}

const day = 24 * time.Hour

// TimeAgo: относительное время по календарным суткам:
// меньше суток: today, меньше 30 дней: daysAgo, меньше года: monthsAgo, дальше: yearsAgo.
// Метки из будущего считаются сегодняшними.
func TimeAgo(createdAt int64, now time.Time, m Messages) string {
	diff := now.Sub(time.Unix(createdAt, 0))
	days := int(diff / day)

	switch {
	case days < 1:
		return m.Today
	case days < 30:
		return Format(m.DaysAgo, map[string]int{"days": days})
	case days < 365:
		return Format(m.MonthsAgo, map[string]int{"months": days / 30})
	default:
		return Format(m.YearsAgo, map[string]int{"years": days / 365})
	}
}
