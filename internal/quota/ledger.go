// Package quota содержит чистую арифметику учёта занятого места.
// Все значения в байтах; отрицательный used не существует по построению.
package quota

import (
	"math"
	"strconv"
	"strings"
)

// Available возвращает остаток лимита, никогда не отрицательный.
func Available(used, limit int64) int64 {
	if used >= limit {
		return 0
	}
	return limit - used
}

// PercentUsed возвращает процент занятого места с точностью до сотых.
// При нулевом лимите возвращает 0, а не ошибку деления.
func PercentUsed(used, limit int64) float64 {
	if limit <= 0 {
		return 0
	}
	return math.Round(float64(used)/float64(limit)*10000) / 100
}

// Fits сообщает, помещается ли ещё delta байт в лимит.
func Fits(used, limit, delta int64) bool {
	return used+delta <= limit
}

// ApplyDelta применяет знаковую дельту к счётчику занятого места.
// Результат прижимается к нулю: гонка двух удалений не должна
// уводить баланс в минус.
func ApplyDelta(used, delta int64) int64 {
	if v := used + delta; v > 0 {
		return v
	}
	return 0
}

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes форматирует число байт в человекочитаемый вид
// с точностью до двух знаков ("2.5 MB", "15 GB").
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}

	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}

	s := strconv.FormatFloat(value, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")

	return s + " " + byteUnits[unit]
}
