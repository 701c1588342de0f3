package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout - формат календарной даты во всех выходных таблицах
const DateLayout = "2006-01-02"

// timestampLayouts - поддерживаемые варианты ISO-8601 в исходных выгрузках.
// Дробные секунды time.Parse принимает и без явного указания в шаблоне.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	DateLayout,
}

// ParseTimestamp разбирает временную метку ISO-8601. Метки без зоны считаются UTC,
// метки со смещением сохраняют свою зону, чтобы календарная дата не сдвигалась.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("пустая временная метка")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("не удалось разобрать временную метку %q", s)
}

// TruncateDate отбрасывает время суток: календарная дата в зоне t, полночь UTC
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EncodeDateKey кодирует календарную дату в целое YYYYMMDD
func EncodeDateKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// DecodeDateKey восстанавливает календарную дату из ключа YYYYMMDD.
// Для любого ключа k, полученного из EncodeDateKey, EncodeDateKey(DecodeDateKey(k)) == k.
func DecodeDateKey(key int) (time.Time, error) {
	if key < 10000101 || key > 99991231 {
		return time.Time{}, fmt.Errorf("ключ даты %d вне диапазона YYYYMMDD", key)
	}
	y := key / 10000
	m := (key / 100) % 100
	d := key % 100
	if m < 1 || m > 12 {
		return time.Time{}, fmt.Errorf("ключ даты %d: неверный месяц %d", key, m)
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date нормализует 31 февраля в март, такие ключи отклоняем
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, fmt.Errorf("ключ даты %d: неверный день %d", key, d)
	}
	return t, nil
}

// ISOWeekday возвращает день недели по ISO: 1 - понедельник, 7 - воскресенье
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// Quarter возвращает квартал (1-4) для месяца
func Quarter(month int) int {
	return (month-1)/3 + 1
}
