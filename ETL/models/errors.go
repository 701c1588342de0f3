package models

import (
	"errors"
	"fmt"
	"strings"
)

// Ошибки построения хранилища. Каждая из них прерывает построение затронутой таблицы.
var (
	ErrMissingSourceTable       = errors.New("отсутствует исходная таблица")
	ErrDuplicateKey             = errors.New("повторяющийся ключ")
	ErrUnresolvedForeignKey     = errors.New("внешний ключ не найден в измерении")
	ErrInsufficientTemporalData = errors.New("недостаточно временных данных")
)

// BuildError уточняет ошибку построения: таблица, колонка, число затронутых строк
type BuildError struct {
	Kind   error
	Table  string
	Column string
	Rows   int
	Detail string
}

func (e *BuildError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Table != "" {
		fmt.Fprintf(&b, ": table=%s", e.Table)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column=%s", e.Column)
	}
	if e.Rows > 0 {
		fmt.Fprintf(&b, " rows=%d", e.Rows)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, " (%s)", e.Detail)
	}
	return b.String()
}

func (e *BuildError) Unwrap() error {
	return e.Kind
}

// MissingSource - ошибка для отсутствующей исходной таблицы
func MissingSource(table, neededBy string) error {
	return &BuildError{Kind: ErrMissingSourceTable, Table: table, Detail: "требуется для " + neededBy}
}
