package utils

import (
	"context"
	"fmt"
	"time"
)

// RunStage выполняет этап конвейера с ограничением по времени.
// При истечении срока возвращается ошибка контекста; сам этап получает тот же контекст.
func RunStage[T any](ctx context.Context, name string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, fmt.Errorf("этап %s не запущен: %w", name, err)
	}

	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(stageCtx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-stageCtx.Done():
		return zero, fmt.Errorf("этап %s прерван: %w", name, stageCtx.Err())
	}
}
