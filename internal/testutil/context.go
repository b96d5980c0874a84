package testutil

import (
	"context"
	"testing"
	"time"
)

// DefaultTimeout bounds storage calls in tests.
const DefaultTimeout = 10 * time.Second

// Context возвращает context с DefaultTimeout, отменяемый при завершении теста.
func Context(t testing.TB) context.Context {
	t.Helper()
	return ContextWithTimeout(t, DefaultTimeout)
}

// ContextWithTimeout создаёт context с timeout и автоматически отменяет его при завершении теста.
func ContextWithTimeout(t testing.TB, duration time.Duration) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	t.Cleanup(cancel)

	return ctx
}

// CanceledContext возвращает уже отменённый context.
func CanceledContext(t testing.TB) context.Context {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	return ctx
}
