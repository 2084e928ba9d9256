package goroutine

import (
	"context"
	"log"
	"runtime/debug"

	"github.com/vmaslennikov/usercore-backend/internal/logger"
)

// SafeGo запускает горутину с перехватом panic. Упавшая фоновая задача
// (сохранение уведомления, пуш в WebSocket) не должна ронять процесс.
func SafeGo(fn func()) {
	go func() {
		defer recoverPanic()
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и перехватом panic.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer recoverPanic()
		fn(ctx)
	}()
}

func recoverPanic() {
	r := recover()
	if r == nil {
		return
	}
	// Логгер может быть ещё не инициализирован (ранний старт, тесты).
	if logger.Log != nil {
		logger.Log.Errorf("panic в горутине: %v\n%s", r, debug.Stack())
		return
	}
	log.Printf("panic в горутине: %v\n%s", r, debug.Stack())
}
