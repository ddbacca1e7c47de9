package inventory

import (
	"context"
	"errors"

	"github.com/jhoicas/Pescaderia-api/internal/domain"
)

// WithConflictRetry reintenta fn mientras devuelva domain.ErrConflict, hasta attempts intentos.
// Es seguro porque un intento fallido nunca confirma nada (la transacción se revierte completa).
// El motor no reintenta por sí mismo; esta ayuda es para los callers (handlers HTTP, consumidores).
func WithConflictRetry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !errors.Is(err, domain.ErrConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return err
		}
	}
	return err
}
