package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")
	// ErrStorageTransient: el almacenamiento no está disponible temporalmente.
	// Nada se confirmó, así que el caller puede reintentar.
	ErrStorageTransient = errors.New("almacenamiento no disponible temporalmente")
)
