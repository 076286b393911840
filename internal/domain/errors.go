package domain

import "errors"

var (
	// ErrInvalidExpiry indica una fecha de expiración que no cumple "YYYYMMDD".
	ErrInvalidExpiry = errors.New("invalid expiry")
	// ErrNoConvergence indica que el solver de IV no encontró una volatilidad válida.
	ErrNoConvergence = errors.New("implied volatility did not converge")
	// ErrInsufficientData indica historia más corta que la ventana pedida.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrUnknownRule se devuelve al actualizar una regla que no existe.
	ErrUnknownRule = errors.New("unknown threshold rule")
	// ErrInvalidRule se devuelve cuando una actualización deja las reglas inconsistentes.
	ErrInvalidRule = errors.New("invalid threshold rule")
	// ErrInvalidInput marca argumentos de nivel superior fuera de dominio (strike negativo, etc.).
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownSymbol lo devuelven los proveedores de datos cuando no conocen el símbolo.
	ErrUnknownSymbol = errors.New("unknown symbol")
)
