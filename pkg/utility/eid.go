package utility

import (
	"github.com/google/uuid"
)

// ExecutionID identifies one backtest run. Parallel runs each carry their own.
type ExecutionID = uuid.UUID

func NewExecutionID() ExecutionID {
	return uuid.Must(uuid.NewV7())
}

// NewOrderID returns a time ordered unique order identifier.
func NewOrderID() string {
	return uuid.Must(uuid.NewV7()).String()
}
