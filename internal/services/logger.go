package services

import (
	"go.uber.org/zap"
)

// NewLogger builds the process-wide structured logger
func NewLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
