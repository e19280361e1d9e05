package server

import (
	"fmt"
	"testing"

	"gruenerator-be/internal/service"
	"gruenerator-be/pkg/interactive"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestMapDomainErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"session not found", fmt.Errorf("continue: %w", interactive.ErrSessionNotFound), fiber.StatusNotFound},
		{"validation", &interactive.ValidationError{Fields: []string{"thema"}}, fiber.StatusBadRequest},
		{"history", service.ErrHistoryUnavailable, fiber.StatusServiceUnavailable},
		{"generation", &interactive.GenerationError{Message: "x"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapDomainErrors(tt.err))
		})
	}
}
