package nats

import (
	"testing"

	"gruenerator-be/pkg/events"

	"github.com/stretchr/testify/assert"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "gruenerator.events.generation.completed", Subject(events.GenerationCompleted))
	assert.Equal(t, "gruenerator.events.>", Subject(">"))
}
