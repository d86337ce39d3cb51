package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patrolops/api/internal/model"
)

func TestBusDeliversToEverySubscriber(t *testing.T) {
	bus := NewBus()
	var got []string
	bus.Subscribe(func(e model.OperativeEvent) { got = append(got, "a:"+e.ID) })
	bus.Subscribe(func(e model.OperativeEvent) { got = append(got, "b:"+e.ID) })

	require.NoError(t, bus.Publish(context.Background(), model.OperativeEvent{
		Kind: model.EventOperativeCreated,
		ID:   "OP24050101",
	}))
	assert.Equal(t, []string{"a:OP24050101", "b:OP24050101"}, got)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "ops.operative.concluded", Subject(model.EventOperativeConcluded))
}
