package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-salon/backend/internal/model/persona"
)

func TestResolveParticipant(t *testing.T) {
	store := persona.NewMemoryStore(persona.Seed())

	p, err := ResolveParticipant(store, "pete-holmes")
	require.NoError(t, err)
	assert.Equal(t, Participant{Name: "Pete Holmes", Comedian: true}, p)

	p, err = ResolveParticipant(store, "socrates")
	require.NoError(t, err)
	assert.False(t, p.Comedian)

	_, err = ResolveParticipant(store, "alfred")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = ResolveParticipant(store, "   ")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestResolveParticipantCustomName(t *testing.T) {
	store := persona.NewMemoryStore(persona.Seed())

	p, err := ResolveParticipant(store, "  Friedrich Nietzsche ")
	require.NoError(t, err)
	assert.Equal(t, Participant{Name: "Friedrich Nietzsche"}, p)
}

func TestIsComedianIgnoresCase(t *testing.T) {
	store := persona.NewMemoryStore(persona.Seed())

	assert.True(t, isComedian(store, "DUNCAN TRUSSELL"))
	assert.False(t, isComedian(store, "Friedrich Nietzsche"))
}
