package dialogue

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/z-salon/backend/internal/model/persona"
)

// ResolveParticipant looks a philosopher up by ID or display name. Names that
// match no persona are taken as custom participants; they count as comedians
// only when the name matches a seeded comedian. Companions are refused.
func ResolveParticipant(store persona.Store, ref string) (Participant, error) {
	name := strings.TrimSpace(ref)
	if name == "" {
		return Participant{}, fmt.Errorf("%w: participant is required", ErrInvalidRequest)
	}

	p, ok := persona.Resolve(store, name)
	if !ok {
		return Participant{Name: name, Comedian: isComedian(store, name)}, nil
	}
	if p.Kind != persona.KindPhilosopher {
		return Participant{}, fmt.Errorf("%w: %s cannot take part in a dialogue", ErrInvalidRequest, p.Name)
	}
	return Participant{Name: p.Name, Comedian: p.Comedian}, nil
}

func isComedian(store persona.Store, name string) bool {
	for _, c := range persona.Comedians(store) {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}
