package engine

import "fmt"

// DefaultPool is the stock CS2 active-duty pool used when a room has no
// configured map pool.
func DefaultPool() []MapCard {
	names := []string{"Mirage", "Inferno", "Dust2", "Nuke", "Anubis", "Vertigo", "Ancient"}
	maps := make([]MapCard, 0, len(names))
	for i, name := range names {
		maps = append(maps, MapCard{
			ID:     fmt.Sprintf("map%02d", i+1),
			Name:   name,
			Icon:   "/assets/images/default-map-icon.png",
			Status: MapAvailable,
		})
	}
	return maps
}

// NewState builds a fresh waiting-for-roll session over the given pool.
func NewState(maps []MapCard) State {
	return State{Maps: cloneMaps(maps)}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// AvailableMaps returns the ids of maps still untouched, in pool order.
func AvailableMaps(s State) []string {
	var out []string
	for _, m := range s.Maps {
		if m.Status == MapAvailable {
			out = append(out, m.ID)
		}
	}
	return out
}
