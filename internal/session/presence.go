package session

import (
	"encoding/json"
	"log/slog"
)

// PresenceManager is the live roster of a room: who is connected, where
// their cursor is and what they have selected. It is owned by the room
// goroutine and must not be touched from anywhere else; that is what
// makes it safe without locking.
type PresenceManager struct {
	roster map[string]*PresencePayload // userID -> latest presence
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{roster: make(map[string]*PresencePayload)}
}

// Update records a participant's latest presence, stamping it with the
// server-side display name so clients cannot spoof each other.
func (pm *PresenceManager) Update(userID, displayName string, p *PresencePayload) {
	p.DisplayName = displayName
	pm.roster[userID] = p
}

func (pm *PresenceManager) Remove(userID string) {
	delete(pm.roster, userID)
}

// StateMessage snapshots the roster for a joining client. Nil when the
// room has nobody to report.
func (pm *PresenceManager) StateMessage() *Message {
	if len(pm.roster) == 0 {
		return nil
	}

	state := make(map[string]*PresencePayload, len(pm.roster))
	for userID, p := range pm.roster {
		state[userID] = p
	}

	payload, err := json.Marshal(PresenceStatePayload{Presences: state})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return &Message{Type: TypePresenceState, Payload: payload}
}
