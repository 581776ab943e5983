package matchmaking

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Candidate is one entry of a requester's queue.
type Candidate struct {
	UserID            uuid.UUID  `json:"userId"`
	DisplayName       string     `json:"displayName"`
	Gender            string     `json:"gender"`
	HasCooldown       bool       `json:"hasCooldown"`
	CooldownExpiresAt *time.Time `json:"cooldownExpiresAt,omitempty"`
	Introduced        bool       `json:"introduced"`
}

type QueueView struct {
	Candidates       []Candidate `json:"candidates"`
	TotalOnlineCount int         `json:"totalOnlineCount"`
}

// Queue derives per-requester views from presence. Nothing is stored.
type Queue struct {
	presence  *PresenceRegistry
	cooldowns *CooldownLedger
	users     UserDirectory
}

// View lists the available users the requester may see. Users in hidden
// (those the requester reported) are left out; cooldowns and introductions
// only annotate. TotalOnlineCount counts every available user, the requester
// included, so it matches the QUEUE_CHANGED broadcast for every viewer.
func (q *Queue) View(requesterID uuid.UUID, hidden, introduced map[uuid.UUID]bool) QueueView {
	ids := q.presence.Snapshot(requesterID)
	_, available := q.presence.Counts()
	view := QueueView{
		Candidates:       make([]Candidate, 0, len(ids)),
		TotalOnlineCount: available,
	}

	for _, id := range ids {
		if hidden[id] {
			continue
		}
		c := Candidate{UserID: id, Introduced: introduced[id]}
		if user, ok := q.users.Peek(id); ok {
			c.DisplayName = user.DisplayName
			c.Gender = user.Gender
		}
		if expiresAt, ok := q.cooldowns.ExpiryOf(requesterID, id); ok {
			c.HasCooldown = true
			c.CooldownExpiresAt = &expiresAt
		}
		view.Candidates = append(view.Candidates, c)
	}

	sort.Slice(view.Candidates, func(i, j int) bool {
		a, b := view.Candidates[i], view.Candidates[j]
		if a.DisplayName != b.DisplayName {
			return a.DisplayName < b.DisplayName
		}
		return a.UserID.String() < b.UserID.String()
	})
	return view
}
