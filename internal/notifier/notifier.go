package notifier

import (
	"log"

	"github.com/IkeLongo/collenback-strength-sub000/internal/models"
	eventws "github.com/IkeLongo/collenback-strength-sub000/internal/websocket"
)

// Notifier dispatches post-commit booking events. Delivery is best effort:
// the booking already committed, so failures here are logged and dropped.
type Notifier struct {
	hub *eventws.Hub
}

func New(hub *eventws.Hub) *Notifier {
	return &Notifier{hub: hub}
}

func (n *Notifier) SessionEvent(kind string, session *models.Session) {
	log.Printf("session %d %s (client=%d coach=%d start=%s)",
		session.ID, kind, session.ClientID, session.CoachID,
		session.ScheduledStart.UTC().Format("2006-01-02T15:04:05Z07:00"))

	if n.hub != nil {
		n.hub.BroadcastSessionEvent(kind, session)
	}
}
