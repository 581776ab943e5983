package matchmaking

import "time"

// Recorder receives activity measurements from the engine.
type Recorder interface {
	InviteOutcome(outcome string)
	CallStarted()
	CallFinalized(recorded bool, duration time.Duration)
	PresenceCounts(online, available int)
	ActiveRooms(n int)
}

// Invite outcomes reported to the Recorder.
const (
	OutcomeSent      = "sent"
	OutcomeAccepted  = "accepted"
	OutcomeDeclined  = "declined"
	OutcomeRescinded = "rescinded"
	OutcomeWithdrawn = "withdrawn"
	OutcomeRejected  = "rejected"
)

type nopRecorder struct{}

func (nopRecorder) InviteOutcome(string) {}
func (nopRecorder) CallStarted() {}
func (nopRecorder) CallFinalized(bool, time.Duration) {}
func (nopRecorder) PresenceCounts(int, int) {}
func (nopRecorder) ActiveRooms(int) {}
