package models

import "github.com/google/uuid"

// Pairing is one edge of a generated assignment cycle.
// Both sides carry the full record as stored once the run has linked
// every participant.
type Pairing struct {
	Giver     Participant `json:"giver"`
	Recipient Participant `json:"recipient"`
}

// AssignmentRow is one line of the assignment read-out.
// Recipient fields are nil when the giver has no recipient or the
// referenced participant no longer exists.
type AssignmentRow struct {
	GiverName        string  `json:"giver_name"`
	GiverContact     string  `json:"giver_contact"`
	RecipientName    *string `json:"recipient_name"`
	RecipientContact *string `json:"recipient_contact"`
}

// AssignmentEvent is published once per pairing after a generation run commits
type AssignmentEvent struct {
	GenerationID     uuid.UUID `json:"generation_id"`
	GiverID          int64     `json:"giver_id"`
	GiverName        string    `json:"giver_name"`
	GiverContact     string    `json:"giver_contact"`
	RecipientID      int64     `json:"recipient_id"`
	RecipientName    string    `json:"recipient_name"`
	RecipientContact string    `json:"recipient_contact"`
}

// NewAssignmentEvent builds the queue payload for a pairing
func NewAssignmentEvent(generationID uuid.UUID, p Pairing) AssignmentEvent {
	return AssignmentEvent{
		GenerationID:     generationID,
		GiverID:          p.Giver.ID,
		GiverName:        p.Giver.Name,
		GiverContact:     p.Giver.Contact,
		RecipientID:      p.Recipient.ID,
		RecipientName:    p.Recipient.Name,
		RecipientContact: p.Recipient.Contact,
	}
}
