package models

import "time"

// Participant is a person eligible to give and receive in the raffle
// Maps to: participant table
type Participant struct {
	// Store-assigned identifier, stable for the participant's lifetime
	ID int64 `db:"id" json:"id"`

	// Display name
	Name string `db:"name" json:"name"`

	// Contact address (e-mail), unique across participants
	Contact string `db:"contact" json:"contact"`

	// Participant this one gives to. Weak reference: the target may have
	// been deleted since the last generation run.
	RecipientID *int64 `db:"recipient_id" json:"recipient_id"`

	// Audit fields
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Editable returns the fields a client may change
func (p *Participant) Editable() ParticipantPatch {
	name, contact := p.Name, p.Contact
	return ParticipantPatch{Name: &name, Contact: &contact}
}

// ParticipantInput is the payload for creating a participant
type ParticipantInput struct {
	Name    string `json:"name" validate:"required,max=255"`
	Contact string `json:"contact" validate:"required,email,max=255"`
}

// ParticipantPatch carries a partial update; nil fields are left unchanged
type ParticipantPatch struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Contact *string `json:"contact,omitempty" validate:"omitempty,email,max=255"`
}

// Apply copies the non-nil fields onto p
func (u ParticipantPatch) Apply(p *Participant) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Contact != nil {
		p.Contact = *u.Contact
	}
}
