package container

import (
	"fmt"

	"github.com/lyzr/raffle/cmd/raffle/feed"
	"github.com/lyzr/raffle/cmd/raffle/service"
	"github.com/lyzr/raffle/common/bootstrap"
	"github.com/lyzr/raffle/common/validation"
)

// Container holds all initialized services (singleton pattern)
type Container struct {
	Components *bootstrap.Components
	Validator  *validation.Validator

	// Services
	RaffleService      *service.RaffleService
	ParticipantService *service.ParticipantService
	Notifier           *service.Notifier

	// Feed streams assignment events to connected givers; nil without a queue
	Feed *feed.Hub
}

// NewContainer initializes all services once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	if components.Store == nil {
		return nil, fmt.Errorf("participant store is required")
	}

	validator := validation.New()

	// bottom-up: the participant service invalidates the raffle's cache
	raffleService := service.NewRaffleService(components.Store, components)
	participantService := service.NewParticipantService(
		components.Store,
		validator,
		raffleService,
		components.Logger,
	)

	var (
		notifier *service.Notifier
		hub      *feed.Hub
	)
	if components.Queue != nil {
		hub = feed.NewHub(components.Logger)
		notifier = service.NewNotifier(components.Queue, hub.Deliver, components.Logger)
	}

	return &Container{
		Components:         components,
		Validator:          validator,
		RaffleService:      raffleService,
		ParticipantService: participantService,
		Notifier:           notifier,
		Feed:               hub,
	}, nil
}
