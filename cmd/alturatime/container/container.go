package container

import (
	"github.com/alturatime/backend/cmd/alturatime/service"
	"github.com/alturatime/backend/common/bootstrap"
)

// Container holds all initialized services.
// Services are created once at startup and shared across requests.
type Container struct {
	Components      *bootstrap.Components
	ScheduleService *service.ScheduleService
}

// NewContainer wires all services from bootstrapped components
func NewContainer(components *bootstrap.Components) (*Container, error) {
	scheduleService := service.NewScheduleService(
		components.Store,
		components.Cache,
		components.Config,
		components.Logger,
	)

	return &Container{
		Components:      components,
		ScheduleService: scheduleService,
	}, nil
}
