package engine

import (
	"log"

	"marker-map/internal/database"
	"marker-map/internal/engine/actors"
	"marker-map/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// routerActor forwards cross-actor messages. The marker and payment
// actors send point awards and PRO grants here instead of holding a
// direct reference to the user supervisor.
type routerActor struct {
	userSupervisor *actor.PID
}

func (r *routerActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actors.AddPointsMsg:
		context.Send(r.userSupervisor, msg)
	case *actors.GrantProMsg:
		context.Send(r.userSupervisor, msg)
	case *actor.Started, *actor.Stopping, *actor.Stopped:
		// lifecycle, nothing to route
	default:
		log.Printf("Engine: unroutable message type: %T", msg)
	}
}

// Engine coordinates communication between actors
type Engine struct {
	userSupervisor *actor.PID
	markerActor    *actor.PID
	paymentActor   *actor.PID
	routerPID      *actor.PID
}

func NewEngine(system *actor.ActorSystem, metrics *utils.MetricsCollector, mongodb *database.MongoDB, admins []string) *Engine {
	context := system.Root

	userProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewUserSupervisor(mongodb, admins)
	})
	userPID := context.Spawn(userProps)

	router := &routerActor{userSupervisor: userPID}
	routerPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return router
	}))

	markerProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewMarkerActor(metrics, routerPID, mongodb)
	})
	markerPID := context.Spawn(markerProps)

	paymentProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewPaymentActor(metrics, routerPID, mongodb)
	})
	paymentPID := context.Spawn(paymentProps)

	return &Engine{
		userSupervisor: userPID,
		markerActor:    markerPID,
		paymentActor:   paymentPID,
		routerPID:      routerPID,
	}
}

// GetUserSupervisor returns the PID of the user supervisor
func (e *Engine) GetUserSupervisor() *actor.PID {
	return e.userSupervisor
}

// GetMarkerActor returns the PID of the marker actor
func (e *Engine) GetMarkerActor() *actor.PID {
	return e.markerActor
}

// GetPaymentActor returns the PID of the payment actor
func (e *Engine) GetPaymentActor() *actor.PID {
	return e.paymentActor
}
