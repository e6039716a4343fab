package actors

import (
	"fmt"
	"log"
	"time"

	"marker-map/internal/database"
	"marker-map/internal/models"
	"marker-map/internal/utils"

	stdctx "context"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Plan prices in rubles, mirroring the mock Enot checkout.
const (
	trialPriceRub   = 1
	monthlyPriceRub = 149
)

type (
	CreatePaymentMsg struct {
		UserID string
		Plan   models.PaymentPlan
	}

	GetPaymentMsg struct {
		PaymentID uuid.UUID
	}

	// PaymentWebhookMsg is the provider callback. A "success" status
	// completes the purchase and grants PRO for the plan duration.
	PaymentWebhookMsg struct {
		PaymentID uuid.UUID
		Status    models.PaymentStatus
	}
)

// PaymentActor owns payment records. The checkout itself is mocked: the
// descriptor carries a stub redirect URL and the grant happens only when
// the webhook confirms the payment.
type PaymentActor struct {
	paymentsByID map[uuid.UUID]*models.Payment
	metrics      *utils.MetricsCollector
	enginePID    *actor.PID
	mongodb      *database.MongoDB
}

func NewPaymentActor(metrics *utils.MetricsCollector, enginePID *actor.PID, mongodb *database.MongoDB) actor.Actor {
	return &PaymentActor{
		paymentsByID: make(map[uuid.UUID]*models.Payment),
		metrics:      metrics,
		enginePID:    enginePID,
		mongodb:      mongodb,
	}
}

func (a *PaymentActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *CreatePaymentMsg:
		startTime := time.Now()

		if msg.Plan != models.PlanTrial && msg.Plan != models.PlanMonthly {
			context.Respond(utils.NewAppError(utils.ErrInvalidInput, "Unknown payment plan: "+string(msg.Plan), nil))
			return
		}

		amount := monthlyPriceRub
		if msg.Plan == models.PlanTrial {
			amount = trialPriceRub
		}

		externalID := uuid.New().String()
		payment := &models.Payment{
			ID:         uuid.New(),
			UserID:     msg.UserID,
			Provider:   "enot",
			ExternalID: externalID,
			Plan:       msg.Plan,
			AmountRub:  amount,
			Status:     models.PaymentCreated,
			LinkURL:    fmt.Sprintf("https://pay.enot.example/mock/%s?amount=%d", externalID, amount),
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
		}
		a.paymentsByID[payment.ID] = payment
		a.persist(payment)

		a.metrics.AddOperationLatency("create_payment", time.Since(startTime))
		context.Respond(payment)

	case *GetPaymentMsg:
		if payment, exists := a.paymentsByID[msg.PaymentID]; exists {
			context.Respond(payment)
		} else {
			context.Respond(utils.NewAppError(utils.ErrNotFound, "Payment not found: "+msg.PaymentID.String(), nil))
		}

	case *PaymentWebhookMsg:
		payment, exists := a.paymentsByID[msg.PaymentID]
		if !exists {
			context.Respond(utils.NewAppError(utils.ErrNotFound, "Payment not found: "+msg.PaymentID.String(), nil))
			return
		}

		alreadySucceeded := payment.Status == models.PaymentSuccess
		payment.Status = msg.Status
		payment.UpdatedAt = time.Now()
		a.persist(payment)

		if msg.Status == models.PaymentSuccess && !alreadySucceeded {
			until := time.Now().AddDate(0, 1, 0)
			if payment.Plan == models.PlanTrial {
				until = time.Now().AddDate(0, 0, 7)
			}
			log.Printf("PaymentActor: payment %s confirmed, granting PRO to %s", payment.ID, payment.UserID)
			context.Send(a.enginePID, &GrantProMsg{
				UserID:  payment.UserID,
				Until:   until,
				SubType: "paid",
				Source:  "enot",
			})
		}

		context.Respond(payment)
	}
}

func (a *PaymentActor) persist(payment *models.Payment) {
	if a.mongodb == nil {
		return
	}
	ctx := stdctx.Background()
	if err := a.mongodb.SavePayment(ctx, payment); err != nil {
		log.Printf("PaymentActor: failed to save payment %s: %v", payment.ID, err)
	}
}
