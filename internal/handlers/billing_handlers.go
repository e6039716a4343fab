package handlers

import (
	"encoding/json"
	"net/http"

	"marker-map/internal/engine/actors"
	"marker-map/internal/models"
	"marker-map/internal/utils"

	"github.com/google/uuid"
)

// CreatePaymentRequest starts a mock checkout for the given plan.
type CreatePaymentRequest struct {
	Plan string `json:"plan"`
}

// PaymentResponse is the descriptor the client redirects with.
type PaymentResponse struct {
	PaymentID string `json:"paymentId"`
	URL       string `json:"url"`
	Status    string `json:"status"`
}

// EnotWebhookRequest is the provider status callback.
type EnotWebhookRequest struct {
	PaymentID string `json:"paymentId"`
	Status    string `json:"status"`
}

// HandleCreatePayment creates a mock payment and returns the redirect
// descriptor. The PRO grant happens only on webhook confirmation.
func (s *Server) HandleCreatePayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		user, appErr := s.resolveClient(r)
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}

		var req CreatePaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		future := s.Context.RequestFuture(s.Engine.GetPaymentActor(), &actors.CreatePaymentMsg{
			UserID: user.ID,
			Plan:   models.PaymentPlan(req.Plan),
		}, s.RequestTimeout)
		result, err := future.Result()
		if err != nil {
			http.Error(w, "Failed to create payment", http.StatusInternalServerError)
			return
		}

		if appErr, ok := result.(*utils.AppError); ok {
			s.writeAppError(w, appErr)
			return
		}

		payment, ok := result.(*models.Payment)
		if !ok {
			http.Error(w, "Unexpected payment response", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, &PaymentResponse{
			PaymentID: payment.ID.String(),
			URL:       payment.LinkURL,
			Status:    string(payment.Status),
		})
	}
}

// HandlePaymentStatus reports the current state of a payment. The
// client polls this after returning from the mock redirect.
func (s *Server) HandlePaymentStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		paymentID, err := uuid.Parse(r.URL.Query().Get("payment_id"))
		if err != nil {
			http.Error(w, "Invalid payment ID format", http.StatusBadRequest)
			return
		}

		future := s.Context.RequestFuture(s.Engine.GetPaymentActor(),
			&actors.GetPaymentMsg{PaymentID: paymentID}, s.RequestTimeout)
		result, err := future.Result()
		if err != nil {
			http.Error(w, "Failed to get payment", http.StatusInternalServerError)
			return
		}

		if appErr, ok := result.(*utils.AppError); ok {
			s.writeAppError(w, appErr)
			return
		}

		payment, ok := result.(*models.Payment)
		if !ok {
			http.Error(w, "Unexpected payment response", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, &PaymentResponse{
			PaymentID: payment.ID.String(),
			URL:       payment.LinkURL,
			Status:    string(payment.Status),
		})
	}
}

// HandleMySubscriptions returns the caller's subscription history,
// newest first. Without a database nothing is recorded and the list
// is empty.
func (s *Server) HandleMySubscriptions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		user, appErr := s.resolveClient(r)
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}

		subs := make([]*models.Subscription, 0)
		if s.MongoDB != nil {
			loaded, err := s.MongoDB.ListSubscriptions(r.Context(), user.ID)
			if err != nil {
				http.Error(w, "Failed to load subscriptions", http.StatusInternalServerError)
				return
			}
			if loaded != nil {
				subs = loaded
			}
		}
		writeJSON(w, http.StatusOK, subs)
	}
}

// HandleEnotWebhook applies a provider status update to a payment.
func (s *Server) HandleEnotWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req EnotWebhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		paymentID, err := uuid.Parse(req.PaymentID)
		if err != nil {
			http.Error(w, "Invalid payment ID format", http.StatusBadRequest)
			return
		}

		future := s.Context.RequestFuture(s.Engine.GetPaymentActor(), &actors.PaymentWebhookMsg{
			PaymentID: paymentID,
			Status:    models.PaymentStatus(req.Status),
		}, s.RequestTimeout)
		result, err := future.Result()
		if err != nil {
			http.Error(w, "Failed to process webhook", http.StatusInternalServerError)
			return
		}

		if appErr, ok := result.(*utils.AppError); ok {
			s.writeAppError(w, appErr)
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}
