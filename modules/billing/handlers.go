package billing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/studyforge/billing/core"
	"github.com/studyforge/billing/pkg/billing"
	"github.com/studyforge/billing/pkg/plan"
	"github.com/studyforge/billing/pkg/quota"
)

type ctxKey int

const userIDKey ctxKey = iota

// maxWebhookBody caps webhook payload reads. Stripe events are a few KB.
const maxWebhookBody = 1 << 20

// requireUserID extracts the user identity injected by the gateway.
func requireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.Header.Get("X-User-ID"))
		if err != nil || userID == uuid.Nil {
			core.JSONError(w, core.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func userIDFrom(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(userIDKey).(uuid.UUID)
	return id
}

type handlers struct {
	svc    billing.Service
	quotas quota.Service
	log    *slog.Logger
}

type stateResponse struct {
	Tier               plan.Tier                         `json:"tier"`
	Status             billing.Status                    `json:"status"`
	CancelAtPeriodEnd  bool                              `json:"cancel_at_period_end"`
	CurrentPeriodEnd   *time.Time                        `json:"current_period_end,omitempty"`
	AIMinutesPurchased int64                             `json:"ai_minutes_purchased"`
	Usage              map[plan.Resource]quota.UsageInfo `json:"usage"`
	Minutes            minutesState                      `json:"minutes"`
}

type minutesState struct {
	AllowanceRemaining float64 `json:"allowance_remaining"`
	PurchasedRemaining float64 `json:"purchased_remaining"`
}

func (h *handlers) state(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFrom(ctx)

	snap, err := h.svc.GetState(ctx, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	usage, err := h.quotas.GetAllUsage(ctx, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	decision, err := h.quotas.Check(ctx, userID, plan.ResourceAIMinutes)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	sub := snap.Subscription
	resp := stateResponse{
		Tier:               sub.Tier,
		Status:             sub.Status,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		AIMinutesPurchased: sub.AIMinutesPurchased,
		Usage:              usage,
		Minutes: minutesState{
			AllowanceRemaining: decision.MinutesRemaining,
			PurchasedRemaining: decision.PurchasedRemaining,
		},
	}

	core.JSON(w, http.StatusOK, resp)
}

type planChangeRequest struct {
	Tier       plan.Tier `json:"tier"`
	Email      string    `json:"email,omitempty"`
	SuccessURL string    `json:"success_url,omitempty"`
	CancelURL  string    `json:"cancel_url,omitempty"`
}

func (h *handlers) changePlan(w http.ResponseWriter, r *http.Request) {
	var req planChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.JSONError(w, core.ErrBadRequest.WithMessage("invalid request body"))
		return
	}

	change, err := h.svc.RequestPlanChange(r.Context(), userIDFrom(r.Context()), req.Tier, billing.CheckoutOptions{
		Email:      req.Email,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	core.JSON(w, http.StatusOK, change)
}

func (h *handlers) cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CancelSubscription(r.Context(), userIDFrom(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	core.JSON(w, http.StatusOK, map[string]string{"status": "cancellation_scheduled"})
}

func (h *handlers) reactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ReactivateSubscription(r.Context(), userIDFrom(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	core.JSON(w, http.StatusOK, map[string]string{"status": "reactivated"})
}

type minutePurchaseRequest struct {
	Pack       string `json:"pack"`
	Email      string `json:"email,omitempty"`
	SuccessURL string `json:"success_url,omitempty"`
	CancelURL  string `json:"cancel_url,omitempty"`
}

func (h *handlers) purchaseMinutes(w http.ResponseWriter, r *http.Request) {
	var req minutePurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.JSONError(w, core.ErrBadRequest.WithMessage("invalid request body"))
		return
	}

	url, err := h.svc.PurchaseMinutePack(r.Context(), userIDFrom(r.Context()), req.Pack, billing.CheckoutOptions{
		Email:      req.Email,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	core.JSON(w, http.StatusOK, map[string]string{"redirect_url": url})
}

// webhook is the provider sink. It always answers quickly: 2xx acknowledges
// the event, 4xx tells the provider the payload is unusable, 5xx asks for a
// retry.
func (h *handlers) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		core.JSONError(w, core.ErrBadRequest.WithMessage("unreadable payload"))
		return
	}

	err = h.svc.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	switch {
	case err == nil:
		core.JSON(w, http.StatusOK, map[string]string{"status": "received"})
	case errors.Is(err, billing.ErrWebhookVerificationFailed):
		h.log.WarnContext(r.Context(), "webhook rejected", "error", err)
		core.JSONError(w, core.ErrBadRequest.WithMessage("signature verification failed"))
	default:
		h.log.ErrorContext(r.Context(), "webhook processing failed", "error", err)
		core.JSONError(w, core.ErrInternalServer)
	}
}

// fail maps service errors onto HTTP error responses.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, plan.ErrUnknownTier), errors.Is(err, plan.ErrPackNotFound), errors.Is(err, plan.ErrPlanNotFound):
		core.JSONError(w, core.ErrBadRequest.WithMessage(err.Error()))
	case errors.Is(err, billing.ErrAlreadyOnPlan):
		core.JSONError(w, core.ErrConflict.WithMessage("already on the requested plan"))
	case errors.Is(err, billing.ErrChangeInProgress):
		core.JSONError(w, core.ErrConflict.WithMessage("another plan change is in progress"))
	case errors.Is(err, billing.ErrNoActiveSubscription):
		core.JSONError(w, core.ErrConflict.WithMessage("no active paid subscription"))
	case errors.Is(err, billing.ErrInvalidTransition):
		core.JSONError(w, core.ErrUnprocessable.WithMessage("requested change is not possible from the current plan"))
	case errors.Is(err, quota.ErrDowngradeNotPossible):
		core.JSONError(w, core.ErrConflict.WithMessage("current usage exceeds the target plan limits"))
	case errors.Is(err, billing.ErrStateUnavailable):
		h.log.ErrorContext(r.Context(), "billing state unavailable", "error", err)
		core.JSONError(w, core.ErrServiceUnavailable.WithMessage("billing state temporarily unavailable"))
	case errors.Is(err, billing.ErrPaymentInit):
		h.log.ErrorContext(r.Context(), "payment initiation failed", "error", err)
		core.JSONError(w, core.ErrServiceUnavailable.WithMessage("payment provider unavailable, no changes were made"))
	default:
		h.log.ErrorContext(r.Context(), "billing request failed", "error", err)
		core.JSONError(w, core.ErrInternalServer)
	}
}
