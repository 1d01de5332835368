package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/andsoler0309/HR-app-sub001/internal/pkg/cache"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/database"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/env"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/subscription"
)

func subscriptionService() *subscription.Service {
	return subscription.NewServiceFromDB(database.GetDB()).
		UseStatusCache(cache.NewDefaultStatusCache())
}

type startCheckoutRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	PlanType string `json:"plan_type" validate:"omitempty,oneof=monthly yearly"`
	Amount   string `json:"amount" validate:"required"`
	Currency string `json:"currency" validate:"omitempty,len=3"`
}

// HandleStartCheckout creates the pending subscription and hands the client
// everything it needs to open the PayU checkout form.
func HandleStartCheckout(c *fiber.Ctx) error {
	var req startCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	if req.Currency == "" {
		req.Currency = "COP"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sub, err := subscriptionService().StartCheckout(ctx, req.UserID, req.PlanType)
	if err != nil {
		log.Errorf("checkout: create pending subscription failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "checkout_failed"})
	}

	signer := payuSignerFromEnv()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"subscription_id": sub.ID,
		"reference_code":  sub.ReferenceCode,
		"status":          sub.Status,
		"signature":       signer.CheckoutSignature(sub.ReferenceCode, req.Amount, req.Currency),
		"merchant_id":     env.GetEnv("PAYU_MERCHANT_ID", ""),
		"account_id":      env.GetEnv("PAYU_ACCOUNT_ID", ""),
		"test":            env.GetEnv("PAYU_TEST", "0"),
	})
}

type cancelSubscriptionRequest struct {
	UserID            string `json:"user_id" validate:"required"`
	Reason            string `json:"reason" validate:"omitempty,max=255"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
}

// HandleCancelSubscription processes a user-initiated cancellation.
func HandleCancelSubscription(c *fiber.Ctx) error {
	var req cancelSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	outcome, err := subscriptionService().CancelByUser(ctx, req.UserID, req.Reason, req.CancelAtPeriodEnd)
	if err != nil {
		if errors.Is(err, subscription.ErrNoActiveSubscription) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no_active_subscription"})
		}
		log.Errorf("cancel subscription: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cancel_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"result": string(outcome)})
}

type activateRecentRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// HandleActivateRecent reconciles the success-page return: the provider
// redirect carries no trustworthy parameters, so the most recent pending
// subscription within the activation window is activated instead.
func HandleActivateRecent(c *fiber.Ctx) error {
	var req activateRecentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	outcome, err := subscriptionService().ReconcileSuccess(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, subscription.ErrNoActivatableSubscription) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":    "no_activatable_subscription",
				"redirect": "/settings?subscription=error",
			})
		}
		log.Errorf("activate recent: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "activation_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"result": string(outcome)})
}
