package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/andsoler0309/HR-app-sub001/app/models"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/database"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/env"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/payu"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/subscription"
)

var validate = validator.New()

func payuSignerFromEnv() *payu.Signer {
	return payu.NewSigner(
		env.GetEnv("PAYU_API_KEY", ""),
		env.GetEnv("PAYU_MERCHANT_ID", ""),
	)
}

// HandlePayUConfirmation processes the PayU confirmation webhook. Nothing is
// mutated before the signature verifies; a redelivered transaction
// short-circuits on the webhook event dedup key.
func HandlePayUConfirmation(c *fiber.Ctx) error {
	var conf payu.Confirmation
	if err := c.BodyParser(&conf); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	signature := strings.TrimSpace(c.Get("payu-signature"))
	if signature == "" {
		signature = strings.TrimSpace(conf.Sign)
	}

	signer := payuSignerFromEnv()
	signatureValid := signer.VerifyConfirmation(signature, conf.ReferenceSale, conf.Value, conf.Currency, conf.StatePol)

	svc := subscription.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	created, stored, err := svc.RecordWebhookEvent(ctx,
		models.WebhookProviderPayU, conf.EventID(), "confirmation", string(c.BodyRaw()), signatureValid)
	if err != nil {
		log.Errorf("payu webhook: persist event failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "duplicate": true})
	}
	if !signatureValid {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, payu.ErrInvalidSignature)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	outcome, err := svc.HandlePayUConfirmation(ctx, conf)
	_ = svc.MarkWebhookProcessed(ctx, stored.ID, err)
	if err != nil {
		log.Errorf("payu webhook: processing failed for %s: %v", conf.ReferenceSale, err)
		// Let PayU redeliver.
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "result": string(outcome)})
}

// HandlePayUResponse handles the browser redirect back from PayU. It is not
// a JSON API; the outcome lands on the dashboard as a query parameter.
func HandlePayUResponse(c *fiber.Ctx) error {
	statePol := strings.TrimSpace(c.FormValue("state_pol"))
	if statePol == "" {
		statePol = strings.TrimSpace(c.Query("state_pol"))
	}

	var outcome string
	switch payu.ParseStatePol(statePol) {
	case payu.StateApproved:
		outcome = "success"
	case payu.StateDeclined, payu.StateExpired:
		outcome = "failed"
	case payu.StatePending:
		outcome = "pending"
	default:
		outcome = "error"
	}

	return c.Redirect("/dashboard?payment="+outcome, fiber.StatusSeeOther)
}

type payuSignatureRequest struct {
	ReferenceCode string `json:"referenceCode" validate:"required"`
	Amount        string `json:"amount" validate:"required"`
	Currency      string `json:"currency" validate:"required,len=3"`
}

// HandlePayUSignature computes the checkout-initiation signature the client
// embeds in the payment form.
func HandlePayUSignature(c *fiber.Ctx) error {
	var req payuSignatureRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	signer := payuSignerFromEnv()
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"signature": signer.CheckoutSignature(req.ReferenceCode, req.Amount, req.Currency),
	})
}

type cancelWebhookRequest struct {
	SubscriptionID string `json:"subscription_id" form:"subscription_id" validate:"required"`
}

// HandleCancelWebhook processes the provider-signed cancellation webhook.
func HandleCancelWebhook(c *fiber.Ctx) error {
	var req cancelWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed"})
	}

	signer := payuSignerFromEnv()
	if !signer.VerifyCancellation(c.Get("payu-signature"), req.SubscriptionID) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	svc := subscription.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	outcome, err := svc.CancelByReference(ctx, req.SubscriptionID)
	if err != nil {
		log.Errorf("cancel webhook: processing failed for %s: %v", req.SubscriptionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "result": string(outcome)})
}
