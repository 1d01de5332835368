package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"

	"github.com/andsoler0309/HR-app-sub001/app/models"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/database"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/env"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/mercadopago"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/payu"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/subscription"
)

// HandleMercadoPagoWebhook processes MercadoPago payment notifications. The
// x-signature header is verified before anything is trusted; the original
// integration skipped this, which is exactly the gap this closes.
func HandleMercadoPagoWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	ev, err := mercadopago.ParseEvent(rawBody)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	secret := env.GetEnv("MP_WEBHOOK_SECRET", "")
	signatureValid := mercadopago.VerifySignature(
		c.Get("x-signature"), c.Get("x-request-id"), ev.Data.ID, secret, time.Now())

	svc := subscription.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	eventID := ev.Data.ID + ":" + ev.Action
	created, stored, err := svc.RecordWebhookEvent(ctx,
		models.WebhookProviderMercadoPago, eventID, ev.Action, string(rawBody), signatureValid)
	if err != nil {
		log.Errorf("mercadopago webhook: persist event failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "duplicate": true})
	}
	if !signatureValid {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, payu.ErrInvalidSignature)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	if ev.Type != mercadopago.EventTypePayment || ev.Data.ExternalReference == "" {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, nil)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "ignored": true})
	}

	var outcome subscription.Outcome
	switch ev.Data.Status {
	case "approved", "":
		// Some notification payloads omit the status and carry only the
		// payment id; those are treated as approved.
		outcome, err = svc.ActivateForUser(ctx,
			ev.Data.ExternalReference, models.PaymentProviderMercadoPago, ev.Data.ID, decimal.Zero, "COP")
	case "rejected", "cancelled":
		// Declines never touch the profile; the pending row is left for the
		// sweep, matching how declines without a reference resolve.
		outcome = subscription.OutcomeIgnored
	default:
		// pending / in_process: funds not confirmed yet, record the attempt
		// without granting anything.
		outcome, err = svc.RecordPendingForUser(ctx,
			ev.Data.ExternalReference, models.PaymentProviderMercadoPago, ev.Data.ID, decimal.Zero, "COP")
	}
	_ = svc.MarkWebhookProcessed(ctx, stored.ID, err)
	if err != nil {
		log.Errorf("mercadopago webhook: processing failed for %s: %v", ev.Data.ExternalReference, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "result": string(outcome)})
}
