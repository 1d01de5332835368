package controllers

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/andsoler0309/HR-app-sub001/internal/pkg/cache"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/database"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/env"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/subscription"
)

// cronAuthorized checks the Bearer token against CRON_SECRET. An unset
// secret rejects everything rather than opening the endpoint.
func cronAuthorized(c *fiber.Ctx) bool {
	secret := env.GetEnv("CRON_SECRET", "")
	if secret == "" {
		return false
	}
	header := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

// HandleSubscriptionCleanup runs the lifecycle sweeps on demand. The external
// cron caller triggers this alongside the in-process scheduler; every sweep
// transition is a compare-and-swap, so the overlap is harmless.
func HandleSubscriptionCleanup(c *fiber.Ctx) error {
	if !cronAuthorized(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	svc := subscription.NewServiceFromDB(database.GetDB()).
		UseStatusCache(cache.NewDefaultStatusCache())
	result := svc.RunCleanup(ctx)

	if len(result.Errors) > 0 {
		log.Warnf("subscription cleanup finished with errors: %v", result.Errors)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// HandleCronHealth is the liveness probe for the cron caller.
func HandleCronHealth(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}
