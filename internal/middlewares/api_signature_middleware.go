package middlewares

import (
	"github.com/angelsbailbonds/opsflow/internal/auth"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// APISignatureMiddleware guards routes called by opsflow itself, such as
// `opsflow log-session --server`.
func APISignatureMiddleware(verifier *auth.APISignatureVerifier) fiber.Handler {
	return func(c fiber.Ctx) error {
		signatureHeader := c.Get(auth.SignatureHeader)
		timestampHeader := c.Get(auth.TimestampHeader)

		err := verifier.VerifyRequest(c.Method(), c.Path(), signatureHeader, timestampHeader, c.Body())
		if err != nil {
			log.Error().
				Err(err).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Str("timestamp", timestampHeader).
				Msg("API signature verification failed")

			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid API signature",
			})
		}

		log.Debug().
			Str("path", c.Path()).
			Str("method", c.Method()).
			Msg("API signature verified successfully")

		return c.Next()
	}
}

// ClickUpSignatureMiddleware checks ClickUp webhook deliveries.
func ClickUpSignatureMiddleware(verifier *auth.ClickUpVerifier) fiber.Handler {
	return func(c fiber.Ctx) error {
		if err := verifier.VerifyBody(c.Get(auth.ClickUpSignatureHeader), c.Body()); err != nil {
			log.Error().
				Err(err).
				Str("path", c.Path()).
				Msg("ClickUp webhook signature verification failed")

			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid webhook signature",
			})
		}

		return c.Next()
	}
}
