// Package flash carries one-shot messages across HTML redirects.
package flash

import (
	"github.com/gofiber/fiber/v2"
	sflash "github.com/sujit-baniya/flash"
)

const (
	KeyType    = "type"
	KeyMessage = "message"
)

// Error stores an error message for the next request and returns c for chaining a redirect
func Error(c *fiber.Ctx, message string) *fiber.Ctx {
	return sflash.WithError(c, fiber.Map{KeyType: "error", KeyMessage: message})
}

// Success stores a success message for the next request
func Success(c *fiber.Ctx, message string) *fiber.Ctx {
	return sflash.WithSuccess(c, fiber.Map{KeyType: "success", KeyMessage: message})
}

// Get returns the message left by the previous request, nil when there is none
func Get(c *fiber.Ctx) fiber.Map {
	data := sflash.Get(c)
	if len(data) == 0 {
		return nil
	}
	return data
}
