package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BizFox/internal/pkg/apperror"
	"github.com/ManuelReschke/BizFox/internal/pkg/constants"
)

// listResponse wraps one page of a collection
type listResponse struct {
	Items any   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// respondError writes err with its stable code. Every handler returns through here.
func respondError(c *fiber.Ctx, err error) error {
	return apperror.Respond(c, err)
}

// paramID parses a positive numeric route parameter
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.Validation("invalid "+name, apperror.FieldError{Field: name, Message: "must be a positive integer"})
	}
	return uint(id), nil
}

// pagination reads page and limit query values, clamped to sane bounds
func pagination(c *fiber.Ctx) (page, limit, offset int) {
	page = c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	if page > constants.MaxPage {
		page = constants.MaxPage
	}
	limit = c.QueryInt("limit", constants.DefaultPageSize)
	if limit < 1 {
		limit = constants.DefaultPageSize
	}
	if limit > constants.MaxPageSize {
		limit = constants.MaxPageSize
	}
	return page, limit, (page - 1) * limit
}

// parseBody decodes the JSON request body into out
func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperror.Validation("invalid request body")
	}
	return nil
}
