package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/internal/pkg/apperror"
	"github.com/ManuelReschke/BizFox/internal/pkg/session"
	"github.com/ManuelReschke/BizFox/internal/pkg/usercontext"
)

// UserLookup loads the current state of a session user.
// repository.UserRepository satisfies it.
type UserLookup interface {
	GetByID(id uint) (*models.User, error)
}

// UserContextMiddleware rebuilds the user context for every request from the
// session and the current user record. Role changes and disabled accounts take
// effect on the next request.
func UserContextMiddleware(users UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Goth keeps its own session on /auth/*
		if strings.HasPrefix(c.Path(), "/auth/") {
			return c.Next()
		}

		store := session.GetSessionStore()
		if store == nil {
			usercontext.Set(c, usercontext.UserContext{})
			return c.Next()
		}

		sess, err := store.Get(c)
		if err != nil {
			usercontext.Set(c, usercontext.UserContext{})
			return c.Next()
		}

		userID, ok := sess.Get(session.KeyUserID).(uint)
		if !ok || userID == 0 {
			usercontext.Set(c, usercontext.UserContext{})
			return c.Next()
		}

		user, err := users.GetByID(userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("[UserContext] loading user %d failed: %v", userID, err)
			return apperror.Respond(c, apperror.Internal(err))
		}
		if err != nil || !user.IsActive() {
			log.Infof("[UserContext] dropping session of missing or inactive user %d", userID)
			_ = sess.Destroy()
			usercontext.Set(c, usercontext.UserContext{})
			return c.Next()
		}

		usercontext.Set(c, usercontext.UserContext{
			UserID:     user.ID,
			Username:   user.Name,
			Role:       user.Role,
			IsLoggedIn: true,
			IsAdmin:    user.Role.IsAdmin(),
		})
		return c.Next()
	}
}
