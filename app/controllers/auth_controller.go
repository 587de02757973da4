package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/app/repository"
	"github.com/ManuelReschke/BizFox/internal/pkg/apperror"
	"github.com/ManuelReschke/BizFox/internal/pkg/avatar"
	"github.com/ManuelReschke/BizFox/internal/pkg/flash"
	"github.com/ManuelReschke/BizFox/internal/pkg/notify"
	"github.com/ManuelReschke/BizFox/internal/pkg/session"
	"github.com/ManuelReschke/BizFox/internal/pkg/usercontext"
)

var errBadCredentials = apperror.Unauthenticated("invalid email or password")

// AuthController handles login, logout and registration
type AuthController struct {
	users      repository.UserRepository
	dispatcher notify.Dispatcher
}

func NewAuthController(users repository.UserRepository, dispatcher notify.Dispatcher) *AuthController {
	return &AuthController{users: users, dispatcher: dispatcher}
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type registerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	AccountType string `json:"accountType"`
}

// authenticate returns the active user matching the credentials.
// Unknown email, wrong password and inactive accounts look the same to the caller.
func (ac *AuthController) authenticate(req loginRequest) (*models.User, error) {
	user, err := ac.users.GetByEmail(strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errBadCredentials
		}
		return nil, apperror.Internal(err)
	}
	if !user.CheckPassword(req.Password) || !user.IsActive() {
		return nil, errBadCredentials
	}
	if err := ac.users.TouchLastLogin(user.ID); err != nil {
		log.Warnf("[Auth] failed to update last login of user %d: %v", user.ID, err)
	}
	return user, nil
}

// HandleLoginPage renders the login form
func (ac *AuthController) HandleLoginPage(c *fiber.Ctx) error {
	if usercontext.IsLoggedIn(c) {
		return c.Redirect("/", fiber.StatusSeeOther)
	}
	return c.Render("auth/login", fiber.Map{
		"Title": "Log in",
		"Flash": flash.Get(c),
		"CSRF":  c.Locals("csrf"),
	}, "layouts/main")
}

// HandleLogin processes the HTML login form
func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return flash.Error(c, "There is a problem with the login process").Redirect("/login")
	}

	user, err := ac.authenticate(req)
	if err != nil {
		return flash.Error(c, "There is a problem with the login process").Redirect("/login")
	}
	if err := session.Login(c, user.ID, user.Name, string(user.Role)); err != nil {
		log.Errorf("[Auth] session login failed: %v", err)
		return flash.Error(c, "Something went wrong, please try again").Redirect("/login")
	}

	return flash.Success(c, "Welcome back, "+user.Name).Redirect("/")
}

// HandleAPILogin establishes a session from a JSON request
func (ac *AuthController) HandleAPILogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	user, err := ac.authenticate(req)
	if err != nil {
		return respondError(c, err)
	}
	if err := session.Login(c, user.ID, user.Name, string(user.Role)); err != nil {
		return respondError(c, apperror.Internal(err))
	}
	return c.JSON(fiber.Map{"user": user})
}

// HandleLogout destroys the session and returns to the login page
func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	if err := session.Logout(c); err != nil {
		log.Warnf("[Auth] logout failed: %v", err)
	}
	return flash.Success(c, "You have been logged out").Redirect("/login")
}

// HandleAPILogout destroys the session
func (ac *AuthController) HandleAPILogout(c *fiber.Ctx) error {
	if err := session.Logout(c); err != nil {
		return respondError(c, apperror.Internal(err))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleRegister creates a visitor or business owner account and sends the welcome mail best-effort
func (ac *AuthController) HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	role := models.RoleVisitor
	switch req.AccountType {
	case "", "visitor":
	case "business_owner":
		role = models.RoleBusinessOwner
	default:
		return respondError(c, apperror.Validation("invalid account type",
			apperror.FieldError{Field: "account_type", Message: "must be one of: visitor business_owner"}))
	}

	user, err := models.CreateUser(strings.TrimSpace(req.Name), strings.TrimSpace(req.Email), req.Password, role)
	if err != nil {
		return respondError(c, apperror.FromValidator(err))
	}
	if err := ac.users.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return respondError(c, apperror.Validation("email already registered",
				apperror.FieldError{Field: "email", Message: "is already registered"}))
		}
		return respondError(c, apperror.Internal(err))
	}

	msg := notify.Message{Kind: notify.KindWelcome, Welcome: &notify.Welcome{Email: user.Email, Name: user.Name}}
	if err := ac.dispatcher.Dispatch(c.UserContext(), msg); err != nil {
		log.Warnf("[Auth] welcome notification for user %d not dispatched: %v", user.ID, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
}

// HandleMe returns the current principal and, when logged in, the user record
func (ac *AuthController) HandleMe(c *fiber.Ctx) error {
	p := usercontext.GetPrincipal(c)
	if !p.Authenticated {
		return respondError(c, apperror.Unauthenticated("login required"))
	}
	user, err := ac.users.GetByID(p.UserID)
	if err != nil {
		return respondError(c, apperror.Internal(err))
	}
	return c.JSON(fiber.Map{"principal": p, "user": user, "avatar_url": avatar.URL(user.Email, 0)})
}
