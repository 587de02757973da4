package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/markbates/goth"
	gothfiber "github.com/shareed2k/goth_fiber"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/app/repository"
	"github.com/ManuelReschke/BizFox/internal/pkg/flash"
	"github.com/ManuelReschke/BizFox/internal/pkg/session"
)

// OAuthController links external provider identities to local accounts
type OAuthController struct {
	users    repository.UserRepository
	accounts repository.ProviderAccountRepository
}

func NewOAuthController(repos *repository.Repositories) *OAuthController {
	return &OAuthController{users: repos.User, accounts: repos.ProviderAccount}
}

// HandleBegin redirects to the provider consent page
func (oc *OAuthController) HandleBegin(c *fiber.Ctx) error {
	return gothfiber.BeginAuthHandler(c)
}

// HandleCallback completes the provider flow and logs the user in
func (oc *OAuthController) HandleCallback(c *fiber.Ctx) error {
	gu, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		log.Warnf("[OAuth] provider flow failed: %v", err)
		return flash.Error(c, "Login with provider failed").Redirect("/login")
	}

	user, err := oc.resolveUser(gu)
	if err != nil {
		log.Errorf("[OAuth] resolving %s user %s failed: %v", gu.Provider, gu.UserID, err)
		return flash.Error(c, "Login with provider failed").Redirect("/login")
	}
	if !user.IsActive() {
		return flash.Error(c, "Your account is disabled").Redirect("/login")
	}

	if err := session.Login(c, user.ID, user.Name, string(user.Role)); err != nil {
		log.Errorf("[OAuth] session login failed: %v", err)
		return flash.Error(c, "Something went wrong, please try again").Redirect("/login")
	}
	if err := oc.users.TouchLastLogin(user.ID); err != nil {
		log.Warnf("[OAuth] failed to update last login of user %d: %v", user.ID, err)
	}

	return c.Redirect("/", fiber.StatusSeeOther)
}

// resolveUser returns the account linked to gu, linking or creating one on first login.
// New accounts are visitors.
func (oc *OAuthController) resolveUser(gu goth.User) (*models.User, error) {
	account, err := oc.accounts.GetByProvider(gu.Provider, gu.UserID)
	switch {
	case err == nil:
		account.AccessToken = gu.AccessToken
		account.RefreshToken = gu.RefreshToken
		account.ExpiresAt = expiry(gu)
		if err := oc.accounts.Save(account); err != nil {
			return nil, err
		}
		return oc.users.GetByID(account.UserID)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	var user *models.User
	if gu.Email != "" {
		user, err = oc.users.GetByEmail(gu.Email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if user == nil {
		user, err = oc.createUser(gu)
		if err != nil {
			return nil, err
		}
	}

	account = &models.ProviderAccount{
		UserID:         user.ID,
		Provider:       gu.Provider,
		ProviderUserID: gu.UserID,
		AccessToken:    gu.AccessToken,
		RefreshToken:   gu.RefreshToken,
		ExpiresAt:      expiry(gu),
	}
	if err := oc.accounts.Save(account); err != nil {
		return nil, err
	}
	log.Infof("[OAuth] linked %s account to user %d", gu.Provider, user.ID)
	return user, nil
}

func (oc *OAuthController) createUser(gu goth.User) (*models.User, error) {
	email := gu.Email
	if email == "" {
		// unique placeholder, the column has a unique index
		email = fmt.Sprintf("%s_%s@%s.oauth.local", gu.Provider, gu.UserID, gu.Provider)
	}
	// password login stays impossible until the user sets one
	placeholder := fmt.Sprintf("oauth_%d", time.Now().UnixNano())
	user, err := models.CreateUser(firstNonEmpty(gu.Name, gu.NickName, "Directory user"), email, placeholder, models.RoleVisitor)
	if err != nil {
		return nil, err
	}
	if err := oc.users.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

func expiry(gu goth.User) *time.Time {
	if gu.ExpiresAt.IsZero() {
		return nil
	}
	t := gu.ExpiresAt
	return &t
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
