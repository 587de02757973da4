package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Role is the closed set of principal roles known to the platform.
type Role string

const (
	RoleVisitor       Role = "VISITOR"
	RoleBusinessOwner Role = "BUSINESS_OWNER"
	RoleAdmin         Role = "ADMIN"
	RoleModerator     Role = "MODERATOR"
	RoleFinance       Role = "FINANCE"
	RoleSupport       Role = "SUPPORT"
)

const (
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

// AdminRoles lists every role that may enter the administration area.
var AdminRoles = []Role{RoleAdmin, RoleModerator, RoleFinance, RoleSupport}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleVisitor, RoleBusinessOwner, RoleAdmin, RoleModerator, RoleFinance, RoleSupport:
		return true
	}
	return false
}

// IsAdmin reports whether r belongs to the administrative staff roles.
func (r Role) IsAdmin() bool {
	for _, admin := range AdminRoles {
		if r == admin {
			return true
		}
	}
	return false
}

type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email       string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Password    string         `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role        Role           `gorm:"type:varchar(50);default:'VISITOR'" json:"role" validate:"required,oneof=VISITOR BUSINESS_OWNER ADMIN MODERATOR FINANCE SUPPORT"`
	Status      string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	LastLoginAt *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// CreateUser builds a validated, active user with a hashed password. It does not persist.
func CreateUser(name string, email string, password string, role Role) (*User, error) {
	u := &User{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     role,
		Status:   STATUS_ACTIVE,
	}

	// validate the plain password length before it is replaced by the hash
	if err := u.Validate(); err != nil {
		return nil, err
	}

	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u.Password = pw

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}
