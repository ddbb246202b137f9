package controllers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/markbates/goth"
	gothfiber "github.com/shareed2k/goth_fiber"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/CreditFox/app/models"
	"github.com/ManuelReschke/CreditFox/internal/pkg/constants"
	"github.com/ManuelReschke/CreditFox/internal/pkg/database"
	"github.com/ManuelReschke/CreditFox/internal/pkg/identity"
	"github.com/ManuelReschke/CreditFox/internal/pkg/session"
)

// Replaced in tests, which have neither a provider round trip nor MySQL.
var (
	completeUserAuth = func(c *fiber.Ctx) (goth.User, error) { return gothfiber.CompleteUserAuth(c) }
	recordAccount    = recordProviderAccount
)

// HandleOAuthBegin handles GET /auth/:provider
func HandleOAuthBegin(c *fiber.Ctx) error {
	return gothfiber.BeginAuthHandler(c)
}

// HandleOAuthCallback completes the provider flow and stores the email the
// identity resolver will use.
func HandleOAuthCallback(c *fiber.Ctx) error {
	u, err := completeUserAuth(c)
	if err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": fmt.Sprintf("Login failed: %v", err)}).Redirect(constants.PublicRoute)
	}
	email := identity.NormalizeEmail(u.Email)
	if email == "" {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Your account did not share an email address."}).Redirect(constants.PublicRoute)
	}

	if err := recordAccount(u, email); err != nil {
		log.Errorf("[OAuth] failed to record %s account %s: %v", u.Provider, u.UserID, err)
	}

	if err := session.SetSessionValues(c, map[string]string{
		session.KeyEmail:    email,
		session.KeyName:     firstNonEmpty(u.Name, u.NickName, email),
		session.KeyProvider: u.Provider,
	}); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("session save failed")
	}

	return c.Redirect("/", fiber.StatusSeeOther)
}

func recordProviderAccount(u goth.User, email string) error {
	db := database.GetDB()
	if db == nil {
		return nil
	}
	return upsertProviderAccount(db, u, email)
}

func upsertProviderAccount(db *gorm.DB, u goth.User, email string) error {
	now := time.Now()
	pa := models.ProviderAccount{
		Provider:       u.Provider,
		ProviderUserID: u.UserID,
		Email:          email,
		Name:           firstNonEmpty(u.Name, u.NickName),
		LastLoginAt:    &now,
	}
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_user_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "last_login_at", "updated_at"}),
	}).Create(&pa).Error
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
