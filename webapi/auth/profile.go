package auth

import (
	"errors"

	"github.com/amirasaad/securebank/pkg/domain/user"
	auditsvc "github.com/amirasaad/securebank/pkg/service/audit"
	authsvc "github.com/amirasaad/securebank/pkg/service/auth"
	usersvc "github.com/amirasaad/securebank/pkg/service/user"
	"github.com/amirasaad/securebank/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// GetProfile returns the caller's contact details.
// @Summary Get profile
// @Tags auth
// @Produce json
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Failure 429 {object} common.ProblemDetails
// @Router /auth/profile [get]
// @Security Bearer
func GetProfile(authSvc *authsvc.Service, userSvc *usersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.CallerIdentity(c, authSvc)
		if id == nil {
			return err
		}
		u, err := userSvc.GetUser(c.UserContext(), id.UserID)
		if err != nil {
			if errors.Is(err, user.ErrUserNotFound) {
				return common.ProblemDetailsJSON(c, "Unauthorized", user.ErrUserUnauthorized)
			}
			return common.ProblemDetailsJSON(c, "Failed to fetch profile", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Profile found", toProfileResponse(u))
	}
}

// UpdateProfile replaces the caller's contact details.
// @Summary Update profile
// @Description Replaces email, full name, phone and address. Omitted fields are cleared.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ProfileInput true "Profile"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 429 {object} common.ProblemDetails
// @Router /auth/profile [put]
// @Security Bearer
func UpdateProfile(authSvc *authsvc.Service, userSvc *usersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.CallerIdentity(c, authSvc)
		if id == nil {
			return err
		}
		input, err := common.BindAndValidate[ProfileInput](c)
		if input == nil {
			return err // Error already written by BindAndValidate
		}
		u, err := userSvc.UpdateProfile(c.UserContext(), id.UserID, user.Profile{
			Email:    input.Email,
			FullName: input.FullName,
			Phone:    input.Phone,
			Address:  input.Address,
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't update profile", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Profile updated", toProfileResponse(u))
	}
}

// ChangePassword replaces the caller's password.
// @Summary Change password
// @Description Requires the current password. Tokens issued before the change stay valid until they expire.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ChangePasswordInput true "Passwords"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails "Current password is incorrect"
// @Failure 429 {object} common.ProblemDetails
// @Router /auth/password [post]
// @Security Bearer
func ChangePassword(authSvc *authsvc.Service, userSvc *usersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.CallerIdentity(c, authSvc)
		if id == nil {
			return err
		}
		input, err := common.BindAndValidate[ChangePasswordInput](c)
		if input == nil {
			return err // Error already written by BindAndValidate
		}
		err = userSvc.ChangePassword(c.UserContext(), id.UserID, input.CurrentPassword, input.NewPassword, usersvc.ClientInfo{
			IP:        c.IP(),
			UserAgent: c.Get(fiber.HeaderUserAgent),
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't change password", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Password updated", nil)
	}
}

// Logout acknowledges a logout. Tokens are stateless, so the client drops
// its token and it stays valid until it expires.
// @Summary Logout
// @Tags auth
// @Produce json
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Router /auth/logout [post]
// @Security Bearer
func Logout(authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.CallerIdentity(c, authSvc)
		if id == nil {
			return err
		}
		log.Infof("User %d logged out", id.UserID)
		c.Set(fiber.HeaderCacheControl, "no-store")
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Logged out", nil)
	}
}

// Activity lists the caller's recent security events, newest first.
// @Summary Recent activity
// @Description Logins, registration and password changes recorded in the audit trail.
// @Tags auth
// @Produce json
// @Param limit query int false "Entries to return (1-100)" default(20)
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 429 {object} common.ProblemDetails
// @Router /auth/activity [get]
// @Security Bearer
func Activity(authSvc *authsvc.Service, auditSvc *auditsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := common.CallerIdentity(c, authSvc)
		if id == nil {
			return err
		}
		q, err := common.BindQuery[ActivityQuery](c)
		if q == nil {
			return err
		}
		entries, err := auditSvc.Recent(c.UserContext(), id.UserID, q.Limit)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to fetch activity", err)
		}
		out := make([]ActivityEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, ActivityEntry{
				Action:    e.Action,
				Details:   e.Details,
				IPAddress: e.IPAddress,
				UserAgent: e.UserAgent,
				CreatedAt: e.CreatedAt,
			})
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Activity found", out)
	}
}
