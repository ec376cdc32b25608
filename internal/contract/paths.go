// Package contract holds the REST wire types shared by the FitIQ client and
// the reference backend: request and response bodies, the JSON envelopes and
// endpoint paths.
package contract

import "github.com/fitiq/fitiq/internal/common"

const (
	PathHealth       = common.APIPrefix + "/health"
	PathRegister     = common.APIPrefix + "/auth/register"
	PathLogin        = common.APIPrefix + "/auth/login"
	PathRefresh      = common.APIPrefix + "/auth/refresh"
	PathLogout       = common.APIPrefix + "/auth/logout"
	PathProfile      = common.APIPrefix + "/users/me"
	PathPhysical     = common.APIPrefix + "/users/me/physical"
	PathProgress     = common.APIPrefix + "/progress"
	PathMood         = common.APIPrefix + "/mood"
	PathMealLogs     = common.APIPrefix + "/meal-logs"
	PathMealNatural  = common.APIPrefix + "/meal-logs/natural"
	PathNotification = common.APIPrefix + "/ws"
)

// MealLogPath returns the path of a single meal log.
func MealLogPath(id string) string {
	return PathMealLogs + "/" + id
}

// DateLayout is the wire format of calendar dates such as date of birth.
const DateLayout = "2006-01-02"
