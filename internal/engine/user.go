package engine

import (
	"time"

	"github.com/centsible/backend/internal/types"
	"github.com/google/uuid"
)

// UserContext carries the authenticated user and their notion of "today".
//
// The date and month come from the client so that users close to midnight
// or in far-away timezones budget in their own calendar, not the server's.
type UserContext struct {
	UserID uuid.UUID
	Date   time.Time   // the user's current date
	Month  types.Month // the user's current month
}

// NewUserContext builds a UserContext, substituting the server clock (UTC)
// for fields the client did not send.
func NewUserContext(userID uuid.UUID, date *time.Time, month *types.Month) UserContext {
	ctx := UserContext{UserID: userID}

	if date != nil {
		ctx.Date = *date
	} else {
		ctx.Date = time.Now().In(time.UTC)
	}

	if month != nil {
		ctx.Month = *month
	} else {
		ctx.Month = types.MonthOf(ctx.Date)
	}

	return ctx
}
