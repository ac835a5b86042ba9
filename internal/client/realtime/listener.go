// Package realtime delivers push notifications about changes to the
// watched user record.
package realtime

import (
	"context"

	"github.com/dmitrijs2005/coachportal/internal/client/models"
)

// Filter selects the rows a subscription watches: Column equal to Value
// in Table.
type Filter struct {
	Table  string
	Column string
	Value  string
}

// String renders the filter in the channel's "column=eq.value" form.
func (f Filter) String() string {
	return f.Column + "=eq." + f.Value
}

// UserFilter watches the users row with the given canonical id.
func UserFilter(id string) Filter {
	return Filter{Table: "users", Column: "id", Value: id}
}

// Listener opens change feeds. Subscribe returns once the channel is
// established; events arrive on the Subscription until it is closed.
type Listener interface {
	Subscribe(ctx context.Context, f Filter) (Subscription, error)
}

// Subscription is a live change feed. Events is closed once the feed ends,
// either through Close or because the channel dropped. It is meant for a
// single consumer.
type Subscription interface {
	Events() <-chan models.ChangeEvent
	Close() error
}
