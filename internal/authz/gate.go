// Package authz is the authorization gate: a pure decision function over
// (user, ticket, action). It has no dependencies and no side effects, and
// it must run before every read of ticket detail/comments and before every
// mutation. A denial is terminal; callers never downgrade it to a
// partial view.
package authz

import (
	"github.com/lalith-99/disputedesk/internal/models"
)

type Action string

const (
	ActionViewTicket     Action = "view_ticket"
	ActionPostComment    Action = "post_comment"
	ActionResolveTicket  Action = "resolve_ticket"
	ActionListAllTickets Action = "list_all_tickets"
)

// Deny reasons. ReasonNotOwnerOrAdmin is the catch-all for strangers;
// the owner-specific denials name what the owner may not do.
const (
	ReasonNotOwnerOrAdmin  = "not_owner_or_admin"
	ReasonOwnerCannotClose = "owner_cannot_close_own_ticket"
	ReasonAdminOnlyListing = "listing_all_tickets_is_admin_only"
)

type Decision struct {
	Allow  bool
	Reason string
}

func allow() Decision             { return Decision{Allow: true} }
func deny(reason string) Decision { return Decision{Allow: false, Reason: reason} }

func (d Decision) Allowed() bool { return d.Allow }

// Decide evaluates the policy in order, first match wins:
//
//  1. admins may do everything on any ticket;
//  2. the ticket's owner may view and comment, but not resolve or list all;
//  3. everyone else is denied outright.
//
// ticket may be nil only for ActionListAllTickets, which is not scoped to
// a ticket.
func Decide(user *models.User, ticket *models.Ticket, action Action) Decision {
	if user == nil {
		return deny(ReasonNotOwnerOrAdmin)
	}

	if user.Role == models.RoleAdmin {
		return allow()
	}

	if action == ActionListAllTickets {
		return deny(ReasonAdminOnlyListing)
	}

	if ticket != nil && user.ID == ticket.OwnerUserID {
		switch action {
		case ActionViewTicket, ActionPostComment:
			return allow()
		case ActionResolveTicket:
			return deny(ReasonOwnerCannotClose)
		}
	}

	return deny(ReasonNotOwnerOrAdmin)
}
