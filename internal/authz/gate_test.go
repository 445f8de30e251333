package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/lalith-99/disputedesk/internal/models"
)

func TestDecide_Policy(t *testing.T) {
	ownerID := uuid.New()
	strangerID := uuid.New()

	owner := &models.User{ID: ownerID, Role: models.RoleClient}
	stranger := &models.User{ID: strangerID, Role: models.RoleClient}
	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}
	ticket := &models.Ticket{ID: uuid.New(), OwnerUserID: ownerID}

	tests := []struct {
		name       string
		user       *models.User
		action     Action
		wantAllow  bool
		wantReason string
	}{
		{"admin views any ticket", admin, ActionViewTicket, true, ""},
		{"admin posts on any ticket", admin, ActionPostComment, true, ""},
		{"admin resolves any ticket", admin, ActionResolveTicket, true, ""},
		{"admin lists all tickets", admin, ActionListAllTickets, true, ""},

		{"owner views own ticket", owner, ActionViewTicket, true, ""},
		{"owner posts on own ticket", owner, ActionPostComment, true, ""},
		{"owner cannot resolve own ticket", owner, ActionResolveTicket, false, ReasonOwnerCannotClose},
		{"owner cannot list all tickets", owner, ActionListAllTickets, false, ReasonAdminOnlyListing},

		{"stranger cannot view", stranger, ActionViewTicket, false, ReasonNotOwnerOrAdmin},
		{"stranger cannot post", stranger, ActionPostComment, false, ReasonNotOwnerOrAdmin},
		{"stranger cannot resolve", stranger, ActionResolveTicket, false, ReasonNotOwnerOrAdmin},

		{"nil user denied", nil, ActionViewTicket, false, ReasonNotOwnerOrAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.user, ticket, tt.action)
			assert.Equal(t, tt.wantAllow, d.Allowed())
			assert.Equal(t, tt.wantReason, d.Reason)
		})
	}
}

func TestDecide_ListAllWithoutTicket(t *testing.T) {
	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}
	client := &models.User{ID: uuid.New(), Role: models.RoleClient}

	assert.True(t, Decide(admin, nil, ActionListAllTickets).Allowed())
	assert.False(t, Decide(client, nil, ActionListAllTickets).Allowed())
}

func TestDecide_DenialIsTerminal(t *testing.T) {
	// A stranger gets the same flat denial for every ticket-scoped
	// action; no partial view leaks through.
	stranger := &models.User{ID: uuid.New(), Role: models.RoleClient}
	ticket := &models.Ticket{ID: uuid.New(), OwnerUserID: uuid.New()}

	for _, action := range []Action{ActionViewTicket, ActionPostComment, ActionResolveTicket} {
		d := Decide(stranger, ticket, action)
		assert.False(t, d.Allowed())
		assert.Equal(t, ReasonNotOwnerOrAdmin, d.Reason)
	}
}
