package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nimbus-crm/backend/internal/models"
	"github.com/nimbus-crm/backend/internal/tenancy"
)

func i64(v int64) *int64 { return &v }

func user(id, tenant int64, role models.Role, team *int64) *models.User {
	return &models.User{ID: id, TenantID: &tenant, Role: role, TeamID: team}
}

func ticket(tenant int64, team, assignee *int64) *models.Ticket {
	t := &models.Ticket{}
	t.TenantID = tenant
	t.TeamID = team
	t.AssigneeID = assignee
	return t
}

func TestTicketDeleteRoleGate(t *testing.T) {
	p := NewTicketPolicy(Base{})
	tk := ticket(5, nil, nil)

	assert.Nil(t, p.Delete(user(1, 5, models.RoleAdmin, nil), tk))
	assert.Nil(t, p.Delete(user(1, 5, models.RoleServiceManager, nil), tk))

	d := p.Delete(user(1, 5, models.RoleAgent, nil), tk)
	if assert.NotNil(t, d) {
		assert.Equal(t, CodeRoleDenied, d.Code)
	}
}

func TestTicketRoleGateNeverCrossesTenant(t *testing.T) {
	p := NewTicketPolicy(Base{})
	tk := ticket(6, nil, nil)

	d := p.Delete(user(1, 5, models.RoleAdmin, nil), tk)
	if assert.NotNil(t, d) {
		assert.Equal(t, CodeScopeDenied, d.Code)
	}
}

func TestTicketCloseAllowsAssignee(t *testing.T) {
	p := NewTicketPolicy(Base{})
	tk := ticket(5, nil, i64(9))

	assert.Nil(t, p.Close(user(9, 5, models.RoleAgent, nil), tk))

	d := p.Close(user(8, 5, models.RoleAgent, nil), tk)
	if assert.NotNil(t, d) {
		assert.Equal(t, CodeRoleDenied, d.Code)
	}
}

func TestTicketReplyAssigneeBypassesTeamBoundary(t *testing.T) {
	p := NewTicketPolicy(Base{Flags: tenancy.Flags{TeamAccess: true}})

	// Assignee in another team can still reply.
	tk := ticket(5, i64(2), i64(9))
	assert.Nil(t, p.Reply(user(9, 5, models.RoleAgent, i64(3)), tk))

	// Same-team agent can reply.
	assert.Nil(t, p.Reply(user(8, 5, models.RoleAgent, i64(2)), tk))

	// Other-team non-assignee member is denied.
	d := p.Reply(user(7, 5, models.RoleMember, i64(3)), tk)
	if assert.NotNil(t, d) {
		assert.Equal(t, CodeScopeDenied, d.Code)
	}

	// The tenant boundary holds even for the assignee.
	other := ticket(6, i64(2), i64(9))
	assert.NotNil(t, p.Reply(user(9, 5, models.RoleAgent, i64(2)), other))
}

func TestArticlePublishRoleGate(t *testing.T) {
	p := NewArticlePolicy(Base{})
	a := &models.Article{}
	a.TenantID = 5

	assert.Nil(t, p.Publish(user(1, 5, models.RoleServiceManager, nil), a))
	assert.NotNil(t, p.Publish(user(1, 5, models.RoleMember, nil), a))
	assert.NotNil(t, p.Publish(user(1, 6, models.RoleAdmin, nil), a))
}

func TestCampaignSendRoleGate(t *testing.T) {
	p := NewCampaignPolicy(Base{})
	c := &models.Campaign{}
	c.TenantID = 5

	assert.Nil(t, p.Send(user(1, 5, models.RoleManager, nil), c))
	assert.NotNil(t, p.Send(user(1, 5, models.RoleAgent, nil), c))
}

func TestContactDeleteRoleGate(t *testing.T) {
	p := NewContactPolicy(Base{})
	c := &models.Contact{}
	c.TenantID = 5

	assert.Nil(t, p.Delete(user(1, 5, models.RoleManager, nil), c))
	d := p.Delete(user(1, 5, models.RoleMember, nil), c)
	if assert.NotNil(t, d) {
		assert.Equal(t, CodeRoleDenied, d.Code)
	}
}

func TestTeamBoundaryAppliesThroughPolicies(t *testing.T) {
	flags := tenancy.Flags{TeamAccess: true}
	p := NewDealPolicy(Base{Flags: flags})

	d := &models.Deal{}
	d.TenantID = 5
	d.TeamID = i64(2)

	denial := p.View(user(1, 5, models.RoleMember, i64(3)), d)
	if assert.NotNil(t, denial) {
		assert.Equal(t, CodeScopeDenied, denial.Code)
	}

	// Admin override crosses the team boundary.
	assert.Nil(t, p.View(user(1, 5, models.RoleAdmin, i64(3)), d))
}

func TestUnauthenticatedDenial(t *testing.T) {
	p := NewContactPolicy(Base{})
	c := &models.Contact{}
	c.TenantID = 5

	d := p.View(nil, c)
	if assert.NotNil(t, d) {
		assert.Equal(t, CodeUnauthenticated, d.Code)
	}
}
