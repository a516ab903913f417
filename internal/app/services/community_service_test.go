package services

import (
	"testing"
	"time"

	"github.com/helphive/servicehours/internal/app/models"
	"github.com/helphive/servicehours/internal/app/models/dto"
	"github.com/helphive/servicehours/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinCommunityTwiceIsRejected(t *testing.T) {
	f := newFixture(t)
	student := f.students(t, 1)[0]
	id := f.community(t, 20)

	m, err := f.communities.JoinCommunity(f.ctx, student, id)
	require.NoError(t, err)
	assert.Equal(t, "Food Bank", m.CommunityName)
	assert.Zero(t, m.HoursLogged)

	_, err = f.store.Memberships().AddHours(f.ctx, id, student.UserID, 4.5)
	require.NoError(t, err)

	_, err = f.communities.JoinCommunity(f.ctx, student, id)
	require.ErrorIs(t, err, apperrors.ErrAlreadyJoined)

	list, err := f.communities.ListMemberships(f.ctx, student)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].CommunityID)
	assert.Equal(t, 4.5, list[0].HoursLogged)
}

func TestJoinMissingCommunity(t *testing.T) {
	f := newFixture(t)
	student := f.students(t, 1)[0]

	_, err := f.communities.JoinCommunity(f.ctx, student, 999)
	require.ErrorIs(t, err, apperrors.ErrCommunityNotFound)
}

func TestLeaveCommunityKeepsSignUps(t *testing.T) {
	f := newFixture(t)
	student := f.students(t, 1)[0]
	id := f.community(t, 20)
	opp := f.opportunity(t, id, 2)

	_, err := f.communities.JoinCommunity(f.ctx, student, id)
	require.NoError(t, err)
	_, err = f.opps.Join(f.ctx, student, opp)
	require.NoError(t, err)

	require.NoError(t, f.communities.LeaveCommunity(f.ctx, student, id))
	require.ErrorIs(t, f.communities.LeaveCommunity(f.ctx, student, id), apperrors.ErrNotMember)

	joined, err := f.store.Signups().Exists(f.ctx, opp, student.UserID)
	require.NoError(t, err)
	assert.True(t, joined)
	assert.Equal(t, 1, f.signUps(t, opp))
}

func TestMembershipProgressIsCapped(t *testing.T) {
	f := newFixture(t)
	student := f.students(t, 1)[0]
	id := f.community(t, 4)

	_, err := f.communities.JoinCommunity(f.ctx, student, id)
	require.NoError(t, err)
	_, err = f.store.Memberships().AddHours(f.ctx, id, student.UserID, 3)
	require.NoError(t, err)

	list, err := f.communities.ListMemberships(f.ctx, student)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, list[0].Progress, 1e-9)

	_, err = f.store.Memberships().AddHours(f.ctx, id, student.UserID, 3)
	require.NoError(t, err)
	list, err = f.communities.ListMemberships(f.ctx, student)
	require.NoError(t, err)
	assert.Equal(t, 1.0, list[0].Progress)

	members, err := f.communities.ListMembers(f.ctx, f.teacher, id)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, 6.0, members[0].HoursLogged)

	_, err = f.communities.ListMembers(f.ctx, student, id)
	require.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestCreateCommunityValidation(t *testing.T) {
	f := newFixture(t)
	student := f.students(t, 1)[0]

	valid := dto.CreateCommunityRequest{
		Name: "Library", Description: "Shelving", HourGoal: 10, EndDate: time.Now().Add(time.Hour),
	}

	_, err := f.communities.CreateCommunity(f.ctx, student, &valid)
	require.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	past := valid
	past.EndDate = time.Now().Add(-time.Hour)
	_, err = f.communities.CreateCommunity(f.ctx, f.teacher, &past)
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)

	zero := valid
	zero.HourGoal = 0
	_, err = f.communities.CreateCommunity(f.ctx, f.teacher, &zero)
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = f.communities.CreateCommunity(f.ctx, f.teacher, &valid)
	require.NoError(t, err)
}

func TestRenameCommunityUpdatesMemberships(t *testing.T) {
	f := newFixture(t)
	student := f.students(t, 1)[0]
	id := f.community(t, 20)
	_, err := f.communities.JoinCommunity(f.ctx, student, id)
	require.NoError(t, err)

	other := f.user(t, "other@school.org", models.RoleTeacher)
	req := &dto.UpdateCommunityRequest{
		Name: "Food Pantry", Description: "Weekly sorting shifts", HourGoal: 25, EndDate: time.Now().Add(time.Hour),
	}
	_, err = f.communities.UpdateCommunity(f.ctx, other, id, req)
	require.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = f.communities.UpdateCommunity(f.ctx, f.teacher, id, req)
	require.NoError(t, err)

	list, err := f.communities.ListMemberships(f.ctx, student)
	require.NoError(t, err)
	assert.Equal(t, "Food Pantry", list[0].CommunityName)
	assert.Equal(t, 25.0, list[0].HourGoal)
}

func TestListCommunitiesMine(t *testing.T) {
	f := newFixture(t)
	student := f.students(t, 1)[0]
	a := f.community(t, 20)
	f.community(t, 20)
	_, err := f.communities.JoinCommunity(f.ctx, student, a)
	require.NoError(t, err)

	all, err := f.communities.ListCommunities(f.ctx, student, &dto.CommunityFilterRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Communities, 2)

	mine, err := f.communities.ListCommunities(f.ctx, student, &dto.CommunityFilterRequest{Mine: true})
	require.NoError(t, err)
	require.Len(t, mine.Communities, 1)
	assert.True(t, mine.Communities[0].Joined)

	owned, err := f.communities.ListCommunities(f.ctx, f.teacher, &dto.CommunityFilterRequest{Mine: true})
	require.NoError(t, err)
	assert.Len(t, owned.Communities, 2)
}

func TestDeleteCommunityCascades(t *testing.T) {
	f := newFixture(t)
	student := f.students(t, 1)[0]
	id := f.community(t, 20)
	opp := f.opportunity(t, id, 2)
	_, err := f.communities.JoinCommunity(f.ctx, student, id)
	require.NoError(t, err)

	require.NoError(t, f.communities.DeleteCommunity(f.ctx, f.teacher, id))

	_, err = f.opps.GetOpportunity(f.ctx, student, opp)
	require.ErrorIs(t, err, apperrors.ErrOpportunityNotFound)
	list, err := f.communities.ListMemberships(f.ctx, student)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateCommunityAfterEndDate(t *testing.T) {
	f := newFixture(t)
	id := f.community(t, 10)
	c, err := f.store.Communities().GetByID(f.ctx, id)
	require.NoError(t, err)

	svc := f.communities.(*communityServiceImpl)
	svc.now = func() time.Time { return c.EndDate.Add(time.Hour) }

	req := &dto.UpdateCommunityRequest{Name: "Food Bank", Description: "Monthly shifts", HourGoal: 10, EndDate: c.EndDate}
	resp, err := f.communities.UpdateCommunity(f.ctx, f.teacher, id, req)
	require.NoError(t, err)
	assert.Equal(t, "Monthly shifts", resp.Description)

	req.EndDate = c.EndDate.Add(-time.Hour)
	_, err = f.communities.UpdateCommunity(f.ctx, f.teacher, id, req)
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)

	req.EndDate = c.EndDate.Add(48 * time.Hour)
	_, err = f.communities.UpdateCommunity(f.ctx, f.teacher, id, req)
	require.NoError(t, err)
}
