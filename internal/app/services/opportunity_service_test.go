package services

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/helphive/servicehours/internal/app/models"
	"github.com/helphive/servicehours/internal/app/models/dto"
	"github.com/helphive/servicehours/internal/pkg/apperrors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinTwiceIsRejected(t *testing.T) {
	f := newFixture(t)
	student := f.students(t, 1)[0]
	opp := f.opportunity(t, f.community(t, 10), 5)

	resp, err := f.opps.Join(f.ctx, student, opp)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.CurrentSignUps)
	assert.True(t, resp.Joined)

	_, err = f.opps.Join(f.ctx, student, opp)
	require.ErrorIs(t, err, apperrors.ErrAlreadyJoined)
	assert.Equal(t, 1, f.signUps(t, opp))

	ids, err := f.store.Signups().ListOpportunityIDsByUser(f.ctx, student.UserID)
	require.NoError(t, err)
	assert.Equal(t, []int64{opp}, ids)
}

func TestJoinFullOpportunityChangesNothing(t *testing.T) {
	f := newFixture(t)
	s := f.students(t, 2)
	opp := f.opportunity(t, f.community(t, 10), 1)

	_, err := f.opps.Join(f.ctx, s[0], opp)
	require.NoError(t, err)

	_, err = f.opps.Join(f.ctx, s[1], opp)
	require.ErrorIs(t, err, apperrors.ErrOpportunityFull)
	assert.Equal(t, 1, f.signUps(t, opp))

	joined, err := f.store.Signups().Exists(f.ctx, opp, s[1].UserID)
	require.NoError(t, err)
	assert.False(t, joined)
}

func TestJoinThenCancelRestoresCounter(t *testing.T) {
	f := newFixture(t)
	student := f.students(t, 1)[0]
	opp := f.opportunity(t, f.community(t, 10), 3)

	_, err := f.opps.Join(f.ctx, student, opp)
	require.NoError(t, err)
	resp, err := f.opps.Cancel(f.ctx, student, opp)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.CurrentSignUps)
	assert.False(t, resp.Joined)

	joined, err := f.store.Signups().Exists(f.ctx, opp, student.UserID)
	require.NoError(t, err)
	assert.False(t, joined)
	assert.Equal(t, 0, f.signUps(t, opp))

	_, err = f.opps.Cancel(f.ctx, student, opp)
	require.ErrorIs(t, err, apperrors.ErrNotSignedUp)
}

func TestCancelNeverGoesBelowZero(t *testing.T) {
	f := newFixture(t)
	student := f.students(t, 1)[0]
	opp := f.opportunity(t, f.community(t, 10), 3)

	// A sign-up row whose increment was lost.
	require.NoError(t, f.store.Signups().Add(f.ctx, &models.OpportunitySignup{OpportunityID: opp, UserID: student.UserID}))
	require.Equal(t, 0, f.signUps(t, opp))

	resp, err := f.opps.Cancel(f.ctx, student, opp)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.CurrentSignUps)
	assert.Equal(t, 0, f.signUps(t, opp))
}

func TestFourOfFiveScenario(t *testing.T) {
	f := newFixture(t)
	s := f.students(t, 6)
	opp := f.opportunity(t, f.community(t, 10), 5)

	for _, st := range s[:4] {
		_, err := f.opps.Join(f.ctx, st, opp)
		require.NoError(t, err)
	}
	require.Equal(t, 4, f.signUps(t, opp))

	resp, err := f.opps.Join(f.ctx, s[4], opp)
	require.NoError(t, err)
	assert.Equal(t, 5, resp.CurrentSignUps)

	_, err = f.opps.Join(f.ctx, s[5], opp)
	require.ErrorIs(t, err, apperrors.ErrOpportunityFull)

	resp, err = f.opps.Cancel(f.ctx, s[0], opp)
	require.NoError(t, err)
	assert.Equal(t, 4, resp.CurrentSignUps)

	got, err := f.opps.GetOpportunity(f.ctx, s[5], opp)
	require.NoError(t, err)
	assert.Equal(t, 1, got.SpotsLeft)
	assert.False(t, got.Joined)

	assert.Equal(t, seatEvent{opportunityID: opp, communityID: got.CommunityID, current: 4, maxSignUps: 5}, f.seats.last())
}

func TestConcurrentJoinsForLastSeat(t *testing.T) {
	f := newFixture(t)
	s := f.students(t, 20)
	opp := f.opportunity(t, f.community(t, 10), 1)

	var (
		wg      sync.WaitGroup
		ok      atomic.Int32
		full    atomic.Int32
		unknown atomic.Int32
	)
	for _, st := range s {
		wg.Add(1)
		go func(st Session) {
			defer wg.Done()
			_, err := f.opps.Join(f.ctx, st, opp)
			switch {
			case err == nil:
				ok.Add(1)
			case apperrors.Is(err, apperrors.ErrOpportunityFull):
				full.Add(1)
			default:
				unknown.Add(1)
			}
		}(st)
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(19), full.Load())
	assert.Zero(t, unknown.Load())
	assert.Equal(t, 1, f.signUps(t, opp))
}

func TestJoinMetrics(t *testing.T) {
	f := newFixture(t)
	s := f.students(t, 2)
	opp := f.opportunity(t, f.community(t, 10), 1)

	_, _ = f.opps.Join(f.ctx, s[0], opp)
	_, _ = f.opps.Join(f.ctx, s[0], opp)
	_, _ = f.opps.Join(f.ctx, s[1], opp)

	count, err := testutil.GatherAndCount(f.metrics.Registry(), "servicehours_opportunity_signups_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestUpdateOpportunityCapacity(t *testing.T) {
	f := newFixture(t)
	s := f.students(t, 2)
	opp := f.opportunity(t, f.community(t, 10), 3)
	for _, st := range s {
		_, err := f.opps.Join(f.ctx, st, opp)
		require.NoError(t, err)
	}

	req := &dto.UpdateOpportunityRequest{
		Name: "Saturday shift", Description: "Sort donations", Date: "2030-03-02", Time: "10:00",
		HourValue: 2, MaxSignUps: 1,
	}
	_, err := f.opps.UpdateOpportunity(f.ctx, f.teacher, opp, req)
	require.ErrorIs(t, err, apperrors.ErrCapacityBelowCount)

	req.MaxSignUps = 2
	resp, err := f.opps.UpdateOpportunity(f.ctx, f.teacher, opp, req)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.MaxSignUps)
	assert.Equal(t, 0, resp.SpotsLeft)
	assert.Equal(t, "10:00", resp.Time)
}

func TestCreateOpportunityValidationAndOwnership(t *testing.T) {
	f := newFixture(t)
	communityID := f.community(t, 10)
	other := f.user(t, "other@school.org", models.RoleTeacher)
	student := f.students(t, 1)[0]

	base := dto.CreateOpportunityRequest{
		CommunityID: communityID, Name: "Shift", Description: "Help", Date: "2030-01-01", Time: "14:00",
		HourValue: 1, MaxSignUps: 2, ContactEmail: "coordinator@foodbank.org",
	}

	bad := base
	bad.Date = "01/02/2030"
	_, err := f.opps.CreateOpportunity(f.ctx, f.teacher, &bad)
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)

	bad = base
	bad.HourValue = 0
	_, err = f.opps.CreateOpportunity(f.ctx, f.teacher, &bad)
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = f.opps.CreateOpportunity(f.ctx, other, &base)
	require.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = f.opps.CreateOpportunity(f.ctx, student, &base)
	require.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	resp, err := f.opps.CreateOpportunity(f.ctx, f.teacher, &base)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.CurrentSignUps)

	sent := f.mailer.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, "teacher@school.org", sent[0].To)
	assert.Equal(t, "coordinator@foodbank.org", sent[1].To)
}

func TestListOpportunitiesMineFiltersByMembership(t *testing.T) {
	f := newFixture(t)
	student := f.students(t, 1)[0]
	joinedCommunity := f.community(t, 10)
	otherCommunity := f.community(t, 10)
	inJoined := f.opportunity(t, joinedCommunity, 2)
	f.opportunity(t, otherCommunity, 2)

	_, err := f.communities.JoinCommunity(f.ctx, student, joinedCommunity)
	require.NoError(t, err)
	_, err = f.opps.Join(f.ctx, student, inJoined)
	require.NoError(t, err)

	all, err := f.opps.ListOpportunities(f.ctx, student, &dto.OpportunityFilterRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Opportunities, 2)

	mine, err := f.opps.ListOpportunities(f.ctx, student, &dto.OpportunityFilterRequest{Mine: true})
	require.NoError(t, err)
	require.Len(t, mine.Opportunities, 1)
	assert.Equal(t, inJoined, mine.Opportunities[0].ID)
	assert.True(t, mine.Opportunities[0].Joined)

	signed, err := f.opps.ListMySignUps(f.ctx, student, 1, 10)
	require.NoError(t, err)
	require.Len(t, signed.Opportunities, 1)
}

func TestRemoveParticipant(t *testing.T) {
	f := newFixture(t)
	s := f.students(t, 2)
	opp := f.opportunity(t, f.community(t, 10), 3)
	for _, st := range s {
		_, err := f.opps.Join(f.ctx, st, opp)
		require.NoError(t, err)
	}

	_, err := f.opps.RemoveParticipant(f.ctx, s[1], opp, s[0].UserID)
	require.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	resp, err := f.opps.RemoveParticipant(f.ctx, f.teacher, opp, s[0].UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.CurrentSignUps)

	participants, err := f.opps.ListParticipants(f.ctx, f.teacher, opp)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, s[1].UserID, participants[0].User.ID)
}
