package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/helphive/servicehours/internal/app/models"
	"github.com/helphive/servicehours/internal/app/models/dto"
	"github.com/helphive/servicehours/internal/app/repositories/memstore"
	"github.com/helphive/servicehours/internal/pkg/email"
	"github.com/helphive/servicehours/internal/pkg/metrics"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) messages() []email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]email.Message(nil), m.sent...)
}

type seatEvent struct {
	opportunityID, communityID int64
	current, maxSignUps        int
}

type seatRecorder struct {
	mu     sync.Mutex
	events []seatEvent
}

func (r *seatRecorder) PublishSeats(opportunityID, communityID int64, current, maxSignUps int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, seatEvent{opportunityID, communityID, current, maxSignUps})
}

func (r *seatRecorder) last() seatEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type fixture struct {
	ctx         context.Context
	store       *memstore.Store
	mailer      *recordingMailer
	seats       *seatRecorder
	metrics     *metrics.Metrics
	communities CommunityService
	opps        OpportunityService
	hours       HourService
	teacher     Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	mailer := &recordingMailer{}
	seats := &seatRecorder{}
	m := metrics.New()
	logger := zerolog.Nop()

	f := &fixture{
		ctx:         context.Background(),
		store:       store,
		mailer:      mailer,
		seats:       seats,
		metrics:     m,
		communities: NewCommunityService(store, logger),
		opps:        NewOpportunityService(store, nil, seats, mailer, m, logger),
		hours:       NewHourService(store, mailer, m, "http://localhost:8080", logger),
	}
	f.teacher = f.user(t, "teacher@school.org", models.RoleTeacher)
	return f
}

func (f *fixture) user(t *testing.T, addr string, role models.RoleType) Session {
	t.Helper()
	u := &models.User{Email: addr, FirstName: "Test", LastName: string(role), RoleType: role, IsActive: true}
	require.NoError(t, f.store.Users().Create(f.ctx, u))
	return Session{UserID: u.ID, Role: role}
}

func (f *fixture) students(t *testing.T, n int) []Session {
	t.Helper()
	out := make([]Session, n)
	for i := range out {
		out[i] = f.user(t, fmt.Sprintf("student%d@school.org", i), models.RoleStudent)
	}
	return out
}

func (f *fixture) community(t *testing.T, goal float64) int64 {
	t.Helper()
	c, err := f.communities.CreateCommunity(f.ctx, f.teacher, &dto.CreateCommunityRequest{
		Name:        "Food Bank",
		Description: "Weekly sorting shifts",
		HourGoal:    goal,
		EndDate:     time.Now().Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return c.ID
}

func (f *fixture) opportunity(t *testing.T, communityID int64, maxSignUps int) int64 {
	t.Helper()
	o, err := f.opps.CreateOpportunity(f.ctx, f.teacher, &dto.CreateOpportunityRequest{
		CommunityID: communityID,
		Name:        "Saturday shift",
		Description: "Sort donations",
		Date:        "2030-03-02",
		Time:        "9:30 AM",
		HourValue:   2,
		MaxSignUps:  maxSignUps,
	})
	require.NoError(t, err)
	return o.ID
}

func (f *fixture) signUps(t *testing.T, id int64) int {
	t.Helper()
	o, err := f.store.Opportunities().GetByID(f.ctx, id)
	require.NoError(t, err)
	return o.CurrentSignUps
}
