package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tickhelp/helpdesk-service/internal/domain"
	"github.com/tickhelp/helpdesk-service/internal/repository"
	apperrors "github.com/tickhelp/helpdesk-service/pkg/util"
)

// MockTicketRepository is a mock implementation of repository.TicketRepository.
type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *MockTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTicketRepository) ClearUserReferences(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockHistoryRepository is a mock implementation of repository.TicketHistoryRepository.
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Create(ctx context.Context, entry *domain.HistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.HistoryEntry, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.HistoryEntry), args.Error(1)
}

func (m *MockHistoryRepository) DeleteByTicket(ctx context.Context, ticketID string) error {
	args := m.Called(ctx, ticketID)
	return args.Error(0)
}

func (m *MockHistoryRepository) DetachUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockUserRepository is a mock implementation of repository.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// stubTxManager runs the unit of work directly against the provided mocks,
// standing in for a real transaction.
type stubTxManager struct {
	repos repository.TxRepositories
}

func (s *stubTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepositories) error) error {
	return fn(ctx, s.repos)
}

type ticketServiceMocks struct {
	tickets *MockTicketRepository
	history *MockHistoryRepository
	users   *MockUserRepository
}

func newTicketService() (*TicketService, ticketServiceMocks) {
	mocks := ticketServiceMocks{
		tickets: new(MockTicketRepository),
		history: new(MockHistoryRepository),
		users:   new(MockUserRepository),
	}
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  mocks.tickets,
		HistoryRepo: mocks.history,
		UserRepo:    mocks.users,
		Tx: &stubTxManager{repos: repository.TxRepositories{
			Users:   mocks.users,
			Tickets: mocks.tickets,
			History: mocks.history,
		}},
	})
	return svc, mocks
}

func strp(s string) *string { return &s }

func domainErrStatus(t *testing.T, err error) int {
	t.Helper()
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	return domainErr.HTTPStatus
}

func TestTicketService_CreateTicket(t *testing.T) {
	tests := []struct {
		name           string
		creatorID      string
		input          TicketCreateInput
		setupMocks     func(ticketServiceMocks)
		expectedStatus int
		check          func(*testing.T, *domain.Ticket, ticketServiceMocks)
	}{
		{
			name:      "forces status todo and writes initial history entry",
			creatorID: "u1",
			input:     TicketCreateInput{Title: "Printer jam", Priority: strp("high")},
			setupMocks: func(m ticketServiceMocks) {
				m.tickets.On("Create", mock.Anything, mock.MatchedBy(func(ticket *domain.Ticket) bool {
					return ticket.Status == domain.TicketStatusTodo &&
						ticket.Priority == domain.TicketPriorityHigh &&
						ticket.Title == "Printer jam"
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*domain.Ticket).ID = "t1"
				}).Return(nil)
				m.history.On("Create", mock.Anything, mock.MatchedBy(func(entry *domain.HistoryEntry) bool {
					return entry.TicketID == "t1" &&
						entry.Field == domain.FieldStatus &&
						entry.OldValue == nil &&
						entry.NewValue != nil && *entry.NewValue == "todo" &&
						entry.UserID != nil && *entry.UserID == "u1"
				})).Return(nil)
				m.tickets.On("GetByID", mock.Anything, "t1").Return(&domain.Ticket{
					ID:       "t1",
					Title:    "Printer jam",
					Status:   domain.TicketStatusTodo,
					Priority: domain.TicketPriorityHigh,
				}, nil)
			},
			check: func(t *testing.T, ticket *domain.Ticket, m ticketServiceMocks) {
				assert.Equal(t, domain.TicketStatusTodo, ticket.Status)
				assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
			},
		},
		{
			name:           "empty title fails validation before any write",
			creatorID:      "u1",
			input:          TicketCreateInput{Title: "   "},
			setupMocks:     func(m ticketServiceMocks) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "out-of-enum priority fails validation",
			creatorID:      "u1",
			input:          TicketCreateInput{Title: "Printer jam", Priority: strp("blocker")},
			setupMocks:     func(m ticketServiceMocks) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:      "unknown assignee is rejected",
			creatorID: "u1",
			input:     TicketCreateInput{Title: "Printer jam", AssigneeID: strp("ghost")},
			setupMocks: func(m ticketServiceMocks) {
				m.users.On("Exists", mock.Anything, "ghost").Return(false, nil)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:      "empty assignee string is normalized to unassigned",
			creatorID: "u1",
			input:     TicketCreateInput{Title: "Printer jam", AssigneeID: strp("")},
			setupMocks: func(m ticketServiceMocks) {
				m.tickets.On("Create", mock.Anything, mock.MatchedBy(func(ticket *domain.Ticket) bool {
					return ticket.AssigneeID == nil
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*domain.Ticket).ID = "t1"
				}).Return(nil)
				m.history.On("Create", mock.Anything, mock.Anything).Return(nil)
				m.tickets.On("GetByID", mock.Anything, "t1").Return(&domain.Ticket{ID: "t1"}, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mocks := newTicketService()
			tt.setupMocks(mocks)

			ticket, err := svc.CreateTicket(context.Background(), tt.creatorID, tt.input)

			if tt.expectedStatus != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.expectedStatus, domainErrStatus(t, err))
				assert.Nil(t, ticket)
				mocks.tickets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				mocks.history.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				require.NotNil(t, ticket)
				if tt.check != nil {
					tt.check(t, ticket, mocks)
				}
			}
			mocks.tickets.AssertExpectations(t)
			mocks.history.AssertExpectations(t)
			mocks.users.AssertExpectations(t)
		})
	}
}

func storedTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:          "t1",
		Title:       "Printer jam",
		Description: "Tray 2 keeps jamming",
		Status:      domain.TicketStatusTodo,
		Priority:    domain.TicketPriorityHigh,
		AssigneeID:  nil,
		CreatedByID: strp("u1"),
		CreatedAt:   time.Now().Add(-time.Hour),
		UpdatedAt:   time.Now().Add(-time.Hour),
	}
}

func TestTicketService_UpdateTicket_StagesOneHistoryEntryPerChangedField(t *testing.T) {
	svc, mocks := newTicketService()

	mocks.tickets.On("GetByID", mock.Anything, "t1").Return(storedTicket(), nil)
	mocks.users.On("Exists", mock.Anything, "u2").Return(true, nil)
	mocks.tickets.On("Update", mock.Anything, mock.MatchedBy(func(ticket *domain.Ticket) bool {
		return ticket.Status == domain.TicketStatusInProgress &&
			ticket.AssigneeID != nil && *ticket.AssigneeID == "u2"
	})).Return(nil)

	var recorded []domain.HistoryEntry
	mocks.history.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		recorded = append(recorded, *args.Get(1).(*domain.HistoryEntry))
	}).Return(nil)

	ticket, err := svc.UpdateTicket(context.Background(), "u1", "t1", TicketPatch{
		Status:      strp("in_progress"),
		AssigneeID:  strp("u2"),
		AssigneeSet: true,
	})

	require.NoError(t, err)
	require.NotNil(t, ticket)
	require.Len(t, recorded, 2)

	// fixed diff order: status before assigneeId
	assert.Equal(t, domain.FieldStatus, recorded[0].Field)
	assert.Equal(t, "todo", *recorded[0].OldValue)
	assert.Equal(t, "in_progress", *recorded[0].NewValue)

	assert.Equal(t, domain.FieldAssignee, recorded[1].Field)
	assert.Nil(t, recorded[1].OldValue)
	assert.Equal(t, "u2", *recorded[1].NewValue)

	for _, entry := range recorded {
		require.NotNil(t, entry.UserID)
		assert.Equal(t, "u1", *entry.UserID)
	}
}

func TestTicketService_UpdateTicket_EqualPatchIsNoOp(t *testing.T) {
	svc, mocks := newTicketService()

	mocks.tickets.On("GetByID", mock.Anything, "t1").Return(storedTicket(), nil)

	ticket, err := svc.UpdateTicket(context.Background(), "u1", "t1", TicketPatch{
		Status:   strp("todo"),
		Priority: strp("high"),
	})

	require.NoError(t, err)
	require.NotNil(t, ticket)
	assert.Equal(t, domain.TicketStatusTodo, ticket.Status)
	mocks.tickets.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	mocks.history.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTicketService_UpdateTicket_InvalidStatusLeavesTicketUntouched(t *testing.T) {
	svc, mocks := newTicketService()

	mocks.tickets.On("GetByID", mock.Anything, "t1").Return(storedTicket(), nil)

	ticket, err := svc.UpdateTicket(context.Background(), "u1", "t1", TicketPatch{
		Title:  strp("New title"),
		Status: strp("bogus"),
	})

	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, domainErrStatus(t, err))
	assert.Nil(t, ticket)
	mocks.tickets.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	mocks.history.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTicketService_UpdateTicket_ExplicitNullClearsAssignee(t *testing.T) {
	svc, mocks := newTicketService()

	stored := storedTicket()
	stored.AssigneeID = strp("u2")
	mocks.tickets.On("GetByID", mock.Anything, "t1").Return(stored, nil)
	mocks.tickets.On("Update", mock.Anything, mock.MatchedBy(func(ticket *domain.Ticket) bool {
		return ticket.AssigneeID == nil
	})).Return(nil)
	mocks.history.On("Create", mock.Anything, mock.MatchedBy(func(entry *domain.HistoryEntry) bool {
		return entry.Field == domain.FieldAssignee &&
			entry.OldValue != nil && *entry.OldValue == "u2" &&
			entry.NewValue == nil
	})).Return(nil)

	_, err := svc.UpdateTicket(context.Background(), "u1", "t1", TicketPatch{
		AssigneeID:  nil,
		AssigneeSet: true,
	})

	require.NoError(t, err)
	mocks.tickets.AssertExpectations(t)
	mocks.history.AssertExpectations(t)
}

func TestTicketService_UpdateTicket_NotFound(t *testing.T) {
	svc, mocks := newTicketService()

	mocks.tickets.On("GetByID", mock.Anything, "missing").Return(nil, pgx.ErrNoRows)

	_, err := svc.UpdateTicket(context.Background(), "u1", "missing", TicketPatch{Title: strp("x")})

	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestTicketService_DeleteTicket_RemovesHistoryFirst(t *testing.T) {
	svc, mocks := newTicketService()

	var calls []string
	mocks.tickets.On("GetByID", mock.Anything, "t1").Return(storedTicket(), nil)
	mocks.history.On("DeleteByTicket", mock.Anything, "t1").Run(func(mock.Arguments) {
		calls = append(calls, "history")
	}).Return(nil)
	mocks.tickets.On("Delete", mock.Anything, "t1").Run(func(mock.Arguments) {
		calls = append(calls, "ticket")
	}).Return(nil)

	err := svc.DeleteTicket(context.Background(), "u1", "t1")

	require.NoError(t, err)
	assert.Equal(t, []string{"history", "ticket"}, calls)
}

func TestTicketService_DeleteTicket_NotFound(t *testing.T) {
	svc, mocks := newTicketService()

	mocks.tickets.On("GetByID", mock.Anything, "missing").Return(nil, pgx.ErrNoRows)

	err := svc.DeleteTicket(context.Background(), "u1", "missing")

	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	mocks.history.AssertNotCalled(t, "DeleteByTicket", mock.Anything, mock.Anything)
	mocks.tickets.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestTicketService_ListHistory_MissingTicket(t *testing.T) {
	svc, mocks := newTicketService()

	mocks.tickets.On("GetByID", mock.Anything, "gone").Return(nil, pgx.ErrNoRows)

	_, err := svc.ListHistory(context.Background(), "gone")

	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	mocks.history.AssertNotCalled(t, "ListByTicket", mock.Anything, mock.Anything)
}

func TestTicketService_ListTickets_ValidatesEnumFilters(t *testing.T) {
	svc, mocks := newTicketService()

	_, err := svc.ListTickets(context.Background(), TicketListFilter{Status: strp("bogus")})

	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, domainErrStatus(t, err))
	mocks.tickets.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestTicketService_ListTickets_PassesFilterThrough(t *testing.T) {
	svc, mocks := newTicketService()

	status := domain.TicketStatusResolved
	mocks.tickets.On("List", mock.Anything, mock.MatchedBy(func(filter repository.TicketFilter) bool {
		return filter.Status != nil && *filter.Status == status &&
			filter.SortBy == "title" && filter.SortOrder == "ASC"
	})).Return([]domain.Ticket{}, nil)

	_, err := svc.ListTickets(context.Background(), TicketListFilter{
		Status:    strp("resolved"),
		SortBy:    "title",
		SortOrder: "ASC",
	})

	require.NoError(t, err)
	mocks.tickets.AssertExpectations(t)
}
