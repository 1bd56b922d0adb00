package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/opencrm/calengine/overlay"
)

// MockStorage implements the Storage interface for testing
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetSeries(ctx context.Context, id uuid.UUID) (*Series, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Series), args.Error(1)
}

func (m *MockStorage) CreateSeries(ctx context.Context, s *Series) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockStorage) UpdateSeries(ctx context.Context, s *Series) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockStorage) DeleteSeries(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) ListExceptions(ctx context.Context, seriesID uuid.UUID) ([]overlay.Exception, error) {
	args := m.Called(ctx, seriesID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]overlay.Exception), args.Error(1)
}

func (m *MockStorage) PutException(ctx context.Context, ex overlay.Exception) error {
	args := m.Called(ctx, ex)
	return args.Error(0)
}

func (m *MockStorage) DeleteException(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) DeleteSeriesExceptions(ctx context.Context, seriesID uuid.UUID) error {
	args := m.Called(ctx, seriesID)
	return args.Error(0)
}

func (m *MockStorage) ListAttendeeCopies(ctx context.Context, seriesID uuid.UUID) ([]AttendeeCopy, error) {
	args := m.Called(ctx, seriesID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]AttendeeCopy), args.Error(1)
}

func (m *MockStorage) PutAttendeeCopy(ctx context.Context, c AttendeeCopy) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockStorage) SetCancelled(ctx context.Context, id uuid.UUID, cancelled bool) error {
	args := m.Called(ctx, id, cancelled)
	return args.Error(0)
}

func (m *MockStorage) DetachAttendee(ctx context.Context, parentID uuid.UUID, attendee string) error {
	args := m.Called(ctx, parentID, attendee)
	return args.Error(0)
}
