package upload

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/romariotrain/media-pipeline/internal/media/models"
)

type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) Put(ctx context.Context, storagePath string, body io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, storagePath, body, size, contentType)
	return args.Error(0)
}

func (m *StoreMock) Remove(ctx context.Context, storagePaths []string) error {
	args := m.Called(ctx, storagePaths)
	return args.Error(0)
}

func (m *StoreMock) PublicURL(storagePath string) string {
	args := m.Called(storagePath)
	return args.String(0)
}

type RepoMock struct {
	mock.Mock
}

func (m *RepoMock) Create(ctx context.Context, a *models.Asset) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *RepoMock) CreateWithEvent(ctx context.Context, a *models.Asset, event models.DomainEvent) error {
	args := m.Called(ctx, a, event)
	return args.Error(0)
}

func (m *RepoMock) GetByID(ctx context.Context, id string) (*models.Asset, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Asset), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RepoMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
