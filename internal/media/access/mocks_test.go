package access

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type RelationshipMock struct {
	mock.Mock
}

func (m *RelationshipMock) Exists(ctx context.Context, viewer, owner uuid.UUID, tier string) (bool, error) {
	args := m.Called(ctx, viewer, owner, tier)
	return args.Bool(0), args.Error(1)
}
