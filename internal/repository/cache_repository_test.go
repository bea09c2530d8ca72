package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/room-allocation-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest []string
	err := repo.Get(ctx, "allocations:list:abc", &dest)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "allocations:list:abc", []string{"x"}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "allocations:*"))
	assert.NoError(t, repo.Ping(ctx))
}
