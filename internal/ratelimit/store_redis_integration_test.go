//go:build integration

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	redisplatform "vetcred/internal/platform/redis"
	"vetcred/internal/ratelimit"
	"vetcred/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	rc    *containers.RedisContainer
	store *ratelimit.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.rc = containers.NewRedisContainer(s.T())
	s.store = ratelimit.NewRedisStore(&redisplatform.Client{Client: s.rc.Client})
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.rc.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestFailuresAccumulate() {
	ctx := context.Background()
	now := time.Now()

	for i := 1; i <= 3; i++ {
		n, err := s.store.RecordFailure(ctx, "10.0.0.1", now.Add(time.Duration(i)*time.Second), ratelimit.DefaultWindow)
		s.Require().NoError(err)
		s.Equal(i, n)
	}

	count, err := s.store.Count(ctx, "10.0.0.1", now.Add(4*time.Second), ratelimit.DefaultWindow)
	s.Require().NoError(err)
	s.Equal(3, count)
}

func (s *RedisStoreSuite) TestOldFailuresFallOutOfWindow() {
	ctx := context.Background()
	now := time.Now()

	_, err := s.store.RecordFailure(ctx, "10.0.0.1", now.Add(-ratelimit.DefaultWindow-time.Second), ratelimit.DefaultWindow)
	s.Require().NoError(err)
	_, err = s.store.RecordFailure(ctx, "10.0.0.1", now, ratelimit.DefaultWindow)
	s.Require().NoError(err)

	count, err := s.store.Count(ctx, "10.0.0.1", now, ratelimit.DefaultWindow)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *RedisStoreSuite) TestClear() {
	ctx := context.Background()
	now := time.Now()

	_, err := s.store.RecordFailure(ctx, "10.0.0.1", now, ratelimit.DefaultWindow)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Clear(ctx, "10.0.0.1"))

	count, err := s.store.Count(ctx, "10.0.0.1", now, ratelimit.DefaultWindow)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *RedisStoreSuite) TestKeysAreIndependent() {
	ctx := context.Background()
	now := time.Now()

	_, err := s.store.RecordFailure(ctx, "10.0.0.1", now, ratelimit.DefaultWindow)
	s.Require().NoError(err)

	count, err := s.store.Count(ctx, "10.0.0.2", now, ratelimit.DefaultWindow)
	s.Require().NoError(err)
	s.Zero(count)
}
