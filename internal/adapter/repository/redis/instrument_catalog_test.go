package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/infrastructure/metrics"
	"github.com/iho/fundledger/internal/usecase/mocks"
)

func testInstrument() *domain.Instrument {
	maturity := time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC)
	return &domain.Instrument{
		ID:           "inst-1",
		Code:         "BON-HTG-2027",
		Name:         "Treasury Bond 2027",
		Currency:     "HTG",
		Status:       domain.InstrumentStatusAvailable,
		AnnualRate:   decimal.RequireFromString("0.085"),
		FaceValue:    decimal.NewFromInt(100),
		MinAmount:    decimal.NewFromInt(1000),
		MaturityDate: &maturity,
	}
}

func TestCachedInstrumentCatalog_ReadThrough(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer client.Close()

	ctrl := gomock.NewController(t)
	next := mocks.NewMockInstrumentCatalog(ctrl)
	next.EXPECT().GetByID(gomock.Any(), "inst-1").Return(testInstrument(), nil).Times(1)

	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	catalog := NewCachedInstrumentCatalog(next, NewCache(client, "t:"), time.Minute, m, zerolog.Nop())
	ctx := context.Background()

	first, err := catalog.GetByID(ctx, "inst-1")
	require.NoError(t, err)
	second, err := catalog.GetByID(ctx, "inst-1")
	require.NoError(t, err)

	assert.Equal(t, first.Code, second.Code)
	assert.True(t, second.MinAmount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, second.AnnualRate.Equal(decimal.RequireFromString("0.085")))
	require.NotNil(t, second.MaturityDate)
	assert.True(t, mr.Exists("t:instrument:inst-1"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
}

func TestCachedInstrumentCatalog_ErrorsAreNotCached(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer client.Close()

	ctrl := gomock.NewController(t)
	next := mocks.NewMockInstrumentCatalog(ctrl)
	next.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, domain.ErrInstrumentNotFound).Times(2)

	catalog := NewCachedInstrumentCatalog(next, NewCache(client, "t:"), 0, nil, zerolog.Nop())

	for i := 0; i < 2; i++ {
		_, err := catalog.GetByID(context.Background(), "missing")
		require.True(t, errors.Is(err, domain.ErrInstrumentNotFound))
	}
	assert.False(t, mr.Exists("t:instrument:missing"))
}

func TestCachedInstrumentCatalog_FallsBackWhenRedisDown(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer client.Close()
	mr.Close()

	ctrl := gomock.NewController(t)
	next := mocks.NewMockInstrumentCatalog(ctrl)
	next.EXPECT().ListAvailable(gomock.Any()).Return([]*domain.Instrument{testInstrument()}, nil)

	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	catalog := NewCachedInstrumentCatalog(next, NewCache(client, "t:"), time.Minute, m, zerolog.Nop())

	instruments, err := catalog.ListAvailable(context.Background())
	require.NoError(t, err)
	assert.Len(t, instruments, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("error")))
}

func TestCachedInstrumentCatalog_Invalidate(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer client.Close()

	ctrl := gomock.NewController(t)
	next := mocks.NewMockInstrumentCatalog(ctrl)
	next.EXPECT().ListAvailable(gomock.Any()).Return([]*domain.Instrument{testInstrument()}, nil).Times(2)

	catalog := NewCachedInstrumentCatalog(next, NewCache(client, "t:"), time.Minute, nil, zerolog.Nop())
	ctx := context.Background()

	_, err := catalog.ListAvailable(ctx)
	require.NoError(t, err)
	require.True(t, mr.Exists("t:instruments:available"))

	require.NoError(t, catalog.Invalidate(ctx, "inst-1"))
	assert.False(t, mr.Exists("t:instruments:available"))

	_, err = catalog.ListAvailable(ctx)
	require.NoError(t, err)
}
