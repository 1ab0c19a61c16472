package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSequence_Next(t *testing.T) {
	client, mock := redismock.NewClientMock()
	seq := NewRedisSequenceGenerator(client)
	ctx := context.Background()

	mock.ExpectIncr("coop-ledger:seq:loan_number").SetVal(7)
	n, err := seq.Next(ctx, SequenceLoanNumber)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	mock.ExpectIncr("coop-ledger:seq:fine_number").SetErr(errors.New("connection refused"))
	_, err = seq.Next(ctx, SequenceFineNumber)
	assert.ErrorContains(t, err, "connection refused")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_TryLock(t *testing.T) {
	ctx := context.Background()
	key := "coop-ledger:lock:late-fine-scan"

	tests := []struct {
		name         string
		setupMock    func(mock redismock.ClientMock)
		wantAcquired bool
		wantErr      bool
		release      bool
	}{
		{
			name: "acquired and released",
			setupMock: func(mock redismock.ClientMock) {
				mock.ExpectSetNX(key, "token-1", time.Minute).SetVal(true)
				mock.ExpectEvalSha(releaseScript.Hash(), []string{key}, "token-1").SetVal(int64(1))
			},
			wantAcquired: true,
			release:      true,
		},
		{
			name: "held elsewhere",
			setupMock: func(mock redismock.ClientMock) {
				mock.ExpectSetNX(key, "token-1", time.Minute).SetVal(false)
			},
		},
		{
			name: "redis down",
			setupMock: func(mock redismock.ClientMock) {
				mock.ExpectSetNX(key, "token-1", time.Minute).SetErr(errors.New("dial tcp: refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mock := redismock.NewClientMock()
			tt.setupMock(mock)

			locker := NewRedisLocker(client, time.Minute)
			locker.token = func() string { return "token-1" }

			release, acquired, err := locker.TryLock(ctx, "late-fine-scan")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantAcquired, acquired)

			if tt.release {
				require.NotNil(t, release)
				assert.NoError(t, release(ctx))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
