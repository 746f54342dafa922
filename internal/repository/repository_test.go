package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	Tx
	commits, rollbacks int
	commitErr          error
}

func (t *fakeTx) Commit() error   { t.commits++; return t.commitErr }
func (t *fakeTx) Rollback() error { t.rollbacks++; return nil }

type fakeUoW struct {
	tx       *fakeTx
	beginErr error
}

func (u *fakeUoW) Begin(context.Context) (Tx, error) {
	if u.beginErr != nil {
		return nil, u.beginErr
	}
	return u.tx, nil
}

func TestRunInTx_CommitsOnSuccess(t *testing.T) {
	uow := &fakeUoW{tx: &fakeTx{}}
	require.NoError(t, RunInTx(context.Background(), uow, func(Tx) error { return nil }))
	assert.Equal(t, 1, uow.tx.commits)
	assert.Equal(t, 0, uow.tx.rollbacks)
}

func TestRunInTx_RollsBackOnError(t *testing.T) {
	uow := &fakeUoW{tx: &fakeTx{}}
	boom := errors.New("boom")

	err := RunInTx(context.Background(), uow, func(Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, uow.tx.commits)
	assert.Equal(t, 1, uow.tx.rollbacks)
}

func TestRunInTx_RollsBackOnPanic(t *testing.T) {
	uow := &fakeUoW{tx: &fakeTx{}}

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = RunInTx(context.Background(), uow, func(Tx) error { panic("kaboom") })
	})
	assert.Equal(t, 0, uow.tx.commits)
	assert.Equal(t, 1, uow.tx.rollbacks)
}

func TestRunInTx_CommitFailure(t *testing.T) {
	uow := &fakeUoW{tx: &fakeTx{commitErr: errors.New("disk full")}}

	err := RunInTx(context.Background(), uow, func(Tx) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit transaction")
	assert.Equal(t, 0, uow.tx.rollbacks)
}

func TestRunInTx_BeginFailure(t *testing.T) {
	uow := &fakeUoW{beginErr: errors.New("no connection")}
	called := false

	err := RunInTx(context.Background(), uow, func(Tx) error { called = true; return nil })
	require.Error(t, err)
	assert.False(t, called)
}
