package request

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/for-sale/internal/apperrors"
	"github.com/palemoky/for-sale/internal/protocol"
	"github.com/palemoky/for-sale/internal/testutil"
)

func createParams() Params {
	return Params{
		Kind:    KindCreateRoom,
		Event:   protocol.EvtCreateRoom,
		Payload: protocol.CreateRoomPayload{Nickname: "alice"},
		Success: []protocol.EventName{protocol.EvtRoomCreated},
		Failure: []protocol.EventName{protocol.EvtRoomError, protocol.EvtRoomDestroyed},
	}
}

func newTracker(t *testing.T) (*Tracker, *testutil.FakeConn, *clockwork.FakeClock) {
	t.Helper()
	conn := testutil.NewConnectedFakeConn("p1")
	clock := clockwork.NewFakeClock()
	return NewTracker(conn, WithClock(clock)), conn, clock
}

func waitSettled(t *testing.T, call *Call) (Outcome, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := call.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "call did not settle")
	return out, err
}

func assertNoListeners(t *testing.T, conn *testutil.FakeConn) {
	t.Helper()
	for _, ev := range []protocol.EventName{
		protocol.EvtRoomCreated, protocol.EvtRoomJoined, protocol.EvtRoomState,
		protocol.EvtRoomError, protocol.EvtRoomDestroyed,
	} {
		assert.Zero(t, conn.Count(ev), "listener leak on %s", ev)
	}
}

func TestTracker_SuccessResolves(t *testing.T) {
	t.Parallel()
	tr, conn, _ := newTracker(t)

	call, err := tr.Issue(createParams())
	require.NoError(t, err)
	assert.NotEmpty(t, call.ID)
	assert.True(t, tr.InFlight(KindCreateRoom))
	assert.Equal(t, []protocol.EventName{protocol.EvtCreateRoom}, conn.SentEvents())

	conn.Emit(protocol.EvtRoomCreated, protocol.RoomCreatedPayload{RoomID: "ABC123"})

	out, err := waitSettled(t, call)
	require.NoError(t, err)
	assert.Equal(t, protocol.EvtRoomCreated, out.Event)
	assert.JSONEq(t, `{"roomId":"ABC123"}`, string(out.Data))
	assert.False(t, tr.InFlight(KindCreateRoom))
	assertNoListeners(t, conn)
}

func TestTracker_ServerErrorIsVerbatim(t *testing.T) {
	t.Parallel()
	tr, conn, _ := newTracker(t)

	call, err := tr.Issue(createParams())
	require.NoError(t, err)

	conn.Emit(protocol.EvtRoomError, protocol.MessagePayload{Message: "nickname taken"})

	_, err = waitSettled(t, call)
	var se *apperrors.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "nickname taken", se.Message)
	assert.Equal(t, protocol.EvtRoomError, se.Event)
	assert.False(t, apperrors.IsTimeout(err))
	assertNoListeners(t, conn)
}

func TestTracker_TimeoutIsDistinct(t *testing.T) {
	t.Parallel()
	tr, conn, clock := newTracker(t)

	call, err := tr.Issue(createParams())
	require.NoError(t, err)

	clock.Advance(DefaultTimeout - time.Millisecond)
	select {
	case <-call.Done():
		t.Fatal("settled before the timeout elapsed")
	default:
	}

	clock.Advance(time.Millisecond)
	_, err = waitSettled(t, call)
	assert.ErrorIs(t, err, apperrors.ErrRequestTimeout)
	assert.False(t, apperrors.IsServer(err))
	assert.False(t, tr.InFlight(KindCreateRoom))
	assertNoListeners(t, conn)

	// 超时后迟到的响应被忽略
	assert.False(t, conn.Emit(protocol.EvtRoomCreated, protocol.RoomCreatedPayload{RoomID: "LATE00"}))
}

func TestTracker_CustomTimeout(t *testing.T) {
	t.Parallel()
	tr, _, clock := newTracker(t)

	params := createParams()
	params.Timeout = 2 * time.Second
	call, err := tr.Issue(params)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = waitSettled(t, call)
	assert.True(t, apperrors.IsTimeout(err))
}

func TestTracker_DuplicateRejectedWithoutSending(t *testing.T) {
	t.Parallel()
	tr, conn, _ := newTracker(t)

	first, err := tr.Issue(createParams())
	require.NoError(t, err)

	second, err := tr.Issue(createParams())
	assert.ErrorIs(t, err, apperrors.ErrDuplicateRequest)
	assert.Nil(t, second)
	assert.Len(t, conn.SentEvents(), 1)

	conn.Emit(protocol.EvtRoomCreated, protocol.RoomCreatedPayload{RoomID: "ABC123"})
	_, err = waitSettled(t, first)
	require.NoError(t, err)

	// 结束后可以再次发起
	third, err := tr.Issue(createParams())
	require.NoError(t, err)
	assert.NotNil(t, third)
	assert.Len(t, conn.SentEvents(), 2)
}

func TestTracker_DifferentKindsRunConcurrently(t *testing.T) {
	t.Parallel()
	tr, _, _ := newTracker(t)

	_, err := tr.Issue(createParams())
	require.NoError(t, err)
	_, err = tr.Issue(Params{
		Kind:    KindJoinRoom,
		Event:   protocol.EvtJoinRoom,
		Success: []protocol.EventName{protocol.EvtRoomJoined},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []Kind{KindCreateRoom, KindJoinRoom}, tr.Outstanding())
}

func TestTracker_ExcludedKindRejected(t *testing.T) {
	t.Parallel()
	tr, conn, _ := newTracker(t)

	create := createParams()
	create.Excludes = []Kind{KindJoinRoom}
	_, err := tr.Issue(create)
	require.NoError(t, err)

	join, err := tr.Issue(Params{
		Kind:     KindJoinRoom,
		Event:    protocol.EvtJoinRoom,
		Success:  []protocol.EventName{protocol.EvtRoomJoined},
		Failure:  []protocol.EventName{protocol.EvtRoomError},
		Excludes: []Kind{KindCreateRoom},
	})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateRequest)
	assert.Nil(t, join)
	assert.Equal(t, []protocol.EventName{protocol.EvtCreateRoom}, conn.SentEvents())
	assert.Equal(t, []Kind{KindCreateRoom}, tr.Outstanding())
	assert.Equal(t, 1, conn.Count(protocol.EvtRoomError))
}

func TestTracker_OnSuccessRunsWithoutWaiter(t *testing.T) {
	t.Parallel()
	tr, conn, _ := newTracker(t)

	var got []Outcome
	params := createParams()
	params.OnSuccess = func(out Outcome) { got = append(got, out) }
	call, err := tr.Issue(params)
	require.NoError(t, err)

	// 没有调用方在等待，结果仍然被处理
	conn.Emit(protocol.EvtRoomCreated, protocol.RoomCreatedPayload{RoomID: "XYZ789"})

	require.Len(t, got, 1)
	assert.Equal(t, protocol.EvtRoomCreated, got[0].Event)
	select {
	case <-call.Done():
	default:
		t.Fatal("call not settled")
	}
}

func TestTracker_OnSuccessSkippedOnFailure(t *testing.T) {
	t.Parallel()
	tr, conn, clock := newTracker(t)

	called := false
	params := createParams()
	params.OnSuccess = func(Outcome) { called = true }
	call, err := tr.Issue(params)
	require.NoError(t, err)

	clock.Advance(DefaultTimeout)
	_, err = waitSettled(t, call)
	assert.True(t, apperrors.IsTimeout(err))

	conn.Emit(protocol.EvtRoomCreated, protocol.RoomCreatedPayload{RoomID: "LATE00"})
	assert.False(t, called)
}

func TestTracker_FirstOfSeveralSuccessEventsWins(t *testing.T) {
	t.Parallel()
	tr, conn, _ := newTracker(t)

	call, err := tr.Issue(Params{
		Kind:    KindJoinRoom,
		Event:   protocol.EvtJoinRoom,
		Payload: protocol.JoinRoomPayload{RoomID: "ABC123", Nickname: "bob"},
		Success: []protocol.EventName{protocol.EvtRoomJoined, protocol.EvtRoomState},
		Failure: []protocol.EventName{protocol.EvtRoomError},
	})
	require.NoError(t, err)

	conn.EmitRaw(protocol.EvtRoomState, `{"roomId":"ABC123"}`)
	conn.Emit(protocol.EvtRoomJoined, nil)

	out, err := waitSettled(t, call)
	require.NoError(t, err)
	assert.Equal(t, protocol.EvtRoomState, out.Event)
	assertNoListeners(t, conn)
}

func TestTracker_RoomDestroyedFailsPending(t *testing.T) {
	t.Parallel()
	tr, conn, _ := newTracker(t)

	call, err := tr.Issue(createParams())
	require.NoError(t, err)

	conn.Emit(protocol.EvtRoomDestroyed, protocol.MessagePayload{Message: "host left"})

	_, err = waitSettled(t, call)
	var se *apperrors.ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, protocol.EvtRoomDestroyed, se.Event)
	assert.Equal(t, "host left", se.Message)
	assertNoListeners(t, conn)
}

func TestCall_WaitHonoursContext(t *testing.T) {
	t.Parallel()
	tr, _, _ := newTracker(t)

	call, err := tr.Issue(createParams())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = call.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// 放弃等待不会取消请求
	assert.True(t, tr.InFlight(KindCreateRoom))
}
