package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaani/client/internal/call"
	"github.com/vaani/client/internal/call/calltest"
	"github.com/vaani/client/internal/contacts"
	"github.com/vaani/client/internal/model"
)

func newLoopbackCall(t *testing.T, autoAnswer bool) (*call.Controller, *calltest.ManualScheduler) {
	t.Helper()
	sched := calltest.NewManualScheduler(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	dir := contacts.NewDirectory(nil, sched)
	_, err := dir.Add(model.Contact{ID: "u1"})
	require.NoError(t, err)

	ctrl := call.NewController(call.Config{RingTimeout: 30 * time.Second}, dir, nil, sched, nil, sched)
	ctrl.SetSignaler(NewLoopback(ctrl, sched, 4*time.Second, autoAnswer))
	return ctrl, sched
}

func TestLoopback_autoAnswersAfterDelay(t *testing.T) {
	ctrl, sched := newLoopbackCall(t, true)

	_, err := ctrl.Initiate("u1", model.CallVideo, nil)
	require.NoError(t, err)

	sched.Advance(3 * time.Second)
	assert.Equal(t, model.CallRinging, ctrl.State())

	sched.Advance(time.Second)
	cur, ok := ctrl.Current()
	require.True(t, ok)
	assert.Equal(t, model.CallConnected, cur.State)
	assert.JSONEq(t, string(loopbackAnswer), string(cur.MediaAnswer))
}

func TestLoopback_hangupCancelsAnswer(t *testing.T) {
	ctrl, sched := newLoopbackCall(t, true)

	_, err := ctrl.Initiate("u1", model.CallVoice, nil)
	require.NoError(t, err)
	_, err = ctrl.HangUp()
	require.NoError(t, err)
	assert.Zero(t, sched.Pending())

	sched.Advance(10 * time.Second)
	assert.Equal(t, model.CallEnded, ctrl.State())
}

func TestLoopback_withoutAutoAnswerTimesOut(t *testing.T) {
	ctrl, sched := newLoopbackCall(t, false)

	_, err := ctrl.Initiate("u1", model.CallVoice, nil)
	require.NoError(t, err)
	sched.Advance(30 * time.Second)

	cur, ok := ctrl.Current()
	require.True(t, ok)
	assert.Equal(t, model.EndTimeout, cur.EndReason)
}
