package moderation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snaiperskaya/snaibot/internal/access"
)

func kinds(t *SpamTracker, channel, identity, text string, n int) []Kind {
	var out []Kind
	for i := 0; i < n; i++ {
		out = append(out, t.Observe(channel, identity, access.None, text).Kind)
	}
	return out
}

func TestSpamDistinctMessagesNeverAct(t *testing.T) {
	assert := assert.New(t)
	st := NewSpamTracker(Thresholds{NumTilKick: 2, NumTilBan: 1})

	for i := 0; i < 50; i++ {
		act := st.Observe("#chan", "bob@host", access.None, fmt.Sprintf("message %d", i))
		assert.Equal(None, act.Kind)

		rec, ok := st.Record("#chan", "bob@host")
		assert.True(ok)
		assert.Equal(1, rec.RepeatCount)
	}
}

func TestSpamCaseInsensitiveRepeat(t *testing.T) {
	st := NewSpamTracker(Thresholds{NumTilKick: 3, NumTilBan: 5})

	st.Observe("#chan", "bob@host", access.None, "Hello")
	st.Observe("#chan", "bob@host", access.None, "HELLO")
	act := st.Observe("#Chan", "bob@host", access.None, "hello")
	assert.Equal(t, Kick, act.Kind)
	assert.Equal(t, SpamReason, act.Reason)
}

func TestSpamThresholdExactness(t *testing.T) {
	for k := 1; k <= 6; k++ {
		st := NewSpamTracker(Thresholds{NumTilKick: k, NumTilBan: 10})
		got := kinds(st, "#chan", "bob@host", "hi", k)

		// the first message only creates the record
		for i := 0; i < k-1; i++ {
			assert.Equal(t, None, got[i], "k=%d call=%d", k, i+1)
		}
		if k > 1 {
			assert.Equal(t, Kick, got[k-1], "k=%d", k)
		}
	}
}

func TestSpamNextRepeatAfterKickKicksAgain(t *testing.T) {
	st := NewSpamTracker(Thresholds{NumTilKick: 4, NumTilBan: 10})

	assert.Equal(t, []Kind{None, None, None, Kick, Kick, Kick}, kinds(st, "#chan", "bob@host", "hi", 6))
	rec, _ := st.Record("#chan", "bob@host")
	assert.Equal(t, 3, rec.RepeatCount)
	assert.Equal(t, 3, rec.PriorKicks)
}

func TestSpamBanEscalation(t *testing.T) {
	assert := assert.New(t)
	st := NewSpamTracker(Thresholds{NumTilKick: 3, NumTilBan: 3})

	assert.Equal([]Kind{None, None, Kick, Kick, KickAndBan}, kinds(st, "#chan", "bob@host", "hi", 5))

	rec, ok := st.Record("#chan", "bob@host")
	require.True(t, ok)
	assert.Equal(0, rec.PriorKicks)
	assert.Equal(2, rec.RepeatCount)

	// the cycle starts over after a ban
	assert.Equal([]Kind{Kick, Kick, KickAndBan}, kinds(st, "#chan", "bob@host", "hi", 3))
}

func TestSpamScenario(t *testing.T) {
	assert := assert.New(t)
	st := NewSpamTracker(Thresholds{NumTilKick: 3, NumTilBan: 2})

	assert.Equal([]Kind{None, None, Kick}, kinds(st, "#chan", "bob@host", "hi", 3))
	rec, _ := st.Record("#chan", "bob@host")
	assert.Equal(1, rec.PriorKicks)

	// PriorKicks(1) >= NumTilBan-1 so the next crossing bans
	assert.Equal([]Kind{KickAndBan}, kinds(st, "#chan", "bob@host", "hi", 1))
	rec, _ = st.Record("#chan", "bob@host")
	assert.Equal(0, rec.PriorKicks)
}

func TestSpamChangedMessageKeepsPriorKicks(t *testing.T) {
	assert := assert.New(t)
	st := NewSpamTracker(Thresholds{NumTilKick: 2, NumTilBan: 5})

	assert.Equal([]Kind{None, Kick}, kinds(st, "#chan", "bob@host", "a", 2))
	st.Observe("#chan", "bob@host", access.None, "b")

	rec, _ := st.Record("#chan", "bob@host")
	assert.Equal("b", rec.LastMessage)
	assert.Equal(1, rec.RepeatCount)
	assert.Equal(1, rec.PriorKicks)
}

func TestSpamPrivilegeExemption(t *testing.T) {
	st := NewSpamTracker(Thresholds{NumTilKick: 1, NumTilBan: 1})

	for _, lvl := range []access.Level{access.Voice, access.HalfOp, access.Op, access.Admin, access.Owner} {
		for i := 0; i < 10; i++ {
			act := st.Observe("#chan", "vip@host", lvl, "spam spam spam")
			assert.Equal(t, NoAction, act)
		}
		_, ok := st.Record("#chan", "vip@host")
		assert.False(t, ok, "record created for %s", lvl)
	}
}

func TestSpamChannelsAndIdentitiesAreIndependent(t *testing.T) {
	assert := assert.New(t)
	st := NewSpamTracker(Thresholds{NumTilKick: 2, NumTilBan: 5})

	st.Observe("#one", "bob@host", access.None, "hi")
	st.Observe("#two", "bob@host", access.None, "hi")
	st.Observe("#one", "eve@host", access.None, "hi")

	assert.Equal(Kick, st.Observe("#one", "bob@host", access.None, "hi").Kind)
	rec, _ := st.Record("#two", "bob@host")
	assert.Equal(1, rec.RepeatCount)
	rec, _ = st.Record("#one", "eve@host")
	assert.Equal(0, rec.PriorKicks)
}

func TestSpamEmptyMessage(t *testing.T) {
	st := NewSpamTracker(Thresholds{NumTilKick: 2, NumTilBan: 5})

	assert.Equal(t, []Kind{None, Kick}, kinds(st, "#chan", "bob@host", "", 2))
}
