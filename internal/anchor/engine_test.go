package anchor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/soyeahso/teo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	tr domain.Transport
}

func (s stubResolver) Transport(_ string) (domain.Transport, bool) {
	return s.tr, s.tr != nil
}

type countingPersister struct {
	saves   int
	deletes int
}

func (p *countingPersister) Save(_ *domain.Session) error        { p.saves++; return nil }
func (p *countingPersister) Delete(_ domain.SessionKey) error    { p.deletes++; return nil }

func rootBuilder(_ context.Context, _ *domain.Session) domain.Screen {
	return domain.Screen{ScreenID: "main_menu", Title: "Main", Body: "menu"}
}

func newTestEngine(tr domain.Transport) *Engine {
	return New(Config{}, stubResolver{tr: tr}, rootBuilder, testLogger())
}

func testKey() domain.SessionKey {
	return domain.SessionKey{ChannelID: "telegram", ChatID: "100", UserID: "7"}
}

func btn(actionID string) domain.Event {
	return domain.Event{Key: testKey(), Kind: domain.EventButton, ActionID: actionID}
}

func txt(text, messageID string) domain.Event {
	return domain.Event{Key: testKey(), Kind: domain.EventText, Text: text, MessageID: messageID}
}

func TestEngine_ButtonNavigation(t *testing.T) {
	tr := &mockTransport{}
	e := newTestEngine(tr)
	calls := 0
	e.MustRegister("a", func(_ context.Context, _ *domain.Session, _ map[string]string) (domain.Screen, error) {
		calls++
		return screenWithID("a"), nil
	})
	e.MustRegister("b", func(_ context.Context, _ *domain.Session, _ map[string]string) (domain.Screen, error) {
		return screenWithID("b"), nil
	})

	require.NoError(t, e.HandleEvent(context.Background(), btn("a")))
	require.NoError(t, e.HandleEvent(context.Background(), btn("b")))

	sess, ok := e.Sessions().Get(testKey())
	require.True(t, ok)
	assert.Equal(t, "b", sess.Current.ScreenID)
	require.Len(t, sess.History, 1)
	assert.Equal(t, "a", sess.History[0].ScreenID)
	assert.Equal(t, 1, calls)

	// First event created the anchor; everything after edits it.
	assert.Len(t, tr.sent, 1)
	assert.Len(t, tr.edits, 1)
}

func TestEngine_BackRedisplaysWithoutHandler(t *testing.T) {
	tr := &mockTransport{}
	e := newTestEngine(tr)
	calls := 0
	e.MustRegister("a", func(_ context.Context, _ *domain.Session, _ map[string]string) (domain.Screen, error) {
		calls++
		return screenWithID("a"), nil
	})
	e.MustRegister("b", func(_ context.Context, _ *domain.Session, _ map[string]string) (domain.Screen, error) {
		return screenWithID("b"), nil
	})

	require.NoError(t, e.HandleEvent(context.Background(), btn("a")))
	require.NoError(t, e.HandleEvent(context.Background(), btn("b")))
	require.NoError(t, e.HandleEvent(context.Background(), btn(domain.ActionBack)))

	sess, _ := e.Sessions().Get(testKey())
	assert.Equal(t, "a", sess.Current.ScreenID)
	assert.Empty(t, sess.History)
	assert.Equal(t, 1, calls, "back re-displays from history, no handler runs")
}

func TestEngine_BackOnEmptyHistoryShowsRoot(t *testing.T) {
	tr := &mockTransport{}
	e := newTestEngine(tr)

	require.NoError(t, e.HandleEvent(context.Background(), btn(domain.ActionBack)))

	sess, _ := e.Sessions().Get(testKey())
	assert.Equal(t, "main_menu", sess.Current.ScreenID)
}

func TestEngine_MainResetsHistoryAndInput(t *testing.T) {
	tr := &mockTransport{}
	e := newTestEngine(tr)
	e.MustRegister("ask", func(_ context.Context, sess *domain.Session, _ map[string]string) (domain.Screen, error) {
		e.Arm(sess, domain.InputText, "anything", 0, nil)
		return screenWithID("ask"), nil
	})

	require.NoError(t, e.HandleEvent(context.Background(), btn("ask")))
	sess, _ := e.Sessions().Get(testKey())
	require.NotNil(t, sess.Awaiting)

	require.NoError(t, e.HandleEvent(context.Background(), btn(domain.ActionMain)))
	assert.Equal(t, "main_menu", sess.Current.ScreenID)
	assert.Empty(t, sess.History)
	assert.Nil(t, sess.Awaiting, "navigating away cancels the open question")
}

func TestEngine_BackCancelsPendingInput(t *testing.T) {
	tr := &mockTransport{}
	e := newTestEngine(tr)
	e.MustRegister("a", func(_ context.Context, _ *domain.Session, _ map[string]string) (domain.Screen, error) {
		return screenWithID("a"), nil
	})
	e.MustRegister("ask", func(_ context.Context, sess *domain.Session, _ map[string]string) (domain.Screen, error) {
		e.Arm(sess, domain.InputText, "anything", 0, nil)
		return screenWithID("ask"), nil
	})

	require.NoError(t, e.HandleEvent(context.Background(), btn("a")))
	require.NoError(t, e.HandleEvent(context.Background(), btn("ask")))
	require.NoError(t, e.HandleEvent(context.Background(), btn(domain.ActionBack)))

	sess, _ := e.Sessions().Get(testKey())
	assert.Nil(t, sess.Awaiting)
	assert.Equal(t, "a", sess.Current.ScreenID)
}

func TestEngine_UnknownActionKeepsCurrentScreen(t *testing.T) {
	tr := &mockTransport{}
	e := newTestEngine(tr)
	e.MustRegister("a", func(_ context.Context, _ *domain.Session, _ map[string]string) (domain.Screen, error) {
		return screenWithID("a"), nil
	})

	require.NoError(t, e.HandleEvent(context.Background(), btn("a")))
	require.NoError(t, e.HandleEvent(context.Background(), btn("ghost_action")))

	sess, _ := e.Sessions().Get(testKey())
	assert.Equal(t, "a", sess.Current.ScreenID)
	assert.Empty(t, sess.History, "an ignored action must not grow the stack")
}

func TestEngine_HandlerErrorShowsRetryScreen(t *testing.T) {
	tr := &mockTransport{}
	e := newTestEngine(tr)
	e.MustRegister("flaky", func(_ context.Context, _ *domain.Session, _ map[string]string) (domain.Screen, error) {
		return domain.Screen{}, errors.New("upstream down")
	})

	require.NoError(t, e.HandleEvent(context.Background(), btn("flaky?x=1")))

	sess, _ := e.Sessions().Get(testKey())
	require.Equal(t, "error", sess.Current.ScreenID)
	// The retry button replays the exact action, params included.
	assert.Equal(t, "flaky?x=1", sess.Current.Actions[0][0].ActionID)
}

func TestEngine_ActionParams(t *testing.T) {
	tr := &mockTransport{}
	e := newTestEngine(tr)
	var got map[string]string
	e.MustRegister("news_list", func(_ context.Context, _ *domain.Session, params map[string]string) (domain.Screen, error) {
		got = params
		return screenWithID("news"), nil
	})

	require.NoError(t, e.HandleEvent(context.Background(), btn("news_list?page=3")))
	assert.Equal(t, "3", got["page"])
}

func TestEngine_TextResolvedByNamedResolver(t *testing.T) {
	tr := &mockTransport{}
	e := newTestEngine(tr)
	var gotValue string
	e.MustRegister("ask", func(_ context.Context, sess *domain.Session, _ map[string]string) (domain.Screen, error) {
		e.Arm(sess, domain.InputText, "habit name", 0, map[string]string{ResolverKey: "habit_name"})
		return screenWithID("ask"), nil
	})
	e.MustRegisterResolver("habit_name", func(_ context.Context, _ *domain.Session, value string, _ map[string]string) (domain.Screen, error) {
		gotValue = value
		return screenWithID("created"), nil
	})

	require.NoError(t, e.HandleEvent(context.Background(), btn("ask")))
	require.NoError(t, e.HandleEvent(context.Background(), txt("  drink water  ", "u1")))

	assert.Equal(t, "drink water", gotValue, "input arrives trimmed")

	sess, _ := e.Sessions().Get(testKey())
	assert.Equal(t, "created", sess.Current.ScreenID)
	assert.Nil(t, sess.Awaiting)

	// The consumed input message is tidied away.
	require.Len(t, tr.deletes, 1)
	assert.Equal(t, "u1", tr.deletes[0].MessageID)
}

func TestEngine_InvalidTextKeepsAwaiting(t *testing.T) {
	tr := &mockTransport{}
	e := newTestEngine(tr)
	e.MustRegister("ask", func(_ context.Context, sess *domain.Session, _ map[string]string) (domain.Screen, error) {
		e.Arm(sess, domain.InputURL, "sheet link", 0, nil)
		return screenWithID("ask"), nil
	})

	require.NoError(t, e.HandleEvent(context.Background(), btn("ask")))
	edits := len(tr.edits)

	require.NoError(t, e.HandleEvent(context.Background(), txt("nope", "u1")))

	sess, _ := e.Sessions().Get(testKey())
	require.NotNil(t, sess.Awaiting)
	require.Len(t, tr.notices, 1)
	assert.Contains(t, tr.notices[0], "❌")
	assert.Len(t, tr.edits, edits, "the anchor stays as is while the user retries")
}

func TestEngine_FailedValidationNoticeIsRetryable(t *testing.T) {
	tr := &mockTransport{}
	e := newTestEngine(tr)
	e.MustRegister("ask", func(_ context.Context, sess *domain.Session, _ map[string]string) (domain.Screen, error) {
		e.Arm(sess, domain.InputURL, "sheet link", 0, nil)
		return screenWithID("ask"), nil
	})

	require.NoError(t, e.HandleEvent(context.Background(), btn("ask")))

	tr.noticeErr = errors.New("flood limit")
	err := e.HandleEvent(context.Background(), txt("nope", "u1"))
	require.ErrorIs(t, err, ErrTransport, "a lost hint must surface as retryable")

	// Nothing was consumed; replaying the event delivers the hint.
	sess, _ := e.Sessions().Get(testKey())
	require.NotNil(t, sess.Awaiting)

	tr.noticeErr = nil
	require.NoError(t, e.HandleEvent(context.Background(), txt("nope", "u1")))
	require.Len(t, tr.notices, 1)
	assert.Contains(t, tr.notices[0], "❌")
}

func TestEngine_ExpiredInputShowsExpiredScreen(t *testing.T) {
	tr := &mockTransport{}
	e := newTestEngine(tr)
	e.MustRegister("ask", func(_ context.Context, sess *domain.Session, _ map[string]string) (domain.Screen, error) {
		e.Arm(sess, domain.InputURL, "sheet link", 0, nil)
		return screenWithID("ask"), nil
	})

	require.NoError(t, e.HandleEvent(context.Background(), btn("ask")))
	sess, _ := e.Sessions().Get(testKey())
	require.NotNil(t, sess.Awaiting)
	sess.Awaiting.ArmedAt = sess.Awaiting.ArmedAt.Add(-10 * time.Minute)

	require.NoError(t, e.HandleEvent(context.Background(), txt("https://ok.example/doc", "u1")))

	assert.Nil(t, sess.Awaiting)
	assert.Equal(t, "input_expired", sess.Current.ScreenID)
}

func TestEngine_TextWithoutAwaitingIgnored(t *testing.T) {
	tr := &mockTransport{}
	e := newTestEngine(tr)

	require.NoError(t, e.HandleEvent(context.Background(), txt("hello", "u1")))

	assert.Empty(t, tr.sent)
	assert.Empty(t, tr.notices)
}

func TestEngine_TransientFailureIsRetrySafe(t *testing.T) {
	tr := &mockTransport{}
	e := newTestEngine(tr)
	e.MustRegister("a", func(_ context.Context, _ *domain.Session, _ map[string]string) (domain.Screen, error) {
		return screenWithID("a"), nil
	})
	e.MustRegister("b", func(_ context.Context, _ *domain.Session, _ map[string]string) (domain.Screen, error) {
		return screenWithID("b"), nil
	})

	require.NoError(t, e.HandleEvent(context.Background(), btn("a")))

	tr.editErr = errors.New("timeout")
	err := e.HandleEvent(context.Background(), btn("b"))
	require.ErrorIs(t, err, ErrTransport)

	sess, _ := e.Sessions().Get(testKey())
	assert.Equal(t, "a", sess.Current.ScreenID, "failed present commits nothing")
	assert.Empty(t, sess.History)

	// Delivery retried after the outage: state advances exactly once.
	tr.editErr = nil
	require.NoError(t, e.HandleEvent(context.Background(), btn("b")))
	assert.Equal(t, "b", sess.Current.ScreenID)
	assert.Len(t, sess.History, 1)
}

func TestEngine_SingleAnchorAcrossRecovery(t *testing.T) {
	tr := &mockTransport{}
	e := newTestEngine(tr)
	e.MustRegister("a", func(_ context.Context, _ *domain.Session, _ map[string]string) (domain.Screen, error) {
		return screenWithID("a"), nil
	})
	e.MustRegister("b", func(_ context.Context, _ *domain.Session, _ map[string]string) (domain.Screen, error) {
		return screenWithID("b"), nil
	})

	require.NoError(t, e.HandleEvent(context.Background(), btn("a")))

	// The user deletes the anchor out from under us.
	tr.editResults = []domain.EditResult{domain.EditNotFound}
	require.NoError(t, e.HandleEvent(context.Background(), btn("b")))
	require.NoError(t, e.HandleEvent(context.Background(), btn(domain.ActionBack)))

	// One original + one replacement; never two live anchors.
	assert.Len(t, tr.sent, 2)
	sess, _ := e.Sessions().Get(testKey())
	assert.Equal(t, "m2", sess.AnchorRef.MessageID)
}

func TestEngine_HideNoticeDeletesMessage(t *testing.T) {
	tr := &mockTransport{}
	e := newTestEngine(tr)

	ev := btn(domain.ActionHideNotice)
	ev.MessageID = "n1"
	require.NoError(t, e.HandleEvent(context.Background(), ev))

	require.Len(t, tr.deletes, 1)
	assert.Equal(t, "n1", tr.deletes[0].MessageID)
	assert.Empty(t, tr.sent, "dismissing a notice never touches the anchor")
}

func TestEngine_NoTransport(t *testing.T) {
	e := newTestEngine(nil)
	err := e.HandleEvent(context.Background(), btn("a"))
	assert.ErrorIs(t, err, ErrNoTransport)
}

func TestEngine_PersistsAfterSuccessfulEvent(t *testing.T) {
	tr := &mockTransport{}
	e := newTestEngine(tr)
	p := &countingPersister{}
	e.SetPersister(p)
	e.MustRegister("a", func(_ context.Context, _ *domain.Session, _ map[string]string) (domain.Screen, error) {
		return screenWithID("a"), nil
	})

	require.NoError(t, e.HandleEvent(context.Background(), btn("a")))
	assert.Equal(t, 1, p.saves)

	tr.editErr = errors.New("timeout")
	_ = e.HandleEvent(context.Background(), btn("a"))
	assert.Equal(t, 1, p.saves, "failed events are not persisted")
}
