package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/classify"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/controller"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/locale"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/render"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/stage"
)

func tempDB(t *testing.T, opts ...Option) *SQLStore {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(DriverSQLite, filepath.Join(dir, "test.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var rich = classify.ClassifiedResponse{
	WordCount: 340, Length: classify.LengthLong, Specificity: classify.SpecificitySpecific,
	ContainsExample: true, DescribesProcess: true, OnTopic: true,
	Engagement: classify.EngagementHigh, Signal: classify.SignalNone,
}

// advanced returns a session two turns into the greeting stage.
func advanced(t *testing.T) *Session {
	t.Helper()
	sess := New("user-1", locale.Russian, render.V3Conversational, time.Now())
	c := controller.New(nil)
	for i := 0; i < 2; i++ {
		_, err := c.Step(&sess.State, rich)
		require.NoError(t, err)
		sess.Remember(rich)
		sess.RecordInsight(sess.Stage, rich, "For example, last March we migrated the ledger.")
	}
	return sess
}

func TestCreateLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := tempDB(t)
	sess := advanced(t)

	require.NoError(t, s.Create(ctx, sess))
	got, err := s.Load(ctx, sess.ID)
	require.NoError(t, err)

	assert.Equal(t, sess, got)
	assert.Equal(t, sess.Stage, got.Stage)
	assert.Equal(t, sess.Depth, got.Depth)
	assert.Equal(t, sess.Completeness(), got.Completeness())
	assert.Equal(t, sess.Tallies, got.Tallies)
	assert.Equal(t, locale.Russian, got.Language)
	assert.Equal(t, render.V3Conversational, got.PromptVersion)
}

func TestCreateLoad_FreshSession(t *testing.T) {
	ctx := context.Background()
	s := tempDB(t)
	sess := New("user-1", locale.English, render.DefaultVersion, time.Now())

	require.NoError(t, s.Create(ctx, sess))
	got, err := s.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess, got)
}

func TestSave_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := tempDB(t)
	sess := New("user-1", locale.English, render.DefaultVersion, time.Now())
	require.NoError(t, s.Create(ctx, sess))

	sess.Depth = 3
	sess.Tallies = stage.Tallies{Examples: 1, DepthReached: 2, Responses: 2}
	require.NoError(t, s.Save(ctx, sess))
	first, err := s.Load(ctx, sess.ID)
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, sess))
	second, err := s.Load(ctx, sess.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 3, second.Depth)
}

func TestLoad_NotFound(t *testing.T) {
	s := tempDB(t)
	_, err := s.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.Save(context.Background(), New("u", locale.English, render.DefaultVersion, time.Now()))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := tempDB(t)
	sess := New("u", locale.English, render.DefaultVersion, time.Now())
	require.NoError(t, s.Create(ctx, sess))
	require.NoError(t, s.AppendMessages(ctx, sess.ID, Message{Role: RoleUser, Text: "hi", Stage: stage.Greeting}))

	require.NoError(t, s.Delete(ctx, sess.ID))
	_, err := s.Load(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	msgs, err := s.Messages(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	assert.NoError(t, s.Delete(ctx, sess.ID))
}

func TestActiveForUser(t *testing.T) {
	ctx := context.Background()
	s := tempDB(t)
	base := time.Now().Add(-time.Hour)

	done := New("u", locale.English, render.DefaultVersion, base)
	done.Terminated = true
	require.NoError(t, s.Create(ctx, done))

	active := New("u", locale.English, render.DefaultVersion, base.Add(time.Minute))
	require.NoError(t, s.Create(ctx, active))

	require.NoError(t, s.Create(ctx, New("other", locale.English, render.DefaultVersion, base.Add(2*time.Minute))))

	got, err := s.ActiveForUser(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)

	_, err = s.ActiveForUser(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := tempDB(t)
	base := time.Now()
	var ids []string
	for i := 0; i < 3; i++ {
		sess := New("u", locale.English, render.DefaultVersion, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, s.Create(ctx, sess))
		ids = append(ids, sess.ID)
	}

	got, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ids[2], got[0].ID)
	assert.Equal(t, ids[1], got[1].ID)
}

func TestMessages_BoundedHistory(t *testing.T) {
	ctx := context.Background()
	s := tempDB(t, WithMaxHistory(4))
	sess := New("u", locale.English, render.DefaultVersion, time.Now())
	require.NoError(t, s.Create(ctx, sess))

	texts := []string{"one", "two", "three", "four", "five", "six"}
	for i := 0; i < len(texts); i += 2 {
		require.NoError(t, s.AppendMessages(ctx, sess.ID,
			Message{Role: RoleUser, Text: texts[i], Stage: stage.Greeting},
			Message{Role: RoleAgent, Text: texts[i+1], Stage: stage.Greeting},
		))
	}

	msgs, err := s.Messages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "three", msgs[0].Text)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "six", msgs[3].Text)
	assert.Equal(t, RoleAgent, msgs[3].Role)
	assert.False(t, msgs[0].CreatedAt.IsZero())
}

func TestExpired(t *testing.T) {
	ctx := context.Background()
	s := tempDB(t)
	now := time.Now()

	stale := New("a", locale.English, render.DefaultVersion, now.Add(-4*time.Hour))
	require.NoError(t, s.Create(ctx, stale))

	finished := New("b", locale.English, render.DefaultVersion, now.Add(-5*time.Hour))
	finished.Terminated = true
	require.NoError(t, s.Create(ctx, finished))

	fresh := New("c", locale.English, render.DefaultVersion, now)
	require.NoError(t, s.Create(ctx, fresh))

	expired, err := s.Expired(ctx, now.Add(-3*time.Hour))
	require.NoError(t, err)
	require.Len(t, expired, 1, "finished interviews never expire")
	assert.Equal(t, stale.ID, expired[0].ID)

	_, err = s.Load(ctx, stale.ID)
	assert.NoError(t, err, "listing does not delete")
}

func TestRebind(t *testing.T) {
	q := `UPDATE t SET a = ?, b = ? WHERE id = ?`
	assert.Equal(t, q, Rebind(DriverSQLite, q))
	assert.Equal(t, `UPDATE t SET a = $1, b = $2 WHERE id = $3`, Rebind(DriverPgx, q))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("mysql", "x")
	assert.Error(t, err)
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	sess := New("u", locale.English, render.DefaultVersion, time.Now())
	require.NoError(t, s.Create(ctx, sess))
	_, err = s.Load(ctx, sess.ID)
	assert.NoError(t, err)
}

func TestSession_InsightsAndHistory(t *testing.T) {
	sess := New("u", locale.English, render.DefaultVersion, time.Now())
	sess.RecordInsight(stage.FailureModes, rich, "When the deploy failed we rolled back.")
	sess.RecordInsight(stage.FailureModes, classify.ClassifiedResponse{}, "nothing")

	in := sess.Insights[stage.FailureModes]
	require.NotNil(t, in)
	assert.Len(t, in.Examples, 1)
	assert.Len(t, in.Processes, 1)
	assert.Len(t, in.FailureModes, 1)
	assert.Equal(t, 1, sess.ExampleCount())

	for i := 0; i < MaxClassified+5; i++ {
		sess.Remember(classify.ClassifiedResponse{WordCount: i})
	}
	require.Len(t, sess.Classified, MaxClassified)
	assert.Equal(t, 5, sess.Classified[0].WordCount)

	clone := sess.Clone()
	clone.Insights[stage.FailureModes].Examples[0] = "changed"
	clone.Classified[0].WordCount = -1
	assert.NotEqual(t, "changed", sess.Insights[stage.FailureModes].Examples[0])
	assert.Equal(t, 5, sess.Classified[0].WordCount)
}

func TestCachedStore(t *testing.T) {
	ctx := context.Background()
	origin := tempDB(t)
	s, err := NewCachedStore(origin, 8)
	require.NoError(t, err)

	sess := New("u", locale.English, render.DefaultVersion, time.Now())
	require.NoError(t, s.Create(ctx, sess))
	assert.Equal(t, 1, s.Len())

	got, err := s.Load(ctx, sess.ID)
	require.NoError(t, err)
	got.Depth = 4
	again, err := s.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Depth, "cached value must not alias callers")

	got.UpdatedAt = time.Now().UTC()
	require.NoError(t, s.Save(ctx, got))
	fromOrigin, err := origin.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, fromOrigin.Depth)

	require.NoError(t, s.Delete(ctx, sess.ID))
	assert.Zero(t, s.Len())
	_, err = s.Load(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocker_SerializesPerKey(t *testing.T) {
	l := NewLocker()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		overlap bool
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("s1")
			defer unlock()
			mu.Lock()
			inside++
			if inside > 1 {
				overlap = true
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.False(t, overlap)
	assert.Zero(t, l.Len(), "idle keys are released")
}

func TestLocker_IndependentKeys(t *testing.T) {
	l := NewLocker()
	unlockA := l.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := l.Lock("b")
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
	unlockA()
}
