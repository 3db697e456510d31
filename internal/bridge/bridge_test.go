package bridge

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/nateberkopec/chime/internal/persistence"
)

type stubLauncher struct {
	calls  int
	err    error
	status func() *persistence.StatusRecord
	seen   []*persistence.StatusRecord
}

func (l *stubLauncher) Launch() error {
	l.calls++
	if l.status != nil {
		l.seen = append(l.seen, l.status())
	}
	return l.err
}

func newStore(t *testing.T) *persistence.Store {
	t.Helper()
	store, err := persistence.NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestRequestStopPreservesOtherFields(t *testing.T) {
	store := newStore(t)
	original := `{"running":true,"ultimo_aviso":"08:15:00","contador_avisos":12,"ultima_actualizacion":"2024-05-01T08:15:00.000000+02:00","extra":{"kept":1}}`
	require.NoError(t, store.ReplaceStatus([]byte(original)))

	b := New(store, nil)
	require.NoError(t, b.RequestStop())

	data, err := store.ReadStatusBytes()
	require.NoError(t, err)
	assert.Equal(t, gjson.False, gjson.GetBytes(data, "running").Type)
	assert.Equal(t, "08:15:00", gjson.GetBytes(data, "ultimo_aviso").String())
	assert.EqualValues(t, 12, gjson.GetBytes(data, "contador_avisos").Int())
	assert.Equal(t, "2024-05-01T08:15:00.000000+02:00", gjson.GetBytes(data, "ultima_actualizacion").String())
	assert.EqualValues(t, 1, gjson.GetBytes(data, "extra.kept").Int())
}

func TestRequestStopWithoutStatusFile(t *testing.T) {
	store := newStore(t)
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.Local)
	b := New(store, nil)
	b.now = func() time.Time { return at }

	require.NoError(t, b.RequestStop())

	rec := store.ReadStatus()
	require.NotNil(t, rec)
	assert.False(t, rec.Running)
	assert.Zero(t, rec.NoticeCount)
	assert.Nil(t, rec.LastNoticeTime)
	assert.True(t, rec.LastUpdated.Equal(at), "fresh record is stamped, got %v", rec.LastUpdated)

	data, err := store.ReadStatusBytes()
	require.NoError(t, err)
	assert.Equal(t, gjson.String, gjson.GetBytes(data, "ultima_actualizacion").Type)
}

func TestRequestStopReplacesCorruptStatus(t *testing.T) {
	store := newStore(t)
	path := filepath.Join(store.Dir(), persistence.StatusFileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"running": tr`), 0644))

	require.NoError(t, New(store, nil).RequestStop())

	rec := store.ReadStatus()
	require.NotNil(t, rec)
	assert.False(t, rec.Running)
}

func TestStopRequestSticksAgainstLoopWrites(t *testing.T) {
	store := newStore(t)
	_, err := store.WriteStatus(persistence.StatusRecord{Running: true, NoticeCount: 1})
	require.NoError(t, err)

	require.NoError(t, New(store, nil).RequestStop())

	merged, err := store.WriteStatus(persistence.StatusRecord{Running: true, NoticeCount: 2})
	require.NoError(t, err)
	assert.False(t, merged.Running)
	assert.False(t, store.ReadStatus().Running)
}

func TestRequestStartWritesRunningBeforeLaunch(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.ReplaceStatus([]byte(`{"running":false,"ultimo_aviso":"10:00:00","contador_avisos":3,"ultima_actualizacion":null}`)))

	launcher := &stubLauncher{status: store.ReadStatus}
	b := New(store, launcher)
	require.NoError(t, b.RequestStop())

	require.NoError(t, b.RequestStart())

	assert.Equal(t, 1, launcher.calls)
	require.Len(t, launcher.seen, 1)
	require.NotNil(t, launcher.seen[0])
	assert.True(t, launcher.seen[0].Running, "status must say running when the loop is launched")
	assert.Equal(t, 3, launcher.seen[0].NoticeCount)
}

func TestRequestStartAllowsDuplicates(t *testing.T) {
	store := newStore(t)
	launcher := &stubLauncher{}
	b := New(store, launcher)

	require.NoError(t, b.RequestStart())
	require.NoError(t, b.RequestStart())

	assert.Equal(t, 2, launcher.calls)
}

func TestRequestStartLaunchFailure(t *testing.T) {
	store := newStore(t)
	previous := `{"running":false,"ultimo_aviso":"10:00:00","contador_avisos":3,"ultima_actualizacion":"2024-05-01T10:00:00.000000+02:00"}`
	require.NoError(t, store.ReplaceStatus([]byte(previous)))
	launcher := &stubLauncher{err: errors.New("exec format error"), status: store.ReadStatus}

	err := New(store, launcher).RequestStart()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exec format error")

	require.Len(t, launcher.seen, 1)
	assert.True(t, launcher.seen[0].Running, "running is set before the launch attempt")

	data, err := store.ReadStatusBytes()
	require.NoError(t, err)
	assert.JSONEq(t, previous, string(data))
	assert.False(t, store.ReadStatus().Running)
}

func TestRequestStartLaunchFailureWithoutStatusFile(t *testing.T) {
	store := newStore(t)
	launcher := &stubLauncher{err: errors.New("exec format error")}

	require.Error(t, New(store, launcher).RequestStart())

	rec := store.ReadStatus()
	require.NotNil(t, rec)
	assert.False(t, rec.Running)
}

func TestRequestStartWithoutLauncher(t *testing.T) {
	err := New(newStore(t), nil).RequestStart()
	assert.Error(t, err)
}

func TestDerive(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)

	cases := []struct {
		name      string
		rec       *persistence.StatusRecord
		requested time.Time
		want      DisplayState
	}{
		{"no status", nil, time.Time{}, DisplayStopped},
		{"running", &persistence.StatusRecord{Running: true, LastUpdated: persistence.Timestamp{Time: base}}, time.Time{}, DisplayRunning},
		{"stopped without request", &persistence.StatusRecord{LastUpdated: persistence.Timestamp{Time: base}}, time.Time{}, DisplayStopped},
		{"stop pending", &persistence.StatusRecord{LastUpdated: persistence.Timestamp{Time: base}}, base.Add(time.Second), DisplayStopping},
		{"loop wrote after request", &persistence.StatusRecord{LastUpdated: persistence.Timestamp{Time: base.Add(2 * time.Second)}}, base.Add(time.Second), DisplayStopped},
		{"never written by a loop", &persistence.StatusRecord{}, base, DisplayStopped},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Derive(tc.rec, tc.requested))
		})
	}
}

func TestDisplayStateString(t *testing.T) {
	assert.Equal(t, "Running", DisplayRunning.String())
	assert.Equal(t, "Stopped", DisplayStopped.String())
	assert.Equal(t, "Stopping…", DisplayStopping.String())
}

func TestNewSelfLauncherArgs(t *testing.T) {
	launcher, err := NewSelfLauncher("/data/chime")
	require.NoError(t, err)

	assert.NotEmpty(t, launcher.Executable)
	assert.Equal(t, []string{ServiceFlag, "-data-dir", "/data/chime"}, launcher.Args)
}

func TestExecLauncherMissingBinary(t *testing.T) {
	launcher := &ExecLauncher{Executable: filepath.Join(t.TempDir(), "does-not-exist")}
	assert.Error(t, launcher.Launch())
}
