package state

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scourdev/scour/pkg/finding"
)

func TestStoreRoundTrip(t *testing.T) {
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)

	s := New()
	f := scanned("smells", "a.py", "f#L1")
	f.Status = finding.StatusOpen
	s.Findings[f.ID] = f
	s.Overall = 92.5
	s.AppendHistory(HistoryEntry{ScanID: "01ARZ", Overall: 92.5})
	require.NoError(t, st.Save(s))

	got, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, got.Version)
	assert.Equal(t, 92.5, got.Overall)
	require.Contains(t, got.Findings, f.ID)
	assert.Equal(t, "smells", got.Findings[f.ID].Detector)
	require.Len(t, got.ScanHistory, 1)
}

func TestStoreMissingFileYieldsFresh(t *testing.T) {
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)
	s, err := st.Load()
	require.NoError(t, err)
	assert.Empty(t, s.Findings)
	assert.NotNil(t, s.Subjective, "normalize must repair nil maps")
	assert.NotNil(t, s.Stats.ByStatus)
}

func TestStoreKeepsBackup(t *testing.T) {
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)

	s := New()
	s.Overall = 10
	require.NoError(t, st.Save(s))
	s.Overall = 20
	require.NoError(t, st.Save(s))

	bak, err := os.ReadFile(st.Path(StateFile) + ".bak")
	require.NoError(t, err)
	assert.Contains(t, string(bak), `"overall_score": 10`)
}

func TestStoreLock(t *testing.T) {
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, st.Lock())

	err = st.Lock()
	require.Error(t, err)
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, "E_STATE_LOCKED", fatal.Code)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, st.Unlock())
	assert.NoError(t, st.Lock(), "lock should be reacquirable after unlock")
	require.NoError(t, st.Unlock())
	assert.NoError(t, st.Unlock(), "double unlock is harmless")
}

func TestStoreCorruptState(t *testing.T) {
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(st.Path(StateFile), []byte("{not json"), 0o644))

	_, err = st.Load()
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, "E_STATE_CORRUPT", fatal.Code)
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestStoreRefusesNewerVersion(t *testing.T) {
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(st.Path(StateFile), []byte(`{"version": 99}`), 0o644))

	_, err = st.Load()
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, "E_STATE_VERSION", fatal.Code)
}

func TestStoreMigratesV1(t *testing.T) {
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)

	// Pre-versioning document with legacy score keys.
	legacy := `{
		"findings": {},
		"score": 88.0,
		"objective_strict": 80.0,
		"subjective_integrity_status": "pass",
		"scan_history": [
			{"scan_id": "old1", "score": 85.0, "objective_strict": 78.0}
		]
	}`
	require.NoError(t, os.WriteFile(st.Path(StateFile), []byte(legacy), 0o644))

	s, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, s.Version)
	assert.Equal(t, 88.0, s.Objective)
	assert.Equal(t, 88.0, s.Overall)
	assert.Equal(t, 80.0, s.Strict)
	assert.Equal(t, 80.0, s.VerifiedStrict, "verified channel seeds from strict")
	assert.Equal(t, "pass", s.Integrity.Status)
	require.Len(t, s.ScanHistory, 1)
	assert.Equal(t, 85.0, s.ScanHistory[0].Overall)
	assert.Equal(t, 78.0, s.ScanHistory[0].Strict)
}

func TestWriteJSONAtomicReplace(t *testing.T) {
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, st.WriteJSON("query.json", map[string]int{"n": 1}))

	var out map[string]int
	require.NoError(t, st.ReadJSON("query.json", &out))
	assert.Equal(t, 1, out["n"])

	// No stray temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(st.Path("query.json")))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temp file leaked: %s", e.Name())
	}
}

func TestHistoryFIFO(t *testing.T) {
	s := New()
	for i := 0; i < HistoryLimit+5; i++ {
		s.AppendHistory(HistoryEntry{ScanID: finding.LineSymbol(i)})
	}
	require.Len(t, s.ScanHistory, HistoryLimit)
	assert.Equal(t, finding.LineSymbol(5), s.ScanHistory[0].ScanID, "oldest entries trimmed first")
}
