package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scourdev/scour/pkg/finding"
)

// Sentinel errors surfaced by the store and resolution transitions.
var (
	ErrNotFound            = errors.New("finding not found")
	ErrBadTransition       = errors.New("invalid status transition")
	ErrAttestationRequired = errors.New("wontfix/false_positive require an attestation")
	ErrLocked              = errors.New("state is locked by another scan")
	ErrCorrupt             = errors.New("state file is corrupt")
	ErrVersionAhead        = errors.New("state version is newer than this binary")
)

// FatalError wraps a fatal failure with a one-line remediation hint.
type FatalError struct {
	Code string
	Hint string
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v (%s)", e.Code, e.Err, e.Hint)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Store reads and writes the state file under <repo>/.scour/. Writes are
// atomic (temp + fsync + rename) and the previous version is kept as .bak.
// Concurrent scans are rejected via an advisory lockfile.
type Store struct {
	dir string
}

// StateFile is the canonical state filename inside the tool directory.
const (
	Dir       = ".scour"
	StateFile = "state.json"
	lockFile  = "state.json.lock"
)

// NewStore returns a store rooted at repoRoot/.scour, creating the
// directory if needed.
func NewStore(repoRoot string) (*Store, error) {
	dir := filepath.Join(repoRoot, Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the full path of a file inside the tool directory.
func (st *Store) Path(name string) string { return filepath.Join(st.dir, name) }

// Lock acquires the advisory scan lock. The caller must Unlock when the
// scan finishes or is cancelled.
func (st *Store) Lock() error {
	f, err := os.OpenFile(st.Path(lockFile), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return &FatalError{
				Code: "E_STATE_LOCKED",
				Hint: "another scan is running; remove " + st.Path(lockFile) + " if it crashed",
				Err:  ErrLocked,
			}
		}
		return fmt.Errorf("acquire lock: %w", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	return f.Close()
}

// Unlock releases the advisory scan lock.
func (st *Store) Unlock() error {
	err := os.Remove(st.Path(lockFile))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Load reads and migrates the state file. A missing file yields a fresh
// state; an unparseable file aborts without overwriting and surfaces the
// backup location.
func (st *Store) Load() (*State, error) {
	path := st.Path(StateFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	// Migrations rewrite legacy keys on the raw document, before the
	// struct decode would silently drop them.
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &FatalError{
			Code: "E_STATE_CORRUPT",
			Hint: "state is unparseable; a previous copy is at " + path + ".bak",
			Err:  fmt.Errorf("%w: %v", ErrCorrupt, err),
		}
	}
	version := rawVersion(raw)
	if version > CurrentVersion {
		return nil, &FatalError{
			Code: "E_STATE_VERSION",
			Hint: fmt.Sprintf("state version %d needs a newer scour; upgrade and rescan", version),
			Err:  ErrVersionAhead,
		}
	}
	if version < CurrentVersion {
		Migrate(raw, version)
		data, err = json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("re-encode migrated state: %w", err)
		}
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, &FatalError{
			Code: "E_STATE_CORRUPT",
			Hint: "state decode failed after migration; a previous copy is at " + path + ".bak",
			Err:  fmt.Errorf("%w: %v", ErrCorrupt, err),
		}
	}
	s.Version = CurrentVersion
	normalize(&s)
	return &s, nil
}

// Save writes the state atomically: temp sibling, fsync, rename. The prior
// file, if any, becomes state.json.bak first.
func (st *Store) Save(s *State) error {
	s.Version = CurrentVersion
	return writeJSONAtomic(st.Path(StateFile), s)
}

// writeJSONAtomic is shared by state and plan persistence. Output is
// pretty-printed with stable key order (encoding/json sorts map keys) and
// LF endings.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}

	// Retain the previous version as .bak before replacing.
	if _, err := os.Stat(path); err == nil {
		prev, rerr := os.ReadFile(path)
		if rerr == nil {
			_ = os.WriteFile(path+".bak", prev, 0o644)
		}
	}

	if err := os.Rename(tmpName, path); err != nil {
		// Previous state intact; surface the temp file for diagnosis.
		return &FatalError{
			Code: "E_ATOMIC_WRITE",
			Hint: "rename failed; inspect " + tmpName,
			Err:  err,
		}
	}
	return nil
}

// WriteJSON exposes the atomic writer for sibling artifacts (plan.json,
// query.json).
func (st *Store) WriteJSON(name string, v any) error {
	return writeJSONAtomic(st.Path(name), v)
}

// ReadJSON loads a sibling artifact; missing files return os.ErrNotExist.
func (st *Store) ReadJSON(name string, v any) error {
	data, err := os.ReadFile(st.Path(name))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// normalize repairs nil maps after unmarshalling so callers never nil-check.
func normalize(s *State) {
	if s.Findings == nil {
		s.Findings = make(map[string]*finding.Finding)
	}
	if s.Subjective == nil {
		s.Subjective = make(map[string]*Assessment)
	}
	if s.ConcernDismissals == nil {
		s.ConcernDismissals = make(map[string]*Dismissal)
	}
	if s.Stats.ByStatus == nil {
		s.Stats.ByStatus = make(map[string]int)
	}
}
