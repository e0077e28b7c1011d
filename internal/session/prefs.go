package session

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const prefsFileName = "prefs.json"

// Prefs persists the session id chosen for each identity in a small JSON
// file, updated field-by-field so unrelated keys survive.
type Prefs struct {
	path string
}

// NewPrefs creates a Prefs store rooted at dataDir.
func NewPrefs(dataDir string) *Prefs {
	return &Prefs{path: filepath.Join(dataDir, prefsFileName)}
}

// SessionID returns the persisted session id for identity, or "" when none is
// stored or the stored value is unusable.
func (p *Prefs) SessionID(identity string) string {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return ""
	}

	id := gjson.GetBytes(data, prefsKey(identity)).String()
	if !IsValidID(id) {
		return ""
	}
	return id
}

// SetSessionID writes the session id for identity.
func (p *Prefs) SetSessionID(identity, sessionID string) error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("reading prefs: %w", err)
		}
		if mkErr := os.MkdirAll(filepath.Dir(p.path), 0o755); mkErr != nil {
			return fmt.Errorf("creating prefs directory: %w", mkErr)
		}
		data = []byte("{}")
	}

	newData, err := sjson.SetBytes(data, prefsKey(identity), sessionID)
	if err != nil {
		return fmt.Errorf("setting prefs key: %w", err)
	}

	if err := os.WriteFile(p.path, newData, 0o600); err != nil {
		return fmt.Errorf("writing prefs: %w", err)
	}
	return nil
}

// ClearSessionID removes the persisted session id for identity.
func (p *Prefs) ClearSessionID(identity string) error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading prefs: %w", err)
	}

	newData, err := sjson.DeleteBytes(data, prefsKey(identity))
	if err != nil {
		return fmt.Errorf("deleting prefs key: %w", err)
	}

	if err := os.WriteFile(p.path, newData, 0o600); err != nil {
		return fmt.Errorf("writing prefs: %w", err)
	}
	return nil
}

// prefsKey escapes the identity for use as a JSON path segment.
func prefsKey(identity string) string {
	escaped := ""
	for _, r := range identity {
		if r == '.' || r == '*' || r == '?' || r == '\\' || r == '|' || r == '#' || r == '@' {
			escaped += "\\"
		}
		escaped += string(r)
	}
	return "sessions." + escaped
}
