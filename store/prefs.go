package store

import (
	"encoding/json"
	"os"

	"signcast/model"
)

// prefs are the only client state that survives a reload: filters and the
// page size. The page itself always restarts at 1; the cache is never
// persisted.
type prefs struct {
	Filters model.PlaylistFilters `json:"filters"`
	Limit   int                   `json:"limit"`
}

func loadPrefs(path string) (*prefs, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p prefs
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.Limit <= 0 {
		p.Limit = 20
	}
	return &p, nil
}

func savePrefs(path string, p prefs) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
