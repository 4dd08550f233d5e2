package engine

import (
	"context"

	"github.com/danieljhkim/sketchpm/internal/state"
)

// History returns recorded install attempts, newest first.
// limit <= 0 returns every retained entry.
func (e *Engine) History(ctx context.Context, limit int) ([]state.HistoryEntry, error) {
	paths, err := e.Paths()
	if err != nil {
		return nil, err
	}

	entries, err := e.historyStore(paths).Load()
	if err != nil {
		return nil, err
	}
	return state.Recent(entries, limit), nil
}
