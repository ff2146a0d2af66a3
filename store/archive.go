package store

import (
	"log/slog"
	"sync"
)

// Archive buffers decision rows per game and writes them out once enough
// games have ended. It is safe for concurrent use by request handlers.
type Archive struct {
	dir        string
	flushGames int
	logger     *slog.Logger

	mu      sync.Mutex
	pending map[string][]DecisionRow
	ready   []DecisionRow
	ended   int
}

// NewArchive writes into dir every flushGames ended games. A flushGames below
// one flushes on every game end.
func NewArchive(dir string, flushGames int, logger *slog.Logger) *Archive {
	if flushGames < 1 {
		flushGames = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Archive{
		dir:        dir,
		flushGames: flushGames,
		logger:     logger,
		pending:    make(map[string][]DecisionRow),
	}
}

// Record buffers one decision until its game ends.
func (a *Archive) Record(row DecisionRow) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending[row.GameID] = append(a.pending[row.GameID], row)
}

// Pending reports how many games have buffered rows and have not ended.
func (a *Archive) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// EndGame stamps result on the game's rows and flushes when the batch is
// full. The returned path is empty when nothing was written.
func (a *Archive) EndGame(gameID, result string) (string, error) {
	a.mu.Lock()
	rows, ok := a.pending[gameID]
	delete(a.pending, gameID)
	if ok {
		for i := range rows {
			rows[i].Result = result
		}
		a.ready = append(a.ready, rows...)
		a.ended++
	}
	if a.ended < a.flushGames {
		a.mu.Unlock()
		return "", nil
	}
	batch, games := a.ready, a.ended
	a.ready, a.ended = nil, 0
	a.mu.Unlock()

	return a.write(batch, games)
}

// Close writes every buffered row, including games that never ended.
func (a *Archive) Close() error {
	a.mu.Lock()
	batch, games := a.ready, a.ended
	for id, rows := range a.pending {
		batch = append(batch, rows...)
		games++
		delete(a.pending, id)
	}
	a.ready, a.ended = nil, 0
	a.mu.Unlock()

	_, err := a.write(batch, games)
	return err
}

func (a *Archive) write(rows []DecisionRow, games int) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	path, err := WriteDecisionsAtomic(a.dir, rows)
	if err != nil {
		a.logger.Error("archive flush failed", "rows", len(rows), "games", games, "err", err)
		return "", err
	}
	a.logger.Info("archive flushed", "path", path, "rows", len(rows), "games", games)
	return path, nil
}
