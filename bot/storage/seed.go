package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"clanbase/core/logger"
	"log/slog"
)

type seedSection struct {
	Name        string
	Description string
}

// defaultSections are created on an empty database so the clan has
// somewhere to start.
var defaultSections = []seedSection{
	{Name: "📚 Гайды по игре", Description: "Полезные гайды и стратегии"},
	{Name: "⚔️ Библиотека сборок", Description: "Эффективные сборки персонажей"},
	{Name: "📝 Заметки клана", Description: "Важные объявления и заметки"},
}

// SeedDefaultSections inserts the default sections when the sections
// table is empty. Re-running against a populated database is a no-op.
func SeedDefaultSections(ctx context.Context, db *sqlx.DB) error {
	var n int
	if err := db.GetContext(ctx, &n, "SELECT COUNT(*) FROM sections"); err != nil {
		return fmt.Errorf("seed: count sections: %w", err)
	}
	if n > 0 {
		logger.Debug(ctx, "db.seed", "seed.skip",
			slog.Int("count", n),
		)
		return nil
	}

	store := NewStore(db)
	for _, sec := range defaultSections {
		if _, err := store.CreateSection(ctx, sec.Name, sec.Description, 0); err != nil {
			return fmt.Errorf("seed: create section %q: %w", sec.Name, err)
		}
	}
	logger.Info(ctx, "db.seed", "seed.complete",
		slog.Int("count", len(defaultSections)),
	)
	return nil
}
