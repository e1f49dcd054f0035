package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gokatarajesh/flag-practice/internal/catalog"
)

// FlagRepository stores catalog items in the flags table.
type FlagRepository struct {
	db DBTX
}

func NewFlagRepository(db DBTX) *FlagRepository {
	return &FlagRepository{db: db}
}

var _ catalog.Store = (*FlagRepository)(nil)

const listFlagsSQL = `
SELECT id, key, type, category, name, meaning, description, image_path,
       colors, pattern, tips, phonetic, difficulty, sort_order
FROM flags
ORDER BY sort_order, key`

// ListItems returns every flag in canonical order.
func (r *FlagRepository) ListItems(ctx context.Context) ([]catalog.Item, error) {
	rows, err := r.db.Query(ctx, listFlagsSQL)
	if err != nil {
		return nil, fmt.Errorf("query flags: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Item, error) {
		var (
			it               catalog.Item
			typ, difficulty string
		)
		if err := row.Scan(&it.ID, &it.Key, &typ, &it.Category, &it.Name, &it.Meaning, &it.Description,
			&it.ImagePath, &it.Colors, &it.Pattern, &it.Tips, &it.Phonetic, &difficulty, &it.Order); err != nil {
			return it, err
		}
		var err error
		if it.Type, err = catalog.ParseType(typ); err != nil {
			return it, fmt.Errorf("flag %q: %w", it.Key, err)
		}
		if it.Difficulty, err = catalog.ParseDifficulty(difficulty); err != nil {
			return it, fmt.Errorf("flag %q: %w", it.Key, err)
		}
		if it.Colors == nil {
			it.Colors = []string{}
		}
		return it, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan flags: %w", err)
	}
	return items, nil
}

// xmax is zero only for rows inserted by this statement.
const upsertFlagSQL = `
INSERT INTO flags (key, type, category, name, meaning, description, image_path,
                   colors, pattern, tips, phonetic, difficulty, sort_order)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (key) DO UPDATE SET
    type        = EXCLUDED.type,
    category    = EXCLUDED.category,
    name        = EXCLUDED.name,
    meaning     = EXCLUDED.meaning,
    description = EXCLUDED.description,
    image_path  = EXCLUDED.image_path,
    colors      = EXCLUDED.colors,
    pattern     = EXCLUDED.pattern,
    tips        = EXCLUDED.tips,
    phonetic    = EXCLUDED.phonetic,
    difficulty  = EXCLUDED.difficulty,
    sort_order  = EXCLUDED.sort_order,
    updated_at  = NOW()
RETURNING (xmax = 0) AS inserted`

// UpsertItems inserts or updates items by key in one transaction.
func (r *FlagRepository) UpsertItems(ctx context.Context, items []catalog.Item) (catalog.SeedResult, error) {
	var result catalog.SeedResult
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for _, it := range items {
			var inserted bool
			err := tx.QueryRow(ctx, upsertFlagSQL,
				it.Key, string(it.Type), it.Category, it.Name, it.Meaning, it.Description, it.ImagePath,
				it.Colors, it.Pattern, it.Tips, it.Phonetic, string(it.Difficulty), it.Order,
			).Scan(&inserted)
			if err != nil {
				return fmt.Errorf("upsert flag %q: %w", it.Key, err)
			}
			if inserted {
				result.Created++
			} else {
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return catalog.SeedResult{}, err
	}
	return result, nil
}
