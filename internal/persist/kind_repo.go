package persist

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/l1jgo/poolmgr/internal/data"
	"github.com/l1jgo/poolmgr/internal/pool"
	"github.com/l1jgo/poolmgr/internal/world"
)

// KindRow is a persisted poolable kind.
type KindRow struct {
	Name  string
	Pos   world.Vec3
	Props map[string]string
}

// KindRepo serves the pool catalog from the pool_kinds table.
type KindRepo struct {
	db    *DB
	scene *world.Scene
}

func NewKindRepo(db *DB, scene *world.Scene) *KindRepo {
	return &KindRepo{db: db, scene: scene}
}

// LoadAll returns every kind in catalog order.
func (r *KindRepo) LoadAll(ctx context.Context) ([]KindRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT name, pos_x, pos_y, pos_z, props
		 FROM pool_kinds ORDER BY sort_order, name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []KindRow
	for rows.Next() {
		var k KindRow
		if err := rows.Scan(&k.Name, &k.Pos.X, &k.Pos.Y, &k.Pos.Z, &k.Props); err != nil {
			return nil, err
		}
		result = append(result, k)
	}
	return result, rows.Err()
}

// Seed upserts rows into pool_kinds in one transaction. Row order becomes
// sort_order. Names are normalized; a name seen twice fails the whole seed.
func (r *KindRepo) Seed(ctx context.Context, rows []KindRow) error {
	seen := make(map[string]bool, len(rows))
	for i := range rows {
		name := data.NormalizeKey(rows[i].Name)
		if name == "" {
			return pool.ErrEmptyKind
		}
		if seen[name] {
			return fmt.Errorf("%w: %q", pool.ErrDuplicateKind, name)
		}
		seen[name] = true
	}

	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		for i, k := range rows {
			props := k.Props
			if props == nil {
				props = map[string]string{}
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO pool_kinds (name, pos_x, pos_y, pos_z, props, sort_order)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 ON CONFLICT (name) DO UPDATE SET
				   pos_x = EXCLUDED.pos_x, pos_y = EXCLUDED.pos_y, pos_z = EXCLUDED.pos_z,
				   props = EXCLUDED.props, sort_order = EXCLUDED.sort_order`,
				data.NormalizeKey(k.Name), k.Pos.X, k.Pos.Y, k.Pos.Z, props, i,
			)
			if err != nil {
				return fmt.Errorf("upsert kind %q: %w", k.Name, err)
			}
		}
		return nil
	})
}

// KindRowsFromCatalog maps a YAML catalog to rows for Seed.
func KindRowsFromCatalog(c *data.Catalog) []KindRow {
	templates := c.Templates()
	rows := make([]KindRow, 0, len(templates))
	for _, t := range templates {
		rows = append(rows, KindRow{Name: t.Name, Pos: t.Position, Props: t.Props})
	}
	return rows
}

// Entries implements pool.Catalog.
func (r *KindRepo) Entries(ctx context.Context) ([]pool.CatalogEntry, error) {
	rows, err := r.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pool kinds: %w", err)
	}
	return kindEntries(rows, r.scene), nil
}

func kindEntries(rows []KindRow, scene *world.Scene) []pool.CatalogEntry {
	out := make([]pool.CatalogEntry, 0, len(rows))
	for _, k := range rows {
		name := data.NormalizeKey(k.Name)
		out = append(out, pool.CatalogEntry{
			Kind:     name,
			Template: world.NewPrototype(scene, name, k.Pos, k.Props),
		})
	}
	return out
}
