package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/tillworks/till/internal/pos"
)

const categoryColumns = `id, name, description, created_at, updated_at`
const itemColumns = `id, name, description, price, category_id, sku, in_stock, created_at, updated_at`

// CreateCategory inserts a category row.
func (s *Store) CreateCategory(ctx context.Context, c pos.Category) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID.String(), c.Name, c.Description, formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// GetCategory returns one category, or a NOT_FOUND domain error.
func (s *Store) GetCategory(ctx context.Context, id uuid.UUID) (*pos.Category, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+categoryColumns+` FROM categories WHERE id = ?
	`, id.String())

	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pos.NotFoundf("category %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]pos.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+categoryColumns+` FROM categories ORDER BY name ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := []pos.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// UpdateCategory rewrites a category's mutable fields.
// Returns a NOT_FOUND domain error if the category does not exist.
func (s *Store) UpdateCategory(ctx context.Context, c pos.Category) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, description = ?, updated_at = ? WHERE id = ?
	`, c.Name, c.Description, formatTime(c.UpdatedAt), c.ID.String())
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireAffected(res, pos.NotFoundf("category %s not found", c.ID))
}

// DeleteCategory removes a category. Deletion is rejected while items still
// reference it (foreign key RESTRICT).
func (s *Store) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id.String())
	if err != nil {
		if isConstraintErr(err) {
			return pos.InvalidInputf("category %s still has items", id)
		}
		return fmt.Errorf("delete category: %w", err)
	}
	return requireAffected(res, pos.NotFoundf("category %s not found", id))
}

// CreateItem inserts an item row.
func (s *Store) CreateItem(ctx context.Context, it pos.Item) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, name, description, price, category_id, sku, in_stock, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		it.ID.String(), it.Name, it.Description, it.Price.String(), it.CategoryID.String(),
		it.SKU, it.InStock, formatTime(it.CreatedAt), formatTime(it.UpdatedAt),
	)
	if err != nil {
		if isConstraintErr(err) {
			return pos.InvalidInputf("category %s not found", it.CategoryID)
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// GetItem returns one item, or a NOT_FOUND domain error. This is the read
// the engine performs to snapshot a price at line-add time.
func (s *Store) GetItem(ctx context.Context, id uuid.UUID) (*pos.Item, error) {
	return getItem(ctx, s.db, id)
}

// GetItem is the in-transaction variant used by engine mutations so the
// price snapshot and the line insert observe the same database state.
func (t *Tx) GetItem(ctx context.Context, id uuid.UUID) (*pos.Item, error) {
	return getItem(ctx, t.tx, id)
}

// ListItems returns all items ordered by name.
func (s *Store) ListItems(ctx context.Context) ([]pos.Item, error) {
	return listItems(ctx, s.db, `
		SELECT `+itemColumns+` FROM items ORDER BY name ASC, id ASC
	`)
}

// ListItemsByCategory returns the items of one category ordered by name.
func (s *Store) ListItemsByCategory(ctx context.Context, categoryID uuid.UUID) ([]pos.Item, error) {
	return listItems(ctx, s.db, `
		SELECT `+itemColumns+` FROM items WHERE category_id = ? ORDER BY name ASC, id ASC
	`, categoryID.String())
}

// UpdateItem rewrites an item's mutable fields. Existing transaction lines
// keep their snapshotted prices; only future AddLine calls see the change.
func (s *Store) UpdateItem(ctx context.Context, it pos.Item) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE items
		SET name = ?, description = ?, price = ?, category_id = ?, sku = ?, in_stock = ?, updated_at = ?
		WHERE id = ?
	`,
		it.Name, it.Description, it.Price.String(), it.CategoryID.String(),
		it.SKU, it.InStock, formatTime(it.UpdatedAt), it.ID.String(),
	)
	if err != nil {
		if isConstraintErr(err) {
			return pos.InvalidInputf("category %s not found", it.CategoryID)
		}
		return fmt.Errorf("update item: %w", err)
	}
	return requireAffected(res, pos.NotFoundf("item %s not found", it.ID))
}

// DeleteItem removes an item. Deletion is rejected while any transaction
// line references the item, preserving snapshot history.
func (s *Store) DeleteItem(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id.String())
	if err != nil {
		if isConstraintErr(err) {
			return pos.InvalidInputf("item %s is referenced by transactions", id)
		}
		return fmt.Errorf("delete item: %w", err)
	}
	return requireAffected(res, pos.NotFoundf("item %s not found", id))
}

func getItem(ctx context.Context, q querier, id uuid.UUID) (*pos.Item, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+itemColumns+` FROM items WHERE id = ?
	`, id.String())

	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pos.NotFoundf("item %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

func listItems(ctx context.Context, q querier, query string, args ...any) ([]pos.Item, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []pos.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

func scanCategory(row rowScanner) (*pos.Category, error) {
	var id, name, description, createdAt, updatedAt string
	if err := row.Scan(&id, &name, &description, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	c := pos.Category{Name: name, Description: description}

	var err error
	if c.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse category id %q: %w", id, err)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanItem(row rowScanner) (*pos.Item, error) {
	var (
		id, name, description, price, categoryID, sku string
		inStock                                       bool
		createdAt, updatedAt                          string
	)
	if err := row.Scan(&id, &name, &description, &price, &categoryID, &sku, &inStock, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	it := pos.Item{Name: name, Description: description, SKU: sku, InStock: inStock}

	var err error
	if it.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse item id %q: %w", id, err)
	}
	if it.CategoryID, err = uuid.Parse(categoryID); err != nil {
		return nil, fmt.Errorf("parse category id %q: %w", categoryID, err)
	}
	if it.Price, err = parseMoney(price); err != nil {
		return nil, err
	}
	if it.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if it.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &it, nil
}

// requireAffected turns a zero-row UPDATE/DELETE into notFound.
func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// isConstraintErr reports whether err is a SQLite constraint violation
// (foreign key RESTRICT, CHECK, etc).
func isConstraintErr(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint
}
