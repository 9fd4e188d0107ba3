package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noiddea/dash/internal/platform/db"
	"github.com/noiddea/dash/internal/shared"
)

const productColumns = `id, branch_id, name, brand, barcode, sku, description, cost, price, stock, bonification, expiration, is_active, created_by_user_id, created_by_branch_id, created_at, updated_at`

// Repository persists the catalog in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside one all-or-nothing transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (r *Repository) GetProduct(ctx context.Context, id string) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	product, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("catalog: product %s: %w", id, shared.ErrNotFound)
	}
	return product, err
}

func (r *Repository) ListActiveProducts(ctx context.Context, branchID string) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE branch_id = $1 AND is_active ORDER BY name`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (r *Repository) ListPresentations(ctx context.Context, productID string) ([]Presentation, error) {
	return r.listPresentations(ctx, productID, false)
}

func (r *Repository) ListEditablePresentations(ctx context.Context, productID string) ([]Presentation, error) {
	return r.listPresentations(ctx, productID, true)
}

func (r *Repository) listPresentations(ctx context.Context, productID string, excludeUnit bool) ([]Presentation, error) {
	query := `SELECT id, product_id, COALESCE(variant, ''), units, price, is_active, created_at, updated_at FROM product_presentations WHERE product_id = $1 AND is_active`
	if excludeUnit {
		query += ` AND COALESCE(variant, '') <> '` + UnitVariant + `'`
	}
	query += ` ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var presentations []Presentation
	for rows.Next() {
		var pres Presentation
		if err := rows.Scan(&pres.ID, &pres.ProductID, &pres.Variant, &pres.Units, &pres.Price, &pres.IsActive, &pres.CreatedAt, &pres.UpdatedAt); err != nil {
			return nil, err
		}
		presentations = append(presentations, pres)
	}
	return presentations, rows.Err()
}

func (r *Repository) ListPresentationRecords(ctx context.Context, productID string) ([]PresentationRecord, error) {
	const query = `SELECT id, COALESCE(variant, ''), COALESCE(units, 0), price, COALESCE(name, ''), COALESCE(unit, '') FROM product_presentations WHERE product_id = $1 AND is_active ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PresentationRecord
	for rows.Next() {
		var record PresentationRecord
		if err := rows.Scan(&record.ID, &record.Variant, &record.Units, &record.Price, &record.LegacyName, &record.LegacyUnit); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *Repository) BranchBusiness(ctx context.Context, branchID string) (string, error) {
	var businessID string
	err := r.pool.QueryRow(ctx, `SELECT business_id FROM branches WHERE id = $1`, branchID).Scan(&businessID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("catalog: branch %s: %w", branchID, shared.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return businessID, nil
}

func (r *Repository) ListProductsMissingUnitPresentation(ctx context.Context) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.is_active AND NOT EXISTS (
		SELECT 1 FROM product_presentations pp
		WHERE pp.product_id = p.id AND pp.variant = '` + UnitVariant + `' AND pp.is_active)`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

// UpdateProduct builds one statement touching only the supplied patch fields,
// always stamping updated_at.
func (r *Repository) UpdateProduct(ctx context.Context, id string, patch ProductPatch, now time.Time) error {
	sets := make([]string, 0, 11)
	args := make([]any, 0, 12)

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Brand != nil {
		add("brand", *patch.Brand)
	}
	if patch.Barcode != nil {
		add("barcode", *patch.Barcode)
	}
	if patch.SKU != nil {
		add("sku", *patch.SKU)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Cost != nil {
		add("cost", *patch.Cost)
	}
	if patch.Price != nil {
		add("price", *patch.Price)
	}
	if patch.Stock != nil {
		add("stock", *patch.Stock)
	}
	if patch.Bonification != nil {
		add("bonification", *patch.Bonification)
	}
	if patch.Expiration != nil {
		add("expiration", *patch.Expiration)
	}
	add("updated_at", now)

	args = append(args, id)
	query := "UPDATE products SET "
	for i, set := range sets {
		if i > 0 {
			query += ", "
		}
		query += set
	}
	query += " WHERE id = $" + strconv.Itoa(len(args))

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog: product %s: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *Repository) SetUnitPresentationPrice(ctx context.Context, productID string, price float64, now time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE product_presentations SET price = $1, updated_at = $2 WHERE product_id = $3 AND variant = $4 AND is_active`,
		price, now, productID, UnitVariant)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog: unit presentation of %s: %w", productID, shared.ErrNotFound)
	}
	return nil
}

type txRepo struct {
	tx pgx.Tx
}

func (r *txRepo) InsertProduct(ctx context.Context, p Product) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		p.ID, p.BranchID, p.Name, p.Brand, p.Barcode, p.SKU, p.Description, p.Cost, p.Price,
		p.Stock, p.Bonification, p.Expiration, p.IsActive, p.CreatedByUserID, p.CreatedByBranchID,
		p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *txRepo) InsertPresentation(ctx context.Context, p Presentation) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO product_presentations (id, product_id, variant, units, price, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.ProductID, p.Variant, p.Units, p.Price, p.IsActive, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *txRepo) UpdatePresentation(ctx context.Context, p Presentation) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE product_presentations SET variant = $1, units = $2, price = $3, updated_at = $4 WHERE id = $5 AND product_id = $6 AND variant <> $7`,
		p.Variant, p.Units, p.Price, p.UpdatedAt, p.ID, p.ProductID, UnitVariant)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog: presentation %s: %w", p.ID, shared.ErrNotFound)
	}
	return nil
}

func (r *txRepo) DeletePresentation(ctx context.Context, id string) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM product_presentations WHERE id = $1 AND variant <> $2`, id, UnitVariant)
	return err
}

func (r *txRepo) DeactivateProduct(ctx context.Context, id string, now time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET is_active = FALSE, updated_at = $1 WHERE id = $2`, now, id)
	return err
}

func (r *txRepo) DeactivatePresentations(ctx context.Context, productID string, now time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE product_presentations SET is_active = FALSE, updated_at = $1 WHERE product_id = $2`, now, productID)
	return err
}

func (r *txRepo) AdjustStock(ctx context.Context, productID string, delta float64, now time.Time) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE products SET stock = COALESCE(stock, 0) + $1, updated_at = $2 WHERE id = $3`,
		delta, now, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog: product %s: %w", productID, shared.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.BranchID, &p.Name, &p.Brand, &p.Barcode, &p.SKU, &p.Description,
		&p.Cost, &p.Price, &p.Stock, &p.Bonification, &p.Expiration, &p.IsActive,
		&p.CreatedByUserID, &p.CreatedByBranchID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
