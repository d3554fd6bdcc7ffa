// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/database/schema"
	"github.com/taibuivan/opsdash/internal/platform/dberr"
	"github.com/taibuivan/opsdash/internal/platform/postgres"
)

// Repository defines the data access contract for commerce.product.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Product, int, error)
	All(ctx context.Context) ([]Product, error)
	Find(ctx context.Context, ref Ref) (*Product, error)
	Create(ctx context.Context, product *Product) error
	Update(ctx context.Context, ref Ref, patch Patch, actor string) error
	BulkUpdate(ctx context.Context, refs []Ref, patch Patch, actor string) (int64, error)
	Delete(ctx context.Context, ref Ref) error
	BulkDelete(ctx context.Context, refs []Ref) (int64, error)
	InsertMissing(ctx context.Context, products []Product, actor string) (int, error)
	DeactivateMissing(ctx context.Context, keep []int64, actor string) (int64, error)
	Stats(ctx context.Context) (*Stats, error)
	Statuses(ctx context.Context) ([]string, error)
	Categories(ctx context.Context) ([]string, error)
}

// # Repository Implementation

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	db postgres.DB
}

// NewRepository creates the Postgres catalog repository.
func NewRepository(db postgres.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var productTable = schema.CommerceProduct

// selectColumns casts the NUMERIC prices so they scan into float64.
func selectColumns() string {
	columns := productTable.Columns()
	for i, column := range columns {
		if column == productTable.RegularPrice || column == productTable.SalePrice {
			columns[i] = column + "::float8"
		}
	}
	return strings.Join(columns, ", ")
}

var productColumns = selectColumns()

func scanProduct(row pgx.Row, extra ...any) (*Product, error) {
	var product Product
	dest := []any{
		&product.ProductID, &product.VariationID, &product.SKU, &product.Name,
		&product.ParentProduct, &product.Attribute, &product.RegularPrice, &product.SalePrice,
		&product.StockQuantity, &product.Status, &product.Categories, &product.IsActive,
		&product.UpdatedBy, &product.LastSynced, &product.CreatedAt, &product.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &product, nil
}

// refArrays splits refs into the parallel arrays matched by unnest.
func refArrays(refs []Ref) ([]int64, []int64) {
	productIDs := make([]int64, len(refs))
	variationIDs := make([]int64, len(refs))
	for i, ref := range refs {
		productIDs[i], variationIDs[i] = ref.ProductID, ref.VariationID
	}
	return productIDs, variationIDs
}

// refMatch is the WHERE clause selecting the rows of two unnest arrays.
func refMatch(productArg, variationArg int) string {
	return fmt.Sprintf("(%s, %s) IN (SELECT * FROM unnest($%d::bigint[], $%d::bigint[]))",
		productTable.ProductID, productTable.VariationID, productArg, variationArg)
}

/*
List returns one page of rows matching filter, ordered by product and
variation id, with the total match count.

Parameters:
  - ctx: context.Context
  - filter: Filter (Search matches name or SKU, Category matches a substring)

Returns:
  - []Product: The page
  - int: Total rows matching the filter
  - error: Query failures
*/
func (repository *PostgresRepository) List(ctx context.Context, filter Filter) ([]Product, int, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.ActiveOnly {
		conditions = append(conditions, productTable.IsActive)
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", productTable.ProductStatus, len(args)))
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		args = append(args, "%"+category+"%")
		conditions = append(conditions, fmt.Sprintf("%s ILIKE $%d", productTable.Categories, len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		conditions = append(conditions, fmt.Sprintf("(%s ILIKE $%d OR %s ILIKE $%d)",
			productTable.ProductName, len(args), productTable.SKU, len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s, COUNT(*) OVER() FROM %s %s ORDER BY %s, %s LIMIT $%d OFFSET $%d`,
		productColumns, productTable.Table, where,
		productTable.ProductID, productTable.VariationID, len(args)-1, len(args))

	rows, err := repository.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_catalog_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var (
		products []Product
		total    int
	)
	for rows.Next() {
		product, err := scanProduct(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres_catalog_repo_scan_failed: %w", err)
		}
		products = append(products, *product)
	}
	return products, total, rows.Err()
}

// All returns the whole catalog ordered by product and variation id.
func (repository *PostgresRepository) All(ctx context.Context) ([]Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s, %s`,
		productColumns, productTable.Table, productTable.ProductID, productTable.VariationID)

	rows, err := repository.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_catalog_repo_all_failed: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres_catalog_repo_scan_failed: %w", err)
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

// Find retrieves one row, or apperr.NotFound.
func (repository *PostgresRepository) Find(ctx context.Context, ref Ref) (*Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2`,
		productColumns, productTable.Table, productTable.ProductID, productTable.VariationID)

	product, err := scanProduct(repository.db.QueryRow(ctx, query, ref.ProductID, ref.VariationID))
	if err != nil {
		return nil, dberr.Wrap(err, "Product", "postgres_catalog_repo_find_failed")
	}
	return product, nil
}

func insertStatement(conflict string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) %s`,
		productTable.Table,
		productTable.ProductID, productTable.VariationID, productTable.SKU, productTable.ProductName,
		productTable.ParentProduct, productTable.Attribute, productTable.RegularPrice, productTable.SalePrice,
		productTable.StockQuantity, productTable.ProductStatus, productTable.Categories, productTable.IsActive,
		productTable.UpdatedBy, conflict,
	)
}

func insertArgs(product *Product) []any {
	return []any{
		product.ProductID, product.VariationID, product.SKU, product.Name,
		product.ParentProduct, product.Attribute, product.RegularPrice, product.SalePrice,
		product.StockQuantity, product.Status, product.Categories, product.IsActive,
		product.UpdatedBy,
	}
}

// Create inserts one row. An existing key is a CONFLICT.
func (repository *PostgresRepository) Create(ctx context.Context, product *Product) error {
	_, err := repository.db.Exec(ctx, insertStatement(""), insertArgs(product)...)
	return dberr.Wrap(err, "Product", "postgres_catalog_repo_create_failed")
}

/*
InsertMissing adds the products whose key is not in the catalog yet, in
one transaction. Existing rows are left untouched.

Returns:
  - int: Rows actually inserted
  - error: The first failed insert (the transaction is rolled back)
*/
func (repository *PostgresRepository) InsertMissing(ctx context.Context, products []Product, actor string) (int, error) {
	statement := insertStatement(fmt.Sprintf("ON CONFLICT (%s, %s) DO NOTHING",
		productTable.ProductID, productTable.VariationID))

	added := 0
	err := postgres.WithTx(ctx, repository.db, func(tx pgx.Tx) error {
		for i := range products {
			products[i].UpdatedBy = actor
			tag, err := tx.Exec(ctx, statement, insertArgs(&products[i])...)
			if err != nil {
				return err
			}
			added += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("postgres_catalog_repo_insert_failed: %w", err)
	}
	return added, nil
}

// assignments renders the SET list of patch, numbering placeholders from first.
func (p Patch) assignments(first int) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, first+len(args)-1))
	}

	if p.SKU != nil {
		add(productTable.SKU, *p.SKU)
	}
	if p.Name != nil {
		add(productTable.ProductName, *p.Name)
	}
	if p.ParentProduct != nil {
		add(productTable.ParentProduct, *p.ParentProduct)
	}
	if p.Attribute != nil {
		add(productTable.Attribute, *p.Attribute)
	}
	if p.RegularPrice != nil {
		add(productTable.RegularPrice, *p.RegularPrice)
	}
	if p.SalePrice != nil {
		add(productTable.SalePrice, *p.SalePrice)
	}
	if p.StockQuantity != nil {
		add(productTable.StockQuantity, *p.StockQuantity)
	}
	if p.Status != nil {
		add(productTable.ProductStatus, *p.Status)
	}
	if p.Categories != nil {
		add(productTable.Categories, *p.Categories)
	}
	if p.IsActive != nil {
		add(productTable.IsActive, *p.IsActive)
	}
	if p.LastSynced != nil {
		add(productTable.LastSynced, *p.LastSynced)
	}
	return sets, args
}

// setClause is the full SET list of patch plus the actor and update time.
func (p Patch) setClause(first int, actor string) (string, []any) {
	sets, args := p.assignments(first)
	args = append(args, actor)
	sets = append(sets,
		fmt.Sprintf("%s = $%d", productTable.UpdatedBy, first+len(args)-1),
		fmt.Sprintf("%s = now()", productTable.UpdatedAt),
	)
	return strings.Join(sets, ", "), args
}

// Update applies patch to one row, or returns apperr.NotFound.
func (repository *PostgresRepository) Update(ctx context.Context, ref Ref, patch Patch, actor string) error {
	set, setArgs := patch.setClause(3, actor)
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE %s = $1 AND %s = $2`,
		productTable.Table, set, productTable.ProductID, productTable.VariationID)

	tag, err := repository.db.Exec(ctx, query, append([]any{ref.ProductID, ref.VariationID}, setArgs...)...)
	if err != nil {
		return fmt.Errorf("postgres_catalog_repo_update_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Product")
	}
	return nil
}

// BulkUpdate applies the same patch to every row of refs and returns the updated count.
func (repository *PostgresRepository) BulkUpdate(ctx context.Context, refs []Ref, patch Patch, actor string) (int64, error) {
	productIDs, variationIDs := refArrays(refs)
	set, setArgs := patch.setClause(3, actor)
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE %s`, productTable.Table, set, refMatch(1, 2))

	tag, err := repository.db.Exec(ctx, query, append([]any{productIDs, variationIDs}, setArgs...)...)
	if err != nil {
		return 0, fmt.Errorf("postgres_catalog_repo_bulk_update_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes one row, or returns apperr.NotFound.
func (repository *PostgresRepository) Delete(ctx context.Context, ref Ref) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`,
		productTable.Table, productTable.ProductID, productTable.VariationID)

	tag, err := repository.db.Exec(ctx, query, ref.ProductID, ref.VariationID)
	if err != nil {
		return fmt.Errorf("postgres_catalog_repo_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Product")
	}
	return nil
}

// BulkDelete removes every row of refs and returns the deleted count.
func (repository *PostgresRepository) BulkDelete(ctx context.Context, refs []Ref) (int64, error) {
	productIDs, variationIDs := refArrays(refs)
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s`, productTable.Table, refMatch(1, 2))

	tag, err := repository.db.Exec(ctx, query, productIDs, variationIDs)
	if err != nil {
		return 0, fmt.Errorf("postgres_catalog_repo_bulk_delete_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeactivateMissing marks active rows whose product id is not in keep as inactive.
func (repository *PostgresRepository) DeactivateMissing(ctx context.Context, keep []int64, actor string) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = FALSE, %s = $2, %s = now()
		WHERE %s AND NOT (%s = ANY($1::bigint[]))`,
		productTable.Table, productTable.IsActive, productTable.UpdatedBy, productTable.UpdatedAt,
		productTable.IsActive, productTable.ProductID)

	tag, err := repository.db.Exec(ctx, query, keep, actor)
	if err != nil {
		return 0, fmt.Errorf("postgres_catalog_repo_deactivate_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Stats counts the catalog by activity, kind and status.
func (repository *PostgresRepository) Stats(ctx context.Context) (*Stats, error) {
	totals := fmt.Sprintf(`
		SELECT COUNT(*), COUNT(*) FILTER (WHERE %s), COUNT(*) FILTER (WHERE %s = 0)
		FROM %s`,
		productTable.IsActive, productTable.VariationID, productTable.Table)

	var stats Stats
	if err := repository.db.QueryRow(ctx, totals).Scan(&stats.Total, &stats.Active, &stats.Simple); err != nil {
		return nil, fmt.Errorf("postgres_catalog_repo_stats_failed: %w", err)
	}
	stats.Inactive = stats.Total - stats.Active
	stats.Variations = stats.Total - stats.Simple

	byStatus := fmt.Sprintf(`SELECT %s, COUNT(*) FROM %s GROUP BY %s ORDER BY %s`,
		productTable.ProductStatus, productTable.Table, productTable.ProductStatus, productTable.ProductStatus)

	rows, err := repository.db.Query(ctx, byStatus)
	if err != nil {
		return nil, fmt.Errorf("postgres_catalog_repo_stats_failed: %w", err)
	}
	defer rows.Close()

	stats.ByStatus = []StatusCount{}
	for rows.Next() {
		var count StatusCount
		if err := rows.Scan(&count.Status, &count.Count); err != nil {
			return nil, fmt.Errorf("postgres_catalog_repo_scan_failed: %w", err)
		}
		stats.ByStatus = append(stats.ByStatus, count)
	}
	return &stats, rows.Err()
}

func (repository *PostgresRepository) distinct(ctx context.Context, query, op string) ([]string, error) {
	rows, err := repository.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_catalog_repo_%s_failed: %w", op, err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("postgres_catalog_repo_scan_failed: %w", err)
		}
		values = append(values, value)
	}
	return values, rows.Err()
}

// Statuses returns the distinct product statuses, sorted.
func (repository *PostgresRepository) Statuses(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT DISTINCT %s FROM %s ORDER BY 1`, productTable.ProductStatus, productTable.Table)
	return repository.distinct(ctx, query, "statuses")
}

// Categories returns the distinct category names found in the comma lists, sorted.
func (repository *PostgresRepository) Categories(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT btrim(category)
		FROM %s, unnest(string_to_array(%s, ',')) AS category
		WHERE btrim(category) <> ''
		ORDER BY 1`,
		productTable.Table, productTable.Categories)
	return repository.distinct(ctx, query, "categories")
}
