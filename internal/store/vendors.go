package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/smallbooks/bookkeeper/internal/errs"
	"github.com/smallbooks/bookkeeper/internal/models"
)

// CreateVendor inserts a vendor and fills in its ID and CreatedAt.
func (q *Queries) CreateVendor(ctx context.Context, v *models.Vendor) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO vendors (name, contact, notes) VALUES (?, ?, ?)`,
		v.Name, v.Contact, v.Notes)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.Duplicate(errs.CodeDuplicateResource, "vendor", "vendor %q already exists", v.Name)
		}
		return errs.Transient("vendor", fmt.Errorf("failed to create vendor: %w", err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return errs.Transient("vendor", fmt.Errorf("failed to read vendor id: %w", err))
	}
	v.ID = id
	v.CreatedAt = time.Now().UTC()
	return nil
}

// GetVendor returns one vendor by ID.
func (q *Queries) GetVendor(ctx context.Context, id int64) (*models.Vendor, error) {
	var v models.Vendor
	err := q.db.QueryRowContext(ctx, `
		SELECT id, name, contact, notes, created_at FROM vendors WHERE id = ?`, id).
		Scan(&v.ID, &v.Name, &v.Contact, &v.Notes, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("vendor", id)
	}
	if err != nil {
		return nil, errs.Transient("vendor", fmt.Errorf("failed to get vendor: %w", err))
	}
	return &v, nil
}

// ListVendors returns all vendors ordered by name.
func (q *Queries) ListVendors(ctx context.Context) ([]*models.Vendor, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, contact, notes, created_at FROM vendors ORDER BY name`)
	if err != nil {
		return nil, errs.Transient("vendor", fmt.Errorf("failed to list vendors: %w", err))
	}
	defer rows.Close()

	var vendors []*models.Vendor
	for rows.Next() {
		var v models.Vendor
		if err := rows.Scan(&v.ID, &v.Name, &v.Contact, &v.Notes, &v.CreatedAt); err != nil {
			return nil, errs.Transient("vendor", fmt.Errorf("failed to scan vendor: %w", err))
		}
		vendors = append(vendors, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Transient("vendor", fmt.Errorf("failed to iterate vendors: %w", err))
	}
	return vendors, nil
}

// CountVendors returns the number of vendors.
func (q *Queries) CountVendors(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vendors").Scan(&n); err != nil {
		return 0, errs.Transient("vendor", fmt.Errorf("failed to count vendors: %w", err))
	}
	return n, nil
}
