// Package structured implements exact-key retrieval against the relational
// plan store.
package structured

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/benefitlens/coverquery/internal/domain"
)

// maxRows caps any single lookup; the structured store answers exact
// questions, not scans.
const maxRows = 50

// Source names carried on citations, one per table.
const (
	sourceBillingCodes   = "billing_codes"
	sourceBenefits       = "benefits"
	sourceFormulary      = "formulary"
	sourceDeviceCoverage = "device_coverage"
)

// Repo queries the relational plan tables. Safe for concurrent use.
type Repo struct {
	db *sql.DB
}

// NewRepo creates the repository on an open connection pool.
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Query dispatches to the category's table. Only sanitized parameters reach
// SQL; the raw query text never does.
func (r *Repo) Query(ctx context.Context, category domain.Category, params domain.Params) ([]domain.Record, error) {
	switch category {
	case domain.CategoryBilling:
		return r.queryBillingCodes(ctx, params.Codes)
	case domain.CategoryBenefit:
		return r.queryBenefits(ctx, params.Service)
	case domain.CategoryFormulary:
		return r.queryFormulary(ctx, params.Drug)
	case domain.CategoryDevice:
		return r.queryDeviceCoverage(ctx, params.Device)
	default:
		return nil, fmt.Errorf("category %q: %w", category, domain.ErrUnknownCategory)
	}
}

func (r *Repo) queryBillingCodes(ctx context.Context, codes []string) ([]domain.Record, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	const q = `
		SELECT code, description, fee, page
		FROM billing_codes
		WHERE code = ANY($1)
		ORDER BY code
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, q, pq.Array(codes), maxRows)
	if err != nil {
		return nil, fmt.Errorf("query billing_codes: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var (
			code, description string
			fee               float64
			page              int
		)
		if err := rows.Scan(&code, &description, &fee, &page); err != nil {
			return nil, fmt.Errorf("scan billing_codes: %w", err)
		}
		records = append(records, domain.ReconstructRecord(
			domain.CategoryBilling, code, description, &fee, nil,
			"", "", sourceBillingCodes, "", page,
		))
	}
	return records, rows.Err()
}

func (r *Repo) queryBenefits(ctx context.Context, service string) ([]domain.Record, error) {
	if service == "" {
		return nil, nil
	}

	const q = `
		SELECT service, covered, rule_text, page
		FROM benefits
		WHERE service ILIKE '%' || $1 || '%'
		ORDER BY service
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, q, service, maxRows)
	if err != nil {
		return nil, fmt.Errorf("query benefits: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var (
			name, ruleText string
			isCovered      bool
			page           int
		)
		if err := rows.Scan(&name, &isCovered, &ruleText, &page); err != nil {
			return nil, fmt.Errorf("scan benefits: %w", err)
		}
		records = append(records, domain.ReconstructRecord(
			domain.CategoryBenefit, name, name+" services", nil, &isCovered,
			"", ruleText, sourceBenefits, "", page,
		))
	}
	return records, rows.Err()
}

func (r *Repo) queryFormulary(ctx context.Context, drug string) ([]domain.Record, error) {
	if drug == "" {
		return nil, nil
	}

	const q = `
		SELECT drug_name, tier, covered, requirement, page
		FROM formulary
		WHERE lower(drug_name) = lower($1)
		ORDER BY tier
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, q, drug, maxRows)
	if err != nil {
		return nil, fmt.Errorf("query formulary: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var (
			name        string
			tier        int
			isCovered   bool
			requirement sql.NullString
			page        int
		)
		if err := rows.Scan(&name, &tier, &isCovered, &requirement, &page); err != nil {
			return nil, fmt.Errorf("scan formulary: %w", err)
		}
		records = append(records, domain.ReconstructRecord(
			domain.CategoryFormulary, strings.ToLower(name), fmt.Sprintf("%s (tier %d)", name, tier),
			nil, &isCovered,
			requirement.String, "", sourceFormulary, "", page,
		))
	}
	return records, rows.Err()
}

func (r *Repo) queryDeviceCoverage(ctx context.Context, device string) ([]domain.Record, error) {
	if device == "" {
		return nil, nil
	}

	const q = `
		SELECT category, covered, rule_text, page
		FROM device_coverage
		WHERE category ILIKE '%' || $1 || '%'
		ORDER BY category
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, q, device, maxRows)
	if err != nil {
		return nil, fmt.Errorf("query device_coverage: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var (
			name, ruleText string
			isCovered      bool
			page           int
		)
		if err := rows.Scan(&name, &isCovered, &ruleText, &page); err != nil {
			return nil, fmt.Errorf("scan device_coverage: %w", err)
		}
		records = append(records, domain.ReconstructRecord(
			domain.CategoryDevice, name, name+" devices", nil, &isCovered,
			"", ruleText, sourceDeviceCoverage, "", page,
		))
	}
	return records, rows.Err()
}
