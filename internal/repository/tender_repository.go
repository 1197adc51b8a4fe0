package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ajharbinger/tender-eligibility/internal/models"
)

// tenderRepository implements TenderRepository
type tenderRepository struct {
	db dbExecutor
}

// NewTenderRepository creates a new tender repository
func NewTenderRepository(db dbExecutor) TenderRepository {
	return &tenderRepository{db: db}
}

const tenderColumns = `
	id, user_id, file_name, file_size, COALESCE(content_type, ''), status,
	COALESCE(error_message, ''), COALESCE(tender_number, ''), COALESCE(issuing_authority, ''),
	project_value, emd_amount, turnover_req, experience_req, net_worth_req,
	bid_deadline, prebid_date, COALESCE(completion_period, ''), key_dates,
	required_documents, technical_criteria, financial_criteria, risk_flags,
	COALESCE(summary_text, ''), created_at, updated_at`

// sortColumns whitelists the sortable list columns. Both the snake_case
// names used by the REST API and the camelCase names are accepted.
var sortColumns = map[string]string{
	"tender_number":     "t.tender_number",
	"tenderNumber":      "t.tender_number",
	"issuing_authority": "t.issuing_authority",
	"issuingAuthority":  "t.issuing_authority",
	"project_value":     "t.project_value",
	"projectValue":      "t.project_value",
	"bid_deadline":      "t.bid_deadline",
	"bidDeadline":       "t.bid_deadline",
	"created_at":        "t.created_at",
	"createdAt":         "t.created_at",
	"status":            "t.status",
}

// sortColumn maps a sort_by value to its column, defaulting to created_at
func sortColumn(sortBy string) string {
	if column, ok := sortColumns[sortBy]; ok {
		return column
	}
	return "t.created_at"
}

func scanTender(row rowScanner) (*models.Tender, error) {
	t := &models.Tender{}
	err := row.Scan(
		&t.ID, &t.UserID, &t.FileName, &t.FileSize, &t.ContentType, &t.Status,
		&t.ErrorMessage, &t.TenderNumber, &t.IssuingAuthority,
		&t.ProjectValue, &t.EMDAmount, &t.TurnoverReq, &t.ExperienceReq, &t.NetWorthReq,
		&t.BidDeadline, &t.PrebidDate, &t.CompletionPeriod, &t.KeyDates,
		&t.RequiredDocuments, &t.TechnicalCriteria, &t.FinancialCriteria, &t.RiskFlags,
		&t.SummaryText, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

// Create inserts a new tender record for an uploaded file
func (r *tenderRepository) Create(ctx context.Context, tender *models.Tender) error {
	if tender.ID == uuid.Nil {
		tender.ID = uuid.New()
	}
	if tender.Status == "" {
		tender.Status = models.TenderUploaded
	}
	now := time.Now()
	tender.CreatedAt = now
	tender.UpdatedAt = now

	query := `
		INSERT INTO tenders (id, user_id, file_name, file_size, content_type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		tender.ID, tender.UserID, tender.FileName, tender.FileSize, tender.ContentType,
		tender.Status, tender.CreatedAt, tender.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tender: %w", err)
	}
	return nil
}

// GetByID retrieves a tender with its extracted clauses
func (r *tenderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tender, error) {
	query := `SELECT ` + tenderColumns + ` FROM tenders WHERE id = $1`

	tender, err := scanTender(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tender %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tender: %w", err)
	}

	clauses, err := r.getClauses(ctx, id)
	if err != nil {
		return nil, err
	}
	tender.Clauses = clauses

	return tender, nil
}

func (r *tenderRepository) getClauses(ctx context.Context, tenderID uuid.UUID) ([]models.Clause, error) {
	query := `
		SELECT id, tender_id, COALESCE(clause_number, ''), COALESCE(title, ''), text,
			category, is_mandatory, is_eligibility
		FROM tender_clauses WHERE tender_id = $1
		ORDER BY position
	`
	rows, err := r.db.QueryContext(ctx, query, tenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get clauses: %w", err)
	}
	defer rows.Close()

	clauses := []models.Clause{}
	for rows.Next() {
		var c models.Clause
		if err := rows.Scan(
			&c.ID, &c.TenderID, &c.ClauseNumber, &c.Title, &c.Text,
			&c.Category, &c.IsMandatory, &c.IsEligibility,
		); err != nil {
			return nil, fmt.Errorf("failed to scan clause: %w", err)
		}
		clauses = append(clauses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clauses: %w", err)
	}
	return clauses, nil
}

// UpdateStatus moves a tender to status, recording errMsg for failures
func (r *tenderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.TenderStatus, errMsg string) error {
	query := `UPDATE tenders SET status = $2, error_message = NULLIF($3, ''), updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status, errMsg)
	if err != nil {
		return fmt.Errorf("failed to update tender status: %w", err)
	}
	return checkAffected(result, "tender "+id.String())
}

// SaveExtraction stores the extracted fields and marks the tender EXTRACTED
func (r *tenderRepository) SaveExtraction(ctx context.Context, t *models.Tender) error {
	t.Status = models.TenderExtracted
	t.ErrorMessage = ""
	t.UpdatedAt = time.Now()

	query := `
		UPDATE tenders SET
			status = $2, error_message = NULL,
			tender_number = $3, issuing_authority = $4, project_value = $5, emd_amount = $6,
			turnover_req = $7, experience_req = $8, net_worth_req = $9,
			bid_deadline = $10, prebid_date = $11, completion_period = $12, key_dates = $13,
			required_documents = $14, technical_criteria = $15, financial_criteria = $16,
			risk_flags = $17, summary_text = $18, updated_at = $19
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		t.ID, t.Status,
		t.TenderNumber, t.IssuingAuthority, t.ProjectValue, t.EMDAmount,
		t.TurnoverReq, t.ExperienceReq, t.NetWorthReq,
		t.BidDeadline, t.PrebidDate, t.CompletionPeriod, t.KeyDates,
		t.RequiredDocuments, t.TechnicalCriteria, t.FinancialCriteria,
		t.RiskFlags, t.SummaryText, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save extraction: %w", err)
	}
	return checkAffected(result, "tender "+t.ID.String())
}

// ReplaceClauses deletes the tender's clauses and inserts clauses in order.
// Callers run it inside a transaction together with SaveExtraction.
func (r *tenderRepository) ReplaceClauses(ctx context.Context, tenderID uuid.UUID, clauses []models.Clause) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tender_clauses WHERE tender_id = $1`, tenderID); err != nil {
		return fmt.Errorf("failed to delete clauses: %w", err)
	}

	query := `
		INSERT INTO tender_clauses (id, tender_id, position, clause_number, title, text, category, is_mandatory, is_eligibility)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for i := range clauses {
		c := &clauses[i]
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		c.TenderID = tenderID
		if _, err := r.db.ExecContext(ctx, query,
			c.ID, tenderID, i, c.ClauseNumber, c.Title, c.Text, c.Category, c.IsMandatory, c.IsEligibility,
		); err != nil {
			return fmt.Errorf("failed to insert clause %d: %w", i, err)
		}
	}
	return nil
}

// List returns one page of the user's tenders and the total match count
func (r *tenderRepository) List(ctx context.Context, f models.TenderFilters) ([]models.TenderListItem, int, error) {
	where, args := buildTenderWhere(f)

	from := `
		FROM tenders t
		LEFT JOIN LATERAL (
			SELECT v.overall_verdict FROM verdicts v
			WHERE v.tender_id = t.id
			ORDER BY v.created_at DESC
			LIMIT 1
		) lv ON true
		WHERE ` + where

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) `+from, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tenders: %w", err)
	}

	column := sortColumn(f.SortBy)
	direction := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		direction = "ASC"
	}

	page, pageSize := f.Page, f.PageSize
	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`
		SELECT t.id, t.file_name, COALESCE(t.tender_number, ''), COALESCE(t.issuing_authority, ''),
			t.project_value, t.bid_deadline, t.status, t.risk_flags, lv.overall_verdict, t.created_at
		%s
		ORDER BY %s %s NULLS LAST, t.id
		LIMIT $%d OFFSET $%d`, from, column, direction, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tenders: %w", err)
	}
	defer rows.Close()

	items := []models.TenderListItem{}
	for rows.Next() {
		var (
			item    models.TenderListItem
			flags   models.RiskFlags
			verdict sql.NullString
		)
		if err := rows.Scan(
			&item.ID, &item.FileName, &item.TenderNumber, &item.IssuingAuthority,
			&item.ProjectValue, &item.BidDeadline, &item.Status, &flags, &verdict, &item.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan tender: %w", err)
		}
		item.RiskLevel = flags.Level()
		if verdict.Valid {
			v := verdict.String
			item.EligibilityVerdict = &v
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate tenders: %w", err)
	}

	return items, total, nil
}

func buildTenderWhere(f models.TenderFilters) (string, []interface{}) {
	conditions := []string{"t.user_id = $1"}
	args := []interface{}{f.UserID}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("t.status = $%d", f.Status)
	}
	if f.Eligibility != "" {
		add("lv.overall_verdict = $%d", f.Eligibility)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + s + "%"
		args = append(args, pattern)
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(t.tender_number ILIKE $%d OR t.issuing_authority ILIKE $%d OR t.file_name ILIKE $%d)", n, n, n))
	}
	if f.DateFrom != nil {
		add("t.created_at >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("t.created_at <= $%d", *f.DateTo)
	}

	return strings.Join(conditions, " AND "), args
}

// Stats aggregates dashboard counters for a user
func (r *tenderRepository) Stats(ctx context.Context, userID uuid.UUID) (*models.DashboardStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM tenders WHERE user_id = $1),
			(SELECT COUNT(*) FROM verdicts WHERE user_id = $1 AND overall_verdict = 'ELIGIBLE'),
			(SELECT COUNT(*) FROM tenders WHERE user_id = $1 AND risk_flags @> '[{"severity":"HIGH"}]'),
			(SELECT COALESCE(AVG(confidence_score), 0) FROM verdicts WHERE user_id = $1)
	`
	stats := &models.DashboardStats{}
	var avg float64
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.TotalTenders, &stats.EligibleCount, &stats.HighRiskCount, &avg,
	); err != nil {
		return nil, fmt.Errorf("failed to get dashboard stats: %w", err)
	}
	stats.AvgConfidence = int(math.Round(avg * 100))
	return stats, nil
}
