package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ajharbinger/tender-eligibility/internal/models"
)

// verdictRepository implements VerdictRepository
type verdictRepository struct {
	db dbExecutor
}

// NewVerdictRepository creates a new verdict repository
func NewVerdictRepository(db dbExecutor) VerdictRepository {
	return &verdictRepository{db: db}
}

const verdictColumns = `
	v.id, v.user_id, v.tender_id, v.profile_id, v.overall_verdict, v.confidence_score,
	v.rule_results, COALESCE(v.overall_explanation, ''), COALESCE(v.detailed_reasoning, ''),
	v.financial_match, v.document_gaps, v.explanation_fallback, v.rules_version,
	COALESCE(v.ai_model, ''), v.created_at`

func scanVerdict(row rowScanner, extra ...interface{}) (*models.Verdict, error) {
	v := &models.Verdict{}
	dest := []interface{}{
		&v.ID, &v.UserID, &v.TenderID, &v.ProfileID, &v.OverallVerdict, &v.ConfidenceScore,
		&v.RuleResults, &v.OverallExplanation, &v.DetailedReasoning,
		&v.FinancialMatch, &v.DocumentGaps, &v.ExplanationFallback, &v.RulesVersion,
		&v.AIModel, &v.CreatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return v, err
}

// Create persists a verdict
func (r *verdictRepository) Create(ctx context.Context, v *models.Verdict) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.CreatedAt = time.Now()

	query := `
		INSERT INTO verdicts (
			id, user_id, tender_id, profile_id, overall_verdict, confidence_score,
			rule_results, overall_explanation, detailed_reasoning, financial_match,
			document_gaps, explanation_fallback, rules_version, ai_model, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.ExecContext(ctx, query,
		v.ID, v.UserID, v.TenderID, v.ProfileID, v.OverallVerdict, v.ConfidenceScore,
		v.RuleResults, v.OverallExplanation, v.DetailedReasoning, v.FinancialMatch,
		v.DocumentGaps, v.ExplanationFallback, v.RulesVersion, v.AIModel, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create verdict: %w", err)
	}
	return nil
}

// GetByID retrieves a verdict by ID
func (r *verdictRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Verdict, error) {
	query := `SELECT ` + verdictColumns + ` FROM verdicts v WHERE v.id = $1`

	v, err := scanVerdict(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("verdict %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get verdict: %w", err)
	}
	return v, nil
}

// ListByUser returns the user's verdicts newest first with a tender summary
func (r *verdictRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Verdict, error) {
	query := `
		SELECT ` + verdictColumns + `, t.id, COALESCE(t.tender_number, ''), t.file_name
		FROM verdicts v
		JOIN tenders t ON t.id = v.tender_id
		WHERE v.user_id = $1
		ORDER BY v.created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list verdicts: %w", err)
	}
	defer rows.Close()

	verdicts := []models.Verdict{}
	for rows.Next() {
		summary := &models.TenderSummary{}
		v, err := scanVerdict(rows, &summary.ID, &summary.TenderNumber, &summary.FileName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}
		v.Tender = summary
		verdicts = append(verdicts, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate verdicts: %w", err)
	}
	return verdicts, nil
}
