package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajharbinger/tender-eligibility/internal/eligibility"
	"github.com/ajharbinger/tender-eligibility/internal/models"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var profileRowColumns = []string{
	"id", "user_id", "company_name", "gst_number", "pan_number", "category", "specializations",
	"turnover_history", "years_of_experience", "net_worth", "past_projects", "licenses",
	"certificates", "version", "created_at", "updated_at",
}

func TestProfileRepository_GetByUserID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	profileID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM contractor_profiles WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(profileRowColumns).AddRow(
			profileID.String(), userID.String(), "Acme Infra", "29ABCDE1234F1Z5", "", "CIVIL", []byte("{roads,bridges}"),
			[]byte(`[{"year":2023,"amount":6000000,"audited":true},{"year":2022,"amount":5000000,"audited":true}]`),
			int64(12), nil, []byte(`[]`), nil, []byte(`[]`), 3, now, now,
		))

	p, err := repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, profileID, p.ID)
	assert.Equal(t, []string{"roads", "bridges"}, []string(p.Specializations))
	require.Len(t, p.TurnoverHistory, 2)
	assert.Equal(t, float64(6000000), p.TurnoverHistory[0].Amount)
	require.NotNil(t, p.YearsOfExperience)
	assert.Equal(t, 12, *p.YearsOfExperience)
	assert.Nil(t, p.NetWorth)
	assert.Equal(t, 3, p.Version)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfileRepository(db)

	mock.ExpectQuery(`FROM contractor_profiles WHERE id = \$1`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestProfileRepository_Upsert(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfileRepository(db)

	now := time.Now()
	existingID := uuid.New()
	years := 8
	profile := &models.ContractorProfile{
		UserID:            uuid.New(),
		CompanyName:       "Acme Infra",
		TurnoverHistory:   models.TurnoverHistory{{Year: 2023, Amount: 100}},
		YearsOfExperience: &years,
	}

	mock.ExpectQuery(`INSERT INTO contractor_profiles .* ON CONFLICT \(user_id\) DO UPDATE .* version = contractor_profiles.version \+ 1`).
		WithArgs(sqlmock.AnyArg(), profile.UserID, "Acme Infra", "", "", "",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "created_at", "updated_at"}).
			AddRow(existingID.String(), 2, now, now))

	require.NoError(t, repo.Upsert(context.Background(), profile))
	assert.Equal(t, existingID, profile.ID)
	assert.Equal(t, 2, profile.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTenderRepository_UpdateStatusNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTenderRepository(db)
	id := uuid.New()

	mock.ExpectExec(`UPDATE tenders SET status = \$2`).
		WithArgs(id, models.TenderFailed, "extraction failed").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), id, models.TenderFailed, "extraction failed")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTenderRepository_List(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTenderRepository(db)

	userID := uuid.New()
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	filters := models.TenderFilters{
		UserID:      userID,
		Status:      "EXTRACTED",
		Eligibility: "ELIGIBLE",
		Search:      "NHAI",
		DateFrom:    &from,
		SortBy:      "project_value",
		SortOrder:   "asc",
		Page:        2,
		PageSize:    10,
	}

	mock.ExpectQuery(`SELECT COUNT\(\*\)\s+FROM tenders t\s+LEFT JOIN LATERAL`).
		WithArgs(userID, "EXTRACTED", "ELIGIBLE", "%NHAI%", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	verdict := "ELIGIBLE"
	value := 12500000.0
	mock.ExpectQuery(`ORDER BY t.project_value ASC NULLS LAST, t.id\s+LIMIT \$6 OFFSET \$7`).
		WithArgs(userID, "EXTRACTED", "ELIGIBLE", "%NHAI%", from, 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "file_name", "tender_number", "issuing_authority", "project_value",
			"bid_deadline", "status", "risk_flags", "overall_verdict", "created_at",
		}).AddRow(
			uuid.New().String(), "nhai-bid.pdf", "NHAI/2024/17", "NHAI", value,
			nil, "EXTRACTED", []byte(`[{"flag":"Unlimited LD","severity":"MEDIUM"}]`), verdict, time.Now(),
		))

	items, total, err := repo.List(context.Background(), filters)
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, items, 1)
	assert.Equal(t, models.RiskMedium, items[0].RiskLevel)
	require.NotNil(t, items[0].EligibilityVerdict)
	assert.Equal(t, "ELIGIBLE", *items[0].EligibilityVerdict)
	assert.Equal(t, value, *items[0].ProjectValue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSortColumn(t *testing.T) {
	tests := []struct {
		sortBy string
		want   string
	}{
		{"tender_number", "t.tender_number"},
		{"tenderNumber", "t.tender_number"},
		{"issuing_authority", "t.issuing_authority"},
		{"bid_deadline", "t.bid_deadline"},
		{"bidDeadline", "t.bid_deadline"},
		{"status", "t.status"},
		{"", "t.created_at"},
		{"t.id; DROP TABLE tenders", "t.created_at"},
	}
	for _, tt := range tests {
		t.Run(tt.sortBy, func(t *testing.T) {
			assert.Equal(t, tt.want, sortColumn(tt.sortBy))
		})
	}
}

func TestBuildTenderWhere_Minimal(t *testing.T) {
	where, args := buildTenderWhere(models.TenderFilters{UserID: uuid.Nil})
	assert.Equal(t, "t.user_id = $1", where)
	assert.Len(t, args, 1)
}

func TestTenderRepository_Stats(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTenderRepository(db)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT\s+\(SELECT COUNT\(\*\) FROM tenders`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"a", "b", "c", "d"}).AddRow(7, 3, 2, 0.856))

	stats, err := repo.Stats(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, &models.DashboardStats{TotalTenders: 7, EligibleCount: 3, HighRiskCount: 2, AvgConfidence: 86}, stats)
}

var verdictRowColumns = []string{
	"id", "user_id", "tender_id", "profile_id", "overall_verdict", "confidence_score",
	"rule_results", "overall_explanation", "detailed_reasoning", "financial_match",
	"document_gaps", "explanation_fallback", "rules_version", "ai_model", "created_at",
}

func TestVerdictRepository_CreateAndGet(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVerdictRepository(db)
	ctx := context.Background()

	v := &models.Verdict{
		UserID:          uuid.New(),
		TenderID:        uuid.New(),
		ProfileID:       uuid.New(),
		OverallVerdict:  eligibility.VerdictEligible,
		ConfidenceScore: 1,
		RuleResults: models.RuleResults{
			{RuleID: eligibility.RuleTurnover, Category: eligibility.CategoryFinancial, Met: true, Confidence: 1},
		},
		RulesVersion: "1.0",
	}

	mock.ExpectExec(`INSERT INTO verdicts`).
		WithArgs(sqlmock.AnyArg(), v.UserID, v.TenderID, v.ProfileID, "ELIGIBLE", 1.0,
			sqlmock.AnyArg(), "", "", sqlmock.AnyArg(), sqlmock.AnyArg(), false, "1.0", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Create(ctx, v))
	assert.NotEqual(t, uuid.Nil, v.ID)

	mock.ExpectQuery(`FROM verdicts v WHERE v.id = \$1`).
		WithArgs(v.ID).
		WillReturnRows(sqlmock.NewRows(verdictRowColumns).AddRow(
			v.ID.String(), v.UserID.String(), v.TenderID.String(), v.ProfileID.String(), "ELIGIBLE", 1.0,
			[]byte(`[{"ruleId":"turnover","category":"FINANCIAL","met":true,"confidence":1,"explanation":"ok","value":{"required":5,"actual":6}}]`),
			"Qualifies", "", []byte(`{"turnover_met":true,"details":"ok"}`), []byte(`[]`), false, "1.0", "gemini-2.0-flash", time.Now(),
		))

	got, err := repo.GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, eligibility.VerdictEligible, got.OverallVerdict)
	require.Len(t, got.RuleResults, 1)
	assert.Equal(t, 6.0, got.RuleResults[0].Value.Actual)
	require.NotNil(t, got.FinancialMatch.TurnoverMet)
	assert.True(t, *got.FinancialMatch.TurnoverMet)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerdictRepository_ListByUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVerdictRepository(db)
	userID := uuid.New()
	tenderID := uuid.New()

	cols := append(append([]string{}, verdictRowColumns...), "tid", "tender_number", "file_name")
	mock.ExpectQuery(`JOIN tenders t ON t.id = v.tender_id\s+WHERE v.user_id = \$1\s+ORDER BY v.created_at DESC`).
		WithArgs(userID, 50).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			uuid.New().String(), userID.String(), tenderID.String(), uuid.New().String(), "INELIGIBLE", 1.0,
			[]byte(`[]`), "", "", []byte(`{}`), []byte(`[]`), true, "1.0", "", time.Now(),
			tenderID.String(), "T-1", "tender.pdf",
		))

	list, err := repo.ListByUser(context.Background(), userID, 50)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].ExplanationFallback)
	require.NotNil(t, list[0].Tender)
	assert.Equal(t, "tender.pdf", list[0].Tender.FileName)
}

func TestTransactionManager_Rollback(t *testing.T) {
	db, mock := newMock(t)
	tm := NewTransactionManager(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tenders SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM tender_clauses`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := tm.WithTransaction(context.Background(), func(repos *Repositories) error {
		if err := repos.Tender.SaveExtraction(context.Background(), &models.Tender{ID: id}); err != nil {
			return err
		}
		return repos.Tender.ReplaceClauses(context.Background(), id, nil)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManager_Commit(t *testing.T) {
	db, mock := newMock(t)
	tm := NewTransactionManager(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM tender_clauses`).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO tender_clauses`).
		WithArgs(sqlmock.AnyArg(), id, 0, "4.1", "Eligibility", "Average turnover of 5 Cr", "ELIGIBILITY", true, true).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := tm.WithTransaction(context.Background(), func(repos *Repositories) error {
		return repos.Tender.ReplaceClauses(context.Background(), id, []models.Clause{{
			ClauseNumber: "4.1", Title: "Eligibility", Text: "Average turnover of 5 Cr",
			Category: models.ClauseEligibility, IsMandatory: true, IsEligibility: true,
		}})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
