package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/ajharbinger/tender-eligibility/internal/errors"
	"github.com/ajharbinger/tender-eligibility/internal/models"
)

// ExportFormat specifies the format for exporting verdicts
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
)

// VerdictExport is a rendered verdict report ready to be downloaded
type VerdictExport struct {
	FileName    string
	ContentType string
	Data        []byte
	Count       int
}

var verdictCSVHeaders = []string{
	"id", "created_at", "tender_id", "tender_number", "file_name", "profile_id",
	"overall_verdict", "confidence_score", "failed_rules", "turnover_met",
	"overall_explanation", "explanation_fallback", "rules_version",
}

// Export renders the caller's most recent verdicts, up to MaxVerdictLimit,
// as CSV or JSON
func (s *verdictServiceImpl) Export(ctx context.Context, caller Caller, format ExportFormat) (*VerdictExport, error) {
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatJSON {
		return nil, apperrors.InvalidInput("Invalid export format", nil).
			WithDetails("format must be csv or json").WithOperation("ExportVerdicts")
	}

	verdicts, err := s.repos.Verdict.ListByUser(ctx, caller.UserID, MaxVerdictLimit)
	if err != nil {
		return nil, apperrors.DatabaseError("failed to list verdicts", err).WithOperation("ExportVerdicts")
	}

	var data []byte
	if format == FormatJSON {
		data, err = exportVerdictsJSON(verdicts, s.now())
	} else {
		data, err = exportVerdictsCSV(verdicts)
	}
	if err != nil {
		return nil, apperrors.InternalError("failed to render export", err).WithOperation("ExportVerdicts")
	}

	contentType := "text/csv; charset=utf-8"
	if format == FormatJSON {
		contentType = "application/json"
	}

	s.logger.Info("Verdicts exported", map[string]interface{}{
		"user_id": caller.UserID.String(),
		"format":  string(format),
		"count":   len(verdicts),
	})

	return &VerdictExport{
		FileName:    "verdicts." + string(format),
		ContentType: contentType,
		Data:        data,
		Count:       len(verdicts),
	}, nil
}

func exportVerdictsJSON(verdicts []models.Verdict, exportedAt time.Time) ([]byte, error) {
	return json.MarshalIndent(map[string]interface{}{
		"verdicts":    verdicts,
		"count":       len(verdicts),
		"exported_at": exportedAt.UTC(),
	}, "", "  ")
}

func exportVerdictsCSV(verdicts []models.Verdict) ([]byte, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)

	if err := writer.Write(verdictCSVHeaders); err != nil {
		return nil, err
	}

	for _, v := range verdicts {
		var tenderNumber, fileName string
		if v.Tender != nil {
			tenderNumber = v.Tender.TenderNumber
			fileName = v.Tender.FileName
		}

		failed := make([]string, 0, len(v.RuleResults))
		for _, r := range v.RuleResults {
			if !r.Met {
				failed = append(failed, r.RuleID)
			}
		}

		row := []string{
			v.ID.String(),
			v.CreatedAt.UTC().Format(time.RFC3339),
			v.TenderID.String(),
			tenderNumber,
			fileName,
			v.ProfileID.String(),
			string(v.OverallVerdict),
			strconv.FormatFloat(v.ConfidenceScore, 'f', 2, 64),
			strings.Join(failed, "; "),
			formatNullBool(v.FinancialMatch.TurnoverMet),
			v.OverallExplanation,
			strconv.FormatBool(v.ExplanationFallback),
			v.RulesVersion,
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return []byte(output.String()), nil
}

func formatNullBool(val *bool) string {
	if val == nil {
		return ""
	}
	return strconv.FormatBool(*val)
}
