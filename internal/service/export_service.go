package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/therafiali/internal-app-sub000/internal/dto"
	"github.com/therafiali/internal-app-sub000/internal/models"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
	"github.com/therafiali/internal-app-sub000/pkg/export"
)

// defaultExportRows bounds a single export when no limit is configured.
const defaultExportRows = 10000

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportSources are the per-type listers an export reads from.
type ExportSources struct {
	Recharges rechargeStore
	Redeems   redeemStore
	Transfers transferStore
	Resets    passwordResetStore
}

// ExportService renders the visible requests of one collection as CSV or PDF.
type ExportService struct {
	sources ExportSources
	audit   AuditLogger
	csv     csvRenderer
	pdf     pdfRenderer
	maxRows int
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(sources ExportSources, audit AuditLogger, maxRows int, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRows <= 0 {
		maxRows = defaultExportRows
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		sources: sources,
		audit:   audit,
		csv:     csv,
		pdf:     pdf,
		maxRows: maxRows,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Export renders the requests matching q that the operator may see.
func (s *ExportService) Export(ctx context.Context, actor *models.JWTClaims, q dto.ExportQuery) (*dto.ExportFile, error) {
	t, err := models.ParseRequestType(q.Type)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	format := q.Format
	if format == "" {
		format = export.FormatCSV
	}
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err := ensurePermission(actor, t, ActionExport); err != nil {
		return nil, err
	}

	filter := toFilter(q.Query)
	if err := scopeFilter(actor, &filter); err != nil {
		return nil, err
	}
	filter.Limit = s.maxRows

	dataset, err := s.dataset(ctx, t, filter)
	if err != nil {
		return nil, internalError(err, "failed to load export rows")
	}

	title := fmt.Sprintf("%s requests", strings.ReplaceAll(string(t), "_", " "))
	var payload []byte
	switch format {
	case export.FormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, internalError(err, "failed to render export")
	}

	file := &dto.ExportFile{
		Filename:    fmt.Sprintf("%s_%s.%s", t, s.now().Format("20060102_150405"), format),
		ContentType: format.ContentType(),
		Rows:        len(dataset.Rows),
		Payload:     payload,
	}
	s.recordAudit(ctx, actor, t, format, file.Rows)
	return file, nil
}

var commonHeaders = []string{"display_id", "status", "team_code", "vip_code", "player_name"}

var trailingHeaders = []string{"created_at", "processed_by", "processed_at", "notes"}

func (s *ExportService) dataset(ctx context.Context, t models.RequestType, filter models.RequestFilter) (export.Dataset, error) {
	switch t {
	case models.RequestTypeRecharge:
		recs, _, err := s.sources.Recharges.List(ctx, filter)
		if err != nil {
			return export.Dataset{}, err
		}
		data := newDataset("amount", "bonus_amount", "promo_code", "game_platform", "game_username", "payment_method", "identifier", "reject_reason")
		for i := range recs {
			r := &recs[i]
			row := baseRow(r)
			row["amount"] = r.Amount.StringFixed(2)
			row["bonus_amount"] = r.BonusAmount.StringFixed(2)
			row["promo_code"] = deref(r.PromoCode)
			row["game_platform"] = r.GamePlatform
			row["game_username"] = r.GameUsername
			row["payment_method"] = fmt.Sprintf("%s %s", r.PaymentMethod.Type, r.PaymentMethod.Tag)
			row["identifier"] = deref(r.Identifier)
			if r.RejectReason != nil {
				row["reject_reason"] = string(*r.RejectReason)
			}
			data.Rows = append(data.Rows, row)
		}
		return data, nil
	case models.RequestTypeRedeem:
		reds, _, err := s.sources.Redeems.List(ctx, filter)
		if err != nil {
			return export.Dataset{}, err
		}
		data := newDataset("total_amount", "amount_paid", "amount_hold", "game_platform", "game_username", "payment_methods")
		for i := range reds {
			r := &reds[i]
			row := baseRow(r)
			row["total_amount"] = r.TotalAmount.StringFixed(2)
			row["amount_paid"] = r.AmountPaid.StringFixed(2)
			row["amount_hold"] = r.AmountHold.StringFixed(2)
			row["game_platform"] = r.GamePlatform
			row["game_username"] = r.GameUsername
			methods := make([]string, 0, len(r.PaymentMethods))
			for _, m := range r.PaymentMethods {
				methods = append(methods, fmt.Sprintf("%s %s", m.Type, m.Tag))
			}
			row["payment_methods"] = strings.Join(methods, "; ")
			data.Rows = append(data.Rows, row)
		}
		return data, nil
	case models.RequestTypeTransfer:
		trs, _, err := s.sources.Transfers.List(ctx, filter)
		if err != nil {
			return export.Dataset{}, err
		}
		data := newDataset("amount", "from_platform", "from_username", "to_platform", "to_username")
		for i := range trs {
			r := &trs[i]
			row := baseRow(r)
			row["amount"] = r.Amount.StringFixed(2)
			row["from_platform"] = r.FromPlatform
			row["from_username"] = r.FromUsername
			row["to_platform"] = r.ToPlatform
			row["to_username"] = r.ToUsername
			data.Rows = append(data.Rows, row)
		}
		return data, nil
	default:
		prs, _, err := s.sources.Resets.List(ctx, filter)
		if err != nil {
			return export.Dataset{}, err
		}
		data := newDataset("game_platform", "game_username", "suggested_username")
		for i := range prs {
			r := &prs[i]
			row := baseRow(r)
			row["game_platform"] = r.GamePlatform
			row["game_username"] = r.GameUsername
			row["suggested_username"] = deref(r.SuggestedUsername)
			data.Rows = append(data.Rows, row)
		}
		return data, nil
	}
}

func newDataset(specific ...string) export.Dataset {
	headers := make([]string, 0, len(commonHeaders)+len(specific)+len(trailingHeaders))
	headers = append(headers, commonHeaders...)
	headers = append(headers, specific...)
	headers = append(headers, trailingHeaders...)
	return export.Dataset{Headers: headers}
}

func baseRow(req models.Request) map[string]string {
	b := req.Base()
	return map[string]string{
		"display_id":   b.DisplayID,
		"status":       req.CurrentStatus(),
		"team_code":    b.TeamCode,
		"vip_code":     b.VIPCode,
		"player_name":  b.PlayerName,
		"created_at":   b.CreatedAt.UTC().Format(time.RFC3339),
		"processed_by": deref(b.ProcessedBy),
		"processed_at": formatTime(b.ProcessedAt),
		"notes":        deref(b.Notes),
	}
}

func (s *ExportService) recordAudit(ctx context.Context, actor *models.JWTClaims, t models.RequestType, format export.Format, rows int) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{"type": t, "format": format, "rows": rows})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:    &actor.UserID,
		Action:    models.AuditActionExport,
		Resource:  t.Table(),
		NewValues: payload,
	}); err != nil {
		s.logger.Warn("failed to record export audit log", zap.Error(err))
	}
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
