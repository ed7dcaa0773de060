package service

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therafiali/internal-app-sub000/internal/dto"
	"github.com/therafiali/internal-app-sub000/internal/models"
	appErrors "github.com/therafiali/internal-app-sub000/pkg/errors"
	"github.com/therafiali/internal-app-sub000/pkg/export"
)

func newExportFixture(w *world) *ExportService {
	svc := NewExportService(ExportSources{
		Recharges: w.recharges,
		Redeems:   w.redeems,
		Transfers: w.transfers,
		Resets:    w.resets,
	}, w.audit, 0, nil, nil, nil)
	svc.now = fixedNow
	return svc
}

func TestExportRechargesCSV(t *testing.T) {
	w := newWorld()
	rec := seedRecharge(w, "ENT-1", models.RechargeSCProcessed, 75)
	rec.BonusAmount = decimal.RequireFromString("7.50")
	ident := "CASH-1"
	rec.Identifier = &ident
	w.recharges.put(rec)
	seedRecharge(w, "ENT-2", models.RechargePending, 10)

	auditor := operator("audit-1", models.DepartmentAudit, "ENT-1")
	file, err := newExportFixture(w).Export(context.Background(), auditor, dto.ExportQuery{Type: "recharges"})
	require.NoError(t, err)
	assert.Equal(t, "recharge_20240310_120000.csv", file.Filename)
	assert.Equal(t, export.FormatCSV.ContentType(), file.ContentType)
	assert.Equal(t, 1, file.Rows)

	records, err := csv.NewReader(strings.NewReader(string(file.Payload))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	header := records[0]
	assert.Equal(t, "display_id", header[0])
	row := map[string]string{}
	for i, h := range header {
		row[h] = records[1][i]
	}
	assert.Equal(t, "75.00", row["amount"])
	assert.Equal(t, "7.50", row["bonus_amount"])
	assert.Equal(t, "CASH-1", row["identifier"])
	assert.Equal(t, "ENT-1", row["team_code"])
	assert.Equal(t, "cashapp $player", row["payment_method"])

	assert.Equal(t, []string{models.AuditActionExport}, w.audit.actions())
}

func TestExportRedeemsPDF(t *testing.T) {
	w := newWorld()
	assignedPair(w, 300, 100)
	admin := &models.JWTClaims{UserID: "admin-1", Department: models.DepartmentAdmin, AllTeams: true}

	file, err := newExportFixture(w).Export(context.Background(), admin, dto.ExportQuery{Type: "redeem", Format: export.FormatPDF})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Payload), "%PDF"))
}

func TestExportRejections(t *testing.T) {
	w := newWorld()
	svc := newExportFixture(w)
	ctx := context.Background()

	_, err := svc.Export(ctx, supportAgent, dto.ExportQuery{Type: "transfers"})
	requireCode(t, err, appErrors.ErrForbidden)

	auditor := operator("audit-1", models.DepartmentAudit, "ENT-1")
	_, err = svc.Export(ctx, auditor, dto.ExportQuery{Type: "bonuses"})
	requireCode(t, err, appErrors.ErrValidation)

	_, err = svc.Export(ctx, auditor, dto.ExportQuery{Type: "transfers", Format: "xlsx"})
	requireCode(t, err, appErrors.ErrValidation)

	_, err = svc.Export(ctx, auditor, dto.ExportQuery{Type: "password-resets", Query: dto.RequestQuery{TeamCode: "ENT-3"}})
	requireCode(t, err, appErrors.ErrTenantDenied)
	assert.Empty(t, w.audit.actions())
}
