package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therafiali/internal-app-sub000/internal/models"
)

func TestRedeemCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRedeemRepository(db)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO redeem_requests").
		WillReturnRows(sqlmock.NewRows([]string{"display_id", "created_at", "updated_at"}).AddRow("RDM-000007", now, now))

	red := &models.Redeem{
		RequestBase:    models.RequestBase{VIPCode: "VIP-1", PlayerName: "Jane", TeamCode: "ENT-1"},
		TotalAmount:    decimal.NewFromInt(100),
		PaymentMethods: models.PaymentMethods{{Type: models.PaymentPayPal, Tag: "jane@example.com"}},
	}
	require.NoError(t, repo.Create(context.Background(), red))
	assert.Equal(t, "RDM-000007", red.DisplayID)
	assert.Equal(t, models.RedeemPending, red.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemAdjustHold(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRedeemRepository(db)

	mock.ExpectExec(`UPDATE redeem_requests SET amount_hold = amount_hold \+ \$2`).
		WithArgs("d1", decimal.NewFromInt(40)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.AdjustHold(context.Background(), "d1", decimal.NewFromInt(40)))

	mock.ExpectExec(`amount_paid \+ amount_hold \+ \$2 <= total_amount`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.AdjustHold(context.Background(), "d1", decimal.NewFromInt(500)), ErrStale)
	assert.NoError(t, mock.ExpectationsWereMet())
}
