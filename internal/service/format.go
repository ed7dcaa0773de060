package service

import (
	"fmt"
	"time"

	"github.com/therafiali/internal-app-sub000/internal/dto"
	"github.com/therafiali/internal-app-sub000/internal/models"
)

// FormatElapsed renders the age of a request the way the queues display it:
// "just now", "12m", "3h 05m" or "2d 4h".
func FormatElapsed(since, now time.Time) string {
	d := now.Sub(since)
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) - h*60
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	days := int(d.Hours()) / 24
	h := int(d.Hours()) - days*24
	return fmt.Sprintf("%dd %dh", days, h)
}

func rechargeViews(recs []models.Recharge, now time.Time) []dto.RechargeView {
	views := make([]dto.RechargeView, 0, len(recs))
	for i := range recs {
		views = append(views, dto.RechargeView{Recharge: &recs[i], Elapsed: FormatElapsed(recs[i].CreatedAt, now)})
	}
	return views
}

func redeemView(red *models.Redeem, now time.Time) dto.RedeemView {
	return dto.RedeemView{Redeem: red, Remaining: red.Remaining(), Elapsed: FormatElapsed(red.CreatedAt, now)}
}

func redeemViews(reds []models.Redeem, now time.Time) []dto.RedeemView {
	views := make([]dto.RedeemView, 0, len(reds))
	for i := range reds {
		views = append(views, redeemView(&reds[i], now))
	}
	return views
}

func transferViews(trs []models.Transfer, now time.Time) []dto.TransferView {
	views := make([]dto.TransferView, 0, len(trs))
	for i := range trs {
		views = append(views, dto.TransferView{Transfer: &trs[i], Elapsed: FormatElapsed(trs[i].CreatedAt, now)})
	}
	return views
}

func passwordResetViews(prs []models.PasswordReset, now time.Time) []dto.PasswordResetView {
	views := make([]dto.PasswordResetView, 0, len(prs))
	for i := range prs {
		views = append(views, dto.PasswordResetView{PasswordReset: &prs[i], Elapsed: FormatElapsed(prs[i].CreatedAt, now)})
	}
	return views
}

// toFilter converts list query parameters into a repository filter.
func toFilter(q dto.RequestQuery) models.RequestFilter {
	return models.RequestFilter{
		Statuses: q.Status,
		TeamCode: q.TeamCode,
		VIPCode:  q.VIPCode,
		Search:   q.Search,
		From:     q.From,
		To:       q.To,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
}
