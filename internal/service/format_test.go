package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/therafiali/internal-app-sub000/internal/dto"
)

func TestFormatElapsed(t *testing.T) {
	cases := map[time.Duration]string{
		20 * time.Second:              "just now",
		12 * time.Minute:              "12m",
		3*time.Hour + 5*time.Minute:   "3h 05m",
		50*time.Hour + 30*time.Minute: "2d 2h",
	}
	for age, want := range cases {
		assert.Equal(t, want, FormatElapsed(testNow.Add(-age), testNow), age.String())
	}
}

func TestToFilterCopiesQuery(t *testing.T) {
	from := testNow.Add(-time.Hour)
	filter := toFilter(dto.RequestQuery{Status: []string{"pending"}, TeamCode: "ENT-1", Search: "jane", From: &from, Page: 2, PageSize: 10})
	assert.Equal(t, []string{"pending"}, filter.Statuses)
	assert.Equal(t, "ENT-1", filter.TeamCode)
	assert.Equal(t, "jane", filter.Search)
	assert.Equal(t, &from, filter.From)
	assert.Equal(t, 2, filter.Page)
	assert.Empty(t, filter.Teams)
}
