package service

import (
	"testing"
	"time"

	"nplvision_backend/internal/loans/repository"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func baseCase() repository.ForeclosureCase {
	return repository.ForeclosureCase{
		LoanID:            "L100",
		Jurisdiction:      "Judicial",
		FCStatus:          "Active",
		FCStartDate:       datePtr(2026, time.January, 1),
		ReferralDate:      datePtr(2026, time.January, 16),
		SaleScheduledDate: datePtr(2026, time.July, 1),
	}
}

func TestForeclosureTriggerChanged(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*repository.ForeclosureCase)
		want   bool
	}{
		{"no field changed", func(c *repository.ForeclosureCase) {}, false},
		{"status changed", func(c *repository.ForeclosureCase) { c.FCStatus = "Hold" }, true},
		{"sale scheduled moved", func(c *repository.ForeclosureCase) { c.SaleScheduledDate = datePtr(2026, time.August, 1) }, true},
		{"sale scheduled cleared", func(c *repository.ForeclosureCase) { c.SaleScheduledDate = nil }, true},
		{"sale held set", func(c *repository.ForeclosureCase) { c.SaleHeldDate = datePtr(2026, time.July, 2) }, true},
		{"reo set", func(c *repository.ForeclosureCase) { c.RealEstateOwnedDate = datePtr(2026, time.July, 15) }, true},
		{"milestone-only update", func(c *repository.ForeclosureCase) {
			c.ComplaintFiledDate = datePtr(2026, time.February, 10)
			c.JudgmentDate = datePtr(2026, time.May, 1)
		}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prev := baseCase()
			curr := baseCase()
			tc.mutate(&curr)
			if got := foreclosureTriggerChanged(&prev, curr); got != tc.want {
				t.Fatalf("changed = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestForeclosureTriggerChangedFirstInsert(t *testing.T) {
	if !foreclosureTriggerChanged(nil, baseCase()) {
		t.Fatal("first insert must count as changed")
	}
}

func TestDatePtrEqual(t *testing.T) {
	utc := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	east := utc.In(time.FixedZone("EST", -5*60*60))

	cases := []struct {
		name string
		a, b *time.Time
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil vs set", nil, &utc, false},
		{"set vs nil", &utc, nil, false},
		{"same instant", &utc, &utc, true},
		{"same instant different zone", &utc, &east, true},
		{"different dates", &utc, datePtr(2026, time.July, 2), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := datePtrEqual(tc.a, tc.b); got != tc.want {
				t.Fatalf("equal = %v, want %v", got, tc.want)
			}
		})
	}
}
