package model

import "testing"

func TestParseOrderStatus(t *testing.T) {
	valid := map[string]OrderStatus{
		"1":       StatusNew,
		"2":       StatusPending,
		"3":       StatusPaid,
		"4":       StatusFailed,
		"5":       StatusExpired,
		"NEW":     StatusNew,
		"paid":    StatusPaid,
		"EXPIRED": StatusExpired,
		"Pending": StatusPending,
	}
	for raw, want := range valid {
		got, err := ParseOrderStatus(raw)
		if err != nil {
			t.Errorf("ParseOrderStatus(%q): unexpected error %v", raw, err)
			continue
		}
		if got != want {
			t.Errorf("ParseOrderStatus(%q) = %s, want %s", raw, got, want)
		}
	}
	for _, raw := range []string{"0", "6", "", "bogus", "-1"} {
		if _, err := ParseOrderStatus(raw); err == nil {
			t.Errorf("ParseOrderStatus(%q): expected unknown status error", raw)
		}
	}
}
