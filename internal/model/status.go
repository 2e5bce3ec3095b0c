package model

import (
	"strconv"
	"strings"
)

// OrderStatus is the normalized remote order status.
type OrderStatus string

const (
	StatusNew     OrderStatus = "NEW"
	StatusPending OrderStatus = "PENDING"
	StatusPaid    OrderStatus = "PAID"
	StatusFailed  OrderStatus = "FAILED"
	StatusExpired OrderStatus = "EXPIRED"
)

// legacy numeric codes 1..5
var statusByCode = map[int]OrderStatus{
	1: StatusNew,
	2: StatusPending,
	3: StatusPaid,
	4: StatusFailed,
	5: StatusExpired,
}

// ParseOrderStatus normalizes either a legacy numeric code or a
// case-insensitive status name. Anything else is an UnknownStatusError;
// statuses are never coerced on a best-effort basis.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &UnknownStatusError{Raw: raw}
	}
	if code, err := strconv.Atoi(trimmed); err == nil {
		if st, ok := statusByCode[code]; ok {
			return st, nil
		}
		return "", &UnknownStatusError{Raw: raw}
	}
	switch OrderStatus(strings.ToUpper(trimmed)) {
	case StatusNew:
		return StatusNew, nil
	case StatusPending:
		return StatusPending, nil
	case StatusPaid:
		return StatusPaid, nil
	case StatusFailed:
		return StatusFailed, nil
	case StatusExpired:
		return StatusExpired, nil
	}
	return "", &UnknownStatusError{Raw: raw}
}
