package redis

import (
	"strconv"
	"strings"
	"time"
)

// Every key lives under "sb:<kind>:...". Empty parts are dropped.
const keyRoot = "sb"

func key(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString(keyRoot)
	b.WriteByte(':')
	b.WriteString(kind)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteByte(':')
			b.WriteString(p)
		}
	}
	return b.String()
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return key("idempotency", scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return key("rate_limit", scope)
}

func (c *Client) LockKey(name string) string {
	return key("lock", name)
}

// ReminderKey identifies the reminder for one order's pickup window, so a
// rescheduled window gets a fresh marker.
func (c *Client) ReminderKey(orderID string, pickupEnd time.Time) string {
	return key("reminder", orderID, strconv.FormatInt(pickupEnd.Unix(), 10))
}
