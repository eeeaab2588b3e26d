// Package realtime fans row-level change events out to connected admin clients.
// Workers publish ChangeEvents to Redis; every API instance runs a Hub that
// pattern-subscribes to the channels and pushes matching events over websockets.
package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/brewcart/brewcart-backend/pkg/enums"
	"github.com/google/uuid"
)

const (
	TableOrders          = "orders"
	TableProducts        = "products"
	TableStores          = "stores"
	TableStoreSettings   = "store_settings"
	TableSupportRequests = "support_requests"
)

var knownTables = map[string]struct{}{
	TableOrders:          {},
	TableProducts:        {},
	TableStores:          {},
	TableStoreSettings:   {},
	TableSupportRequests: {},
}

// ChangeEvent describes one committed row change.
type ChangeEvent struct {
	Table           string           `json:"table"`
	Type            enums.ChangeType `json:"type"`
	StoreID         uuid.UUID        `json:"store_id"`
	RecordID        uuid.UUID        `json:"record_id"`
	Record          json.RawMessage  `json:"record,omitempty"`
	CommitTimestamp time.Time        `json:"commit_timestamp"`
}

// Filter selects events by table and change type. Empty sets match everything.
type Filter struct {
	Tables map[string]struct{}
	Events map[enums.ChangeType]struct{}
}

// ParseFilter reads comma separated table and event lists, e.g. "orders,products" and "INSERT,UPDATE".
// "*" is accepted as an explicit wildcard.
func ParseFilter(tables, events string) (Filter, error) {
	filter := Filter{
		Tables: map[string]struct{}{},
		Events: map[enums.ChangeType]struct{}{},
	}
	for _, raw := range splitList(tables) {
		if raw == "*" {
			filter.Tables = map[string]struct{}{}
			break
		}
		name := strings.ToLower(raw)
		if _, ok := knownTables[name]; !ok {
			return Filter{}, fmt.Errorf("unknown table %q", raw)
		}
		filter.Tables[name] = struct{}{}
	}
	for _, raw := range splitList(events) {
		if raw == "*" {
			filter.Events = map[enums.ChangeType]struct{}{}
			break
		}
		change, err := enums.ParseChangeType(raw)
		if err != nil {
			return Filter{}, err
		}
		filter.Events[change] = struct{}{}
	}
	return filter, nil
}

// Matches reports whether ev passes the filter.
func (f Filter) Matches(ev ChangeEvent) bool {
	if len(f.Tables) > 0 {
		if _, ok := f.Tables[ev.Table]; !ok {
			return false
		}
	}
	if len(f.Events) > 0 {
		if _, ok := f.Events[ev.Type]; !ok {
			return false
		}
	}
	return true
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Channel is the Redis channel carrying a store's events.
func Channel(prefix string, storeID uuid.UUID) string {
	return prefix + ":" + storeID.String()
}

// storeFromChannel is the inverse of Channel.
func storeFromChannel(prefix, channel string) (uuid.UUID, bool) {
	rest, ok := strings.CutPrefix(channel, prefix+":")
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(rest)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
