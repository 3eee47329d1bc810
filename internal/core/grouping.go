package core

import (
	"strings"

	"medisoft.com/zorgapp/internal/store"
)

// ClientGroup is one client's records in original order.
type ClientGroup struct {
	Client  string
	Records []store.Record
}

func (g ClientGroup) Intakes() []store.Record { return g.ofType(store.RecordIntake) }
func (g ClientGroup) Reports() []store.Record { return g.ofType(store.RecordReport) }

func (g ClientGroup) ofType(t store.RecordType) []store.Record {
	out := []store.Record{}
	for _, r := range g.Records {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

func matchesName(r store.Record, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(r.Client), lowerQuery)
}

// FilterByName keeps records whose client name contains query, ignoring case.
func FilterByName(records []store.Record, query string) []store.Record {
	q := strings.ToLower(query)
	out := make([]store.Record, 0, len(records))
	for _, r := range records {
		if matchesName(r, q) {
			out = append(out, r)
		}
	}
	return out
}

// GroupByClient partitions records by display name. Groups appear in the order
// their client is first seen; clients sharing a name end up in one group.
func GroupByClient(records []store.Record) []ClientGroup {
	var groups []ClientGroup
	index := make(map[string]int)
	for _, r := range records {
		i, ok := index[r.Client]
		if !ok {
			i = len(groups)
			index[r.Client] = i
			groups = append(groups, ClientGroup{Client: r.Client})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}

// FindGroup returns the group for client, if any record carries that name.
func FindGroup(groups []ClientGroup, client string) (ClientGroup, bool) {
	for _, g := range groups {
		if g.Client == client {
			return g, true
		}
	}
	return ClientGroup{}, false
}
