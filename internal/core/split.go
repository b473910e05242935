package core

// split.go separates transactions that were stitched onto one physical line.
//
// The boundary between two transactions is found by content, not by column
// offset: every Provider token opens a new group. A group is complete once a
// Region, a Status and a Channel have followed its Provider, in any order,
// and it keeps collecting trailing columns (currency, rate, message,
// timestamp) until the next Provider or the end of the row.
//
// Two adjacent Provider tokens each open their own group; the first one is
// left incomplete and rejected later by the Builder. Tokens before the first
// Provider are boilerplate and are dropped.

// Splitter detects transaction boundaries within a classified row.
type Splitter struct{}

// NewSplitter creates a Splitter.
func NewSplitter() *Splitter {
	return &Splitter{}
}

// Split returns the groups of fields in row order.
func (s *Splitter) Split(fields []ClassifiedField) []Group {
	var (
		groups  []Group
		current *Group
		seen    roleSet
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Complete = seen.has(RoleRegion) && seen.has(RoleStatus) && seen.has(RoleChannel)
		groups = append(groups, *current)
		current = nil
	}

	for _, f := range fields {
		if f.Role == RoleProvider {
			flush()
			current = &Group{Fields: []ClassifiedField{f}}
			seen = 0
			continue
		}
		if current == nil {
			continue
		}
		current.Fields = append(current.Fields, f)
		seen = seen.add(f.Role)
	}
	flush()

	return groups
}

// roleSet is a small bitset of observed roles.
type roleSet uint16

func (s roleSet) add(r Role) roleSet { return s | 1<<uint(r) }
func (s roleSet) has(r Role) bool    { return s&(1<<uint(r)) != 0 }
