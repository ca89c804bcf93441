package sheetrange

// Member is one nested entry of a Group, such as a single PCR target of a sample.
type Member struct {
	Key    string
	Fields *Record
}

// Group collects the rows that share an entity value.
type Group struct {
	Entity  string
	Members []Member
}

// Member returns the fields stored under key.
func (g Group) Member(key string) (*Record, bool) {
	for _, m := range g.Members {
		if m.Key == key {
			return m.Fields, true
		}
	}
	return nil, false
}

// GroupBy regroups flat rows into one group per distinct entity value, in order of
// first appearance. Each row becomes a member keyed by its member field; the entity
// and member fields are dropped from the nested record. A repeated member key within
// a group overwrites the earlier one. Rows with an empty entity belong to no group
// and are returned as ungrouped, in input order.
func GroupBy(records []*Record, entity, member string) (groups []Group, ungrouped []*Record) {
	index := make(map[string]int)
	for _, rec := range records {
		ent := rec.Value(entity)
		if ent.IsEmpty() {
			ungrouped = append(ungrouped, rec)
			continue
		}
		key := rec.Text(member)
		fields := rec.Clone()
		fields.Delete(entity)
		fields.Delete(member)

		name := ent.String()
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, Group{Entity: name})
		}
		g := &groups[i]
		replaced := false
		for j := range g.Members {
			if g.Members[j].Key == key {
				g.Members[j].Fields = fields
				replaced = true
				break
			}
		}
		if !replaced {
			g.Members = append(g.Members, Member{Key: key, Fields: fields})
		}
	}
	return groups, ungrouped
}

// Flatten is the inverse of GroupBy: one record per member with the entity and
// member fields restored at the front.
func Flatten(groups []Group, entity, member string) []*Record {
	var out []*Record
	for _, g := range groups {
		for _, m := range g.Members {
			rec := NewRecord()
			rec.Set(entity, String(g.Entity))
			rec.Set(member, Of(m.Key))
			for _, k := range m.Fields.Keys() {
				rec.Set(k, m.Fields.Value(k))
			}
			out = append(out, rec)
		}
	}
	return out
}
