package jdb

// Migrate adds every column missing from stored records, using the value
// Prepare gives for an absent value, and returns how many columns were
// added. The document is only rewritten when something was added.
func (e *Engine) Migrate() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, raw, err := e.load()
	if err != nil {
		return 0, err
	}

	var added int
	var changes []Change
	for _, key := range doc.Keys() {
		rec := doc[key]
		var old Record
		for _, col := range e.schema.columns {
			if _, ok := rec[col.Name]; ok {
				continue
			}
			v, err := col.Prepare(nil)
			if err != nil {
				return 0, tableErrf(e.schema.name, key, col.Name, err, "migrate")
			}
			if old == nil {
				old = rec.Clone()
			}
			rec[col.Name] = v
			added++
		}
		if old != nil {
			changes = append(changes, Change{Table: e.schema.name, Op: ChangePut, Key: key, Record: rec, OldRecord: old})
		}
	}
	if added == 0 {
		return 0, nil
	}
	e.logf("db: MIGRATE %s => %d columns added", e.schema.name, added)
	return added, e.commit(doc, raw, changes...)
}
