package jdb

// Delete removes the record stored under key, or returns ErrKeyNotFound.
func (e *Engine) Delete(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, raw, err := e.load()
	if err != nil {
		return err
	}
	old, ok := doc[key]
	if !ok {
		return tableErrf(e.schema.name, key, "", ErrKeyNotFound, "")
	}
	e.logf("db: DELETE %s/%s", e.schema.name, key)
	delete(doc, key)
	return e.commit(doc, raw, Change{Table: e.schema.name, Op: ChangeDelete, Key: key, OldRecord: old})
}
