package jdb

// Insert stores rec under the key derived by the table's key strategy and
// returns that key. An existing record with the same key is replaced.
// Entries of rec that are not columns are ignored.
func (e *Engine) Insert(rec Record) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prepared, err := e.prepare("", rec)
	if err != nil {
		return "", err
	}
	key := e.schema.key.Derive(prepared)
	return key, e.putPrepared(key, prepared)
}

// Put stores rec under an explicit key, bypassing the key strategy.
func (e *Engine) Put(key string, rec Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	prepared, err := e.prepare(key, rec)
	if err != nil {
		return err
	}
	return e.putPrepared(key, prepared)
}

func (e *Engine) putPrepared(key string, prepared Record) error {
	doc, raw, err := e.load()
	if err != nil {
		return err
	}
	old, exists := doc[key]
	if exists {
		e.logf("db: PUT.OVERWRITE %s/%s => %s", e.schema.name, key, e.loggable(prepared))
	} else {
		e.logf("db: PUT %s/%s => %s", e.schema.name, key, e.loggable(prepared))
	}
	doc[key] = prepared
	return e.commit(doc, raw, Change{Table: e.schema.name, Op: ChangePut, Key: key, Record: prepared, OldRecord: old})
}
