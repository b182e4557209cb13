package jdb

// Get returns the record stored under key, or ErrKeyNotFound.
func (e *Engine) Get(key string) (Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, _, err := e.load()
	if err != nil {
		return nil, err
	}
	rec, ok := doc[key]
	if !ok {
		return nil, tableErrf(e.schema.name, key, "", ErrKeyNotFound, "")
	}
	e.logf("db: GET %s/%s => %s", e.schema.name, key, e.loggable(rec))
	return rec, nil
}

// Exists reports whether a record is stored under key.
func (e *Engine) Exists(key string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, _, err := e.load()
	if err != nil {
		return false, err
	}
	_, ok := doc[key]
	return ok, nil
}

// All returns every record in document order.
func (e *Engine) All() ([]Entry, error) {
	return e.Query(nil)
}

// Keys returns every key in document order.
func (e *Engine) Keys() ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, _, err := e.load()
	if err != nil {
		return nil, err
	}
	return doc.Keys(), nil
}

func (e *Engine) Count() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, _, err := e.load()
	if err != nil {
		return 0, err
	}
	return len(doc), nil
}

// Query returns the records matching expr, in document order. A nil expr
// matches everything.
func (e *Engine) Query(expr Expr) ([]Entry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, _, err := e.load()
	if err != nil {
		return nil, err
	}
	var result []Entry
	for _, key := range doc.Keys() {
		rec := doc[key]
		if expr == nil || Match(expr, rec) {
			result = append(result, Entry{Key: key, Record: rec})
		}
	}
	if expr != nil {
		e.logf("db: QUERY %s %v => %d of %d", e.schema.name, expr, len(result), len(doc))
	}
	return result, nil
}
