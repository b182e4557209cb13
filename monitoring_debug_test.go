package jdb

import (
	"strings"
	"testing"

	"github.com/cespare/xxhash/v2"
)

func TestStats(t *testing.T) {
	reg := setup(t)
	eng := engine(t, reg, countersSchema)
	must(eng.Insert(Record{"name": "a"}))
	must(eng.Insert(Record{"name": "b"}))

	s, err := eng.Stats()
	success(t, err)
	raw := must(reg.Store().Read("counters.json"))
	deepEqual(t, s.Rows, 2)
	deepEqual(t, s.DataSize, len(raw))
	deepEqual(t, s.Checksum, xxhash.Sum64(raw))
	if s.Reads == 0 || s.Writes != 3 {
		t.Fatalf("Stats() = %+v, wanted reads and 3 writes", s)
	}
}

func TestDumpFlagsAndDump(t *testing.T) {
	eng := engine(t, setup(t), countersSchema)
	must(eng.Insert(Record{"name": "a", "n": 1}))

	var buf strings.Builder
	success(t, eng.Dump(&buf, DumpAll))
	out := buf.String()
	for _, want := range []string{
		"counters (1 rows)",
		"counters.stats: rows = 1, data_size = ",
		`counters.1 = a {"n":1,"name":"a","nums":[],"ratio":0}`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Dump() lacks %q:\n%s", want, out)
		}
	}

	buf.Reset()
	success(t, eng.Dump(&buf, DumpRows))
	if strings.Contains(buf.String(), "rows)") {
		t.Errorf("Dump(DumpRows) printed a header:\n%s", buf.String())
	}
	deepEqual(t, DumpAll.Contains(DumpStats), true)
	deepEqual(t, DumpRows.Contains(DumpStats), false)
}

func TestLoggableSuppressesContent(t *testing.T) {
	reg := setup(t)
	deepEqual(t, engine(t, reg, articlesSchema).loggable(Record{"title": "x"}), "<suppressed>")
	deepEqual(t, engine(t, reg, countersSchema).loggable(Record{"n": int64(1)}), `{"n":1}`)
	deepEqual(t, engine(t, reg, countersSchema).loggable(nil), "<none>")
}
