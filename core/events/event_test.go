package events

import "testing"

type countingEmitter struct {
	seen []string
}

func (c *countingEmitter) Emit(evt Event) { c.seen = append(c.seen, evt.EventType()) }

func TestBufferFlushesInOrder(t *testing.T) {
	var buf Buffer
	buf.Emit(&Record{Type: "a"})
	buf.Emit(&Record{Type: "b"})
	if got := len(buf.Events()); got != 2 {
		t.Fatalf("expected 2 buffered events, got %d", got)
	}
	dst := &countingEmitter{}
	buf.Flush(dst)
	if len(dst.seen) != 2 || dst.seen[0] != "a" || dst.seen[1] != "b" {
		t.Fatalf("unexpected flush order: %v", dst.seen)
	}
	if len(buf.Events()) != 0 {
		t.Fatalf("buffer not emptied after flush")
	}
}

func TestFanoutDeliversToAll(t *testing.T) {
	first, second := &countingEmitter{}, &countingEmitter{}
	Fanout{first, nil, second}.Emit(&Record{Type: "x"})
	if len(first.seen) != 1 || len(second.seen) != 1 {
		t.Fatalf("fanout did not reach every emitter")
	}
}

func TestLogRetainsMostRecent(t *testing.T) {
	log := NewLog(2)
	log.Emit(&Record{Type: "one"})
	log.Emit(&Record{Type: "two"})
	log.Emit(&Record{Type: "three"})

	entries := log.Since(0, 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 retained entries, got %d", len(entries))
	}
	if entries[0].Sequence != 2 || entries[0].Event.Type != "two" {
		t.Fatalf("unexpected oldest entry: %+v", entries[0])
	}
	if tail := log.Since(2, 10); len(tail) != 1 || tail[0].Event.Type != "three" {
		t.Fatalf("unexpected tail: %+v", tail)
	}
	if limited := log.Since(0, 1); len(limited) != 1 {
		t.Fatalf("max not honoured: %d", len(limited))
	}
}
