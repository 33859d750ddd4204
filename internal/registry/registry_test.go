package registry

import (
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/martinsuchenak/camdash/internal/source"
)

func fileSource(t *testing.T, id string) source.Source {
	t.Helper()
	src, err := source.NewFileSource(id, id+".csv")
	if err != nil {
		t.Fatalf("NewFileSource failed: %v", err)
	}
	return src
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := New()

	if err := reg.Register(fileSource(t, "b")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := reg.Register(fileSource(t, "a")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := reg.Register(fileSource(t, "a")); !errors.Is(err, ErrSourceExists) {
		t.Errorf("Expected ErrSourceExists, got %v", err)
	}

	if _, ok := reg.Get("a"); !ok {
		t.Error("Expected source a")
	}
	if _, ok := reg.Get("missing"); ok {
		t.Error("Expected missing source not to be found")
	}

	ids := reg.IDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("Expected sorted ids [a b], got %v", ids)
	}

	list := reg.List()
	if len(list) != 2 || list[0].ID() != "a" {
		t.Errorf("Expected list ordered by id, got %d sources", len(list))
	}
}

func TestRegistry_Unregister(t *testing.T) {
	reg := New()
	reg.Register(fileSource(t, "a"))

	if !reg.Unregister("a") {
		t.Error("Expected Unregister to report the source was present")
	}
	if reg.Unregister("a") {
		t.Error("Expected a second Unregister to report false")
	}
	if len(reg.IDs()) != 0 {
		t.Errorf("Expected empty registry, got %v", reg.IDs())
	}
}

func TestRegistry_Default(t *testing.T) {
	reg := New()
	if _, ok := reg.Default(); ok {
		t.Error("Expected no default on an empty registry")
	}

	reg.Register(fileSource(t, "upload:b"))
	reg.Register(fileSource(t, "file"))

	src, ok := reg.Default()
	if !ok || src.ID() != "file" {
		t.Errorf("Expected the first id as default, got %v", src)
	}

	sheet, err := source.NewSheetSourceWithClient("https://docs.google.com/spreadsheets/d/abc/edit", "0", http.DefaultClient)
	if err != nil {
		t.Fatalf("NewSheetSourceWithClient failed: %v", err)
	}
	reg.Register(sheet)

	src, ok = reg.Default()
	if !ok || src.ID() != source.SheetSourceID {
		t.Errorf("Expected the sheet as default, got %v", src)
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	reg := New()
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src, _ := source.NewFileSource(id, id+".csv")
			reg.Register(src)
			reg.IDs()
			reg.Default()
		}()
	}
	wg.Wait()

	if len(reg.IDs()) != len(ids) {
		t.Errorf("Expected %d sources, got %d", len(ids), len(reg.IDs()))
	}
}
