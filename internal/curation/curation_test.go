package curation

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/jackzampolin/stockmeta/internal/metadata"
)

func numbered(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("k%02d", i)
	}
	return out
}

func TestNewSet(t *testing.T) {
	s := NewSet(numbered(50))
	if got := len(s.Top()); got != TopSize {
		t.Errorf("len(Top()) = %d, want %d", got, TopSize)
	}
	if got := s.Remaining(); !reflect.DeepEqual(got, []string{"k45", "k46", "k47", "k48", "k49"}) {
		t.Errorf("Remaining() = %v", got)
	}

	short := NewSet([]string{"a", "b"})
	if len(short.Top()) != 2 || short.Remaining() != nil {
		t.Errorf("short set top=%v remaining=%v", short.Top(), short.Remaining())
	}
}

func TestPromote(t *testing.T) {
	s := NewSet(numbered(47))
	if !s.Promote("k46") {
		t.Fatal("Promote(k46) = false")
	}
	if s.Promote("k46") {
		t.Error("second Promote should be a no-op")
	}
	top := s.Top()
	if len(top) != 46 || top[45] != "k46" {
		t.Errorf("top tail = %v", top[40:])
	}
	if len(s.Remaining()) != 2 {
		t.Error("promoted keywords stay in Remaining")
	}
}

func TestAddCustom(t *testing.T) {
	s := NewSet([]string{"sun", "beach"})
	n := s.AddCustom(" sea, sun , , sand ")
	if n != 2 {
		t.Errorf("added = %d, want 2", n)
	}
	if got := s.Top(); !reflect.DeepEqual(got, []string{"sun", "beach", "sea", "sand"}) {
		t.Errorf("Top() = %v", got)
	}
	if s.AddCustom("   ") != 0 {
		t.Error("blank input adds nothing")
	}
}

func TestEdit(t *testing.T) {
	s := NewSet([]string{"a", "b", "c"})

	n, err := s.Edit(1, "x, y")
	if err != nil || n != 2 {
		t.Fatalf("Edit() = %d, %v", n, err)
	}
	if got := s.Top(); !reflect.DeepEqual(got, []string{"a", "x", "y", "c"}) {
		t.Errorf("Top() = %v", got)
	}

	if n, _ := s.Edit(0, " , "); n != 0 || s.Top()[0] != "a" {
		t.Error("blank edit should leave list unchanged")
	}
	if _, err := s.Edit(9, "z"); !errors.Is(err, ErrIndex) {
		t.Errorf("err = %v, want ErrIndex", err)
	}
}

func TestDeleteMoveReset(t *testing.T) {
	s := NewSet([]string{"a", "b", "c", "d"})

	if err := s.Delete(1); err != nil {
		t.Fatal(err)
	}
	if err := s.Move(2, 0); err != nil {
		t.Fatal(err)
	}
	if got := s.Top(); !reflect.DeepEqual(got, []string{"d", "a", "c"}) {
		t.Errorf("Top() = %v", got)
	}
	if s.Index("c") != 2 || s.Index("b") != -1 {
		t.Error("unexpected Index results")
	}
	if err := s.Delete(-1); !errors.Is(err, ErrIndex) {
		t.Errorf("Delete(-1) = %v", err)
	}
	if err := s.Move(0, 5); !errors.Is(err, ErrIndex) {
		t.Errorf("Move(0,5) = %v", err)
	}

	s.Reset()
	if got := s.Top(); !reflect.DeepEqual(got, []string{"a", "b", "c", "d"}) {
		t.Errorf("after Reset Top() = %v", got)
	}
}

func TestApply(t *testing.T) {
	r := &metadata.Result{Title: "T", AlternativeTitles: []string{"A"}, Keywords: []string{"a", "b"}}
	s := FromResult(r)
	s.AddCustom("c")

	out := s.Apply(r)
	if !reflect.DeepEqual(out.Keywords, []string{"a", "b", "c"}) {
		t.Errorf("Keywords = %v", out.Keywords)
	}
	if !reflect.DeepEqual(r.Keywords, []string{"a", "b"}) {
		t.Error("Apply must not modify the original result")
	}
	if out.Title != "T" {
		t.Errorf("Title = %q", out.Title)
	}
}

func TestRestore(t *testing.T) {
	s := Restore([]string{"a", "b", "c"}, []string{"c", "x"})
	if !reflect.DeepEqual(s.Top(), []string{"c", "x"}) {
		t.Errorf("Top() = %v", s.Top())
	}
	s.Reset()
	if !reflect.DeepEqual(s.Top(), []string{"a", "b", "c"}) {
		t.Errorf("after Reset Top() = %v", s.Top())
	}
	if fresh := Restore([]string{"a"}, nil); !reflect.DeepEqual(fresh.Top(), []string{"a"}) {
		t.Errorf("nil top Top() = %v", fresh.Top())
	}
}
