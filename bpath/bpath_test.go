package bpath

import (
	"testing"

	"github.com/nekogakure/litecore/ustr"
)

func TestSplit(t *testing.T) {
	parts := Split(ustr.Ustr("/usr/bin/ls"))
	want := []string{"usr", "bin", "ls"}
	if len(parts) != len(want) {
		t.Fatalf("got %d parts, want %d", len(parts), len(want))
	}
	for i, p := range parts {
		if p.String() != want[i] {
			t.Fatalf("part %d = %q, want %q", i, p.String(), want[i])
		}
	}
}

func TestSplitRoot(t *testing.T) {
	if len(Split(ustr.Ustr("/"))) != 0 {
		t.Fatal("expected root to split into zero parts")
	}
	if len(Split(ustr.Ustr(""))) != 0 {
		t.Fatal("expected empty path to split into zero parts")
	}
}

func TestDirBase(t *testing.T) {
	p := ustr.Ustr("/a/b/c.txt")
	if Dir(p).String() != "/a/b" {
		t.Fatalf("Dir = %q, want /a/b", Dir(p).String())
	}
	if Base(p).String() != "c.txt" {
		t.Fatalf("Base = %q, want c.txt", Base(p).String())
	}
}

func TestCanonicalize(t *testing.T) {
	got := Canonicalize(ustr.Ustr("/a/./b/../c"))
	if got.String() != "/a/c" {
		t.Fatalf("Canonicalize = %q, want /a/c", got.String())
	}
}

func TestCanonicalizeDotDotAtRoot(t *testing.T) {
	got := Canonicalize(ustr.Ustr("/../a"))
	if got.String() != "/a" {
		t.Fatalf("Canonicalize = %q, want /a", got.String())
	}
}

func TestJoinRoundTrip(t *testing.T) {
	parts := Split(ustr.Ustr("/a/b/c"))
	if Join(parts).String() != "/a/b/c" {
		t.Fatalf("Join(Split(p)) = %q, want /a/b/c", Join(parts).String())
	}
}
