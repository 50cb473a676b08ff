package mountfs

import (
	"context"
	"testing"

	"vfscore/memoryfs"
	"vfscore/vfs"
)

// TestMountRoutingLongestPrefix exercises spec scenario S4.
func TestMountRoutingLongestPrefix(t *testing.T) {
	ctx := context.Background()
	a := memoryfs.New(false)
	b := memoryfs.New(false)

	router := New()
	router.Mount(vfs.MustPath("/tmp"), a)
	router.Mount(vfs.Root(), b)

	if _, err := router.CreateFile(ctx, vfs.MustPath("/tmp/x")); err != nil {
		t.Fatalf("CreateFile(/tmp/x): %v", err)
	}
	if _, err := router.CreateFile(ctx, vfs.MustPath("/y")); err != nil {
		t.Fatalf("CreateFile(/y): %v", err)
	}

	existsInA, err := a.FileExists(ctx, vfs.MustPath("/x"))
	if err != nil || !existsInA {
		t.Fatalf("a.FileExists(/x): %v, %v", existsInA, err)
	}
	existsInB, err := b.FileExists(ctx, vfs.MustPath("/y"))
	if err != nil || !existsInB {
		t.Fatalf("b.FileExists(/y): %v, %v", existsInB, err)
	}

	entries, err := router.Entries(ctx, vfs.MustPath("/tmp"), vfs.Shallow("*"))
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Path().String() != "/tmp/x" {
		t.Fatalf("got %v, want single entry /tmp/x", entries)
	}
}

func TestMountReadOnlyAlwaysTrue(t *testing.T) {
	router := New()
	if !router.ReadOnly() {
		t.Error("expected router ReadOnly() to always report true")
	}
}

func TestMountUnmount(t *testing.T) {
	ctx := context.Background()
	a := memoryfs.New(false)
	router := New()
	router.Mount(vfs.MustPath("/a"), a)

	if !router.Unmount(vfs.MustPath("/a")) {
		t.Fatal("expected Unmount to report true for a present mount")
	}
	if router.Unmount(vfs.MustPath("/a")) {
		t.Error("expected Unmount to report false for an already-removed mount")
	}

	if _, err := router.FileStat(ctx, vfs.MustPath("/a/x")); err == nil {
		t.Error("expected NotFound once the mount is gone")
	}
}

func TestMountAtReturnsChildDirectly(t *testing.T) {
	ctx := context.Background()
	a := memoryfs.New(false)
	router := New()
	router.Mount(vfs.MustPath("/a"), a)

	child, err := router.At(ctx, vfs.MustPath("/a"), true)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if _, err := child.CreateFile(ctx, vfs.MustPath("/inside.txt")); err != nil {
		t.Fatalf("CreateFile via At child: %v", err)
	}
	exists, err := a.FileExists(ctx, vfs.MustPath("/inside.txt"))
	if err != nil || !exists {
		t.Fatalf("a.FileExists: %v, %v", exists, err)
	}
}
