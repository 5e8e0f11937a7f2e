package fat16

import (
	"bytes"
	"testing"

	"github.com/nekogakure/litecore/blkcache"
	"github.com/nekogakure/litecore/pci"
	"github.com/nekogakure/litecore/ustr"
)

// formatTestVolume lays down a minimal valid FAT16 BPB over a fresh
// in-memory device and mounts it: 512-byte sectors, 1 sector/cluster,
// 1 reserved sector, 2 FAT copies, 32 root entries.
func formatTestVolume(t *testing.T, totalSectors int) *FS {
	t.Helper()
	dev := pci.NewMemDevice(totalSectors)
	cache := blkcache.Init(dev, 512, 16)

	const (
		reserved       = 1
		numFATs        = 2
		maxRootEntries = 32
		fatSizeSectors = 4
	)
	var b bpb
	b.setBytesPerSector(512)
	b.setSectorsPerCluster(1)
	b.setReservedSectors(reserved)
	b.setNumFATs(numFATs)
	b.setMaxRootEntries(maxRootEntries)
	b.setTotalSectors(totalSectors)
	b.setFATSizeSectors(fatSizeSectors)
	cache.Write(0, b.data[:])
	cache.Flush()

	fs, err := Mount(cache)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	return fs
}

func TestFAT16RoundTrip(t *testing.T) {
	fs := formatTestVolume(t, 256)
	data := []byte("hi\n")
	n, err := fs.WriteFile(ustr.Ustr("/README.md"), data, 0)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if n != len(data) {
		t.Fatalf("wrote %d bytes, want %d", n, len(data))
	}

	size, err := fs.FileSize(ustr.Ustr("/README.md"))
	if err != nil {
		t.Fatalf("FileSize: %v", err)
	}
	if size != len(data) {
		t.Fatalf("FileSize = %d, want %d", size, len(data))
	}

	buf := make([]byte, len(data))
	got, err := fs.ReadFile(ustr.Ustr("/README.md"), buf, 0)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got != len(data) || !bytes.Equal(buf, data) {
		t.Fatalf("ReadFile = %q, want %q", buf[:got], data)
	}
}

func TestFAT16MultiClusterFile(t *testing.T) {
	fs := formatTestVolume(t, 256)
	data := bytes.Repeat([]byte{'x'}, 512*3+17)
	if _, err := fs.WriteFile(ustr.Ustr("/big.bin"), data, 0); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	buf := make([]byte, len(data))
	n, err := fs.ReadFile(ustr.Ustr("/big.bin"), buf, 0)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if n != len(data) || !bytes.Equal(buf, data) {
		t.Fatal("multi-cluster round trip did not return identical data")
	}
}

func TestFAT16ReadPastEndOfFile(t *testing.T) {
	fs := formatTestVolume(t, 256)
	fs.WriteFile(ustr.Ustr("/a.txt"), []byte("abc"), 0)
	buf := make([]byte, 8)
	n, err := fs.ReadFile(ustr.Ustr("/a.txt"), buf, 3)
	if err != nil || n != 0 {
		t.Fatalf("read past EOF: n=%d err=%v, want 0,nil", n, err)
	}
}

func TestFAT16ReadMissingFile(t *testing.T) {
	fs := formatTestVolume(t, 256)
	buf := make([]byte, 8)
	if _, err := fs.ReadFile(ustr.Ustr("/nope.txt"), buf, 0); err == nil {
		t.Fatal("expected error reading a missing file")
	}
}

func TestFAT16ListDirRoot(t *testing.T) {
	fs := formatTestVolume(t, 256)
	fs.WriteFile(ustr.Ustr("/a.txt"), []byte("a"), 0)
	fs.WriteFile(ustr.Ustr("/b.txt"), []byte("b"), 0)
	names, err := fs.ListDir(ustr.Ustr("/"))
	if err != nil {
		t.Fatalf("ListDir: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("ListDir returned %d entries, want 2", len(names))
	}
}

func TestFAT16RejectsBadSectorSize(t *testing.T) {
	dev := pci.NewMemDevice(64)
	cache := blkcache.Init(dev, 512, 4)
	var b bpb
	b.setBytesPerSector(1024)
	b.setSectorsPerCluster(1)
	b.setReservedSectors(1)
	b.setNumFATs(2)
	b.setMaxRootEntries(32)
	b.setTotalSectors(64)
	b.setFATSizeSectors(2)
	cache.Write(0, b.data[:])
	if _, err := Mount(cache); err == nil {
		t.Fatal("expected Mount to reject a non-512-byte sector size")
	}
}

func TestFAT16OverwriteExistingFile(t *testing.T) {
	fs := formatTestVolume(t, 256)
	fs.WriteFile(ustr.Ustr("/a.txt"), []byte("first"), 0)
	if _, err := fs.WriteFile(ustr.Ustr("/a.txt"), []byte("second!!"), 0); err != nil {
		t.Fatalf("overwrite WriteFile: %v", err)
	}
	buf := make([]byte, 8)
	n, err := fs.ReadFile(ustr.Ustr("/a.txt"), buf, 0)
	if err != nil || string(buf[:n]) != "second!!" {
		t.Fatalf("got %q, want second!!", buf[:n])
	}
}

func TestFAT16ShrinkingOverwriteTruncates(t *testing.T) {
	fs := formatTestVolume(t, 256)
	if _, err := fs.WriteFile(ustr.Ustr("/a.txt"), []byte("hello world"), 0); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := fs.WriteFile(ustr.Ustr("/a.txt"), []byte("hi"), 0); err != nil {
		t.Fatalf("overwrite WriteFile: %v", err)
	}
	size, err := fs.FileSize(ustr.Ustr("/a.txt"))
	if err != nil {
		t.Fatalf("FileSize: %v", err)
	}
	if size != 2 {
		t.Fatalf("FileSize = %d, want 2", size)
	}
	buf := make([]byte, 8)
	n, err := fs.ReadFile(ustr.Ustr("/a.txt"), buf, 0)
	if err != nil || string(buf[:n]) != "hi" {
		t.Fatalf("got %q (n=%d), want \"hi\"", buf[:n], n)
	}
}
