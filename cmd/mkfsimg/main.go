// Command mkfsimg builds a bootable disk image: a FAT16 volume seeded
// from a host directory tree, the filesystem half of what used to be
// produced alongside a bootloader and kernel blob.
package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nekogakure/litecore/blkcache"
	"github.com/nekogakure/litecore/fat16"
	"github.com/nekogakure/litecore/pci"
	"github.com/nekogakure/litecore/ustr"
)

// FAT16 BPB byte offsets, the same fixed boot-sector layout every FAT16
// implementation reads.
const (
	offBytesPerSector    = 11
	offSectorsPerCluster = 13
	offReservedSectors   = 14
	offNumFATs           = 16
	offMaxRootEntries    = 17
	offTotalSectors16    = 19
	offFATSizeSectors    = 22
)

const (
	sectorsPerCluster = 1
	reservedSectors   = 1
	numFATs           = 2
	maxRootEntries    = 512
	fatSizeSectors    = 32
	chunkSize         = 4096
)

func writeBPB(cache *blkcache.Cache, totalSectors int) {
	var raw [512]byte
	binary.LittleEndian.PutUint16(raw[offBytesPerSector:], uint16(pci.SectorSize))
	raw[offSectorsPerCluster] = sectorsPerCluster
	binary.LittleEndian.PutUint16(raw[offReservedSectors:], uint16(reservedSectors))
	raw[offNumFATs] = numFATs
	binary.LittleEndian.PutUint16(raw[offMaxRootEntries:], uint16(maxRootEntries))
	binary.LittleEndian.PutUint16(raw[offTotalSectors16:], uint16(totalSectors))
	binary.LittleEndian.PutUint16(raw[offFATSizeSectors:], uint16(fatSizeSectors))
	cache.Write(0, raw[:])
	cache.Flush()
}

// copyFile streams src from the host into dst inside fs, chunkSize
// bytes at a time so a large file never needs a full in-memory copy.
func copyFile(fs *fat16.FS, src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	buf := make([]byte, chunkSize)
	off := 0
	for {
		n, readErr := srcFile.Read(buf)
		if n > 0 {
			if _, err := fs.WriteFile(ustr.Ustr(dst), buf[:n], off); err != nil {
				return fmt.Errorf("write %s: %w", dst, err)
			}
			off += n
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

// addfiles walks skeldir on the host and copies every regular file into
// the root directory of fs. FAT16 here has no directory-create operation
// of its own (fat16.FS places every newly created entry in the root
// directory), so a file's path relative to skeldir is flattened with '/'
// replaced by '_' rather than the file being silently dropped.
func addfiles(fs *fat16.FS, skeldir string) error {
	return filepath.WalkDir(skeldir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("access %q: %w", path, err)
		}
		if d.IsDir() {
			return nil
		}
		rel := strings.TrimPrefix(path, skeldir)
		rel = strings.TrimPrefix(rel, string(os.PathSeparator))
		flat := "/" + strings.ReplaceAll(rel, string(os.PathSeparator), "_")
		fmt.Printf("mkfsimg: %s -> %s\n", path, flat)
		return copyFile(fs, path, flat)
	})
}

func main() {
	if len(os.Args) < 4 {
		fmt.Println("usage: mkfsimg <output image> <sectors> <skel dir>")
		os.Exit(1)
	}
	image := os.Args[1]
	var totalSectors int
	if _, err := fmt.Sscanf(os.Args[2], "%d", &totalSectors); err != nil {
		fmt.Printf("bad sector count %q: %v\n", os.Args[2], err)
		os.Exit(1)
	}
	skeldir := os.Args[3]

	rootDirSectors := (maxRootEntries*32 + pci.SectorSize - 1) / pci.SectorSize
	minSectors := reservedSectors + numFATs*fatSizeSectors + rootDirSectors + 1
	if totalSectors < minSectors {
		fmt.Printf("sector count %d too small for this layout (need at least %d)\n", totalSectors, minSectors)
		os.Exit(1)
	}

	dev, err := pci.CreateFileDevice(image, totalSectors)
	if err != nil {
		fmt.Printf("create %s: %v\n", image, err)
		os.Exit(1)
	}
	defer dev.Close()

	cache := blkcache.Init(dev, pci.SectorSize, 64)
	writeBPB(cache, totalSectors)

	fs, err := fat16.Mount(cache)
	if err != nil {
		fmt.Printf("mount: %v\n", err)
		os.Exit(1)
	}

	if err := addfiles(fs, skeldir); err != nil {
		fmt.Printf("addfiles: %v\n", err)
		os.Exit(1)
	}
	cache.Flush()
}
