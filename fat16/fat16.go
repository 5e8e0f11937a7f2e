package fat16

import (
	"encoding/binary"

	"github.com/nekogakure/litecore/blkcache"
	"github.com/nekogakure/litecore/bpath"
	"github.com/nekogakure/litecore/defs"
	"github.com/nekogakure/litecore/ustr"
)

// eocMin is the lowest cluster value that marks end-of-chain; any
// on-disk value at or above it terminates a cluster walk.
const eocMin = 0xFFF8
const eocMark = 0xFFFF
const freeCluster = 0x0000
const rootMarker = 0 // sentinel cluster number meaning "the fixed root directory region"

// FS is a mounted FAT16 volume, backed by a blkcache.Cache whose block
// size this package fixes at one sector (BytesPerSector) so that
// sector-granularity addressing in the BPB, FAT and directory regions
// needs no further translation.
type FS struct {
	cache *blkcache.Cache
	bpb   bpb
}

// Mount parses the BPB from block 0 of cache and validates it. The BPB
// must describe 512-byte sectors; any other value is rejected.
func Mount(cache *blkcache.Cache) (*FS, error) {
	if cache.BlockSize() != 512 {
		return nil, defs.EINVAL
	}
	fs := &FS{cache: cache}
	cache.Read(0, fs.bpb.data[:])
	if fs.bpb.bytesPerSector() != 512 {
		return nil, defs.EINVAL
	}
	if fs.bpb.numFATs() < 1 || fs.bpb.sectorsPerCluster() < 1 {
		return nil, defs.EINVAL
	}
	return fs, nil
}

// Name identifies this backend for vfs/fdops diagnostics.
func (fs *FS) Name() string { return "fat16" }

func (fs *FS) clusterBytes() int {
	return fs.bpb.sectorsPerCluster() * fs.bpb.bytesPerSector()
}

func (fs *FS) sectorOfCluster(cluster int) int {
	return fs.bpb.firstDataSector() + (cluster-2)*fs.bpb.sectorsPerCluster()
}

// readFATEntry returns the raw 16-bit FAT entry for cluster, reading
// only the first FAT copy (all copies are kept identical).
func (fs *FS) readFATEntry(cluster int) uint16 {
	byteOff := cluster * 2
	sector := fs.bpb.reservedSectors() + byteOff/fs.bpb.bytesPerSector()
	within := byteOff % fs.bpb.bytesPerSector()
	buf := make([]byte, fs.bpb.bytesPerSector())
	fs.cache.Read(sector, buf)
	return binary.LittleEndian.Uint16(buf[within:])
}

// writeFATEntry writes cluster's FAT entry into every FAT copy so both
// remain in sync.
func (fs *FS) writeFATEntry(cluster int, val uint16) {
	byteOff := cluster * 2
	sectorInFAT := byteOff / fs.bpb.bytesPerSector()
	within := byteOff % fs.bpb.bytesPerSector()
	buf := make([]byte, fs.bpb.bytesPerSector())
	for copyN := 0; copyN < fs.bpb.numFATs(); copyN++ {
		sector := fs.bpb.reservedSectors() + copyN*fs.bpb.fatSizeSectors() + sectorInFAT
		fs.cache.Read(sector, buf)
		binary.LittleEndian.PutUint16(buf[within:], val)
		fs.cache.Write(sector, buf)
	}
}

// chainSectors returns every sector making up cluster's chain, in
// cluster order, terminating when a FAT entry reaches eocMin.
func (fs *FS) chainSectors(startCluster int) []int {
	var sectors []int
	cluster := startCluster
	for cluster != 0 && cluster < eocMin {
		base := fs.sectorOfCluster(cluster)
		for s := 0; s < fs.bpb.sectorsPerCluster(); s++ {
			sectors = append(sectors, base+s)
		}
		next := fs.readFATEntry(cluster)
		if next == freeCluster {
			break
		}
		cluster = int(next)
	}
	return sectors
}

// allocChain scans the FAT for n free entries (starting at cluster 2,
// the first valid data cluster) and links them into a chain terminated
// by eocMark. Returns the start cluster.
func (fs *FS) allocChain(n int) (int, error) {
	if n == 0 {
		return rootMarker, nil
	}
	totalClusters := (fs.bpb.totalSectors() - fs.bpb.firstDataSector()) / fs.bpb.sectorsPerCluster()
	var found []int
	for c := 2; c < totalClusters+2 && len(found) < n; c++ {
		if fs.readFATEntry(c) == freeCluster {
			found = append(found, c)
		}
	}
	if len(found) < n {
		return 0, defs.ENOSPC
	}
	for i, c := range found {
		if i == len(found)-1 {
			fs.writeFATEntry(c, eocMark)
		} else {
			fs.writeFATEntry(c, uint16(found[i+1]))
		}
	}
	return found[0], nil
}

// freeChain marks every cluster in startCluster's chain as free.
func (fs *FS) freeChain(startCluster int) {
	cluster := startCluster
	for cluster != 0 && cluster < eocMin {
		next := fs.readFATEntry(cluster)
		fs.writeFATEntry(cluster, freeCluster)
		if next == freeCluster {
			break
		}
		cluster = int(next)
	}
}

// readDirSectors returns the sectors backing a directory: the fixed
// root region for the root marker, or the directory's own cluster chain
// otherwise.
func (fs *FS) readDirSectors(dirCluster int) []int {
	if dirCluster == rootMarker {
		sectors := make([]int, fs.bpb.rootDirSectors())
		for i := range sectors {
			sectors[i] = fs.bpb.rootDirSector() + i
		}
		return sectors
	}
	return fs.chainSectors(dirCluster)
}

// findEntry scans dirCluster for an entry matching name, returning the
// entry, the sector and in-sector byte offset it occupies.
func (fs *FS) findEntry(dirCluster int, name ustr.Ustr) (dirent, int, int, bool) {
	sectors := fs.readDirSectors(dirCluster)
	buf := make([]byte, fs.bpb.bytesPerSector())
	for _, sector := range sectors {
		fs.cache.Read(sector, buf)
		for off := 0; off+dirEntrySize <= len(buf); off += dirEntrySize {
			d := parseDirent(buf[off : off+dirEntrySize])
			if d.isFree() || d.isVolumeOrLFN() {
				continue
			}
			if d.nameMatches(name) {
				return d, sector, off, true
			}
		}
	}
	return dirent{}, 0, 0, false
}

// findFreeSlot returns a sector and offset free to receive a new entry
// in dirCluster, growing a non-root directory's chain by one cluster if
// every existing slot is occupied.
func (fs *FS) findFreeSlot(dirCluster int) (int, int, error) {
	sectors := fs.readDirSectors(dirCluster)
	buf := make([]byte, fs.bpb.bytesPerSector())
	for _, sector := range sectors {
		fs.cache.Read(sector, buf)
		for off := 0; off+dirEntrySize <= len(buf); off += dirEntrySize {
			d := parseDirent(buf[off : off+dirEntrySize])
			if d.isFree() {
				return sector, off, nil
			}
		}
	}
	if dirCluster == rootMarker {
		return 0, 0, defs.ENOSPC
	}
	newCluster, err := fs.allocChain(1)
	if err != nil {
		return 0, 0, err
	}
	lastCluster := dirCluster
	for {
		next := fs.readFATEntry(lastCluster)
		if next >= eocMin {
			break
		}
		lastCluster = int(next)
	}
	fs.writeFATEntry(lastCluster, uint16(newCluster))
	return fs.sectorOfCluster(newCluster), 0, nil
}

func (fs *FS) writeEntry(sector, off int, d dirent) {
	buf := make([]byte, fs.bpb.bytesPerSector())
	fs.cache.Read(sector, buf)
	d.encode(buf[off : off+dirEntrySize])
	fs.cache.Write(sector, buf)
}

// resolve walks path component by component from the root, returning
// the final entry's directory cluster and its own dirent, or ok=false
// if any component is missing.
func (fs *FS) resolve(path ustr.Ustr) (parentCluster int, d dirent, found bool) {
	parts := bpath.Split(path)
	cluster := rootMarker
	if len(parts) == 0 {
		return rootMarker, dirent{attr: attrDirectory}, true
	}
	for i, part := range parts {
		entry, _, _, ok := fs.findEntry(cluster, part)
		if !ok {
			return 0, dirent{}, false
		}
		if i == len(parts)-1 {
			return cluster, entry, true
		}
		if !entry.isDir() {
			return 0, dirent{}, false
		}
		cluster = int(entry.startCluster)
	}
	return 0, dirent{}, false
}

// ReadFile reads up to len(buf) bytes of path starting at offset off.
// Reading at or past end of file returns (0, nil).
func (fs *FS) ReadFile(path ustr.Ustr, buf []byte, off int) (int, error) {
	_, d, ok := fs.resolve(path)
	if !ok {
		return 0, defs.ENOENT
	}
	if d.isDir() {
		return 0, defs.EISDIR
	}
	if off >= int(d.size) {
		return 0, nil
	}
	n := len(buf)
	if off+n > int(d.size) {
		n = int(d.size) - off
	}
	sectors := fs.chainSectors(int(d.startCluster))
	sbuf := make([]byte, fs.bpb.bytesPerSector())
	copied := 0
	for copied < n {
		absOff := off + copied
		sectorIdx := absOff / fs.bpb.bytesPerSector()
		within := absOff % fs.bpb.bytesPerSector()
		if sectorIdx >= len(sectors) {
			break
		}
		fs.cache.Read(sectors[sectorIdx], sbuf)
		chunk := copy(buf[copied:n], sbuf[within:])
		copied += chunk
	}
	return copied, nil
}

// WriteFile writes buf starting at offset off, (re)allocating a cluster
// chain sized to the resulting file length and creating the directory
// entry if path does not yet exist. A newly created entry is always
// placed in the root directory, whatever directories path names.
func (fs *FS) WriteFile(path ustr.Ustr, buf []byte, off int) (int, error) {
	dirCluster, existing, exists := fs.resolve(path)
	newSize := off + len(buf)
	if exists {
		if existing.isDir() {
			return 0, defs.EISDIR
		}
		// write_file is a truncating overwrite: the file's new size is
		// exactly off+len(buf), even if that is shorter than what was
		// there before. Keeping the old size here would leave the tail
		// beyond newSize pointing at clusters that are never copied
		// forward and never zeroed.
	} else {
		dirCluster = rootMarker
	}

	nClusters := (newSize + fs.clusterBytes() - 1) / fs.clusterBytes()
	startCluster, err := fs.allocChain(nClusters)
	if err != nil {
		return 0, err
	}

	// copy forward any bytes preceding off from the old chain, then the
	// caller's payload, matching a whole-file reallocate-and-rewrite.
	sectors := fs.chainSectors(startCluster)
	sbuf := make([]byte, fs.bpb.bytesPerSector())
	if exists && off > 0 {
		oldSectors := fs.chainSectors(int(existing.startCluster))
		remaining := off
		for i := 0; remaining > 0 && i < len(oldSectors) && i < len(sectors); i++ {
			n := fs.bpb.bytesPerSector()
			if n > remaining {
				n = remaining
			}
			fs.cache.Read(oldSectors[i], sbuf)
			fs.cache.Write(sectors[i], sbuf)
			remaining -= n
		}
	}
	written := 0
	for written < len(buf) {
		absOff := off + written
		sectorIdx := absOff / fs.bpb.bytesPerSector()
		within := absOff % fs.bpb.bytesPerSector()
		if sectorIdx >= len(sectors) {
			break
		}
		fs.cache.Read(sectors[sectorIdx], sbuf)
		chunk := copy(sbuf[within:], buf[written:])
		fs.cache.Write(sectors[sectorIdx], sbuf)
		written += chunk
	}

	name := bpath.Base(path)
	d := dirent{name: name.ToShortname11(), startCluster: uint16(startCluster), size: uint32(newSize)}
	if exists {
		_, sector, soff, _ := fs.findEntry(dirCluster, name)
		fs.writeEntry(sector, soff, d)
		if int(existing.startCluster) != startCluster {
			fs.freeChain(int(existing.startCluster))
		}
	} else {
		sector, soff, err := fs.findFreeSlot(dirCluster)
		if err != nil {
			return 0, err
		}
		fs.writeEntry(sector, soff, d)
	}
	return written, nil
}

// FileSize returns path's current size in bytes.
func (fs *FS) FileSize(path ustr.Ustr) (int, error) {
	_, d, ok := fs.resolve(path)
	if !ok {
		return 0, defs.ENOENT
	}
	return int(d.size), nil
}

// ListDir returns the names of path's immediate children.
func (fs *FS) ListDir(path ustr.Ustr) ([]ustr.Ustr, error) {
	cluster := rootMarker
	if !path.IsAbsolute() || len(bpath.Split(path)) > 0 {
		_, d, ok := fs.resolve(path)
		if !ok {
			return nil, defs.ENOENT
		}
		if !d.isDir() && len(bpath.Split(path)) > 0 {
			return nil, defs.ENOTDIR
		}
		cluster = int(d.startCluster)
	}
	var names []ustr.Ustr
	sectors := fs.readDirSectors(cluster)
	buf := make([]byte, fs.bpb.bytesPerSector())
	for _, sector := range sectors {
		fs.cache.Read(sector, buf)
		for off := 0; off+dirEntrySize <= len(buf); off += dirEntrySize {
			d := parseDirent(buf[off : off+dirEntrySize])
			if d.isFree() || d.isVolumeOrLFN() {
				continue
			}
			names = append(names, trimShortname(d.name))
		}
	}
	return names, nil
}

// IsDir reports whether path names a directory.
func (fs *FS) IsDir(path ustr.Ustr) bool {
	_, d, ok := fs.resolve(path)
	return ok && d.isDir()
}

// Exists reports whether path names any entry at all.
func (fs *FS) Exists(path ustr.Ustr) bool {
	_, _, ok := fs.resolve(path)
	return ok
}

func trimShortname(name [11]byte) ustr.Ustr {
	base := trimSpace(name[0:8])
	ext := trimSpace(name[8:11])
	if len(ext) == 0 {
		return ustr.Ustr(base)
	}
	out := append([]byte{}, base...)
	out = append(out, '.')
	out = append(out, ext...)
	return ustr.Ustr(out)
}

func trimSpace(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}
	return b[:end]
}
