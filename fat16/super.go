// Package fat16 implements the block-cache-backed FAT16 filesystem:
// BPB parsing, cluster-chain walking, 8.3 directory entries and path
// resolution. Field accessors read typed values straight out of a raw
// sector buffer rather than through an unmarshaled struct.
package fat16

import "encoding/binary"

// BPB byte offsets, as laid out by every FAT16 implementation's boot
// sector (not this project's invention).
const (
	offBytesPerSector    = 11
	offSectorsPerCluster = 13
	offReservedSectors   = 14
	offNumFATs           = 16
	offMaxRootEntries    = 17
	offTotalSectors16    = 19
	offFATSizeSectors    = 22
	offTotalSectors32    = 32
)

const dirEntrySize = 32

// bpb wraps the raw first-sector bytes of a FAT16 volume.
type bpb struct {
	data [512]byte
}

func (b *bpb) bytesPerSector() int {
	return int(binary.LittleEndian.Uint16(b.data[offBytesPerSector:]))
}

func (b *bpb) sectorsPerCluster() int {
	return int(b.data[offSectorsPerCluster])
}

func (b *bpb) reservedSectors() int {
	return int(binary.LittleEndian.Uint16(b.data[offReservedSectors:]))
}

func (b *bpb) numFATs() int {
	return int(b.data[offNumFATs])
}

func (b *bpb) maxRootEntries() int {
	return int(binary.LittleEndian.Uint16(b.data[offMaxRootEntries:]))
}

func (b *bpb) totalSectors() int {
	if n := binary.LittleEndian.Uint16(b.data[offTotalSectors16:]); n != 0 {
		return int(n)
	}
	return int(binary.LittleEndian.Uint32(b.data[offTotalSectors32:]))
}

func (b *bpb) fatSizeSectors() int {
	return int(binary.LittleEndian.Uint16(b.data[offFATSizeSectors:]))
}

func (b *bpb) setBytesPerSector(n int) {
	binary.LittleEndian.PutUint16(b.data[offBytesPerSector:], uint16(n))
}
func (b *bpb) setSectorsPerCluster(n int) { b.data[offSectorsPerCluster] = byte(n) }
func (b *bpb) setReservedSectors(n int) {
	binary.LittleEndian.PutUint16(b.data[offReservedSectors:], uint16(n))
}
func (b *bpb) setNumFATs(n int) { b.data[offNumFATs] = byte(n) }
func (b *bpb) setMaxRootEntries(n int) {
	binary.LittleEndian.PutUint16(b.data[offMaxRootEntries:], uint16(n))
}
func (b *bpb) setTotalSectors(n int) {
	if n < 1<<16 {
		binary.LittleEndian.PutUint16(b.data[offTotalSectors16:], uint16(n))
		return
	}
	binary.LittleEndian.PutUint32(b.data[offTotalSectors32:], uint32(n))
}
func (b *bpb) setFATSizeSectors(n int) {
	binary.LittleEndian.PutUint16(b.data[offFATSizeSectors:], uint16(n))
}

// rootDirSectors returns the number of sectors occupied by the fixed
// root directory region.
func (b *bpb) rootDirSectors() int {
	bytes := b.maxRootEntries() * dirEntrySize
	bps := b.bytesPerSector()
	return (bytes + bps - 1) / bps
}

// rootDirSector returns the first sector of the fixed root directory.
func (b *bpb) rootDirSector() int {
	return b.reservedSectors() + b.numFATs()*b.fatSizeSectors()
}

// firstDataSector returns the first sector of the cluster data region.
func (b *bpb) firstDataSector() int {
	return b.rootDirSector() + b.rootDirSectors()
}
