package fat16

import (
	"encoding/binary"

	"github.com/nekogakure/litecore/ustr"
)

const (
	attrDirectory = 0x10
	attrVolumeID  = 0x08
	attrLongName  = 0x0F

	entryFree    = 0x00
	entryDeleted = 0xE5
)

// dirent is a parsed 32-byte FAT16 directory entry.
type dirent struct {
	name         [11]byte
	attr         byte
	startCluster uint16
	size         uint32
}

func parseDirent(raw []byte) dirent {
	var d dirent
	copy(d.name[:], raw[0:11])
	d.attr = raw[11]
	d.startCluster = binary.LittleEndian.Uint16(raw[26:28])
	d.size = binary.LittleEndian.Uint32(raw[28:32])
	return d
}

func (d dirent) encode(raw []byte) {
	for i := range raw[:32] {
		raw[i] = 0
	}
	copy(raw[0:11], d.name[:])
	raw[11] = d.attr
	binary.LittleEndian.PutUint16(raw[26:28], d.startCluster)
	binary.LittleEndian.PutUint32(raw[28:32], d.size)
}

func (d dirent) isFree() bool {
	return d.name[0] == entryFree || d.name[0] == entryDeleted
}

func (d dirent) isDir() bool {
	return d.attr&attrDirectory != 0
}

func (d dirent) isVolumeOrLFN() bool {
	return d.attr&attrVolumeID != 0 || d.attr&attrLongName == attrLongName
}

func (d dirent) nameMatches(target ustr.Ustr) bool {
	return d.name == target.ToShortname11()
}
