package pci

import "os"

// FileDevice is a SectorDevice backed by a real host file, the form
// cmd/mkfsimg writes a disk image through and a future host-side test
// loader would read one back from.
type FileDevice struct {
	f       *os.File
	sectors int
}

// CreateFileDevice creates (or truncates) path and sizes it to hold
// sectors sectors.
func CreateFileDevice(path string, sectors int) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(sectors) * SectorSize); err != nil {
		f.Close()
		return nil, err
	}
	return &FileDevice{f: f, sectors: sectors}, nil
}

// OpenFileDevice opens an existing image file, sizing sectors from its
// length.
func OpenFileDevice(path string) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileDevice{f: f, sectors: int(info.Size() / SectorSize)}, nil
}

func (d *FileDevice) NumSectors() int { return d.sectors }

func (d *FileDevice) ReadSectors(lba, count int, buf []byte) error {
	n := count * SectorSize
	if lba < 0 || lba+count > d.sectors || n > len(buf) {
		return ErrOutOfRange
	}
	_, err := d.f.ReadAt(buf[:n], int64(lba)*SectorSize)
	return err
}

func (d *FileDevice) WriteSectors(lba, count int, buf []byte) error {
	n := count * SectorSize
	if lba < 0 || lba+count > d.sectors || n > len(buf) {
		return ErrOutOfRange
	}
	_, err := d.f.WriteAt(buf[:n], int64(lba)*SectorSize)
	return err
}

// Close flushes and closes the backing file.
func (d *FileDevice) Close() error {
	if err := d.f.Sync(); err != nil {
		d.f.Close()
		return err
	}
	return d.f.Close()
}
