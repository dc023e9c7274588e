package selector

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/blacktop/go-macho/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/telemetrykit/crashsym/pkg/imagetable"
)

const (
	segText         = "__TEXT"
	sectObjcMethods = "__objc_methname"
)

// machImage walks the in-memory Mach-O header of one loaded image. All
// reads go through the injected Memory so the walk can run against a
// live process or a crafted test image alike.
type machImage struct {
	mem   imagetable.Memory
	addr  uint64 // header load address
	slide uint64
	hdr   types.FileHeader
	cmds  []byte
}

func openImage(mem imagetable.Memory, e imagetable.Entry) (*machImage, error) {
	m := &machImage{mem: mem, addr: e.Address, slide: e.Slide}

	hdrBuf := make([]byte, types.FileHeaderSize64)
	if err := m.mem.ReadAt(hdrBuf[:types.FileHeaderSize32], m.addr); err != nil {
		return nil, errors.Wrap(err, "read mach header")
	}
	if err := binary.Read(bytes.NewReader(hdrBuf), binary.LittleEndian, &m.hdr); err != nil {
		return nil, err
	}

	var hdrSize uint64
	switch m.hdr.Magic {
	case types.Magic64:
		hdrSize = types.FileHeaderSize64
	case types.Magic32:
		hdrSize = types.FileHeaderSize32
	default:
		return nil, errors.Errorf("bad mach magic %#x at %#x", uint32(m.hdr.Magic), m.addr)
	}

	m.cmds = make([]byte, m.hdr.SizeCommands)
	if err := m.mem.ReadAt(m.cmds, m.addr+hdrSize); err != nil {
		return nil, errors.Wrap(err, "read load commands")
	}
	return m, nil
}

// uuid returns the image's LC_UUID value.
func (m *machImage) uuid() (uuid.UUID, error) {
	r := bytes.NewReader(m.cmds)
	for i := uint32(0); i < m.hdr.NCommands; i++ {
		cmd, siz, err := peekCommand(r)
		if err != nil {
			return uuid.Nil, err
		}
		if cmd != types.LC_UUID {
			if _, err := r.Seek(int64(siz), io.SeekCurrent); err != nil {
				return uuid.Nil, err
			}
			continue
		}
		var uc types.UUIDCmd
		if err := binary.Read(r, binary.LittleEndian, &uc); err != nil {
			return uuid.Nil, err
		}
		return uuid.UUID(uc.UUID), nil
	}
	return uuid.Nil, errors.Wrapf(ErrNotFound, "no LC_UUID in image at %#x", m.addr)
}

// methodNames returns the bounds of the __TEXT.__objc_methname section,
// adjusted by the image's load-time slide.
func (m *machImage) methodNames() (lo, hi uint64, err error) {
	r := bytes.NewReader(m.cmds)
	for i := uint32(0); i < m.hdr.NCommands; i++ {
		cmd, siz, err := peekCommand(r)
		if err != nil {
			return 0, 0, err
		}
		switch cmd {
		case types.LC_SEGMENT_64:
			var seg types.Segment64
			if err := binary.Read(r, binary.LittleEndian, &seg); err != nil {
				return 0, 0, err
			}
			if cstring(seg.Name[:]) != segText {
				if err := skipSections(r, seg.Nsect, true); err != nil {
					return 0, 0, err
				}
				continue
			}
			for s := uint32(0); s < seg.Nsect; s++ {
				var sect types.Section64
				if err := binary.Read(r, binary.LittleEndian, &sect); err != nil {
					return 0, 0, err
				}
				if cstring(sect.Name[:]) == sectObjcMethods {
					lo = sect.Addr + m.slide
					return lo, lo + sect.Size, nil
				}
			}
		case types.LC_SEGMENT:
			var seg types.Segment32
			if err := binary.Read(r, binary.LittleEndian, &seg); err != nil {
				return 0, 0, err
			}
			if cstring(seg.Name[:]) != segText {
				if err := skipSections(r, seg.Nsect, false); err != nil {
					return 0, 0, err
				}
				continue
			}
			for s := uint32(0); s < seg.Nsect; s++ {
				var sect types.Section32
				if err := binary.Read(r, binary.LittleEndian, &sect); err != nil {
					return 0, 0, err
				}
				if cstring(sect.Name[:]) == sectObjcMethods {
					lo = uint64(sect.Addr) + m.slide
					return lo, lo + uint64(sect.Size), nil
				}
			}
		default:
			if _, err := r.Seek(int64(siz), io.SeekCurrent); err != nil {
				return 0, 0, err
			}
		}
	}
	return 0, 0, errors.Wrapf(ErrNotFound, "no %s section in image at %#x", sectObjcMethods, m.addr)
}

// peekCommand reads a load command's type and remaining length without
// consuming its body.
func peekCommand(r *bytes.Reader) (types.LoadCmd, uint32, error) {
	var raw [2]uint32
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return 0, 0, err
	}
	if raw[1] < 8 {
		return 0, 0, errors.Errorf("runt load command (len %d)", raw[1])
	}
	if _, err := r.Seek(-8, io.SeekCurrent); err != nil {
		return 0, 0, err
	}
	return types.LoadCmd(raw[0]), raw[1], nil
}

func skipSections(r *bytes.Reader, n uint32, is64 bool) error {
	size := int64(binary.Size(types.Section32{}))
	if is64 {
		size = int64(binary.Size(types.Section64{}))
	}
	_, err := r.Seek(size*int64(n), io.SeekCurrent)
	return err
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
