// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package memexport

import (
	"bufio"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// An Image is a program given by the contents of its memory regions, as read
// from a YAML file:
//
//	digits: 8
//	pmem: [0x00000013, 0x0010006f]
//	dmem: [0, 0]
//	wmem: [0x0000ffff]
//	sgmem:
//	  0: [0x1, 0x2]
//
// An Image exports through WritesOwnFile capabilities, or through EmitsText
// ones if EmitText is set.
//
type Image struct {
	Digits    int              `yaml:"digits"`
	EmitText  bool             `yaml:"emit_text"`
	PMEMData  []uint64         `yaml:"pmem"`
	DMEMData  []uint64         `yaml:"dmem"`
	WMEMData  []uint64         `yaml:"wmem"`
	SGMEMData map[int][]uint64 `yaml:"sgmem"`
}

type dmemImage struct{ *Image }

func (i dmemImage) DMEM() Capability { return i.capability(i.DMEMData, "") }

// LoadImage reads an image file. The returned program supports the DMEM
// export only if the file has a dmem entry.
//
func LoadImage(path string) (Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read memory image")
	}
	var im Image
	if err := yaml.Unmarshal(data, &im); err != nil {
		return nil, errors.Wrapf(err, "parse memory image %s", path)
	}
	if im.Digits <= 0 {
		im.Digits = 8
	}
	if im.DMEMData != nil {
		return dmemImage{&im}, nil
	}
	return &im, nil
}

// PMEM implements Program.
//
func (i *Image) PMEM() Capability { return i.capability(i.PMEMData, "") }

// WMEM implements Program. A file writing WMEM export writes <stem>.mem.
//
func (i *Image) WMEM() Capability { return i.capability(i.WMEMData, Ext) }

// SGMEM implements Program. Channels without data export an empty image.
//
func (i *Image) SGMEM(ch int) Capability { return i.capability(i.SGMEMData[ch], Ext) }

func (i *Image) capability(words []uint64, ext string) Capability {
	if i.EmitText {
		return TextEmitter(func(w io.Writer) error { return WriteHex(w, words, i.Digits) })
	}
	return FileWriter(func(dest string) error {
		f, err := os.Create(dest + ext)
		if err != nil {
			return err
		}
		if err := WriteHex(f, words, i.Digits); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}

// WriteHex writes words to w, one zero padded hex word of the given number of
// digits per line.
//
func WriteHex(w io.Writer, words []uint64, digits int) error {
	bw := bufio.NewWriter(w)
	var buf []byte
	for _, v := range words {
		buf = strconv.AppendUint(buf[:0], v, 16)
		for n := len(buf); n < digits; n++ {
			bw.WriteByte('0')
		}
		bw.Write(buf)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
