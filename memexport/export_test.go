package memexport_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/db47h/dacbench/memexport"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// textProgram only emits text, like older compilers.
type textProgram struct{}

func emit(s string) memexport.Capability {
	return memexport.TextEmitter(func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

func (textProgram) PMEM() memexport.Capability        { return emit("00000013\n0010006f\n") }
func (textProgram) WMEM() memexport.Capability        { return emit("0000ffff\n") }
func (textProgram) SGMEM(ch int) memexport.Capability { return emit(fmt.Sprintf("%08x\n", ch)) }

// fileProgram writes its own files, with a multi file WMEM stem.
type fileProgram struct {
	skipWrite bool
}

func writeFile(path, s string) error { return os.WriteFile(path, []byte(s), 0644) }

func (p fileProgram) PMEM() memexport.Capability {
	return memexport.FileWriter(func(dest string) error {
		if p.skipWrite {
			return nil
		}
		return writeFile(dest, "00000013\n")
	})
}

func (fileProgram) WMEM() memexport.Capability {
	return memexport.FileWriter(func(stem string) error {
		for i := 0; i < 2; i++ {
			if err := writeFile(fmt.Sprintf("%s_%d.mem", stem, i), "0000ffff\n"); err != nil {
				return err
			}
		}
		return nil
	})
}

func (fileProgram) SGMEM(ch int) memexport.Capability {
	return memexport.FileWriter(func(prefix string) error { return writeFile(prefix+".mem", "1\n") })
}

type dmemProgram struct{ fileProgram }

func (dmemProgram) DMEM() memexport.Capability {
	return memexport.FileWriter(func(dest string) error { return writeFile(dest, "0\n") })
}

type noWMEM struct{ textProgram }

func (noWMEM) WMEM() memexport.Capability { return memexport.Capability{} }

type channels int

func (c channels) NumChannels() int { return int(c) }

func names(t *testing.T, dir string) []string {
	t.Helper()
	ents, err := os.ReadDir(dir)
	require.NoError(t, err)
	var n []string
	for _, e := range ents {
		n = append(n, e.Name())
	}
	sort.Strings(n)
	return n
}

func TestExportRegion_textFallback(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "tb_mem")
	var e memexport.Exporter
	a, err := e.ExportRegion(context.Background(), textProgram{}, memexport.PMEM, 0, dir)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "pmem.mem")}, a.Paths)
	data, err := os.ReadFile(a.Paths[0])
	require.NoError(t, err)
	require.Equal(t, "00000013\n0010006f\n", string(data))

	a, err = e.ExportRegion(context.Background(), textProgram{}, memexport.SGMEM, 3, dir)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "sgmem_ch3.mem")}, a.Paths)
}

func TestExportAll_completeness(t *testing.T) {
	td := []struct {
		name  string
		prog  memexport.Program
		files []string
	}{
		{"text", textProgram{}, []string{"pmem.mem", "wmem.mem"}},
		{"file", fileProgram{}, []string{"pmem.mem", "wmem_0.mem", "wmem_1.mem"}},
		{"file+dmem", dmemProgram{}, []string{"dmem.mem", "pmem.mem", "wmem_0.mem", "wmem_1.mem"}},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")
			e := memexport.Exporter{Channels: channels(11)}
			abs, arts, err := e.ExportAll(context.Background(), d.prog, dir, nil)
			require.NoError(t, err)
			require.True(t, filepath.IsAbs(abs))

			want := append([]string(nil), d.files...)
			for ch := 0; ch < 11; ch++ {
				want = append(want, fmt.Sprintf("sgmem_ch%d.mem", ch))
			}
			sort.Strings(want)
			require.Equal(t, want, names(t, abs))

			count := map[memexport.Region]int{}
			for _, a := range arts {
				count[a.Region]++
				if a.Region == memexport.SGMEM {
					require.Len(t, a.Paths, 1, "channel %d", a.Channel)
				}
			}
			require.Equal(t, 1, count[memexport.PMEM])
			require.LessOrEqual(t, count[memexport.DMEM], 1)
			require.Equal(t, 1, count[memexport.WMEM])
			require.Equal(t, 11, count[memexport.SGMEM])
		})
	}
}

func TestExportAll_explicitChannels(t *testing.T) {
	e := memexport.Exporter{Channels: channels(16)}
	abs, arts, err := e.ExportAll(context.Background(), textProgram{}, t.TempDir(), []int{2, 5})
	require.NoError(t, err)
	require.Len(t, arts, 4)
	require.Equal(t, []string{"pmem.mem", "sgmem_ch2.mem", "sgmem_ch5.mem", "wmem.mem"}, names(t, abs))
}

func TestExportAll_staleImages(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"pmem.mem", "wmem.mem", "wmem_3.mem", "sgmem_ch0_old.mem", "sgmem_ch10.mem"} {
		require.NoError(t, writeFile(filepath.Join(dir, n), "stale\n"))
	}
	var e memexport.Exporter
	_, arts, err := e.ExportAll(context.Background(), fileProgram{}, dir, []int{0})
	require.NoError(t, err)
	for _, a := range arts {
		if a.Region == memexport.WMEM {
			require.Equal(t, []string{filepath.Join(dir, "wmem_0.mem"), filepath.Join(dir, "wmem_1.mem")}, a.Paths)
		}
		if a.Region == memexport.SGMEM {
			require.Equal(t, []string{filepath.Join(dir, "sgmem_ch0.mem")}, a.Paths)
		}
	}
	require.Equal(t, []string{"pmem.mem", "sgmem_ch0.mem", "sgmem_ch10.mem", "wmem_0.mem", "wmem_1.mem"}, names(t, dir))

	// a stale image does not stand in for one the program failed to write
	_, _, err = e.ExportAll(context.Background(), fileProgram{skipWrite: true}, dir, []int{0})
	var ioe *memexport.IOError
	require.True(t, errors.As(err, &ioe), "got %v", err)
	require.Equal(t, memexport.PMEM, ioe.Region)
}

func TestExportAll_failures(t *testing.T) {
	var e memexport.Exporter
	_, _, err := e.ExportAll(context.Background(), noWMEM{}, t.TempDir(), []int{0})
	require.Error(t, err)
	require.Equal(t, memexport.ErrCapabilityAbsent, errors.Cause(err))

	dir := t.TempDir()
	_, arts, err := e.ExportAll(context.Background(), fileProgram{skipWrite: true}, dir, []int{0})
	var ioe *memexport.IOError
	require.True(t, errors.As(err, &ioe), "got %v", err)
	require.Equal(t, memexport.PMEM, ioe.Region)
	require.Empty(t, arts)
	require.Empty(t, names(t, dir), "export went on after a failure")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = e.ExportAll(ctx, textProgram{}, t.TempDir(), nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.yaml")
	require.NoError(t, os.WriteFile(src, []byte(`
digits: 4
pmem: [0x13, 0x6f]
wmem: [0xffff]
sgmem:
  1: [0xa, 0xb]
`), 0644))
	prog, err := memexport.LoadImage(src)
	require.NoError(t, err)
	_, ok := prog.(memexport.DMEMProgram)
	require.False(t, ok, "image without dmem advertises the capability")

	out := filepath.Join(dir, "mem")
	_, _, err = (&memexport.Exporter{}).ExportAll(context.Background(), prog, out, []int{0, 1})
	require.NoError(t, err)
	for name, want := range map[string]string{
		"pmem.mem":      "0013\n006f\n",
		"wmem.mem":      "ffff\n",
		"sgmem_ch0.mem": "",
		"sgmem_ch1.mem": "000a\n000b\n",
	} {
		data, err := os.ReadFile(filepath.Join(out, name))
		require.NoError(t, err)
		require.Equal(t, want, string(data), name)
	}

	require.NoError(t, os.WriteFile(src, []byte("emit_text: true\npmem: [1]\ndmem: [2]\nwmem: []\n"), 0644))
	prog, err = memexport.LoadImage(src)
	require.NoError(t, err)
	_, ok = prog.(memexport.DMEMProgram)
	require.True(t, ok)
	require.Equal(t, memexport.EmitsText, prog.PMEM().Convention())
}
