package runner_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/db47h/dacbench/runner"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// fakeVerilator parses -Mdir and --top-module and writes a simulator script
// whose body is sim.
const fakeVerilator = `#!/bin/sh
echo "$@" > "$ARGS_FILE"
while [ $# -gt 0 ]; do
	case "$1" in
	-Mdir) shift; mdir=$1 ;;
	--top-module) shift; top=$1 ;;
	esac
	shift
done
[ -n "$FAIL_BUILD" ] && exit $FAIL_BUILD
mkdir -p "$mdir"
printf '#!/bin/sh\n%s\n' "$SIM_BODY" > "$mdir/V$top"
chmod +x "$mdir/V$top"
`

const writeTable = `printf 'time,active_channel,actual_out,expected_out\n23250,0,0.0,0.0\n25575,0,0.0,0.000946044921875\n' > top_dac.csv`

type fixture struct {
	dir, build, work string
	src              []string
	tc               *runner.Toolchain
	args             string
}

func setup(t *testing.T, simBody string) *fixture {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	dir := t.TempDir()
	f := &fixture{
		dir:   dir,
		build: filepath.Join(dir, "build_tb"),
		work:  filepath.Join(dir, "work"),
		args:  filepath.Join(dir, "args"),
	}
	require.NoError(t, os.Mkdir(f.work, 0755))
	v := filepath.Join(dir, "verilator")
	require.NoError(t, os.WriteFile(v, []byte(fakeVerilator), 0755))
	for _, n := range []string{"dac_top_tb.sv", "dac_top.sv", "dac.sv"} {
		p := filepath.Join(dir, n)
		require.NoError(t, os.WriteFile(p, []byte("module x; endmodule\n"), 0644))
		f.src = append(f.src, p)
	}
	t.Setenv("ARGS_FILE", f.args)
	t.Setenv("SIM_BODY", simBody)
	f.tc = &runner.Toolchain{Verilator: v}
	return f
}

func TestBuildAndRun(t *testing.T) {
	f := setup(t, writeTable)
	ctx := context.Background()
	require.NoError(t, f.tc.Build(ctx, f.src, "dac_top_tb", f.build))

	args, err := os.ReadFile(f.args)
	require.NoError(t, err)
	want := "--binary -sv -Wall --trace-fst -Mdir " + f.build + " --top-module dac_top_tb " + strings.Join(f.src, " ")
	require.Equal(t, want, strings.TrimSpace(string(args)))

	r, err := f.tc.Run(ctx, f.build, "dac_top_tb", f.work, "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(f.work, "top_dac.csv"), r.Table)
	require.Equal(t, filepath.Join(f.build, "Vdac_top_tb"), r.Binary)

	var buf bytes.Buffer
	require.NoError(t, runner.Preview(&buf, r.Table, 1))
	require.Equal(t, "time,active_channel,actual_out,expected_out\n23250,0,0.0,0.0\n", buf.String())
}

func TestBuild_missingSource(t *testing.T) {
	f := setup(t, writeTable)
	src := append(f.src, filepath.Join(f.dir, "nope.sv"))
	err := f.tc.Build(context.Background(), src, "dac_top_tb", f.build)
	var be *runner.BuildError
	require.True(t, errors.As(err, &be), "got %v", err)
	require.True(t, os.IsNotExist(be.Err))
	_, err = os.Stat(f.args)
	require.True(t, os.IsNotExist(err), "toolchain invoked despite a missing source")
}

func TestBuild_failure(t *testing.T) {
	f := setup(t, writeTable)
	ctx := context.Background()
	require.NoError(t, f.tc.Build(ctx, f.src, "dac_top_tb", f.build))

	t.Setenv("FAIL_BUILD", "2")
	err := f.tc.Build(ctx, f.src, "dac_top_tb", f.build)
	var be *runner.BuildError
	require.True(t, errors.As(err, &be), "got %v", err)
	require.Equal(t, 2, be.Code)
	_, err = os.Stat(runner.BinaryPath(f.build, "dac_top_tb"))
	require.True(t, os.IsNotExist(err), "stale binary left after a failed build")

	_, err = f.tc.Run(ctx, f.build, "dac_top_tb", f.work, "")
	var me *runner.MissingArtifactError
	require.True(t, errors.As(err, &me), "got %v", err)
	require.Equal(t, runner.KindBinary, me.Kind)
}

func TestRun_failures(t *testing.T) {
	td := []struct {
		name string
		body string
		kind string
		code int
	}{
		{"no table", "exit 0", runner.KindTable, 0},
		{"exit code", "exit 5", "", 5},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			f := setup(t, d.body)
			ctx := context.Background()
			require.NoError(t, f.tc.Build(ctx, f.src, "dac_top_tb", f.build))
			_, err := f.tc.Run(ctx, f.build, "dac_top_tb", f.work, "")
			if d.kind != "" {
				var me *runner.MissingArtifactError
				require.True(t, errors.As(err, &me), "got %v", err)
				require.Equal(t, d.kind, me.Kind)
				return
			}
			var pe *runner.ProcessError
			require.True(t, errors.As(err, &pe), "got %v", err)
			require.Equal(t, d.code, pe.Code)
		})
	}
}

func TestRun_staleTable(t *testing.T) {
	f := setup(t, "exit 0")
	ctx := context.Background()
	require.NoError(t, f.tc.Build(ctx, f.src, "dac_top_tb", f.build))
	stale := filepath.Join(f.work, "top_dac.csv")
	require.NoError(t, os.WriteFile(stale, []byte("time,active_channel,actual_out,expected_out\n"), 0644))

	_, err := f.tc.Run(ctx, f.build, "dac_top_tb", f.work, "")
	var me *runner.MissingArtifactError
	require.True(t, errors.As(err, &me), "got %v", err)
	require.Equal(t, runner.KindTable, me.Kind)
	require.Equal(t, stale, me.Path)
	_, err = os.Stat(stale)
	require.True(t, os.IsNotExist(err), "stale table left in place")
}

func TestRun_timeout(t *testing.T) {
	f := setup(t, "exec sleep 10")
	ctx := context.Background()
	require.NoError(t, f.tc.Build(ctx, f.src, "dac_top_tb", f.build))
	f.tc.RunTimeout = 100 * time.Millisecond
	start := time.Now()
	_, err := f.tc.Run(ctx, f.build, "dac_top_tb", f.work, "")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestPreview(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.csv")
	var data strings.Builder
	data.WriteString("time,active_channel,actual_out,expected_out\n")
	for i := 0; i < 20; i++ {
		data.WriteString("1,0,0.0,0.0\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(data.String()), 0644))
	var buf bytes.Buffer
	require.NoError(t, runner.Preview(&buf, path, runner.PreviewRows))
	require.Equal(t, runner.PreviewRows+1, strings.Count(buf.String(), "\n"))

	require.Error(t, runner.Preview(&buf, path+".missing", 10))
}
