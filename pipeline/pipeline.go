// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package pipeline chains the validation stages: configuration commit, memory
// export, simulator build, simulator run and result preview. Stages run
// strictly in sequence and the first failure aborts the remaining ones.
//
package pipeline

import (
	"context"
	"io"

	"github.com/db47h/dacbench/devcfg"
	"github.com/db47h/dacbench/internal/ctxlog"
	"github.com/db47h/dacbench/memexport"
	"github.com/db47h/dacbench/runner"
	"github.com/pkg/errors"
)

// Stage identifies a pipeline stage.
//
type Stage string

// Pipeline stages, in order.
//
const (
	StageCommit  Stage = "commit"
	StageExport  Stage = "export"
	StageBuild   Stage = "build"
	StageRun     Stage = "run"
	StagePreview Stage = "preview"
	StageDone    Stage = "done"
)

// A Pipeline describes one validation run. A Pipeline owns its output
// directories for the duration of Execute: concurrent runs sharing them race.
//
type Pipeline struct {
	// Config, if set, has its pending edits committed before export and
	// provides the default SGMEM channel list.
	Config *devcfg.Store

	// Program is the compiled control program. If nil, export is skipped
	// and the images already in MemDir are used.
	Program  memexport.Program
	MemDir   string
	Channels []int

	Toolchain *runner.Toolchain
	Sources   []string
	Top       string
	BuildDir  string
	WorkDir   string
	Table     string

	// Preview receives the first PreviewRows rows of the result table. Nil
	// skips the preview.
	Preview     io.Writer
	PreviewRows int
}

// Result reports how far a run went.
//
type Result struct {
	Stage     Stage // failed stage, or StageDone
	MemDir    string
	Artifacts []memexport.Artifact
	Run       *runner.Run
}

// Execute runs the pipeline. On failure, the returned Result is non nil and
// its Stage is the stage that failed.
//
func (p *Pipeline) Execute(ctx context.Context) (*Result, error) {
	log := ctxlog.FromContext(ctx)
	res := &Result{}

	res.Stage = StageCommit
	if p.Config != nil && p.Config.Dirty() {
		if err := p.Config.Commit(); err != nil {
			return res, errors.Wrap(err, "commit device config")
		}
		log.Info("device config committed", "path", p.Config.Path())
	}

	res.Stage = StageExport
	if p.Program != nil {
		e := memexport.Exporter{}
		if p.Config != nil {
			e.Channels = p.Config
		}
		dir, arts, err := e.ExportAll(ctx, p.Program, p.MemDir, p.Channels)
		res.MemDir, res.Artifacts = dir, arts
		if err != nil {
			return res, err
		}
	} else {
		log.Info("no compiled program, using existing memory images", "dir", p.MemDir)
	}

	tc := p.Toolchain
	if tc == nil {
		tc = &runner.Toolchain{}
	}
	res.Stage = StageBuild
	if err := tc.Build(ctx, p.Sources, p.Top, p.BuildDir); err != nil {
		return res, err
	}

	res.Stage = StageRun
	r, err := tc.Run(ctx, p.BuildDir, p.Top, p.WorkDir, p.Table)
	if err != nil {
		return res, err
	}
	res.Run = r
	log.Info("result table found", "path", r.Table)

	res.Stage = StagePreview
	if p.Preview != nil {
		if err := runner.Preview(p.Preview, r.Table, p.PreviewRows); err != nil {
			return res, err
		}
	}
	res.Stage = StageDone
	return res, nil
}
