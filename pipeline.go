package xlpatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/javajack/xlpatch/internal/ctxlog"
)

// Request is one edit of one sheet.
type Request struct {
	InputPath  string
	OutputPath string
	// OriginalPath is the pristine document. Repair copies entries from it
	// and some strategies rebuild from it. Defaults to InputPath.
	OriginalPath string
	Sheet        string
	Changes      ChangeSet
}

func (r Request) originalPath() string {
	if r.OriginalPath != "" {
		return r.OriginalPath
	}
	return r.InputPath
}

// Editor applies change sets to xlsx documents. It is safe for concurrent
// use by requests on different documents.
type Editor struct {
	opts *Options
	host *hostCapability
}

// NewEditor creates an Editor with the given options.
func NewEditor(opts ...Option) *Editor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Editor{opts: o, host: &hostCapability{bridge: o.host}}
}

// Apply runs req with a default Editor.
func Apply(ctx context.Context, req Request, opts ...Option) Result {
	return NewEditor(opts...).Apply(ctx, req)
}

// Apply runs one request to completion. The output either exists fully
// repaired or is not written at all.
func (e *Editor) Apply(ctx context.Context, req Request) Result {
	if e.opts.logger != nil {
		ctx = ctxlog.WithLogger(ctx, e.opts.logger)
	}
	log := ctxlog.FromContext(ctx).With("sheet", req.Sheet, "input", req.InputPath)

	res := e.apply(ctxlog.WithLogger(ctx, log), req)
	if res.Success {
		log.Info("request applied", "strategy", res.Strategy, "method", res.Method, "output", res.OutputPath)
	} else {
		log.Error("request rejected", "strategy", res.Strategy, "error", res.Error,
			"requiresHostApplication", res.RequiresHostApplication)
	}
	return res
}

func (e *Editor) apply(ctx context.Context, req Request) Result {
	if err := validateRequest(req); err != nil {
		return rejected("", err)
	}
	if req.Changes.Path == PathHost {
		return e.viaHost(ctx, req, "", nil)
	}

	ex, st, err := e.prepare(ctx, req)
	if err != nil {
		var wi *WriterIncompatibilityError
		if errors.As(err, &wi) {
			return e.viaHost(ctx, req, "", err)
		}
		return rejected("", err)
	}
	defer ex.doc.Close()

	if err := runSteps(ctx, st.steps(ex)); err != nil {
		return rejected(st.name(), err)
	}
	if err := e.publish(ctx, req, ex); err != nil {
		return rejected(st.name(), err)
	}
	return applied(req.OutputPath, MethodInProcess, st.name())
}

// prepare opens the working document, classifies the change set and loads
// the table definitions the plan adjusts.
func (e *Editor) prepare(ctx context.Context, req Request) (*execution, strategy, error) {
	log := ctxlog.FromContext(ctx)

	doc, err := OpenDocument(req.InputPath, req.Sheet)
	if err != nil {
		return nil, nil, err
	}
	rows, err := doc.DataRowCount()
	if err != nil {
		doc.Close()
		return nil, nil, err
	}
	cl, err := Classify(req.Changes, rows)
	if err != nil {
		doc.Close()
		return nil, nil, err
	}

	ex := &execution{opts: e.opts, doc: doc, changes: req.Changes}
	st := strategyFor(cl.Kind, req.Changes)

	sourcePath := req.InputPath
	if st.source(ex) == SourceOriginal && req.originalPath() != req.InputPath {
		doc.Close()
		sourcePath = req.originalPath()
		if ex.doc, err = OpenDocument(sourcePath, req.Sheet); err != nil {
			return nil, nil, err
		}
		if rows, err = ex.doc.DataRowCount(); err != nil {
			ex.doc.Close()
			return nil, nil, err
		}
		if cl, err = Classify(req.Changes, rows); err != nil {
			ex.doc.Close()
			return nil, nil, err
		}
	}
	ex.originalRows = rows
	ex.mapping = cl.Mapping
	ex.rowStyles = cl.rowStyles
	ex.shift = req.Changes.ColumnShift()

	src, err := LoadArchive(sourcePath)
	if err != nil {
		ex.doc.Close()
		return nil, nil, &WriterIncompatibilityError{Path: sourcePath, Err: err}
	}
	tables, err := ReadTables(src, req.Sheet)
	if err != nil {
		log.Warn("table definitions unavailable", "skip", "tables", "error", err)
	}
	ex.baseTables = tables
	ex.tables = append([]TableDefinition(nil), tables...)
	if ref, ok, err := SheetAutoFilter(src, req.Sheet); err == nil && ok {
		ex.sheetFilter = &ref
	}

	log.Info("strategy selected", "kind", cl.Kind.String(), "strategy", st.name(),
		"source", st.source(ex).String(), "rows", rows)
	return ex, st, nil
}

// publish serializes the document into a scratch directory, repairs it
// against the original and renames it into place.
func (e *Editor) publish(ctx context.Context, req Request, ex *execution) error {
	log := ctxlog.FromContext(ctx)

	scratch, err := os.MkdirTemp(e.opts.tempDir, "xlpatch-*")
	if err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	staged := filepath.Join(scratch, "staged.xlsx")
	if err := ex.doc.SaveAs(staged); err != nil {
		return err
	}
	out, err := os.ReadFile(staged)
	if err != nil {
		return fmt.Errorf("read staged output: %w", err)
	}

	if e.opts.repair {
		original, err := LoadArchive(req.originalPath())
		if err != nil {
			return err
		}
		archive, err := ReadArchive(out)
		if err != nil {
			return err
		}
		report := Repair(archive, original, ex.tableEdits())
		for _, f := range report.Failures {
			log.Warn("repair skipped entry", "skip", "repair", "entry", f.Entry, "error", f.Err)
		}
		log.Info("repair finished", "copied", len(report.Copied), "patched", len(report.Patched),
			"unchanged", len(report.Unchanged), "fixed", len(report.Fixed))
		if out, err = archive.Bytes(); err != nil {
			return err
		}
	}
	return writeFileAtomic(req.OutputPath, out)
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".xlpatch-*.xlsx")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("publish output %q: %w", path, err)
	}
	return nil
}

// viaHost hands the request to the host application bridge. cause is the
// in-process failure that led here, if any.
func (e *Editor) viaHost(ctx context.Context, req Request, strategyName string, cause error) Result {
	if !e.host.check(ctx) {
		if cause == nil {
			cause = &WriterIncompatibilityError{Path: req.InputPath, Err: errors.New("host application requested but not available")}
		}
		return rejected(strategyName, cause)
	}
	ctxlog.FromContext(ctx).Info("delegating to host application", "cause", errString(cause))
	if err := e.host.bridge.Apply(ctx, req); err != nil {
		return rejected(MethodHost, fmt.Errorf("host application: %w", err))
	}
	return applied(req.OutputPath, MethodHost, MethodHost)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// PlanRequest classifies req and returns the plan Apply would run, without
// writing anything.
func (e *Editor) PlanRequest(ctx context.Context, req Request) (Plan, error) {
	if err := validateRequest(req); err != nil {
		return Plan{}, err
	}
	ex, st, err := e.prepare(ctx, req)
	if err != nil {
		return Plan{}, err
	}
	defer ex.doc.Close()

	p := Plan{Strategy: st.name(), Source: st.source(ex)}
	cl, err := Classify(req.Changes, ex.originalRows)
	if err != nil {
		return Plan{}, err
	}
	p.Kind = cl.Kind
	for _, s := range st.steps(ex) {
		p.Steps = append(p.Steps, s.name)
	}
	return p, nil
}
