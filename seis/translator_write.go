package seis

import (
	"cmp"
	"fmt"
	"slices"
)

// writeBlock is the traces buffered for one inline (or one 2D window).
// Once prepared, traces holds the sorted, deduplicated and regularized
// sequence still to be encoded.
type writeBlock struct {
	traces   []*Trace
	key      int
	prepared bool
}

// InitWrite creates the storage for conn. The first trace to be written
// fixes the sampling and component count of the dataset; it is not written
// by this call.
func (t *Translator) InitWrite(conn Conn, first *Trace) error {
	if t.state != StateClosed {
		return t.wrongState("InitWrite")
	}
	if first == nil || first.NrComponents() == 0 || first.NrSamples() == 0 {
		return fmt.Errorf("%w: first trace has no samples", ErrConfiguration)
	}

	comps := t.opts.components
	if len(comps) != first.NrComponents() {
		if len(comps) > 0 {
			t.log.Warn("component descriptors ignored", "descriptors", len(comps),
				"components", first.NrComponents())
		}
		comps = DefaultComponents(first.NrComponents())
		for i := range comps {
			comps[i].DataChar = t.opts.dataChar
		}
	}

	info := &StorageInfo{
		Components:   slices.Clone(comps),
		Sampling:     first.Header.Sampling,
		NrSamples:    first.NrSamples(),
		TracesPerPos: 1,
		Is2D:         conn.Is2D,
		IsPrestack:   conn.IsPrestack,
		Transform:    t.opts.transform,
		Text:         t.opts.text,
	}
	if info.Transform == nil && t.opts.geometry != nil {
		tr := t.opts.geometry.Transform()
		info.Transform = &tr
	}
	if err := t.codec.StartWrite(conn, info); err != nil {
		_ = t.codec.Close()
		return err
	}

	t.conn = conn
	t.info = info
	t.wcomps = info.Components
	t.wsampling = info.Sampling
	t.wnrSamples = info.NrSamples
	t.declared = t.opts.declared
	if t.declared == nil && t.opts.geometry != nil {
		hs := t.opts.geometry.Ranges()
		t.declared = &hs
	}
	t.block = writeBlock{}
	t.hasLast, t.lineDir, t.written = false, 0, 0
	t.needConsistency, t.tailFilled = false, false
	t.state = StateWriteInitialized

	t.log.Debug("opened for write", "path", conn.Path, "components", len(comps),
		"samples", info.NrSamples, "regularize", t.regularizing())
	return nil
}

func (t *Translator) regularizing() bool {
	return t.opts.regularize && t.opts.enforceRegular && t.declared != nil &&
		!t.info.Is2D && !t.info.IsPrestack
}

// Write buffers tr. A new inline, or a full 2D window, first flushes the
// traces buffered so far. The trace is copied.
func (t *Translator) Write(tr *Trace) error {
	if !t.state.writing() {
		return t.wrongState("Write")
	}
	if tr.NrComponents() != len(t.wcomps) || tr.NrSamples() != t.wnrSamples {
		return fmt.Errorf("%w: trace is %dx%d, dataset is %dx%d", ErrConfiguration,
			tr.NrComponents(), tr.NrSamples(), len(t.wcomps), t.wnrSamples)
	}

	t.noteDirection(tr.Header.Pos.Inl)
	if t.block.prepared || t.needConsistency || t.blockDone(tr) {
		if err := t.flushBlock(); err != nil {
			return err
		}
	}
	if len(t.block.traces) == 0 {
		t.block.key = tr.Header.Pos.Inl
	}
	t.block.traces = append(t.block.traces, tr.Clone())
	t.state = StateAccumulating
	return nil
}

// noteDirection fixes the inline write direction at the first line change.
func (t *Translator) noteDirection(line int) {
	if t.lineDir != 0 {
		return
	}
	prev, ok := t.lastLine, t.hasLast
	if len(t.block.traces) > 0 {
		prev, ok = t.block.key, true
	}
	if ok && line != prev {
		t.lineDir = cmp.Compare(line, prev)
	}
}

// direction returns 1 when inlines are written ascending and -1 when
// descending. Until a second line shows up, ascending is assumed.
func (t *Translator) direction() int {
	if t.lineDir == 0 {
		return 1
	}
	return t.lineDir
}

func (t *Translator) blockDone(tr *Trace) bool {
	if len(t.block.traces) == 0 {
		return false
	}
	if t.info.Is2D {
		return len(t.block.traces) >= t.opts.window2D || tr.Header.Pos.Inl != t.block.key
	}
	return tr.Header.Pos.Inl != t.block.key
}

// Flush writes the buffered traces.
func (t *Translator) Flush() error {
	if !t.state.writing() {
		return t.wrongState("Flush")
	}
	return t.flushBlock()
}

// flushBlock encodes the buffered block and commits it. When encoding
// fails, traces already encoded stay written and the rest stays buffered;
// the next flush resumes with that remainder.
func (t *Translator) flushBlock() error {
	if !t.block.prepared && len(t.block.traces) > 0 {
		t.block.traces = t.prepareBlock(t.block.traces)
		t.block.prepared = true
	}
	for len(t.block.traces) > 0 {
		tr := t.block.traces[0]
		tr.Header.SeqNr = t.written + 1
		if err := t.codec.EncodeTrace(tr); err != nil {
			t.log.Warn("flush interrupted", "remaining", len(t.block.traces), "error", err.Error())
			return err
		}
		t.block.traces[0] = nil
		t.block.traces = t.block.traces[1:]
		t.written++
		t.hasLast, t.lastLine = true, tr.Header.Pos.Inl
		t.needConsistency = true
	}
	t.block = writeBlock{}

	if !t.needConsistency {
		return nil
	}
	if err := t.codec.EnsureConsistency(); err != nil {
		return err
	}
	t.needConsistency = false
	return nil
}

func (t *Translator) closeWrite() error {
	if err := t.flushBlock(); err != nil {
		return err
	}
	if t.regularizing() && t.hasLast && !t.tailFilled {
		for {
			line, ok := t.nextDeclaredLine(t.lastLine)
			if !ok {
				break
			}
			t.block = writeBlock{traces: t.fillerLine(line), key: line, prepared: true}
			if err := t.flushBlock(); err != nil {
				return err
			}
		}
		t.tailFilled = true
	}
	if err := t.codec.Finalize(); err != nil {
		return err
	}
	t.state = StateClosed
	t.log.Info("dataset written", "path", t.conn.Path, "traces", t.written)
	return t.codec.Close()
}
