package loader

import (
	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/ahdg6/TypeWriter/internal/ir"
)

// ParseCUE compiles a CUE entry file and extracts the entry struct.
// Each field label under entry is the entry id.
func ParseCUE(data []byte, filename string) ([]ir.Entry, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, cueLoadError(ErrCodeBuild, filename, err)
	}

	entriesVal := value.LookupPath(cue.ParsePath("entry"))
	if !entriesVal.Exists() {
		return nil, nil
	}

	iter, err := entriesVal.Fields()
	if err != nil {
		return nil, cueLoadError(ErrCodeEntry, filename, err)
	}

	var entries []ir.Entry
	for iter.Next() {
		e, err := compileEntry(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, cueLoadError(ErrCodeEntry, filename, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// compileEntry reads one entry struct field by field.
func compileEntry(id string, v cue.Value) (ir.Entry, error) {
	e := ir.Entry{ID: id}
	var err error

	if e.Name, err = optionalString(v, "name"); err != nil {
		return e, err
	}
	kind, err := optionalString(v, "kind")
	if err != nil {
		return e, err
	}
	e.Kind = ir.EntryKind(kind)

	if e.Triggers, err = stringList(v, "triggers"); err != nil {
		return e, err
	}

	if err := eachListElem(v, "criteria", func(elem cue.Value) error {
		fact, op, value, err := factOp(elem)
		if err != nil {
			return err
		}
		parsed, err := ir.ParseCriteriaOperator(op)
		if err != nil {
			return posError(elem, err)
		}
		e.Criteria = append(e.Criteria, ir.Criteria{Fact: fact, Operator: parsed, Value: value})
		return nil
	}); err != nil {
		return e, err
	}

	if err := eachListElem(v, "modifiers", func(elem cue.Value) error {
		fact, op, value, err := factOp(elem)
		if err != nil {
			return err
		}
		parsed, err := ir.ParseModifierOperator(op)
		if err != nil {
			return posError(elem, err)
		}
		e.Modifiers = append(e.Modifiers, ir.Modifier{Fact: fact, Operator: parsed, Value: value})
		return nil
	}); err != nil {
		return e, err
	}

	if actionVal := v.LookupPath(cue.ParsePath("action")); actionVal.Exists() {
		spec := &ir.ActionSpec{}
		if spec.Kind, err = optionalString(actionVal, "kind"); err != nil {
			return e, err
		}
		if paramsVal := actionVal.LookupPath(cue.ParsePath("params")); paramsVal.Exists() {
			if err := paramsVal.Decode(&spec.Params); err != nil {
				return e, err
			}
		}
		e.Action = spec
	}

	if dialogueVal := v.LookupPath(cue.ParsePath("dialogue")); dialogueVal.Exists() {
		spec := &ir.DialogueSpec{}
		if spec.Speaker, err = optionalString(dialogueVal, "speaker"); err != nil {
			return e, err
		}
		if spec.Text, err = optionalString(dialogueVal, "text"); err != nil {
			return e, err
		}
		if durVal := dialogueVal.LookupPath(cue.ParsePath("duration")); durVal.Exists() {
			d, err := durVal.Int64()
			if err != nil {
				return e, err
			}
			spec.Duration = int(d)
		}
		e.Dialogue = spec
	}

	return e, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	return fv.String()
}

func stringList(v cue.Value, field string) ([]string, error) {
	var out []string
	err := eachListElem(v, field, func(elem cue.Value) error {
		s, err := elem.String()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

func eachListElem(v cue.Value, field string, fn func(cue.Value) error) error {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil
	}
	iter, err := fv.List()
	if err != nil {
		return err
	}
	for iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

// factOp reads the {fact, operator, value} shape shared by criteria and
// modifiers.
func factOp(v cue.Value) (fact, op string, value int, err error) {
	if fact, err = optionalString(v, "fact"); err != nil {
		return
	}
	if op, err = optionalString(v, "operator"); err != nil {
		return
	}
	if vv := v.LookupPath(cue.ParsePath("value")); vv.Exists() {
		var n int64
		if n, err = vv.Int64(); err != nil {
			return
		}
		value = int(n)
	}
	return
}

// cuePosError carries a CUE source position for an otherwise plain error.
type cuePosError struct {
	err error
	v   cue.Value
}

func (e *cuePosError) Error() string { return e.err.Error() }
func (e *cuePosError) Unwrap() error { return e.err }

func posError(v cue.Value, err error) error {
	return &cuePosError{err: err, v: v}
}

// cueLoadError converts a CUE error to a LoadError, keeping the first
// position CUE reports.
func cueLoadError(code, filename string, err error) *LoadError {
	le := &LoadError{Code: code, File: filename, Message: err.Error()}
	if pe, ok := err.(*cuePosError); ok {
		le.Pos = pe.v.Pos()
		return le
	}
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		le.Message = errs[0].Error()
		if positions := cueerrors.Positions(errs[0]); len(positions) > 0 {
			le.Pos = positions[0]
		}
	}
	return le
}
