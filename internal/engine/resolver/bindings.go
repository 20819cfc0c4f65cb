package resolver

// CallBinding is the callee a local name was last assigned from. It is either
// a DirectCall or a ReflectedCall built with getattr.
type CallBinding interface {
	// Name is the dotted callee the binding stands for.
	Name() string
	isCallBinding()
}

// DirectCall records `x = some.callee(...)`.
type DirectCall struct {
	Callee string
}

func (c DirectCall) Name() string { return c.Callee }
func (DirectCall) isCallBinding() {}

// ReflectedCall records `x = getattr(module, attr)` where both operands were
// resolvable to names when the assignment was walked.
type ReflectedCall struct {
	Module string
	Attr   string
}

func (c ReflectedCall) Name() string { return c.Module + "." + c.Attr }
func (ReflectedCall) isCallBinding() {}

// Bindings are the per-unit name maps. Keys are local identifiers; the last
// assignment in document order wins. Bindings are read-only once Resolve
// returns and may be shared between goroutines.
type Bindings struct {
	// Imports maps an import alias or bound module name to its origin.
	Imports map[string]string
	// Instances maps `x` in `x = pkg.Class(...)` to the class name.
	Instances map[string]string
	// ClassObjects maps `x` to the callee of the first call on the
	// right-hand side of its last assignment.
	ClassObjects map[string]CallBinding
	// Strings maps names assigned a string literal to the literal value.
	Strings map[string]string
}

// NewBindings returns empty, non-nil maps.
func NewBindings() *Bindings {
	return &Bindings{
		Imports:      make(map[string]string),
		Instances:    make(map[string]string),
		ClassObjects: make(map[string]CallBinding),
		Strings:      make(map[string]string),
	}
}

// Reflected returns the getattr-built bindings.
func (b *Bindings) Reflected() map[string]ReflectedCall {
	out := make(map[string]ReflectedCall)
	if b == nil {
		return out
	}
	for name, binding := range b.ClassObjects {
		if reflected, ok := binding.(ReflectedCall); ok {
			out[name] = reflected
		}
	}
	return out
}
