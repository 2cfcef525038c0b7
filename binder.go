package nativebind

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/ebitengine/purego"
)

// Kind describes one argument or return type of a native entry point.
type Kind uint8

const (
	Void Kind = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Uintptr
	// Pointer accepts Go pointers, unsafe.Pointer or uintptr, matching the
	// uintptr-for-pointer style used by the wrapper packages.
	Pointer
	// String is a NUL-terminated char* converted by the call layer.
	String
	Float32
	Float64
)

var kindNames = [...]string{
	Void:    "void",
	Bool:    "bool",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	Uint8:   "uint8",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Uint64:  "uint64",
	Uintptr: "uintptr",
	Pointer: "pointer",
	String:  "string",
	Float32: "float32",
	Float64: "float64",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

func (k Kind) accepts(t reflect.Type) bool {
	rk := t.Kind()
	switch k {
	case Bool:
		return rk == reflect.Bool
	case Int8:
		return rk == reflect.Int8
	case Int16:
		return rk == reflect.Int16
	case Int32:
		return rk == reflect.Int32
	case Int64:
		return rk == reflect.Int64 || (rk == reflect.Int && strconv.IntSize == 64)
	case Uint8:
		return rk == reflect.Uint8
	case Uint16:
		return rk == reflect.Uint16
	case Uint32:
		return rk == reflect.Uint32
	case Uint64:
		return rk == reflect.Uint64 || (rk == reflect.Uint && strconv.IntSize == 64)
	case Uintptr:
		return rk == reflect.Uintptr
	case Pointer:
		return rk == reflect.Pointer || rk == reflect.UnsafePointer || rk == reflect.Uintptr
	case String:
		return rk == reflect.String
	case Float32:
		return rk == reflect.Float32
	case Float64:
		return rk == reflect.Float64
	}
	return false
}

// integer reports whether values of k travel in a general-purpose register.
func (k Kind) integer() bool {
	return k != Float32 && k != Float64 && k != String
}

// Signature is the declared shape of one native entry point.
type Signature struct {
	Name string
	Args []Kind
	Ret  Kind
}

// Sig declares a call signature.
func Sig(name string, ret Kind, args ...Kind) Signature {
	return Signature{Name: name, Args: args, Ret: ret}
}

func (s Signature) String() string {
	args := make([]string, len(s.Args))
	for i, a := range s.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s %s(%s)", s.Ret, s.Name, strings.Join(args, ", "))
}

func (s Signature) equal(o Signature) bool {
	if s.Name != o.Name || s.Ret != o.Ret || len(s.Args) != len(o.Args) {
		return false
	}
	for i := range s.Args {
		if s.Args[i] != o.Args[i] {
			return false
		}
	}
	return true
}

// check verifies that the Go func type t can carry calls of s.
func (s Signature) check(t reflect.Type) error {
	if t.Kind() != reflect.Func {
		return fmt.Errorf("%w: %s is not a func type", ErrSignatureMismatch, t)
	}
	if t.IsVariadic() {
		return fmt.Errorf("%w: variadic func %s", ErrSignatureMismatch, t)
	}
	if t.NumIn() != len(s.Args) {
		return fmt.Errorf("%w: %s takes %d arguments, %s has %d",
			ErrSignatureMismatch, s, len(s.Args), t, t.NumIn())
	}
	for i, k := range s.Args {
		if k == Void || !k.accepts(t.In(i)) {
			return fmt.Errorf("%w: %s argument %d is %s, func has %s",
				ErrSignatureMismatch, s.Name, i, k, t.In(i))
		}
	}
	switch {
	case s.Ret == Void && t.NumOut() != 0:
		return fmt.Errorf("%w: %s returns void, func has %d results", ErrSignatureMismatch, s.Name, t.NumOut())
	case s.Ret != Void && t.NumOut() != 1:
		return fmt.Errorf("%w: %s returns %s, func has %d results", ErrSignatureMismatch, s.Name, s.Ret, t.NumOut())
	case s.Ret != Void && !s.Ret.accepts(t.Out(0)):
		return fmt.Errorf("%w: %s returns %s, func returns %s", ErrSignatureMismatch, s.Name, s.Ret, t.Out(0))
	}
	return nil
}

// Symbol is a resolved signature bound on a Library.
type Symbol struct {
	Signature Signature
	Addr      uintptr
	fn        reflect.Value
}

// Name returns the symbol name.
func (s *Symbol) Name() string { return s.Signature.Name }

// Func returns the typed callable registered for the symbol.
func (s *Symbol) Func() any { return s.fn.Interface() }

// Call invokes the symbol with raw register arguments. It is limited to
// signatures whose arguments and result are integer-class.
func (s *Symbol) Call(args ...uintptr) (uintptr, error) {
	if len(args) != len(s.Signature.Args) {
		return 0, fmt.Errorf("%w: %s takes %d arguments, got %d",
			ErrSignatureMismatch, s.Signature, len(s.Signature.Args), len(args))
	}
	for _, k := range s.Signature.Args {
		if !k.integer() {
			return 0, fmt.Errorf("%w: %s has %s argument; use the typed func", ErrSignatureMismatch, s.Signature, k)
		}
	}
	if !s.Signature.Ret.integer() {
		return 0, fmt.Errorf("%w: %s returns %s; use the typed func", ErrSignatureMismatch, s.Signature, s.Signature.Ret)
	}
	r1, _, _ := purego.SyscallN(s.Addr, args...)
	return r1, nil
}

// Symbol returns the binding attached under name.
func (l *Library) Symbol(name string) (*Symbol, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.symbols[name]
	return s, ok
}

// Symbols returns the names bound so far.
func (l *Library) Symbols() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.symbols))
	for name := range l.symbols {
		names = append(names, name)
	}
	return names
}

// Bind resolves sig on lib and returns a typed callable F. Repeated binds
// of the same signature and func type return the identical callable.
func Bind[F any](lib *Library, sig Signature) (F, error) {
	var fn F
	if err := BindAll(lib, Fn(&fn, sig)); err != nil {
		return fn, err
	}
	return fn, nil
}

// MustBind is Bind for package initialisation paths where a missing
// symbol is a programming error.
func MustBind[F any](lib *Library, sig Signature) F {
	fn, err := Bind[F](lib, sig)
	if err != nil {
		panic(err)
	}
	return fn
}

// Binding pairs a destination func variable with its signature.
type Binding struct {
	dst reflect.Value
	sig Signature
}

// Fn declares that the func variable at dst is bound to sig.
func Fn[F any](dst *F, sig Signature) Binding {
	return Binding{dst: reflect.ValueOf(dst).Elem(), sig: sig}
}

type pendingBind struct {
	b   Binding
	sym *Symbol
}

// BindAll binds every declaration or none: all symbols are resolved and
// type-checked before any is attached to lib or written to its
// destination.
func BindAll(lib *Library, bindings ...Binding) error {
	lib.mu.Lock()
	defer lib.mu.Unlock()

	pending := make([]pendingBind, 0, len(bindings))
	batch := make(map[string]*Symbol, len(bindings))
	for _, b := range bindings {
		t := b.dst.Type()
		if err := b.sig.check(t); err != nil {
			return &BindError{Library: lib.name, Symbol: b.sig.Name, Err: err}
		}
		s, ok := lib.symbols[b.sig.Name]
		if !ok {
			s, ok = batch[b.sig.Name]
		}
		if ok {
			if !s.Signature.equal(b.sig) || s.fn.Type() != t {
				return &BindError{Library: lib.name, Symbol: b.sig.Name,
					Err: fmt.Errorf("%w: already bound as %s (%s)", ErrSignatureMismatch, s.Signature, s.fn.Type())}
			}
			pending = append(pending, pendingBind{b: b, sym: s})
			continue
		}
		addr, err := lookupSymbol(lib.handle, b.sig.Name)
		if err != nil || addr == 0 {
			return &BindError{Library: lib.name, Symbol: b.sig.Name, Err: ErrSymbolNotFound}
		}
		fn, err := registerFunc(t, addr)
		if err != nil {
			return &BindError{Library: lib.name, Symbol: b.sig.Name, Err: err}
		}
		s = &Symbol{Signature: b.sig, Addr: addr, fn: fn}
		batch[b.sig.Name] = s
		pending = append(pending, pendingBind{b: b, sym: s})
	}

	for name, s := range batch {
		lib.symbols[name] = s
	}
	for _, p := range pending {
		p.b.dst.Set(p.sym.fn)
	}
	return nil
}

func registerFunc(t reflect.Type, addr uintptr) (fn reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSignatureMismatch, r)
		}
	}()
	ptr := reflect.New(t)
	purego.RegisterFunc(ptr.Interface(), addr)
	return ptr.Elem(), nil
}
