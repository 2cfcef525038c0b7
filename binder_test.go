package nativebind

import (
	"errors"
	"reflect"
	"runtime"
	"testing"
	"unsafe"
)

func TestSignatureCheck(t *testing.T) {
	tests := []struct {
		name    string
		sig     Signature
		fn      any
		wantErr bool
	}{
		{"void", Sig("f", Void), func() {}, false},
		{"ints", Sig("f", Int32, Int32, Uint8), func(int32, uint8) int32 { return 0 }, false},
		{"pointer as uintptr", Sig("f", Pointer, Pointer), func(uintptr) uintptr { return 0 }, false},
		{"pointer as unsafe", Sig("f", Void, Pointer), func(unsafe.Pointer) {}, false},
		{"pointer as typed", Sig("f", Void, Pointer), func(*int32) {}, false},
		{"string", Sig("f", Uintptr, String), func(string) uintptr { return 0 }, false},
		{"floats", Sig("f", Float64, Float32), func(float32) float64 { return 0 }, false},
		{"bool", Sig("f", Bool, Int64), func(int64) bool { return false }, false},
		{"arity", Sig("f", Void, Int32), func() {}, true},
		{"arg kind", Sig("f", Void, Int32), func(int64) {}, true},
		{"void arg", Sig("f", Void, Void), func(int32) {}, true},
		{"missing result", Sig("f", Int32), func() {}, true},
		{"extra result", Sig("f", Void), func() int32 { return 0 }, true},
		{"result kind", Sig("f", Int32), func() uint32 { return 0 }, true},
		{"variadic", Sig("f", Void, Int32), func(...int32) {}, true},
		{"not a func", Sig("f", Void), 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sig.check(reflect.TypeOf(tt.fn))
			if tt.wantErr {
				if !errors.Is(err, ErrSignatureMismatch) {
					t.Errorf("check error = %v, want ErrSignatureMismatch", err)
				}
				return
			}
			if err != nil {
				t.Errorf("check: %v", err)
			}
		})
	}
}

func TestSignatureString(t *testing.T) {
	got := Sig("SDL_RWFromFile", Pointer, String, String).String()
	want := "pointer SDL_RWFromFile(string, string)"
	if got != want {
		t.Errorf("String = %q, want %q", got, want)
	}
	if got := Kind(200).String(); got != "Kind(200)" {
		t.Errorf("Kind(200).String = %q", got)
	}
}

func TestBindStrlen(t *testing.T) {
	lib := resolveLibc(t)
	strlen, err := Bind[func(string) uintptr](lib, Sig("strlen", Uintptr, String))
	if err != nil {
		t.Fatalf("Bind strlen: %v", err)
	}
	for _, s := range []string{"", "a", "nativebind"} {
		if got := strlen(s); got != uintptr(len(s)) {
			t.Errorf("strlen(%q) = %d, want %d", s, got, len(s))
		}
	}
	if names := lib.Symbols(); !reflect.DeepEqual(names, []string{"strlen"}) {
		t.Errorf("Symbols = %v, want [strlen]", names)
	}
}

func TestBindIdempotent(t *testing.T) {
	lib := resolveLibc(t)
	sig := Sig("strlen", Uintptr, String)

	if _, err := Bind[func(string) uintptr](lib, sig); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	first, ok := lib.Symbol("strlen")
	if !ok {
		t.Fatal("strlen not attached after Bind")
	}
	if _, err := Bind[func(string) uintptr](lib, Sig("strlen", Uintptr, String)); err != nil {
		t.Fatalf("second Bind: %v", err)
	}
	second, _ := lib.Symbol("strlen")
	if first != second {
		t.Error("rebinding the same signature replaced the symbol")
	}

	_, err := Bind[func(string) int32](lib, Sig("strlen", Int32, String))
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("conflicting Bind error = %v, want ErrSignatureMismatch", err)
	}
	_, err = Bind[func(unsafe.Pointer) uintptr](lib, Sig("strlen", Uintptr, Pointer))
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("Bind with different arg kinds error = %v, want ErrSignatureMismatch", err)
	}
	if got, _ := lib.Symbol("strlen"); got != first {
		t.Error("failed rebind changed the attached symbol")
	}
}

func TestBindAllAtomic(t *testing.T) {
	lib := resolveLibc(t)

	var strlen func(string) uintptr
	var missing func()
	err := BindAll(lib,
		Fn(&strlen, Sig("strlen", Uintptr, String)),
		Fn(&missing, Sig("nativebind_no_such_symbol", Void)),
	)
	if !errors.Is(err, ErrSymbolNotFound) {
		t.Fatalf("BindAll error = %v, want ErrSymbolNotFound", err)
	}
	var be *BindError
	if !errors.As(err, &be) || be.Symbol != "nativebind_no_such_symbol" {
		t.Errorf("BindAll error = %#v, want *BindError for the missing symbol", err)
	}
	if strlen != nil || missing != nil {
		t.Error("BindAll wrote a destination despite failing")
	}
	if _, ok := lib.Symbol("strlen"); ok {
		t.Error("BindAll attached strlen despite failing")
	}
}

func TestBindAllDuplicateInBatch(t *testing.T) {
	lib := resolveLibc(t)

	var a, b func(string) uintptr
	if err := BindAll(lib,
		Fn(&a, Sig("strlen", Uintptr, String)),
		Fn(&b, Sig("strlen", Uintptr, String)),
	); err != nil {
		t.Fatalf("BindAll: %v", err)
	}
	if a == nil || b == nil || a("abc") != 3 || b("abcd") != 4 {
		t.Error("duplicate bindings in one batch not both usable")
	}

	var c func(string) uintptr
	var d func(string) int32
	err := BindAll(lib,
		Fn(&c, Sig("strcmp", Uintptr, String)),
		Fn(&d, Sig("strcmp", Int32, String)),
	)
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("conflicting batch error = %v, want ErrSignatureMismatch", err)
	}
	if c != nil || d != nil {
		t.Error("conflicting batch wrote a destination")
	}
}

func TestSymbolCall(t *testing.T) {
	lib := resolveLibc(t)
	if _, err := Bind[func(int32) int32](lib, Sig("toupper", Int32, Int32)); err != nil {
		t.Fatalf("Bind toupper: %v", err)
	}
	sym, _ := lib.Symbol("toupper")
	if sym.Name() != "toupper" || sym.Addr == 0 {
		t.Errorf("Symbol = %+v", sym)
	}
	got, err := sym.Call('a')
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if byte(got) != 'A' {
		t.Errorf("toupper('a') = %q, want 'A'", byte(got))
	}
	if _, err := sym.Call(); !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("Call arity error = %v, want ErrSignatureMismatch", err)
	}
	if f, ok := sym.Func().(func(int32) int32); !ok || f('b') != 'B' {
		t.Error("Func did not return the typed callable")
	}

	if _, err := Bind[func(string) uintptr](lib, Sig("strlen", Uintptr, String)); err != nil {
		t.Fatalf("Bind strlen: %v", err)
	}
	strlen, _ := lib.Symbol("strlen")
	if _, err := strlen.Call(0); !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("Call with a string argument error = %v, want ErrSignatureMismatch", err)
	}
}

func TestBindPointerArgument(t *testing.T) {
	lib := resolveLibc(t)
	strlen, err := Bind[func(unsafe.Pointer) uintptr](lib, Sig("strlen", Uintptr, Pointer))
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	buf := CString("pointer")
	if got := strlen(unsafe.Pointer(&buf[0])); got != 7 {
		t.Errorf("strlen = %d, want 7", got)
	}
	runtime.KeepAlive(buf)
}

func TestMustBindPanics(t *testing.T) {
	lib := resolveLibc(t)
	defer func() {
		if recover() == nil {
			t.Error("MustBind did not panic for a missing symbol")
		}
	}()
	MustBind[func()](lib, Sig("nativebind_no_such_symbol", Void))
}
