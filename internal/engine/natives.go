package engine

import (
	"fmt"
	"math/big"
	"os"

	"ozvm/internal/serialize"
	"ozvm/internal/value"
)

// RegisterBuiltins installs the suggested native registry from spec.md §6:
// print, println, decrement, is_zero, multiply, get_label. Each receives
// its parameters as an Array the same way a compiled procedure would and
// communicates its result (when it has one) by unifying into the slot the
// caller placed at a known array index, never via a return value.
func RegisterBuiltins(e *Engine) {
	e.RegisterNative("print", nativePrint(false))
	e.RegisterNative("println", nativePrint(true))
	e.RegisterNative("decrement", nativeDecrement)
	e.RegisterNative("is_zero", nativeIsZero)
	e.RegisterNative("multiply", nativeMultiply)
	e.RegisterNative("get_label", nativeGetLabel)
}

// stdout lets tests capture native print output without swapping os.Stdout.
var stdout = os.Stdout

func nativePrint(newline bool) Native {
	return func(th *Thread, params value.Value) error {
		v, ok := params.ArrayGet(0)
		if !ok {
			return errArity("print", "expects params[0]")
		}
		text := serialize.Explore(v).Print(v)
		if newline {
			fmt.Fprintln(stdout, text)
		} else {
			fmt.Fprint(stdout, text)
		}
		return nil
	}
}

// nativeDecrement implements params(0)=n, params(1)=out: out gets unified
// with n-1.
func nativeDecrement(th *Thread, params value.Value) error {
	nV, ok := params.ArrayGet(0)
	if !ok {
		return errArity("decrement", "expects params[0]")
	}
	out, ok := params.ArrayGet(1)
	if !ok {
		return errArity("decrement", "expects params[1]")
	}
	n := value.Deref(nV)
	big1, ok := n.BigInt()
	if !ok {
		return errArity("decrement", "params[0] is not an integer")
	}
	return unifyOrFail(th, out, value.Integer(th.store, new(big.Int).Sub(big1, big.NewInt(1))))
}

// nativeIsZero implements params(0)=n, params(1)=out: out gets unified
// with the boolean n == 0.
func nativeIsZero(th *Thread, params value.Value) error {
	nV, ok := params.ArrayGet(0)
	if !ok {
		return errArity("is_zero", "expects params[0]")
	}
	out, ok := params.ArrayGet(1)
	if !ok {
		return errArity("is_zero", "expects params[1]")
	}
	n := value.Deref(nV)
	big1, ok := n.BigInt()
	if !ok {
		return errArity("is_zero", "params[0] is not an integer")
	}
	return unifyOrFail(th, out, value.Bool(big1.Sign() == 0))
}

// nativeMultiply implements params(0)=a, params(1)=b, params(2)=out.
func nativeMultiply(th *Thread, params value.Value) error {
	aV, ok := params.ArrayGet(0)
	if !ok {
		return errArity("multiply", "expects params[0]")
	}
	bV, ok := params.ArrayGet(1)
	if !ok {
		return errArity("multiply", "expects params[1]")
	}
	out, ok := params.ArrayGet(2)
	if !ok {
		return errArity("multiply", "expects params[2]")
	}
	a, ok := value.Deref(aV).BigInt()
	if !ok {
		return errArity("multiply", "params[0] is not an integer")
	}
	b, ok := value.Deref(bV).BigInt()
	if !ok {
		return errArity("multiply", "params[1] is not an integer")
	}
	return unifyOrFail(th, out, value.Integer(th.store, new(big.Int).Mul(a, b)))
}

// nativeGetLabel implements params(0)=record, params(1)=out.
func nativeGetLabel(th *Thread, params value.Value) error {
	recV, ok := params.ArrayGet(0)
	if !ok {
		return errArity("get_label", "expects params[0]")
	}
	out, ok := params.ArrayGet(1)
	if !ok {
		return errArity("get_label", "expects params[1]")
	}
	rec := value.Deref(recV)
	if !isRecordCapable(rec.Kind()) {
		return errArity("get_label", "params[0] is not record-capable")
	}
	return unifyOrFail(th, out, rec.Label())
}
