// Package proxy creates deferred-binding stand-ins: values of a contract type
// whose every call is forwarded to whatever a supplier yields at call time.
//
// Go cannot synthesise interface implementations at run time, so each
// interface contract needs a small forwarding wrapper registered with
// Register. Func contracts need none; they are forwarded with reflect.MakeFunc.
//
//	type greeterProxy struct{ d *proxy.Deferred[Greeter] }
//
//	func (p greeterProxy) Greet(name string) string {
//		return p.d.Delegate().Greet(name)
//	}
//
//	proxy.Register(binder, func(d *proxy.Deferred[Greeter]) Greeter {
//		return greeterProxy{d}
//	})
//
// The supplier is never cached. A call made while the supplier has nothing to
// offer fails with a *DispatchError: methods with an error result return it
// through Resolve, others panic with it through Delegate.
package proxy
