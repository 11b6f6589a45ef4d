package proxy

import (
	"fmt"
	"io"
	"net/http"
)

func registerBuiltins(b *Binder) {
	_ = Register(b, func(d *Deferred[http.Handler]) http.Handler { return handlerProxy{d} })
	_ = Register(b, func(d *Deferred[io.Closer]) io.Closer { return closerProxy{d} })
	_ = Register(b, func(d *Deferred[fmt.Stringer]) fmt.Stringer { return stringerProxy{d} })
}

type handlerProxy struct{ d *Deferred[http.Handler] }

func (p handlerProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.d.Delegate().ServeHTTP(w, r)
}

type closerProxy struct{ d *Deferred[io.Closer] }

func (p closerProxy) Close() error {
	c, err := p.d.Resolve()
	if err != nil {
		return err
	}
	return c.Close()
}

type stringerProxy struct{ d *Deferred[fmt.Stringer] }

func (p stringerProxy) String() string {
	return p.d.Delegate().String()
}
