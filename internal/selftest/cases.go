package selftest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"testrig/internal/catalog"
	"testrig/internal/descriptor"
	"testrig/internal/lifecycle"
	"testrig/internal/lifecycle/httpclient"
	"testrig/internal/lifecycle/httpserver"
	"testrig/internal/lifecycle/sqlitedb"
	"testrig/internal/suite"
)

// Options wires the greeting domain into a catalog.
func Options() []catalog.Option {
	return []catalog.Option{
		catalog.WithModule(ModuleGreetings, GreetingsModule),
		catalog.WithModule(ModuleKV, KVModule),
		catalog.WithFakes(Fakes),
		catalog.WithExtensions(RegisterAudit),
		catalog.WithSQLiteSchema(Schema),
	}
}

type isolatedGreeting struct {
	Sut   *Greeter `rig:"sut"`
	Store Store    `rig:"fake"`
}

func (isolatedGreeting) ConfigureDescriptor(b *descriptor.Builder) {
	b.Scan(ModuleGreetings)
}

type containerGreeting struct {
	Sut   *Greeter `rig:"sut"`
	Store Store    `rig:"real"`
}

func (containerGreeting) ConfigureDescriptor(b *descriptor.Builder) {
	b.Scan(ModuleGreetings, ModuleKV).RequireContainer(ResourceAudit)
}

type sqlGreeting struct {
	Sut *Greeter `rig:"sut"`
}

func (sqlGreeting) ConfigureDescriptor(b *descriptor.Builder) {
	b.Scan(ModuleGreetings, ModuleKV).RequireContainer(catalog.ResourceSQLite)
}

type endToEndGreeting struct {
	Sut    http.Handler       `rig:"sut,deferred"`
	Store  Store              `rig:"fake"`
	Server *httpserver.Handle `rig:"real,server"`
	Client *httpclient.Client `rig:"real,client"`
}

func (endToEndGreeting) ConfigureDescriptor(b *descriptor.Builder) {
	b.Scan(ModuleGreetings).RequireContainer(ResourceAudit)
}

func expect(got, want string) error {
	if got != want {
		return fmt.Errorf("got %q, want %q", got, want)
	}
	return nil
}

// Cases returns the self-test cases of level.
func Cases(level lifecycle.Level) []suite.Case {
	switch level {
	case lifecycle.Isolated:
		return []suite.Case{{
			Name: "greets with a faked store",
			New:  func() any { return &isolatedGreeting{} },
			Body: func(ctx context.Context, rc *lifecycle.Context) error {
				test := rc.Test().(*isolatedGreeting)
				test.Store.Put("bob", "hi bob")
				if err := expect(test.Sut.Greet("bob"), "hi bob"); err != nil {
					return err
				}
				return expect(test.Sut.Greet("eve"), "hello eve")
			},
		}}
	case lifecycle.Container:
		return []suite.Case{{
			Name: "greets from the seeded store",
			New:  func() any { return &containerGreeting{} },
			Body: func(ctx context.Context, rc *lifecycle.Context) error {
				test := rc.Test().(*containerGreeting)
				audit, err := auditLog(ctx, rc)
				if err != nil {
					return err
				}
				audit.Record("greeting ada")
				return expect(test.Sut.Greet("ada"), "good day, ada")
			},
		}, {
			Name: "greets from sqlite",
			New:  func() any { return &sqlGreeting{} },
			Body: func(ctx context.Context, rc *lifecycle.Context) error {
				test := rc.Test().(*sqlGreeting)
				db, err := sqlitedb.DB(ctx, rc, catalog.ResourceSQLite)
				if err != nil {
					return err
				}
				g := &Greeter{store: NewSQLStore(db)}
				g.store.Put("ada", "salut ada")
				if err := expect(g.Greet("ada"), "salut ada"); err != nil {
					return err
				}
				return expect(test.Sut.Greet("ada"), "good day, ada")
			},
		}}
	case lifecycle.EndToEnd:
		return []suite.Case{{
			Name: "greets over http",
			New:  func() any { return &endToEndGreeting{} },
			Body: func(ctx context.Context, rc *lifecycle.Context) error {
				test := rc.Test().(*endToEndGreeting)
				test.Store.Put("cy", "hey cy")
				if _, err := call(ctx, test.Client, http.MethodPut, "/greetings/dee", "yo dee", http.StatusNoContent); err != nil {
					return err
				}
				body, err := call(ctx, test.Client, http.MethodGet, "/greet?name=cy", "", http.StatusOK)
				if err != nil {
					return err
				}
				if err := expect(body, "hey cy"); err != nil {
					return err
				}
				body, err = call(ctx, test.Client, http.MethodGet, "/greetings/dee", "", http.StatusOK)
				if err != nil {
					return err
				}
				return expect(body, "yo dee")
			},
		}}
	}
	return nil
}

func call(ctx context.Context, c *httpclient.Client, method, path, body string, status int) (string, error) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	resp, err := c.Do(ctx, method, path, r)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != status {
		return "", fmt.Errorf("%s %s: got status %d, want %d", method, path, resp.StatusCode, status)
	}
	return string(data), nil
}

func auditLog(ctx context.Context, rc *lifecycle.Context) (*AuditLog, error) {
	h, err := rc.Resource(ctx, ResourceAudit)
	if err != nil {
		return nil, err
	}
	log, ok := h.(*AuditLog)
	if !ok {
		return nil, fmt.Errorf("audit resource is %T", h)
	}
	return log, nil
}
