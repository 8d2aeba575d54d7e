package auth

import (
	"context"
	"fmt"

	"github.com/jonwraymond/vaultboot/errdefs"
	"github.com/jonwraymond/vaultboot/transport"
)

// recordedCall captures a request issued through fakeCaller.
type recordedCall struct {
	Method string
	Path   string
	Token  string
	Body   any
}

// fakeCaller answers requests from a table keyed by "METHOD path".
type fakeCaller struct {
	responses map[string]map[string]any
	errs      map[string]error
	calls     []recordedCall
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{
		responses: make(map[string]map[string]any),
		errs:      make(map[string]error),
	}
}

func (f *fakeCaller) on(method, path string, data map[string]any) *fakeCaller {
	f.responses[method+" "+path] = data
	return f
}

func (f *fakeCaller) fail(method, path string, err error) *fakeCaller {
	f.errs[method+" "+path] = err
	return f
}

func (f *fakeCaller) Call(_ context.Context, method, path string, opts transport.Options) (*transport.Response, error) {
	f.calls = append(f.calls, recordedCall{Method: method, Path: path, Token: opts.Token, Body: opts.Body})

	key := method + " " + path
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	data, ok := f.responses[key]
	if !ok {
		return nil, &transport.StatusError{StatusCode: 404, Method: method, Path: path, Body: `{"errors":[]}`}
	}
	return &transport.Response{StatusCode: 200, Data: data}, nil
}

func storeFailure(msg string) error {
	return fmt.Errorf("%w: %s", errdefs.ErrStore, msg)
}

var _ transport.Caller = (*fakeCaller)(nil)
