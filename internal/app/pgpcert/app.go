// Package pgpcert implements the certificate operations behind the
// pgpcert command line tool.
package pgpcert

import (
	"bytes"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/pgpcert/pgpcert"
)

// appOpts contains configured options.
type appOpts struct {
	out    io.Writer
	logger *zap.Logger
}

// AppOpt are used to configure optional behavior.
type AppOpt func(*appOpts) error

// App holds state and configured options.
type App struct {
	opts appOpts
}

// OptAppOutput specifies that output should be written to w.
func OptAppOutput(w io.Writer) AppOpt {
	return func(o *appOpts) error {
		o.out = w
		return nil
	}
}

// OptAppLogger specifies the logger certificate processing should
// trace to.
func OptAppLogger(l *zap.Logger) AppOpt {
	return func(o *appOpts) error {
		o.logger = l
		return nil
	}
}

// New creates a new App configured with opts.
func New(opts ...AppOpt) (*App, error) {
	a := App{
		opts: appOpts{
			out: os.Stdout,
		},
	}

	for _, opt := range opts {
		if err := opt(&a.opts); err != nil {
			return nil, err
		}
	}

	return &a, nil
}

func (a *App) config() *pgpcert.Config {
	return &pgpcert.Config{Logger: a.opts.logger}
}

// loadCert reads a certificate from path, accepting both binary and
// armored input.
func (a *App) loadCert(path string) (*pgpcert.Cert, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("-----BEGIN")) {
		return pgpcert.ReadArmoredCert(bytes.NewReader(data), a.config())
	}
	return pgpcert.ParseCert(bytes.NewReader(data), a.config())
}
