package service

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/xerrors"
)

// Service describes a long-running component of the buscalibros application.
type Service interface {
	// Name returns the service name.
	Name() string

	// Run executes the service and blocks until the context gets cancelled
	// or an error occurs.
	Run(context.Context) error
}

// Group is a list of Service instances that run together in one process.
type Group []Service

// Run starts every service in the group on its own goroutine and blocks until
// all of them have returned. The first service to fail cancels the shared
// context so its peers shut down too; any reported errors are accumulated and
// returned, each prefixed with the name of the service that produced it.
func (g Group) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()

	var wg sync.WaitGroup
	errCh := make(chan error, len(g))
	for _, svc := range g {
		wg.Add(1)
		go func(svc Service) {
			defer wg.Done()
			if err := svc.Run(runCtx); err != nil {
				errCh <- xerrors.Errorf("%s: %w", svc.Name(), err)
				cancelFn()
			}
		}(svc)
	}

	// Block until something cancels the run context, then wait out the
	// service goroutines before draining their errors.
	<-runCtx.Done()
	wg.Wait()
	close(errCh)

	var err error
	for svcErr := range errCh {
		err = multierror.Append(err, svcErr)
	}
	return err
}
