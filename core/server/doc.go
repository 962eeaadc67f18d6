// Package server hosts the admin API over plain HTTP with graceful
// shutdown. TLS for tenant domains is terminated upstream of this process,
// so there is no TLS surface here.
//
// # Usage
//
//	srv, err := server.New(cfg, server.WithLogger(log))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(srv.Run(ctx, handler))
//
// Start blocks until the context is cancelled; Stop drains in-flight
// requests up to the shutdown timeout; Run composes both for errgroup use.
package server
