// Package server exposes the workflow engine over a JSON HTTP API.
//
// # Endpoints
//
//	POST /api/v1/workflows/execute        submit a run (202, or 200 with wait)
//	GET  /api/v1/workflows                workflow catalog
//	GET  /api/v1/agents/capabilities      agent catalog
//	GET  /api/v1/runs/{sessionID}/status  run progress
//	POST /api/v1/runs/{sessionID}/cancel  request cancellation
//	GET  /api/v1/runs/{sessionID}/events  SSE step stream of an active run
//	POST /api/v1/documents                upload a resume (extracted text)
//	GET  /api/v1/documents                list the caller's resumes
//	GET  /api/v1/documents/{documentID}   fetch one resume
//	DELETE /api/v1/documents/{documentID} delete one resume
//	GET  /healthz                         liveness probe
//	GET  /metrics                         prometheus exposition
//
// The /api/v1 group is optionally rate limited per client IP and guarded by
// HS256 bearer tokens; health and metrics stay open. Tokens are minted
// out-of-band with [NewToken].
//
// # Usage
//
//	srv, err := server.New(eng, func(o *server.Options) {
//		o.Config.Addr = ":8080"
//		o.Metrics = collector
//		o.Logger = logger
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//
//	if err := srv.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
package server
