// Package conduit provides statechart-driven orchestration for a
// Conduit (RealWorld) social blogging client.
//
// The engine is in package 'core', the processes (session, auth,
// feed, article, profile, editor, settings, tags) are in 'machines',
// and the host that couples processes to the REST API, token storage,
// and navigation is in 'sio'.  Some command-line tools are in `cmd`.
package conduit
