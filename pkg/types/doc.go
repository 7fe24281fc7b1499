// Package types defines the identifier record, artifact kinds, configuration,
// and the error taxonomy shared by the waymark index, generator, and router.
//
// Records are the durable unit of the index: one JSON object per line in
// index.jsonl. Everything else in waymark either produces records (the
// generator), stores them (the index), or decides which record to create
// next (the router).
package types
