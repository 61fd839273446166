// Package galleria implements a small photo-gallery backend: user
// signup/login with signed bearer tokens, and per-user image upload and
// listing backed by a key-value credential store and an object store.
//
// The root package holds the domain types, the error taxonomy, and the
// services (auth, gallery, token issuing). Storage adapters live in the
// dynamo, sqlite, s3store and memory subpackages; the HTTP transport lives
// in the http subpackage; the server binary lives under cmd/galleria.
package galleria
