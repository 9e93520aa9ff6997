//go:build !wasm
// +build !wasm

// Package gae provides a Google Cloud Datastore Backend. It is designed for
// deployment on Google Cloud Platform and supports multi-tenancy through
// Datastore namespaces.
//
// # Datastore Kinds
//
// Every backend key is one entity of kind Collection, named by the key.
//
// # Namespacing
//
// Pass a namespace to isolate data between tenants:
//
//	backend := gae.NewBackend(client, "tenant-123")
//
// # Usage
//
//	client, _ := datastore.NewClient(ctx, projectID)
//	auth, _ := grovekeep.New(gae.NewBackend(client, ""), grovekeep.Config{})
package gae
