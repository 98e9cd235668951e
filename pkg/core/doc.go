// Package core defines the shared domain types for querypath: resolved
// entities, parsed intents, adapter configuration, and result sets.
//
// The types here are consumed across package boundaries (schema graph,
// resolver, plan builder, validator, engine, adapters) and carry no
// behavior beyond simple accessors, so that packages can exchange data
// without importing each other.
package core
