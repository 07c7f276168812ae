// Package registry groups the typed clients for the Common Ground registries
// the portal aggregates. Each subpackage wraps one gateway.Provider and
// exposes only the calls the portal makes; DTOs carry the fields the portal
// reads and nothing more.
package registry
