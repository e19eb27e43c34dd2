// Package events provides types and interfaces for an event-driven architecture.
//
// This package defines event types and handler interfaces that allow for loose coupling
// between components in the system. The sync orchestrator, connectivity monitor, and
// cache layer emit events without knowing which handlers will process them; the offline
// facade subscribes and republishes a merged status to the UI.
//
// The primary components are:
// - Event: a typed lifecycle or status-change notification
// - Handler: interface for components that can handle events
// - Emitter: interface for components that can emit events
package events
