// Package app wires the services together and registers their event
// handlers on the configured bus.
package app

// setupEventBus registers all event handlers with the provided event Bus.
func (a *App) setupEventBus() {
	if a.Deps.EventBus == nil {
		a.Deps.Logger.Warn("No event bus configured, audit trail disabled")
		return
	}
	a.AuditService.Subscribe(a.Deps.EventBus)
}
