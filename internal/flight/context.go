package flight

import (
	"sync"

	"github.com/DegenerateGroundState/ksp-KerbalLaunchFailure/internal/model"
)

// Context holds the active flight and its launch site
type Context struct {
	mu     sync.RWMutex
	Flight *model.Flight
	Site   *model.LaunchSite
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		Flight: &model.Flight{CraftName: "No flight active"},
		Site:   &model.LaunchSite{Name: "No site selected"},
	}
}

// GetFlight returns the active flight
func (fc *Context) GetFlight() *model.Flight {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.Flight
}

// GetSite returns the launch site of the active flight
func (fc *Context) GetSite() *model.LaunchSite {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.Site
}

// SetFlight sets the active flight and launch site
func (fc *Context) SetFlight(flight *model.Flight, site *model.LaunchSite) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.Flight = flight
	fc.Site = site
}
