// Package admins serves the staff endpoints. Which role may call which
// handler is decided by the policy table at the router.
package admins

import "famportal/services"

type Handler struct {
	Svc *services.Services
}
