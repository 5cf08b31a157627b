package flow

// View identifies one of the mutually exclusive wizard screens.
type View int

const (
	ViewLogin View = iota
	ViewPendingVerification
	ViewAddressSelection
	ViewRegistration
	ViewSummary
)

var viewNames = [...]string{
	ViewLogin:               "login",
	ViewPendingVerification: "pending_verification",
	ViewAddressSelection:    "address_selection",
	ViewRegistration:        "registration",
	ViewSummary:             "summary",
}

func (v View) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return "unknown"
	}
	return viewNames[v]
}

// Views lists every screen in flow order.
func Views() []View {
	return []View{ViewLogin, ViewPendingVerification, ViewAddressSelection, ViewRegistration, ViewSummary}
}

// Registry tracks which screen is active and the inline error shown on each.
// Exactly one view is active at any time.
type Registry struct {
	active View
	errors map[View]string
}

func NewRegistry() *Registry {
	return &Registry{active: ViewLogin, errors: map[View]string{}}
}

// Activate makes v the only active view and returns the previously active one.
func (r *Registry) Activate(v View) View {
	prev := r.active
	r.active = v
	return prev
}

func (r *Registry) Active() View { return r.active }

func (r *Registry) IsActive(v View) bool { return r.active == v }

func (r *Registry) SetError(v View, msg string) { r.errors[v] = msg }

func (r *Registry) Error(v View) string { return r.errors[v] }

func (r *Registry) ClearError(v View) { delete(r.errors, v) }

// Reset clears all errors and returns to the login screen.
func (r *Registry) Reset() {
	r.errors = map[View]string{}
	r.active = ViewLogin
}
