package authz

import (
	"net/http"

	brixauth "github.com/brixsports/brixauth-go"
)

// DefaultRules is the BrixSports endpoint table: fan screens, the logger
// portal, and admin management. Reads of public sports data allow every
// authenticated role; writes are scoped to the role that owns them.
var DefaultRules = []Rule{
	// Fan-facing reads.
	{Path: "/matches", Method: http.MethodGet, Roles: []brixauth.Role{AnyRole}},
	{Path: "/matches/live", Method: http.MethodGet, Roles: []brixauth.Role{AnyRole}},
	{Path: "/matches/:id", Method: http.MethodGet, Roles: []brixauth.Role{AnyRole}},
	{Path: "/matches/:id/events", Method: http.MethodGet, Roles: []brixauth.Role{AnyRole}},
	{Path: "/matches/:id/lineups", Method: http.MethodGet, Roles: []brixauth.Role{AnyRole}},
	{Path: "/competitions", Method: http.MethodGet, Roles: []brixauth.Role{AnyRole}},
	{Path: "/competitions/:id", Method: http.MethodGet, Roles: []brixauth.Role{AnyRole}},
	{Path: "/competitions/:id/brackets", Method: http.MethodGet, Roles: []brixauth.Role{AnyRole}},
	{Path: "/teams/:id", Method: http.MethodGet, Roles: []brixauth.Role{AnyRole}},

	// Favourites belong to the fan account.
	{Path: "/favorites", Method: http.MethodGet, Roles: []brixauth.Role{brixauth.RoleUser}},
	{Path: "/favorites", Method: http.MethodPost, Roles: []brixauth.Role{brixauth.RoleUser}},
	{Path: "/favorites/:id", Method: http.MethodDelete, Roles: []brixauth.Role{brixauth.RoleUser}},

	// Profile.
	{Path: "/user/profile", Method: http.MethodGet, Roles: []brixauth.Role{AnyRole}},
	{Path: "/user/profile", Method: http.MethodPatch, Roles: []brixauth.Role{AnyRole}},

	// Logger portal: match event entry.
	{Path: "/logger/assignments", Method: http.MethodGet, Roles: []brixauth.Role{brixauth.RoleLogger}},
	{Path: "/logger/matches/:id/events", Method: http.MethodPost, Roles: []brixauth.Role{brixauth.RoleLogger}},
	{Path: "/logger/matches/:id/events/:eventId", Method: http.MethodPut, Roles: []brixauth.Role{brixauth.RoleSeniorLogger}},
	{Path: "/logger/matches/:id/events/:eventId", Method: http.MethodDelete, Roles: []brixauth.Role{brixauth.RoleSeniorLogger}},
	{Path: "/logger/matches/:id/score", Method: http.MethodPatch, Roles: []brixauth.Role{brixauth.RoleLogger}},
	{Path: "/logger/team", Method: http.MethodGet, Roles: []brixauth.Role{brixauth.RoleLoggerAdmin}},

	// Admin management.
	{Path: "/admin/loggers", Method: http.MethodGet, Roles: []brixauth.Role{brixauth.RoleAdmin}},
	{Path: "/admin/loggers", Method: http.MethodPost, Roles: []brixauth.Role{brixauth.RoleAdmin}},
	{Path: "/admin/loggers/:id", Method: http.MethodDelete, Roles: []brixauth.Role{brixauth.RoleAdmin}},
	{Path: "/admin/competitions", Method: http.MethodPost, Roles: []brixauth.Role{brixauth.RoleAdmin}},
	{Path: "/admin/competitions/:id", Method: http.MethodPut, Roles: []brixauth.Role{brixauth.RoleAdmin}},
	{Path: "/admin/competitions/:id/loggers", Method: http.MethodPut, Roles: []brixauth.Role{brixauth.RoleAdmin}},
	{Path: "/admin/settings", Method: http.MethodGet, Roles: []brixauth.Role{brixauth.RoleSuperAdmin}},
	{Path: "/admin/settings", Method: http.MethodPut, Roles: []brixauth.Role{brixauth.RoleSuperAdmin}},
}

// DefaultMatrix returns the compiled BrixSports rule table.
func DefaultMatrix() *Matrix {
	return NewMatrix(DefaultRules)
}
