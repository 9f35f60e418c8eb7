// Package access models who may reach which area of the back office.
package access

import (
	"fmt"
	"sort"
	"strings"
)

type Permission string

const (
	Dashboard  Permission = "dashboard"
	Products   Permission = "products"
	Categories Permission = "categories"
	Sales      Permission = "sales"
	Brilink    Permission = "brilink"
	Reports    Permission = "reports"
	Users      Permission = "users"
	Roles      Permission = "roles"
	AuditLogs  Permission = "audit_logs"
)

// RootPath is where a denied or area-less identity lands.
const RootPath = "/"

type Area struct {
	Permission Permission
	Path       string
}

var areas = []Area{
	{Permission: Dashboard, Path: "/dashboard"},
	{Permission: Sales, Path: "/sales"},
	{Permission: Brilink, Path: "/brilink"},
	{Permission: Products, Path: "/products"},
	{Permission: Categories, Path: "/categories"},
	{Permission: Reports, Path: "/reports"},
	{Permission: Users, Path: "/users"},
	{Permission: Roles, Path: "/roles"},
	{Permission: AuditLogs, Path: "/audit-logs"},
}

// landingOrder is the priority used to pick a landing area. Audit logs are
// reachable but never a landing page.
var landingOrder = []Permission{Dashboard, Sales, Brilink, Products, Categories, Reports, Users, Roles}

func AllPermissions() []Permission {
	out := make([]Permission, 0, len(areas))
	for _, a := range areas {
		out = append(out, a.Permission)
	}
	return out
}

func Areas() []Area {
	out := make([]Area, len(areas))
	copy(out, areas)
	return out
}

func AreaPath(p Permission) string {
	for _, a := range areas {
		if a.Permission == p {
			return a.Path
		}
	}
	return RootPath
}

func ParsePermission(raw string) (Permission, error) {
	candidate := Permission(strings.ToLower(strings.TrimSpace(raw)))
	for _, a := range areas {
		if a.Permission == candidate {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unknown permission %q", raw)
}

// PermissionSet is an unordered set of permission tags.
type PermissionSet map[Permission]struct{}

func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// FromStrings keeps known tags and drops the rest.
func FromStrings(raw []string) PermissionSet {
	set := make(PermissionSet, len(raw))
	for _, r := range raw {
		if p, err := ParsePermission(r); err == nil {
			set[p] = struct{}{}
		}
	}
	return set
}

func FullSet() PermissionSet {
	return NewPermissionSet(AllPermissions()...)
}

func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

func (s PermissionSet) List() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}

// FirstAccessibleArea returns the path of the highest-priority area in set,
// or the root path when none match.
func FirstAccessibleArea(set PermissionSet) string {
	for _, p := range landingOrder {
		if set.Has(p) {
			return AreaPath(p)
		}
	}
	return RootPath
}

// NormalizePermissions validates and de-duplicates raw tags for storage.
func NormalizePermissions(raw []string) ([]string, error) {
	set := make(PermissionSet, len(raw))
	for _, r := range raw {
		p, err := ParsePermission(r)
		if err != nil {
			return nil, err
		}
		set[p] = struct{}{}
	}
	return set.List(), nil
}
