package auth

import "pipecrm/internal/models"

// roleRights maps each role to the permission strings it satisfies.
// Loaded once, never mutated. ADMIN is granted its rights by explicit
// enumeration; there is no inheritance between roles.
var roleRights = map[models.Role][]string{
	models.RoleUser: {
		"getClients",
		"getDeals",
		"getNotes",
		"manageNotes",
	},
	models.RoleAdmin: {
		"lerUsuarios",
		"editarUsuarios",
		"getUsers",
		"manageUsers",
		"getClients",
		"manageClients",
		"getDeals",
		"manageDeals",
		"getNotes",
		"manageNotes",
	},
	models.RoleFinanceiro: {
		"lerUsuarios",
		"getClients",
		"getNotes",
		"getDeals",
		"manageDeals",
	},
	models.RoleMarketing: {
		"lerUsuarios",
		"getClients",
		"getNotes",
		"manageClients",
		"getDeals",
	},
}

// RightsOf returns the rights owned by role. Unknown roles get an empty
// set, never an error.
func RightsOf(role models.Role) []string {
	rights := roleRights[role]
	out := make([]string, len(rights))
	copy(out, rights)
	return out
}

// HasRights reports whether role owns every one of the required rights.
func HasRights(role models.Role, required ...string) bool {
	rights := roleRights[role]
	for _, want := range required {
		found := false
		for _, r := range rights {
			if r == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
