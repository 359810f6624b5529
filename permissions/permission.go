package permissions

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"parking/shared/constant"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
)

//go:embed permissions.json
var permissionsData []byte

var (
	knownRoles   = []string{constant.RoleUser, constant.RoleAdmin}
	knownMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

	ErrInvalidPermissions = errors.New("invalid permissions")
)

// Permission lists the roles allowed on one route pattern. Skip routes bypass the bearer
// token check entirely.
type Permission struct {
	Permissions []string `json:"permissions"`
	Path        string   `json:"path"`
	Method      string   `json:"method"`
	Skip        bool     `json:"skip"`
}

// Allows reports whether any of roles is listed. A route without listed roles is open to any
// authenticated caller.
func (p Permission) Allows(roles []string) bool {
	if len(p.Permissions) == 0 {
		return true
	}

	return slices.ContainsFunc(roles, func(role string) bool {
		return slices.Contains(p.Permissions, role)
	})
}

type PermissionData struct {
	Endpoints []Permission `json:"endpoints"`
	Skip      bool         `json:"skip"`
}

func (r *PermissionData) FindPermissions(path, method string) Permission {
	idx := slices.IndexFunc(r.Endpoints, func(rp Permission) bool {
		return rp.Path == path && rp.Method == method
	})

	if idx == -1 {
		return Permission{}
	}

	return r.Endpoints[idx]
}

// Parse decodes a permission table and rejects duplicate routes, unknown methods and unknown
// roles.
func Parse(data []byte) (*PermissionData, error) {
	var permissions PermissionData

	if err := json.Unmarshal(data, &permissions); err != nil {
		return nil, fmt.Errorf("failed to decode permissions: %w", err)
	}

	seen := make(map[string]struct{}, len(permissions.Endpoints))

	for _, endpoint := range permissions.Endpoints {
		key := endpoint.Method + " " + endpoint.Path

		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: duplicate route %s", ErrInvalidPermissions, key)
		}

		seen[key] = struct{}{}

		if !slices.Contains(knownMethods, endpoint.Method) {
			return nil, fmt.Errorf("%w: unknown method on %s", ErrInvalidPermissions, key)
		}

		if !strings.HasPrefix(endpoint.Path, "/") {
			return nil, fmt.Errorf("%w: relative path on %s", ErrInvalidPermissions, key)
		}

		for _, role := range endpoint.Permissions {
			if !slices.Contains(knownRoles, role) {
				return nil, fmt.Errorf("%w: unknown role %q on %s", ErrInvalidPermissions, role, key)
			}
		}
	}

	return &permissions, nil
}

// Get loads the embedded permission table.
func Get() (*PermissionData, error) {
	permissions, err := Parse(permissionsData)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load embedded permissions")

		return nil, err
	}

	log.Info().Int("endpoints", len(permissions.Endpoints)).Msg("Loaded embedded permissions")

	return permissions, nil
}
