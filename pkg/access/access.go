// Package access answers the central authorisation question: which
// privileges does a caller hold on which resources.
package access

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/genenetwork/gn-auth/pkg/auth"
	"github.com/genenetwork/gn-auth/pkg/observability"
	"github.com/genenetwork/gn-auth/pkg/resources"
	"github.com/genenetwork/gn-auth/pkg/roles"
	"github.com/genenetwork/gn-auth/pkg/traits"
)

// Privilege labels granted by the trait authorisation endpoint.
const (
	PrivilegeViewResource = "group:resource:view-resource"
	PrivilegePublicRead   = "system:resource:public-read"
)

// UnmappedResourceID is the fixed sentinel id assigned to traits whose
// dataset is not attached to any resource. It never matches a real
// resource, so such traits always resolve to an empty privilege set.
var UnmappedResourceID = uuid.MustParse("4afa415e-94cb-4189-b2c6-f9ce2b6a878d")

// Service evaluates privilege queries against the role engine and the
// resource store.
type Service struct {
	engine    *roles.Engine
	resources *resources.Store
	metrics   *observability.Metrics
}

// NewService creates an access service. metrics may be nil in tests.
func NewService(engine *roles.Engine, store *resources.Store, metrics *observability.Metrics) *Service {
	return &Service{engine: engine, resources: store, metrics: metrics}
}

// AuthorisedFor reports, per resource id, whether the user's role-derived
// privileges are a superset of the wanted set. Exactly one boolean per
// input id; an empty input yields an empty map.
func (s *Service) AuthorisedFor(ctx context.Context, user auth.User, wanted []string, resourceIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	start := time.Now()
	granted, err := s.engine.PrivilegesOf(ctx, user, resourceIDs)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.AuthCheckDuration.WithLabelValues("authorised_for").
			Observe(time.Since(start).Seconds())
	}

	authorised := make(map[uuid.UUID]bool, len(resourceIDs))
	for _, resourceID := range resourceIDs {
		ok := supersetOf(granted[resourceID], wanted)
		authorised[resourceID] = ok
		if s.metrics != nil {
			outcome := "denied"
			if ok {
				outcome = "granted"
			}
			s.metrics.AuthChecksTotal.WithLabelValues(outcome).Inc()
		}
	}
	return authorised, nil
}

func supersetOf(granted, wanted []string) bool {
	held := make(map[string]bool, len(granted))
	for _, privilege := range granted {
		held[privilege] = true
	}
	for _, privilege := range wanted {
		if !held[privilege] {
			return false
		}
	}
	return true
}

// TraitAuthorisation is one item of the trait authorisation response.
type TraitAuthorisation struct {
	TraitFullName string   `json:"trait_fullname"`
	TraitName     string   `json:"trait_name"`
	DatasetName   string   `json:"dataset_name"`
	DatasetType   string   `json:"dataset_type"`
	Privileges    []string `json:"privileges"`
}

// ResolveRequestPrivileges maps each trait full name onto the privileges
// the caller holds on the resource carrying the trait's dataset. A nil
// caller is anonymous and sees only public resources; traits whose dataset
// is unmapped resolve to an empty privilege set via the sentinel id.
func (s *Service) ResolveRequestPrivileges(ctx context.Context, caller *auth.User, traitFullnames []string) ([]TraitAuthorisation, error) {
	parsed, err := traits.ParseAll(traitFullnames)
	if err != nil {
		return nil, err
	}

	visible, privileges, err := s.visibleResources(ctx, caller)
	if err != nil {
		return nil, err
	}

	dataToResource := make(map[string]uuid.UUID)
	for _, resource := range visible {
		for _, item := range resource.Data {
			key := strings.ToLower(item.DatasetType) + "::" + item.DatasetName
			dataToResource[key] = resource.ResourceID
		}
	}

	result := make([]TraitAuthorisation, 0, len(parsed))
	for _, trait := range parsed {
		resourceID, ok := dataToResource[trait.DataKey()]
		if !ok {
			resourceID = UnmappedResourceID
		}
		granted := privileges[resourceID]
		if granted == nil {
			granted = []string{}
		}
		result = append(result, TraitAuthorisation{
			TraitFullName: trait.FullName,
			TraitName:     trait.Name,
			DatasetName:   trait.DatasetName,
			DatasetType:   trait.DatasetType.LongForm(),
			Privileges:    granted,
		})
	}
	return result, nil
}

// visibleResources fetches the resources the caller can see, data attached,
// together with the privilege grant per resource id. Authenticated callers
// get their group resources plus view grants on the private ones they are
// authorised for; everyone gets public-read on public resources in view.
func (s *Service) visibleResources(ctx context.Context, caller *auth.User) ([]resources.Resource, map[uuid.UUID][]string, error) {
	privileges := make(map[uuid.UUID][]string)

	var visible []resources.Resource
	var err error
	if caller == nil {
		visible, err = s.resources.PublicResources(ctx)
	} else {
		visible, err = s.resources.UserResources(ctx, *caller)
	}
	if err != nil {
		return nil, nil, err
	}
	if visible, err = s.resources.AttachData(ctx, visible); err != nil {
		return nil, nil, err
	}

	if caller != nil {
		var private []uuid.UUID
		for _, resource := range visible {
			if !resource.Public {
				private = append(private, resource.ResourceID)
			}
		}
		authorised, err := s.AuthorisedFor(ctx, *caller,
			[]string{PrivilegeViewResource}, private)
		if err != nil {
			return nil, nil, err
		}
		for resourceID, ok := range authorised {
			if ok {
				privileges[resourceID] = []string{PrivilegeViewResource}
			}
		}
	}

	for _, resource := range visible {
		if resource.Public {
			privileges[resource.ResourceID] = []string{PrivilegePublicRead}
		}
	}
	return visible, privileges, nil
}
