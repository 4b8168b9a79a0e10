// Package authprovidertest provides an in-memory organization directory.
package authprovidertest

import (
	"context"
	"sync"

	"github.com/smallbiznis/sprintboard/internal/authprovider"
)

// Directory serves organizations, members and users from maps. Missing
// entries report authprovider.ErrNotFound; Err, when set, fails every call.
type Directory struct {
	mu      sync.Mutex
	Orgs    map[string]*authprovider.Organization
	Members map[string][]authprovider.Member
	Users   map[string]*authprovider.Identity
	Err     error
	Calls   int
}

func NewDirectory() *Directory {
	return &Directory{
		Orgs:    map[string]*authprovider.Organization{},
		Members: map[string][]authprovider.Member{},
		Users:   map[string]*authprovider.Identity{},
	}
}

// AddMember registers the organization if needed and adds the member.
func (d *Directory) AddMember(org authprovider.Organization, externalUserID, role string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.Orgs[org.ID]; !ok {
		o := org
		d.Orgs[org.ID] = &o
	}
	d.Members[org.ID] = append(d.Members[org.ID], authprovider.Member{ExternalUserID: externalUserID, Role: role})
}

func (d *Directory) AddUser(identity authprovider.Identity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := identity
	d.Users[identity.ExternalID] = &u
}

func (d *Directory) ResolveOrganization(_ context.Context, ref string) (*authprovider.Organization, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls++
	if d.Err != nil {
		return nil, d.Err
	}
	for _, org := range d.Orgs {
		if org.ID == ref || org.Slug == ref {
			o := *org
			return &o, nil
		}
	}
	return nil, authprovider.ErrNotFound
}

func (d *Directory) ListMembers(_ context.Context, orgID string) ([]authprovider.Member, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls++
	if d.Err != nil {
		return nil, d.Err
	}
	if _, ok := d.Orgs[orgID]; !ok {
		return nil, authprovider.ErrNotFound
	}
	return append([]authprovider.Member(nil), d.Members[orgID]...), nil
}

func (d *Directory) GetUser(_ context.Context, userID string) (*authprovider.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls++
	if d.Err != nil {
		return nil, d.Err
	}
	u, ok := d.Users[userID]
	if !ok {
		return nil, authprovider.ErrNotFound
	}
	identity := *u
	return &identity, nil
}
