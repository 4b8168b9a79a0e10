package authprovider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/sprintboard/internal/config"
)

const userAgent = "sprintboard-directory-client"

// Client reads organizations, memberships and users from the directory REST API.
type Client struct {
	http    *resty.Client
	baseURL string
}

func NewClient(cfg config.Config) *Client {
	r := resty.New().
		SetBaseURL(cfg.DirectoryURL).
		SetTimeout(cfg.DirectoryTimeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)
	if cfg.DirectoryAPIKey != "" {
		r.SetAuthToken(cfg.DirectoryAPIKey)
	}
	return &Client{http: r, baseURL: cfg.DirectoryURL}
}

type organizationPayload struct {
	ID       string   `json:"id"`
	Slug     string   `json:"slug"`
	Name     string   `json:"name"`
	ImageURL string   `json:"image_url"`
	AdminIDs []string `json:"admin_ids"`
}

type membershipList struct {
	Data []struct {
		Role           string `json:"role"`
		PublicUserData struct {
			UserID string `json:"user_id"`
		} `json:"public_user_data"`
	} `json:"data"`
}

type userPayload struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	ImageURL       string `json:"image_url"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
		Verification *struct {
			Status string `json:"status"`
		} `json:"verification"`
	} `json:"email_addresses"`
}

func (c *Client) ResolveOrganization(ctx context.Context, ref string) (*Organization, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrNotFound
	}
	// Ids are opaque; anything else is treated as a slug and normalized.
	if !strings.HasPrefix(ref, "org_") {
		ref = slug.Make(ref)
	}

	var out organizationPayload
	if err := c.get(ctx, "/organizations/{ref}", map[string]string{"ref": ref}, nil, &out); err != nil {
		return nil, err
	}
	return &Organization{
		ID:       out.ID,
		Slug:     out.Slug,
		Name:     out.Name,
		ImageURL: out.ImageURL,
		AdminIDs: out.AdminIDs,
	}, nil
}

func (c *Client) ListMembers(ctx context.Context, orgID string) ([]Member, error) {
	var out membershipList
	err := c.get(ctx, "/organizations/{id}/memberships",
		map[string]string{"id": strings.TrimSpace(orgID)},
		map[string]string{"limit": "500"},
		&out,
	)
	if err != nil {
		return nil, err
	}
	members := make([]Member, 0, len(out.Data))
	for _, m := range out.Data {
		if m.PublicUserData.UserID == "" {
			continue
		}
		members = append(members, Member{ExternalUserID: m.PublicUserData.UserID, Role: m.Role})
	}
	return members, nil
}

func (c *Client) GetUser(ctx context.Context, userID string) (*Identity, error) {
	var out userPayload
	if err := c.get(ctx, "/users/{id}", map[string]string{"id": strings.TrimSpace(userID)}, nil, &out); err != nil {
		return nil, err
	}
	identity := &Identity{
		ExternalID: out.ID,
		FirstName:  out.FirstName,
		LastName:   out.LastName,
		ImageURL:   out.ImageURL,
	}
	for _, email := range out.EmailAddresses {
		identity.EmailAddresses = append(identity.EmailAddresses, EmailAddress{
			Address:  email.EmailAddress,
			Verified: email.Verification != nil && email.Verification.Status == "verified",
		})
	}
	return identity, nil
}

// get maps 404 to ErrNotFound and every other failure to ErrUpstream.
func (c *Client) get(ctx context.Context, path string, pathParams, query map[string]string, out interface{}) error {
	if c == nil || c.http == nil || c.baseURL == "" {
		return ErrNotConfigured
	}
	req := c.http.R().SetContext(ctx).SetPathParams(pathParams).SetResult(out)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	res, err := req.Get(path)
	if err != nil {
		return ErrUpstream.Wrap(err)
	}
	if res.StatusCode() == http.StatusNotFound {
		return ErrNotFound
	}
	if res.IsError() {
		return ErrUpstream.Wrap(fmt.Errorf("GET %s: %s", path, res.Status()))
	}
	return nil
}

var _ Directory = (*Client)(nil)
