// Package graph reads the company directory and the signed-in user's
// personal contacts from Microsoft Graph.
package graph

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	abstractions "github.com/microsoft/kiota-abstractions-go"
	"github.com/microsoft/kiota-abstractions-go/authentication"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"
	graphusers "github.com/microsoftgraph/msgraph-sdk-go/users"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"
	pageSize       = 200
	defaultMax     = 2000
)

// Contact sources.
const (
	SourceDirectory  = "Directory"
	SourceMyContacts = "My Contacts"
	SourceBoth       = "Both"
)

// ErrNoToken is returned when no Graph access token is available.
var ErrNoToken = errors.New("graph: no access token for this session")

// Contact is a normalized directory user or personal contact.
type Contact struct {
	ID         string
	Name       string
	Email      string
	Mobile     string
	Business   string
	Title      string
	Department string
	Office     string
	Company    string
	Source     string
}

// Client calls Graph on behalf of whichever session token is in the call
// context. One Client serves every session.
type Client struct {
	base *url.URL
	sdk  *msgraphsdk.GraphServiceClient
	max  int
}

// New builds a client. maxContacts caps how many rows one listing follows
// through @odata.nextLink; zero means 2000.
func New(baseURL string, maxContacts int) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("parse graph url %q: %v", baseURL, err)
	}
	auth := authentication.NewBaseBearerTokenAuthenticationProvider(newSessionTokens(u))
	adapter, err := msgraphsdk.NewGraphRequestAdapter(auth)
	if err != nil {
		return nil, fmt.Errorf("graph request adapter: %w", err)
	}
	adapter.SetBaseUrl(baseURL)
	if maxContacts <= 0 {
		maxContacts = defaultMax
	}
	return &Client{base: u, sdk: msgraphsdk.NewGraphServiceClient(adapter), max: maxContacts}, nil
}

type tokenKey struct{}

func withToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// sessionTokens hands the token forwarded by App Service to the SDK, and
// only for requests to the configured Graph host.
type sessionTokens struct {
	base  *url.URL
	hosts authentication.AllowedHostsValidator
}

func newSessionTokens(base *url.URL) *sessionTokens {
	return &sessionTokens{base: base, hosts: authentication.NewAllowedHostsValidator([]string{base.Host})}
}

func (p *sessionTokens) GetAuthorizationToken(ctx context.Context, u *url.URL, _ map[string]interface{}) (string, error) {
	if !p.sameOrigin(u) {
		return "", nil
	}
	token, _ := ctx.Value(tokenKey{}).(string)
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (p *sessionTokens) GetAllowedHostsValidator() *authentication.AllowedHostsValidator {
	return &p.hosts
}

func (p *sessionTokens) sameOrigin(u *url.URL) bool {
	return u != nil && strings.EqualFold(u.Scheme, p.base.Scheme) && strings.EqualFold(u.Host, p.base.Host)
}

// ErrForeignNextLink is returned when Graph pages to a host other than the
// configured one. The link is not followed.
var ErrForeignNextLink = errors.New("graph: next page link points at another host")

var (
	directorySelect = []string{"id", "displayName", "mail", "userPrincipalName", "mobilePhone", "businessPhones", "jobTitle", "department", "officeLocation", "companyName"}
	contactSelect   = []string{"id", "displayName", "companyName", "jobTitle", "department", "businessPhones", "mobilePhone", "emailAddresses", "officeLocation"}
)

// Directory lists organisation users.
func (c *Client) Directory(ctx context.Context, token string) ([]Contact, error) {
	ctx = withToken(ctx, token)
	top := int32(pageSize)
	cfg := &graphusers.UsersRequestBuilderGetRequestConfiguration{
		QueryParameters: &graphusers.UsersRequestBuilderGetQueryParameters{Select: directorySelect, Top: &top},
	}
	return collect(ctx, c, "/users", func(next string) ([]models.Userable, *string, error) {
		var (
			page models.UserCollectionResponseable
			err  error
		)
		if next == "" {
			page, err = c.sdk.Users().Get(ctx, cfg)
		} else {
			page, err = c.sdk.Users().WithUrl(next).Get(ctx, nil)
		}
		if err != nil || page == nil {
			return nil, nil, err
		}
		return page.GetValue(), page.GetOdataNextLink(), nil
	}, directoryContact)
}

// MyContacts lists the signed-in user's Outlook contacts.
func (c *Client) MyContacts(ctx context.Context, token string) ([]Contact, error) {
	ctx = withToken(ctx, token)
	top := int32(pageSize)
	cfg := &graphusers.ItemContactsRequestBuilderGetRequestConfiguration{
		QueryParameters: &graphusers.ItemContactsRequestBuilderGetQueryParameters{Select: contactSelect, Top: &top},
	}
	return collect(ctx, c, "/me/contacts", func(next string) ([]models.Contactable, *string, error) {
		var (
			page models.ContactCollectionResponseable
			err  error
		)
		if next == "" {
			page, err = c.sdk.Me().Contacts().Get(ctx, cfg)
		} else {
			page, err = c.sdk.Me().Contacts().WithUrl(next).Get(ctx, nil)
		}
		if err != nil || page == nil {
			return nil, nil, err
		}
		return page.GetValue(), page.GetOdataNextLink(), nil
	}, personalContact)
}

func directoryContact(u models.Userable) Contact {
	email := str(u.GetMail())
	if email == "" {
		email = str(u.GetUserPrincipalName())
	}
	return Contact{
		ID:         str(u.GetId()),
		Name:       str(u.GetDisplayName()),
		Email:      email,
		Mobile:     str(u.GetMobilePhone()),
		Business:   first(u.GetBusinessPhones()),
		Title:      str(u.GetJobTitle()),
		Department: str(u.GetDepartment()),
		Office:     str(u.GetOfficeLocation()),
		Company:    str(u.GetCompanyName()),
		Source:     SourceDirectory,
	}
}

func personalContact(p models.Contactable) Contact {
	var email string
	if addrs := p.GetEmailAddresses(); len(addrs) > 0 && addrs[0] != nil {
		email = str(addrs[0].GetAddress())
	}
	return Contact{
		ID:         str(p.GetId()),
		Name:       str(p.GetDisplayName()),
		Email:      email,
		Mobile:     str(p.GetMobilePhone()),
		Business:   first(p.GetBusinessPhones()),
		Title:      str(p.GetJobTitle()),
		Department: str(p.GetDepartment()),
		Office:     str(p.GetOfficeLocation()),
		Company:    str(p.GetCompanyName()),
		Source:     SourceMyContacts,
	}
}

// Load lists contacts for source. Both fetches the two lists concurrently
// and merges them.
func (c *Client) Load(ctx context.Context, token, source string) ([]Contact, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	switch source {
	case SourceMyContacts:
		return c.MyContacts(ctx, token)
	case SourceBoth:
		var dir, mine []Contact
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			dir, err = c.Directory(gctx, token)
			return err
		})
		g.Go(func() error {
			var err error
			mine, err = c.MyContacts(gctx, token)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return Merge(dir, mine), nil
	default:
		return c.Directory(ctx, token)
	}
}

// Merge combines directory users and personal contacts keyed by lower-cased
// email, or name when there is no email. Directory entries replace personal
// ones with the same key; order is first appearance, personal first.
func Merge(directory, personal []Contact) []Contact {
	out := make([]Contact, 0, len(directory)+len(personal))
	index := make(map[string]int, cap(out))
	add := func(c Contact) {
		key := strings.ToLower(c.Email)
		if key == "" {
			key = strings.ToLower(c.Name)
		}
		if i, ok := index[key]; ok {
			out[i] = c
			return
		}
		index[key] = len(out)
		out = append(out, c)
	}
	for _, c := range personal {
		add(c)
	}
	for _, c := range directory {
		add(c)
	}
	return out
}

// APIError is a non-2xx Graph response.
type APIError struct {
	Path    string
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("graph %s: %d %s: %s", e.Path, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("graph %s: %d", e.Path, e.Status)
}

// collect walks the pages returned by fetch until there is no next link or
// the cap is reached. fetch gets "" for the first page.
func collect[T any](ctx context.Context, c *Client, path string, fetch func(next string) ([]T, *string, error), normalize func(T) Contact) ([]Contact, error) {
	if token, _ := ctx.Value(tokenKey{}).(string); token == "" {
		return nil, ErrNoToken
	}
	out := []Contact{}
	next := ""
	for len(out) < c.max {
		rows, link, err := fetch(next)
		if err != nil {
			return nil, wrapError(path, err)
		}
		for _, v := range rows {
			out = append(out, normalize(v))
		}
		if link == nil || *link == "" {
			break
		}
		u, err := url.Parse(*link)
		if err != nil || !strings.EqualFold(u.Scheme, c.base.Scheme) || !strings.EqualFold(u.Host, c.base.Host) {
			return nil, fmt.Errorf("graph %s: %w", path, ErrForeignNextLink)
		}
		next = *link
	}
	if len(out) > c.max {
		out = out[:c.max]
	}
	return out, nil
}

func wrapError(path string, err error) error {
	if errors.Is(err, ErrNoToken) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var odataErr *odataerrors.ODataError
	if errors.As(err, &odataErr) {
		apiErr := &APIError{Path: path, Status: odataErr.ResponseStatusCode}
		if main := odataErr.GetErrorEscaped(); main != nil {
			apiErr.Code = str(main.GetCode())
			apiErr.Message = str(main.GetMessage())
		}
		return apiErr
	}
	var kiotaErr *abstractions.ApiError
	if errors.As(err, &kiotaErr) {
		return &APIError{Path: path, Status: kiotaErr.ResponseStatusCode, Message: kiotaErr.Message}
	}
	return fmt.Errorf("graph %s: %w", path, err)
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
