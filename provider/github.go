package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-github/v73/github"
	"github.com/jrsteele09/sse-forum/oauthmodel"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const GitHubName = "github"

func NewGitHub(opts Options) (*Client, error) {
	c := newClient(GitHubName,
		endpoints.GitHub,
		[]string{"read:user", "user:email"},
		[]oauth2.AuthCodeOption{oauth2.SetAuthURLParam("allow_signup", "true")},
		opts,
	)

	var baseURL *url.URL
	if opts.APIBaseURL != "" {
		u, err := url.Parse(opts.APIBaseURL)
		if err != nil {
			return nil, fmt.Errorf("[provider NewGitHub] invalid api base url: %w", err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		baseURL = u
	}
	c.identity = githubIdentity{baseURL: baseURL}
	return c, nil
}

type githubIdentity struct {
	baseURL *url.URL
}

var _ EmailLister = githubIdentity{}

func (g githubIdentity) client(ctx context.Context, token *oauth2.Token) *github.Client {
	client := github.NewClient(oauth2.NewClient(ctx, oauth2.StaticTokenSource(token)))
	if g.baseURL != nil {
		client.BaseURL = g.baseURL
	}
	return client
}

// FetchProfile uses the login when the account has no display name.
func (g githubIdentity) FetchProfile(ctx context.Context, token *oauth2.Token) (*oauthmodel.UserIdentity, error) {
	user, _, err := g.client(ctx, token).Users.Get(ctx, "")
	if err != nil {
		return nil, classifyAPIError("user", err)
	}
	name := user.GetName()
	if name == "" {
		name = user.GetLogin()
	}
	return &oauthmodel.UserIdentity{
		ID:      strconv.FormatInt(user.GetID(), 10),
		Login:   user.GetLogin(),
		Name:    name,
		Email:   user.GetEmail(),
		Picture: user.GetAvatarURL(),
	}, nil
}

func (g githubIdentity) ListEmails(ctx context.Context, token *oauth2.Token) ([]oauthmodel.EmailEntry, error) {
	emails, _, err := g.client(ctx, token).Users.ListEmails(ctx, &github.ListOptions{PerPage: 100})
	if err != nil {
		return nil, classifyAPIError("emails", err)
	}
	entries := make([]oauthmodel.EmailEntry, 0, len(emails))
	for _, e := range emails {
		entries = append(entries, oauthmodel.EmailEntry{
			Email:   e.GetEmail(),
			Primary: e.GetPrimary(),
		})
	}
	return entries, nil
}

func classifyAPIError(op string, err error) error {
	var apiErr *github.ErrorResponse
	if errors.As(err, &apiErr) && apiErr.Response != nil && apiErr.Response.StatusCode < http.StatusInternalServerError {
		return &oauthmodel.ProviderError{
			Op:          op,
			Code:        strings.ToLower(strings.ReplaceAll(http.StatusText(apiErr.Response.StatusCode), " ", "_")),
			Description: apiErr.Message,
			StatusCode:  apiErr.Response.StatusCode,
		}
	}
	return &oauthmodel.NetworkError{Op: op, Err: err}
}
