package tenant

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DefaultHeader is the header read by NewHeaderResolver when no name is given.
const DefaultHeader = "X-Tenant-ID"

// Resolver extracts tenant identifier from HTTP requests.
type Resolver interface {
	// Resolve extracts the tenant identifier from the request.
	// Returns empty string if no tenant identifier is found.
	Resolve(r *http.Request) (string, error)
}

// ResolverFunc is an adapter to allow the use of ordinary functions as Resolvers.
type ResolverFunc func(r *http.Request) (string, error)

// Resolve calls the function.
func (f ResolverFunc) Resolve(r *http.Request) (string, error) {
	return f(r)
}

// HeaderResolver reads the tenant identifier from a request header.
type HeaderResolver struct {
	HeaderName string
}

// NewHeaderResolver creates a header resolver; an empty name means DefaultHeader.
func NewHeaderResolver(headerName string) *HeaderResolver {
	if headerName == "" {
		headerName = DefaultHeader
	}
	return &HeaderResolver{HeaderName: headerName}
}

func (r *HeaderResolver) Resolve(req *http.Request) (string, error) {
	return strings.TrimSpace(req.Header.Get(r.HeaderName)), nil
}

// SubdomainResolver takes the tenant from the left-most host label,
// e.g. "acme" from "acme.app.com".
type SubdomainResolver struct {
	// Suffix is the base domain, e.g. ".app.com". When set, only hosts
	// ending with it resolve to a tenant.
	Suffix string
}

func NewSubdomainResolver(suffix string) *SubdomainResolver {
	return &SubdomainResolver{Suffix: suffix}
}

func (r *SubdomainResolver) Resolve(req *http.Request) (string, error) {
	host := strings.ToLower(req.Host)
	if i := strings.LastIndexByte(host, ':'); i != -1 && !strings.Contains(host[i:], "]") {
		host = host[:i]
	}

	var labels []string
	if r.Suffix != "" {
		suffix := "." + strings.TrimPrefix(strings.ToLower(r.Suffix), ".")
		rest, ok := strings.CutSuffix(host, suffix)
		if !ok || rest == "" {
			return "", nil
		}
		labels = strings.Split(rest, ".")
	} else {
		labels = strings.Split(host, ".")
		// subdomain.domain.tld is the shortest host carrying a tenant.
		if len(labels) < 3 {
			return "", nil
		}
		labels = labels[:len(labels)-2]
	}

	if labels[0] == "www" {
		labels = labels[1:]
	}
	if len(labels) == 0 {
		return "", nil
	}
	return labels[0], nil
}

// PathResolver reads the tenant from a URL path segment.
type PathResolver struct {
	// Position is the 1-based segment index, e.g. 2 for /tenants/{id}/...
	Position int
}

func NewPathResolver(position int) *PathResolver {
	return &PathResolver{Position: position}
}

func (r *PathResolver) Resolve(req *http.Request) (string, error) {
	if r.Position < 1 {
		return "", ErrInvalidPathPosition
	}

	path := strings.Trim(req.URL.Path, "/")
	if path == "" {
		return "", nil
	}

	parts := strings.Split(path, "/")
	if r.Position > len(parts) {
		return "", nil
	}
	return parts[r.Position-1], nil
}

// CompositeResolver tries resolvers in order and returns the first
// non-empty identifier.
type CompositeResolver struct {
	Resolvers []Resolver
}

func NewCompositeResolver(resolvers ...Resolver) *CompositeResolver {
	return &CompositeResolver{Resolvers: resolvers}
}

func (c *CompositeResolver) Resolve(r *http.Request) (string, error) {
	var errs []error
	for _, resolver := range c.Resolvers {
		id, err := resolver.Resolve(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if id != "" {
			return id, nil
		}
	}

	if len(errs) > 0 {
		return "", fmt.Errorf("composite resolver: %w", errors.Join(errs...))
	}
	return "", nil
}
