package devfacade

import (
	"context"
	"strings"
	"sync"

	"github.com/wordpress-mobile/authflow/pkg/autherr"
	"github.com/wordpress-mobile/authflow/pkg/flow"
	"github.com/wordpress-mobile/authflow/pkg/validate"
)

// Site is one entry in the discovery table.
type Site struct {
	// EndpointURL is the resolved API endpoint, usually address + "/xmlrpc.php".
	EndpointURL string
	// JetpackManaged marks a site whose endpoint is unreachable directly
	// because it is managed through the hosted service.
	JetpackManaged bool
}

// SiteDirectory is a table-driven discovery facade. Addresses not in the
// table are not discoverable.
type SiteDirectory struct {
	mu    sync.Mutex
	sites map[string]Site
}

var _ flow.SiteDiscoveryFacade = (*SiteDirectory)(nil)

func NewSiteDirectory() *SiteDirectory {
	return &SiteDirectory{sites: make(map[string]Site)}
}

// AddSite registers a discoverable site. The address is normalized the same
// way user input is, so table entries and lookups line up.
func (d *SiteDirectory) AddSite(address string, site Site) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sites[validate.NormalizeSiteAddress(address)] = site
}

func (d *SiteDirectory) Discover(ctx context.Context, siteAddress string) (string, error) {
	if strings.TrimSpace(siteAddress) == "" || !strings.Contains(siteAddress, ".") {
		return "", autherr.NewFacadeError(autherr.DomainDiscovery, autherr.CodeBadRequest, "not a valid site address")
	}

	d.mu.Lock()
	site, ok := d.sites[validate.NormalizeSiteAddress(siteAddress)]
	d.mu.Unlock()
	if !ok {
		return "", autherr.NewFacadeError(autherr.DomainDiscovery, autherr.CodeNotFound, "no WordPress site found at this address")
	}
	if site.JetpackManaged {
		return "", autherr.NewFacadeError(autherr.DomainDiscovery, autherr.CodeNoEndpoint, "site is managed through the hosted service")
	}
	return site.EndpointURL, nil
}
