package plume

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultCustomerLimit = 10

// StatsQuery holds the reporting parameters for the time-series endpoints.
type StatsQuery struct {
	Granularity string
	Limit       int
	Start       time.Time
	End         time.Time
}

func (q StatsQuery) values() url.Values {
	v := url.Values{}
	if q.Granularity != "" {
		v.Set("granularity", q.Granularity)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if !q.Start.IsZero() {
		v.Set("startTime", q.Start.UTC().Format(time.RFC3339))
	}
	if !q.End.IsZero() {
		v.Set("endTime", q.End.UTC().Format(time.RFC3339))
	}
	return v
}

func (c *Client) Customers(ctx context.Context, principalID string, limit int) (any, error) {
	if limit <= 0 {
		limit = DefaultCustomerLimit
	}
	return c.Execute(ctx, principalID, Request{
		Endpoint: "partners/customers",
		Query:    url.Values{"limit": {strconv.Itoa(limit)}},
	})
}

func (c *Client) LocationStatus(ctx context.Context, principalID, customerID, locationID string) (any, error) {
	return c.locationGet(ctx, principalID, customerID, locationID, "", nil, false)
}

func (c *Client) Nodes(ctx context.Context, principalID, customerID, locationID string) (any, error) {
	return c.locationGet(ctx, principalID, customerID, locationID, "nodes", nil, false)
}

func (c *Client) NodeDetails(ctx context.Context, principalID, nodeID string) (any, error) {
	if err := requireIDs(nodeID); err != nil {
		return nil, err
	}
	return c.Execute(ctx, principalID, Request{Endpoint: "partners/nodes/" + url.PathEscape(nodeID)})
}

func (c *Client) WifiNetworks(ctx context.Context, principalID, customerID, locationID string) (any, error) {
	return c.locationGet(ctx, principalID, customerID, locationID, "wifiNetworks", nil, false)
}

func (c *Client) Devices(ctx context.Context, principalID, customerID, locationID string) (any, error) {
	return c.locationGet(ctx, principalID, customerID, locationID, "devices", nil, false)
}

// InternetHealth returns the location's backhaul status.
func (c *Client) InternetHealth(ctx context.Context, principalID, customerID, locationID string) (any, error) {
	return c.locationGet(ctx, principalID, customerID, locationID, "backhaul", nil, false)
}

func (c *Client) ServiceLevel(ctx context.Context, principalID, customerID, locationID string) (any, error) {
	return c.locationGet(ctx, principalID, customerID, locationID, "serviceLevel", nil, false)
}

func (c *Client) QoEStats(ctx context.Context, principalID, customerID, locationID string) (any, error) {
	return c.locationGet(ctx, principalID, customerID, locationID, "appqoe/AppQoeStatsByTrafficClass", nil, false)
}

func (c *Client) WanStats(ctx context.Context, principalID, customerID, locationID string, q StatsQuery) (any, error) {
	return c.locationGet(ctx, principalID, customerID, locationID, "wanStats", q.values(), true)
}

func (c *Client) OnlineStats(ctx context.Context, principalID, customerID, locationID string, q StatsQuery) (any, error) {
	return c.locationGet(ctx, principalID, customerID, locationID, "onlineStats", q.values(), true)
}

func (c *Client) locationGet(ctx context.Context, principalID, customerID, locationID, suffix string, query url.Values, reports bool) (any, error) {
	if err := requireIDs(customerID, locationID); err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("Customers/%s/locations/%s", url.PathEscape(customerID), url.PathEscape(locationID))
	if suffix != "" {
		endpoint += "/" + suffix
	}
	return c.Execute(ctx, principalID, Request{
		Endpoint:       endpoint,
		Query:          query,
		UseReportsBase: reports,
	})
}

func requireIDs(ids ...string) error {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: empty identifier", ErrInvalidArgument)
		}
	}
	return nil
}
