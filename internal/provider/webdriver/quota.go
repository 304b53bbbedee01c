package webdriver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

// QuotaFunc fetches an account's concurrency limit from a provider REST API
type QuotaFunc func(ctx context.Context, client *http.Client, apiURL string, creds models.Credentials) (int, error)

// SauceQuota reads the remaining overall concurrency of a Sauce Labs account
func SauceQuota(ctx context.Context, client *http.Client, apiURL string, creds models.Credentials) (int, error) {
	var reply struct {
		Concurrency map[string]struct {
			Remaining struct {
				Overall int `json:"overall"`
			} `json:"remaining"`
		} `json:"concurrency"`
	}

	endpoint := apiURL + "/rest/v1/users/" + url.PathEscape(creds.UserName) + "/concurrency"
	if err := getJSON(ctx, client, endpoint, creds, &reply); err != nil {
		return 0, err
	}

	account, ok := reply.Concurrency[creds.UserName]
	if !ok {
		return 0, fmt.Errorf("concurrency reply has no entry for %q", creds.UserName)
	}
	return account.Remaining.Overall, nil
}

// BrowserStackQuota reads the parallel session allowance of a BrowserStack Automate plan
func BrowserStackQuota(ctx context.Context, client *http.Client, apiURL string, creds models.Credentials) (int, error) {
	var reply struct {
		ParallelSessionsMaxAllowed *int `json:"parallel_sessions_max_allowed"`
	}

	if err := getJSON(ctx, client, apiURL+"/automate/plan.json", creds, &reply); err != nil {
		return 0, err
	}
	if reply.ParallelSessionsMaxAllowed == nil {
		return 0, fmt.Errorf("plan reply has no parallel_sessions_max_allowed")
	}
	return *reply.ParallelSessionsMaxAllowed, nil
}

func getJSON(ctx context.Context, client *http.Client, endpoint string, creds models.Credentials, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(creds.UserName, creds.AccessToken)
	req.Header.Set("Accept", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return fmt.Errorf("credentials rejected (HTTP %d)", res.StatusCode)
	case res.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("unexpected HTTP %d from %s", res.StatusCode, strings.SplitN(endpoint, "?", 2)[0])
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode reply: %w", err)
	}
	return nil
}
