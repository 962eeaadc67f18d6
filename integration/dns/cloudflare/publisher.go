package cloudflare

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/challenge/dns01"
)

const defaultBaseURL = "https://api.cloudflare.com/client/v4"

// credentialKey is the key the certificate manager writes the bearer token
// under in the per-run credential file.
const credentialKey = "dns_api_token"

// Publisher creates and removes DNS-01 challenge TXT records via the
// Cloudflare API.
type Publisher struct {
	token   string
	baseURL string
	client  *http.Client

	mu        sync.Mutex
	recordIDs map[string]string // challenge FQDN -> record ID, for cleanup
	zoneIDs   map[string]string // zone name -> zone ID cache
}

// NewPublisher reads the bearer token from the credential file and returns a
// challenge publisher. Satisfies certificate.PublisherFactory.
func NewPublisher(credentialsPath string) (challenge.Provider, error) {
	token, err := readCredential(credentialsPath)
	if err != nil {
		return nil, err
	}
	return newWithToken(token, defaultBaseURL), nil
}

func newWithToken(token, baseURL string) *Publisher {
	return &Publisher{
		token:     token,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		recordIDs: make(map[string]string),
		zoneIDs:   make(map[string]string),
	}
}

// Present publishes the challenge TXT record for domain.
func (p *Publisher) Present(domain, token, keyAuth string) error {
	info := dns01.GetChallengeInfo(domain, keyAuth)

	zoneName, err := dns01.FindZoneByFqdn(info.EffectiveFQDN)
	if err != nil {
		return fmt.Errorf("find zone for %s: %w", info.EffectiveFQDN, err)
	}

	zoneID, err := p.zoneID(strings.TrimSuffix(zoneName, "."))
	if err != nil {
		return err
	}

	recordID, err := p.createTXT(zoneID, strings.TrimSuffix(info.EffectiveFQDN, "."), info.Value)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.recordIDs[info.EffectiveFQDN] = zoneID + "/" + recordID
	p.mu.Unlock()
	return nil
}

// CleanUp removes the challenge TXT record created by Present.
func (p *Publisher) CleanUp(domain, token, keyAuth string) error {
	info := dns01.GetChallengeInfo(domain, keyAuth)

	p.mu.Lock()
	ref, ok := p.recordIDs[info.EffectiveFQDN]
	delete(p.recordIDs, info.EffectiveFQDN)
	p.mu.Unlock()

	if !ok {
		return nil
	}

	parts := strings.SplitN(ref, "/", 2)
	return p.deleteTXT(parts[0], parts[1])
}

type apiResponse struct {
	Success bool            `json:"success"`
	Errors  []apiError      `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (p *Publisher) zoneID(zoneName string) (string, error) {
	p.mu.Lock()
	if id, ok := p.zoneIDs[zoneName]; ok {
		p.mu.Unlock()
		return id, nil
	}
	p.mu.Unlock()

	var zones []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	query := url.Values{"name": {zoneName}, "status": {"active"}}
	if err := p.do(http.MethodGet, "/zones?"+query.Encode(), nil, &zones); err != nil {
		return "", fmt.Errorf("list zones: %w", err)
	}
	if len(zones) == 0 {
		return "", fmt.Errorf("no active cloudflare zone for %s", zoneName)
	}

	p.mu.Lock()
	p.zoneIDs[zoneName] = zones[0].ID
	p.mu.Unlock()
	return zones[0].ID, nil
}

func (p *Publisher) createTXT(zoneID, fqdn, value string) (string, error) {
	payload := map[string]any{
		"type":    "TXT",
		"name":    fqdn,
		"content": value,
		"ttl":     120,
	}

	var record struct {
		ID string `json:"id"`
	}
	if err := p.do(http.MethodPost, "/zones/"+zoneID+"/dns_records", payload, &record); err != nil {
		return "", fmt.Errorf("create challenge record %s: %w", fqdn, err)
	}
	return record.ID, nil
}

func (p *Publisher) deleteTXT(zoneID, recordID string) error {
	if err := p.do(http.MethodDelete, "/zones/"+zoneID+"/dns_records/"+recordID, nil, nil); err != nil {
		return fmt.Errorf("delete challenge record: %w", err)
	}
	return nil
}

func (p *Publisher) do(method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, p.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var apiResp apiResponse
	if err := json.Unmarshal(data, &apiResp); err != nil {
		return fmt.Errorf("unexpected cloudflare response (%d): %w", resp.StatusCode, err)
	}
	if !apiResp.Success {
		if len(apiResp.Errors) > 0 {
			return fmt.Errorf("cloudflare api error %d: %s", apiResp.Errors[0].Code, apiResp.Errors[0].Message)
		}
		return fmt.Errorf("cloudflare api request failed with status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(apiResp.Result, out); err != nil {
			return fmt.Errorf("decode cloudflare result: %w", err)
		}
	}
	return nil
}

// readCredential parses the key=value credential file written for one
// issuance run and extracts the bearer token.
func readCredential(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read dns credentials: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		if strings.TrimSpace(key) == credentialKey {
			token := strings.TrimSpace(value)
			if token == "" {
				break
			}
			return token, nil
		}
	}
	return "", fmt.Errorf("credential file %s does not contain %s", path, credentialKey)
}
