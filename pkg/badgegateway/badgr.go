package badgegateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// tokenSafetyMargin is the lead time before actual expiry at which a
// bearer token is considered stale and eagerly refreshed, per spec §4.4.
const tokenSafetyMargin = 100 * time.Second

// BadgrGateway is the Gateway implementation against a Badgr-compatible
// Open Badges API, grounded on the original BadgrUtils controller's
// token-then-POST flow.
type BadgrGateway struct {
	endpoint   string
	user       string
	pass       string
	httpClient *http.Client
	log        *zap.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewBadgrGateway builds a BadgrGateway against endpoint. The bearer
// token is fetched lazily on first use, not in the constructor, so
// construction never fails on a transient auth outage.
func NewBadgrGateway(endpoint, user, pass string, log *zap.Logger) *BadgrGateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &BadgrGateway{
		endpoint:   strings.TrimRight(endpoint, "/"),
		user:       user,
		pass:       pass,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

func (g *BadgrGateway) validToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token != "" && time.Now().Add(tokenSafetyMargin).Before(g.expiresAt) {
		return g.token, nil
	}

	form := url.Values{"username": {g.user}, "password": {g.pass}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/o/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", newGatewayError("auth", 0, err.Error(), err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", newGatewayError("auth", 0, err.Error(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", newGatewayError("auth", resp.StatusCode, resp.Status, nil)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", newGatewayError("auth", 0, "decoding token response: "+err.Error(), err)
	}
	g.token = tok.AccessToken
	if tok.ExpiresIn > 0 {
		g.expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	} else {
		g.expiresAt = jwtExpiry(g.token, time.Now().Add(tokenSafetyMargin))
	}
	g.log.Debug("refreshed badgr bearer token", zap.Time("expires_at", g.expiresAt))
	return g.token, nil
}

// jwtExpiry reads the "exp" claim off a JWT-encoded access token without
// verifying its signature: the issuer already authenticated the request
// that returned it, so only the claims are of interest here. fallback is
// used when the token is opaque (no exp claim, or not a JWT at all).
func jwtExpiry(token string, fallback time.Time) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fallback
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fallback
	}
	return exp.Time
}

func (g *BadgrGateway) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	token, err := g.validToken(ctx)
	if err != nil {
		return nil, err
	}
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.endpoint+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return g.httpClient.Do(req)
}

type badgrResult[T any] struct {
	Result          []T      `json:"result"`
	FieldErrors     []string `json:"fieldErrors"`
	ValidationErrors []string `json:"validationErrors"`
}

func (r badgrResult[T]) errors() string {
	var parts []string
	parts = append(parts, r.FieldErrors...)
	parts = append(parts, r.ValidationErrors...)
	return strings.Join(parts, "; ")
}

type issuerEntity struct {
	EntityID string `json:"entityId"`
	Name     string `json:"name"`
}

type badgeClassEntity struct {
	EntityID string `json:"entityId"`
	Name     string `json:"name"`
}

// ResolveBadgeClass queries the issuer list by name, then the badge-class
// list within that issuer by name, erroring unless exactly one match is
// found at each step.
func (g *BadgrGateway) ResolveBadgeClass(ctx context.Context, issuerName, className string) (string, error) {
	resp, err := g.do(ctx, http.MethodGet, "/v2/issuers", nil)
	if err != nil {
		return "", newGatewayError("ResolveBadgeClass", 0, err.Error(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", newGatewayError("ResolveBadgeClass", resp.StatusCode, resp.Status, nil)
	}
	var issuers badgrResult[issuerEntity]
	if err := json.NewDecoder(resp.Body).Decode(&issuers); err != nil {
		return "", newGatewayError("ResolveBadgeClass", 0, "decoding issuer list: "+err.Error(), err)
	}
	if errs := issuers.errors(); errs != "" {
		return "", newGatewayError("ResolveBadgeClass", resp.StatusCode, errs, nil)
	}

	issuerID, err := exactlyOneMatch(issuers.Result, issuerName, func(i issuerEntity) string { return i.Name }, func(i issuerEntity) string { return i.EntityID })
	if err != nil {
		return "", newGatewayError("ResolveBadgeClass", 0, fmt.Sprintf("issuer %q: %s", issuerName, err), err)
	}

	classResp, err := g.do(ctx, http.MethodGet, fmt.Sprintf("/v2/issuers/%s/badgeclasses", issuerID), nil)
	if err != nil {
		return "", newGatewayError("ResolveBadgeClass", 0, err.Error(), err)
	}
	defer classResp.Body.Close()
	if classResp.StatusCode >= 300 {
		return "", newGatewayError("ResolveBadgeClass", classResp.StatusCode, classResp.Status, nil)
	}
	var classes badgrResult[badgeClassEntity]
	if err := json.NewDecoder(classResp.Body).Decode(&classes); err != nil {
		return "", newGatewayError("ResolveBadgeClass", 0, "decoding badge class list: "+err.Error(), err)
	}
	if errs := classes.errors(); errs != "" {
		return "", newGatewayError("ResolveBadgeClass", classResp.StatusCode, errs, nil)
	}

	classID, err := exactlyOneMatch(classes.Result, className, func(c badgeClassEntity) string { return c.Name }, func(c badgeClassEntity) string { return c.EntityID })
	if err != nil {
		return "", newGatewayError("ResolveBadgeClass", 0, fmt.Sprintf("badge class %q: %s", className, err), err)
	}
	return classID, nil
}

func exactlyOneMatch[T any](items []T, name string, nameOf func(T) string, idOf func(T) string) (string, error) {
	var matchedID string
	count := 0
	for _, item := range items {
		if nameOf(item) == name {
			matchedID = idOf(item)
			count++
		}
	}
	switch count {
	case 0:
		return "", fmt.Errorf("no match")
	case 1:
		return matchedID, nil
	default:
		return "", fmt.Errorf("%d ambiguous matches", count)
	}
}

// Issue composes the narrative text listing fulfilled criteria per
// baseline and posts the assertion, matching BadgrUtils.issue_badge.
func (g *BadgrGateway) Issue(ctx context.Context, classID, commitID, commitURL, ciBuildURL string, swCriteria, srvCriteria []string) (Assertion, error) {
	narrative := composeNarrative(swCriteria, srvCriteria)

	payload := map[string]any{
		"recipient": map[string]any{
			"identity": commitURL,
			"hashed":   true,
			"type":     "url",
		},
		"narrative": narrative,
		"evidence": []map[string]any{
			{
				"url": ciBuildURL,
				"narrative": strings.Join([]string{
					fmt.Sprintf("- Version validated (commit): %s", commitID),
					fmt.Sprintf("- Build URL in the CI system: %s", ciBuildURL),
				}, "\n"),
			},
		},
	}

	resp, err := g.do(ctx, http.MethodPost, fmt.Sprintf("/v2/badgeclasses/%s/assertions", classID), payload)
	if err != nil {
		return Assertion{}, newGatewayError("Issue", 0, err.Error(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Assertion{}, newGatewayError("Issue", resp.StatusCode, resp.Status, nil)
	}

	var assertions badgrResult[map[string]any]
	if err := json.NewDecoder(resp.Body).Decode(&assertions); err != nil {
		return Assertion{}, newGatewayError("Issue", 0, "decoding assertion response: "+err.Error(), err)
	}
	if errs := assertions.errors(); errs != "" {
		return Assertion{}, newGatewayError("Issue", resp.StatusCode, errs, nil)
	}
	if len(assertions.Result) == 0 {
		return Assertion{}, newGatewayError("Issue", 0, "response carried no assertion result", nil)
	}
	raw := assertions.Result[0]

	assertion := Assertion{Raw: raw, CreatedAt: time.Now()}
	if id, ok := raw["openBadgeId"].(string); ok {
		assertion.OpenBadgeID = id
	}
	if img, ok := raw["image"].(string); ok {
		assertion.Image = img
	}
	return assertion, nil
}

func composeNarrative(swCriteria, srvCriteria []string) string {
	var sections []string
	if msg := bulletList(swCriteria); msg != "" {
		sections = append(sections, "Successful validation of Software QA criteria:\n"+msg)
	}
	if msg := bulletList(srvCriteria); msg != "" {
		sections = append(sections, "Successful validation of Service QA criteria:\n"+msg)
	}
	return strings.Join(sections, "\n\n")
}

func bulletList(criteria []string) string {
	if len(criteria) == 0 {
		return ""
	}
	var b strings.Builder
	for _, c := range criteria {
		b.WriteString(fmt.Sprintf("- [%s]()\n", c))
	}
	return b.String()
}

var _ Gateway = (*BadgrGateway)(nil)
