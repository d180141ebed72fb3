package cigateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alvarolopez/sqaaas-api-server/internal/domain"
)

// resultToStatus maps the engine's terminal build result onto the status
// set from §3. Jenkins reports no result while a build is in progress;
// callers are expected to only ask once a build number exists.
var resultToStatus = map[string]domain.BuildStatus{
	"SUCCESS":  domain.BuildStatusSuccess,
	"UNSTABLE": domain.BuildStatusUnstable,
	"FAILURE":  domain.BuildStatusFailure,
	"ABORTED":  domain.BuildStatusAborted,
}

// JenkinsGateway is the Gateway implementation against a Jenkins-style CI
// engine's REST API, authenticated with basic auth and an API token (no
// crumb is requested), the same token-based access the original
// JenkinsUtils controller used via python-jenkins.
type JenkinsGateway struct {
	endpoint   string
	user       string
	token      string
	httpClient *http.Client
	log        *zap.Logger
}

// NewJenkinsGateway builds a JenkinsGateway against endpoint, authenticated
// with a Jenkins API token. A nil logger defaults to zap.NewNop().
func NewJenkinsGateway(endpoint, user, token string, log *zap.Logger) *JenkinsGateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &JenkinsGateway{
		endpoint:   strings.TrimRight(endpoint, "/"),
		user:       user,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// FormatBranch double-encodes '/' as %252F, matching JenkinsUtils.format_job_name.
func (g *JenkinsGateway) FormatBranch(branch string) string {
	return url.QueryEscape(strings.ReplaceAll(branch, "/", "%2F"))
}

func (g *JenkinsGateway) jobPath(fullJobName string) string {
	segments := strings.Split(fullJobName, "/")
	var b strings.Builder
	for _, seg := range segments {
		b.WriteString("/job/")
		b.WriteString(seg)
	}
	return b.String()
}

func (g *JenkinsGateway) request(ctx context.Context, method, path string, query url.Values) (*http.Response, error) {
	full := g.endpoint + path
	if query != nil {
		full += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, full, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(g.user, g.token)
	return g.httpClient.Do(req)
}

func (g *JenkinsGateway) ScanOrganization(ctx context.Context, org string) error {
	resp, err := g.request(ctx, http.MethodPost, fmt.Sprintf("/job/%s/build", org), url.Values{"delay": {"0"}})
	if err != nil {
		return newGatewayError("ScanOrganization", 0, err.Error(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return newGatewayError("ScanOrganization", resp.StatusCode, resp.Status, nil)
	}
	g.log.Debug("triggered organization scan", zap.String("org", org))
	return nil
}

func (g *JenkinsGateway) JobExists(ctx context.Context, fullJobName string) (bool, error) {
	resp, err := g.request(ctx, http.MethodGet, g.jobPath(fullJobName)+"/api/json", nil)
	if err != nil {
		return false, newGatewayError("JobExists", 0, err.Error(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode >= 300 {
		return false, newGatewayError("JobExists", resp.StatusCode, resp.Status, nil)
	}
	return true, nil
}

// jobInfo mirrors the subset of Jenkins' job API JSON this gateway reads.
type jobInfo struct {
	LastBuild *struct {
		Number int    `json:"number"`
		URL    string `json:"url"`
	} `json:"lastBuild"`
}

// JobInfo returns the raw last-build pointer, used by the orchestrator
// when reconciling a WAITING_SCAN_ORG job.
func (g *JenkinsGateway) JobInfo(ctx context.Context, fullJobName string) (url string, number int, found bool, err error) {
	resp, reqErr := g.request(ctx, http.MethodGet, g.jobPath(fullJobName)+"/api/json", nil)
	if reqErr != nil {
		return "", 0, false, newGatewayError("JobInfo", 0, reqErr.Error(), reqErr)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", 0, false, nil
	}
	if resp.StatusCode >= 300 {
		return "", 0, false, newGatewayError("JobInfo", resp.StatusCode, resp.Status, nil)
	}
	var info jobInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", 0, false, newGatewayError("JobInfo", 0, "decoding response: "+err.Error(), err)
	}
	if info.LastBuild == nil {
		return "", 0, false, nil
	}
	return info.LastBuild.URL, info.LastBuild.Number, true, nil
}

func (g *JenkinsGateway) TriggerBuild(ctx context.Context, fullJobName string) (int, error) {
	resp, err := g.request(ctx, http.MethodPost, g.jobPath(fullJobName)+"/build", nil)
	if err != nil {
		return 0, newGatewayError("TriggerBuild", 0, err.Error(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return 0, newGatewayError("TriggerBuild", resp.StatusCode, resp.Status, nil)
	}
	location := resp.Header.Get("Location")
	itemNo, err := parseQueueItemNumber(location)
	if err != nil {
		return 0, newGatewayError("TriggerBuild", 0, "could not parse queue item number from Location header", err)
	}
	g.log.Debug("triggered job build", zap.String("job", fullJobName), zap.Int("queue_item", itemNo))
	return itemNo, nil
}

func parseQueueItemNumber(location string) (int, error) {
	trimmed := strings.TrimRight(location, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return 0, fmt.Errorf("unexpected Location header %q", location)
	}
	return strconv.Atoi(trimmed[idx+1:])
}

type queueItemResponse struct {
	Executable *struct {
		URL    string `json:"url"`
		Number int    `json:"number"`
	} `json:"executable"`
}

func (g *JenkinsGateway) QueueItem(ctx context.Context, queueItemNo int) (QueueItem, bool, error) {
	resp, err := g.request(ctx, http.MethodGet, fmt.Sprintf("/queue/item/%d/api/json", queueItemNo), nil)
	if err != nil {
		return QueueItem{}, false, newGatewayError("QueueItem", 0, err.Error(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return QueueItem{}, false, newGatewayError("QueueItem", resp.StatusCode, resp.Status, nil)
	}
	var item queueItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return QueueItem{}, false, newGatewayError("QueueItem", 0, "decoding response: "+err.Error(), err)
	}
	if item.Executable == nil {
		g.log.Debug("waiting for job to start", zap.Int("queue_item", queueItemNo))
		return QueueItem{}, false, nil
	}
	return QueueItem{URL: item.Executable.URL, Number: item.Executable.Number}, true, nil
}

type buildInfoResponse struct {
	Result string `json:"result"`
}

func (g *JenkinsGateway) BuildStatus(ctx context.Context, fullJobName string, buildNumber int) (domain.BuildStatus, error) {
	resp, err := g.request(ctx, http.MethodGet, fmt.Sprintf("%s/%d/api/json", g.jobPath(fullJobName), buildNumber), nil)
	if err != nil {
		return "", newGatewayError("BuildStatus", 0, err.Error(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", newGatewayError("BuildStatus", resp.StatusCode, resp.Status, nil)
	}
	var info buildInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", newGatewayError("BuildStatus", 0, "decoding response: "+err.Error(), err)
	}
	if info.Result == "" {
		return domain.BuildStatusExecuting, nil
	}
	status, ok := resultToStatus[info.Result]
	if !ok {
		return "", newGatewayError("BuildStatus", 0, fmt.Sprintf("unrecognized build result %q", info.Result), nil)
	}
	return status, nil
}

func (g *JenkinsGateway) DeleteJob(ctx context.Context, fullJobName string) error {
	resp, err := g.request(ctx, http.MethodPost, g.jobPath(fullJobName)+"/doDelete", nil)
	if err != nil {
		return newGatewayError("DeleteJob", 0, err.Error(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return newGatewayError("DeleteJob", resp.StatusCode, resp.Status, nil)
	}
	g.log.Debug("deleted job", zap.String("job", fullJobName))
	return nil
}

var _ Gateway = (*JenkinsGateway)(nil)
