package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"raur/internal/ports"
	"raur/internal/shared"
	"raur/internal/types"
)

const (
	DefaultRPCURL = "https://aur.archlinux.org/rpc/"
	DefaultAURURL = "https://aur.archlinux.org"

	defaultRPCTimeout    = 30 * time.Second
	defaultRPCRetries    = 3
	defaultRPCRetryDelay = 200 * time.Millisecond
	defaultRPCBatchSize  = 100
	defaultRPCWorkers    = 4
	maxRPCRetryDelay     = 2 * time.Second
	maxRPCResponseBytes  = 32 << 20
	minSearchTermLength  = 2
)

// AURRPCAdapter talks to the AUR RPC v5 interface.
type AURRPCAdapter struct {
	RPCURL     string
	AURURL     string
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	BatchSize  int
	Workers    int
	Client     *http.Client
}

func NewAURRPCAdapter(rpcURL string, aurURL string, timeoutSec int, retries int, batchSize int, workers int) AURRPCAdapter {
	if strings.TrimSpace(rpcURL) == "" {
		rpcURL = DefaultRPCURL
	}
	if strings.TrimSpace(aurURL) == "" {
		aurURL = DefaultAURURL
	}
	timeout := time.Duration(timeoutSec) * time.Second
	if timeout <= 0 {
		timeout = defaultRPCTimeout
	}
	if retries <= 0 {
		retries = defaultRPCRetries
	}
	if batchSize <= 0 {
		batchSize = defaultRPCBatchSize
	}
	if workers <= 0 {
		workers = defaultRPCWorkers
	}
	return AURRPCAdapter{
		RPCURL:     rpcURL,
		AURURL:     strings.TrimRight(aurURL, "/"),
		Timeout:    timeout,
		Retries:    retries,
		RetryDelay: defaultRPCRetryDelay,
		BatchSize:  batchSize,
		Workers:    workers,
	}
}

type rpcResponse struct {
	Version     int         `json:"version"`
	Type        string      `json:"type"`
	ResultCount int         `json:"resultcount"`
	Results     []rpcResult `json:"results"`
	Error       string      `json:"error"`
}

type rpcResult struct {
	Name         string   `json:"Name"`
	PackageBase  string   `json:"PackageBase"`
	Version      string   `json:"Version"`
	Description  string   `json:"Description"`
	Maintainer   string   `json:"Maintainer"`
	Popularity   float64  `json:"Popularity"`
	OutOfDate    *int64   `json:"OutOfDate"`
	URLPath      string   `json:"URLPath"`
	Depends      []string `json:"Depends"`
	MakeDepends  []string `json:"MakeDepends"`
	CheckDepends []string `json:"CheckDepends"`
}

// Lookup queries the info endpoint. Names are split into batches that are
// fetched concurrently; the combined result does not depend on the order
// in which batches complete.
func (a AURRPCAdapter) Lookup(ctx context.Context, names []types.PackageName) (map[types.PackageName]types.PackageMetadata, error) {
	out := map[types.PackageName]types.PackageMetadata{}
	if len(names) == 0 {
		return out, nil
	}
	wanted := map[types.PackageName]struct{}{}
	for _, name := range names {
		wanted[name] = struct{}{}
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(a.workers())
	for _, batch := range chunkNames(names, a.batchSize()) {
		group.Go(func() error {
			resp, err := a.query(groupCtx, "info", batch)
			if err != nil {
				return err
			}
			for _, result := range resp.Results {
				meta, err := a.toMetadata(result)
				if err != nil {
					return err
				}
				if _, ok := wanted[meta.Name]; !ok {
					continue
				}
				mu.Lock()
				out[meta.Name] = meta
				mu.Unlock()
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Debug().Int("requested", len(names)).Int("found", len(out)).Msg("aur info lookup")
	return out, nil
}

// Search returns packages whose name or description matches term, most
// popular first.
func (a AURRPCAdapter) Search(ctx context.Context, term string) ([]types.PackageMetadata, error) {
	term = strings.TrimSpace(term)
	if len(term) < minSearchTermLength {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("search term must be at least %d characters", minSearchTermLength))
	}
	resp, err := a.query(ctx, "search", []types.PackageName{types.PackageName(term)})
	if err != nil {
		return nil, err
	}
	out := make([]types.PackageMetadata, 0, len(resp.Results))
	for _, result := range resp.Results {
		meta, err := a.toMetadata(result)
		if err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Popularity != out[j].Popularity {
			return out[i].Popularity > out[j].Popularity
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (a AURRPCAdapter) query(ctx context.Context, kind string, args []types.PackageName) (rpcResponse, error) {
	params := url.Values{}
	params.Set("v", "5")
	params.Set("type", kind)
	if kind == "search" {
		params.Set("by", "name-desc")
		params.Set("arg", string(args[0]))
	} else {
		for _, arg := range args {
			params.Add("arg[]", string(arg))
		}
	}
	endpoint := a.RPCURL
	if strings.Contains(endpoint, "?") {
		endpoint += "&" + params.Encode()
	} else {
		endpoint += "?" + params.Encode()
	}

	body, err := a.doRequest(ctx, endpoint)
	if err != nil {
		return rpcResponse{}, err
	}
	var resp rpcResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return rpcResponse{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("malformed aur rpc response").
			WithCause(err)
	}
	if resp.Type == "error" || resp.Error != "" {
		return rpcResponse{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("aur rpc error: %s", resp.Error))
	}
	if resp.Version != 0 && resp.Version != 5 {
		return rpcResponse{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("unsupported aur rpc version %d", resp.Version))
	}
	return resp, nil
}

func (a AURRPCAdapter) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < a.retries(); attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		body, retry, err := a.doRequestOnce(ctx, endpoint)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry || attempt == a.retries()-1 {
			return nil, err
		}
		log.Ctx(ctx).Debug().Err(err).Int("attempt", attempt+1).Msg("retrying aur rpc request")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.retryDelay(attempt)):
		}
	}
	return nil, lastErr
}

func (a AURRPCAdapter) doRequestOnce(ctx context.Context, endpoint string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to create aur rpc request").
			WithCause(err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := a.client().Do(req)
	if err != nil {
		return nil, true, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("aur rpc request failed").
			WithCause(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRPCResponseBytes))
	if err != nil {
		return nil, true, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read aur rpc response").
			WithCause(err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, false, nil
	}
	retry := resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
	return nil, retry, errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("aur rpc request failed").
		WithCause(shared.HTTPStatusError(resp.StatusCode, endpoint))
}

// toMetadata validates a raw result at the boundary. Anything that does
// not parse is rejected instead of being passed on loosely typed.
func (a AURRPCAdapter) toMetadata(result rpcResult) (types.PackageMetadata, error) {
	name, err := shared.ValidatePackageName(result.Name)
	if err != nil {
		return types.PackageMetadata{}, malformedResult(result.Name, err)
	}
	if strings.TrimSpace(result.Version) == "" {
		return types.PackageMetadata{}, malformedResult(result.Name, fmt.Errorf("empty version"))
	}
	base := result.PackageBase
	if base == "" {
		base = result.Name
	}
	if _, err := shared.ValidatePackageName(base); err != nil {
		return types.PackageMetadata{}, malformedResult(result.Name, err)
	}
	meta := types.PackageMetadata{
		Name:         name,
		PackageBase:  base,
		Version:      result.Version,
		Description:  result.Description,
		Maintainer:   result.Maintainer,
		Popularity:   result.Popularity,
		OutOfDate:    result.OutOfDate != nil,
		RecipeSource: fmt.Sprintf("%s/%s.git", a.AURURL, base),
		SnapshotPath: result.URLPath,
	}
	for _, raw := range append(append([]string{}, result.MakeDepends...), result.CheckDepends...) {
		dep, err := shared.ParseDependency(raw)
		if err != nil {
			return types.PackageMetadata{}, malformedResult(result.Name, err)
		}
		meta.BuildDependencies = append(meta.BuildDependencies, dep)
	}
	for _, raw := range result.Depends {
		dep, err := shared.ParseDependency(raw)
		if err != nil {
			return types.PackageMetadata{}, malformedResult(result.Name, err)
		}
		meta.RuntimeDependencies = append(meta.RuntimeDependencies, dep)
	}
	return meta, nil
}

func malformedResult(name string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("malformed aur metadata for %q", name)).
		WithCause(err)
}

func chunkNames(names []types.PackageName, size int) [][]types.PackageName {
	var out [][]types.PackageName
	for start := 0; start < len(names); start += size {
		end := start + size
		if end > len(names) {
			end = len(names)
		}
		out = append(out, names[start:end])
	}
	return out
}

func (a AURRPCAdapter) retryDelay(attempt int) time.Duration {
	base := a.RetryDelay
	if base <= 0 {
		base = defaultRPCRetryDelay
	}
	delay := base * time.Duration(1<<attempt)
	if delay > maxRPCRetryDelay {
		delay = maxRPCRetryDelay
	}
	jitter := time.Duration(time.Now().UnixNano() % int64(delay/2+1))
	return delay + jitter
}

func (a AURRPCAdapter) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return &http.Client{Timeout: a.Timeout}
}

func (a AURRPCAdapter) retries() int {
	if a.Retries <= 0 {
		return defaultRPCRetries
	}
	return a.Retries
}

func (a AURRPCAdapter) batchSize() int {
	if a.BatchSize <= 0 {
		return defaultRPCBatchSize
	}
	return a.BatchSize
}

func (a AURRPCAdapter) workers() int {
	if a.Workers <= 0 {
		return defaultRPCWorkers
	}
	return a.Workers
}

var (
	_ ports.MetadataPort = AURRPCAdapter{}
	_ ports.SearchPort   = AURRPCAdapter{}
)
