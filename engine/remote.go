package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"treesearch/environment"
	"treesearch/session"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RemoteTrace is the trace endpoint's response.
type RemoteTrace struct {
	Success       bool           `json:"success"`
	Answer        any            `json:"answer"`
	State         map[string]any `json:"state"`
	Error         *string        `json:"error"`
	StepsExecuted int            `json:"steps_executed"`
	Formatted     string         `json:"formatted"`
	RunID         string         `json:"run_id"`
}

// Remote plays episodes on a treesearch server. The whole plan is sent in one
// request, so moves are not observed while the episode runs.
type Remote struct {
	BaseURL string
	Client  *http.Client
}

var _ Runner = (*Remote)(nil)

func NewRemote(baseURL string) *Remote {
	return &Remote{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

func (r *Remote) Run(ctx context.Context, cfg EpisodeConfig) (Episode, error) {
	if err := validate.Struct(cfg); err != nil {
		return Episode{}, fmt.Errorf("%w: episode: %v", environment.ErrConfiguration, err)
	}

	ops := Plan(cfg, cfg.maxSteps())
	ep := Episode{Env: cfg.Env, Seed: cfg.Seed, Ops: ops, Start: time.Now()}

	log.Info().Str("env", cfg.Env).Str("url", r.BaseURL).Msg("requesting remote episode")
	remote, err := r.Trace(ctx, ops)
	ep.End = time.Now()
	if err != nil {
		return ep, err
	}

	ep.ID = remote.RunID
	ep.Trace = session.Trace{
		Success:       remote.Success,
		Answer:        remote.Answer,
		Vars:          remote.State,
		StepsExecuted: remote.StepsExecuted,
	}
	if remote.Error != nil {
		ep.Trace.Error = *remote.Error
		return ep, fmt.Errorf("remote trace: %s", *remote.Error)
	}

	for step := 1; step <= cfg.maxSteps(); step++ {
		action, ok := remote.State[actionVar(step)]
		if !ok || action == nil {
			break
		}
		ep.Actions = append(ep.Actions, action)
	}
	ep.Reward = rewardOf(remote.State)
	ep.Success = solved(ep.Reward)
	return ep, nil
}

// Trace posts ops to the server's trace endpoint.
func (r *Remote) Trace(ctx context.Context, ops []session.Op) (RemoteTrace, error) {
	steps, err := session.Steps(ops)
	if err != nil {
		return RemoteTrace{}, err
	}
	body, err := json.Marshal(map[string]any{"trace": steps})
	if err != nil {
		return RemoteTrace{}, fmt.Errorf("encode plan: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/v1/trace", bytes.NewReader(body))
	if err != nil {
		return RemoteTrace{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return RemoteTrace{}, fmt.Errorf("post trace: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return RemoteTrace{}, fmt.Errorf("read trace response: %w", err)
	}
	var out RemoteTrace
	if err := json.Unmarshal(data, &out); err != nil {
		return RemoteTrace{}, fmt.Errorf("server returned status %d: %s", resp.StatusCode, data)
	}
	if resp.StatusCode != http.StatusOK && out.Error == nil {
		msg := fmt.Sprintf("server returned status %d", resp.StatusCode)
		out.Error = &msg
	}
	return out, nil
}
