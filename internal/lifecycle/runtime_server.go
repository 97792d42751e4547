package lifecycle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"predictd/internal/registry"
)

// ServerRuntimeConfig configures the spawned llama-server process.
type ServerRuntimeConfig struct {
	// Bin is the llama-server binary. The process is always launched with a
	// local GGUF path and fixed arguments; it never receives a remote model
	// source, so no downloaded code can run as part of a load.
	Bin     string
	Host    string
	CtxSize int
	Threads int
	// CandidatePool is how many top candidates the server reports per forward
	// pass. Must comfortably exceed the largest top_k plus filtering headroom.
	CandidatePool int
	StartTimeout  time.Duration

	Logger *zerolog.Logger
}

const (
	defaultCandidatePool = 100
	defaultStartTimeout  = 60 * time.Second
)

// serverRuntime drives one llama-server subprocess over localhost HTTP.
type serverRuntime struct {
	cfg     ServerRuntimeConfig
	baseURL string
	cmd     *exec.Cmd
	client  *http.Client
	info    ModelInfo
	log     zerolog.Logger
}

// NewServerRuntimeFactory returns a RuntimeFactory spawning llama-server for
// the resolved model file.
func NewServerRuntimeFactory(cfg ServerRuntimeConfig) RuntimeFactory {
	return func(ctx context.Context, mdl registry.Model) (Runtime, error) {
		return spawnServerRuntime(ctx, cfg, mdl)
	}
}

func spawnServerRuntime(ctx context.Context, cfg ServerRuntimeConfig, mdl registry.Model) (Runtime, error) {
	if strings.TrimSpace(cfg.Bin) == "" {
		cfg.Bin = "llama-server"
	}
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.CandidatePool <= 0 {
		cfg.CandidatePool = defaultCandidatePool
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = defaultStartTimeout
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	port, err := pickFreePort(cfg.Host)
	if err != nil {
		return nil, err
	}
	baseURL := fmt.Sprintf("http://%s:%d", cfg.Host, port)

	args := []string{
		"-m", mdl.Path,
		"--host", cfg.Host,
		"--port", fmt.Sprint(port),
	}
	if cfg.CtxSize > 0 {
		args = append(args, "-c", fmt.Sprint(cfg.CtxSize))
	}
	if cfg.Threads > 0 {
		args = append(args, "-t", fmt.Sprint(cfg.Threads))
	}

	cmd := exec.Command(cfg.Bin, args...)
	// Capture stderr for diagnostics; the tail is included on failure.
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cfg.Bin, err)
	}
	log.Info().Str("model", mdl.Name).Int("pid", cmd.Process.Pid).Int("port", port).Msg("llama-server spawned")

	rt := &serverRuntime{
		cfg:     cfg,
		baseURL: baseURL,
		cmd:     cmd,
		// Timeout intentionally 0: every call carries a context deadline.
		client: &http.Client{Timeout: 0},
		log:    log,
	}

	if err := rt.waitReady(ctx, &stderr); err != nil {
		_ = rt.Close()
		return nil, err
	}
	if err := rt.probeProps(ctx, mdl); err != nil {
		_ = rt.Close()
		return nil, err
	}
	return rt, nil
}

// waitReady polls the server health endpoint until it answers, watching for
// early process exit so a bad model file fails fast instead of timing out.
func (rt *serverRuntime) waitReady(ctx context.Context, stderr *bytes.Buffer) error {
	waitErrCh := make(chan error, 1)
	go func() { waitErrCh <- rt.cmd.Wait() }()

	deadline := time.Now().Add(rt.cfg.StartTimeout)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("llama-server not ready in time: %s", rt.baseURL)
		}
		select {
		case werr := <-waitErrCh:
			tail := stderr.String()
			if len(tail) > 4096 {
				tail = tail[len(tail)-4096:]
			}
			if werr != nil {
				return fmt.Errorf("llama-server exited early: %v; stderr tail: %s", werr, tail)
			}
			return fmt.Errorf("llama-server exited before ready: %s", rt.baseURL)
		default:
		}

		hctx, cancel := context.WithTimeout(ctx, 1*time.Second)
		req, _ := http.NewRequestWithContext(hctx, http.MethodGet, rt.baseURL+"/health", nil)
		resp, err := rt.client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				cancel()
				rt.log.Info().Str("url", rt.baseURL).Msg("llama-server ready")
				return nil
			}
		}
		cancel()
		time.Sleep(100 * time.Millisecond)
	}
}

// propsResponse is the subset of GET /props this runtime consumes.
type propsResponse struct {
	ModelPath  string `json:"model_path"`
	NVocab     int    `json:"n_vocab"`
	EOSTokenID int    `json:"eos_token_id"`
	PadTokenID int    `json:"pad_token_id"`
}

// probeProps reads tokenizer metadata. A server reporting no pad token gets
// the EOS token id reused so downstream truncation always has one.
func (rt *serverRuntime) probeProps(ctx context.Context, mdl registry.Model) error {
	var props propsResponse
	props.PadTokenID = -1
	props.EOSTokenID = -1
	if err := rt.getJSON(ctx, "/props", &props); err != nil {
		return fmt.Errorf("probe props: %w", err)
	}
	pad := props.PadTokenID
	if pad < 0 {
		pad = props.EOSTokenID
	}
	rt.info = ModelInfo{
		Name:       mdl.Name,
		Path:       mdl.Path,
		VocabSize:  props.NVocab,
		EOSTokenID: props.EOSTokenID,
		PadTokenID: pad,
	}
	return nil
}

func (rt *serverRuntime) Info() ModelInfo { return rt.info }

type tokenizeRequest struct {
	Content string `json:"content"`
}

type tokenizeResponse struct {
	Tokens []int `json:"tokens"`
}

func (rt *serverRuntime) Encode(ctx context.Context, text string) ([]int, error) {
	var out tokenizeResponse
	if err := rt.postJSON(ctx, "/tokenize", tokenizeRequest{Content: text}, &out); err != nil {
		return nil, err
	}
	return out.Tokens, nil
}

type detokenizeRequest struct {
	Tokens []int `json:"tokens"`
}

type detokenizeResponse struct {
	Content string `json:"content"`
}

func (rt *serverRuntime) Decode(ctx context.Context, id int) (string, error) {
	var out detokenizeResponse
	if err := rt.postJSON(ctx, "/detokenize", detokenizeRequest{Tokens: []int{id}}, &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

// completionRequest asks for a single step with per-token log-probabilities.
type completionRequest struct {
	Prompt           []int   `json:"prompt"`
	NPredict         int     `json:"n_predict"`
	NProbs           int     `json:"n_probs"`
	Temperature      float64 `json:"temperature"`
	PostSamplingProb bool    `json:"post_sampling_probs"`
}

type completionResponse struct {
	CompletionProbabilities []struct {
		Probs []struct {
			ID      int     `json:"id"`
			Token   string  `json:"token"`
			Logprob float64 `json:"logprob"`
		} `json:"probs"`
	} `json:"completion_probabilities"`
}

// Logits runs one forward step and materializes the reported candidate
// log-probabilities into a dense vocabulary-sized logit vector. Absent
// entries are -Inf, which a stable softmax maps to probability zero; a
// log-probability differs from the raw logit only by a constant shift, so
// ranking and renormalized probabilities are unchanged.
func (rt *serverRuntime) Logits(ctx context.Context, ids []int) ([]float32, error) {
	if len(ids) == 0 {
		return nil, errors.New("empty token sequence")
	}
	req := completionRequest{
		Prompt:      ids,
		NPredict:    1,
		NProbs:      rt.cfg.CandidatePool,
		Temperature: 1.0,
	}
	var out completionResponse
	if err := rt.postJSON(ctx, "/completion", req, &out); err != nil {
		return nil, err
	}
	if len(out.CompletionProbabilities) == 0 || len(out.CompletionProbabilities[0].Probs) == 0 {
		return nil, errors.New("llama-server returned no candidate probabilities")
	}
	probs := out.CompletionProbabilities[0].Probs

	size := rt.info.VocabSize
	for _, p := range probs {
		if p.ID+1 > size {
			size = p.ID + 1
		}
	}
	negInf := float32(math.Inf(-1))
	logits := make([]float32, size)
	for i := range logits {
		logits[i] = negInf
	}
	for _, p := range probs {
		if p.ID >= 0 {
			logits[p.ID] = float32(p.Logprob)
		}
	}
	return logits, nil
}

// Close terminates the subprocess: SIGTERM first, kill after a grace period.
func (rt *serverRuntime) Close() error {
	if rt.cmd == nil || rt.cmd.Process == nil {
		return nil
	}
	_ = rt.cmd.Process.Signal(syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		_, _ = rt.cmd.Process.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		_ = rt.cmd.Process.Kill()
		_, _ = rt.cmd.Process.Wait()
	}
	rt.log.Info().Str("model", rt.info.Name).Msg("llama-server stopped")
	return nil
}

func (rt *serverRuntime) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rt.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return rt.doJSON(req, out)
}

func (rt *serverRuntime) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rt.baseURL+path, nil)
	if err != nil {
		return err
	}
	return rt.doJSON(req, out)
}

func (rt *serverRuntime) doJSON(req *http.Request, out any) error {
	resp, err := rt.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("llama-server %s: %s: %s", req.URL.Path, resp.Status, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", host+":0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	addr := l.Addr().String()
	lastColon := strings.LastIndex(addr, ":")
	if lastColon < 0 {
		return 0, fmt.Errorf("unexpected addr: %s", addr)
	}
	return strconv.Atoi(addr[lastColon+1:])
}
