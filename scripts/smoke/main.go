// Command smoke probes a running maktab API with the requests listed in targets.json
// and reports every response whose status or envelope differs from what is expected.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type target struct {
	Method   string          `json:"method"`
	Path     string          `json:"path"`
	Body     json.RawMessage `json:"body,omitempty"`
	Auth     bool            `json:"auth"`
	Status   int             `json:"status"`
	DataKeys []string        `json:"data_keys,omitempty"`
	Critical bool            `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type result struct {
	Target   target
	Status   int
	Missing  []string
	Error    error
	Duration time.Duration
}

func (r result) ok() bool {
	return r.Error == nil && r.Status == r.Target.Status && len(r.Missing) == 0
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	var (
		base        string
		targetsPath string
		username    string
		password    string
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api", "API base URL including the prefix")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "smoke", "targets.json"), "Path to JSON targets file")
	flag.StringVar(&username, "username", os.Getenv("SMOKE_USERNAME"), "Login used for targets with auth=true")
	flag.StringVar(&password, "password", os.Getenv("SMOKE_PASSWORD"), "Password for -username")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var token string
	if username != "" {
		token, err = login(client, base, username, password)
		if err != nil {
			log.Fatalf("login failed: %v", err)
		}
	}

	var (
		results  []result
		breaking int
		optional int
	)
	for _, t := range targets {
		if t.Auth && token == "" {
			log.Printf("skipping %s %s: no credentials", t.Method, t.Path)
			continue
		}
		res := check(client, base, token, t)
		if !res.ok() {
			if t.Critical {
				breaking++
			} else {
				optional++
			}
		}
		results = append(results, res)
	}

	printReport(results)

	fmt.Printf("Breaking failures: %d, Optional failures: %d\n", breaking, optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	for i := range cfg.Targets {
		if cfg.Targets[i].Status == 0 {
			cfg.Targets[i].Status = http.StatusOK
		}
	}
	return cfg.Targets, nil
}

func login(client *http.Client, base, username, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, _, err := performRequest(client, base, "", target{Method: http.MethodPost, Path: "/auth/login", Body: body})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var env struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", err
	}
	if env.Data.AccessToken == "" {
		return "", errors.New("empty access token")
	}
	return env.Data.AccessToken, nil
}

func check(client *http.Client, base, token string, tgt target) result {
	res := result{Target: tgt}
	resp, dur, err := performRequest(client, base, token, tgt)
	res.Duration = dur
	if err != nil {
		res.Error = fmt.Errorf("request failed: %w", err)
		return res
	}
	defer resp.Body.Close()
	res.Status = resp.StatusCode

	if len(tgt.DataKeys) == 0 {
		return res
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Error = fmt.Errorf("read body: %w", err)
		return res
	}
	res.Missing, res.Error = missingKeys(raw, tgt.DataKeys)
	return res
}

// missingKeys lists the keys absent from the envelope's data object.
func missingKeys(raw []byte, keys []string) ([]string, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return keys, nil
	}
	var missing []string
	for _, k := range keys {
		if _, ok := data[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing, nil
}

func performRequest(client *http.Client, base, token string, tgt target) (*http.Response, time.Duration, error) {
	if client == nil {
		return nil, 0, errors.New("nil client")
	}
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := strings.TrimRight(base, "/") + path

	var body io.Reader
	if len(tgt.Body) > 0 {
		body = bytes.NewReader(tgt.Body)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tgt.Auth && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	return resp, time.Since(start), nil
}

func printReport(results []result) {
	fmt.Println("Smoke Report")
	fmt.Println("============")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.ok() {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		fmt.Printf("  Status: %d, want %d (%s)\n", res.Status, res.Target.Status, res.Duration)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
		}
		if len(res.Missing) > 0 {
			fmt.Printf("  Missing data keys: %s\n", strings.Join(res.Missing, ", "))
		}
	}
}
