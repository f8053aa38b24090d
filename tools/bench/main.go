package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"
)

// -------------------- 统计 --------------------

type APITestStats struct {
	TotalRequests      int
	SuccessfulRequests int
	FailedRequests     int
	totalLatency       time.Duration
	MaxLatency         time.Duration
	MinLatency         time.Duration
	mu                 sync.Mutex
}

func (s *APITestStats) Add(success bool, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalRequests++
	if !success {
		s.FailedRequests++
		return
	}
	s.SuccessfulRequests++
	s.totalLatency += latency
	if latency > s.MaxLatency {
		s.MaxLatency = latency
	}
	if s.MinLatency == 0 || latency < s.MinLatency {
		s.MinLatency = latency
	}
}

func (s *APITestStats) AverageLatency() time.Duration {
	if s.SuccessfulRequests == 0 {
		return 0
	}
	return s.totalLatency / time.Duration(s.SuccessfulRequests)
}

// -------------------- HTTP --------------------

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
}

type tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

var client = &http.Client{Timeout: 8 * time.Second}

func send(method, url string, body interface{}, accessToken string) (int, *envelope, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, nil, err
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, &env, nil
}

func login(base, username, password string) (*tokens, error) {
	code, env, err := send(http.MethodPost, base+"/api/v1/users/login",
		map[string]string{"username": username, "password": password}, "")
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("登录失败: %d %s", code, env.Message)
	}

	var t tokens
	if err := json.Unmarshal(env.Data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// -------------------- 压测 --------------------

// runReadBench 并发读取 /health 与 /get-user
func runReadBench(base, accessToken string, concurrency, perGoroutine int) {
	fmt.Println("\n=== 读接口并发测试 ===")
	fmt.Printf("目标: %s 并发: %d 每协程请求: %d\n", base, concurrency, perGoroutine)

	stats := &APITestStats{}
	endpoints := []string{"/health", "/api/v1/users/get-user"}

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				url := base + endpoints[(id+j)%len(endpoints)]
				begin := time.Now()
				code, _, err := send(http.MethodGet, url, nil, accessToken)
				stats.Add(err == nil && code == http.StatusOK, time.Since(begin))
			}
		}(i)
	}
	wg.Wait()

	took := time.Since(start)
	fmt.Printf("耗时: %v\n", took)
	fmt.Printf("总请求: %d 成功: %d 失败: %d\n", stats.TotalRequests, stats.SuccessfulRequests, stats.FailedRequests)
	fmt.Printf("延迟 平均: %v 最大: %v 最小: %v\n", stats.AverageLatency(), stats.MaxLatency, stats.MinLatency)
	if took > 0 {
		fmt.Printf("QPS: %.2f\n", float64(stats.SuccessfulRequests)/took.Seconds())
	}
}

// runRefreshRace 同一个刷新令牌并发刷新，只应有一次成功
func runRefreshRace(base, refreshToken string, concurrency int) bool {
	fmt.Println("\n=== 刷新令牌并发复用测试 ===")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = map[int]int{}
	)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, _, err := send(http.MethodPost, base+"/api/v1/users/refresh-token",
				map[string]string{"refreshToken": refreshToken}, "")
			if err != nil {
				code = -1
			}
			mu.Lock()
			results[code]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	for code, n := range results {
		fmt.Printf("状态码 %d: %d 次\n", code, n)
	}
	ok := results[http.StatusOK] == 1
	if ok {
		fmt.Println("结果: 通过（仅一次轮换成功）")
	} else {
		fmt.Println("结果: 失败（成功次数应为 1）")
	}
	return ok
}

// -------------------- 入口 --------------------

func main() {
	base := flag.String("base", "http://localhost:8000", "服务地址")
	username := flag.String("username", "", "已注册的用户名")
	password := flag.String("password", "", "密码")
	concurrency := flag.Int("c", 5, "并发数")
	perGoroutine := flag.Int("n", 10, "每协程请求数")
	flag.Parse()

	if *username == "" || *password == "" {
		fmt.Println("用法: bench -username <name> -password <pass> [-base url] [-c 5] [-n 10]")
		os.Exit(2)
	}

	fmt.Println("=== vidhub 并发测试 ===")
	fmt.Printf("开始时间: %s\n", time.Now().Format("2006-01-02 15:04:05"))

	t, err := login(*base, *username, *password)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	runReadBench(*base, t.AccessToken, *concurrency, *perGoroutine)
	if !runRefreshRace(*base, t.RefreshToken, *concurrency) {
		os.Exit(1)
	}

	fmt.Println("\n=== 测试完成 ===")
}
