package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  watchctl add <address> [kind]     add a target (kind: http|tcp, default http)
  watchctl list                     list targets
  watchctl state <id>               show cached state for a target
  watchctl check <id>               force an immediate check
  watchctl pause|resume             suspend/resume all checks

env: API_BASE (default http://localhost:8080), API_KEY`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}

	switch os.Args[1] {
	case "add":
		if len(os.Args) < 3 {
			usage()
		}
		addr := os.Args[2]
		kind := "http"
		if len(os.Args) > 3 {
			kind = os.Args[3]
		}
		if kind == "http" && !strings.Contains(addr, "://") {
			addr = "https://" + addr
		}
		body, _ := json.Marshal(map[string]string{"address": addr, "kind": kind})
		do(http.MethodPost, api+"/api/targets", body)
	case "list":
		do(http.MethodGet, api+"/api/targets", nil)
	case "state":
		if len(os.Args) < 3 {
			usage()
		}
		do(http.MethodGet, api+"/api/targets/"+os.Args[2]+"/state", nil)
	case "check":
		if len(os.Args) < 3 {
			usage()
		}
		do(http.MethodPost, api+"/api/targets/"+os.Args[2]+"/check", nil)
	case "pause":
		do(http.MethodPost, api+"/api/pause", nil)
	case "resume":
		do(http.MethodPost, api+"/api/resume", nil)
	default:
		usage()
	}
}

func do(method, url string, body []byte) {
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad request:", err)
		os.Exit(1)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if k := os.Getenv("API_KEY"); k != "" {
		req.Header.Set("X-API-Key", k)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error contacting API:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	if len(out) > 0 {
		fmt.Println(strings.TrimSpace(string(out)))
	}
	if resp.StatusCode >= 400 {
		fmt.Fprintln(os.Stderr, "API returned status:", resp.Status)
		os.Exit(1)
	}
}
