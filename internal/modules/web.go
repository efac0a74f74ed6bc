package modules

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/pkg/browser"

	"github.com/MockingJay1710/buddyai/internal/command"
)

// searchEngines maps engine names to their query URL prefix.
var searchEngines = map[string]string{
	"google":     "https://www.google.com/search?q=",
	"duckduckgo": "https://duckduckgo.com/?q=",
	"bing":       "https://www.bing.com/search?q=",
}

// Web provides browser commands.
type Web struct{}

func NewWeb() *Web { return &Web{} }

func (*Web) Name() string { return "web" }

type openURLInput struct {
	URL string `json:"url" desc:"The URL to open in the default web browser."`
}

type webSearchInput struct {
	Query  string `json:"query" desc:"The search query."`
	Engine string `json:"engine" desc:"Search engine: google, duckduckgo, or bing." default:"google"`
}

type webResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

func (*Web) Commands() []command.Spec {
	return []command.Spec{
		command.New("web_open_url", "Opens a URL in the default web browser.", openURL),
		command.New("web_search", "Searches the web using the given search engine.", webSearch),
	}
}

// normalizeURL prepends http:// when no recognized scheme is present.
func normalizeURL(raw string) string {
	lower := strings.ToLower(raw)
	for _, scheme := range []string{"http://", "https://", "file://"} {
		if strings.HasPrefix(lower, scheme) {
			return raw
		}
	}
	return "http://" + raw
}

func openURL(_ context.Context, in openURLInput) (any, error) {
	target := normalizeURL(in.URL)
	if err := browser.OpenURL(target); err != nil {
		return nil, fmt.Errorf("open URL %q: %w", target, err)
	}
	return webResult{
		Status:  "success",
		Message: fmt.Sprintf("Attempted to open URL: %s", target),
		URL:     target,
	}, nil
}

func webSearch(_ context.Context, in webSearchInput) (any, error) {
	base, ok := searchEngines[strings.ToLower(in.Engine)]
	if !ok {
		return nil, fmt.Errorf("unsupported search engine %q (supported: %s)", in.Engine, strings.Join(engineNames(), ", "))
	}
	target := base + url.QueryEscape(in.Query)
	if err := browser.OpenURL(target); err != nil {
		return nil, fmt.Errorf("open search for %q: %w", in.Query, err)
	}
	return webResult{
		Status:  "success",
		Message: fmt.Sprintf("Searching for %q on %s.", in.Query, strings.ToLower(in.Engine)),
		URL:     target,
	}, nil
}

func engineNames() []string {
	names := make([]string, 0, len(searchEngines))
	for name := range searchEngines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
