/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	defaultResponsesURL = "https://api.openai.com/v1/responses"

	twistCue        = "But then, something unexpected happened:"
	maxTwistTokens  = 60
	maxErrorBodyLen = 4096
)

// TwistGenerator produces candidate plot twists from the tail of a
// story. Implementations may be slow and are called without any room
// state held.
type TwistGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// twistPrompt seeds the generator with the last words of the story
// followed by the narrative cue.
func twistPrompt(story *StoryLog, words int) string {
	tail := story.LastWords(words)
	if tail == "" {
		return twistCue
	}
	return tail + " " + twistCue
}

// firstSentence trims generated text down to its first sentence,
// always terminated with a period.
func firstSentence(generated string) (string, error) {
	text := strings.TrimSpace(generated)
	if i := strings.Index(text, "."); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errEmptyTwist
	}
	return text + ".", nil
}

// responsesGenerator asks an OpenAI-compatible responses endpoint for
// the continuation.
type responsesGenerator struct {
	url    string
	model  string
	key    string
	client *http.Client
}

func newResponsesGenerator(url, model, key string, client *http.Client) *responsesGenerator {
	if client == nil {
		client = http.DefaultClient
	}
	if strings.TrimSpace(url) == "" {
		url = defaultResponsesURL
	}
	return &responsesGenerator{
		url:    url,
		model:  model,
		key:    key,
		client: client,
	}
}

func (g *responsesGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model":             g.model,
		"input":             prompt,
		"max_output_tokens": maxTwistTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal twist request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build twist request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.key)

	res, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("twist request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBodyLen))
		return "", fmt.Errorf("twist request status %d: %s", res.StatusCode, strings.TrimSpace(string(data)))
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read twist response: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return "", fmt.Errorf("decode twist response: invalid json")
	}

	return firstSentence(responseText(data))
}

// responseText prefers the output_text convenience field and falls back
// to the first non-empty text content part.
func responseText(data []byte) string {
	if text := strings.TrimSpace(gjson.GetBytes(data, "output_text").String()); text != "" {
		return text
	}

	var found string
	gjson.GetBytes(data, "output").ForEach(func(_, item gjson.Result) bool {
		item.Get("content").ForEach(func(_, part gjson.Result) bool {
			found = strings.TrimSpace(part.Get("text").String())
			return found == ""
		})
		return found == ""
	})

	return found
}

var cannedTwists = []string{
	"A stranger arrived carrying a letter addressed to someone who had been dead for years.",
	"The ground trembled, and the old well at the center of town began to glow.",
	"Everyone suddenly forgot the last hour, except for the cat.",
	"A door appeared where there had never been a door before.",
	"The map they had trusted all along turned out to be upside down.",
	"Somewhere far away, a bell rang that no one had rung in a hundred years.",
	"The villain knocked politely and asked to borrow a cup of sugar.",
	"It began to rain upward.",
}

// cannedGenerator picks a built-in twist. It is used when no model is
// configured.
type cannedGenerator struct {
	twists []string
}

func newCannedGenerator() *cannedGenerator {
	return &cannedGenerator{twists: cannedTwists}
}

func (g *cannedGenerator) Generate(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(g.twists) == 0 {
		return "", errEmptyTwist
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(g.twists))))
	if err != nil {
		return "", fmt.Errorf("pick twist: %w", err)
	}

	return g.twists[n.Int64()], nil
}

func newGenerator(cfg *Config) TwistGenerator {
	if cfg.llmKey == "" {
		return newCannedGenerator()
	}
	return newResponsesGenerator(cfg.llmURL, cfg.llmModel, cfg.llmKey, &http.Client{Timeout: cfg.twistTimeout})
}
