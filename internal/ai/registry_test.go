// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
)

type mockProvider struct {
	name   string
	out    string
	err    error
	mu     sync.Mutex
	prompt Prompt
	calls  int
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Generate(_ context.Context, p Prompt) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.prompt = p
	return m.out, m.err
}

func TestNewRegistryProviders(t *testing.T) {
	r := NewRegistry("openai", map[string]ProviderConfig{
		"openai":  {APIKey: "k1"},
		"gemini":  {APIKey: "k2"},
		"claude":  {APIKey: ""},
		"mistral": {APIKey: "k4"},
		"unknown": {APIKey: "k5"},
	})

	want := []string{"gemini", "mistral", "openai"}
	if got := r.Available(); !reflect.DeepEqual(got, want) {
		t.Errorf("Available() = %v, want %v", got, want)
	}
	if !r.Enabled() {
		t.Error("Enabled() = false with openai configured")
	}
	if _, ok := r.moderator.(fallbackModerator); !ok {
		t.Errorf("moderator = %T, want fallbackModerator", r.moderator)
	}
}

func TestRegistryNoProvider(t *testing.T) {
	r := NewRegistry("openai", nil)

	if r.Enabled() {
		t.Error("Enabled() = true with no providers")
	}
	if _, err := r.Generate(context.Background(), Prompt{User: "x"}); !errors.Is(err, ErrNoProvider) {
		t.Errorf("Generate err = %v, want ErrNoProvider", err)
	}
	res, err := r.CheckPrompt(context.Background(), "anything")
	if err != nil || !res.Safe {
		t.Errorf("CheckPrompt without moderator = %+v, %v", res, err)
	}
}

func TestRegistrySetActive(t *testing.T) {
	r := NewRegistry("a", nil)
	a := &mockProvider{name: "a", out: "from a"}
	b := &mockProvider{name: "b", out: "from b"}
	r.Register("a", a)
	r.Register("b", b)

	if err := r.SetActive("b"); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	out, err := r.Generate(context.Background(), Prompt{User: "x"})
	if err != nil || out != "from b" {
		t.Fatalf("Generate = %q, %v", out, err)
	}
	if err := r.SetActive("missing"); !errors.Is(err, ErrNoProvider) {
		t.Errorf("SetActive(missing) err = %v", err)
	}
	if r.ActiveName() != "b" {
		t.Errorf("ActiveName() = %q after failed switch", r.ActiveName())
	}
}

func TestRegistryConcurrency(t *testing.T) {
	r := NewRegistry("a", nil)
	r.Register("a", &mockProvider{name: "a", out: "a"})
	r.Register("b", &mockProvider{name: "b", out: "b"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			name := "a"
			if i%2 == 0 {
				name = "b"
			}
			_ = r.SetActive(name)
		}(i)
		go func() {
			defer wg.Done()
			if _, err := r.Generate(context.Background(), Prompt{User: "x"}); err != nil {
				t.Errorf("Generate: %v", err)
			}
		}()
	}
	wg.Wait()
}
