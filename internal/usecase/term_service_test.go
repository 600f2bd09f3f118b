package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/substifinder/backend/internal/domain"
)

// fakeTermCache is an in-memory domain.TermCache with injectable Put failure.
type fakeTermCache struct {
	data    map[string][]string
	failPut bool
	puts    int
}

func newFakeTermCache() *fakeTermCache {
	return &fakeTermCache{data: make(map[string][]string)}
}

func (c *fakeTermCache) Get(key string) ([]string, bool) {
	terms, ok := c.data[key]
	return terms, ok
}

func (c *fakeTermCache) Put(key string, terms []string) error {
	c.puts++
	if c.failPut {
		return domain.ErrCachePersist
	}
	c.data[key] = terms
	return nil
}

// fakeTermClient is a scripted domain.TermClient.
type fakeTermClient struct {
	content string
	err     error
	calls   int
}

func (c *fakeTermClient) Complete(ctx context.Context, productName, priceHint string) (string, error) {
	c.calls++
	return c.content, c.err
}

func TestGenerateTermsCacheHit(t *testing.T) {
	cache := newFakeTermCache()
	cached := []string{"queijo ralado parmesao 50g", "queijo ralado parmesao", "queijo parmesao", "queijo ralado", "queijo"}
	cache.data["queijo ralado faixa azul parmesão 50g"] = cached

	client := &fakeTermClient{content: "não deveria ser chamado"}
	svc := NewTermService(cache, client, nil)

	got := svc.GenerateTerms(context.Background(), "  QUEIJO RALADO FAIXA AZUL PARMESÃO 50G ", "10,99")

	if !reflect.DeepEqual(got, cached) {
		t.Errorf("GenerateTerms() = %v, want cached list", got)
	}
	if client.calls != 0 {
		t.Errorf("client called %d times on cache hit, want 0", client.calls)
	}
}

func TestGenerateTermsRemoteSuccess(t *testing.T) {
	cache := newFakeTermCache()
	client := &fakeTermClient{
		content: "1. Queijo Ralado Parmesão 50g\n2) queijo ralado parmesão\n- queijo parmesão\nab\nqueijo ralado\nqueijo",
	}
	svc := NewTermService(cache, client, nil)

	got := svc.GenerateTerms(context.Background(), "Queijo Ralado Faixa Azul Parmesão 50g", "10,99")

	want := []string{"queijo ralado parmesão 50g", "queijo ralado parmesão", "queijo parmesão", "queijo ralado", "queijo"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GenerateTerms() = %v, want %v", got, want)
	}

	// Result cached under the normalized key.
	if _, ok := cache.data["queijo ralado faixa azul parmesão 50g"]; !ok {
		t.Error("remote result not cached")
	}
}

func TestGenerateTermsPadsShortReply(t *testing.T) {
	cache := newFakeTermCache()
	client := &fakeTermClient{content: "queijo ralado\nqueijo"}
	svc := NewTermService(cache, client, nil)

	got := svc.GenerateTerms(context.Background(), "Queijo Ralado", "")

	want := []string{"queijo ralado", "queijo", "queijo", "queijo", "queijo"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GenerateTerms() = %v, want padded %v", got, want)
	}
}

func TestGenerateTermsEmptyReplyUsesPlaceholder(t *testing.T) {
	cache := newFakeTermCache()
	client := &fakeTermClient{content: "\n\nab\n"}
	svc := NewTermService(cache, client, nil)

	got := svc.GenerateTerms(context.Background(), "Produto Misterioso", "")

	want := []string{"produto", "produto", "produto", "produto", "produto"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GenerateTerms() = %v, want %v", got, want)
	}
}

func TestGenerateTermsRemoteFailureFallsBack(t *testing.T) {
	cache := newFakeTermCache()
	client := &fakeTermClient{err: domain.ErrTermService}
	svc := NewTermService(cache, client, nil)

	got := svc.GenerateTerms(context.Background(), "PÃO DE FORMA INTEGRAL 450G", "")

	if len(got) != 5 {
		t.Fatalf("len(terms) = %d, want 5", len(got))
	}
	if got[0] != "pão de forma integral 450g" {
		t.Errorf("terms[0] = %q, want full lowercased name", got[0])
	}
	if got[4] != "pão" {
		t.Errorf("terms[4] = %q, want first meaningful word %q", got[4], "pão")
	}

	// Fallback output must not poison the cache: a later call can retry.
	if cache.puts != 0 {
		t.Errorf("cache.Put called %d times after fallback, want 0", cache.puts)
	}
}

func TestGenerateTermsNilClientFallsBack(t *testing.T) {
	svc := NewTermService(newFakeTermCache(), nil, nil)

	got := svc.GenerateTerms(context.Background(), "Leite Integral 1L", "")
	if len(got) != 5 {
		t.Fatalf("len(terms) = %d, want 5", len(got))
	}
}

func TestGenerateTermsCachePersistFailureStillReturns(t *testing.T) {
	cache := newFakeTermCache()
	cache.failPut = true
	client := &fakeTermClient{content: "a1b\nc2d\ne3f\ng4h\ni5j"}
	svc := NewTermService(cache, client, nil)

	got := svc.GenerateTerms(context.Background(), "Produto", "")
	if len(got) != 5 {
		t.Fatalf("len(terms) = %d, want 5 despite cache failure", len(got))
	}
}

func TestFallbackTermsDeterministic(t *testing.T) {
	name := "QUEIJO RALADO FAIXA AZUL PARMESÃO 50G"
	first := fallbackTerms(name)
	second := fallbackTerms(name)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("fallbackTerms not deterministic: %v vs %v", first, second)
	}
	if len(first) != 5 {
		t.Errorf("len(fallbackTerms) = %d, want 5", len(first))
	}
}

func TestFallbackTermsShrinkingPrefixes(t *testing.T) {
	got := fallbackTerms("Queijo Ralado Faixa Azul Parmesão 50g")

	want := []string{
		"queijo ralado faixa azul parmesão 50g",
		"queijo ralado faixa azul",
		"queijo ralado faixa",
		"queijo ralado",
		"queijo",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("fallbackTerms() = %v, want %v", got, want)
	}
}

func TestFallbackTermsDropsStopWords(t *testing.T) {
	got := fallbackTerms("PÃO DE FORMA INTEGRAL 450G")

	want := []string{
		"pão de forma integral 450g",
		"pão forma integral 450g",
		"pão forma integral",
		"pão forma",
		"pão",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("fallbackTerms() = %v, want %v", got, want)
	}
}

func TestFallbackTermsNoMeaningfulWords(t *testing.T) {
	got := fallbackTerms("de do l")

	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	for i, term := range got {
		if term != "de do l" {
			t.Errorf("terms[%d] = %q, want full name fallback", i, term)
		}
	}
}

func TestParseTermsStripsEnumerationMarkers(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "numbered list",
			content: "1. arroz branco tipo 1 5kg\n2. arroz branco\n3. arroz tipo 1\n4. arroz 5kg\n5. arroz",
			want:    []string{"arroz branco tipo 1 5kg", "arroz branco", "arroz tipo 1", "arroz 5kg", "arroz"},
		},
		{
			name:    "dashes and parens",
			content: "- feijão carioca 1kg\n-) feijão carioca\n-- feijão\nxy\nfeijão preto\nfeijão fradinho\nextra além do quinto",
			want:    []string{"feijão carioca 1kg", "feijão carioca", "feijão", "feijão preto", "feijão fradinho"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseTerms(tt.content); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseTerms() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateTermsContextPassedThrough(t *testing.T) {
	cache := newFakeTermCache()
	client := &fakeTermClient{err: errors.New("cancelled")}
	svc := NewTermService(cache, client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A dead context still yields usable fallback terms.
	got := svc.GenerateTerms(ctx, "Leite Condensado 395g", "")
	if len(got) != 5 {
		t.Fatalf("len(terms) = %d, want 5", len(got))
	}
}
