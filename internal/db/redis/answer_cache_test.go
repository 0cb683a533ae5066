package redisdb

import (
	"strings"
	"testing"
)

func TestAnswerCacheKeyNormalization(t *testing.T) {
	const tenant = "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11"

	base := answerCacheKey(tenant, "How many days of annual leave do I get?")

	tests := []struct {
		name     string
		question string
		same     bool
	}{
		{name: "identical", question: "How many days of annual leave do I get?", same: true},
		{name: "surrounding whitespace", question: "  How many days of annual leave do I get?  ", same: true},
		{name: "different case", question: "HOW MANY DAYS OF ANNUAL LEAVE DO I GET?", same: true},
		{name: "different wording", question: "How much annual leave do I get?", same: false},
		{name: "internal whitespace differs", question: "How many  days of annual leave do I get?", same: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := answerCacheKey(tenant, tt.question)
			if (got == base) != tt.same {
				t.Fatalf("key for %q = %s, base = %s, same = %v", tt.question, got, base, tt.same)
			}
		})
	}
}

func TestAnswerCacheKeyShape(t *testing.T) {
	const tenant = "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11"

	key := answerCacheKey(tenant, "some question")

	prefix := answerKeyPrefix + tenant + ":"
	if !strings.HasPrefix(key, prefix) {
		t.Fatalf("key %q missing prefix %q", key, prefix)
	}

	// 哈希部分是 16 个十六进制字符（8 字节）
	suffix := strings.TrimPrefix(key, prefix)
	if len(suffix) != 16 {
		t.Fatalf("hash suffix %q has length %d, want 16", suffix, len(suffix))
	}
	for _, r := range suffix {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Fatalf("hash suffix %q contains non-hex rune %q", suffix, r)
		}
	}
}

func TestAnswerCacheKeyTenantSeparation(t *testing.T) {
	const question = "How many days of annual leave do I get?"

	keyA := answerCacheKey("11111111-1111-1111-1111-111111111111", question)
	keyB := answerCacheKey("22222222-2222-2222-2222-222222222222", question)

	if keyA == keyB {
		t.Fatal("same question under different tenants must not share a cache key")
	}
	// 失效用的 SCAN 模式必须只覆盖自己租户的 key
	if strings.HasPrefix(keyA, answerKeyPrefix+"22222222") {
		t.Fatal("tenant A key matches tenant B invalidation pattern")
	}
}
