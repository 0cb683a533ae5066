// seed 向运行中的服务灌入演示文档。
//
// 用法：
//
//	DATABASE_URL=... JWT_SECRET=... go run ./cmd/seed
//
// 先在库中确保演示租户存在，再通过 HTTP API 逐篇入库示例文档，
// 走与真实客户端完全相同的鉴权与切分路径。
package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	_ "github.com/lib/pq"

	"aura/internal/domain/rag"
	"aura/internal/platform/config"
	applog "aura/internal/platform/log"
)

// 演示租户（固定 ID，便于文档与 curl 示例引用）
const (
	demoTenantID   = "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11"
	demoTenantName = "Aura Wellness"
	demoTenantSlug = "aura-wellness"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Config load failed: %v\n", err)
		os.Exit(1)
	}

	applog.Init(applog.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	if err := ensureDemoTenant(cfg.Database.URL); err != nil {
		applog.Fatalf("❌ Failed to ensure demo tenant: %v", err)
	}
	applog.Infof("✅ Demo tenant ready: %s (%s)", demoTenantName, demoTenantID)

	token, err := mintToken(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	if err != nil {
		applog.Fatalf("❌ Failed to mint JWT: %v", err)
	}

	baseURL := os.Getenv("SEED_BASE_URL")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}

	client := &http.Client{Timeout: 30 * time.Second}

	if err := checkHealth(client, baseURL); err != nil {
		applog.Fatalf("❌ Backend not reachable at %s: %v", baseURL, err)
	}

	for _, doc := range sampleDocuments {
		if err := ingestDocument(client, baseURL, token, doc); err != nil {
			applog.Errorf("❌ Ingest failed for %q: %v", doc.Title, err)
			continue
		}
	}

	applog.Info("🎉 Seed complete! Try asking a question:")
	applog.Infof(`  curl -X POST %s/api/v1/ask -H "Content-Type: application/json" -H "Authorization: Bearer %s" -d '{"question": "How many days of annual leave do I get?"}'`,
		baseURL, token)
}

func ensureDemoTenant(databaseURL string) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec(`
		INSERT INTO tenants (id, name, slug, is_active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (id) DO NOTHING
	`, demoTenantID, demoTenantName, demoTenantSlug)
	return err
}

func mintToken(secret, issuer string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JWT_SECRET is required")
	}
	claims := jwt.MapClaims{
		"tenant_id": demoTenantID,
		"sub":       "seed-tool",
		"exp":       time.Now().Add(time.Hour).Unix(),
	}
	if issuer != "" {
		claims["iss"] = issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func checkHealth(client *http.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	applog.Info("✅ Backend is healthy")
	return nil
}

func ingestDocument(client *http.Client, baseURL, token string, doc rag.IngestRequest) error {
	applog.Infof("📄 Ingesting: %s", doc.Title)

	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/v1/documents", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(raw))
	}

	var payload struct {
		Data rag.IngestResult `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	applog.Infof("  ✓ id=%s chunks=%d tokens=%d", payload.Data.DocumentID, payload.Data.ChunkCount, payload.Data.TotalTokens)
	return nil
}
