package config

import "testing"

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/fm")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("EMAIL_ENABLED", "false")
}

func TestLoadDefaultsToTransbankIntegration(t *testing.T) {
	setRequired(t)
	t.Setenv("TB_COMMERCE_CODE", "")
	t.Setenv("TB_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.GetTransbankCommerceCode() != TransbankIntegrationCommerceCode {
		t.Fatalf("expected integration commerce code, got %q", cfg.GetTransbankCommerceCode())
	}
	if cfg.IsTransbankLive() {
		t.Fatal("expected integration environment by default")
	}
	if cfg.GetFixedPrice() != 50000 {
		t.Fatalf("expected fixed price 50000, got %d", cfg.GetFixedPrice())
	}
	if got := cfg.GetUncoveredComunas(); len(got) != 1 || got[0] != "Cabo de Hornos" {
		t.Fatalf("unexpected uncovered comunas %v", got)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	setRequired(t)
	t.Setenv("PAYMENT_PROVIDER", "paypal")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestIsLiveIntegration(t *testing.T) {
	for _, v := range []string{"LIVE", "prod", " Production "} {
		if !isLiveIntegration(v) {
			t.Errorf("expected %q to be live", v)
		}
	}
	if isLiveIntegration("TEST") {
		t.Error("TEST must not be live")
	}
}
