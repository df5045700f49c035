package config

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDelayRange(t *testing.T) {
	tests := []struct {
		in       string
		min, max time.Duration
	}{
		{"50,100", 50 * time.Second, 100 * time.Second},
		{" 5 , 1 ", 5 * time.Second, 5 * time.Second},
		{"-3,2", 0, 2 * time.Second},
		{"7", 7 * time.Second, 7 * time.Second},
		{"", 0, 0},
		{"abc,4", 4 * time.Second, 4 * time.Second},
		{"0.5,1.5", 500 * time.Millisecond, 1500 * time.Millisecond},
	}
	for _, tt := range tests {
		got := ParseDelayRange(tt.in)
		if got.Min != tt.min || got.Max != tt.max {
			t.Errorf("ParseDelayRange(%q) = %v, want %v..%v", tt.in, got, tt.min, tt.max)
		}
	}
}

func TestDelayRangePickStaysInBounds(t *testing.T) {
	r := DelayRange{Min: 2 * time.Second, Max: 3 * time.Second}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		d := r.Pick(rng)
		if d < r.Min || d > r.Max {
			t.Fatalf("Pick() = %v, outside %v", d, r)
		}
	}
	fixed := DelayRange{Min: time.Second, Max: time.Second}
	if d := fixed.Pick(rng); d != time.Second {
		t.Errorf("Pick() on degenerate range = %v, want 1s", d)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CLAIM_URL", "https://claim.example.com/airdrop/42")
	t.Setenv("claim_contract", "0x1111111111111111111111111111111111111111")
	t.Setenv("GAS_MULTIPLIER", "1.15")
	t.Setenv("FIXED_GAS_PRICE_GWEI", "not-a-number")
	t.Setenv("HEADLESS", "TRUE")
	t.Setenv("DELAY_RANGE_SEC", "1,2")
	t.Setenv("MAX_ATTEMPTS", "3")

	st := Load()
	if st.ClaimURL != "https://claim.example.com/airdrop/42" {
		t.Errorf("ClaimURL = %q", st.ClaimURL)
	}
	if st.ClaimContract != "0x1111111111111111111111111111111111111111" {
		t.Errorf("lower-case key not honored: %q", st.ClaimContract)
	}
	if st.GasMultiplier != 1.15 {
		t.Errorf("GasMultiplier = %v", st.GasMultiplier)
	}
	if st.FixedGasPriceGwei != 0 {
		t.Errorf("bad float should keep default, got %v", st.FixedGasPriceGwei)
	}
	if !st.Headless {
		t.Error("Headless should be true")
	}
	if st.Delay.Min != time.Second || st.Delay.Max != 2*time.Second {
		t.Errorf("Delay = %v", st.Delay)
	}
	if st.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d", st.MaxAttempts)
	}
	if st.ChainID != 56 {
		t.Errorf("ChainID default = %d, want 56", st.ChainID)
	}
	if err := st.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	st := Defaults()
	if err := st.Validate(); !errors.Is(err, ErrMissingClaimURL) {
		t.Errorf("Validate() = %v, want ErrMissingClaimURL", err)
	}
	st.ClaimURL = "https://claim.example.com/x"
	if err := st.Validate(); !errors.Is(err, ErrMissingClaimContract) {
		t.Errorf("Validate() = %v, want ErrMissingClaimContract", err)
	}
	st.ClaimContract = "0xnothex"
	if err := st.Validate(); err == nil {
		t.Error("Validate() should reject a malformed contract address")
	}
	st.ClaimContract = "0x1111111111111111111111111111111111111111"
	st.MaxAttempts = 0
	if err := st.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if st.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want clamped to 1", st.MaxAttempts)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "claimer.yaml")
	body := "claim_url: https://file.example.com/a/7\nclaim_contract: \"0x2222222222222222222222222222222222222222\"\ndelay_range_sec: \"3,4\"\ngas_multiplier: 1.1\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GAS_MULTIPLIER", "1.05")

	st := Defaults()
	if err := LoadFile(path, &st); err != nil {
		t.Fatalf("LoadFile() = %v", err)
	}
	ApplyEnv(&st)
	if st.ClaimURL != "https://file.example.com/a/7" {
		t.Errorf("ClaimURL = %q", st.ClaimURL)
	}
	if st.GasMultiplier != 1.05 {
		t.Errorf("env should win over file, got %v", st.GasMultiplier)
	}
	if st.Delay.Min != 3*time.Second || st.Delay.Max != 4*time.Second {
		t.Errorf("Delay = %v", st.Delay)
	}
	if st.MMVersion != "11.18.1" {
		t.Errorf("default lost after file overlay: %q", st.MMVersion)
	}
}
