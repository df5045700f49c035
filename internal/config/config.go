package config

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingClaimURL      = errors.New("CLAIM_URL is not set")
	ErrMissingClaimContract = errors.New("CLAIM_CONTRACT is not set")
)

// Settings keeps all configuration options.
// Env keys mirror the ones the claim scripts have always used.
type Settings struct {
	ClaimURL      string `yaml:"claim_url"`
	ClaimContract string `yaml:"claim_contract"`
	RPCURL        string `yaml:"rpc_url"`
	ChainID       int64  `yaml:"chain_id"`
	APIBase       string `yaml:"api_base"`

	DelayRangeSec       string     `yaml:"delay_range_sec"`
	Delay               DelayRange `yaml:"-"`
	PauseAfterConnectMS int        `yaml:"pause_after_connect_ms"`

	GasMultiplier     float64 `yaml:"gas_multiplier"`
	FixedGasPriceGwei float64 `yaml:"fixed_gas_price_gwei"`
	MaxGasPriceGwei   float64 `yaml:"max_gas_price_gwei"`
	MaxAttempts       int     `yaml:"max_attempts"`

	Headless       bool   `yaml:"headless"`
	MMVersion      string `yaml:"mm_version"`
	ChromePath     string `yaml:"chrome_path"`
	ExtensionDir   string `yaml:"extension_dir"`
	WalletPassword string `yaml:"wallet_password"`
	NavTimeoutMS   int    `yaml:"nav_timeout_ms"`

	NetworkName     string `yaml:"network_name"`
	NetworkSymbol   string `yaml:"network_symbol"`
	NetworkExplorer string `yaml:"network_explorer"`

	RPCRPS                float64 `yaml:"rpc_rps"`
	ForgetImportedAccount bool    `yaml:"forget_imported_account"`
	KeysFile              string  `yaml:"keys_file"`
	MetricsAddr           string  `yaml:"metrics_addr"`
	LogLevel              string  `yaml:"log_level"`
	LogFormat             string  `yaml:"log_format"`
}

// Defaults returns settings before any file or env overlay.
func Defaults() Settings {
	st := Settings{
		RPCURL:              "https://bsc-dataseed.binance.org",
		ChainID:             56,
		APIBase:             "https://api.xter.io",
		DelayRangeSec:       "50,100",
		PauseAfterConnectMS: 2000,
		GasMultiplier:       1.00,
		MaxAttempts:         2,
		MMVersion:           "11.18.1",
		WalletPassword:      "password1234!!!!",
		NavTimeoutMS:        120000,
		NetworkName:         "BSC",
		NetworkSymbol:       "BNB",
		NetworkExplorer:     "https://bscscan.com",
		RPCRPS:              10,
		KeysFile:            "keys.txt",
		LogLevel:            "info",
		LogFormat:           "text",
	}
	st.Delay = ParseDelayRange(st.DelayRangeSec)
	return st
}

// LoadFile overlays a YAML file on top of st. Keys absent from the file keep their value.
func LoadFile(path string, st *Settings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, st); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	st.Delay = ParseDelayRange(st.DelayRangeSec)
	return nil
}

// Load reads settings from environment on top of Defaults.
func Load() Settings {
	st := Defaults()
	ApplyEnv(&st)
	return st
}

// ApplyEnv overrides st with environment values, supporting both UPPER_CASE and lower_case keys.
func ApplyEnv(st *Settings) {
	get := func(keys []string, def string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				return v
			}
		}
		return def
	}
	getInt := func(keys []string, def int) int {
		s := get(keys, "")
		if s == "" {
			return def
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		return def
	}
	getInt64 := func(keys []string, def int64) int64 {
		s := get(keys, "")
		if s == "" {
			return def
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		return def
	}
	getFloat := func(keys []string, def float64) float64 {
		s := get(keys, "")
		if s == "" {
			return def
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return n
		}
		return def
	}
	getBool := func(keys []string, def bool) bool {
		s := strings.ToLower(get(keys, ""))
		if s == "" {
			return def
		}
		return s == "1" || s == "true" || s == "yes" || s == "on"
	}

	st.ClaimURL = get([]string{"claim_url", "CLAIM_URL"}, st.ClaimURL)
	st.ClaimContract = get([]string{"claim_contract", "CLAIM_CONTRACT"}, st.ClaimContract)
	st.RPCURL = get([]string{"bsc_rpc_url", "BSC_RPC_URL", "rpc_url", "RPC_URL"}, st.RPCURL)
	st.ChainID = getInt64([]string{"chain_id", "CHAIN_ID"}, st.ChainID)
	st.APIBase = get([]string{"api_base", "API_BASE"}, st.APIBase)

	st.DelayRangeSec = get([]string{"delay_range_sec", "DELAY_RANGE_SEC"}, st.DelayRangeSec)
	st.Delay = ParseDelayRange(st.DelayRangeSec)
	st.PauseAfterConnectMS = getInt([]string{"pause_after_connect_ms", "PAUSE_AFTER_CONNECT_MS"}, st.PauseAfterConnectMS)

	st.GasMultiplier = getFloat([]string{"gas_multiplier", "GAS_MULTIPLIER"}, st.GasMultiplier)
	st.FixedGasPriceGwei = getFloat([]string{"fixed_gas_price_gwei", "FIXED_GAS_PRICE_GWEI"}, st.FixedGasPriceGwei)
	st.MaxGasPriceGwei = getFloat([]string{"max_gas_price_gwei", "MAX_GAS_PRICE_GWEI"}, st.MaxGasPriceGwei)
	st.MaxAttempts = getInt([]string{"max_attempts", "MAX_ATTEMPTS"}, st.MaxAttempts)

	st.Headless = getBool([]string{"headless", "HEADLESS"}, st.Headless)
	st.MMVersion = get([]string{"mm_version", "MM_VERSION", "METAMASK_VERSION"}, st.MMVersion)
	st.ChromePath = get([]string{"chrome_path", "CHROME_PATH"}, st.ChromePath)
	st.ExtensionDir = get([]string{"extension_dir", "EXTENSION_DIR"}, st.ExtensionDir)
	st.WalletPassword = get([]string{"wallet_password", "WALLET_PASSWORD"}, st.WalletPassword)
	st.NavTimeoutMS = getInt([]string{"nav_timeout_ms", "NAV_TIMEOUT_MS"}, st.NavTimeoutMS)

	st.NetworkName = get([]string{"network_name", "NETWORK_NAME"}, st.NetworkName)
	st.NetworkSymbol = get([]string{"network_symbol", "NETWORK_SYMBOL"}, st.NetworkSymbol)
	st.NetworkExplorer = get([]string{"network_explorer", "NETWORK_EXPLORER"}, st.NetworkExplorer)

	st.RPCRPS = getFloat([]string{"rpc_rps", "RPC_RPS"}, st.RPCRPS)
	st.ForgetImportedAccount = getBool([]string{"forget_imported_account", "FORGET_IMPORTED_ACCOUNT"}, st.ForgetImportedAccount)
	st.KeysFile = get([]string{"keys_file", "KEYS_FILE"}, st.KeysFile)
	st.MetricsAddr = get([]string{"metrics_addr", "METRICS_ADDR"}, st.MetricsAddr)
	st.LogLevel = get([]string{"log_level", "LOG_LEVEL"}, st.LogLevel)
	st.LogFormat = get([]string{"log_format", "LOG_FORMAT"}, st.LogFormat)
}

// Validate reports fatal configuration errors. It also clamps knobs that have a safe floor.
func (st *Settings) Validate() error {
	if strings.TrimSpace(st.ClaimURL) == "" {
		return ErrMissingClaimURL
	}
	if u, err := url.Parse(st.ClaimURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("CLAIM_URL %q is not an absolute URL", st.ClaimURL)
	}
	if strings.TrimSpace(st.ClaimContract) == "" {
		return ErrMissingClaimContract
	}
	if !common.IsHexAddress(st.ClaimContract) {
		return fmt.Errorf("CLAIM_CONTRACT %q is not a hex address", st.ClaimContract)
	}
	if strings.TrimSpace(st.RPCURL) == "" {
		return errors.New("RPC URL is not set")
	}
	if st.MaxAttempts < 1 {
		st.MaxAttempts = 1
	}
	if st.PauseAfterConnectMS < 0 {
		st.PauseAfterConnectMS = 0
	}
	if st.NavTimeoutMS <= 0 {
		st.NavTimeoutMS = 120000
	}
	return nil
}

func (st Settings) PauseAfterConnect() time.Duration {
	return time.Duration(st.PauseAfterConnectMS) * time.Millisecond
}

func (st Settings) NavTimeout() time.Duration {
	return time.Duration(st.NavTimeoutMS) * time.Millisecond
}

// DelayRange is an inclusive range the runner picks a pause from.
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

// ParseDelayRange parses "min,max" seconds. Missing or bad parts fall back so that 0 <= min <= max.
func ParseDelayRange(s string) DelayRange {
	var nums []float64
	for _, p := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		nums = append(nums, v)
	}
	var lo, hi float64
	if len(nums) > 0 {
		lo = math.Max(0, nums[0])
	}
	hi = lo
	if len(nums) > 1 {
		hi = math.Max(lo, nums[1])
	}
	return DelayRange{
		Min: time.Duration(lo * float64(time.Second)),
		Max: time.Duration(hi * float64(time.Second)),
	}
}

// Pick returns a duration drawn uniformly from [Min, Max].
func (r DelayRange) Pick(rng *rand.Rand) time.Duration {
	delta := r.Max - r.Min
	if delta <= 0 {
		return r.Min
	}
	return r.Min + time.Duration(rng.Int63n(int64(delta)+1))
}

func (r DelayRange) String() string {
	return fmt.Sprintf("%s..%s", r.Min, r.Max)
}
