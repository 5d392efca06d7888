package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/egaotan/solana-revertable/program"
	"github.com/egaotan/solana-revertable/revertable"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var (
	LogPath     = "./logs/"
	BackendLog  = "backend"
	WorkflowLog = "workflow"
	ServerLog   = "server"
	StoreLog    = "store"
	NetworkLog  = "network"
)

const (
	RpcUrlKey          = "rpc_url"
	SignerKeypairKey   = "signer_keypair"
	InvokeProgramIdKey = "invoke_program_id"
	RevertProgramIdKey = "revert_program_id"
	EvmProgramIdKey    = "evm_program_id"
	EvmStateIdKey      = "evm_state_id"
	FundLamportsKey    = "fund_lamports"
	EtherAddressKey    = "ether_address"
	ExtendedKey        = "extended_accounts"
	ExpectRevertKey    = "expect_revert"
	StepsKey           = "workflow_steps"
	ConfirmTimeoutKey  = "confirm_timeout"
	PollIntervalKey    = "poll_interval"
	SkipPreflightKey   = "skip_preflight"
	LogLevelKey        = "log_level"
	LogPathKey         = "log_path"
	DingUrlKey         = "ding_url"
	DBUrlKey           = "db_url"
	DBSchemeKey        = "db_scheme"
	DBUserKey          = "db_user"
	DBPasswdKey        = "db_passwd"
	ListenKey          = "listen_address"
	WatchIntervalKey   = "watch_interval"
)

const (
	StepFund   = "fund"
	StepAssign = "assign"
	StepInvoke = "invoke"
	StepBridge = "bridge"
)

var DefaultSteps = []string{StepFund, StepAssign, StepInvoke}

// Source is where named configuration values come from. *viper.Viper
// satisfies it.
type Source interface {
	GetString(key string) string
	GetBool(key string) bool
	GetDuration(key string) time.Duration
}

// ConfigError is a missing or malformed required value. It is always
// reported before any network call is made.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", strings.ToUpper(e.Key), e.Err)
}

func (e *ConfigError) Cause() error {
	return e.Err
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	ErrMissing = errors.New("value is required")
	ErrInvalid = errors.New("value is invalid")
)

type Config struct {
	RpcUrl          string
	SignerKeypair   string
	InvokeProgramId solana.PublicKey
	RevertProgramId solana.PublicKey
	EvmProgramId    solana.PublicKey
	EvmStateId      solana.PublicKey
	FundLamports    uint64
	EtherAddress    string
	Extended        bool
	ExpectRevert    bool
	Steps           []string
	ConfirmTimeout  time.Duration
	PollInterval    time.Duration
	SkipPreflight   bool
	LogLevel        string
	LogPath         string
	DingUrl         string
	DBUrl           string
	DBScheme        string
	DBUser          string
	DBPasswd        string
	Listen          string
	WatchInterval   time.Duration
}

// NewViper binds every key to its upper case environment variable and sets
// defaults for the optional ones.
func NewViper() *viper.Viper {
	v := viper.New()
	for _, key := range []string{
		RpcUrlKey, SignerKeypairKey, InvokeProgramIdKey, RevertProgramIdKey,
		EvmProgramIdKey, EvmStateIdKey, FundLamportsKey, EtherAddressKey,
		ExtendedKey, ExpectRevertKey, StepsKey, ConfirmTimeoutKey, PollIntervalKey,
		SkipPreflightKey, LogLevelKey, LogPathKey, DingUrlKey, DBUrlKey, DBSchemeKey,
		DBUserKey, DBPasswdKey, ListenKey, WatchIntervalKey,
	} {
		_ = v.BindEnv(key, strings.ToUpper(key))
	}
	v.SetDefault(EvmProgramIdKey, program.Evm.String())
	v.SetDefault(EvmStateIdKey, program.EvmState.String())
	v.SetDefault(FundLamportsKey, fmt.Sprintf("%d", program.DefaultFundLamports))
	v.SetDefault(ExtendedKey, true)
	v.SetDefault(ExpectRevertKey, true)
	v.SetDefault(StepsKey, strings.Join(DefaultSteps, ","))
	v.SetDefault(ConfirmTimeoutKey, "60s")
	v.SetDefault(PollIntervalKey, "500ms")
	v.SetDefault(LogLevelKey, "info")
	v.SetDefault(LogPathKey, LogPath)
	v.SetDefault(ListenKey, "0.0.0.0:8089")
	v.SetDefault(WatchIntervalKey, "10s")
	return v
}

// Load reads and validates the configuration. Absent values read as empty
// strings; required ones are rejected here rather than turned into zero
// addresses.
func Load(src Source) (*Config, error) {
	cfg := &Config{
		EtherAddress:   strings.TrimSpace(src.GetString(EtherAddressKey)),
		Extended:       src.GetBool(ExtendedKey),
		ExpectRevert:   src.GetBool(ExpectRevertKey),
		ConfirmTimeout: src.GetDuration(ConfirmTimeoutKey),
		PollInterval:   src.GetDuration(PollIntervalKey),
		SkipPreflight:  src.GetBool(SkipPreflightKey),
		LogLevel:       src.GetString(LogLevelKey),
		LogPath:        src.GetString(LogPathKey),
		DingUrl:        src.GetString(DingUrlKey),
		DBUrl:          src.GetString(DBUrlKey),
		DBScheme:       src.GetString(DBSchemeKey),
		DBUser:         src.GetString(DBUserKey),
		DBPasswd:       src.GetString(DBPasswdKey),
		Listen:         src.GetString(ListenKey),
		WatchInterval:  src.GetDuration(WatchIntervalKey),
	}
	var err error
	if cfg.RpcUrl, err = required(src, RpcUrlKey); err != nil {
		return nil, err
	}
	if cfg.SignerKeypair, err = required(src, SignerKeypairKey); err != nil {
		return nil, err
	}
	if cfg.InvokeProgramId, err = requiredAddress(src, InvokeProgramIdKey); err != nil {
		return nil, err
	}
	if cfg.RevertProgramId, err = requiredAddress(src, RevertProgramIdKey); err != nil {
		return nil, err
	}
	if cfg.EvmProgramId, err = requiredAddress(src, EvmProgramIdKey); err != nil {
		return nil, err
	}
	if cfg.EvmStateId, err = requiredAddress(src, EvmStateIdKey); err != nil {
		return nil, err
	}
	if cfg.FundLamports, err = lamports(src, FundLamportsKey); err != nil {
		return nil, err
	}
	if cfg.Steps, err = steps(src, StepsKey); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Endpoint reads only the RPC endpoint, for commands that do not run a
// workflow.
func Endpoint(src Source) (string, error) {
	return required(src, RpcUrlKey)
}

func required(src Source, key string) (string, error) {
	value := strings.TrimSpace(src.GetString(key))
	if value == "" {
		return "", &ConfigError{Key: key, Err: ErrMissing}
	}
	return value, nil
}

func requiredAddress(src Source, key string) (solana.PublicKey, error) {
	value, err := required(src, key)
	if err != nil {
		return solana.PublicKey{}, err
	}
	pubkey, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, &ConfigError{Key: key, Err: errors.Wrapf(ErrInvalid, "%q is not a base58 address: %s", value, err)}
	}
	return pubkey, nil
}

func lamports(src Source, key string) (uint64, error) {
	value, err := required(src, key)
	if err != nil {
		return 0, err
	}
	amount, err := revertable.ParseAmount(value)
	if err != nil {
		return 0, &ConfigError{Key: key, Err: errors.Wrapf(ErrInvalid, "%q is not a non-negative integer", value)}
	}
	return amount, nil
}

func steps(src Source, key string) ([]string, error) {
	value, err := required(src, key)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0)
	for _, step := range strings.Split(value, ",") {
		step = strings.ToLower(strings.TrimSpace(step))
		switch step {
		case StepFund, StepAssign, StepInvoke, StepBridge:
			out = append(out, step)
		default:
			return nil, &ConfigError{Key: key, Err: errors.Wrapf(ErrInvalid, "unknown step %q", step)}
		}
	}
	if out[0] != StepFund {
		return nil, &ConfigError{Key: key, Err: errors.Wrap(ErrInvalid, "the first step must be fund")}
	}
	return out, nil
}
