package wallet

import (
	"fmt"
	"strconv"
	"time"
)

// FieldKind is the declared type of one settings field
type FieldKind int

const (
	FieldString FieldKind = iota
	FieldInt
	FieldBool
)

// Field declares one settings-bag entry: name, type, whether it is
// required, a default, and an integer range. Validation happens once at
// adapter construction; no runtime reflection.
type Field struct {
	Name     string
	Kind     FieldKind
	Required bool
	Default  string
	Min      int64
	Max      int64
}

// Schema is the declarative settings schema of one adapter kind
type Schema []Field

// Validate checks a raw settings bag against the schema, filling defaults.
// Unknown keys are rejected so a typo cannot silently disable a setting.
func (s Schema) Validate(raw map[string]string) (map[string]string, error) {
	known := make(map[string]bool, len(s))
	out := make(map[string]string, len(s))
	for _, f := range s {
		known[f.Name] = true
		v, present := raw[f.Name]
		if !present || v == "" {
			if f.Required {
				return nil, fmt.Errorf("setting %q is required", f.Name)
			}
			v = f.Default
		}
		switch f.Kind {
		case FieldInt:
			if v != "" {
				n, err := strconv.ParseInt(v, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("setting %q must be an integer: %w", f.Name, err)
				}
				if f.Max > f.Min && (n < f.Min || n > f.Max) {
					return nil, fmt.Errorf("setting %q must be in [%d,%d], got %d", f.Name, f.Min, f.Max, n)
				}
			}
		case FieldBool:
			if v != "" {
				if _, err := strconv.ParseBool(v); err != nil {
					return nil, fmt.Errorf("setting %q must be a boolean: %w", f.Name, err)
				}
			}
		}
		out[f.Name] = v
	}
	for k := range raw {
		if !known[k] {
			return nil, fmt.Errorf("unknown setting %q", k)
		}
	}
	return out, nil
}

var fullNodeSchema = Schema{
	{Name: "host", Kind: FieldString, Required: true},
	{Name: "port", Kind: FieldInt, Required: true, Min: 1, Max: 65535},
	{Name: "path", Kind: FieldString},
	{Name: "tls", Kind: FieldBool, Default: "false"},
	{Name: "user", Kind: FieldString, Required: true},
	{Name: "pass", Kind: FieldString, Required: true},
	{Name: "spend_passphrase", Kind: FieldString},
	{Name: "min_confirm", Kind: FieldInt, Default: "6", Min: 1, Max: 10000},
	{Name: "timeout_seconds", Kind: FieldInt, Default: "15", Min: 1, Max: 300},
}

// FullNodeSettings is the typed configuration of the JSON-RPC full-node
// adapter. The spend passphrase is kept separate from the RPC credentials.
type FullNodeSettings struct {
	Host            string
	Port            int
	Path            string
	TLS             bool
	User            string
	Pass            string
	SpendPassphrase string
	MinConfirm      int64
	Timeout         time.Duration
}

// FullNodeSettingsFrom validates and converts a raw settings bag.
func FullNodeSettingsFrom(raw map[string]string) (*FullNodeSettings, error) {
	v, err := fullNodeSchema.Validate(raw)
	if err != nil {
		return nil, fmt.Errorf("fullnode settings: %w", err)
	}
	port, _ := strconv.Atoi(v["port"])
	tls, _ := strconv.ParseBool(v["tls"])
	minConfirm, _ := strconv.ParseInt(v["min_confirm"], 10, 64)
	timeoutSec, _ := strconv.ParseInt(v["timeout_seconds"], 10, 64)
	return &FullNodeSettings{
		Host:            v["host"],
		Port:            port,
		Path:            v["path"],
		TLS:             tls,
		User:            v["user"],
		Pass:            v["pass"],
		SpendPassphrase: v["spend_passphrase"],
		MinConfirm:      minConfirm,
		Timeout:         time.Duration(timeoutSec) * time.Second,
	}, nil
}

var evmSchema = Schema{
	{Name: "rpc_url", Kind: FieldString, Required: true},
	{Name: "hot_address", Kind: FieldString, Required: true},
	{Name: "private_key", Kind: FieldString},
	{Name: "chain_id", Kind: FieldInt, Required: true, Min: 1, Max: 1 << 40},
	{Name: "min_confirm", Kind: FieldInt, Default: "12", Min: 1, Max: 10000},
}

// EVMSettings is the typed configuration of the EVM hot-wallet adapter.
// An empty private key yields a watch-only wallet that cannot spend.
type EVMSettings struct {
	RPCURL     string
	HotAddress string
	PrivateKey string
	ChainID    int64
	MinConfirm int64
}

// EVMSettingsFrom validates and converts a raw settings bag.
func EVMSettingsFrom(raw map[string]string) (*EVMSettings, error) {
	v, err := evmSchema.Validate(raw)
	if err != nil {
		return nil, fmt.Errorf("evm settings: %w", err)
	}
	chainID, _ := strconv.ParseInt(v["chain_id"], 10, 64)
	minConfirm, _ := strconv.ParseInt(v["min_confirm"], 10, 64)
	return &EVMSettings{
		RPCURL:     v["rpc_url"],
		HotAddress: v["hot_address"],
		PrivateKey: v["private_key"],
		ChainID:    chainID,
		MinConfirm: minConfirm,
	}, nil
}

var manualSchema = Schema{
	{Name: "deposit_reference", Kind: FieldString, Required: true},
}

// ManualSettings is the typed configuration of the manual/bank adapter.
type ManualSettings struct {
	DepositReference string
}

// ManualSettingsFrom validates and converts a raw settings bag.
func ManualSettingsFrom(raw map[string]string) (*ManualSettings, error) {
	v, err := manualSchema.Validate(raw)
	if err != nil {
		return nil, fmt.Errorf("manual settings: %w", err)
	}
	return &ManualSettings{DepositReference: v["deposit_reference"]}, nil
}
