package chains

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultRegistry []byte

// File is the on-disk registry layout.
type File struct {
	TickerChainID int64         `yaml:"ticker_chain_id" toml:"ticker_chain_id"`
	Stablecoins   []string      `yaml:"stablecoins" toml:"stablecoins"`
	Chains        []ChainConfig `yaml:"chains" toml:"chains"`
}

// Registry is the read-only set of configured chains. It is built once at
// startup and shared by reference.
type Registry struct {
	chains        map[int64]ChainConfig
	ids           []int64
	stablecoins   map[string]bool
	tickerChainID int64
	geckoNetworks map[string]int64
	dexChains     map[string]int64
}

// NewRegistry validates f and builds the lookup tables.
func NewRegistry(f File) (*Registry, error) {
	r := &Registry{
		chains:        make(map[int64]ChainConfig, len(f.Chains)),
		stablecoins:   make(map[string]bool, len(f.Stablecoins)),
		tickerChainID: f.TickerChainID,
		geckoNetworks: make(map[string]int64),
		dexChains:     make(map[string]int64),
	}

	for _, s := range f.Stablecoins {
		r.stablecoins[strings.ToUpper(s)] = true
	}

	for _, c := range f.Chains {
		if c.ID <= 0 {
			return nil, fmt.Errorf("chain %q: id must be positive", c.Name)
		}
		if _, dup := r.chains[c.ID]; dup {
			return nil, fmt.Errorf("chain %d: duplicate id", c.ID)
		}
		c.PopularTokens = append([]PopularToken(nil), c.PopularTokens...)
		c.index()
		r.chains[c.ID] = c
		r.ids = append(r.ids, c.ID)

		if c.GeckoTerminalNetwork != "" {
			r.geckoNetworks[c.GeckoTerminalNetwork] = c.ID
		}
		for _, alias := range c.GeckoTerminalAliases {
			r.geckoNetworks[alias] = c.ID
		}
		if c.DexScreenerChain != "" {
			r.dexChains[c.DexScreenerChain] = c.ID
		}
	}
	sort.Slice(r.ids, func(i, j int) bool { return r.ids[i] < r.ids[j] })

	if r.tickerChainID != 0 {
		if _, ok := r.chains[r.tickerChainID]; !ok {
			return nil, fmt.Errorf("ticker_chain_id %d is not a configured chain", r.tickerChainID)
		}
	}

	return r, nil
}

// Load reads a registry from path. YAML and TOML are selected by extension;
// an empty path loads the embedded default registry.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Parse(defaultRegistry, "yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chains file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return Parse(data, "yaml")
	case ".toml":
		return Parse(data, "toml")
	default:
		return nil, fmt.Errorf("unsupported chains file format: %s", ext)
	}
}

// Parse decodes a registry document in the given format ("yaml" or "toml").
func Parse(data []byte, format string) (*Registry, error) {
	var f File
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing chains yaml: %w", err)
		}
	case "toml":
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing chains toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported chains format: %s", format)
	}
	return NewRegistry(f)
}

// WithRPCOverrides returns a copy of the registry with RPC endpoints replaced
// from CHAIN_<ID>_RPC_URL variables resolved through lookup.
func (r *Registry) WithRPCOverrides(lookup func(string) string) *Registry {
	out := *r
	out.chains = make(map[int64]ChainConfig, len(r.chains))
	for id, c := range r.chains {
		if url := lookup(RPCVariableName(id)); url != "" {
			c.RPCURL = url
		}
		out.chains[id] = c
	}
	return &out
}

// RPCVariableName is the environment variable overriding the RPC endpoint of chainID.
func RPCVariableName(chainID int64) string {
	return "CHAIN_" + strconv.FormatInt(chainID, 10) + "_RPC_URL"
}

// Get retrieves a chain by id
func (r *Registry) Get(id int64) (ChainConfig, bool) {
	c, ok := r.chains[id]
	return c, ok
}

// List returns all configured chains ordered by id
func (r *Registry) List() []ChainConfig {
	out := make([]ChainConfig, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.chains[id])
	}
	return out
}

// Active returns the active chains for an environment ("mainnet" or "testnet"),
// ordered by id.
func (r *Registry) Active(environment string) []ChainConfig {
	testnet := environment == "testnet"
	var out []ChainConfig
	for _, id := range r.ids {
		c := r.chains[id]
		if c.Active && c.Testnet == testnet {
			out = append(out, c)
		}
	}
	return out
}

// IsActive reports whether chain id is searched in environment.
func (r *Registry) IsActive(id int64, environment string) bool {
	c, ok := r.chains[id]
	return ok && c.Active && c.Testnet == (environment == "testnet")
}

// IsStablecoin reports whether symbol is a configured stablecoin.
func (r *Registry) IsStablecoin(symbol string) bool {
	return r.stablecoins[strings.ToUpper(symbol)]
}

// ChainForGeckoTerminal maps a GeckoTerminal network slug to a chain id.
func (r *Registry) ChainForGeckoTerminal(network string) (int64, bool) {
	id, ok := r.geckoNetworks[network]
	return id, ok
}

// ChainForDexScreener maps a DexScreener chain slug to a chain id.
func (r *Registry) ChainForDexScreener(slug string) (int64, bool) {
	id, ok := r.dexChains[slug]
	return id, ok
}

// TickerChainID is the chain whose popular table backs exchange ticker results.
func (r *Registry) TickerChainID() int64 {
	return r.tickerChainID
}
