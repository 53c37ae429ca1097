package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/term"

	"github.com/provenir/provenir/binding"
	"github.com/provenir/provenir/cidutil"
	"github.com/provenir/provenir/config"
	"github.com/provenir/provenir/digest"
	"github.com/provenir/provenir/keys"
	"github.com/provenir/provenir/provenance"
	"github.com/provenir/provenir/registry"
	"github.com/provenir/provenir/storage/providerreg"
	"github.com/provenir/provenir/verifycache"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "init":
		return cmdInit(args[1:], out, errOut)
	case "upload":
		return cmdUpload(args[1:], out, errOut)
	case "verify":
		return cmdVerify(args[1:], out, errOut)
	case "bind":
		return cmdBind(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "provenir: content provenance manifests anchored on-chain")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  provenir init [--config <path>] [--rpc-url <url>] [--registry <address>] [--provider <name>] ...")
	fmt.Fprintln(w, "  provenir upload [--config <path>] [--ipfs-provider <name>] [--upload-content] [--timeout <d>] <file>")
	fmt.Fprintln(w, "  provenir verify [--config <path>] [--manifest-uri <uri> ...] [<file-or-manifest-uri>]")
	fmt.Fprintln(w, "  provenir bind [--config <path>] --content-hash <0xhex> --identity <addr> --binding <platform>:<id> [--binding ...]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - config lives at ~/.provenir/config.json unless --config is given")
	fmt.Fprintln(w, "  - upload hashes and registers without publishing content bytes; add --upload-content to publish them")
	fmt.Fprintln(w, "  - verify prints a verdict JSON and exits 0 for any verdict, including negative ones")
	fmt.Fprintln(w, "  - exit codes: 0 ok, 1 operation failed, 2 usage error")
	fmt.Fprintf(w, "  - storage providers: %s\n", strings.Join(providerreg.Names(), ", "))
}

// configPath resolves --config, falling back to the per-user default.
func configPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultPath()
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.Config{}, fmt.Errorf("no config at %s (run 'provenir init')", path)
		}
		return config.Config{}, err
	}
	return cfg, nil
}

func fail(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error (%s): %v\n", provenance.ErrorKind(err), err)
	return 1
}

// promptSecret reads a value without echo when stdin is a terminal, and
// falls back to a plain line read otherwise (pipes, tests).
func promptSecret(label string, errOut io.Writer) (string, error) {
	fmt.Fprintf(errOut, "%s: ", label)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(errOut)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	r := bufio.NewReader(os.Stdin)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func cmdInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var cfgPath string
	var rpcURL string
	var registryAddr string
	var hashAlg string
	var provider string
	var apiBaseURL string
	var privateKey string
	var promptSecrets bool
	var settingsKV stringList

	fs.StringVar(&cfgPath, "config", "", "Config file path (default ~/.provenir/config.json)")
	fs.StringVar(&rpcURL, "rpc-url", "", "JSON-RPC endpoint of the chain")
	fs.StringVar(&registryAddr, "registry", "", "Registry contract address")
	fs.StringVar(&hashAlg, "hash-alg", digest.SHA256, "Content hash algorithm (sha256, sha3-256, keccak256)")
	fs.StringVar(&provider, "provider", "", "Storage provider name")
	fs.StringVar(&apiBaseURL, "api-base-url", "", "Binding-proxy API base URL")
	fs.StringVar(&privateKey, "private-key", "", "Hex private key or keystore file path (prompted when omitted with --prompt-secrets)")
	fs.BoolVar(&promptSecrets, "prompt-secrets", true, "Prompt for missing secrets instead of leaving them unset")
	fs.Var(&settingsKV, "setting", "Provider setting as key=value (repeatable, e.g. pinata_jwt=..., daemon_addr=...)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	path, err := configPath(cfgPath)
	if err != nil {
		return fail(errOut, err)
	}

	// Start from the existing file so init can be re-run to change one
	// setting without retyping the rest.
	cfg, err := config.LoadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fail(errOut, err)
	}

	if rpcURL != "" {
		cfg.RPCURL = rpcURL
	}
	if registryAddr != "" {
		cfg.RegistryAddress = registryAddr
	}
	if hashAlg != "" {
		cfg.HashAlgorithm = hashAlg
	}
	if provider != "" {
		cfg.Provider = provider
	}
	if apiBaseURL != "" {
		cfg.APIBaseURL = apiBaseURL
	}
	if privateKey != "" {
		cfg.PrivateKey = privateKey
	}

	settings, err := parseKVSettings(settingsKV)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --setting: %v\n", err)
		return 2
	}
	if len(settings) > 0 {
		if cfg.ProviderSettings == nil {
			cfg.ProviderSettings = make(map[string]string)
		}
		for k, v := range settings {
			cfg.ProviderSettings[k] = v
		}
	}

	if promptSecrets {
		if cfg.PrivateKey == "" {
			v, perr := promptSecret("private key (hex or keystore path, empty to skip)", errOut)
			if perr != nil {
				return fail(errOut, perr)
			}
			cfg.PrivateKey = v
		}
		if cfg.APIBaseURL != "" && cfg.APIKey == "" {
			v, perr := promptSecret("binding-proxy api key (empty to skip)", errOut)
			if perr != nil {
				return fail(errOut, perr)
			}
			cfg.APIKey = v
		}
	}

	if _, err := cfg.Engine(); err != nil {
		return fail(errOut, err)
	}
	if err := cfg.Save(path); err != nil {
		return fail(errOut, err)
	}
	fmt.Fprintf(out, "Wrote %s\n", path)
	return 0
}

// uploadReceipt is the upload command's JSON output shape.
type uploadReceipt struct {
	ContentHash       string `json:"contentHash"`
	ManifestURI       string `json:"manifestUri"`
	ContentURI        string `json:"contentUri,omitempty"`
	CreatorAddress    string `json:"creatorAddress"`
	TxHash            string `json:"txHash,omitempty"`
	AlreadyRegistered bool   `json:"alreadyRegistered"`
}

func cmdUpload(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var cfgPath string
	var uploadContent bool
	var rpcURL string
	var registryAddr string
	var providerName string
	var privateKey string
	var timeout time.Duration

	fs.StringVar(&cfgPath, "config", "", "Config file path")
	fs.BoolVar(&uploadContent, "upload-content", false, "Publish the content bytes alongside the manifest")
	fs.StringVar(&rpcURL, "rpc-url", "", "Override the configured JSON-RPC endpoint")
	fs.StringVar(&registryAddr, "registry", "", "Override the configured registry contract address")
	fs.StringVar(&providerName, "ipfs-provider", "", "Override the configured storage provider")
	fs.StringVar(&providerName, "provider", "", "Alias for --ipfs-provider")
	fs.StringVar(&privateKey, "private-key", "", "Override the configured signing key")
	fs.DurationVar(&timeout, "timeout", 0, "Overall time budget for the operation (0 uses the chain client's own bounds)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: provenir upload [flags] <file>")
		return 2
	}
	filePath := fs.Arg(0)

	path, err := configPath(cfgPath)
	if err != nil {
		return fail(errOut, err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return fail(errOut, err)
	}
	if rpcURL != "" {
		cfg.RPCURL = rpcURL
	}
	if registryAddr != "" {
		cfg.RegistryAddress = registryAddr
	}
	if providerName != "" {
		cfg.Provider = providerName
	}
	if privateKey != "" {
		cfg.PrivateKey = privateKey
	}
	if err := cfg.ValidateUpload(); err != nil {
		return fail(errOut, err)
	}

	engine, err := cfg.Engine()
	if err != nil {
		return fail(errOut, err)
	}
	key, err := keys.LoadPrivateKey(cfg.PrivateKey, func() (string, error) {
		return promptSecret("keystore passphrase", errOut)
	})
	if err != nil {
		return fail(errOut, err)
	}
	provider, err := cfg.OpenProvider()
	if err != nil {
		return fail(errOut, err)
	}

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	reg, err := registry.DialEth(ctx, registry.EthOptions{
		RPCURL:          cfg.RPCURL,
		ContractAddress: cfg.ContractAddress(),
		Key:             key,
	})
	if err != nil {
		return fail(errOut, err)
	}
	defer reg.Close()

	registrar, err := provenance.NewRegistrar(provenance.RegistrarOptions{
		Engine:   engine,
		Provider: provider,
		Registry: reg,
		Key:      key,
	})
	if err != nil {
		return fail(errOut, err)
	}

	receipt, err := registrar.Register(ctx, provenance.FileSource(filePath),
		provenance.RegisterOptions{UploadContent: uploadContent})
	if err != nil {
		// A step failure still carries everything computed before it;
		// surface the URIs so a retry can resume.
		var step *provenance.StepError
		if errors.As(err, &step) && step.ManifestURI != "" {
			fmt.Fprintf(errOut, "manifest already stored at %s\n", step.ManifestURI)
		}
		return fail(errOut, err)
	}

	view := uploadReceipt{
		ContentHash:       receipt.ContentHash.Hex(),
		ManifestURI:       receipt.ManifestURI,
		ContentURI:        receipt.ContentURI,
		CreatorAddress:    strings.ToLower(receipt.Manifest.CreatorAddress.Hex()),
		AlreadyRegistered: receipt.AlreadyRegistered,
	}
	if receipt.Entry != nil && receipt.Entry.TxHash != (common.Hash{}) {
		view.TxHash = receipt.Entry.TxHash.Hex()
	}
	return printJSON(out, errOut, view)
}

// verdictView is the verify command's JSON output shape.
type verdictView struct {
	Status         string   `json:"status"`
	ManifestURI    string   `json:"manifestUri,omitempty"`
	ContentHash    string   `json:"contentHash,omitempty"`
	RecomputedHash string   `json:"recomputedHash,omitempty"`
	Creator        string   `json:"creator,omitempty"`
	Registrant     string   `json:"registrant,omitempty"`
	Reasons        []string `json:"reasons,omitempty"`
}

func viewOf(uri string, v *provenance.Verdict) verdictView {
	view := verdictView{Status: string(v.Status), ManifestURI: uri, Reasons: v.Reasons}
	if v.Manifest != nil {
		view.ContentHash = v.Manifest.ContentHash.Hex()
		view.Creator = strings.ToLower(v.Manifest.CreatorAddress.Hex())
	}
	if !v.RecomputedHash.IsZero() {
		view.RecomputedHash = v.RecomputedHash.Hex()
	}
	if v.Entry != nil {
		view.Registrant = strings.ToLower(v.Entry.CreatorAddress.Hex())
	}
	return view
}

func cmdVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var cfgPath string
	var rpcURL string
	var registryAddr string
	var providerName string
	var noCache bool
	var manifestURIs stringList

	fs.StringVar(&cfgPath, "config", "", "Config file path")
	fs.StringVar(&rpcURL, "rpc-url", "", "Override the configured JSON-RPC endpoint")
	fs.StringVar(&registryAddr, "registry", "", "Override the configured registry contract address")
	fs.StringVar(&providerName, "ipfs-provider", "", "Override the configured storage provider")
	fs.StringVar(&providerName, "provider", "", "Alias for --ipfs-provider")
	fs.BoolVar(&noCache, "no-cache", false, "Skip the verdict cache")
	fs.Var(&manifestURIs, "manifest-uri", "Manifest locator to verify (repeatable)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(errOut, "usage: provenir verify [flags] [<file-or-manifest-uri>]")
		return 2
	}
	// The positional argument is either a local file or a storage locator,
	// told apart by the scheme.
	var contentPath string
	if fs.NArg() == 1 {
		if arg := fs.Arg(0); isManifestURI(arg) {
			manifestURIs = append(manifestURIs, arg)
		} else {
			contentPath = arg
		}
	}
	if contentPath == "" && len(manifestURIs) == 0 {
		fmt.Fprintln(errOut, "nothing to verify: give a file, a manifest locator, or both")
		return 2
	}
	if contentPath != "" && len(manifestURIs) > 1 {
		fmt.Fprintln(errOut, "a local file can be checked against one manifest locator, not a batch")
		return 2
	}

	path, err := configPath(cfgPath)
	if err != nil {
		return fail(errOut, err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return fail(errOut, err)
	}
	if rpcURL != "" {
		cfg.RPCURL = rpcURL
	}
	if registryAddr != "" {
		cfg.RegistryAddress = registryAddr
	}
	if providerName != "" {
		cfg.Provider = providerName
	}
	if err := cfg.ValidateVerify(); err != nil {
		return fail(errOut, err)
	}

	engine, err := cfg.Engine()
	if err != nil {
		return fail(errOut, err)
	}
	provider, err := cfg.OpenProvider()
	if err != nil {
		return fail(errOut, err)
	}

	ctx := context.Background()
	reg, err := registry.DialEth(ctx, registry.EthOptions{
		RPCURL:          cfg.RPCURL,
		ContractAddress: cfg.ContractAddress(),
	})
	if err != nil {
		return fail(errOut, err)
	}
	defer reg.Close()

	verifier, err := provenance.NewVerifier(provenance.VerifierOptions{
		Engine:   engine,
		Provider: provider,
		Registry: reg,
	})
	if err != nil {
		return fail(errOut, err)
	}

	var content provenance.Source
	if contentPath != "" {
		content = provenance.FileSource(contentPath)
	}

	// Content-only lookup: hash the file and find its manifest on-chain.
	if len(manifestURIs) == 0 {
		verdict, err := verifier.VerifyContent(ctx, content)
		if err != nil {
			return fail(errOut, err)
		}
		return printJSON(out, errOut, viewOf("", verdict))
	}

	// Verdicts for bare locators are cacheable; a verdict that also checked
	// local content bytes is not keyed by locator alone, so it skips the
	// cache.
	var cache *verifycache.Cache
	if !noCache && content == nil {
		cache = verifycache.New(verifycache.DefaultTTL)
	}

	if len(manifestURIs) == 1 {
		uri := manifestURIs[0]
		verdict, err := verifyCached(ctx, verifier, cache, uri, content)
		if err != nil {
			return fail(errOut, err)
		}
		return printJSON(out, errOut, viewOf(uri, verdict))
	}

	verdicts, errs := verifier.VerifyBatch(ctx, manifestURIs)
	views := make([]verdictView, 0, len(manifestURIs))
	failed := false
	for i, uri := range manifestURIs {
		if errs[i] != nil {
			fmt.Fprintf(errOut, "error (%s): %s: %v\n", provenance.ErrorKind(errs[i]), uri, errs[i])
			failed = true
			continue
		}
		views = append(views, viewOf(uri, verdicts[i]))
	}
	if code := printJSON(out, errOut, views); code != 0 {
		return code
	}
	if failed {
		return 1
	}
	return 0
}

func verifyCached(ctx context.Context, verifier *provenance.Verifier, cache *verifycache.Cache, uri string, content provenance.Source) (*provenance.Verdict, error) {
	if cache != nil {
		if v, ok := cache.Get(uri); ok {
			return v, nil
		}
	}
	v, err := verifier.VerifyURI(ctx, uri, content)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		cache.Put(uri, v)
	}
	return v, nil
}

func cmdBind(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("bind", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var cfgPath string
	var contentHash string
	var identity string
	var bindingsKV stringList

	fs.StringVar(&cfgPath, "config", "", "Config file path")
	fs.StringVar(&contentHash, "content-hash", "", "Registered content hash (0x-prefixed hex)")
	fs.StringVar(&identity, "identity", "", "Creator identity the platform links are checked against")
	fs.Var(&bindingsKV, "binding", "Platform binding as <platform>:<platform-id> (repeatable)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if contentHash == "" {
		fmt.Fprintln(errOut, "missing --content-hash")
		return 2
	}
	if identity == "" {
		fmt.Fprintln(errOut, "missing --identity")
		return 2
	}
	if len(bindingsKV) == 0 {
		fmt.Fprintln(errOut, "missing --binding")
		return 2
	}
	if _, err := digest.ParseHex(contentHash); err != nil {
		fmt.Fprintf(errOut, "invalid --content-hash: %v\n", err)
		return 2
	}

	bindings := make([]binding.Binding, 0, len(bindingsKV))
	for _, kv := range bindingsKV {
		platform, platformID, ok := strings.Cut(kv, ":")
		if !ok || platform == "" || platformID == "" {
			fmt.Fprintf(errOut, "invalid --binding %q: expected <platform>:<platform-id>\n", kv)
			return 2
		}
		bindings = append(bindings, binding.Binding{
			Platform:   platform,
			PlatformID: platformID,
			ContentID:  contentHash,
		})
	}

	path, err := configPath(cfgPath)
	if err != nil {
		return fail(errOut, err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return fail(errOut, err)
	}
	if cfg.APIBaseURL == "" {
		return fail(errOut, &config.Error{Field: "api_base_url"})
	}
	if cfg.APIKey == "" {
		return fail(errOut, &config.Error{Field: "api_key"})
	}
	if err := cfg.ValidateChain(); err != nil {
		return fail(errOut, err)
	}

	proxy, err := binding.NewProxyClient(cfg.APIBaseURL, cfg.APIKey)
	if err != nil {
		return fail(errOut, err)
	}
	authorizer, err := binding.NewAuthorizer(proxy, binding.DefaultRequirements)
	if err != nil {
		return fail(errOut, err)
	}

	ctx := context.Background()
	if err := authorizer.AuthorizeAll(ctx, identity, bindings); err != nil {
		return fail(errOut, err)
	}

	if len(bindings) == 1 {
		err = proxy.Bind(ctx, binding.BindRequest{
			RegistryAddress: cfg.RegistryAddress,
			Platform:        bindings[0].Platform,
			PlatformID:      bindings[0].PlatformID,
			ContentHash:     contentHash,
		})
	} else {
		err = proxy.BindBatch(ctx, binding.BindBatchRequest{
			RegistryAddress: cfg.RegistryAddress,
			ContentHash:     contentHash,
			Bindings:        bindings,
		})
	}
	if err != nil {
		return fail(errOut, err)
	}
	fmt.Fprintf(out, "Bound %d platform identit%s to %s\n", len(bindings), plural(len(bindings), "y", "ies"), contentHash)
	return 0
}

// isManifestURI reports whether a verify argument names stored content
// rather than a local file.
func isManifestURI(arg string) bool {
	return strings.HasPrefix(arg, cidutil.Scheme)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func printJSON(out io.Writer, errOut io.Writer, v any) int {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(errOut, "encode output: %v\n", err)
		return 1
	}
	return 0
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func parseKVSettings(items []string) (map[string]string, error) {
	settings := make(map[string]string)
	for _, it := range items {
		k, v, ok := strings.Cut(it, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", it)
		}
		k = strings.TrimSpace(k)
		if k == "" {
			return nil, errors.New("empty key")
		}
		if _, exists := settings[k]; exists {
			return nil, fmt.Errorf("duplicate setting key %q", k)
		}
		settings[k] = v
	}
	return settings, nil
}
