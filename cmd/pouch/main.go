// pouch is a non-custodial Ethereum wallet for the command line.
//
// Keys are derived locally (BIP-39/BIP-44) and stored encrypted in a
// local database. The configured JSON-RPC provider is used for balances,
// broadcasts, and transfer history.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/term"

	"github.com/etherpouch/etherpouch/config"
	"github.com/etherpouch/etherpouch/internal/account"
	"github.com/etherpouch/etherpouch/internal/engine"
	"github.com/etherpouch/etherpouch/internal/history"
	"github.com/etherpouch/etherpouch/internal/log"
	"github.com/etherpouch/etherpouch/internal/oracle"
	"github.com/etherpouch/etherpouch/internal/provider"
	"github.com/etherpouch/etherpouch/internal/storage"
	"github.com/etherpouch/etherpouch/internal/token"
)

func main() {
	cfg, flags, err := config.Load()
	if err != nil {
		fatal("%v", err)
	}

	logFile := cfg.Log.File
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		fatal("init logging: %v", err)
	}

	if len(flags.Args) == 0 {
		fatal("no command given (try --help)")
	}
	cmd := flags.Args[0]
	args := flags.Args[1:]

	app := &app{cfg: cfg}
	defer app.close()

	switch cmd {
	case "init":
		// config.Load already wrote the default file; just report it.
		fmt.Printf("Config file: %s\n", cfg.ConfigFile())
	case "create":
		app.cmdCreate(args)
	case "import":
		app.cmdImport(args)
	case "list":
		app.cmdList()
	case "switch":
		app.cmdSwitch(args)
	case "delete":
		app.cmdDelete(args)
	case "balance":
		app.cmdBalance()
	case "send":
		app.cmdSend(args)
	case "token":
		app.cmdToken(args)
	case "history":
		app.cmdHistory()
	default:
		fatal("unknown command %q (try --help)", cmd)
	}
}

// app lazily wires the wallet's collaborators. Commands that never touch
// the network run without a provider.
type app struct {
	cfg *config.Config

	db     storage.DB
	store  *account.Store
	tokens *token.Registry
	client *provider.Client
}

func (a *app) close() {
	if a.client != nil {
		a.client.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// openStore opens the wallet database and unlocks the vault, prompting
// for the passphrase.
func (a *app) openStore() *account.Store {
	if a.store != nil {
		return a.store
	}

	db, err := storage.NewBadger(a.cfg.WalletDir())
	if err != nil {
		fatal("open wallet database: %v", err)
	}
	a.db = db

	passphrase, err := readPassphrase("Passphrase: ")
	if err != nil {
		fatal("read passphrase: %v", err)
	}

	params := account.VaultParams{
		Memory:      uint32(a.cfg.Vault.Memory),
		Iterations:  uint32(a.cfg.Vault.Iterations),
		Parallelism: uint8(a.cfg.Vault.Parallelism),
	}
	// The vault and the token registry share one database under separate
	// key namespaces.
	store, err := account.OpenWithParams(storage.NewPrefixDB(db, []byte("vault/")), passphrase, params)
	if err != nil {
		fatal("unlock wallet: %v", err)
	}
	a.store = store

	// Token lists are purged when their owning account is deleted.
	a.tokens = token.NewRegistry(storage.NewPrefixDB(db, []byte("registry/")), a.lazyReader())
	store.AddPurger(a.tokens)

	return store
}

// readerFunc adapts a function to token.ChainReader.
type readerFunc func(ctx context.Context, to common.Address, data []byte) ([]byte, error)

func (f readerFunc) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return f(ctx, to, data)
}

// lazyReader defers provider dialing until a token operation actually
// calls the chain.
func (a *app) lazyReader() token.ChainReader {
	return readerFunc(func(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
		return a.provider().CallContract(ctx, to, data)
	})
}

// provider dials the configured endpoint on first use.
func (a *app) provider() *provider.Client {
	if a.client != nil {
		return a.client
	}
	if a.cfg.Node.RPCURL == "" {
		fatal("no provider configured: set node.rpcurl in %s or pass --rpcurl", a.cfg.ConfigFile())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := provider.DialWithTimeout(ctx, a.cfg.Node.RPCURL,
		time.Duration(a.cfg.Node.Timeout)*time.Second)
	if err != nil {
		fatal("dial provider: %v", err)
	}
	a.client = client
	return client
}

func (a *app) engine() *engine.Engine {
	store := a.openStore()
	return engine.New(store, a.provider(), a.cfg.Network.ChainID())
}

// ── Account commands ────────────────────────────────────────────────────

func (a *app) cmdCreate(args []string) {
	if len(args) != 1 {
		fatal("Usage: pouch create <name>")
	}
	store := a.openStore()

	acct, err := store.Create(args[0])
	if err != nil {
		fatal("create account: %v", err)
	}

	fmt.Println("Recovery phrase (write this down!):")
	fmt.Printf("  %s\n\n", acct.Mnemonic)
	fmt.Printf("Account created: %s\n", acct.Name)
	fmt.Printf("Address: %s\n", acct.Address.Hex())
}

func (a *app) cmdImport(args []string) {
	if len(args) != 1 {
		fatal("Usage: pouch import <name>")
	}
	store := a.openStore()

	secret, err := readPassphrase("Mnemonic or private key: ")
	if err != nil {
		fatal("read input: %v", err)
	}
	input := strings.TrimSpace(string(secret))

	var acct account.Account
	if strings.Contains(input, " ") {
		acct, err = store.ImportMnemonic(args[0], input)
	} else {
		acct, err = store.ImportPrivateKey(args[0], input)
	}
	if err != nil {
		fatal("import account: %v", err)
	}

	fmt.Printf("Account imported: %s\n", acct.Name)
	fmt.Printf("Address: %s\n", acct.Address.Hex())
}

func (a *app) cmdList() {
	store := a.openStore()

	accounts := store.List()
	if len(accounts) == 0 {
		fmt.Println("No accounts. Run 'pouch create <name>' to get started.")
		return
	}

	_, active, _ := store.Active()
	for i, acct := range accounts {
		marker := " "
		if i == active {
			marker = "*"
		}
		kind := "derived"
		if acct.Imported {
			kind = "imported"
		}
		fmt.Printf("%s %2d  %-20s %s  (%s)\n", marker, i, acct.Name, acct.Address.Hex(), kind)
	}
}

func (a *app) cmdSwitch(args []string) {
	if len(args) != 1 {
		fatal("Usage: pouch switch <index>")
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		fatal("index must be a number")
	}
	store := a.openStore()

	if err := store.SwitchActive(index); err != nil {
		fatal("switch account: %v", err)
	}
	acct, _, _ := store.Active()
	fmt.Printf("Active account: %s (%s)\n", acct.Name, acct.Address.Hex())
}

func (a *app) cmdDelete(args []string) {
	if len(args) != 1 {
		fatal("Usage: pouch delete <index>")
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		fatal("index must be a number")
	}
	store := a.openStore()

	accounts := store.List()
	if index < 0 || index >= len(accounts) {
		fatal("no account at index %d", index)
	}
	fmt.Printf("Deleting %s (%s). This removes its keys from this device.\n",
		accounts[index].Name, accounts[index].Address.Hex())
	if !confirm("Continue? [y/N] ") {
		fmt.Println("Aborted.")
		return
	}

	if err := store.Delete(index); err != nil {
		fatal("delete account: %v", err)
	}
	fmt.Println("Account deleted.")
}

// ── Network commands ────────────────────────────────────────────────────

func (a *app) cmdBalance() {
	eng := a.engine()
	ctx := context.Background()

	balance, err := eng.RefreshBalance(ctx)
	if err != nil {
		fatal("fetch balance: %v", err)
	}
	acct, _, _ := a.store.Active()

	fmt.Printf("%s (%s)\n", acct.Name, acct.Address.Hex())
	fmt.Printf("  %s ETH%s\n", balance, a.fiatSuffix(ctx, balance))

	fee := eng.EstimateFee(ctx)
	note := ""
	if fee.Static {
		note = " (static estimate)"
	}
	fmt.Printf("  transfer fee ~%s ETH%s\n", fee.Ether(), note)
}

func (a *app) cmdSend(args []string) {
	if len(args) != 2 {
		fatal("Usage: pouch send <to> <amount>")
	}
	to, amount := args[0], args[1]
	eng := a.engine()
	ctx := context.Background()

	fee := eng.EstimateFee(ctx)
	fmt.Printf("Sending %s ETH to %s (fee ~%s ETH)\n", amount, to, fee.Ether())
	if !confirm("Continue? [y/N] ") {
		fmt.Println("Aborted.")
		return
	}

	hash, err := eng.Send(ctx, to, amount)
	if err != nil {
		fatal("send: %v", err)
	}
	fmt.Printf("Submitted: %s\n", hash.Hex())
}

func (a *app) cmdToken(args []string) {
	if len(args) < 1 {
		fatal("Usage: pouch token <add|remove|list> [address]")
	}
	store := a.openStore()
	acct, _, err := store.Active()
	if err != nil {
		fatal("no active account: %v", err)
	}
	ctx := context.Background()

	switch args[0] {
	case "add":
		if len(args) != 2 {
			fatal("Usage: pouch token add <address>")
		}
		tok, err := a.tokens.Add(ctx, acct.Address, args[1])
		if err != nil {
			fatal("add token: %v", err)
		}
		fmt.Printf("Tracking %s (%s), %d decimals\n", tok.Name, tok.Symbol, tok.Decimals)
	case "remove":
		if len(args) != 2 {
			fatal("Usage: pouch token remove <address>")
		}
		if err := a.tokens.Remove(acct.Address, args[1]); err != nil {
			fatal("remove token: %v", err)
		}
		fmt.Println("Token removed.")
	case "list":
		list, err := a.tokens.List(acct.Address)
		if err != nil {
			fatal("list tokens: %v", err)
		}
		if len(list) == 0 {
			fmt.Println("No tracked tokens.")
			return
		}
		if _, err := a.tokens.RefreshBalances(ctx, acct.Address); err != nil {
			log.Token.Warn().Err(err).Msg("balance refresh failed")
		}
		for _, tok := range list {
			// Balance returns a human-unit string; print it as-is.
			bal := a.tokens.Balance(acct.Address, tok.Address)
			fmt.Printf("  %-8s %-24s %s  %s\n",
				tok.Symbol, tok.Name, bal, tok.Address.Hex())
		}
	default:
		fatal("unknown token command %q", args[0])
	}
}

func (a *app) cmdHistory() {
	store := a.openStore()
	acct, _, err := store.Active()
	if err != nil {
		fatal("no active account: %v", err)
	}

	agg := history.New(a.provider())
	res, err := agg.Fetch(context.Background(), acct.Address)
	if err != nil {
		fatal("fetch history: %v", err)
	}
	if res.Degraded {
		fmt.Fprintln(os.Stderr, "Warning: history is incomplete (one provider query failed)")
	}
	if len(res.Records) == 0 {
		fmt.Println("No transfers.")
		return
	}

	for _, r := range res.Records {
		arrow := "->"
		if r.Direction == history.DirectionReceived {
			arrow = "<-"
		}
		fmt.Printf("%9d  %s %s %-10s %s  %s\n",
			r.BlockNumber, arrow, r.Amount, r.Asset, r.Counterparty.Hex(), r.Hash.Hex())
	}
}

// fiatSuffix renders the fiat value of an ether amount, or nothing when
// the oracle is disabled or unavailable.
func (a *app) fiatSuffix(ctx context.Context, amount string) string {
	if !a.cfg.Oracle.Enabled {
		return ""
	}
	value := oracle.FiatValue(ctx, oracle.NewCoinbase(), a.cfg.Oracle.Pair, amount)
	if value == "" {
		return ""
	}
	quote := a.cfg.Oracle.Pair[strings.Index(a.cfg.Oracle.Pair, "-")+1:]
	return fmt.Sprintf(" (%s %s)", value, quote)
}

// ── Helpers ─────────────────────────────────────────────────────────────

func readPassphrase(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return secret, nil
}

func confirm(prompt string) bool {
	fmt.Fprint(os.Stderr, prompt)
	var answer string
	fmt.Scanln(&answer)
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
