// Command bankctl performs operator tasks against the ledger database:
// creating users and setting account balances.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"bankly/internal/auth"
	"bankly/internal/bank"
	"bankly/internal/storage"

	"github.com/shopspring/decimal"
	"golang.org/x/term"
)

const defaultDBPath = "bankly.db"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: bankctl <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  adduser     create a user")
	fmt.Fprintln(w, "  setbalance  set the balance of an account")
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stdout)
		return fmt.Errorf("missing command")
	}

	ctx := context.Background()
	switch args[0] {
	case "adduser":
		return addUser(ctx, args[1:], stdin, stdout, stderr)
	case "setbalance":
		return setBalance(ctx, args[1:], stdout, stderr)
	case "-h", "-help", "--help", "help":
		usage(stdout)
		return flag.ErrHelp
	default:
		usage(stdout)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// openDB opens Postgres when DATABASE_URL is set, SQLite otherwise. DB_PATH
// overrides the SQLite path unless -db was given explicitly.
func openDB(dbPath string) (*storage.DB, error) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return storage.NewPostgres(url, 2)
	}
	if path := os.Getenv("DB_PATH"); path != "" && dbPath == defaultDBPath {
		dbPath = path
	}
	return storage.NewDB(dbPath)
}

func addUser(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	username := fs.String("user", "", "Username")
	email := fs.String("email", "", "Email address")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	dbPath := fs.String("db", defaultDBPath, "Path to database file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" {
		fmt.Fprintln(stdout, "Usage: bankctl adduser -user <username> [-email <email>] [-password <password>] [-db <db_path>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: user")
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}

	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	db, err := openDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if _, err := db.GetUserByUsername(ctx, *username); err == nil {
		return fmt.Errorf("user %s already exists", *username)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := db.CreateUser(ctx, *username, *email, hash)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %d\n", user.Username, user.ID)
	return nil
}

func setBalance(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("setbalance", flag.ContinueOnError)
	fs.SetOutput(stderr)

	accountID := fs.Int64("account", 0, "Account number")
	balanceFlag := fs.String("balance", "", "New balance, non-negative, at most 2 decimal places and below 100000000")
	dbPath := fs.String("db", defaultDBPath, "Path to database file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *accountID <= 0 || *balanceFlag == "" {
		fmt.Fprintln(stdout, "Usage: bankctl setbalance -account <id> -balance <amount> [-db <db_path>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: account, balance")
	}

	balance, err := decimal.NewFromString(*balanceFlag)
	if err != nil {
		return fmt.Errorf("invalid balance %q: %w", *balanceFlag, err)
	}
	if err := bank.CheckBalance(balance); err != nil {
		return fmt.Errorf("invalid balance %q: %w", *balanceFlag, err)
	}

	db, err := openDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if _, err := db.GetAccount(ctx, *accountID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("account %d does not exist", *accountID)
		}
		return fmt.Errorf("failed to load account: %w", err)
	}

	if err := db.SetBalance(ctx, *accountID, balance); err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}

	fmt.Fprintf(stdout, "Account %d balance set to %s\n", *accountID, balance.StringFixed(2))
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Pipes and tests
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
