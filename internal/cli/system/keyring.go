package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/tenken/internal/cli"
	"github.com/julianstephens/tenken/internal/config"
	"github.com/julianstephens/tenken/internal/keyring"
	"github.com/julianstephens/tenken/internal/recordstore/postgres"
)

func kindOf(azure bool) config.StoreKind {
	if azure {
		return config.StoreAzure
	}
	return config.StorePostgres
}

// KeyringSetCmd stores store credentials in the OS keyring
type KeyringSetCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL or Azure Tables connection string to store in keyring."`
	Azure            bool   `help:"Store an Azure Tables connection string."`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	kind := kindOf(cmd.Azure)
	if kind == config.StoreAzure {
		if !strings.Contains(cmd.ConnectionString, "AccountName=") && !strings.Contains(cmd.ConnectionString, "TableEndpoint=") {
			return errors.New("connection string must be a valid Azure storage connection string")
		}
	} else {
		if !strings.HasPrefix(cmd.ConnectionString, "postgres://") &&
			!strings.HasPrefix(cmd.ConnectionString, "postgresql://") &&
			!strings.Contains(cmd.ConnectionString, "host=") {
			return errors.New("connection string must be a valid PostgreSQL connection string")
		}
		if err := postgres.ValidateConnString(cmd.ConnectionString); err != nil {
			if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return fmt.Errorf("invalid connection string: %w", err)
			}
			fmt.Fprintln(ctx.Out, "⚠️  Warning: Connection string contains embedded credentials.")
			fmt.Fprintln(ctx.Out, "   It will be stored as-is in the encrypted OS keyring.")
		}
	}

	if err := keyring.SetConnectionString(kind, cmd.ConnectionString); err != nil {
		return fmt.Errorf("failed to store connection string in keyring: %w", err)
	}
	fmt.Fprintf(ctx.Out, "✓ %s connection string stored successfully in OS keyring\n", kind)
	return nil
}

// KeyringGetCmd prints the stored connection string with secrets masked
type KeyringGetCmd struct {
	Azure bool `help:"Show the Azure Tables connection string."`
}

func (cmd *KeyringGetCmd) Run(ctx *cli.Context) error {
	kind := kindOf(cmd.Azure)
	connStr, err := keyring.GetConnectionString(kind)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s connection string found in keyring. Use 'tenken keyring set' to store one", kind)
		}
		return fmt.Errorf("failed to retrieve connection string from keyring: %w", err)
	}
	fmt.Fprintln(ctx.Out, maskPassword(connStr))
	return nil
}

// KeyringDeleteCmd removes store credentials from the OS keyring
type KeyringDeleteCmd struct {
	Azure bool `help:"Delete the Azure Tables connection string."`
}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	kind := kindOf(cmd.Azure)
	if err := keyring.DeleteConnectionString(kind); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s connection string found in keyring", kind)
		}
		return fmt.Errorf("failed to delete connection string from keyring: %w", err)
	}
	fmt.Fprintf(ctx.Out, "✓ %s connection string deleted from OS keyring\n", kind)
	return nil
}

// KeyringStatusCmd checks the availability of the OS keyring
type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		fmt.Fprintln(ctx.Out, "❌ OS keyring is not available on this system")
		return errors.New("keyring unavailable")
	}
	fmt.Fprintln(ctx.Out, "✓ OS keyring is available")
	for _, kind := range []config.StoreKind{config.StorePostgres, config.StoreAzure} {
		if _, err := keyring.GetConnectionString(kind); err == nil {
			fmt.Fprintf(ctx.Out, "✓ %s connection string is stored in keyring\n", kind)
		} else if errors.Is(err, keyring.ErrNotFound) {
			fmt.Fprintf(ctx.Out, "ℹ No %s connection string stored in keyring\n", kind)
		}
	}
	return nil
}

// maskPassword masks passwords and account keys in connection strings for display
func maskPassword(connStr string) string {
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		if idx := strings.Index(connStr, "://"); idx != -1 {
			remaining := connStr[idx+3:]
			if atIdx := strings.LastIndex(remaining, "@"); atIdx != -1 {
				userInfo := remaining[:atIdx]
				if colonIdx := strings.Index(userInfo, ":"); colonIdx != -1 {
					return connStr[:idx+3] + userInfo[:colonIdx] + ":****" + connStr[idx+3+atIdx:]
				}
			}
		}
		return connStr
	}

	if strings.Contains(connStr, ";") {
		parts := strings.Split(connStr, ";")
		for i, part := range parts {
			k, _, ok := strings.Cut(part, "=")
			if ok && (strings.EqualFold(k, "AccountKey") || strings.EqualFold(k, "SharedAccessSignature")) {
				parts[i] = k + "=****"
			}
		}
		return strings.Join(parts, ";")
	}

	if strings.Contains(connStr, "password=") {
		fields := strings.Fields(connStr)
		for i, f := range fields {
			if strings.HasPrefix(f, "password=") {
				fields[i] = "password=****"
			}
		}
		return strings.Join(fields, " ")
	}
	return connStr
}
