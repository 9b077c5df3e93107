package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/swayhq/sway/internal/core/config"
	"github.com/swayhq/sway/internal/core/store"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage admin API keys",
}

var keysCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an admin API key",
	Long: `Create an admin API key signed with one of the configured HMAC secrets
(SWAY_HMAC_SECRET, SWAY_HMAC_SECRET_N). The key is printed once and cannot be
recovered.`,
	Args: cobra.ExactArgs(1),
	RunE: runKeysCreate,
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke <id>",
	Short: "Revoke an admin API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysRevoke,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List admin API keys",
	Args:  cobra.NoArgs,
	RunE:  runKeysList,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysCreateCmd, keysRevokeCmd, keysListCmd)
	keysCreateCmd.Flags().String("secret-id", "", "secret id to sign with (default: newest)")
}

func openAdminKeys(cmd *cobra.Command) (*store.AdminKeys, map[string][]byte, func() error, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	secrets, err := config.HMACSecrets()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	database, queries, err := openDatabase(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return store.NewAdminKeys(queries, secrets), secrets, database.Close, nil
}

func runKeysCreate(cmd *cobra.Command, args []string) error {
	secretID, _ := cmd.Flags().GetString("secret-id")

	keys, secrets, closeDB, err := openAdminKeys(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	if secretID == "" {
		var ok bool
		if secretID, ok = store.DefaultSecretID(secrets); !ok {
			return fmt.Errorf("no HMAC secrets configured (set SWAY_HMAC_SECRET environment variable)")
		}
	}

	apiKey, key, err := keys.Create(args[0], secretID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "id:  %s\nkey: %s\n", key.ID, apiKey)
	return nil
}

func runKeysRevoke(cmd *cobra.Command, args []string) error {
	keys, _, closeDB, err := openAdminKeys(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := keys.Revoke(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
	return nil
}

func runKeysList(cmd *cobra.Command, args []string) error {
	keys, _, closeDB, err := openAdminKeys(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	list, err := keys.List()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSECRET\tCREATED\tSTATUS")
	for _, k := range list {
		state := "active"
		if k.Revoked() {
			state = "revoked"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", k.ID, k.Name, k.SecretID, k.CreatedAt.Format("2006-01-02 15:04:05"), state)
	}
	return w.Flush()
}
