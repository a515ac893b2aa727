package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kabiseo/internal/identity"
)

var loginName, loginPhone string

// loginCmd stores the reviewer identity
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Set the reviewer name and phone number",
	Long: `Stores the identity the chat is opened for. A running chat for another
identity ends as soon as the file changes.

Example:
  kabiseo login --name 김철수 --phone 010-1234-5678`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

// logoutCmd removes the stored identity
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored identity",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

// whoamiCmd prints the stored identity
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the stored identity",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().StringVar(&loginName, "name", "", "Reviewer name (required)")
	loginCmd.Flags().StringVar(&loginPhone, "phone", "", "Phone number (required)")
	_ = loginCmd.MarkFlagRequired("name")
	_ = loginCmd.MarkFlagRequired("phone")
}

func runLogin(cmd *cobra.Command, args []string) error {
	id := identity.Normalize(loginName, loginPhone)
	store := identity.NewStore(configDir())
	if err := store.Save(id); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	logger.Debug("identity saved", zap.String("path", store.Path))
	fmt.Fprintf(cmd.OutOrStdout(), "%s 님으로 로그인했습니다.\n", id.Name)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	store := identity.NewStore(configDir())
	if err := store.Clear(); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	logger.Debug("identity cleared", zap.String("path", store.Path))
	fmt.Fprintln(cmd.OutOrStdout(), "로그아웃했습니다.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	id, err := identity.NewStore(configDir()).Load()
	switch {
	case errors.Is(err, identity.ErrNoIdentity):
		fmt.Fprintln(cmd.OutOrStdout(), "로그인되어 있지 않습니다.")
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", id.Name, id.Phone)
	return nil
}
