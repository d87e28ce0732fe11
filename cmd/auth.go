/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/mautops/taskflow-gin/internal/client"
	"github.com/mautops/taskflow-gin/internal/config"
	"github.com/mautops/taskflow-gin/internal/session"
	"github.com/spf13/cobra"
)

// loginCmd 登录并把令牌保存到系统密钥环
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to a TaskFlow server and cache the session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, err := openSession(cmd)
		if err != nil {
			return err
		}

		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		remember, _ := cmd.Flags().GetBool("remember")
		if email == "" {
			return errors.New("--email is required")
		}
		if password == "" {
			fmt.Fprint(cmd.OutOrStdout(), "Password: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = strings.TrimSpace(line)
		}

		sess, err := client.New(serverURL(cmd, cfg), "").Login(cmd.Context(), email, password, remember)
		if err != nil {
			return err
		}
		if err := store.Save(sess, remember); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s Logged in as %s (%s), session valid until %s\n",
			green("✓"), bold(sess.User.Name), sess.User.Role, sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
		return nil
	},
}

// logoutCmd 注销令牌并清除本地会话
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the cached session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := openSession(cmd)
		if err != nil {
			return err
		}
		sess, err := store.Load()
		if errors.Is(err, session.ErrNoSession) || errors.Is(err, session.ErrExpired) {
			fmt.Fprintln(cmd.OutOrStdout(), dim("Not logged in"))
			return nil
		}
		if err != nil {
			return err
		}

		// 服务端注销失败时仍然清除本地会话
		if err := client.New(sess.ServerURL, sess.Token).Logout(cmd.Context()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s server logout failed: %v\n", red("!"), err)
		}
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Logged out\n", green("✓"))
		return nil
	},
}

// whoamiCmd 显示当前登录用户
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the user of the cached session",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := openSession(cmd)
		if err != nil {
			return err
		}
		sess, err := store.Load()
		if err != nil {
			return err
		}

		me, err := client.New(sess.ServerURL, sess.Token).Me(cmd.Context())
		var apiErr *client.Error
		if errors.As(err, &apiErr) && apiErr.Status == 401 {
			_ = store.Clear()
			return session.ErrExpired
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s <%s>\n", bold("User:"), me.Name, me.Email)
		fmt.Fprintf(out, "%s %s\n", bold("Role:"), cyan(me.Role))
		fmt.Fprintf(out, "%s %s\n", bold("Server:"), sess.ServerURL)
		fmt.Fprintf(out, "%s %s\n", bold("Expires:"), sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
		return nil
	},
}

func openSession(cmd *cobra.Command) (*config.Config, *session.Store, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	store, err := session.Open(cfg.Client.KeyringService)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

func serverURL(cmd *cobra.Command, cfg *config.Config) string {
	if url, _ := cmd.Flags().GetString("server"); url != "" {
		return url
	}
	return cfg.Client.ServerURL
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)

	loginCmd.Flags().String("server", "", "Server URL (default: client.server_url)")
	loginCmd.Flags().String("email", "", "Account email")
	loginCmd.Flags().String("password", "", "Account password (prompted when empty)")
	loginCmd.Flags().Bool("remember", false, "Keep the session for 30 days instead of 7")
}
