package auth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/crucial707/cinebrowse/cmd/cli/client"
	"github.com/crucial707/cinebrowse/cmd/cli/config"
	"github.com/crucial707/cinebrowse/cmd/cli/output"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// InitAuth registers the account commands on the root command.
func InitAuth(rootCmd *cobra.Command) {
	rootCmd.AddCommand(signupCmd(), loginCmd(), logoutCmd(), meCmd(), activityCmd())
}

type user struct {
	ID         int       `json:"id"`
	Username   string    `json:"username"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	ExternalID string    `json:"externalId"`
	Mobile     string    `json:"mobile"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ==========================
// Signup
// ==========================
func signupCmd() *cobra.Command {
	var in struct {
		username, password, name, email, mobile, externalID string
	}

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.password == "" {
				p, err := promptPassword(cmd)
				if err != nil {
					return err
				}
				in.password = p
			}

			var out struct {
				User user `json:"user"`
			}
			session, err := client.Call(http.MethodPost, "/auth/signup", "", map[string]string{
				"username":   in.username,
				"password":   in.password,
				"name":       in.name,
				"email":      in.email,
				"mobile":     in.mobile,
				"externalId": in.externalID,
			}, &out)
			if err != nil {
				return fmt.Errorf("signup failed: %w", err)
			}
			if err := storeSession(session); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Account created. Signed in as %s.\n", out.User.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.username, "username", "", "Username")
	cmd.Flags().StringVar(&in.password, "password", "", "Password (prompted when omitted)")
	cmd.Flags().StringVar(&in.name, "name", "", "Full name")
	cmd.Flags().StringVar(&in.email, "email", "", "Email address")
	cmd.Flags().StringVar(&in.mobile, "mobile", "", "Mobile number")
	cmd.Flags().StringVar(&in.externalID, "external-id", "", "External member id")
	for _, f := range []string{"username", "name", "email", "mobile", "external-id"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

// ==========================
// Login
// ==========================
func loginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				p, err := promptPassword(cmd)
				if err != nil {
					return err
				}
				password = p
			}

			var out struct {
				User user `json:"user"`
			}
			session, err := client.Call(http.MethodPost, "/auth/login", "",
				map[string]string{"username": username, "password": password}, &out)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if err := storeSession(session); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", out.User.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// ==========================
// Logout
// ==========================
func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := config.LoadSession()
			if errors.Is(err, config.ErrNoSession) {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			if err != nil {
				return err
			}

			// The API records the logout; the local file is removed either way.
			if _, err := client.Call(http.MethodPost, "/auth/logout", session, nil, nil); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			if _, err := config.ClearSession(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

// ==========================
// Me
// ==========================
func meCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := config.LoadSession()
			if err != nil {
				return err
			}

			var out struct {
				User user `json:"user"`
			}
			if _, err := client.Call(http.MethodGet, "/auth/me", session, nil, &out); err != nil {
				return err
			}

			if asJSON {
				return output.PrintJSON(cmd.OutOrStdout(), out.User)
			}
			u := out.User
			output.RenderTable(cmd.OutOrStdout(),
				[]string{"ID", "Username", "Name", "Email", "Mobile", "External ID", "Member Since"},
				[][]interface{}{{u.ID, u.Username, u.Name, u.Email, u.Mobile, u.ExternalID, u.CreatedAt.Format("2006-01-02")}})
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// ==========================
// Activity
// ==========================
func activityCmd() *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "List recent sign-ins, sign-ups and sign-outs for your account",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := config.LoadSession()
			if err != nil {
				return err
			}

			var out struct {
				Items []struct {
					Action    string    `json:"action"`
					IP        string    `json:"ip"`
					UserAgent string    `json:"userAgent"`
					CreatedAt time.Time `json:"createdAt"`
				} `json:"items"`
			}
			if _, err := client.Call(http.MethodGet, fmt.Sprintf("/auth/activity?limit=%d", limit), session, nil, &out); err != nil {
				return err
			}

			if asJSON {
				return output.PrintJSON(cmd.OutOrStdout(), out.Items)
			}
			rows := make([][]interface{}, 0, len(out.Items))
			for _, it := range out.Items {
				rows = append(rows, []interface{}{it.CreatedAt.Local().Format(time.DateTime), it.Action, it.IP, it.UserAgent})
			}
			output.RenderTable(cmd.OutOrStdout(), []string{"When", "Action", "IP", "Client"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of events to show (max 100)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func storeSession(session string) error {
	if session == "" {
		return errors.New("API did not return a session")
	}
	if err := config.SaveSession(session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// promptPassword reads a password without echo from a terminal, or one line from piped stdin.
func promptPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
