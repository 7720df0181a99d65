package cli

import (
	"fmt"
	"os"

	"snapscreen/internal/auth"
	"snapscreen/internal/errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Create accounts and sign in through the identity provider",
	Long: `Talk to the configured identity provider (auth.apiKey). The password can
also be given in SNAPSCREEN_AUTH_PASSWORD so it stays out of shell history.`,
}

var authSignUpCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an email and password account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuth(cmd, "signup", func(s *auth.Session) auth.Result {
			return s.CreateAccount(cmd.Context(), authFlags.email, authPassword())
		})
	},
}

var authSignInCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in with email and password, or with --provider-id and --id-token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuth(cmd, "signin", func(s *auth.Session) auth.Result {
			if authFlags.idToken != "" {
				return s.SignInWithProvider(cmd.Context(), auth.ProviderCredential{
					ProviderID: authFlags.providerID,
					IDToken:    authFlags.idToken,
				})
			}
			return s.SignInWithEmail(cmd.Context(), authFlags.email, authPassword())
		})
	},
}

var authSignOutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out; ID tokens stay valid until they expire",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuth(cmd, "signout", func(s *auth.Session) auth.Result {
			return s.SignOut(cmd.Context())
		})
	},
}

var authFlags struct {
	email, password     string
	providerID, idToken string
	showTokens          bool
}

func init() {
	for _, cmd := range []*cobra.Command{authSignUpCmd, authSignInCmd} {
		cmd.Flags().StringVar(&authFlags.email, "email", "", "Account email address")
		cmd.Flags().StringVar(&authFlags.password, "password", "", "Account password (default: $SNAPSCREEN_AUTH_PASSWORD)")
		cmd.Flags().BoolVar(&authFlags.showTokens, "show-tokens", false, "Print the ID and refresh tokens")
	}
	authSignInCmd.Flags().StringVar(&authFlags.providerID, "provider-id", auth.DefaultProviderID, "Identity provider of --id-token")
	authSignInCmd.Flags().StringVar(&authFlags.idToken, "id-token", "", "Third-party ID token to sign in with instead of a password")

	authCmd.AddCommand(authSignUpCmd)
	authCmd.AddCommand(authSignInCmd)
	authCmd.AddCommand(authSignOutCmd)
}

func authPassword() string {
	if authFlags.password != "" {
		return authFlags.password
	}
	return os.Getenv("SNAPSCREEN_AUTH_PASSWORD")
}

// newAuthProvider is replaced in tests
var newAuthProvider = func(cmd *cobra.Command, logger *errors.Logger) (auth.Provider, error) {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return nil, err
	}
	return auth.NewIdentityToolkitProvider(cfg.Auth, logger)
}

func runAuth(cmd *cobra.Command, operation string, run func(*auth.Session) auth.Result) error {
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}
	provider, err := newAuthProvider(cmd, logger)
	if err != nil {
		return err
	}

	session := auth.NewSession(provider)
	unsubscribe := session.OnAuthStateChanged(func(u *auth.User) {
		if u != nil {
			logger.Debug("Auth state changed", "uid", u.UID)
		}
	})
	defer unsubscribe()

	res := run(session)
	out := cmd.OutOrStdout()
	if !res.OK() {
		color.New(color.FgRed).Fprintln(out, res.Error)
		return fmt.Errorf("%s failed", operation)
	}

	user := session.CurrentUser()
	if user == nil {
		color.New(color.FgGreen).Fprintln(out, "Signed out.")
		return nil
	}

	name := user.Email
	if name == "" {
		name = user.DisplayName
	}
	color.New(color.FgGreen).Fprintf(out, "Signed in as %s\n", name)
	_, _ = fmt.Fprintf(out, "UID: %s\n", user.UID)
	if authFlags.showTokens {
		_, _ = fmt.Fprintf(out, "ID token: %s\n", user.IDToken)
		_, _ = fmt.Fprintf(out, "Refresh token: %s\n", user.RefreshToken)
	}
	return nil
}
