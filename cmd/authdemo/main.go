package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/wordpress-mobile/authflow/pkg/api"
	"github.com/wordpress-mobile/authflow/pkg/config"
	"github.com/wordpress-mobile/authflow/pkg/credentials"
	"github.com/wordpress-mobile/authflow/pkg/devfacade"
	"github.com/wordpress-mobile/authflow/pkg/flow"
	"github.com/wordpress-mobile/authflow/pkg/magiclink"
	"github.com/wordpress-mobile/authflow/pkg/notification"
	"github.com/wordpress-mobile/authflow/pkg/social"
)

type Config struct {
	AppConfig     config.AppConfig
	FlowConfig    config.FlowConfig
	EmailConfig   config.EmailConfig
	JWTConfig     config.JWTConfig
	StorageConfig config.StorageConfig

	GoogleClientID     string `env:"OAUTH2_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"OAUTH2_GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"OAUTH2_GOOGLE_CALLBACK_URL"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	cfg := Config{}
	cleanenv.ReadEnv(&cfg)

	emailNotifier, err := notification.NewEmailNotifier(cfg.EmailConfig.ToSMTPConfig())
	if err != nil {
		slog.Error("Failed to create email notifier", "err", err)
		os.Exit(-1)
	}
	notices := notification.NewManager(emailNotifier)

	directory := devfacade.NewDirectory()
	seedAccounts(directory)

	sites := devfacade.NewSiteDirectory()
	sites.AddSite("demosite.example.com", devfacade.Site{
		EndpointURL: "http://demosite.example.com/xmlrpc.php",
	})
	sites.AddSite("jetpack.example.com", devfacade.Site{JetpackManaged: true})

	sessions := devfacade.NewSessionIssuer(cfg.JWTConfig.Secret)
	facade := devfacade.NewFacade(directory, sessions, notices)

	continuations, err := magiclink.NewFileRepository(cfg.StorageConfig.DataDir)
	if err != nil {
		slog.Error("Failed to create continuation store", "dataDir", cfg.StorageConfig.DataDir, "err", err)
		os.Exit(-1)
	}
	magicLinks := magiclink.NewService(continuations, facade)

	localState := &devfacade.MemoryLocalState{}
	googleProvider := social.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL)

	f := flow.New(cfg.FlowConfig.ToFlowConfig(), flow.Dependencies{
		Auth:            facade,
		Discovery:       sites,
		Availability:    facade,
		CredentialStore: &devfacade.StaticCredentialStore{},
		SocialProvider:  googleProvider,
		Sync:            localState,
		MagicLinks:      magicLinks,
		LocalState:      localState,
	}, credentials.PurposeLogin)

	f.AddObserver(flow.ObserverFunc(func(t flow.Transition) {
		slog.Info("Flow transition", "state", t.State, "busy", t.Busy, "notice", t.Notice)
	}))

	handle := api.NewHandle(f)
	auth := jwtauth.New("HS256", []byte(cfg.JWTConfig.Secret), nil)
	router := api.Router(handle, auth)

	addr := fmt.Sprintf("%s:%d", cfg.AppConfig.Host, cfg.AppConfig.Port)
	slog.Info("Starting authdemo server", "addr", addr, "restrictToWPCom", cfg.FlowConfig.RestrictToWPCom)
	if err := http.ListenAndServe(addr, router); err != nil {
		slog.Error("Server stopped", "err", err)
		os.Exit(-1)
	}
}

// seedAccounts registers the demo directory: a plain hosted account, one
// with an authenticator, an SMS-only account, and a self-hosted admin.
func seedAccounts(directory *devfacade.Directory) {
	if _, err := directory.Add(devfacade.AccountSpec{
		Email:    "demo@example.com",
		Username: "demo",
		Password: "demo-password",
	}); err != nil {
		slog.Error("Failed to seed account", "err", err)
		os.Exit(-1)
	}

	secured, err := directory.Add(devfacade.AccountSpec{
		Email:       "secured@example.com",
		Username:    "secured",
		Password:    "secured-password",
		BackupCodes: []string{"12345678", "87654321"},
	})
	if err != nil {
		slog.Error("Failed to seed account", "err", err)
		os.Exit(-1)
	}
	secret, err := directory.EnableAuthenticator(secured.UserID)
	if err != nil {
		slog.Error("Failed to enable authenticator", "err", err)
		os.Exit(-1)
	}
	slog.Info("Authenticator enabled for secured@example.com", "secret", secret)

	if _, err := directory.Add(devfacade.AccountSpec{
		Email:       "sms@example.com",
		Username:    "smsuser",
		Password:    "sms-password",
		PhoneNumber: "+15555550100",
	}); err != nil {
		slog.Error("Failed to seed account", "err", err)
		os.Exit(-1)
	}

	if _, err := directory.Add(devfacade.AccountSpec{
		Email:       "admin@demosite.example.com",
		Username:    "siteadmin",
		Password:    "site-password",
		SiteAddress: "http://demosite.example.com",
	}); err != nil {
		slog.Error("Failed to seed account", "err", err)
		os.Exit(-1)
	}
}
