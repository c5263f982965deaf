// Package config holds the environment-driven configuration structs shared
// by the demo server. Values load through cleanenv from env tags.
package config

import (
	"github.com/wordpress-mobile/authflow/pkg/flow"
	"github.com/wordpress-mobile/authflow/pkg/notification"
)

// AppConfig is the HTTP listener configuration.
type AppConfig struct {
	Host string `env:"APP_HOST" env-default:"localhost"`
	Port uint16 `env:"APP_PORT" env-default:"4000"`
}

// FlowConfig selects the journey variant the server exposes.
type FlowConfig struct {
	RestrictToWPCom bool   `env:"FLOW_RESTRICT_TO_WPCOM" env-default:"false"`
	OfferMagicLinks bool   `env:"FLOW_OFFER_MAGIC_LINKS" env-default:"true"`
	WPComDomainHint string `env:"FLOW_WPCOM_DOMAIN_HINT" env-default:"wordpress.com"`
}

// ToFlowConfig converts to the flow package's config type.
func (c FlowConfig) ToFlowConfig() flow.Config {
	return flow.Config{
		RestrictToWPCom: c.RestrictToWPCom,
		OfferMagicLinks: c.OfferMagicLinks,
		WPComDomainHint: c.WPComDomainHint,
	}
}

// EmailConfig is the SMTP relay used for magic links and one-time codes.
type EmailConfig struct {
	Host     string `env:"EMAIL_HOST" env-default:"localhost"`
	Port     uint16 `env:"EMAIL_PORT" env-default:"1025"`
	Username string `env:"EMAIL_USERNAME"`
	Password string `env:"EMAIL_PASSWORD"`
	From     string `env:"EMAIL_FROM" env-default:"noreply@example.com"`
	TLS      bool   `env:"EMAIL_TLS" env-default:"false"`
}

// ToSMTPConfig converts to the notification package's SMTP config.
func (c EmailConfig) ToSMTPConfig() notification.SMTPConfig {
	return notification.SMTPConfig{
		Host:     c.Host,
		Port:     int(c.Port),
		Username: c.Username,
		Password: c.Password,
		From:     c.From,
		TLS:      c.TLS,
	}
}

// JWTConfig signs the sessions the dev facade issues.
type JWTConfig struct {
	Secret string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
}

// StorageConfig locates the on-disk state the flow persists between runs.
type StorageConfig struct {
	// DataDir holds the pending magic-link continuation record.
	DataDir string `env:"DATA_DIR" env-default:"./data"`
}
